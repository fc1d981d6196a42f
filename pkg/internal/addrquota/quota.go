// Package addrquota limits how often a network block may perform an operation.
package addrquota

import (
	"net"
	"net/netip"
	"sync"

	"github.com/golang/groupcache/lru"
	"golang.org/x/time/rate"
)

// Quota implements a simple IP-based rate limiter.
// Addresses of the same /24 IPv4 or /64 IPv6 block share one token bucket
// refilled with ops tokens per second.
// Buckets are kept in an LRU cache of size maxEntries.
type Quota struct {
	ops   rate.Limit
	burst int

	mu    sync.Mutex // Protects cache
	cache *lru.Cache
}

// NewQuota returns a quota allowing opsPerSecond with the given burst per block.
func NewQuota(opsPerSecond float32, burst, maxEntries int) *Quota {
	return &Quota{
		ops:   rate.Limit(opsPerSecond),
		burst: burst,
		cache: lru.New(maxEntries),
	}
}

// Blocked reports whether the block of addr exceeded its quota.
// Every call that is not blocked consumes a token.
// Addresses without an IP, e.g. pipes, are never blocked.
func (q *Quota) Blocked(addr net.Addr) bool {
	key, ok := blockKey(addr)
	if !ok {
		return false
	}
	q.mu.Lock()
	var limiter *rate.Limiter
	if v, ok := q.cache.Get(key); ok {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(q.ops, q.burst)
		q.cache.Add(key, limiter)
	}
	q.mu.Unlock()
	return !limiter.Allow()
}

func blockKey(addr net.Addr) (netip.Prefix, bool) {
	if addr == nil {
		return netip.Prefix{}, false
	}
	ap, err := netip.ParseAddrPort(addr.String())
	if err != nil {
		return netip.Prefix{}, false
	}
	ip := ap.Addr().Unmap()
	bits := 24
	if ip.Is6() {
		bits = 64
	}
	p, err := ip.Prefix(bits)
	return p, err == nil
}
