package proxy

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/sandertv/go-raknet"
	"github.com/sandertv/gophertunnel/minecraft"

	"github.com/veilmc/veil/pkg/edition/bedrock/config"
	"github.com/veilmc/veil/pkg/internal/cachutil"
)

// Pong is the parsed RakNet pong of a Bedrock server.
type Pong struct {
	Edition     string // "MCPE" or "MCEE"
	MOTD        string
	Protocol    int
	Version     string
	PlayerCount int
	MaxPlayers  int
	SubMOTD     string
	GameMode    string
}

// ParsePong parses the semicolon separated pong data of a Bedrock server,
// e.g. "MCPE;Dedicated Server;686;1.21.2;0;10;13253860892328930865;Bedrock level;Survival;1;19132;19133;".
func ParsePong(data []byte) (*Pong, error) {
	fields := strings.Split(string(data), ";")
	if len(fields) < 6 {
		return nil, fmt.Errorf("malformed pong %q: expected at least 6 fields, got %d", data, len(fields))
	}
	p := &Pong{
		Edition: fields[0],
		MOTD:    fields[1],
		Version: fields[3],
	}
	var err error
	if p.Protocol, err = strconv.Atoi(fields[2]); err != nil {
		return nil, fmt.Errorf("malformed pong protocol %q: %w", fields[2], err)
	}
	if p.PlayerCount, err = strconv.Atoi(fields[4]); err != nil {
		return nil, fmt.Errorf("malformed pong player count %q: %w", fields[4], err)
	}
	if p.MaxPlayers, err = strconv.Atoi(fields[5]); err != nil {
		return nil, fmt.Errorf("malformed pong max players %q: %w", fields[5], err)
	}
	if len(fields) > 7 {
		p.SubMOTD = fields[7]
	}
	if len(fields) > 8 {
		p.GameMode = fields[8]
	}
	return p, nil
}

// Ping pings a Bedrock server over RakNet and parses its pong.
func Ping(address string, timeout time.Duration) (*Pong, error) {
	data, err := raknet.PingTimeout(address, timeout)
	if err != nil {
		return nil, fmt.Errorf("error pinging %s: %w", address, err)
	}
	return ParsePong(data)
}

// statusProvider advertises the remote server's status to clients
// looking at the relay in their server list.
type statusProvider struct {
	remote   string
	fallback string
	cache    *cachutil.Cache[*Pong]
}

var _ minecraft.ServerStatusProvider = (*statusProvider)(nil)

func newStatusProvider(remote string, cfg config.Status, log logr.Logger,
	ping func(address string, timeout time.Duration) (*Pong, error)) *statusProvider {
	return &statusProvider{
		remote:   remote,
		fallback: cfg.Fallback,
		cache: cachutil.New[*Pong](cfg.CacheTTL, func(address string) (*Pong, error) {
			return ping(address, cfg.PingTimeout)
		}, func(address string, err error) {
			log.V(1).Info("could not ping remote server for status", "address", address, "error", err)
		}),
	}
}

// ServerStatus implements minecraft.ServerStatusProvider.
func (s *statusProvider) ServerStatus(playerCount, maxPlayers int) minecraft.ServerStatus {
	pong, ok := s.cache.Get(s.remote)
	if !ok {
		return minecraft.ServerStatus{
			ServerName:  s.fallback,
			PlayerCount: playerCount,
			MaxPlayers:  maxPlayers,
		}
	}
	return minecraft.ServerStatus{
		ServerName:  pong.MOTD,
		PlayerCount: pong.PlayerCount,
		MaxPlayers:  pong.MaxPlayers,
	}
}
