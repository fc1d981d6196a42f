// Package proxy implements the Bedrock packet-interception relay.
//
// The relay accepts clients, connects each of them to the remote server and
// forwards every packet in both directions through the session event bus,
// where enabled modules may inspect, mutate, cancel or inject packets.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/go-logr/logr"
	hostevent "github.com/robinbraemer/event"
	"github.com/rs/xid"
	"github.com/sandertv/gophertunnel/minecraft"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/veilmc/veil/pkg/edition/bedrock/config"
	"github.com/veilmc/veil/pkg/edition/bedrock/module"
	"github.com/veilmc/veil/pkg/internal/addrquota"
	"github.com/veilmc/veil/pkg/util/errs"
	"github.com/veilmc/veil/pkg/util/netutil"
	"github.com/veilmc/veil/pkg/util/validation"
)

// ErrRelayAlreadyRun is returned by Relay.Start if the relay was already started.
var ErrRelayAlreadyRun = errors.New("relay was already run, create a new one")

// Options are the options for a new Relay.
type Options struct {
	// Config requires a valid configuration.
	Config *config.Config
	// Registry holds the modules bound to every session.
	// If none is set, no modules are bound.
	Registry *module.Registry
	// The event manager to use.
	// If none is set, no events are sent.
	EventMgr hostevent.Manager
	// Logger is the logger to be used by the Relay.
	// If none is set, the logger of the context passed to Start is used.
	Logger logr.Logger
	// TokenSource logs in to the remote server with an Xbox Live account.
	// If none is set, the relay connects in offline mode using the client's identity.
	TokenSource oauth2.TokenSource
	// Notifier receives user-visible notifications.
	Notifier Notifier
}

// Relay is the Bedrock packet-interception relay.
type Relay struct {
	log         logr.Logger
	eventMgr    hostevent.Manager
	registry    *module.Registry
	tokenSource oauth2.TokenSource
	notifier    Notifier

	runOnce   atomic.Bool
	listening atomic.Bool
	stopMu    sync.Mutex
	stop      context.CancelFunc
	stopped   bool

	mu    sync.RWMutex // Protects following fields
	cfg   *config.Config
	conns map[string]*connection
}

// New takes a config that should have been validated by
// config.Validate and returns a new initialized Relay ready to start.
func New(options Options) (*Relay, error) {
	if options.Config == nil {
		return nil, errs.ErrMissingConfig
	}
	eventMgr := options.EventMgr
	if eventMgr == nil {
		eventMgr = hostevent.Nop
	}
	registry := options.Registry
	if registry == nil {
		registry = module.NewRegistry(logr.Discard(), eventMgr)
	}
	notifier := options.Notifier
	if notifier == nil {
		notifier = nopNotifier
	}
	return &Relay{
		log:         options.Logger,
		eventMgr:    eventMgr,
		registry:    registry,
		tokenSource: options.TokenSource,
		notifier:    notifier,
		cfg:         options.Config,
		conns:       map[string]*connection{},
	}, nil
}

// Event returns the event manager the relay fires events on.
func (r *Relay) Event() hostevent.Manager { return r.eventMgr }

// Registry returns the module registry.
func (r *Relay) Registry() *module.Registry { return r.registry }

// Config returns the current config.
func (r *Relay) Config() *config.Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// UpdateConfig replaces the config used for new sessions.
// Changes for which RequiresRestart reports true take effect after a restart only.
func (r *Relay) UpdateConfig(cfg *config.Config) {
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
}

// RequiresRestart reports whether switching from prev to curr config
// requires the relay to be restarted.
func RequiresRestart(prev, curr *config.Config) bool {
	return prev.Bind != curr.Bind ||
		prev.ClientAuth != curr.ClientAuth ||
		prev.Status != curr.Status ||
		prev.Quota != curr.Quota
}

// Start starts the relay listening for clients and relaying them to
// serverAddress:port. It blocks until ctx is cancelled, Stop is called or
// the listener fails, and returns after all sessions were closed.
func (r *Relay) Start(ctx context.Context, serverAddress string, port uint16) error {
	if !r.runOnce.CompareAndSwap(false, true) {
		return ErrRelayAlreadyRun
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.stopMu.Lock()
	if r.stopped {
		r.stopMu.Unlock()
		return nil
	}
	r.stop = cancel
	r.stopMu.Unlock()

	if r.log.GetSink() == nil {
		r.log = logr.FromContextOrDiscard(ctx)
	}
	r.log = r.log.WithName("relay")

	remote := net.JoinHostPort(serverAddress, strconv.Itoa(int(port)))
	if err := validation.ValidHostPort(remote); err != nil {
		return fmt.Errorf("invalid remote server address %q: %w", remote, err)
	}
	if err := r.initMeter(); err != nil {
		return fmt.Errorf("error initializing metrics: %w", err)
	}

	cfg := r.Config()
	var quota *addrquota.Quota
	if cfg.Quota.Enabled {
		quota = addrquota.NewQuota(cfg.Quota.OPS, cfg.Quota.Burst, cfg.Quota.MaxEntries)
	}

	ln, err := minecraft.ListenConfig{
		StatusProvider:         newStatusProvider(remote, cfg.Status, r.log, Ping),
		AuthenticationDisabled: !cfg.ClientAuth,
	}.Listen("raknet", cfg.Bind)
	if err != nil {
		return fmt.Errorf("error listening on %s: %w", cfg.Bind, err)
	}
	go func() { <-ctx.Done(); _ = ln.Close() }()
	r.listening.Store(true)
	defer r.listening.Store(false)

	unsubscribe := hostevent.Subscribe(r.eventMgr, 0, r.onModuleToggle)
	defer unsubscribe()

	r.log.Info("listening for clients", "bind", cfg.Bind, "remote", remote)
	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		netConn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errs.IsConnClosedErr(err) {
				return nil
			}
			return fmt.Errorf("error accepting new connection: %w", err)
		}
		client := netConn.(*minecraft.Conn)
		if quota != nil && quota.Blocked(client.RemoteAddr()) {
			r.log.Info("connection exceeded rate limit, closed", "host", netutil.Host(client.RemoteAddr()))
			_ = ln.Disconnect(client, "You are connecting too fast, try again later.")
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.serve(ctx, ln, client, remote)
		}()
	}
}

// Listening reports whether the relay accepts clients.
func (r *Relay) Listening() bool { return r.listening.Load() }

// Stop stops the relay and closes all sessions.
// Start returns once everything is closed.
func (r *Relay) Stop() {
	r.stopMu.Lock()
	defer r.stopMu.Unlock()
	r.stopped = true
	if r.stop != nil {
		r.stop()
	}
}

// Sessions returns all active sessions.
func (r *Relay) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessions := make([]*Session, 0, len(r.conns))
	for _, c := range r.conns {
		sessions = append(sessions, c.session)
	}
	return sessions
}

// SessionCount returns the number of active sessions.
func (r *Relay) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Relay) serve(ctx context.Context, ln *minecraft.Listener, client *minecraft.Conn, remote string) {
	id := xid.New().String()
	player := client.IdentityData().DisplayName
	log := r.log.WithName("session").WithValues("id", id, "player", player, "remoteAddr", client.RemoteAddr())

	ctx, span := tracer.Start(ctx, "Session", trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.String("player", player),
		attribute.String("remote", remote),
	))
	defer span.End()

	c := newConnection(ctx, id, r.Config(), log, r.eventMgr, r.notifier)
	c.disconnect = func(message string) { _ = ln.Disconnect(client, message) }

	server, err := r.connect(c.ctx, client, remote)
	if err != nil {
		log.Info("could not connect to remote server", "remote", remote, "error", err)
		span.SetStatus(codes.Error, err.Error())
		r.notifier.Notify(Notification{
			Kind:      ErrorNotification,
			SessionID: id,
			Message:   fmt.Sprintf("%s could not connect to %s: %v", player, remote, err),
		})
		_ = ln.Disconnect(client, "Could not connect to the remote server.")
		c.abort(err)
		return
	}
	c.establish(client, server, server.GameData())
	r.start(c)

	cause := c.run()

	r.mu.Lock()
	delete(r.conns, c.id)
	r.mu.Unlock()
	r.eventMgr.Fire(&SessionClosedEvent{session: c.session, cause: cause})

	if cause != nil {
		span.SetStatus(codes.Error, cause.Error())
		log.Info("session closed", "cause", cause)
		r.notifier.Notify(Notification{
			Kind:      WarningNotification,
			SessionID: id,
			Message:   fmt.Sprintf("Session of %s closed: %v", player, cause),
		})
		return
	}
	log.Info("session closed")
}

// start binds the relay commands and enabled modules to an established
// connection and makes it visible to module toggles.
func (r *Relay) start(c *connection) {
	r.mu.Lock()
	r.conns[c.id] = c
	r.mu.Unlock()

	newRelayCommands(c.cfg.CommandPrefix, r.registry).bind(c.session)
	for _, m := range r.registry.Enabled() {
		c.session.Bind(m)
	}
	r.eventMgr.Fire(&SessionStartedEvent{session: c.session})
	c.log.Info("session started")
}

// connect dials the remote server on behalf of client and completes the
// spawn sequence on both legs.
func (r *Relay) connect(ctx context.Context, client *minecraft.Conn, remote string) (*minecraft.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Config().DialTimeout)
	defer cancel()

	dialer := minecraft.Dialer{
		TokenSource: r.tokenSource,
		ClientData:  client.ClientData(),
	}
	if r.tokenSource == nil {
		dialer.IdentityData = client.IdentityData()
	}
	server, err := dialer.DialContext(ctx, "raknet", remote)
	if err != nil {
		return nil, err
	}

	var g errgroup.Group
	g.Go(func() error { return client.StartGameContext(ctx, server.GameData()) })
	g.Go(func() error { return server.DoSpawnContext(ctx) })
	if err = g.Wait(); err != nil {
		_ = server.Close()
		return nil, fmt.Errorf("error during spawn sequence: %w", err)
	}
	return server, nil
}

// onModuleToggle binds or unbinds a toggled module on every session.
func (r *Relay) onModuleToggle(e *module.ToggleEvent) {
	for _, s := range r.Sessions() {
		if e.Enabled() {
			s.Bind(e.Module())
		} else {
			s.Unbind(e.Module().Name())
		}
		s.bus.Emit(&ModuleToggleEvent{session: s, module: e.Module(), enabled: e.Enabled()})
	}
}
