package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	hostevent "github.com/robinbraemer/event"
	"github.com/sandertv/gophertunnel/minecraft"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"

	"github.com/veilmc/veil/pkg/edition/bedrock/config"
	"github.com/veilmc/veil/pkg/edition/bedrock/proto"
	"github.com/veilmc/veil/pkg/edition/bedrock/proto/codec"
	"github.com/veilmc/veil/pkg/util/errs"
)

// ErrClosedConn indicates a connection is already closed.
var ErrClosedConn = errors.New("connection is closed")

// Conn is one leg of a relayed connection sending and receiving
// serialised packets (packet id + data).
// Read copies one whole packet into b and returns io.ErrShortBuffer
// if it does not fit.
type Conn interface {
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	Flush() error
	Close() error
}

var _ Conn = (*minecraft.Conn)(nil)

// maxPacketSize is the size of a leg's read buffer. Larger packets close the connection.
const maxPacketSize = 1 << 22

// State is the lifecycle state of a relayed connection.
type State uint32

// Connection states in the order they are entered.
const (
	Connecting State = iota // Handshaking with the remote server.
	Active                  // Relaying packets.
	Closing                 // Draining queues and closing transports.
	Closed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Connecting:
		return "Connecting"
	case Active:
		return "Active"
	case Closing:
		return "Closing"
	case Closed:
		return "Closed"
	}
	return fmt.Sprintf("State(%d)", uint32(s))
}

// leg is one side of a connection.
type leg struct {
	name string
	conn Conn
	dec  *codec.Decoder // decodes packets read from conn
	enc  *codec.Encoder // encodes packets written to conn
	out  *writeQueue
}

// WritePacket implements PacketWriter.
func (l *leg) WritePacket(pk packet.Packet) error {
	b, err := l.enc.Encode(pk)
	if err != nil {
		return err
	}
	return l.out.push(b)
}

// connection relays packets between a client and a remote server.
type connection struct {
	id       string
	log      logr.Logger
	eventMgr hostevent.Manager
	cfg      *config.Config
	notifier Notifier

	ctx    context.Context
	cancel context.CancelFunc

	state     atomic.Uint32
	closeOnce sync.Once
	cause     error // Set once by close.

	client, server *leg
	session        *Session

	// Disconnects the client with a message.
	// If nil, the client transport is closed without a message.
	disconnect func(message string)
}

func newConnection(ctx context.Context, id string, cfg *config.Config, log logr.Logger,
	eventMgr hostevent.Manager, notifier Notifier) *connection {
	if notifier == nil {
		notifier = nopNotifier
	}
	c := &connection{
		id:       id,
		log:      log,
		eventMgr: eventMgr,
		cfg:      cfg,
		notifier: notifier,
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	return c
}

// State returns the current state.
func (c *connection) State() State { return State(c.state.Load()) }

func (c *connection) setState(to State) {
	from := State(c.state.Swap(uint32(to)))
	if from == to {
		return
	}
	c.log.V(1).Info("connection state changed", "from", from, "to", to)
	c.eventMgr.Fire(&ConnectionStateChangeEvent{id: c.id, from: from, to: to})
}

// establish creates both legs and the session once the handshake with the
// remote server completed.
func (c *connection) establish(client, server Conn, gameData minecraft.GameData) {
	shieldID := shieldRuntimeID(gameData)
	c.client = &leg{
		name: "client",
		conn: client,
		dec:  codec.NewDecoder(proto.ServerBound, shieldID, c.log),
		enc:  codec.NewEncoder(proto.ClientBound, shieldID, c.log),
		out:  newWriteQueue(c.cfg.MaxQueuedPackets),
	}
	c.server = &leg{
		name: "server",
		conn: server,
		dec:  codec.NewDecoder(proto.ClientBound, shieldID, c.log),
		enc:  codec.NewEncoder(proto.ServerBound, shieldID, c.log),
		out:  newWriteQueue(c.cfg.MaxQueuedPackets),
	}
	c.session = NewSession(SessionOptions{
		ID:       c.id,
		Server:   c.server,
		Client:   c.client,
		GameData: gameData,
		Logger:   c.log,
		Notifier: c.notifier,
	})
}

func shieldRuntimeID(gd minecraft.GameData) int32 {
	for _, it := range gd.Items {
		if it.Name == "minecraft:shield" {
			return int32(it.RuntimeID)
		}
	}
	return 0
}

// close closes the connection with cause, nil if the connection ended normally.
// Only the first call has an effect.
func (c *connection) close(cause error) {
	c.closeOnce.Do(func() {
		c.cause = cause
		c.cancel()
	})
}

// closeOnErr closes the connection if err is not nil.
func (c *connection) closeOnErr(l *leg, err error) {
	if err == nil {
		return
	}
	if errs.IsConnClosedErr(err) {
		c.close(nil)
		return
	}
	c.close(fmt.Errorf("%s: %w", l.name, err))
}

// abort ends a connection that was never established.
func (c *connection) abort(cause error) {
	c.close(cause)
	c.setState(Closing)
	c.setState(Closed)
}

// run relays packets until either leg is closed or the connection's
// context is cancelled. It blocks until every goroutine of the connection
// exited and all handlers were removed from the session, then returns
// the reason the connection was closed.
func (c *connection) run() error {
	// Writers outlive the read loops to drain what is queued.
	writeCtx, stopWriters := context.WithCancel(context.Background())
	defer stopWriters()

	var writers, workers sync.WaitGroup
	for _, l := range []*leg{c.client, c.server} {
		writers.Add(1)
		go func(l *leg) {
			defer writers.Done()
			c.closeOnErr(l, l.out.run(writeCtx, l.conn))
		}(l)
	}

	c.setState(Active)

	workers.Add(3)
	go func() { defer workers.Done(); c.readLoop(c.client, c.server) }()
	go func() { defer workers.Done(); c.readLoop(c.server, c.client) }()
	go func() { defer workers.Done(); c.tickLoop() }()

	<-c.ctx.Done()
	c.setState(Closing)

	stopWriters()
	writers.Wait()

	// Unblocks the read loops.
	c.closeTransports()
	workers.Wait()

	c.session.release()
	c.setState(Closed)
	return c.cause
}

func (c *connection) closeTransports() {
	if c.cause != nil && c.disconnect != nil {
		c.disconnect(fmt.Sprintf("Relay closed the connection: %v", c.cause))
	} else {
		_ = c.client.conn.Close()
	}
	_ = c.server.conn.Close()
}

func (c *connection) readLoop(from, to *leg) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error(nil, "recovered panic in packets read loop", "leg", from.name, "panic", r)
			c.close(fmt.Errorf("panic in %s read loop: %v", from.name, r))
		}
	}()
	buf := make([]byte, maxPacketSize)
	for {
		n, err := from.conn.Read(buf)
		if err != nil {
			c.closeOnErr(from, err)
			return
		}
		// The envelope and the raw forward path keep the payload.
		payload := bytes.Clone(buf[:n])
		if c.State() != Active {
			return
		}
		c.handle(from, to, payload)
	}
}

// handle relays one packet read from a leg to the other leg.
func (c *connection) handle(from, to *leg, payload []byte) {
	pk, err := from.dec.Decode(payload)
	if err != nil {
		log := c.log.V(1)
		if !errors.Is(err, proto.ErrUnknownPacket) {
			log = errs.V(c.log, err)
		}
		log.Info("forwarding packet unchanged", "from", from.name, "reason", err.Error())
		c.countPacket(from, resultRaw)
		c.closeOnErr(to, to.out.push(payload))
		return
	}

	env := proto.NewEnvelope(from.dec.Direction(), pk, payload)
	c.session.Dispatch(env)

	if env.Cancelled() {
		if log := c.log.V(2); log.Enabled() {
			log.Info("dropped cancelled packet", "from", from.name, "packet", env)
		}
		c.countPacket(from, resultCancelled)
		return
	}
	b, err := to.enc.Encode(env.Packet())
	if err != nil {
		// A handler's replacement that cannot be encoded is dropped
		// and the packet is forwarded as it was read.
		c.log.Error(err, "error encoding packet, forwarding original",
			"from", from.name, "modified", env.Modified())
		c.countPacket(from, resultRaw)
		c.closeOnErr(to, to.out.push(payload))
		return
	}
	c.countPacket(from, resultForwarded)
	c.closeOnErr(to, to.out.push(b))
}

func (c *connection) tickLoop() {
	interval := c.cfg.TickInterval
	if interval <= 0 {
		interval = config.DefaultConfig.TickInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	var tick uint64
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-t.C:
			if c.State() != Active {
				continue
			}
			tick++
			c.session.Tick(tick)
		}
	}
}

func (c *connection) countPacket(from *leg, result string) {
	packetsCounter.Add(c.ctx, 1, metric.WithAttributes(
		attribute.String("direction", from.dec.Direction().String()),
		attribute.String("result", result),
	))
}
