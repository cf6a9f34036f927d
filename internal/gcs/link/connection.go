package link

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/message"

	"github.com/groundlink-io/groundlink/internal/gcs/correlator"
	"github.com/groundlink-io/groundlink/internal/gcs/errdefs"
	"github.com/groundlink-io/groundlink/internal/gcs/mav"
	"github.com/groundlink-io/groundlink/internal/gcs/transport"
	"github.com/groundlink-io/groundlink/internal/gcs/vehicle"
	"github.com/groundlink-io/groundlink/internal/pkg/metrics"
	"github.com/groundlink-io/groundlink/pkg/log"
)

// Hooks are the connection's outward-facing callbacks. All of them are
// optional and must not block.
type Hooks struct {
	// OnPacket receives every accepted inbound packet, after registry
	// dispatch. Used by the gateway's push stream.
	OnPacket func(p *mav.Packet)

	// OnEvent receives vehicle notifications (discovery, armed edges,
	// landed-state transitions).
	OnEvent vehicle.EventListener

	// OnClosed fires once when the connection shuts down, whether by
	// request or because the transport failed.
	OnClosed func(err error)
}

// Connection is one live link to the vehicle side: transport, codec,
// signature verifier, correlator and registry, torn down as a unit.
type Connection struct {
	tr       transport.Transport
	codec    *codec
	verifier *Verifier
	corr     *correlator.Correlator
	registry *vehicle.Registry
	hooks    Hooks
	log      log.Logger

	closed    atomic.Bool
	closeOnce sync.Once
}

// Dial opens the transport described by opts and stacks the MAVLink layers
// on top of it. On success the inbound loop is already running.
func Dial(ctx context.Context, opts *transport.Options, cfg Config, hooks Hooks) (*Connection, error) {
	tr, err := transport.Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	return newConnection(tr, cfg, hooks)
}

func newConnection(tr transport.Transport, cfg Config, hooks Hooks) (*Connection, error) {
	cd, err := newCodec(tr, cfg)
	if err != nil {
		tr.Close()
		return nil, &errdefs.ConnectionError{Endpoint: tr.Endpoint(), Err: err}
	}

	verifier, err := newVerifierFor(cfg)
	if err != nil {
		cd.Close()
		tr.Close()
		return nil, &errdefs.ConnectionError{Endpoint: tr.Endpoint(), Err: err}
	}

	c := &Connection{
		tr:       tr,
		codec:    cd,
		verifier: verifier,
		corr:     correlator.New(),
		hooks:    hooks,
		log:      log.WithName("link").WithValues("endpoint", tr.Endpoint()),
	}

	c.registry = vehicle.NewRegistry(c, c.corr, vehicle.Config{
		SystemID:          cfg.SystemID,
		ComponentID:       cfg.ComponentID,
		HeartbeatInterval: cfg.HeartbeatInterval,
		CommandTimeout:    cfg.CommandTimeout,
	}, hooks.OnEvent)

	go c.readLoop()

	c.log.Info("Connection established", "kind", tr.Kind())
	return c, nil
}

func newVerifierFor(cfg Config) (*Verifier, error) {
	if cfg.SigningPassphrase == "" {
		return NewVerifier(nil)
	}
	return NewVerifier(DeriveKey(cfg.SigningPassphrase))
}

// Endpoint describes the underlying channel.
func (c *Connection) Endpoint() string { return c.tr.Endpoint() }

// Kind returns the transport kind, "serial", "tcp" or "udp".
func (c *Connection) Kind() string { return c.tr.Kind() }

// Registry exposes the connection's vehicle sessions.
func (c *Connection) Registry() *vehicle.Registry { return c.registry }

// Send encodes and writes one typed message to the link. It implements
// vehicle.Sender.
func (c *Connection) Send(msg message.Message) error {
	if c.closed.Load() {
		return errdefs.ErrNotConnected
	}
	return c.codec.Send(msg)
}

// Close tears the connection down. Idempotent.
func (c *Connection) Close() {
	c.shutdown(nil)
}

func (c *Connection) readLoop() {
	for evt := range c.codec.Events() {
		switch evt := evt.(type) {
		case *gomavlib.EventFrame:
			c.handleFrame(evt)

		case *gomavlib.EventParseError:
			metrics.PacketsDroppedTotal.WithLabelValues("parse_error").Inc()
			c.log.Warn("Dropping undecodable packet", "err", evt.Error)

		case *gomavlib.EventChannelClose:
			// The transport is gone; tear everything down so pending
			// commands fail fast instead of timing out.
			c.log.Info("Transport channel closed")
			go c.shutdown(errdefs.ErrConnectionClosed)
		}
	}
}

func (c *Connection) handleFrame(evt *gomavlib.EventFrame) {
	if !c.verifier.Verify(evt.Frame) {
		metrics.PacketsDroppedTotal.WithLabelValues("signature_mismatch").Inc()
		c.log.Warn("Dropping packet with bad signature",
			"system", evt.SystemID(), "component", evt.ComponentID())
		return
	}

	p := mav.FromFrame(evt.Frame)
	metrics.PacketsReceivedTotal.WithLabelValues(mav.MessageName(p.Message)).Inc()

	c.registry.Dispatch(p)

	if c.hooks.OnPacket != nil {
		c.hooks.OnPacket(p)
	}
}

func (c *Connection) shutdown(cause error) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		c.registry.DestroyAll()
		c.corr.Close()
		c.codec.Close()
		if err := c.tr.Close(); err != nil {
			c.log.Warn("Transport close failed", "err", err)
		}

		c.log.Info("Connection closed")
		if c.hooks.OnClosed != nil {
			c.hooks.OnClosed(cause)
		}
	})
}
