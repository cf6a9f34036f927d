package link

import (
	"context"
	"sync"

	"github.com/groundlink-io/groundlink/internal/gcs/errdefs"
	"github.com/groundlink-io/groundlink/internal/gcs/mav"
	"github.com/groundlink-io/groundlink/internal/gcs/transport"
	"github.com/groundlink-io/groundlink/internal/gcs/vehicle"
	"github.com/groundlink-io/groundlink/pkg/log"
)

// Manager holds at most one live connection. Connecting while connected is
// an error; a failed transport clears the slot automatically.
type Manager struct {
	defaults Config
	log      log.Logger

	mu   sync.Mutex
	conn *Connection

	onPacket func(p *mav.Packet)
	onEvent  vehicle.EventListener
}

// NewManager creates a Manager using defaults for every connection it
// opens.
func NewManager(defaults Config) *Manager {
	return &Manager{
		defaults: defaults,
		log:      log.WithName("link"),
	}
}

// SetPacketListener installs the accepted-packet callback used by future
// connections. Call before Connect.
func (m *Manager) SetPacketListener(fn func(p *mav.Packet)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onPacket = fn
}

// SetEventListener installs the vehicle-notification callback used by
// future connections. Call before Connect.
func (m *Manager) SetEventListener(fn vehicle.EventListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEvent = fn
}

// Connect opens a connection with the given transport selection. The
// signing passphrase is optional; empty leaves signing off.
func (m *Manager) Connect(ctx context.Context, opts *transport.Options, signingPassphrase string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil {
		return errdefs.ErrAlreadyConnected
	}

	cfg := m.defaults
	cfg.SigningPassphrase = signingPassphrase

	var conn *Connection
	conn, err := Dial(ctx, opts, cfg, Hooks{
		OnPacket: m.onPacket,
		OnEvent:  m.onEvent,
		OnClosed: func(err error) { m.clear(conn) },
	})
	if err != nil {
		return err
	}

	m.conn = conn
	return nil
}

// Disconnect closes the current connection. Without force, disconnecting
// while not connected is an error; with force it is a no-op.
func (m *Manager) Disconnect(force bool) error {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if conn == nil {
		if force {
			return nil
		}
		return errdefs.ErrNotConnected
	}

	conn.Close()
	return nil
}

// Current returns the live connection, if any.
func (m *Manager) Current() (*Connection, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn, m.conn != nil
}

// Close force-disconnects. Used at process shutdown.
func (m *Manager) Close() {
	_ = m.Disconnect(true)
}

// clear drops conn from the slot if it is still the current one. Runs from
// the connection's own shutdown path on transport failure.
func (m *Manager) clear(conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == conn {
		m.conn = nil
		m.log.Info("Connection slot cleared after shutdown")
	}
}
