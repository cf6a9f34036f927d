package vehicle

import (
	"sync"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"

	"github.com/groundlink-io/groundlink/internal/gcs/correlator"
	"github.com/groundlink-io/groundlink/internal/gcs/mav"
	"github.com/groundlink-io/groundlink/pkg/log"
)

// Sender writes one typed message to the vehicle link.
type Sender interface {
	Send(msg message.Message) error
}

// TimedMessage is the most recent message of one type plus its arrival time.
type TimedMessage struct {
	Message    message.Message
	ReceivedAt time.Time
}

// Config carries the per-connection parameters shared by every session.
type Config struct {
	// SystemID and ComponentID identify this ground station on the wire.
	SystemID    byte
	ComponentID byte

	// HeartbeatInterval is the keep-alive period started for each new
	// session. Zero leaves heartbeats off.
	HeartbeatInterval time.Duration

	// CommandTimeout is the default deadline for simple commands.
	CommandTimeout time.Duration
}

// Session holds the per-vehicle derived state and the high-level command
// API. Inbound delivery is sequential per connection; the mutex protects
// the state against concurrent reads from the gateway side.
type Session struct {
	key    mav.VehicleKey
	sender Sender
	corr   *correlator.Correlator
	cfg    Config
	notify EventListener
	log    log.Logger

	mu         sync.RWMutex
	lastByType map[string]TimedMessage
	position   Position
	attitude   Attitude
	seenHB     bool
	armed      bool
	landed     *landedTracker

	hbMu   sync.Mutex
	hbStop chan struct{}
}

func newSession(key mav.VehicleKey, sender Sender, corr *correlator.Correlator, cfg Config, notify EventListener) *Session {
	s := &Session{
		key:        key,
		sender:     sender,
		corr:       corr,
		cfg:        cfg,
		notify:     notify,
		log:        log.WithName("vehicle").WithValues("vehicle", key.String()),
		lastByType: make(map[string]TimedMessage),
	}

	s.landed = newLandedTracker(func(from, to string) {
		s.log.Info("Landed state changed", "from", from, "to", to)
		s.emit(Event{Key: key, Type: EventLandedStateChanged, Detail: to})
	})

	return s
}

// Key returns the vehicle's identity on this connection.
func (s *Session) Key() mav.VehicleKey { return s.key }

// HandleMessage updates the last-message table and the derived views.
// Called from the connection's single inbound dispatch path.
func (s *Session) HandleMessage(p *mav.Packet) {
	name := mav.MessageName(p.Message)

	s.mu.Lock()
	s.lastByType[name] = TimedMessage{Message: p.Message, ReceivedAt: p.ReceivedAt}
	s.mu.Unlock()

	switch msg := p.Message.(type) {
	case *common.MessageHeartbeat:
		s.observeHeartbeat(msg)
	case *common.MessageGlobalPositionInt:
		s.observePosition(msg)
	case *common.MessageAttitude:
		s.observeAttitude(msg)
	case *common.MessageExtendedSysState:
		s.landed.Observe(msg.LandedState)
	case *common.MessagePing:
		s.replyPing(msg)
	}
}

// observeHeartbeat tracks the armed bit and notifies only on its edges.
func (s *Session) observeHeartbeat(hb *common.MessageHeartbeat) {
	armed := hb.BaseMode&common.MAV_MODE_FLAG_SAFETY_ARMED != 0

	s.mu.Lock()
	changed := !s.seenHB && armed || s.seenHB && armed != s.armed
	s.seenHB = true
	s.armed = armed
	s.mu.Unlock()

	if changed {
		s.log.Info("Armed state changed", "armed", armed)
		s.emit(Event{Key: s.key, Type: EventArmedChanged, Armed: armed})
	}
}

func (s *Session) observePosition(msg *common.MessageGlobalPositionInt) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.position = Position{
		Latitude:    float64(msg.Lat) / 1e7,
		Longitude:   float64(msg.Lon) / 1e7,
		AltitudeMSL: float64(msg.Alt) / 1e3,
		RelativeAlt: float64(msg.RelativeAlt) / 1e3,
		Heading:     float64(msg.Hdg) / 100,
		Valid:       true,
	}
}

func (s *Session) observeAttitude(msg *common.MessageAttitude) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attitude = Attitude{
		Roll:  float64(msg.Roll),
		Pitch: float64(msg.Pitch),
		Yaw:   float64(msg.Yaw),
		Valid: true,
	}
}

// replyPing answers an inbound ping asynchronously with the same sequence
// and timestamp, addressed back to the sender. Best effort.
func (s *Session) replyPing(ping *common.MessagePing) {
	// Pings addressed to a specific system are replies, not requests.
	if ping.TargetSystem != 0 {
		return
	}

	reply := &common.MessagePing{
		TimeUsec:        ping.TimeUsec,
		Seq:             ping.Seq,
		TargetSystem:    s.key.SystemID,
		TargetComponent: s.key.ComponentID,
	}

	go func() {
		if err := s.sender.Send(reply); err != nil {
			s.log.Warn("Ping reply failed", "err", err)
		}
	}()
}

// Last returns the most recently received message of the named type.
func (s *Session) Last(name string) (TimedMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tm, ok := s.lastByType[name]
	return tm, ok
}

// Snapshot returns the derived telemetry view for UI consumption.
func (s *Session) Snapshot() (Position, Attitude, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.position, s.attitude, s.armed
}

// LandedState returns the last observed landed-state phase.
func (s *Session) LandedState() string {
	return s.landed.Current()
}

// MessageNames lists the message types seen so far.
func (s *Session) MessageNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.lastByType))
	for name := range s.lastByType {
		names = append(names, name)
	}
	return names
}

// StartHeartbeat begins periodic keep-alive emission. Starting again
// replaces the previous timer; interval <= 0 is a no-op.
func (s *Session) StartHeartbeat(interval time.Duration) {
	if interval <= 0 {
		return
	}

	s.hbMu.Lock()
	defer s.hbMu.Unlock()

	if s.hbStop != nil {
		close(s.hbStop)
	}
	stop := make(chan struct{})
	s.hbStop = stop

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := s.sender.Send(s.buildHeartbeat()); err != nil {
					s.log.Warn("Heartbeat send failed", "err", err)
				}
			}
		}
	}()
}

// StopHeartbeat cancels the keep-alive timer. Safe to call when none runs.
func (s *Session) StopHeartbeat() {
	s.hbMu.Lock()
	defer s.hbMu.Unlock()

	if s.hbStop != nil {
		close(s.hbStop)
		s.hbStop = nil
	}
}

func (s *Session) buildHeartbeat() *common.MessageHeartbeat {
	return &common.MessageHeartbeat{
		Type:           common.MAV_TYPE_GCS,
		Autopilot:      common.MAV_AUTOPILOT_INVALID,
		SystemStatus:   common.MAV_STATE_ACTIVE,
		MavlinkVersion: 3,
	}
}

// Destroy cancels every timer owned by the session. The session object
// itself stays readable afterwards.
func (s *Session) Destroy() {
	s.StopHeartbeat()
}

func (s *Session) emit(evt Event) {
	if s.notify != nil {
		s.notify(evt)
	}
}
