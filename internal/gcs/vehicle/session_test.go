package vehicle

import (
	"sync"
	"testing"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"

	"github.com/groundlink-io/groundlink/internal/gcs/correlator"
	"github.com/groundlink-io/groundlink/internal/gcs/mav"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []message.Message
	err  error
}

func (f *fakeSender) Send(msg message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) messages() []message.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]message.Message, len(f.sent))
	copy(out, f.sent)
	return out
}

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) listen(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *eventRecorder) ofType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func testConfig() Config {
	return Config{
		SystemID:       255,
		ComponentID:    190,
		CommandTimeout: 100 * time.Millisecond,
	}
}

func newTestSession(t *testing.T, sender Sender, notify EventListener) (*Session, *correlator.Correlator) {
	t.Helper()
	corr := correlator.New()
	t.Cleanup(corr.Close)
	key := mav.VehicleKey{SystemID: 1, ComponentID: 1}
	return newSession(key, sender, corr, testConfig(), notify), corr
}

func packetFor(sys, comp byte, msg message.Message) *mav.Packet {
	return &mav.Packet{
		Header: mav.Header{
			MsgID:       msg.GetID(),
			SystemID:    sys,
			ComponentID: comp,
		},
		Version:    2,
		Message:    msg,
		ReceivedAt: time.Now(),
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSessionLastMessageWins(t *testing.T) {
	s, _ := newTestSession(t, &fakeSender{}, nil)

	first := &common.MessageHeartbeat{Type: common.MAV_TYPE_QUADROTOR}
	second := &common.MessageHeartbeat{Type: common.MAV_TYPE_FIXED_WING}

	s.HandleMessage(packetFor(1, 1, first))
	s.HandleMessage(packetFor(1, 1, second))

	tm, ok := s.Last("HEARTBEAT")
	if !ok {
		t.Fatal("no HEARTBEAT recorded")
	}
	if tm.Message != second {
		t.Error("older heartbeat retained over the newer one")
	}
	if names := s.MessageNames(); len(names) != 1 {
		t.Errorf("MessageNames() = %v, want one entry", names)
	}
}

func TestSessionArmedEdgeDetection(t *testing.T) {
	rec := &eventRecorder{}
	s, _ := newTestSession(t, &fakeSender{}, rec.listen)

	hb := func(armed bool) *common.MessageHeartbeat {
		m := &common.MessageHeartbeat{Type: common.MAV_TYPE_QUADROTOR}
		if armed {
			m.BaseMode = common.MAV_MODE_FLAG_SAFETY_ARMED
		}
		return m
	}

	for _, armed := range []bool{false, false, true} {
		s.HandleMessage(packetFor(1, 1, hb(armed)))
	}

	got := rec.ofType(EventArmedChanged)
	if len(got) != 1 {
		t.Fatalf("got %d armed-changed events, want exactly 1", len(got))
	}
	if !got[0].Armed {
		t.Error("armed-changed event should report armed=true")
	}

	// Falling edge fires again, repeats still do not.
	for _, armed := range []bool{true, false, false} {
		s.HandleMessage(packetFor(1, 1, hb(armed)))
	}
	got = rec.ofType(EventArmedChanged)
	if len(got) != 2 {
		t.Fatalf("got %d armed-changed events after disarm, want 2", len(got))
	}
	if got[1].Armed {
		t.Error("second event should report armed=false")
	}
}

func TestSessionLandedStateTransitions(t *testing.T) {
	rec := &eventRecorder{}
	s, _ := newTestSession(t, &fakeSender{}, rec.listen)

	observe := func(ls common.MAV_LANDED_STATE) {
		s.HandleMessage(packetFor(1, 1, &common.MessageExtendedSysState{LandedState: ls}))
	}

	observe(common.MAV_LANDED_STATE_ON_GROUND)
	observe(common.MAV_LANDED_STATE_ON_GROUND) // repeat, no event
	observe(common.MAV_LANDED_STATE_TAKEOFF)
	observe(common.MAV_LANDED_STATE_IN_AIR)

	got := rec.ofType(EventLandedStateChanged)
	// The first sample moves out of "undefined" silently.
	if len(got) != 2 {
		t.Fatalf("got %d landed-state events, want 2", len(got))
	}
	if got[0].Detail != landedTakeoff || got[1].Detail != landedInAir {
		t.Errorf("transition details = %q, %q", got[0].Detail, got[1].Detail)
	}
	if s.LandedState() != landedInAir {
		t.Errorf("LandedState() = %q, want %q", s.LandedState(), landedInAir)
	}
}

func TestSessionTelemetrySnapshot(t *testing.T) {
	s, _ := newTestSession(t, &fakeSender{}, nil)

	s.HandleMessage(packetFor(1, 1, &common.MessageGlobalPositionInt{
		Lat:         473977421,
		Lon:         85455940,
		Alt:         488000,
		RelativeAlt: 10000,
		Hdg:         9000,
	}))
	s.HandleMessage(packetFor(1, 1, &common.MessageAttitude{Roll: 0.1, Pitch: -0.2, Yaw: 1.5}))

	pos, att, _ := s.Snapshot()
	if !pos.Valid || !att.Valid {
		t.Fatal("derived views not marked valid")
	}
	if pos.Latitude < 47.39 || pos.Latitude > 47.40 {
		t.Errorf("latitude = %v", pos.Latitude)
	}
	if pos.RelativeAlt != 10 {
		t.Errorf("relative altitude = %v, want 10", pos.RelativeAlt)
	}
	if pos.Heading != 90 {
		t.Errorf("heading = %v, want 90", pos.Heading)
	}
	if att.Pitch != float64(float32(-0.2)) {
		t.Errorf("pitch = %v", att.Pitch)
	}
}

func TestSessionPingAutoReply(t *testing.T) {
	sender := &fakeSender{}
	s, _ := newTestSession(t, sender, nil)

	s.HandleMessage(packetFor(1, 1, &common.MessagePing{TimeUsec: 42, Seq: 7}))

	waitFor(t, "ping reply", func() bool { return len(sender.messages()) == 1 })

	reply, ok := sender.messages()[0].(*common.MessagePing)
	if !ok {
		t.Fatalf("reply is %T, want *MessagePing", sender.messages()[0])
	}
	if reply.Seq != 7 || reply.TimeUsec != 42 {
		t.Errorf("reply carries seq=%d ts=%d", reply.Seq, reply.TimeUsec)
	}
	if reply.TargetSystem != 1 {
		t.Errorf("reply target system = %d, want 1", reply.TargetSystem)
	}

	// A ping already addressed to someone is a reply itself; do not answer.
	s.HandleMessage(packetFor(1, 1, &common.MessagePing{Seq: 8, TargetSystem: 255}))
	time.Sleep(20 * time.Millisecond)
	if n := len(sender.messages()); n != 1 {
		t.Errorf("sent %d messages, want still 1", n)
	}
}

func TestSessionHeartbeatTimer(t *testing.T) {
	sender := &fakeSender{}
	s, _ := newTestSession(t, sender, nil)

	s.StartHeartbeat(5 * time.Millisecond)
	waitFor(t, "outbound heartbeats", func() bool { return len(sender.messages()) >= 2 })
	s.StopHeartbeat()

	hb, ok := sender.messages()[0].(*common.MessageHeartbeat)
	if !ok {
		t.Fatalf("first outbound message is %T", sender.messages()[0])
	}
	if hb.Type != common.MAV_TYPE_GCS {
		t.Errorf("heartbeat type = %v, want GCS", hb.Type)
	}

	n := len(sender.messages())
	time.Sleep(30 * time.Millisecond)
	if len(sender.messages()) != n {
		t.Error("heartbeats kept flowing after StopHeartbeat")
	}

	// Stopping twice must not panic.
	s.StopHeartbeat()
}

func TestSessionLandedStateIgnoresUndefined(t *testing.T) {
	rec := &eventRecorder{}
	s, _ := newTestSession(t, &fakeSender{}, rec.listen)

	observe := func(ls common.MAV_LANDED_STATE) {
		s.HandleMessage(packetFor(1, 1, &common.MessageExtendedSysState{LandedState: ls}))
	}

	observe(common.MAV_LANDED_STATE_IN_AIR)    // first sample, silent
	observe(common.MAV_LANDED_STATE_UNDEFINED) // telemetry dropout, not a phase
	observe(common.MAV_LANDED_STATE_IN_AIR)    // unchanged, still silent
	observe(common.MAV_LANDED_STATE_ON_GROUND)

	got := rec.ofType(EventLandedStateChanged)
	if len(got) != 1 {
		t.Fatalf("got %d landed-state events, want 1", len(got))
	}
	if got[0].Detail != landedOnGround {
		t.Errorf("transition detail = %q, want %q", got[0].Detail, landedOnGround)
	}
	if s.LandedState() != landedOnGround {
		t.Errorf("LandedState() = %q, want %q", s.LandedState(), landedOnGround)
	}
}
