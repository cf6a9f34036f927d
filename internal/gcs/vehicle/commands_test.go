package vehicle

import (
	"context"
	"errors"
	"testing"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"

	"github.com/groundlink-io/groundlink/internal/gcs/correlator"
	"github.com/groundlink-io/groundlink/internal/gcs/errdefs"
)

func waitPending(t *testing.T, corr *correlator.Correlator, n int) {
	t.Helper()
	waitFor(t, "pending expectation", func() bool { return corr.PendingCount() == n })
}

func ack(cmd common.MAV_CMD, result common.MAV_RESULT) *common.MessageCommandAck {
	return &common.MessageCommandAck{Command: cmd, Result: result}
}

func TestArmAccepted(t *testing.T) {
	sender := &fakeSender{}
	s, corr := newTestSession(t, sender, nil)

	errc := make(chan error, 1)
	go func() { errc <- s.Arm(context.Background()) }()

	waitPending(t, corr, 1)

	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("sent %d messages, want 1", len(msgs))
	}
	cl, ok := msgs[0].(*common.MessageCommandLong)
	if !ok {
		t.Fatalf("sent %T, want *MessageCommandLong", msgs[0])
	}
	if cl.Command != common.MAV_CMD_COMPONENT_ARM_DISARM || cl.Param1 != 1 {
		t.Errorf("sent command=%v param1=%v", cl.Command, cl.Param1)
	}
	if cl.TargetSystem != 1 || cl.TargetComponent != 1 {
		t.Errorf("target = %d/%d, want 1/1", cl.TargetSystem, cl.TargetComponent)
	}

	corr.Offer(ack(common.MAV_CMD_COMPONENT_ARM_DISARM, common.MAV_RESULT_ACCEPTED))

	if err := <-errc; err != nil {
		t.Fatalf("Arm() = %v", err)
	}
}

func TestTakeoffDenied(t *testing.T) {
	s, corr := newTestSession(t, &fakeSender{}, nil)

	errc := make(chan error, 1)
	go func() { errc <- s.Takeoff(context.Background(), 25) }()

	waitPending(t, corr, 1)
	corr.Offer(ack(common.MAV_CMD_NAV_TAKEOFF, common.MAV_RESULT_DENIED))

	err := <-errc
	if !errdefs.IsDenied(err) {
		t.Fatalf("Takeoff() = %v, want denial", err)
	}
	var denied *errdefs.CommandDeniedError
	if !errors.As(err, &denied) || denied.Result != "MAV_RESULT_DENIED" {
		t.Errorf("denial detail = %+v", denied)
	}
}

func TestCommandIgnoresForeignAck(t *testing.T) {
	s, corr := newTestSession(t, &fakeSender{}, nil)

	errc := make(chan error, 1)
	go func() { errc <- s.Land(context.Background()) }()

	waitPending(t, corr, 1)

	// An ack for a different command must neither settle nor deny.
	corr.Offer(ack(common.MAV_CMD_NAV_TAKEOFF, common.MAV_RESULT_DENIED))
	if corr.PendingCount() != 1 {
		t.Fatal("foreign ack settled the expectation")
	}

	corr.Offer(ack(common.MAV_CMD_NAV_LAND, common.MAV_RESULT_ACCEPTED))
	if err := <-errc; err != nil {
		t.Fatalf("Land() = %v", err)
	}
}

func TestCommandTimeout(t *testing.T) {
	s, _ := newTestSession(t, &fakeSender{}, nil)

	err := s.Disarm(context.Background())
	if !errdefs.IsTimeout(err) {
		t.Fatalf("Disarm() with no ack = %v, want timeout", err)
	}
}

func TestRepositionEncoding(t *testing.T) {
	sender := &fakeSender{}
	s, corr := newTestSession(t, sender, nil)

	errc := make(chan error, 1)
	go func() { errc <- s.Reposition(context.Background(), 47.3977421, 8.5455940, 20) }()

	waitPending(t, corr, 1)

	ci, ok := sender.messages()[0].(*common.MessageCommandInt)
	if !ok {
		t.Fatalf("sent %T, want *MessageCommandInt", sender.messages()[0])
	}
	if ci.Command != common.MAV_CMD_DO_REPOSITION {
		t.Errorf("command = %v", ci.Command)
	}
	if ci.X != 473977421 || ci.Y != 85455940 {
		t.Errorf("scaled coordinates = %d, %d", ci.X, ci.Y)
	}
	if ci.Z != 20 {
		t.Errorf("altitude = %v, want 20", ci.Z)
	}

	corr.Offer(ack(common.MAV_CMD_DO_REPOSITION, common.MAV_RESULT_ACCEPTED))
	if err := <-errc; err != nil {
		t.Fatalf("Reposition() = %v", err)
	}
}

func TestCommandArgumentValidation(t *testing.T) {
	sender := &fakeSender{}
	s, corr := newTestSession(t, sender, nil)

	tests := []struct {
		name string
		call func() error
	}{
		{"reposition negative latitude", func() error {
			return s.Reposition(context.Background(), -1, 8.5, 20)
		}},
		{"reposition zero longitude", func() error {
			return s.Reposition(context.Background(), 47.4, 0, 20)
		}},
		{"takeoff zero altitude", func() error {
			return s.Takeoff(context.Background(), 0)
		}},
		{"orbit negative radius", func() error {
			return s.Orbit(context.Background(), 47.4, 8.5, 20, -5, 2)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errdefs.IsInvalidArgument(err) {
				t.Fatalf("got %v, want invalid-argument", err)
			}
		})
	}

	// Rejected calls must never reach the wire or leave state behind.
	if n := len(sender.messages()); n != 0 {
		t.Errorf("%d messages sent for rejected arguments", n)
	}
	if corr.PendingCount() != 0 {
		t.Error("rejected call left a pending expectation")
	}
}

func TestAutotuneProgressAndLanding(t *testing.T) {
	sender := &fakeSender{}
	s, corr := newTestSession(t, sender, nil)

	errc := make(chan error, 1)
	go func() { errc <- s.Autotune(context.Background()) }()

	waitPending(t, corr, 1)

	progress := func(p uint8) *common.MessageCommandAck {
		return &common.MessageCommandAck{
			Command:  common.MAV_CMD_DO_AUTOTUNE_ENABLE,
			Result:   common.MAV_RESULT_IN_PROGRESS,
			Progress: p,
		}
	}

	corr.Offer(progress(50))
	if corr.PendingCount() != 1 {
		t.Fatal("mid-tune progress settled the expectation")
	}

	// Crossing the threshold triggers exactly one land command.
	corr.Offer(progress(96))
	waitFor(t, "land command", func() bool {
		for _, m := range sender.messages() {
			if cl, ok := m.(*common.MessageCommandLong); ok && cl.Command == common.MAV_CMD_NAV_LAND {
				return true
			}
		}
		return false
	})
	corr.Offer(ack(common.MAV_CMD_NAV_LAND, common.MAV_RESULT_ACCEPTED))

	corr.Offer(progress(97))
	corr.Offer(progress(100))

	if err := <-errc; err != nil {
		t.Fatalf("Autotune() = %v", err)
	}

	lands := 0
	for _, m := range sender.messages() {
		if cl, ok := m.(*common.MessageCommandLong); ok && cl.Command == common.MAV_CMD_NAV_LAND {
			lands++
		}
	}
	if lands != 1 {
		t.Errorf("sent %d land commands, want 1", lands)
	}
}

func TestManualControlForwarding(t *testing.T) {
	sender := &fakeSender{}
	s, _ := newTestSession(t, sender, nil)

	if err := s.SendManualControl(100, -100, 500, 0, 3); err != nil {
		t.Fatal(err)
	}

	mc, ok := sender.messages()[0].(*common.MessageManualControl)
	if !ok {
		t.Fatalf("sent %T", sender.messages()[0])
	}
	if mc.Target != 1 || mc.X != 100 || mc.Buttons != 3 {
		t.Errorf("manual control fields = %+v", mc)
	}
}
