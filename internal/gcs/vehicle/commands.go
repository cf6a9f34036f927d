package vehicle

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"

	"github.com/groundlink-io/groundlink/internal/gcs/errdefs"
	"github.com/groundlink-io/groundlink/internal/gcs/mav"
	"github.com/groundlink-io/groundlink/internal/pkg/metrics"
)

const (
	// autotuneTimeout is long: the vehicle reports fractional progress and
	// a full tune takes a while.
	autotuneTimeout = 60 * time.Second

	// autotuneResendInterval re-issues the enable command while the tune
	// is running; acks for it are cumulative progress reports.
	autotuneResendInterval = time.Second

	// autotuneLandThreshold is the progress percentage at which the
	// vehicle is brought back down.
	autotuneLandThreshold = 95
)

// Arm requests motor arming.
func (s *Session) Arm(ctx context.Context) error {
	_, err := s.commandLong(ctx, common.MAV_CMD_COMPONENT_ARM_DISARM, s.cfg.CommandTimeout,
		"arm not acknowledged", 1, 0, 0, 0, 0, 0, 0)
	return err
}

// Disarm requests motor disarming.
func (s *Session) Disarm(ctx context.Context) error {
	_, err := s.commandLong(ctx, common.MAV_CMD_COMPONENT_ARM_DISARM, s.cfg.CommandTimeout,
		"disarm not acknowledged", 0, 0, 0, 0, 0, 0, 0)
	return err
}

// Takeoff commands a climb to the given relative altitude in meters.
func (s *Session) Takeoff(ctx context.Context, altitude float64) error {
	if err := validateAltitude(altitude); err != nil {
		return err
	}
	_, err := s.commandLong(ctx, common.MAV_CMD_NAV_TAKEOFF, s.cfg.CommandTimeout,
		"takeoff not acknowledged", 0, 0, 0, float32(math.NaN()), float32(math.NaN()), float32(math.NaN()), float32(altitude))
	return err
}

// Land commands a landing at the current position.
func (s *Session) Land(ctx context.Context) error {
	_, err := s.commandLong(ctx, common.MAV_CMD_NAV_LAND, s.cfg.CommandTimeout,
		"land not acknowledged", 0, 0, 0, float32(math.NaN()), float32(math.NaN()), float32(math.NaN()), float32(math.NaN()))
	return err
}

// Reposition flies the vehicle to the given coordinates.
func (s *Session) Reposition(ctx context.Context, latitude, longitude, altitude float64) error {
	if err := validateCoordinates(latitude, longitude, altitude); err != nil {
		return err
	}

	msg := &common.MessageCommandInt{
		TargetSystem:    s.key.SystemID,
		TargetComponent: s.key.ComponentID,
		Frame:           common.MAV_FRAME_GLOBAL_RELATIVE_ALT,
		Command:         common.MAV_CMD_DO_REPOSITION,
		Param1:          -1, // default ground speed
		Param4:          float32(math.NaN()),
		X:               int32(latitude * 1e7),
		Y:               int32(longitude * 1e7),
		Z:               float32(altitude),
	}

	_, err := s.commandMsg(ctx, common.MAV_CMD_DO_REPOSITION, msg, s.cfg.CommandTimeout, "reposition not acknowledged")
	return err
}

// Orbit circles the vehicle around the given center point.
func (s *Session) Orbit(ctx context.Context, latitude, longitude, altitude, radius, velocity float64) error {
	if err := validateCoordinates(latitude, longitude, altitude); err != nil {
		return err
	}
	if !isFinite(radius) || radius <= 0 {
		return &errdefs.InvalidArgumentError{Field: "radius", Detail: "must be finite and positive"}
	}

	msg := &common.MessageCommandInt{
		TargetSystem:    s.key.SystemID,
		TargetComponent: s.key.ComponentID,
		Frame:           common.MAV_FRAME_GLOBAL_RELATIVE_ALT,
		Command:         common.MAV_CMD_DO_ORBIT,
		Param1:          float32(radius),
		Param2:          float32(velocity),
		X:               int32(latitude * 1e7),
		Y:               int32(longitude * 1e7),
		Z:               float32(altitude),
	}

	_, err := s.commandMsg(ctx, common.MAV_CMD_DO_ORBIT, msg, s.cfg.CommandTimeout, "orbit not acknowledged")
	return err
}

// Autotune starts an attitude autotune and waits for it to finish. The
// enable command is re-sent every second while the tune runs; the acks
// report fractional progress, and the vehicle is commanded to land once
// progress crosses the threshold.
func (s *Session) Autotune(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := common.MAV_CMD_DO_AUTOTUNE_ENABLE
	build := func() message.Message {
		return &common.MessageCommandLong{
			TargetSystem:    s.key.SystemID,
			TargetComponent: s.key.ComponentID,
			Command:         cmd,
			Param1:          1,
		}
	}

	send := func() error { return s.sender.Send(build()) }

	// Resend loop scoped to this await; the deferred cancel tears it down
	// on every exit path.
	go func() {
		ticker := time.NewTicker(autotuneResendInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := send(); err != nil {
					s.log.Warn("Autotune resend failed", "err", err)
				}
			}
		}
	}()

	var landOnce sync.Once
	matcher := func(msg message.Message) bool {
		ack, ok := msg.(*common.MessageCommandAck)
		if !ok || ack.Command != cmd {
			return false
		}
		switch ack.Result {
		case common.MAV_RESULT_ACCEPTED:
			return true
		case common.MAV_RESULT_IN_PROGRESS:
			if ack.Progress >= autotuneLandThreshold {
				landOnce.Do(func() {
					s.log.Info("Autotune nearly complete, commanding landing", "progress", ack.Progress)
					go func() {
						if err := s.Land(context.Background()); err != nil {
							s.log.Warn("Post-autotune landing failed", "err", err)
						}
					}()
				})
			}
			return ack.Progress >= 100
		default:
			return false
		}
	}

	start := time.Now()
	_, err := s.corr.SendAndExpect(ctx, send, matcher, s.denier(cmd), autotuneTimeout, "autotune did not complete")
	s.recordCommand(cmd, start, err)
	return err
}

// SendManualControl forwards a manual-control sample. Fire and forget.
func (s *Session) SendManualControl(x, y, z, r int16, buttons uint16) error {
	return s.sender.Send(&common.MessageManualControl{
		Target:  s.key.SystemID,
		X:       x,
		Y:       y,
		Z:       z,
		R:       r,
		Buttons: buttons,
	})
}

// commandLong issues a COMMAND_LONG and awaits its ack.
func (s *Session) commandLong(
	ctx context.Context,
	cmd common.MAV_CMD,
	timeout time.Duration,
	timeoutMessage string,
	p1, p2, p3, p4, p5, p6, p7 float32,
) (*common.MessageCommandAck, error) {
	msg := &common.MessageCommandLong{
		TargetSystem:    s.key.SystemID,
		TargetComponent: s.key.ComponentID,
		Command:         cmd,
		Param1:          p1,
		Param2:          p2,
		Param3:          p3,
		Param4:          p4,
		Param5:          p5,
		Param6:          p6,
		Param7:          p7,
	}
	return s.commandMsg(ctx, cmd, msg, timeout, timeoutMessage)
}

// commandMsg runs the generic send-and-await-ack exchange for one command.
func (s *Session) commandMsg(
	ctx context.Context,
	cmd common.MAV_CMD,
	msg message.Message,
	timeout time.Duration,
	timeoutMessage string,
) (*common.MessageCommandAck, error) {
	start := time.Now()

	reply, err := s.corr.SendAndExpect(
		ctx,
		func() error { return s.sender.Send(msg) },
		s.matcher(cmd),
		s.denier(cmd),
		timeout,
		timeoutMessage,
	)
	s.recordCommand(cmd, start, err)
	if err != nil {
		return nil, err
	}
	return reply.(*common.MessageCommandAck), nil
}

// matcher accepts the ack for cmd when the result is accepted or reports
// progress.
func (s *Session) matcher(cmd common.MAV_CMD) func(message.Message) bool {
	return func(msg message.Message) bool {
		ack, ok := msg.(*common.MessageCommandAck)
		if !ok || ack.Command != cmd {
			return false
		}
		return ack.Result == common.MAV_RESULT_ACCEPTED || ack.Result == common.MAV_RESULT_IN_PROGRESS
	}
}

// denier rejects the exchange when the ack for cmd carries a definitive
// failure code.
func (s *Session) denier(cmd common.MAV_CMD) func(message.Message) (bool, error) {
	return func(msg message.Message) (bool, error) {
		ack, ok := msg.(*common.MessageCommandAck)
		if !ok || ack.Command != cmd {
			return false, nil
		}

		switch ack.Result {
		case common.MAV_RESULT_DENIED,
			common.MAV_RESULT_FAILED,
			common.MAV_RESULT_UNSUPPORTED,
			common.MAV_RESULT_TEMPORARILY_REJECTED,
			common.MAV_RESULT_COMMAND_LONG_ONLY,
			common.MAV_RESULT_COMMAND_INT_ONLY:
			name := mav.CommandName(cmd)
			result := mav.ResultName(ack.Result)
			return true, &errdefs.CommandDeniedError{
				Command: name,
				Result:  result,
				Reason:  fmt.Sprintf("command %s rejected by vehicle %s: %s", name, s.key, result),
			}
		default:
			return false, nil
		}
	}
}

func (s *Session) recordCommand(cmd common.MAV_CMD, start time.Time, err error) {
	name := mav.CommandName(cmd)

	status := "accepted"
	switch {
	case errdefs.IsDenied(err):
		status = "denied"
	case errdefs.IsTimeout(err):
		status = "timeout"
	case err != nil:
		status = "error"
	}

	metrics.CommandsTotal.WithLabelValues(name, status).Inc()
	if err == nil || errdefs.IsDenied(err) {
		metrics.CommandLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
}

// validateCoordinates rejects non-finite values and coordinates outside
// the positive-hemisphere encoding the command path uses, before anything
// touches the wire.
func validateCoordinates(latitude, longitude, altitude float64) error {
	if !isFinite(latitude) || latitude <= 0 || latitude > 90 {
		return &errdefs.InvalidArgumentError{Field: "latitude", Detail: "must be finite and in (0, 90]"}
	}
	if !isFinite(longitude) || longitude <= 0 || longitude > 180 {
		return &errdefs.InvalidArgumentError{Field: "longitude", Detail: "must be finite and in (0, 180]"}
	}
	return validateAltitude(altitude)
}

func validateAltitude(altitude float64) error {
	if !isFinite(altitude) || altitude <= 0 {
		return &errdefs.InvalidArgumentError{Field: "altitude", Detail: "must be finite and positive"}
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
