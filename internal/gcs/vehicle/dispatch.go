package vehicle

import (
	"context"

	"github.com/spf13/cast"

	"github.com/groundlink-io/groundlink/internal/gcs/errdefs"
)

// RunCommand invokes the named high-level command with loosely typed
// parameters, as delivered by the gateway and the MQTT bridge.
func RunCommand(ctx context.Context, s *Session, name string, params map[string]any) error {
	num := func(key string) float64 { return cast.ToFloat64(params[key]) }

	switch name {
	case "arm":
		return s.Arm(ctx)
	case "disarm":
		return s.Disarm(ctx)
	case "takeoff":
		return s.Takeoff(ctx, num("altitude"))
	case "land":
		return s.Land(ctx)
	case "reposition":
		return s.Reposition(ctx, num("latitude"), num("longitude"), num("altitude"))
	case "orbit":
		return s.Orbit(ctx, num("latitude"), num("longitude"), num("altitude"),
			num("radius"), num("velocity"))
	case "autotune":
		return s.Autotune(ctx)
	case "manual-control":
		return s.SendManualControl(
			int16(cast.ToInt(params["x"])), int16(cast.ToInt(params["y"])),
			int16(cast.ToInt(params["z"])), int16(cast.ToInt(params["r"])),
			uint16(cast.ToInt(params["buttons"])))
	default:
		return &errdefs.InvalidArgumentError{Field: "command", Detail: "unknown command " + name}
	}
}
