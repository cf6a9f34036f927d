package vehicle

import (
	"sync"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"

	fsmutil "github.com/groundlink-io/groundlink/internal/pkg/util/fsm"
)

// Position is the derived 3D position view computed from the latest
// position telemetry. Angles are degrees, altitudes meters.
type Position struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	AltitudeMSL float64 `json:"altitudeMsl"`
	RelativeAlt float64 `json:"relativeAlt"`
	Heading     float64 `json:"heading"`
	Valid       bool    `json:"valid"`
}

// Attitude is the derived orientation view, radians.
type Attitude struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Valid bool    `json:"valid"`
}

// Landed-state phases as reported through EXTENDED_SYS_STATE.
const (
	landedUndefined = "undefined"
	landedOnGround  = "on-ground"
	landedTakeoff   = "taking-off"
	landedInAir     = "in-air"
	landedLanding   = "landing"
)

// landedTracker turns the raw landed-state samples into edge-triggered
// transition notifications.
type landedTracker struct {
	mu  sync.Mutex
	obs *fsmutil.Observer
}

func newLandedTracker(notify func(from, to string)) *landedTracker {
	states := []string{landedOnGround, landedTakeoff, landedInAir, landedLanding}

	// Leaving "undefined" just means the first sample arrived, not a real
	// phase change, so that edge stays silent.
	return &landedTracker{
		obs: fsmutil.NewObserver(landedUndefined, states, func(from, to string) {
			if notify != nil && from != landedUndefined {
				notify(from, to)
			}
		}),
	}
}

// Observe feeds one landed-state sample. Repeats of the current phase and
// undefined samples are ignored; "undefined" is the pre-telemetry starting
// point, not a phase a vehicle moves back into.
func (t *landedTracker) Observe(ls common.MAV_LANDED_STATE) {
	state := landedStateName(ls)
	if state == landedUndefined {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.obs.Observe(state)
}

// Current returns the last observed phase.
func (t *landedTracker) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.obs.Current()
}

func landedStateName(ls common.MAV_LANDED_STATE) string {
	switch ls {
	case common.MAV_LANDED_STATE_ON_GROUND:
		return landedOnGround
	case common.MAV_LANDED_STATE_TAKEOFF:
		return landedTakeoff
	case common.MAV_LANDED_STATE_IN_AIR:
		return landedInAir
	case common.MAV_LANDED_STATE_LANDING:
		return landedLanding
	default:
		return landedUndefined
	}
}
