package vehicle

import (
	"github.com/groundlink-io/groundlink/internal/gcs/mav"
)

// EventType classifies vehicle notifications delivered to UI-facing
// listeners.
type EventType string

const (
	// EventDiscovered fires once when a new (system id, component id)
	// pair is first observed on the connection.
	EventDiscovered EventType = "vehicle.discovered"

	// EventArmedChanged fires on the rising or falling edge of the armed
	// bit in the heartbeat, never on every heartbeat.
	EventArmedChanged EventType = "vehicle.armed-changed"

	// EventLandedStateChanged fires when the reported landed state moves
	// to a different phase.
	EventLandedStateChanged EventType = "vehicle.landed-state-changed"
)

// Event is one vehicle notification.
type Event struct {
	Key    mav.VehicleKey `json:"vehicle"`
	Type   EventType      `json:"type"`
	Detail string         `json:"detail,omitempty"`
	Armed  bool           `json:"armed,omitempty"`
}

// EventListener receives vehicle notifications. Listeners must not block.
type EventListener func(evt Event)
