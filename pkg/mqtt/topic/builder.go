// Package topic centralizes the MQTT topic topology of the telemetry bridge.
package topic

import (
	"fmt"
)

// Topic segments used by the bridge. Changing these breaks any consumer
// already subscribed to the old layout.
const (
	// SuffixTelemetry carries decoded telemetry frames, one subtopic per
	// vehicle. Pattern: {root}/telemetry/{vehicle}
	SuffixTelemetry = "telemetry"

	// SuffixVehicleOnline announces newly discovered vehicles.
	// Pattern: {root}/vehicle/online
	SuffixVehicleOnline = "vehicle/online"

	// SuffixCommand is the downstream topic on which remote consumers can
	// inject commands for a vehicle. Pattern: {root}/command/{vehicle}
	SuffixCommand = "command"
)

// Builder constructs the bridge's MQTT topic strings under a fixed root
// namespace (e.g. "glink/v1").
type Builder struct {
	root string
}

// NewBuilder creates a Builder with the specified root namespace.
func NewBuilder(root string) *Builder {
	return &Builder{root: root}
}

// Telemetry returns the telemetry topic for one vehicle.
func (b *Builder) Telemetry(vehicle string) string {
	return b.build(SuffixTelemetry, vehicle)
}

// VehicleOnline returns the vehicle discovery announcement topic.
func (b *Builder) VehicleOnline() string {
	return fmt.Sprintf("%s/%s", b.root, SuffixVehicleOnline)
}

// Command returns the command injection topic for one vehicle.
func (b *Builder) Command(vehicle string) string {
	return b.build(SuffixCommand, vehicle)
}

// CommandWildcard returns the filter matching command topics of all vehicles.
func (b *Builder) CommandWildcard() string {
	return b.build(SuffixCommand, "+")
}

func (b *Builder) build(suffix, id string) string {
	return fmt.Sprintf("%s/%s/%s", b.root, suffix, id)
}
