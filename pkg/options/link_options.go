package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*LinkOptions)(nil)

// LinkOptions contains the MAVLink identity and timing defaults the GCS
// uses on every connection it opens.
type LinkOptions struct {
	// SystemID is the MAVLink system id this station sends with.
	// 255 is the conventional ground-station id.
	SystemID uint8 `json:"system-id" mapstructure:"system-id"`

	// ComponentID is the MAVLink component id this station sends with.
	ComponentID uint8 `json:"component-id" mapstructure:"component-id"`

	// HeartbeatInterval is the period of the per-vehicle keep-alive
	// emission. Zero disables automatic heartbeats.
	HeartbeatInterval time.Duration `json:"heartbeat-interval" mapstructure:"heartbeat-interval"`

	// CommandTimeout is the default deadline for simple commands.
	CommandTimeout time.Duration `json:"command-timeout" mapstructure:"command-timeout"`
}

// NewLinkOptions creates a LinkOptions object with default parameters.
func NewLinkOptions() *LinkOptions {
	return &LinkOptions{
		SystemID:          255,
		ComponentID:       190,
		HeartbeatInterval: time.Second,
		CommandTimeout:    5 * time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *LinkOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if o.SystemID == 0 {
		errors = append(errors, fmt.Errorf("link.system-id must be non-zero"))
	}
	if o.CommandTimeout <= 0 {
		errors = append(errors, fmt.Errorf("link.command-timeout must be positive"))
	}

	return errors
}

// AddFlags adds flags for LinkOptions to the specified FlagSet.
func (o *LinkOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.Uint8Var(&o.SystemID, "link.system-id", o.SystemID, "MAVLink system id of this ground station.")
	fs.Uint8Var(&o.ComponentID, "link.component-id", o.ComponentID, "MAVLink component id of this ground station.")
	fs.DurationVar(&o.HeartbeatInterval, "link.heartbeat-interval", o.HeartbeatInterval, "Period of the keep-alive heartbeat per vehicle (0 disables).")
	fs.DurationVar(&o.CommandTimeout, "link.command-timeout", o.CommandTimeout, "Default deadline for simple vehicle commands.")
}
