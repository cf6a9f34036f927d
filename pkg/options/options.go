// Package options provides reusable option groups for GroundLink binaries.
package options

import (
	"fmt"
	"net"

	"github.com/spf13/pflag"
)

// IOptions defines the methods an option group must implement so it can be
// composed into a binary's command-line surface.
type IOptions interface {
	// Validate checks the option values entered by the user.
	Validate() []error

	// AddFlags adds the group's flags to the given flag set.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// ValidateAddress checks whether addr is a valid "host:port" string.
func ValidateAddress(addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%q is not a valid address: %w", addr, err)
	}
	return nil
}
