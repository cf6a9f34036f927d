// Package transport abstracts the physical channel to a vehicle (serial
// port, TCP socket or UDP socket) into a uniform byte-level ReadWriteCloser.
//
// Framing and decoding happen one layer up; a Transport only moves bytes and
// owns the underlying OS handle.
package transport

import (
	"context"
	"fmt"
	"io"

	"github.com/groundlink-io/groundlink/internal/gcs/errdefs"
)

// Transport is one open channel to the vehicle side.
type Transport interface {
	io.ReadWriteCloser

	// Kind returns "serial", "tcp" or "udp".
	Kind() string

	// Endpoint returns a human-readable description of the channel.
	Endpoint() string
}

// SerialOptions selects a serial device.
type SerialOptions struct {
	Path     string `json:"path" mapstructure:"path"`
	BaudRate int    `json:"baudRate" mapstructure:"baud-rate"`
}

// TCPOptions selects a TCP endpoint to dial.
type TCPOptions struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
}

// UDPOptions selects a local UDP socket. UDP is connectionless: "connect"
// binds the socket and starts passive peer discovery.
type UDPOptions struct {
	// Family is "udp4" or "udp6".
	Family string `json:"family" mapstructure:"family"`

	// SourceIP is the local address to bind. Empty means autodetect (see
	// AutoBindInterface) or wildcard.
	SourceIP   string `json:"sourceIp,omitempty" mapstructure:"source-ip"`
	SourcePort int    `json:"sourcePort" mapstructure:"source-port"`

	// TargetIP, when set, fixes the outbound destination instead of
	// fanning out to discovered peers. TargetPort alone does not.
	TargetIP   string `json:"targetIp,omitempty" mapstructure:"target-ip"`
	TargetPort int    `json:"targetPort,omitempty" mapstructure:"target-port"`

	// AutoBindInterface binds to the first non-loopback interface address
	// matching Family when SourceIP is empty.
	AutoBindInterface bool `json:"autoBindInterface,omitempty" mapstructure:"auto-bind-interface"`
}

// Options is a tagged union: exactly one member must be set. It is treated
// as immutable once a connection attempt starts.
type Options struct {
	Serial *SerialOptions `json:"serial,omitempty" mapstructure:"serial"`
	TCP    *TCPOptions    `json:"tcp,omitempty" mapstructure:"tcp"`
	UDP    *UDPOptions    `json:"udp,omitempty" mapstructure:"udp"`
}

// Validate checks that exactly one transport is selected and that its
// parameters are usable.
func (o *Options) Validate() error {
	if o == nil {
		return &errdefs.InvalidArgumentError{Field: "connection options", Detail: "missing"}
	}

	set := 0
	if o.Serial != nil {
		set++
		if o.Serial.Path == "" {
			return &errdefs.InvalidArgumentError{Field: "serial.path", Detail: "must not be empty"}
		}
		if o.Serial.BaudRate <= 0 {
			return &errdefs.InvalidArgumentError{Field: "serial.baudRate", Detail: "must be positive"}
		}
	}
	if o.TCP != nil {
		set++
		if o.TCP.Host == "" {
			return &errdefs.InvalidArgumentError{Field: "tcp.host", Detail: "must not be empty"}
		}
		if o.TCP.Port <= 0 || o.TCP.Port > 65535 {
			return &errdefs.InvalidArgumentError{Field: "tcp.port", Detail: "out of range"}
		}
	}
	if o.UDP != nil {
		set++
		if o.UDP.Family != "udp4" && o.UDP.Family != "udp6" {
			return &errdefs.InvalidArgumentError{Field: "udp.family", Detail: `must be "udp4" or "udp6"`}
		}
		if o.UDP.SourcePort <= 0 || o.UDP.SourcePort > 65535 {
			return &errdefs.InvalidArgumentError{Field: "udp.sourcePort", Detail: "out of range"}
		}
		if o.UDP.TargetIP != "" && (o.UDP.TargetPort <= 0 || o.UDP.TargetPort > 65535) {
			return &errdefs.InvalidArgumentError{Field: "udp.targetPort", Detail: "required with targetIp"}
		}
	}

	if set != 1 {
		return &errdefs.InvalidArgumentError{
			Field:  "connection options",
			Detail: fmt.Sprintf("exactly one of serial, tcp, udp must be set, got %d", set),
		}
	}
	return nil
}

// Endpoint describes the selected channel for logs and error messages.
func (o *Options) Endpoint() string {
	switch {
	case o == nil:
		return "<none>"
	case o.Serial != nil:
		return fmt.Sprintf("serial:%s@%d", o.Serial.Path, o.Serial.BaudRate)
	case o.TCP != nil:
		return fmt.Sprintf("tcp:%s:%d", o.TCP.Host, o.TCP.Port)
	case o.UDP != nil:
		return fmt.Sprintf("%s:%s:%d", o.UDP.Family, o.UDP.SourceIP, o.UDP.SourcePort)
	default:
		return "<none>"
	}
}

// Open establishes the channel described by opts. Failures come back as
// *errdefs.ConnectionError; nothing is thrown past the call boundary.
func Open(ctx context.Context, opts *Options) (Transport, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	switch {
	case opts.Serial != nil:
		return openSerial(opts.Serial)
	case opts.TCP != nil:
		return openTCP(ctx, opts.TCP)
	default:
		return openUDP(opts.UDP)
	}
}
