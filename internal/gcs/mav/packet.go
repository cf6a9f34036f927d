// Package mav holds the decoded-packet model shared by the link, vehicle
// and gateway layers.
package mav

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/frame"
	"github.com/bluenviron/gomavlib/v3/pkg/message"

	"github.com/groundlink-io/groundlink/internal/gcs/errdefs"
)

// Header identifies a packet's message type and its sender. It is available
// even when the payload could not be fully decoded, so vehicle tracking
// keeps working for message types unknown to the registry.
type Header struct {
	MsgID       uint32 `json:"msgId"`
	SystemID    byte   `json:"systemId"`
	ComponentID byte   `json:"componentId"`
}

// VehicleKey is the (system id, component id) pair identifying one vehicle
// session. Stable for the lifetime of a connection.
type VehicleKey struct {
	SystemID    byte
	ComponentID byte
}

func (k VehicleKey) String() string {
	return fmt.Sprintf("%d-%d", k.SystemID, k.ComponentID)
}

// MarshalJSON encodes the key in its "<system>-<component>" form.
func (k VehicleKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes the "<system>-<component>" form.
func (k *VehicleKey) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseVehicleKey(raw)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseVehicleKey parses the "<system>-<component>" form produced by
// VehicleKey.String.
func ParseVehicleKey(raw string) (VehicleKey, error) {
	sys, comp, ok := strings.Cut(raw, "-")
	if !ok {
		return VehicleKey{}, &errdefs.InvalidArgumentError{Field: "vehicle", Detail: "want <system>-<component>"}
	}

	sysID, err := strconv.ParseUint(sys, 10, 8)
	if err != nil {
		return VehicleKey{}, &errdefs.InvalidArgumentError{Field: "vehicle", Detail: "bad system id"}
	}
	compID, err := strconv.ParseUint(comp, 10, 8)
	if err != nil {
		return VehicleKey{}, &errdefs.InvalidArgumentError{Field: "vehicle", Detail: "bad component id"}
	}
	return VehicleKey{SystemID: byte(sysID), ComponentID: byte(compID)}, nil
}

// Packet is one decoded inbound MAVLink packet.
type Packet struct {
	Header         Header
	SequenceNumber byte
	Version        int // wire protocol version, 1 or 2
	Signed         bool
	Message        message.Message // *message.MessageRaw when not in the dialect
	Frame          frame.Frame
	ReceivedAt     time.Time
}

// Key returns the sender's vehicle key.
func (p *Packet) Key() VehicleKey {
	return VehicleKey{SystemID: p.Header.SystemID, ComponentID: p.Header.ComponentID}
}

// FromFrame builds a Packet from a decoded frame.
func FromFrame(fr frame.Frame) *Packet {
	p := &Packet{
		Header: Header{
			MsgID:       fr.GetMessage().GetID(),
			SystemID:    fr.GetSystemID(),
			ComponentID: fr.GetComponentID(),
		},
		SequenceNumber: fr.GetSequenceNumber(),
		Version:        1,
		Message:        fr.GetMessage(),
		Frame:          fr,
		ReceivedAt:     time.Now(),
	}

	if v2, ok := fr.(*frame.V2Frame); ok {
		p.Version = 2
		p.Signed = v2.Signature != nil
	}

	return p
}
