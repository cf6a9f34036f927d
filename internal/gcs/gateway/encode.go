package gateway

import (
	"time"

	"github.com/groundlink-io/groundlink/internal/gcs/mav"
)

// StreamFrame is the JSON shape pushed to stream subscribers for every
// accepted inbound packet.
type StreamFrame struct {
	Type    string         `json:"type"`
	Vehicle string         `json:"vehicle"`
	Header  mav.Header     `json:"header"`
	Meta    FrameMeta      `json:"meta"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
	Stamp   int64          `json:"stamp"`
}

// FrameMeta carries the wire-level details of one packet.
type FrameMeta struct {
	Version  int  `json:"version"`
	Signed   bool `json:"signed"`
	Sequence byte `json:"sequence"`
}

func newStreamFrame(p *mav.Packet) StreamFrame {
	return StreamFrame{
		Type:    "packet",
		Vehicle: p.Key().String(),
		Header:  p.Header,
		Meta: FrameMeta{
			Version:  p.Version,
			Signed:   p.Signed,
			Sequence: p.SequenceNumber,
		},
		Message: mav.MessageName(p.Message),
		Data:    mav.EncodeMessage(p.Message),
		Stamp:   p.ReceivedAt.UnixMilli(),
	}
}

// eventFrame wraps a vehicle notification for the push stream.
type eventFrame struct {
	Type  string `json:"type"`
	Event any    `json:"event"`
	Stamp int64  `json:"stamp"`
}

func newEventFrame(evt any) eventFrame {
	return eventFrame{Type: "event", Event: evt, Stamp: time.Now().UnixMilli()}
}
