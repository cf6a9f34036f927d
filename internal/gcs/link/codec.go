// Package link owns the lifetime of one vehicle connection: it stacks the
// MAVLink codec on a byte transport, verifies signatures, and feeds the
// vehicle registry and the command correlator from a single inbound loop.
package link

import (
	"io"
	"time"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
)

// Config carries the MAVLink identity and timing of the station plus the
// optional signing passphrase for one connection.
type Config struct {
	SystemID          byte
	ComponentID       byte
	HeartbeatInterval time.Duration
	CommandTimeout    time.Duration

	// SigningPassphrase enables v2 frame signing and inbound signature
	// verification when non-empty.
	SigningPassphrase string
}

// codec drives a gomavlib node over a single custom byte endpoint. The
// node does the framing, CRC validation and dialect decoding; unknown
// message ids come through as raw messages with an intact header.
type codec struct {
	node *gomavlib.Node
}

func newCodec(rwc io.ReadWriteCloser, cfg Config) (*codec, error) {
	conf := gomavlib.NodeConf{
		Endpoints: []gomavlib.EndpointConf{
			gomavlib.EndpointCustom{ReadWriteCloser: rwc},
		},
		Dialect:        common.Dialect,
		OutVersion:     gomavlib.V2,
		OutSystemID:    cfg.SystemID,
		OutComponentID: cfg.ComponentID,
		// Keep-alives are owned by the vehicle sessions, which emit them
		// per discovered vehicle rather than per endpoint.
		HeartbeatDisable: true,
	}
	if cfg.SigningPassphrase != "" {
		conf.OutKey = DeriveKey(cfg.SigningPassphrase)
	}

	node, err := gomavlib.NewNode(conf)
	if err != nil {
		return nil, err
	}
	return &codec{node: node}, nil
}

// Events returns the node's inbound event stream. The channel closes when
// the codec is closed.
func (c *codec) Events() chan gomavlib.Event {
	return c.node.Events()
}

// Send encodes and writes one typed message.
func (c *codec) Send(msg message.Message) error {
	return c.node.WriteMessageAll(msg)
}

func (c *codec) Close() {
	c.node.Close()
}
