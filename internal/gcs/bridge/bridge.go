// Package bridge mirrors the station onto an MQTT broker: accepted
// packets go out as telemetry, vehicle discoveries are announced, and
// remote consumers can inject commands per vehicle.
package bridge

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/groundlink-io/groundlink/internal/gcs/link"
	"github.com/groundlink-io/groundlink/internal/gcs/mav"
	"github.com/groundlink-io/groundlink/internal/gcs/vehicle"
	"github.com/groundlink-io/groundlink/pkg/log"
	"github.com/groundlink-io/groundlink/pkg/mqtt"
	"github.com/groundlink-io/groundlink/pkg/mqtt/topic"
)

const publishTimeout = 3 * time.Second

// commandRequest is the JSON payload accepted on the per-vehicle command
// topic.
type commandRequest struct {
	Command string         `json:"command"`
	Params  map[string]any `json:"params,omitempty"`
}

// telemetryFrame is the JSON payload published per accepted packet.
type telemetryFrame struct {
	Vehicle string         `json:"vehicle"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
	Stamp   int64          `json:"stamp"`
}

// Bridge connects one link manager to an MQTT broker.
type Bridge struct {
	client  mqtt.Client
	topics  *topic.Builder
	manager *link.Manager
	log     log.Logger
}

func New(client mqtt.Client, topics *topic.Builder, manager *link.Manager) *Bridge {
	return &Bridge{
		client:  client,
		topics:  topics,
		manager: manager,
		log:     log.WithName("bridge"),
	}
}

// Run connects to the broker, subscribes to the command topics and blocks
// until ctx is canceled.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.client.Start(ctx); err != nil {
		return err
	}
	if err := b.client.AwaitConnection(ctx); err != nil {
		return err
	}

	if err := b.client.Subscribe(ctx, b.topics.CommandWildcard(), 1, b.handleCommand); err != nil {
		return err
	}
	b.log.Info("Bridge connected", "commands", b.topics.CommandWildcard())

	<-ctx.Done()

	disconnectCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	b.client.Disconnect(disconnectCtx)
	return nil
}

// PublishPacket mirrors one accepted inbound packet to the vehicle's
// telemetry topic. Best effort; broker trouble never backpressures the
// link.
func (b *Bridge) PublishPacket(p *mav.Packet) {
	frame := telemetryFrame{
		Vehicle: p.Key().String(),
		Message: mav.MessageName(p.Message),
		Data:    mav.EncodeMessage(p.Message),
		Stamp:   p.ReceivedAt.UnixMilli(),
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		b.log.Error(err, "Telemetry frame marshal failed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := b.client.Publish(ctx, b.topics.Telemetry(frame.Vehicle), 0, false, payload); err != nil {
		b.log.Warn("Telemetry publish failed", "err", err)
	}
}

// PublishEvent announces vehicle discoveries; other notification types
// ride the same topic with their event type intact.
func (b *Bridge) PublishEvent(evt vehicle.Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		b.log.Error(err, "Event marshal failed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := b.client.Publish(ctx, b.topics.VehicleOnline(), 1, false, payload); err != nil {
		b.log.Warn("Event publish failed", "err", err)
	}
}

// handleCommand runs a command injected over MQTT for the vehicle named
// in the topic.
func (b *Bridge) handleCommand(ctx context.Context, t string, payload []byte) {
	rawKey := t[strings.LastIndex(t, "/")+1:]

	var req commandRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		b.log.Warn("Dropping malformed command payload", "topic", t, "err", err)
		return
	}

	conn, ok := b.manager.Current()
	if !ok {
		b.log.Warn("Dropping command, not connected", "command", req.Command)
		return
	}

	key, err := mav.ParseVehicleKey(rawKey)
	if err != nil {
		b.log.Warn("Dropping command for bad vehicle key", "key", rawKey)
		return
	}

	sess, ok := conn.Registry().Get(key)
	if !ok {
		b.log.Warn("Dropping command for unknown vehicle", "vehicle", rawKey)
		return
	}

	if err := vehicle.RunCommand(ctx, sess, req.Command, req.Params); err != nil {
		b.log.Warn("Bridge command failed", "vehicle", rawKey, "command", req.Command, "err", err)
		return
	}
	b.log.Info("Bridge command succeeded", "vehicle", rawKey, "command", req.Command)
}
