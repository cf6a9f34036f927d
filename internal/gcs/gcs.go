// Package gcs assembles the ground station: the single-connection link
// manager, the HTTP gateway and the optional MQTT telemetry bridge, run
// and torn down as one unit.
package gcs

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/groundlink-io/groundlink/internal/gcs/bridge"
	"github.com/groundlink-io/groundlink/internal/gcs/gateway"
	"github.com/groundlink-io/groundlink/internal/gcs/link"
	"github.com/groundlink-io/groundlink/internal/gcs/mav"
	"github.com/groundlink-io/groundlink/internal/gcs/vehicle"
	"github.com/groundlink-io/groundlink/pkg/log"
	"github.com/groundlink-io/groundlink/pkg/mqtt"
	"github.com/groundlink-io/groundlink/pkg/mqtt/topic"
)

// GCS is one running ground station instance.
type GCS struct {
	manager *link.Manager
	gateway *gateway.Server
	bridge  *bridge.Bridge
}

// New wires the station together. The bridge is only constructed when an
// MQTT broker is configured.
func New(cfg *Config) (*GCS, error) {
	manager := link.NewManager(link.Config{
		SystemID:          cfg.Link.SystemID,
		ComponentID:       cfg.Link.ComponentID,
		HeartbeatInterval: cfg.Link.HeartbeatInterval,
		CommandTimeout:    cfg.Link.CommandTimeout,
	})

	gw := gateway.New(cfg.Http.Addr, manager)

	var br *bridge.Bridge
	if cfg.Mqtt.Enabled() {
		client, err := mqtt.NewClient(cfg.Mqtt.ToClientConfig())
		if err != nil {
			return nil, err
		}
		br = bridge.New(client, topic.NewBuilder(cfg.Mqtt.TopicRoot), manager)
	}

	// Every accepted packet and vehicle event fans out to the gateway's
	// push stream and, when configured, to the broker.
	manager.SetPacketListener(func(p *mav.Packet) {
		gw.BroadcastPacket(p)
		if br != nil {
			br.PublishPacket(p)
		}
	})
	manager.SetEventListener(func(evt vehicle.Event) {
		gw.BroadcastEvent(evt)
		if br != nil {
			br.PublishEvent(evt)
		}
	})

	return &GCS{
		manager: manager,
		gateway: gw,
		bridge:  br,
	}, nil
}

// Run starts every component and blocks until ctx is canceled or one of
// them fails.
func (g *GCS) Run(ctx context.Context) error {
	defer g.manager.Close()

	grp, ctx := errgroup.WithContext(ctx)

	grp.Go(func() error {
		return g.gateway.Run(ctx)
	})
	if g.bridge != nil {
		grp.Go(func() error {
			return g.bridge.Run(ctx)
		})
	}

	log.Info("Ground station running")
	return grp.Wait()
}
