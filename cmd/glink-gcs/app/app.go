package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/groundlink-io/groundlink/cmd/glink-gcs/app/options"
	"github.com/groundlink-io/groundlink/pkg/app"
	"github.com/groundlink-io/groundlink/pkg/log"
)

const (
	commandName = "glink-gcs"
	commandDesc = `The GroundLink ground control station connects to one vehicle link
(serial, TCP or UDP), tracks every vehicle on it, and exposes a JSON
API plus a websocket push stream for UI consumers. An optional MQTT
bridge mirrors telemetry to a broker and accepts remote commands.`
)

// NewApp builds the glink-gcs application.
func NewApp() *app.App {
	opts := options.NewOptions()
	return app.NewApp(
		commandName,
		"Launch the GroundLink ground control station",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
		app.WithSubcommands(newPortsCommand()),
	)
}

func run(opts *options.Options) app.RunFunc {
	return func() error {
		log.Init(opts.Log)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		station, err := cfg.New()
		if err != nil {
			return fmt.Errorf("failed to create ground station: %w", err)
		}

		return station.Run(ctx)
	}
}
