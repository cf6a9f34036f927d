package gcs

import (
	"github.com/groundlink-io/groundlink/pkg/options"
)

// Config is the fully resolved runtime configuration of the station.
type Config struct {
	Http *options.HttpOptions
	Link *options.LinkOptions
	Mqtt *options.MqttOptions
}

// New builds the station from this configuration.
func (c *Config) New() (*GCS, error) {
	return New(c)
}
