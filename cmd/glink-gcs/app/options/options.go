// Package options aggregates every configurable surface of the glink-gcs
// binary.
package options

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/groundlink-io/groundlink/internal/gcs"
	"github.com/groundlink-io/groundlink/pkg/log"
	genericoptions "github.com/groundlink-io/groundlink/pkg/options"
)

// Options runs the ground station with this fully parsed configuration.
type Options struct {
	Http *genericoptions.HttpOptions `json:"http" mapstructure:"http"`
	Link *genericoptions.LinkOptions `json:"link" mapstructure:"link"`
	Mqtt *genericoptions.MqttOptions `json:"mqtt" mapstructure:"mqtt"`
	Log  *log.Options                `json:"log"  mapstructure:"log"`
}

// NewOptions creates an Options object with default parameters.
func NewOptions() *Options {
	return &Options{
		Http: genericoptions.NewHttpOptions(),
		Link: genericoptions.NewLinkOptions(),
		Mqtt: genericoptions.NewMqttOptions(),
		Log:  log.NewOptions(),
	}
}

// AddFlags registers every flag of the binary on fs.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	o.Http.AddFlags(fs)
	o.Link.AddFlags(fs)
	o.Mqtt.AddFlags(fs)
	o.Log.AddFlags(fs)
}

// Complete fills in defaults that depend on other option values.
func (o *Options) Complete() error {
	if o.Mqtt.Enabled() && o.Mqtt.ClientID == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("failed to derive mqtt client id: %w", err)
		}
		o.Mqtt.ClientID = "glink-gcs-" + hostname
	}
	return nil
}

// Validate checks the final option values.
func (o *Options) Validate() error {
	var errs []error

	errs = append(errs, o.Http.Validate()...)
	errs = append(errs, o.Link.Validate()...)
	errs = append(errs, o.Mqtt.Validate()...)
	errs = append(errs, o.Log.Validate()...)

	return errors.Join(errs...)
}

// Config builds the runtime configuration from the options.
func (o *Options) Config() (*gcs.Config, error) {
	return &gcs.Config{
		Http: o.Http,
		Link: o.Link,
		Mqtt: o.Mqtt,
	}, nil
}
