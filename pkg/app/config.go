package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/groundlink-io/groundlink/pkg/log"
)

const configFlagName = "config"

var configFile string

// addConfigFlag registers the --config flag and sets up viper's search
// paths for the binary's default config locations.
func addConfigFlag(name string, fs *pflag.FlagSet) {
	fs.StringVarP(&configFile, configFlagName, "c", "", "Path to the configuration file.")

	viper.SetEnvPrefix(strings.ReplaceAll(strings.ToUpper(name), "-", "_"))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(name)
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".groundlink"))
	}
	viper.AddConfigPath("/etc/groundlink")
}

// loadConfig reads the configuration file, if any, into opts and starts
// watching it so edits are picked up without a restart.
func loadConfig(opts CliOptions) error {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			// No config file is fine; flags and env carry the load.
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if opts != nil {
		if err := viper.Unmarshal(opts); err != nil {
			return fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	viper.OnConfigChange(func(e fsnotify.Event) {
		log.Info("Config file changed, re-reading", "file", e.Name, "op", e.Op.String())
		if opts != nil {
			if err := viper.Unmarshal(opts); err != nil {
				log.Error(err, "Failed to re-read config file", "file", e.Name)
			}
		}
	})
	viper.WatchConfig()

	log.Info("Loaded configuration", "file", viper.ConfigFileUsed())
	return nil
}
