// Package app builds the standard cobra command scaffolding shared by
// GroundLink binaries: flag registration, config-file binding and the
// validate/complete/run lifecycle.
package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/groundlink-io/groundlink/pkg/log"
)

// RunFunc is the application's startup callback.
type RunFunc func() error

// CliOptions is implemented by the options struct of each binary.
type CliOptions interface {
	// AddFlags registers every flag of the binary on fs.
	AddFlags(fs *pflag.FlagSet)

	// Complete fills in defaults that depend on other option values.
	Complete() error

	// Validate checks the final option values.
	Validate() error
}

// App is a runnable command-line application.
type App struct {
	name        string
	brief       string
	description string
	options     CliOptions
	run         RunFunc
	cmd         *cobra.Command
	subcommands []*cobra.Command
}

// Option configures an App.
type Option func(*App)

// WithDescription sets the long description shown in help output.
func WithDescription(desc string) Option {
	return func(a *App) {
		a.description = desc
	}
}

// WithOptions binds an options struct to the application.
func WithOptions(opts CliOptions) Option {
	return func(a *App) {
		a.options = opts
	}
}

// WithRunFunc sets the startup callback.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) {
		a.run = run
	}
}

// WithSubcommands attaches additional subcommands to the root command.
func WithSubcommands(cmds ...*cobra.Command) Option {
	return func(a *App) {
		a.subcommands = append(a.subcommands, cmds...)
	}
}

// NewApp creates an App with the given name and one-line summary.
func NewApp(name, brief string, opts ...Option) *App {
	a := &App{
		name:  name,
		brief: brief,
	}

	for _, o := range opts {
		o(a)
	}

	a.buildCommand()
	return a
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.name,
		Short:         a.brief,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCommand()
		},
	}

	cmd.SetArgs(nil)
	cmd.Flags().SortFlags = true

	if a.options != nil {
		a.options.AddFlags(cmd.Flags())
	}

	addConfigFlag(a.name, cmd.Flags())

	cmd.AddCommand(a.subcommands...)

	a.cmd = cmd
}

func (a *App) runCommand() error {
	if err := loadConfig(a.options); err != nil {
		return err
	}

	if a.options != nil {
		if err := a.options.Complete(); err != nil {
			return fmt.Errorf("failed to complete options: %w", err)
		}
		if err := a.options.Validate(); err != nil {
			return err
		}
	}

	log.Info("Starting application", "name", a.name)

	if a.run != nil {
		return a.run()
	}
	return nil
}

// Command returns the underlying cobra command, e.g. for doc generation.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Run executes the application and returns the first error encountered.
func (a *App) Run() error {
	return a.cmd.Execute()
}
