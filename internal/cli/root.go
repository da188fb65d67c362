// Package cli implements the simulator command line: serve runs the HTTP
// server and migrate prepares the account database.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/99minutos/trading-simulator/internal/pkg/config"
	"github.com/99minutos/trading-simulator/pkg/logger"
)

// RootOptions holds state shared by all commands.
type RootOptions struct {
	// LogLevel overrides LOG_LEVEL when set.
	LogLevel string
	Config   *config.Config
}

// NewRootCommand creates the root command for the simulator CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "simulator",
		Short:         "Stock trading simulator",
		Long:          "A simulated brokerage: users register, receive cash, look up quotes, and buy and sell whole shares.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return WrapExitError(ExitConfigError, "failed to load configuration", err)
			}
			if opts.LogLevel != "" {
				cfg.LogLevel = opts.LogLevel
			}
			opts.Config = cfg

			logger.Init(logger.Options{
				Level:   cfg.LogLevel,
				Pretty:  cfg.IsDevelopment(),
				Service: "trading-simulator",
			})
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "minimum log level (trace|debug|info|warn|error)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}
