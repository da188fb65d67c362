package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/99minutos/trading-simulator/internal/infrastructure/db/sqlstore"
	"github.com/99minutos/trading-simulator/internal/pkg/config"
	"github.com/99minutos/trading-simulator/pkg/logger"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the account tables",
		Long: `Create the users, positions and transactions tables in the database
selected by DB_DRIVER and DATABASE_URL. Existing tables are left untouched.

Example:
  DB_DRIVER=postgres DATABASE_URL=postgres://localhost/sim simulator migrate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := migrate(cmd.Context(), rootOpts.Config); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database schema is up to date.")
			return nil
		},
	}
}

func migrate(ctx context.Context, cfg *config.Config) error {
	dialect, err := sqlstore.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return WrapExitError(ExitConfigError, "invalid DB_DRIVER", err)
	}

	db, err := sqlstore.Open(ctx, sqlstore.Config{Dialect: dialect, DSN: cfg.Database.URL})
	if err != nil {
		return WrapExitError(ExitStartupError, "failed to open database", err)
	}
	defer db.Close()

	if err := sqlstore.Migrate(ctx, db, dialect); err != nil {
		return WrapExitError(ExitFailure, "migration failed", err)
	}
	log := logger.Get()
	log.Info().Str("driver", string(dialect)).Msg("schema migrated")
	return nil
}
