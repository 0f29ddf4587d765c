package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vigiamx/satavisos/internal/config"
	"github.com/vigiamx/satavisos/internal/infrastructure/database/postgres"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewLoader(configPath).Load()
			if err != nil {
				return err
			}
			db, err := postgres.Connect(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(db, cfg.Database.MigrationsPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
