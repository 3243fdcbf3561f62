package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medicrew/backend/internal/infrastructure/clients/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the PostgreSQL schema migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := postgres.Migrate(cfg.Database.DatabaseURL()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Schema up to date on %s/%s\n", cfg.Database.Host, cfg.Database.Database)
		return nil
	},
}
