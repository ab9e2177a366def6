package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// MigrateCmd creates the migrate command
func MigrateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			migrator, ok := app.Store.(Migrator)
			if !ok {
				return fmt.Errorf("store does not support migrations")
			}
			if err := migrator.RunMigrations(app.Ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Database schema is up to date (%s)\n\n", app.Cfg.Store)
			return nil
		},
	}
}
