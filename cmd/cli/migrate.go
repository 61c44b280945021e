package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/axellelanca/shortlink/cmd"
	"github.com/axellelanca/shortlink/internal/repository"
)

// MigrateCmd represents the 'migrate' command
// This command handles database schema creation and updates
var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Executes database migrations to create or update tables.",
	Long: `This command connects to the configured database (SQLite or MySQL)
and executes GORM automatic migrations to create the 'short_links' table.`,
	RunE: func(c *cobra.Command, _ []string) error {
		db, err := repository.Open(cmd.Cfg.Database.Driver, cmd.Cfg.Database.Name, cmd.Cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer repository.Close(db)

		if err := repository.Migrate(db); err != nil {
			return err
		}
		fmt.Fprintln(c.OutOrStdout(), "Database migrations executed successfully.")
		return nil
	},
}

func init() {
	cmd.RootCmd.AddCommand(MigrateCmd)
}
