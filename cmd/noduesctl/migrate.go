package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	appMigrations "github.com/yigit/nodues/internal/app/migrations"
	"github.com/yigit/nodues/internal/bootstrap"
	"github.com/yigit/nodues/internal/config"
)

var errMemoryDriver = errors.New("the memory driver has no schema; set database.driver to postgres")

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Database.Driver == config.DriverMemory {
			return errMemoryDriver
		}
		database, err := bootstrap.ConnectDatabase(cmd.Context(), cfg, lgr)
		if err != nil {
			return err
		}
		defer database.Close()
		return bootstrap.RunMigrations(cmd.Context(), cfg, database, lgr)
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migration files and whether they have been applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Database.Driver == config.DriverMemory {
			return errMemoryDriver
		}
		database, err := bootstrap.ConnectDatabase(cmd.Context(), cfg, lgr)
		if err != nil {
			return err
		}
		defer database.Close()

		statuses, err := appMigrations.NewMigrator(database.Pool, lgr).Status(cmd.Context(), cfg.Database.MigrationsDir)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(statuses)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tFILE\tAPPLIED")
		for _, s := range statuses {
			fmt.Fprintf(w, "%s\t%s\t%t\n", s.Version, s.File, s.Applied)
		}
		return w.Flush()
	},
}

func init() {
	migrateCmd.AddCommand(migrateStatusCmd)
}
