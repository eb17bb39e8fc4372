package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yigit/nodues/internal/bootstrap"
	"github.com/yigit/nodues/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default departments, hostels and staff accounts",
	Long: `Creates the reference data and staff accounts that do not exist yet.
Existing rows are never modified. Staff passwords come from the seed section
of the config (SEED_ADMIN_PASSWORD, SEED_OFFICER_PASSWORD).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := bootstrap.SetupStore(cmd.Context(), cfg, lgr)
		if err != nil {
			return err
		}
		defer store.Close()

		res, err := seed.CreateDefaultData(cmd.Context(), store, bootstrap.SeedOptions(cfg), lgr)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(res)
		}
		fmt.Printf("Created %d departments, %d hostels, %d staff accounts\n", res.Departments, res.Hostels, res.Staff)
		return nil
	},
}
