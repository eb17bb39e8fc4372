// Command noduesctl runs maintenance tasks against the clearance store:
// migrations, seeding and status lookups.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/yigit/nodues/internal/bootstrap"
	"github.com/yigit/nodues/internal/config"
	"github.com/yigit/nodues/internal/pkg/logger"
)

var (
	configPath string
	jsonOutput bool

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc

	cfg *config.Config
	lgr zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "noduesctl",
	Short:         "Maintenance commands for the no-dues clearance service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, _, err = bootstrap.LoadConfigAndSetupLogger(bootstrap.ResolveConfigPath(configPath))
		if err != nil {
			return err
		}
		lgr = logger.WithField("command", cmd.Name())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $CONFIG_PATH or "+bootstrap.DefaultConfigPath+")")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")

	rootCmd.AddCommand(migrateCmd, seedCmd, statusCmd)
}

func main() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer rootCancel()

	if err := rootCmd.ExecuteContext(rootCtx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		rootCancel()
		os.Exit(1)
	}
}
