package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/farum-checkin/internal/config"
	"github.com/PabloGalante/farum-checkin/internal/observability"
)

var version = "dev" // set via ldflags at build time

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "farum-checkin",
		Short: "Conversational daily check-in service",
		Long: `farum-checkin asks users short structured surveys on demand or
on a daily schedule, records the answers and reports statistics.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(newServeCmd(), newDueCmd(), newStatsCmd())
	return root
}

// loadConfig reads the environment and configures the global logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	observability.Configure(os.Stdout, cfg.LogLevel)
	return cfg, nil
}
