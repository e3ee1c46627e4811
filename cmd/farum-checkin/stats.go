package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/farum-checkin/internal/app/stats"
	"github.com/PabloGalante/farum-checkin/internal/domain"
)

func newStatsCmd() *cobra.Command {
	var (
		userID string
		period string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print a user's statistics for a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			p, err := stats.ParsePeriod(period)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.stats.Report(cmd.Context(), domain.UserID(userID), p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), stats.Render(report, stats.DefaultDisplayNames))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&period, "period", "week", "day, week or month")
	return cmd
}
