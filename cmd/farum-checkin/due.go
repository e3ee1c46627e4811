package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "due",
		Short: "List users due for today's daily survey",
		Long: `due runs the scheduler's classification once and prints who would be
prompted, without starting any survey. Surveys are only started by serve,
where the sessions and their prompts stay reachable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			a, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			plan, err := a.scheduler.Plan(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scanned=%d due=%d not_due=%d malformed=%d\n",
				plan.Scanned, len(plan.Due), plan.NotDue, plan.Malformed)
			for _, id := range plan.Due {
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}
}
