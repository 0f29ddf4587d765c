package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vigiamx/satavisos/internal/application/period"
)

func newPeriodsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "periods",
		Short: "Inspect the authority's reporting cycle",
	}
	cmd.AddCommand(newPeriodsCandidatesCmd(), newPeriodsShowCmd())
	return cmd
}

func newPeriodsCandidatesCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "List the periods a notice can currently be created for",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, p := range period.CandidateMonths(time.Now(), count) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", p.ReportedMonth, p.DisplayName)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 3, "number of periods to list")
	return cmd
}

func newPeriodsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <YYYYMM>",
		Short: "Show the window and deadline for a period label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := period.Parse(args[0])
			if err != nil {
				return err
			}
			deadline, err := period.DeadlineFor(p.Year, p.Month)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "period:   %s\n", p.DisplayName)
			fmt.Fprintf(out, "start:    %s\n", p.Start.Format(time.RFC3339))
			fmt.Fprintf(out, "end:      %s\n", p.End.Format(time.RFC3339))
			fmt.Fprintf(out, "deadline: %s\n", deadline.Format(time.RFC3339))
			return nil
		},
	}
}
