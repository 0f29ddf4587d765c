package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vigiamx/satavisos/internal/domain/alert"
	"github.com/vigiamx/satavisos/pkg/errors"
	"github.com/vigiamx/satavisos/pkg/types/common"
)

func newAlertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Inspect and sweep suspicious-activity alerts",
	}
	cmd.PersistentFlags().String("org", "", "organization id (required)")
	_ = cmd.MarkPersistentFlagRequired("org")
	cmd.AddCommand(newAlertsListCmd(), newAlertsSweepCmd())
	return cmd
}

func newAlertsListCmd() *cobra.Command {
	var (
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an organization's alerts, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			org, _ := cmd.Flags().GetString("org")
			e, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			opts := []alert.QueryOption{alert.WithLimit(limit)}
			if status != "" {
				s := alert.Status(status)
				if !s.Valid() {
					return errors.Validation("unknown status " + status)
				}
				opts = append(opts, alert.WithStatuses(s))
			}

			alerts, total, err := e.alerting.List(cmd.Context(), common.OrgID(org), opts...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, a := range alerts {
				deadline := "-"
				if a.SubmissionDeadline != nil {
					deadline = a.SubmissionDeadline.Format(time.RFC3339)
				}
				fmt.Fprintf(out, "%s  %-14s  %-8s  overdue=%-5t  deadline=%s\n",
					a.ID, a.Status, a.Severity, a.IsOverdue, deadline)
			}
			fmt.Fprintf(out, "%d of %d alerts\n", len(alerts), total)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().IntVar(&limit, "limit", 50, "page size")
	return cmd
}

func newAlertsSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Flip every alert whose deadline has passed to OVERDUE",
		RunE: func(cmd *cobra.Command, _ []string) error {
			org, _ := cmd.Flags().GetString("org")
			e, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			n, err := e.alerting.SweepOverdue(cmd.Context(), common.OrgID(org))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d alerts flipped to OVERDUE\n", n)
			return nil
		},
	}
}
