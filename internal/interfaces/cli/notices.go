package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vigiamx/satavisos/internal/application/period"
	"github.com/vigiamx/satavisos/pkg/types/common"
)

func newNoticesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notices",
		Short: "Drive the notice filing workflow",
	}
	cmd.PersistentFlags().String("org", "", "organization id (required)")
	_ = cmd.MarkPersistentFlagRequired("org")
	cmd.AddCommand(
		newNoticesCreateCmd(),
		newNoticesGenerateCmd(),
		newNoticesSubmitCmd(),
		newNoticesAcknowledgeCmd(),
	)
	return cmd
}

func newNoticesCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create <YYYYMM>",
		Short: "Open a draft notice for a period and claim its alerts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			org, _ := cmd.Flags().GetString("org")
			p, err := period.Parse(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = "Aviso " + p.ReportedMonth
			}

			e, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			n, err := e.notices.CreateForPeriod(cmd.Context(), common.OrgID(org), p.Year, p.Month, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "notice %s created for %s, %d alerts claimed\n",
				n.ID, n.ReportedMonth, n.RecordCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "notice display name")
	return cmd
}

func newNoticesGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate <notice-id>",
		Short: "Render and store the regulatory document for a draft notice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			org, _ := cmd.Flags().GetString("org")
			e, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			n, err := e.notices.Generate(cmd.Context(), common.OrgID(org), common.ID(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "document %s generated (%d bytes, %d records)\n",
				n.DocumentKey, n.DocumentSize, n.RecordCount)
			return nil
		},
	}
}

func newNoticesSubmitCmd() *cobra.Command {
	var folio string
	cmd := &cobra.Command{
		Use:   "submit <notice-id>",
		Short: "Record submission of a generated notice to the authority",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			org, _ := cmd.Flags().GetString("org")
			e, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			n, err := e.notices.Submit(cmd.Context(), common.OrgID(org), common.ID(args[0]), folio)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "notice %s submitted at %s\n",
				n.ID, n.SubmittedAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&folio, "folio", "", "authority submission folio")
	return cmd
}

func newNoticesAcknowledgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "acknowledge <notice-id> <folio>",
		Short: "Record the authority's acknowledgment folio",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			org, _ := cmd.Flags().GetString("org")
			e, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			n, err := e.notices.Acknowledge(cmd.Context(), common.OrgID(org), common.ID(args[0]), args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "notice %s acknowledged, folio %s\n", n.ID, n.Folio)
			return nil
		},
	}
}
