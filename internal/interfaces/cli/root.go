// Package cli implements the operational command-line tool: period
// inspection, alert sweeping, the notice filing workflow, schema migration,
// and catalog seeding.
package cli

import (
	"github.com/spf13/cobra"
)

var configPath string

// NewRootCmd assembles the satavisos command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:          "satavisos",
		Short:        "Operational tooling for the SAT vehicle-trade notice engine",
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	root.AddCommand(
		newPeriodsCmd(),
		newAlertsCmd(),
		newNoticesCmd(),
		newMigrateCmd(),
		newSeedCatalogsCmd(),
	)
	return root
}
