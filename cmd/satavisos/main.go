// Command satavisos is the operational CLI: period inspection, migrations,
// and catalog seeding.
package main

import (
	"os"

	"github.com/vigiamx/satavisos/internal/interfaces/cli"
)

var version = "dev"

func main() {
	if err := cli.NewRootCmd(version).Execute(); err != nil {
		os.Exit(1)
	}
}
