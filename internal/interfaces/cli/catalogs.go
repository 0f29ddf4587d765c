package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vigiamx/satavisos/internal/config"
	"github.com/vigiamx/satavisos/internal/domain/catalog"
	"github.com/vigiamx/satavisos/internal/infrastructure/database/postgres"
	"github.com/vigiamx/satavisos/internal/infrastructure/database/postgres/repositories"
	"github.com/vigiamx/satavisos/pkg/errors"
	"github.com/vigiamx/satavisos/pkg/types/common"
)

// seedRecord is one line of the catalog seed file.
type seedRecord struct {
	Catalog string `json:"catalog"`
	Code    string `json:"code"`
	Label   string `json:"label"`
}

func newSeedCatalogsCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed-catalogs",
		Short: "Load authority catalog records from a JSON file",
		Long: `Loads catalog records (currencies, vehicle brands, countries, payment
forms and instruments, operation types) from a JSON array of
{"catalog", "code", "label"} objects.  Records that already exist are
skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var seeds []seedRecord
			if err := json.Unmarshal(raw, &seeds); err != nil {
				return fmt.Errorf("parse seed file: %w", err)
			}

			cfg, err := config.NewLoader(configPath).Load()
			if err != nil {
				return err
			}
			db, err := postgres.Connect(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			repo := repositories.NewCatalogRepository(db)
			now := time.Now().UTC()
			inserted, skipped := 0, 0
			for _, s := range seeds {
				rec := &catalog.Record{
					ID:         common.NewID(),
					CatalogKey: catalog.Key(s.Catalog),
					Label:      s.Label,
					Active:     true,
					Metadata:   common.Metadata{"code": s.Code},
					CreatedAt:  now,
					UpdatedAt:  now,
				}
				if err := repo.Insert(cmd.Context(), rec); err != nil {
					if errors.IsCode(err, errors.ErrCodeConflict) {
						skipped++
						continue
					}
					return err
				}
				inserted++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalogs seeded: %d inserted, %d skipped\n", inserted, skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "catalogs.json", "seed file path")
	return cmd
}
