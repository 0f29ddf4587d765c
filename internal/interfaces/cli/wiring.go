package cli

import (
	"context"
	"database/sql"

	"github.com/vigiamx/satavisos/internal/application/alerting"
	"github.com/vigiamx/satavisos/internal/application/notices"
	"github.com/vigiamx/satavisos/internal/application/reporting"
	"github.com/vigiamx/satavisos/internal/config"
	"github.com/vigiamx/satavisos/internal/infrastructure/database/postgres"
	"github.com/vigiamx/satavisos/internal/infrastructure/database/postgres/repositories"
	"github.com/vigiamx/satavisos/internal/infrastructure/monitoring/logging"
	"github.com/vigiamx/satavisos/internal/infrastructure/storage/minio"
)

// engine bundles the application services for one-shot commands.  Operator
// invocations talk straight to the database and object store; events and
// caching belong to the API server.
type engine struct {
	db       *sql.DB
	alerting *alerting.Service
	notices  *notices.Service
}

func (e *engine) close() { _ = e.db.Close() }

func openEngine(ctx context.Context) (*engine, error) {
	cfg, err := config.NewLoader(configPath).Load()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	store, err := minio.NewStore(ctx, cfg.Minio)
	if err != nil {
		db.Close()
		return nil, err
	}

	alertRepo := repositories.NewAlertRepository(db)
	noticeRepo := repositories.NewNoticeRepository(db)
	ruleRepo := repositories.NewRuleRepository(db)
	catalogRepo := repositories.NewCatalogRepository(db)

	assembler := reporting.NewAssembler(cfg.Reporting.Obligor, catalogRepo, ruleRepo)
	return &engine{
		db:       db,
		alerting: alerting.NewService(alertRepo, ruleRepo, assembler, store, nil, nil, logger),
		notices:  notices.NewService(noticeRepo, alertRepo, assembler, store, nil, nil, logger),
	}, nil
}
