// Command apiserver runs the compliance reporting engine's HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vigiamx/satavisos/internal/application/alerting"
	"github.com/vigiamx/satavisos/internal/application/notices"
	"github.com/vigiamx/satavisos/internal/application/reporting"
	"github.com/vigiamx/satavisos/internal/config"
	"github.com/vigiamx/satavisos/internal/domain/catalog"
	"github.com/vigiamx/satavisos/internal/infrastructure/database/postgres"
	"github.com/vigiamx/satavisos/internal/infrastructure/database/postgres/repositories"
	redisinfra "github.com/vigiamx/satavisos/internal/infrastructure/database/redis"
	"github.com/vigiamx/satavisos/internal/infrastructure/messaging/kafka"
	"github.com/vigiamx/satavisos/internal/infrastructure/monitoring/logging"
	prommetrics "github.com/vigiamx/satavisos/internal/infrastructure/monitoring/prometheus"
	miniostore "github.com/vigiamx/satavisos/internal/infrastructure/storage/minio"
	httpiface "github.com/vigiamx/satavisos/internal/interfaces/http"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "apiserver:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	loader := config.NewLoader(configPath)
	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.Migrate(db, cfg.Database.MigrationsPath); err != nil {
		return err
	}

	redisClient, err := redisinfra.NewClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	store, err := miniostore.NewStore(ctx, cfg.Minio)
	if err != nil {
		return err
	}

	producer := kafka.NewProducer(cfg.Kafka, logger)
	defer producer.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := prommetrics.New(registry)

	alertRepo := repositories.NewAlertRepository(db)
	noticeRepo := repositories.NewNoticeRepository(db)
	ruleRepo := repositories.NewRuleRepository(db)

	var resolver catalog.Resolver = repositories.NewCatalogRepository(db)
	resolver = redisinfra.NewCachedResolver(resolver, redisClient, cfg.Redis.TTL, logger)

	assembler := reporting.NewAssembler(cfg.Reporting.Obligor, resolver, ruleRepo)
	alertSvc := alerting.NewService(alertRepo, ruleRepo, assembler, store, producer, metrics, logger)
	noticeSvc := notices.NewService(noticeRepo, alertRepo, assembler, store, producer, metrics, logger)

	engine := httpiface.NewRouter(cfg.Server, httpiface.RouterDeps{
		Alerting: alertSvc,
		Notices:  noticeSvc,
		Rules:    ruleRepo,
		DB:       db,
		Logger:   logger,
		Metrics:  cfg.Metrics,
		Registry: registry,
	})
	server := httpiface.NewServer(cfg.Server, engine, logger)

	loader.Watch()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Run() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	return server.Shutdown(context.Background())
}
