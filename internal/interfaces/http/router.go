// Package http assembles the gin engine and the HTTP server lifecycle.
package http

import (
	"database/sql"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vigiamx/satavisos/internal/application/alerting"
	"github.com/vigiamx/satavisos/internal/application/notices"
	"github.com/vigiamx/satavisos/internal/config"
	"github.com/vigiamx/satavisos/internal/domain/rule"
	"github.com/vigiamx/satavisos/internal/infrastructure/monitoring/logging"
	"github.com/vigiamx/satavisos/internal/interfaces/http/handlers"
	"github.com/vigiamx/satavisos/internal/interfaces/http/middleware"
)

// RouterDeps carries everything the router mounts.
type RouterDeps struct {
	Alerting *alerting.Service
	Notices  *notices.Service
	Rules    rule.Repository
	DB       *sql.DB
	Logger   logging.Logger
	Metrics  config.MetricsConfig
	Registry *prometheus.Registry
}

// NewRouter builds the gin engine with the full middleware chain and every
// route mounted.
func NewRouter(cfg config.ServerConfig, deps RouterDeps) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(deps.Logger),
		middleware.Logging(deps.Logger),
	)

	handlers.NewHealthHandler(deps.DB).Register(r)
	if deps.Metrics.Enabled && deps.Registry != nil {
		path := deps.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api/v1")
	api.Use(middleware.Tenant())

	handlers.NewAlertHandler(deps.Alerting).Register(api)
	handlers.NewNoticeHandler(deps.Notices).Register(api)
	handlers.NewRuleHandler(deps.Rules).Register(api)
	handlers.NewPeriodHandler().Register(api)

	return r
}
