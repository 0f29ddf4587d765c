package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vigiamx/satavisos/internal/config"
	"github.com/vigiamx/satavisos/internal/infrastructure/monitoring/logging"
)

// Server wraps the net/http server with graceful shutdown.
type Server struct {
	srv    *http.Server
	cfg    config.ServerConfig
	logger logging.Logger
}

// NewServer builds the server over an assembled engine.
func NewServer(cfg config.ServerConfig, engine *gin.Engine, logger logging.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      engine,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		cfg:    cfg,
		logger: logger.Named("server"),
	}
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("http server listening", logging.String("addr", s.cfg.Addr()))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}
	s.logger.Info("http server shutting down")
	return s.srv.Shutdown(ctx)
}
