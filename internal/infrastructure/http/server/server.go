package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/yuzvak/pdv-service/internal/config"
	"github.com/yuzvak/pdv-service/internal/infrastructure/http/handlers"
	"github.com/yuzvak/pdv-service/internal/pkg/logger"
)

type Handlers struct {
	Health   *handlers.HealthHandler
	Sales    *handlers.SaleHandler
	Products *handlers.ProductHandler
}

type Server struct {
	server         *http.Server
	logger         *logger.Logger
	requestTimeout time.Duration
	healthHandler  *handlers.HealthHandler
	saleHandler    *handlers.SaleHandler
	productHandler *handlers.ProductHandler
}

func NewServer(cfg config.ServerConfig, h Handlers, logger *logger.Logger) *Server {
	s := &Server{
		logger:         logger,
		requestTimeout: cfg.RequestTimeout.Duration,
		healthHandler:  h.Health,
		saleHandler:    h.Sales,
		productHandler: h.Products,
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      s.requestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// ListenAndServe blocks until the server stops. A graceful shutdown is not an error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("Starting HTTP server", "address", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
