package scheduler

import (
	"context"
	"time"

	"github.com/yuzvak/pdv-service/internal/application/ports"
	"github.com/yuzvak/pdv-service/internal/domain/schema"
	"github.com/yuzvak/pdv-service/internal/pkg/logger"
)

type SchemaRefresher interface {
	Refresh(ctx context.Context, reader ports.CatalogReader) schema.OrderSchema
}

// SchemaRefreshScheduler re-probes the order tables on a fixed interval so a
// cached layout is replaced before it expires.
type SchemaRefreshScheduler struct {
	prober   SchemaRefresher
	catalog  ports.CatalogReader
	logger   *logger.Logger
	interval time.Duration
	timeout  time.Duration
}

func NewSchemaRefreshScheduler(
	prober SchemaRefresher,
	catalog ports.CatalogReader,
	logger *logger.Logger,
	interval time.Duration,
) *SchemaRefreshScheduler {
	return &SchemaRefreshScheduler{
		prober:   prober,
		catalog:  catalog,
		logger:   logger,
		interval: interval,
		timeout:  5 * time.Second,
	}
}

// Run refreshes once immediately, then on every tick until ctx is done.
func (s *SchemaRefreshScheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return nil
	}

	s.logger.Info("Starting schema refresher", "interval", s.interval.String())
	s.refresh(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Schema refresher stopped")
			return nil
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *SchemaRefreshScheduler) refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resolved := s.prober.Refresh(ctx, s.catalog)
	if resolved.Order.Fallback || resolved.OrderLine.Fallback {
		s.logger.Warn("Schema refresh fell back to default layout, cache not updated")
		return
	}
	s.logger.Debug("Order schema refreshed")
}
