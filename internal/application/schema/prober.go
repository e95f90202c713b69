package schema

import (
	"context"
	"sync"
	"time"

	"github.com/yuzvak/pdv-service/internal/application/ports"
	"github.com/yuzvak/pdv-service/internal/domain/schema"
	"github.com/yuzvak/pdv-service/internal/infrastructure/monitoring"
	"github.com/yuzvak/pdv-service/internal/pkg/clock"
	"github.com/yuzvak/pdv-service/internal/pkg/logger"
)

// Prober resolves the order and order-line layouts from the live catalog.
//
// With a zero ttl every Probe reads the catalog through the caller's reader,
// which inside a sale is the sale transaction itself. A positive ttl keeps the
// last successful layout until it expires or Invalidate is called. Fallback
// layouts are never cached.
type Prober struct {
	log   *logger.Logger
	clock clock.Clock
	ttl   time.Duration

	mu       sync.RWMutex
	cached   *schema.OrderSchema
	cachedAt time.Time
}

var _ ports.SchemaProber = (*Prober)(nil)

func NewProber(log *logger.Logger, clk clock.Clock, ttl time.Duration) *Prober {
	return &Prober{
		log:   log,
		clock: clk,
		ttl:   ttl,
	}
}

func (p *Prober) Probe(ctx context.Context, reader ports.CatalogReader) schema.OrderSchema {
	if cached, ok := p.fromCache(); ok {
		return cached
	}

	resolved := p.probe(ctx, reader)
	p.store(resolved)
	return resolved
}

// Refresh re-reads the catalog regardless of the cache state.
func (p *Prober) Refresh(ctx context.Context, reader ports.CatalogReader) schema.OrderSchema {
	resolved := p.probe(ctx, reader)
	p.store(resolved)
	return resolved
}

func (p *Prober) Invalidate(reason string) {
	if p.ttl <= 0 {
		return
	}

	p.mu.Lock()
	hadEntry := p.cached != nil
	p.cached = nil
	p.mu.Unlock()

	if hadEntry {
		monitoring.RecordSchemaInvalidation(reason)
		p.log.Warn("Order schema cache invalidated", "reason", reason)
	}
}

func (p *Prober) Caching() bool {
	return p.ttl > 0
}

func (p *Prober) fromCache() (schema.OrderSchema, bool) {
	if p.ttl <= 0 {
		return schema.OrderSchema{}, false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.cached == nil || p.clock.Since(p.cachedAt) >= p.ttl {
		return schema.OrderSchema{}, false
	}
	cached := *p.cached
	cached.Cached = true
	return cached, true
}

func (p *Prober) store(resolved schema.OrderSchema) {
	if p.ttl <= 0 || resolved.Order.Fallback || resolved.OrderLine.Fallback {
		return
	}

	p.mu.Lock()
	p.cached = &resolved
	p.cachedAt = p.clock.Now()
	p.mu.Unlock()
}

func (p *Prober) probe(ctx context.Context, reader ports.CatalogReader) schema.OrderSchema {
	return schema.OrderSchema{
		Order: p.probeTable(ctx, reader, schema.OrderTable, schema.OrderFallback,
			schema.RoleTimestamp, schema.RoleTotal, schema.RolePayment),
		OrderLine: p.probeTable(ctx, reader, schema.OrderLineTable, schema.OrderLineFallback,
			schema.RolePayment),
	}
}

func (p *Prober) probeTable(
	ctx context.Context,
	reader ports.CatalogReader,
	table string,
	fallback func() schema.Layout,
	roles ...schema.Role,
) schema.Layout {
	columns, err := reader.TableColumns(ctx, table)
	if err != nil {
		layout := fallback()
		monitoring.RecordSchemaProbe(table, true)
		p.log.Warn("Catalog lookup failed, assuming fallback layout",
			"table", table,
			"error", err,
			"columns", layoutNames(layout),
		)
		return layout
	}

	monitoring.RecordSchemaProbe(table, false)
	layout := schema.Resolve(table, columns, roles...)
	p.log.Debug("Resolved table layout", "table", table, "columns", layoutNames(layout))
	return layout
}

func layoutNames(layout schema.Layout) map[string]string {
	names := make(map[string]string, len(layout.Columns))
	for role, col := range layout.Columns {
		names[role.String()] = col
	}
	return names
}
