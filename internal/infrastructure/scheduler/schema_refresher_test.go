package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	appschema "github.com/yuzvak/pdv-service/internal/application/schema"
	"github.com/yuzvak/pdv-service/internal/pkg/clock"
	"github.com/yuzvak/pdv-service/internal/pkg/logger"
)

type countingCatalog struct {
	calls atomic.Int32
	err   error
}

func (c *countingCatalog) TableColumns(_ context.Context, table string) ([]string, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	if table == "pedidos" {
		return []string{"id", "data_hora", "total", "forma_pagamento"}, nil
	}
	return []string{"id", "pedido_id", "produto_id", "quantidade", "preco_unitario"}, nil
}

func TestSchemaRefreshScheduler_RefreshesUntilCanceled(t *testing.T) {
	defer goleak.VerifyNone(t)

	catalog := &countingCatalog{}
	prober := appschema.NewProber(logger.Nop(), clock.NewRealClock(), time.Minute)
	refresher := NewSchemaRefreshScheduler(prober, catalog, logger.Nop(), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- refresher.Run(ctx) }()

	require.Eventually(t, func() bool { return catalog.calls.Load() >= 6 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}

	// two tables per refresh, and the cache now serves probes
	before := catalog.calls.Load()
	resolved := prober.Probe(context.Background(), catalog)
	assert.Equal(t, before, catalog.calls.Load())
	assert.False(t, resolved.Order.Fallback)
}

func TestSchemaRefreshScheduler_FallbackIsNotCached(t *testing.T) {
	catalog := &countingCatalog{err: errors.New("permission denied")}
	prober := appschema.NewProber(logger.Nop(), clock.NewRealClock(), time.Minute)
	refresher := NewSchemaRefreshScheduler(prober, catalog, logger.Nop(), time.Hour)

	refresher.refresh(context.Background())
	before := catalog.calls.Load()
	prober.Probe(context.Background(), catalog)

	assert.Greater(t, catalog.calls.Load(), before)
}

func TestSchemaRefreshScheduler_DisabledWithoutInterval(t *testing.T) {
	catalog := &countingCatalog{}
	refresher := NewSchemaRefreshScheduler(
		appschema.NewProber(logger.Nop(), clock.NewRealClock(), 0), catalog, logger.Nop(), 0)

	assert.NoError(t, refresher.Run(context.Background()))
	assert.Zero(t, catalog.calls.Load())
}
