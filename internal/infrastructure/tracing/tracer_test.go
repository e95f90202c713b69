package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuzvak/pdv-service/internal/config"
)

func TestInit_NoEndpointIsNoop(t *testing.T) {
	p, err := Init(context.Background(), config.TracingConfig{ServiceName: "pdv-service"})
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "sale.finalize")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInit_WithEndpointSamplesSpans(t *testing.T) {
	p, err := Init(context.Background(), config.TracingConfig{
		Endpoint:    "127.0.0.1:4318",
		Insecure:    true,
		ServiceName: "pdv-service",
		SampleRatio: 1,
	})
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "sale.finalize")
	assert.True(t, span.SpanContext().IsValid())
	assert.True(t, span.SpanContext().IsSampled())
	span.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// nothing listens on the endpoint; only the call itself matters here
	_ = p.Shutdown(ctx)
}
