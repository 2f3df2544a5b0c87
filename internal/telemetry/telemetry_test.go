package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/donaldgifford/item-notifier/internal/config"
)

func TestSetup_DisabledIsNoOp(t *testing.T) {
	t.Parallel()

	shutdown, err := Setup(context.Background(), config.TelemetryConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestNew_RequiresEndpoint(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), config.TelemetryConfig{Enabled: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint is required")
}

func TestNew_BuildsProviders(t *testing.T) {
	t.Parallel()

	// gRPC connections are lazy, so no collector needs to be listening.
	tel, err := New(context.Background(), config.TelemetryConfig{
		Enabled:     true,
		Endpoint:    "127.0.0.1:4317",
		ServiceName: "item-notifier-test",
		Insecure:    true,
	})
	require.NoError(t, err)
	require.NotNil(t, tel.TracerProvider)
	require.NotNil(t, tel.MeterProvider)

	_, span := tel.TracerProvider.Tracer("test").Start(context.Background(), "noop")
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	// Export fails without a collector; only the shutdown path is exercised.
	_ = tel.Shutdown(ctx)
}

func TestNewResource_CarriesServiceName(t *testing.T) {
	t.Parallel()

	res, err := newResource("item-notifier")
	require.NoError(t, err)

	v, ok := res.Set().Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, "item-notifier", v.AsString())
}
