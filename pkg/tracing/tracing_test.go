package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"leadflow/internal/config"
)

func TestKafkaHeadersCarryTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	headers := InjectTraceContext(ctx, []kafka.Header{{Key: "content-type", Value: []byte("application/json")}})
	require.Len(t, headers, 2)
	assert.Equal(t, "traceparent", headers[1].Key)

	extracted := ExtractTraceContext(context.Background(), headers)
	assert.Equal(t, span.SpanContext().TraceID(), trace.SpanContextFromContext(extracted).TraceID())
	assert.Equal(t, span.SpanContext().TraceID().String(), TraceID(ctx))
}

func TestTraceIDWithoutSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}

func TestInitDisabledReturnsProvider(t *testing.T) {
	tp, err := Init(config.TracingConfig{Enabled: false}, "")
	require.NoError(t, err)
	assert.NotNil(t, tp.Tracer("x"))
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestProbeEndpointsAreNotTraced(t *testing.T) {
	assert.False(t, traceRequest(httptest.NewRequest(http.MethodGet, "/health", nil)))
	assert.False(t, traceRequest(httptest.NewRequest(http.MethodGet, "/metrics", nil)))
	assert.True(t, traceRequest(httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", nil)))
}

func TestExtractIgnoresHeaderCase(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	headers := []kafka.Header{{Key: "Traceparent", Value: []byte("00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")}}

	sc := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), headers))
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", sc.TraceID().String())
	assert.True(t, sc.IsRemote())
}

func TestResolveServiceName(t *testing.T) {
	assert.Equal(t, "explicit", resolveServiceName(config.TracingConfig{ServiceName: "configured"}, "explicit"))
	assert.Equal(t, "configured", resolveServiceName(config.TracingConfig{ServiceName: "configured"}, ""))
	assert.Equal(t, DefaultServiceName, resolveServiceName(config.TracingConfig{}, ""))
}

func TestCreateSampler(t *testing.T) {
	assert.Equal(t, sdktrace.NeverSample().Description(), createSampler(config.SamplerConfig{Type: "always_off"}).Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), createSampler(config.SamplerConfig{}).Description())
}
