package tracing

import (
	"context"
	"sort"
	"strings"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// InjectTraceContext adds the propagation headers of ctx (traceparent,
// tracestate, baggage) to headers, replacing existing ones with the same key.
func InjectTraceContext(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	keys := carrier.Keys()
	sort.Strings(keys)
	for _, key := range keys {
		headers = setHeader(headers, key, carrier.Get(key))
	}
	return headers
}

// ExtractTraceContext returns ctx with the remote span context found in
// headers. Header keys are matched case-insensitively.
func ExtractTraceContext(ctx context.Context, headers []kafka.Header) context.Context {
	carrier := make(propagation.MapCarrier, len(headers))
	for _, h := range headers {
		carrier.Set(strings.ToLower(h.Key), string(h.Value))
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

func setHeader(headers []kafka.Header, key, value string) []kafka.Header {
	for i, h := range headers {
		if strings.EqualFold(h.Key, key) {
			headers[i].Value = []byte(value)
			return headers
		}
	}
	return append(headers, kafka.Header{Key: key, Value: []byte(value)})
}
