package logging

import (
	"context"
)

const (
	TraceIDKey     = "trace_id"
	RequestIDKey   = "request_id"
	DispatchIDKey  = "dispatch_id"
	ServiceNameKey = "service_name"
)

// fieldOrder is the order GetLogFields emits keys in.
var fieldOrder = []string{TraceIDKey, RequestIDKey, DispatchIDKey, ServiceNameKey}

type fieldsKey struct{}

// fields is never mutated after it is stored in a context.
type fields map[string]string

func withField(ctx context.Context, key, value string) context.Context {
	prev, _ := ctx.Value(fieldsKey{}).(fields)
	next := make(fields, len(prev)+1)
	for k, v := range prev {
		next[k] = v
	}
	next[key] = value
	return context.WithValue(ctx, fieldsKey{}, next)
}

func field(ctx context.Context, key string) string {
	f, _ := ctx.Value(fieldsKey{}).(fields)
	return f[key]
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return withField(ctx, TraceIDKey, traceID)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withField(ctx, RequestIDKey, requestID)
}

// WithDispatchID tags every log line of one dispatch so that the per-rule
// entries can be correlated with the summary line.
func WithDispatchID(ctx context.Context, dispatchID string) context.Context {
	return withField(ctx, DispatchIDKey, dispatchID)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return withField(ctx, ServiceNameKey, serviceName)
}

func GetTraceID(ctx context.Context) string     { return field(ctx, TraceIDKey) }
func GetRequestID(ctx context.Context) string   { return field(ctx, RequestIDKey) }
func GetDispatchID(ctx context.Context) string  { return field(ctx, DispatchIDKey) }
func GetServiceName(ctx context.Context) string { return field(ctx, ServiceNameKey) }

// GetLogFields returns the context's correlation fields as zap key-value
// pairs, skipping unset ones.
func GetLogFields(ctx context.Context) []interface{} {
	f, _ := ctx.Value(fieldsKey{}).(fields)
	out := make([]interface{}, 0, 2*len(f))
	for _, key := range fieldOrder {
		if v := f[key]; v != "" {
			out = append(out, key, v)
		}
	}
	return out
}
