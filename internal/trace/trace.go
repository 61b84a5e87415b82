package trace

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"sentiment-trader/internal/logger"
)

// Init turns span recording on through the logger, which owns the tracer provider.
func Init() error {
	cfg := logger.LoadConfigFromEnv()
	cfg.TracingEnabled = true
	return logger.InitWithConfig(cfg)
}

func Shutdown(ctx context.Context) error {
	return logger.Shutdown(ctx)
}

func StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return logger.StartSpan(ctx, spanName, opts...)
}

func Enabled() bool {
	return logger.IsTracingEnabled()
}

func GetTraceFields(ctx context.Context) (traceID, spanID string, ok bool) {
	if !Enabled() {
		return "", "", false
	}
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return "", "", false
	}
	return span.SpanContext().TraceID().String(),
		span.SpanContext().SpanID().String(),
		true
}
