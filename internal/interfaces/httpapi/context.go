package httpapi

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

func traceMetaFromContext(ctx context.Context) (string, string) {
	spanContext := trace.SpanContextFromContext(ctx)
	if !spanContext.IsValid() {
		return "", ""
	}
	return spanContext.TraceID().String(), spanContext.SpanID().String()
}
