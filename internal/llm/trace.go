package llm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/joelkehle/macro-onboarding/internal/llm"

type Traced struct {
	next     Completer
	provider string
	tracer   trace.Tracer
}

func WithTracing(next Completer, provider string) Completer {
	return &Traced{next: next, provider: provider, tracer: otel.Tracer(tracerName)}
}

func (t *Traced) Complete(ctx context.Context, req Request) (string, error) {
	ctx, span := t.tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		attribute.String("llm.provider", t.provider),
		attribute.Float64("llm.temperature", req.Temperature),
		attribute.Int("llm.history_len", len(req.History)),
	))
	defer span.End()

	out, err := t.next.Complete(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Classify(err).String())
		return "", err
	}
	span.SetAttributes(attribute.Int("llm.response_len", len(out)))
	return out, nil
}
