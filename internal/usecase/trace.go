package usecase

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var usecaseTracer = otel.Tracer("fpl-livescore/internal/usecase")

// startUsecaseSpan only opens a child span. Background jobs without a parent
// request span stay untraced.
func startUsecaseSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	parent := trace.SpanFromContext(ctx)
	if name == "" || !parent.SpanContext().IsValid() {
		return ctx, parent
	}
	return usecaseTracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func leagueAttrs(leagueID int64, gameweek int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64("fpl.league_id", leagueID),
		attribute.Int("fpl.gameweek", gameweek),
	}
}

func entryAttrs(entryID int64, gameweek int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64("fpl.entry_id", entryID),
		attribute.Int("fpl.gameweek", gameweek),
	}
}
