package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestWithRoute_RenamesServerSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	handler := withRoute("GET /v1/leagues/{leagueID}/gameweeks/{gameweek}/scores",
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	ctx, span := provider.Tracer("test").Start(context.Background(), "HTTP GET")
	req := httptest.NewRequest(http.MethodGet, "/v1/leagues/314/gameweeks/5/scores", nil).WithContext(ctx)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	require.Equal(t, "GET /v1/leagues/{leagueID}/gameweeks/{gameweek}/scores", ended[0].Name())

	var route string
	for _, attr := range ended[0].Attributes() {
		if attr.Key == "http.route" {
			route = attr.Value.AsString()
		}
	}
	require.Equal(t, "/v1/leagues/{leagueID}/gameweeks/{gameweek}/scores", route)
}

func TestStartSpan_NoParentIsNoop(t *testing.T) {
	ctx, span := startSpan(context.Background(), "httpapi.Handler.GetLeagueScores")
	defer span.End()

	require.False(t, span.SpanContext().IsValid())
	require.Equal(t, context.Background(), ctx)
}
