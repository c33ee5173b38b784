package httpapi

import "net/http"

func handle(mux *http.ServeMux, pattern string, h http.Handler) {
	mux.Handle(pattern, withRoute(pattern, h))
}

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	handle(mux, "GET /v1/gameweeks/current", http.HandlerFunc(handler.GetCurrentGameweek))

	handle(mux, "GET /v1/leagues/{leagueID}/gameweeks/{gameweek}/scores", http.HandlerFunc(handler.GetLeagueScores))
	handle(mux, "GET /v1/leagues/{leagueID}/gameweeks/{gameweek}/captains", http.HandlerFunc(handler.GetLeagueCaptains))
	handle(mux, "GET /v1/leagues/{leagueID}/gameweeks/{gameweek}/players/{elementID}/owners", http.HandlerFunc(handler.GetPlayerOwners))
	handle(mux, "GET /v1/leagues/{leagueID}/managers", http.HandlerFunc(handler.FindLeagueManagers))

	handle(mux, "GET /v1/entries/{entryID}/gameweeks/{gameweek}/score", http.HandlerFunc(handler.GetEntryScore))
	handle(mux, "GET /v1/entries/{entryID}/gameweeks/{gameweek}/transfers", http.HandlerFunc(handler.GetEntryTransfers))
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	handle(mux, "POST /v1/internal/cache/sweep",
		RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunCacheSweep)))
}
