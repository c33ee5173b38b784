package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/fpl-livescore/internal/domain/fpl"
	"github.com/riskibarqy/fpl-livescore/internal/domain/snapshot"
	"github.com/riskibarqy/fpl-livescore/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/fpl-livescore/internal/platform/cache"
	"github.com/riskibarqy/fpl-livescore/internal/platform/logging"
	"github.com/riskibarqy/fpl-livescore/internal/usecase"
	"github.com/stretchr/testify/require"
)

const testJobToken = "sweep-secret"

// stubFPLClient serves gameweek 5 for league 314 with a single manager,
// entry 7, whose squad is elements 1..15.
type stubFPLClient struct {
	bootstrap   fpl.Bootstrap
	fixtures    []fpl.Fixture
	live        fpl.Live
	picks       fpl.EntryPicks
	history     fpl.EntryHistory
	unavailable bool
}

func newStubFPLClient() *stubFPLClient {
	types := [15]int{1, 2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 1, 2, 3, 4}
	c := &stubFPLClient{
		bootstrap: fpl.Bootstrap{Events: []fpl.Event{{ID: 5, Name: "Gameweek 5", IsCurrent: true}}},
		history:   fpl.EntryHistory{Current: []fpl.EventHistory{{Event: 4, TotalPoints: 100}}},
	}
	for i, et := range types {
		id := int64(i + 1)
		c.bootstrap.Elements = append(c.bootstrap.Elements, fpl.Element{ID: id, WebName: fmt.Sprintf("P%d", id), Team: id, ElementType: et})
		c.fixtures = append(c.fixtures, fpl.Fixture{ID: id, Event: 5, TeamH: id, TeamA: 100 + id, Started: true, FinishedProvisional: true})
		c.live.Elements = append(c.live.Elements, fpl.LiveElement{ID: id, Stats: fpl.LiveStats{Minutes: 90, TotalPoints: 2}})

		multiplier := 1
		if i >= 11 {
			multiplier = 0
		}
		if id == 10 {
			multiplier = 2
		}
		c.picks.Picks = append(c.picks.Picks, fpl.Pick{
			Element:       id,
			Position:      i + 1,
			Multiplier:    multiplier,
			IsCaptain:     id == 10,
			IsViceCaptain: id == 9,
		})
	}
	return c
}

func (c *stubFPLClient) fail() error {
	if c.unavailable {
		return fmt.Errorf("%w: upstream down", usecase.ErrDependencyUnavailable)
	}
	return nil
}

func (c *stubFPLClient) Bootstrap(context.Context, snapshot.FreshnessPolicy) (fpl.Bootstrap, error) {
	return c.bootstrap, nil
}

func (c *stubFPLClient) Fixtures(context.Context, int, snapshot.FreshnessPolicy) ([]fpl.Fixture, error) {
	return c.fixtures, nil
}

func (c *stubFPLClient) Live(context.Context, int, snapshot.FreshnessPolicy) (fpl.Live, error) {
	return c.live, nil
}

func (c *stubFPLClient) LeagueStandings(_ context.Context, leagueID int64, _ snapshot.FreshnessPolicy) (fpl.LeagueInfo, []fpl.LeagueEntry, error) {
	if leagueID != 314 {
		return fpl.LeagueInfo{}, nil, fmt.Errorf("%w: league %d", usecase.ErrNotFound, leagueID)
	}
	return fpl.LeagueInfo{ID: 314, Name: "Office"}, []fpl.LeagueEntry{{Entry: 7, PlayerName: "Dewi", EntryName: "Dewi FC"}}, nil
}

func (c *stubFPLClient) EntryPicks(context.Context, int64, int, snapshot.FreshnessPolicy) (fpl.EntryPicks, error) {
	return c.picks, c.fail()
}

func (c *stubFPLClient) EntryHistory(context.Context, int64, int, snapshot.FreshnessPolicy) (fpl.EntryHistory, error) {
	return c.history, c.fail()
}

func (c *stubFPLClient) TransferActivity(_ context.Context, entryID int64, gameweek int, _ bool) (fpl.TransferActivity, error) {
	return fpl.TransferActivity{EntryID: entryID, Gameweek: gameweek}, c.fail()
}

func (c *stubFPLClient) RawEntryPicks(context.Context, int64, int) ([]byte, error) {
	if err := c.fail(); err != nil {
		return nil, err
	}
	return sonic.Marshal(c.picks)
}

func (c *stubFPLClient) RawEntryHistory(context.Context, int64) ([]byte, error) {
	if err := c.fail(); err != nil {
		return nil, err
	}
	return sonic.Marshal(c.history)
}

func newTestRouter(t *testing.T, client *stubFPLClient) http.Handler {
	t.Helper()

	logger := logging.NewNop()
	store := cache.NewStore(memory.NewSnapshotRepository(), logger)
	sync := usecase.NewLeagueSyncService(client, store, 2, logger)
	scoringService := usecase.NewScoringService(client, sync, 2, logger)
	maintenance := usecase.NewMaintenanceService(scoringService, sync, store, cache.DefaultRetentionGameweeks, logger)
	handler := NewHandler(scoringService, usecase.NewLeagueService(client), maintenance, logger)

	return NewRouter(handler, logger, []string{"*"}, testJobToken)
}

type envelope struct {
	Data  map[string]any `json:"data"`
	Error *struct {
		Code   int    `json:"code"`
		Status string `json:"status"`
	} `json:"error"`
}

func serve(t *testing.T, router http.Handler, method, path string, header map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body envelope
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestRouter_CurrentGameweek(t *testing.T) {
	t.Parallel()

	rec, body := serve(t, newTestRouter(t, newStubFPLClient()), http.MethodGet, "/v1/gameweeks/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 5, body.Data["id"])
}

func TestRouter_LeagueScores(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, newStubFPLClient())
	rec, body := serve(t, router, http.MethodGet, "/v1/leagues/314/gameweeks/5/scores", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	table, ok := body.Data["table"].([]any)
	require.True(t, ok)
	require.Len(t, table, 1)
	row := table[0].(map[string]any)
	require.EqualValues(t, 7, row["entry_id"])
	// 11 starters on 2 points plus the captain's second share
	require.EqualValues(t, 24, row["gameweek_points"])
	require.EqualValues(t, 124, row["total_points"])
}

func TestRouter_PathValidation(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, newStubFPLClient())
	tests := []struct {
		name string
		path string
		want int
	}{
		{name: "non numeric league", path: "/v1/leagues/abc/gameweeks/5/scores", want: http.StatusBadRequest},
		{name: "zero gameweek", path: "/v1/leagues/314/gameweeks/0/scores", want: http.StatusBadRequest},
		{name: "gameweek past season", path: "/v1/entries/7/gameweeks/39/score", want: http.StatusBadRequest},
		{name: "unknown league", path: "/v1/leagues/999/gameweeks/5/captains", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := serve(t, router, http.MethodGet, tt.path, nil)
			require.Equal(t, tt.want, rec.Code)
			require.NotNil(t, body.Error)
			require.Equal(t, tt.want, body.Error.Code)
		})
	}
}

func TestRouter_EntryScoreUpstreamUnavailable(t *testing.T) {
	t.Parallel()

	client := newStubFPLClient()
	client.unavailable = true

	rec, body := serve(t, newTestRouter(t, client), http.MethodGet, "/v1/entries/7/gameweeks/5/score", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "UNAVAILABLE", body.Error.Status)
}

func TestRouter_PlayerOwners(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, newStubFPLClient())

	rec, body := serve(t, router, http.MethodGet, "/v1/leagues/314/gameweeks/5/players/10/owners", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1, body.Data["count"])
	owners, ok := body.Data["owners"].([]any)
	require.True(t, ok)
	require.Len(t, owners, 1)
	owner := owners[0].(map[string]any)
	require.EqualValues(t, 7, owner["entry_id"])
	require.Equal(t, true, owner["captain"])
	require.Equal(t, false, owner["benched"])

	rec, body = serve(t, router, http.MethodGet, "/v1/leagues/314/gameweeks/5/players/12/owners", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	owner = body.Data["owners"].([]any)[0].(map[string]any)
	require.Equal(t, true, owner["benched"])

	rec, _ = serve(t, router, http.MethodGet, "/v1/leagues/314/gameweeks/5/players/999/owners", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = serve(t, router, http.MethodGet, "/v1/leagues/314/gameweeks/5/players/0/owners", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_FindManagers(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/v1/leagues/314/managers?q=dewi", nil)
	rec := httptest.NewRecorder()
	newTestRouter(t, newStubFPLClient()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []managerMatchDTO `json:"data"`
	}
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, int64(7), body.Data[0].EntryID)
}

func TestRouter_CacheSweepRequiresToken(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, newStubFPLClient())

	rec, _ := serve(t, router, http.MethodPost, "/v1/internal/cache/sweep", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := serve(t, router, http.MethodPost, "/v1/internal/cache/sweep", map[string]string{"X-Internal-Job-Token": testJobToken})
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 5, body.Data["current_gameweek"])
}
