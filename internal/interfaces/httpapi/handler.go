package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/fpl-livescore/internal/platform/logging"
	"github.com/riskibarqy/fpl-livescore/internal/usecase"
)

type Handler struct {
	scoringService     *usecase.ScoringService
	leagueService      *usecase.LeagueService
	maintenanceService *usecase.MaintenanceService
	logger             *logging.Logger
	validator          *validator.Validate
}

func NewHandler(
	scoringService *usecase.ScoringService,
	leagueService *usecase.LeagueService,
	maintenanceService *usecase.MaintenanceService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		scoringService:     scoringService,
		leagueService:      leagueService,
		maintenanceService: maintenanceService,
		logger:             logger.Named("httpapi"),
		validator:          validator.New(),
	}
}

type leagueGameweekRequest struct {
	LeagueID int64 `validate:"required,gt=0"`
	Gameweek int   `validate:"required,gt=0,lte=38"`
}

type entryGameweekRequest struct {
	EntryID  int64 `validate:"required,gt=0"`
	Gameweek int   `validate:"required,gt=0,lte=38"`
}

type playerOwnersRequest struct {
	LeagueID  int64 `validate:"required,gt=0"`
	Gameweek  int   `validate:"required,gt=0,lte=38"`
	ElementID int64 `validate:"required,gt=0"`
}

type findManagersRequest struct {
	LeagueID int64  `validate:"required,gt=0"`
	Query    string `validate:"max=100"`
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func pathInt64(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.PathValue(name))
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", usecase.ErrInvalidInput, name)
	}
	return value, nil
}

func pathInt(r *http.Request, name string) (int, error) {
	value, err := pathInt64(r, name)
	return int(value), err
}

func (h *Handler) parseLeagueGameweek(ctx context.Context, r *http.Request) (leagueGameweekRequest, error) {
	leagueID, err := pathInt64(r, "leagueID")
	if err != nil {
		return leagueGameweekRequest{}, err
	}
	gameweek, err := pathInt(r, "gameweek")
	if err != nil {
		return leagueGameweekRequest{}, err
	}
	req := leagueGameweekRequest{LeagueID: leagueID, Gameweek: gameweek}
	if err := h.validateRequest(ctx, req); err != nil {
		return leagueGameweekRequest{}, err
	}
	return req, nil
}

func (h *Handler) parseEntryGameweek(ctx context.Context, r *http.Request) (entryGameweekRequest, error) {
	entryID, err := pathInt64(r, "entryID")
	if err != nil {
		return entryGameweekRequest{}, err
	}
	gameweek, err := pathInt(r, "gameweek")
	if err != nil {
		return entryGameweekRequest{}, err
	}
	req := entryGameweekRequest{EntryID: entryID, Gameweek: gameweek}
	if err := h.validateRequest(ctx, req); err != nil {
		return entryGameweekRequest{}, err
	}
	return req, nil
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) GetCurrentGameweek(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetCurrentGameweek")
	defer span.End()

	event, err := h.scoringService.CurrentGameweek(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "get current gameweek failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, gameweekDTO{
		ID:          event.ID,
		Name:        event.Name,
		Deadline:    event.DeadlineTime,
		Finished:    event.Finished,
		DataChecked: event.DataChecked,
	})
}

func (h *Handler) GetLeagueScores(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetLeagueScores")
	defer span.End()

	req, err := h.parseLeagueGameweek(ctx, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	scores, err := h.scoringService.ScoreLeague(ctx, req.LeagueID, req.Gameweek)
	if err != nil {
		h.logger.WarnContext(ctx, "score league failed", "league_id", req.LeagueID, "gameweek", req.Gameweek, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, leagueScoresToDTO(scores))
}

func (h *Handler) GetLeagueCaptains(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetLeagueCaptains")
	defer span.End()

	req, err := h.parseLeagueGameweek(ctx, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	choices, err := h.scoringService.CaptainSummary(ctx, req.LeagueID, req.Gameweek)
	if err != nil {
		h.logger.WarnContext(ctx, "captain summary failed", "league_id", req.LeagueID, "gameweek", req.Gameweek, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, choices)
}

func (h *Handler) GetPlayerOwners(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPlayerOwners")
	defer span.End()

	league, err := h.parseLeagueGameweek(ctx, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	elementID, err := pathInt64(r, "elementID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	req := playerOwnersRequest{LeagueID: league.LeagueID, Gameweek: league.Gameweek, ElementID: elementID}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	ownership, err := h.scoringService.PlayerOwnership(ctx, req.LeagueID, req.Gameweek, req.ElementID)
	if err != nil {
		h.logger.WarnContext(ctx, "player ownership failed",
			"league_id", req.LeagueID,
			"gameweek", req.Gameweek,
			"element_id", req.ElementID,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, ownership)
}

func (h *Handler) FindLeagueManagers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.FindLeagueManagers")
	defer span.End()

	leagueID, err := pathInt64(r, "leagueID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	req := findManagersRequest{LeagueID: leagueID, Query: strings.TrimSpace(r.URL.Query().Get("q"))}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	matches, err := h.leagueService.FindManagers(ctx, req.LeagueID, req.Query)
	if err != nil {
		h.logger.WarnContext(ctx, "find managers failed", "league_id", req.LeagueID, "query", req.Query, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]managerMatchDTO, 0, len(matches))
	for _, m := range matches {
		items = append(items, managerMatchDTO{
			EntryID:    m.Entry.Entry,
			PlayerName: m.Entry.PlayerName,
			EntryName:  m.Entry.EntryName,
			Rank:       m.Entry.Rank,
			Total:      m.Entry.Total,
			Score:      m.Score,
		})
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetEntryScore(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetEntryScore")
	defer span.End()

	req, err := h.parseEntryGameweek(ctx, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.scoringService.ScoreEntry(ctx, req.EntryID, req.Gameweek)
	if err != nil {
		h.logger.WarnContext(ctx, "score entry failed", "entry_id", req.EntryID, "gameweek", req.Gameweek, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) GetEntryTransfers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetEntryTransfers")
	defer span.End()

	req, err := h.parseEntryGameweek(ctx, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	activity, err := h.scoringService.TransferActivity(ctx, req.EntryID, req.Gameweek)
	if err != nil {
		h.logger.WarnContext(ctx, "transfer activity failed", "entry_id", req.EntryID, "gameweek", req.Gameweek, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, activity)
}

func (h *Handler) RunCacheSweep(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunCacheSweep")
	defer span.End()

	if h.maintenanceService == nil {
		writeError(ctx, w, fmt.Errorf("%w: maintenance service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	result, err := h.maintenanceService.SweepCache(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "cache sweep failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}
