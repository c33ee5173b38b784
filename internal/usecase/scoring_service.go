package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/riskibarqy/fpl-livescore/internal/domain/fpl"
	"github.com/riskibarqy/fpl-livescore/internal/domain/player"
	"github.com/riskibarqy/fpl-livescore/internal/domain/scoring"
	"github.com/riskibarqy/fpl-livescore/internal/domain/snapshot"
	"github.com/riskibarqy/fpl-livescore/internal/platform/logging"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
)

const defaultScoringWorkers = 16

type ScoringService struct {
	client     FPLClient
	sync       *LeagueSyncService
	maxWorkers int
	logger     *logging.Logger
}

func NewScoringService(client FPLClient, sync *LeagueSyncService, maxWorkers int, logger *logging.Logger) *ScoringService {
	if logger == nil {
		logger = logging.Default()
	}
	if maxWorkers <= 0 {
		maxWorkers = defaultScoringWorkers
	}
	return &ScoringService{
		client:     client,
		sync:       sync,
		maxWorkers: maxWorkers,
		logger:     logger.Named("scoring"),
	}
}

// GameweekContext is the shared gameweek state every manager is scored
// against.
type GameweekContext struct {
	Event    fpl.Event
	Finished bool
	Live     map[int64]fpl.LiveStats
	Players  map[int64]player.Player
	Fixtures []fpl.Fixture
	Bonus    map[int64]int
}

// ScoreManagerInput carries everything needed to score one manager. Picks
// and History are optional; when nil they are fetched for this manager.
type ScoreManagerInput struct {
	Manager  fpl.LeagueEntry
	Gameweek int
	Live     map[int64]fpl.LiveStats
	Players  map[int64]player.Player
	Fixtures []fpl.Fixture
	Finished bool
	Picks    *fpl.EntryPicks
	History  *fpl.EntryHistory
}

func (s *ScoringService) CurrentGameweek(ctx context.Context) (fpl.Event, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.CurrentGameweek")
	defer span.End()

	bootstrap, err := s.client.Bootstrap(ctx, snapshot.PolicyCached)
	if err != nil {
		return fpl.Event{}, fmt.Errorf("load bootstrap: %w", err)
	}
	event, ok := bootstrap.CurrentEvent()
	if !ok {
		return fpl.Event{}, fmt.Errorf("%w: no current gameweek", ErrNotFound)
	}
	return event, nil
}

// LoadGameweek fetches bootstrap, fixtures and live stats for gameweek.
func (s *ScoringService) LoadGameweek(ctx context.Context, gameweek int) (GameweekContext, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.LoadGameweek")
	defer span.End()

	if err := validateGameweek(gameweek); err != nil {
		return GameweekContext{}, err
	}

	bootstrap, err := s.client.Bootstrap(ctx, snapshot.PolicyCached)
	if err != nil {
		return GameweekContext{}, fmt.Errorf("load bootstrap: %w", err)
	}
	event, ok := bootstrap.Event(gameweek)
	if !ok {
		return GameweekContext{}, fmt.Errorf("%w: gameweek %d", ErrNotFound, gameweek)
	}

	policy := snapshot.PolicyFor(event.Finished)
	var (
		fixtures    []fpl.Fixture
		live        fpl.Live
		fixturesErr error
		liveErr     error
		wg          conc.WaitGroup
	)
	wg.Go(func() {
		fixtures, fixturesErr = s.client.Fixtures(ctx, gameweek, policy)
	})
	wg.Go(func() {
		live, liveErr = s.client.Live(ctx, gameweek, policy)
	})
	wg.Wait()

	if fixturesErr != nil {
		return GameweekContext{}, fmt.Errorf("load fixtures gw=%d: %w", gameweek, fixturesErr)
	}
	if liveErr != nil {
		return GameweekContext{}, fmt.Errorf("load live gw=%d: %w", gameweek, liveErr)
	}

	return GameweekContext{
		Event:    event,
		Finished: event.Finished,
		Live:     live.StatsByElement(),
		Players:  bootstrap.Players(),
		Fixtures: fixtures,
		Bonus:    scoring.PredictBonus(fixtures),
	}, nil
}

// ScoreManager scores one manager. The bool is false when the manager's
// picks or history could not be obtained this cycle; that is not an error.
func (s *ScoringService) ScoreManager(ctx context.Context, input ScoreManagerInput) (scoring.Result, bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.ScoreManager", entryAttrs(input.Manager.Entry, input.Gameweek)...)
	defer span.End()

	if err := requirePositiveID("manager entry", input.Manager.Entry); err != nil {
		return scoring.Result{}, false, err
	}
	if err := validateGameweek(input.Gameweek); err != nil {
		return scoring.Result{}, false, err
	}

	gw := GameweekContext{
		Event:    fpl.Event{ID: input.Gameweek, Finished: input.Finished},
		Finished: input.Finished,
		Live:     input.Live,
		Players:  input.Players,
		Fixtures: input.Fixtures,
		Bonus:    scoring.PredictBonus(input.Fixtures),
	}
	return s.scoreManager(ctx, gw, input.Manager.Entry, input.Picks, input.History)
}

func (s *ScoringService) scoreManager(ctx context.Context, gw GameweekContext, entryID int64, picks *fpl.EntryPicks, history *fpl.EntryHistory) (scoring.Result, bool, error) {
	if picks == nil || history == nil {
		fetchedPicks, fetchedHistory, err := s.fetchManager(ctx, entryID, gw.Event.ID, gw.Finished)
		if err != nil {
			s.logger.WarnContext(ctx, "manager data unavailable", "entry_id", entryID, "gameweek", gw.Event.ID, "error", err)
			return scoring.Result{}, false, nil
		}
		if picks == nil {
			picks = &fetchedPicks
		}
		if history == nil {
			history = &fetchedHistory
		}
	}
	if len(picks.Picks) == 0 {
		return scoring.Result{}, false, nil
	}

	return Score(gw, entryID, *picks, *history), true, nil
}

// fetchManager loads picks and history together and returns once both
// have resolved.
func (s *ScoringService) fetchManager(ctx context.Context, entryID int64, gameweek int, finished bool) (fpl.EntryPicks, fpl.EntryHistory, error) {
	policy := snapshot.PolicyFor(finished)
	var (
		picks      fpl.EntryPicks
		history    fpl.EntryHistory
		picksErr   error
		historyErr error
		wg         conc.WaitGroup
	)
	wg.Go(func() {
		picks, picksErr = s.client.EntryPicks(ctx, entryID, gameweek, policy)
	})
	wg.Go(func() {
		history, historyErr = s.client.EntryHistory(ctx, entryID, gameweek, policy)
	})
	wg.Wait()

	if picksErr != nil {
		return fpl.EntryPicks{}, fpl.EntryHistory{}, fmt.Errorf("load picks entry=%d gw=%d: %w", entryID, gameweek, picksErr)
	}
	if historyErr != nil {
		return fpl.EntryPicks{}, fpl.EntryHistory{}, fmt.Errorf("load history entry=%d: %w", entryID, historyErr)
	}
	return picks, history, nil
}

// Score runs substitution resolution and aggregation for one manager.
func Score(gw GameweekContext, entryID int64, picks fpl.EntryPicks, history fpl.EntryHistory) scoring.Result {
	resolution := scoring.ResolveSubstitutions(scoring.SubstitutionInput{
		Picks:         picks.Picks,
		Players:       gw.Players,
		Live:          gw.Live,
		Fixtures:      gw.Fixtures,
		Chip:          picks.ActiveChip,
		Finalized:     gw.Finished,
		AutomaticSubs: picks.AutomaticSubs,
	})

	return scoring.Aggregate(scoring.AggregateInput{
		ManagerID:      entryID,
		Gameweek:       gw.Event.ID,
		Squad:          picks.Picks,
		Resolution:     resolution,
		Live:           gw.Live,
		PredictedBonus: gw.Bonus,
		Chip:           picks.ActiveChip,
		TransferCost:   picks.EntryHistory.EventTransfersCost,
		PriorTotal:     scoring.PriorTotal(history, picks.EntryHistory, gw.Event.ID),
		OfficialPoints: picks.EntryHistory.Points,
	})
}

// ScoreEntry scores a single manager on demand. Unlike ScoreManager it
// surfaces upstream failures to the caller.
func (s *ScoringService) ScoreEntry(ctx context.Context, entryID int64, gameweek int) (scoring.Result, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.ScoreEntry", entryAttrs(entryID, gameweek)...)
	defer span.End()

	if err := requirePositiveID("entry id", entryID); err != nil {
		return scoring.Result{}, err
	}

	gw, err := s.LoadGameweek(ctx, gameweek)
	if err != nil {
		return scoring.Result{}, err
	}
	picks, history, err := s.fetchManager(ctx, entryID, gameweek, gw.Finished)
	if err != nil {
		return scoring.Result{}, err
	}
	if len(picks.Picks) == 0 {
		return scoring.Result{}, fmt.Errorf("%w: no picks for entry=%d gw=%d", ErrNotFound, entryID, gameweek)
	}
	return Score(gw, entryID, picks, history), nil
}

// LeagueScores is the live score of every league member that could be
// scored this cycle.
type LeagueScores struct {
	LeagueID int64                     `json:"league_id"`
	Name     string                    `json:"name"`
	Gameweek int                       `json:"gameweek"`
	Finished bool                      `json:"finished"`
	Results  map[int64]scoring.Result  `json:"results"`
	Managers map[int64]fpl.LeagueEntry `json:"-"`
	Skipped  []int64                   `json:"skipped,omitempty"`
}

type LeagueTableRow struct {
	Rank           int    `json:"rank"`
	EntryID        int64  `json:"entry_id"`
	PlayerName     string `json:"player_name"`
	EntryName      string `json:"entry_name"`
	GameweekPoints int    `json:"gameweek_points"`
	TotalPoints    int    `json:"total_points"`
	PlayersPlayed  int    `json:"players_played"`
	ActiveChip     string `json:"active_chip,omitempty"`
}

// Table orders results by live total, then gameweek points, then entry id.
func (l LeagueScores) Table() []LeagueTableRow {
	rows := make([]LeagueTableRow, 0, len(l.Results))
	for id, res := range l.Results {
		member := l.Managers[id]
		rows = append(rows, LeagueTableRow{
			EntryID:        id,
			PlayerName:     member.PlayerName,
			EntryName:      member.EntryName,
			GameweekPoints: res.GameweekPoints,
			TotalPoints:    res.TotalPoints,
			PlayersPlayed:  res.PlayersPlayed,
			ActiveChip:     string(res.ActiveChip),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TotalPoints != rows[j].TotalPoints {
			return rows[i].TotalPoints > rows[j].TotalPoints
		}
		if rows[i].GameweekPoints != rows[j].GameweekPoints {
			return rows[i].GameweekPoints > rows[j].GameweekPoints
		}
		return rows[i].EntryID < rows[j].EntryID
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

// ScoreLeague scores every member of a classic league. Members whose data
// is unavailable are listed in Skipped instead of failing the league.
func (s *ScoringService) ScoreLeague(ctx context.Context, leagueID int64, gameweek int) (LeagueScores, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.ScoreLeague", leagueAttrs(leagueID, gameweek)...)
	defer span.End()

	if err := requirePositiveID("league id", leagueID); err != nil {
		return LeagueScores{}, err
	}

	gw, err := s.LoadGameweek(ctx, gameweek)
	if err != nil {
		return LeagueScores{}, err
	}

	info, members, err := s.client.LeagueStandings(ctx, leagueID, snapshot.PolicyCached)
	if err != nil {
		return LeagueScores{}, fmt.Errorf("load league %d: %w", leagueID, err)
	}

	var (
		picksByEntry   map[int64]fpl.EntryPicks
		historyByEntry map[int64]fpl.EntryHistory
		picksStats     SyncStats
		historyStats   SyncStats
		picksErr       error
		historyErr     error
		wg             conc.WaitGroup
	)
	wg.Go(func() {
		picksByEntry, picksStats, picksErr = s.sync.SyncLeaguePicks(ctx, leagueID, gameweek, gw.Finished)
	})
	wg.Go(func() {
		historyByEntry, historyStats, historyErr = s.sync.SyncLeagueHistory(ctx, leagueID, gameweek, gw.Finished)
	})
	wg.Wait()

	// A failed bulk sync degrades to per-manager fetches. A complete one
	// already holds everything upstream will give, so members missing from
	// it are skipped without another request.
	if picksErr != nil {
		s.logger.WarnContext(ctx, "league picks sync failed", "league_id", leagueID, "gameweek", gameweek, "error", picksErr)
	}
	if historyErr != nil {
		s.logger.WarnContext(ctx, "league history sync failed", "league_id", leagueID, "gameweek", gameweek, "error", historyErr)
	}
	picksFinal := picksErr == nil && picksStats.Complete()
	historyFinal := historyErr == nil && historyStats.Complete()

	type scored struct {
		entryID int64
		result  scoring.Result
		ok      bool
	}

	p := pool.NewWithResults[scored]().WithMaxGoroutines(s.maxWorkers)
	for _, member := range members {
		member := member
		p.Go(func() scored {
			var picks *fpl.EntryPicks
			if v, ok := picksByEntry[member.Entry]; ok {
				picks = &v
			}
			var history *fpl.EntryHistory
			if v, ok := historyByEntry[member.Entry]; ok {
				history = &v
			}
			if (picks == nil && picksFinal) || (history == nil && historyFinal) {
				return scored{entryID: member.Entry}
			}
			res, ok, _ := s.scoreManager(ctx, gw, member.Entry, picks, history)
			return scored{entryID: member.Entry, result: res, ok: ok}
		})
	}

	out := LeagueScores{
		LeagueID: leagueID,
		Name:     info.Name,
		Gameweek: gameweek,
		Finished: gw.Finished,
		Results:  make(map[int64]scoring.Result, len(members)),
		Managers: make(map[int64]fpl.LeagueEntry, len(members)),
	}
	for _, member := range members {
		out.Managers[member.Entry] = member
	}
	for _, row := range p.Wait() {
		if !row.ok {
			out.Skipped = append(out.Skipped, row.entryID)
			continue
		}
		out.Results[row.entryID] = row.result
	}
	sort.Slice(out.Skipped, func(i, j int) bool { return out.Skipped[i] < out.Skipped[j] })

	return out, nil
}

type CaptainChoice struct {
	Element  int64    `json:"element"`
	WebName  string   `json:"web_name"`
	Count    int      `json:"count"`
	Managers []string `json:"managers"`
}

// CaptainSummary counts captain choices across a league, most popular first.
func (s *ScoringService) CaptainSummary(ctx context.Context, leagueID int64, gameweek int) ([]CaptainChoice, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.CaptainSummary", leagueAttrs(leagueID, gameweek)...)
	defer span.End()

	if err := requirePositiveID("league id", leagueID); err != nil {
		return nil, err
	}

	bootstrap, err := s.client.Bootstrap(ctx, snapshot.PolicyCached)
	if err != nil {
		return nil, fmt.Errorf("load bootstrap: %w", err)
	}
	event, ok := bootstrap.Event(gameweek)
	if !ok {
		return nil, fmt.Errorf("%w: gameweek %d", ErrNotFound, gameweek)
	}

	_, members, err := s.client.LeagueStandings(ctx, leagueID, snapshot.PolicyCached)
	if err != nil {
		return nil, fmt.Errorf("load league %d: %w", leagueID, err)
	}
	picksByEntry, _, err := s.sync.SyncLeaguePicks(ctx, leagueID, gameweek, event.Finished)
	if err != nil {
		return nil, err
	}

	players := bootstrap.Players()
	byElement := make(map[int64]*CaptainChoice)
	for _, member := range members {
		picks, ok := picksByEntry[member.Entry]
		if !ok {
			continue
		}
		captain, ok := picks.Captain()
		if !ok {
			continue
		}
		choice, exists := byElement[captain.Element]
		if !exists {
			choice = &CaptainChoice{Element: captain.Element, WebName: players[captain.Element].WebName}
			byElement[captain.Element] = choice
		}
		choice.Count++
		choice.Managers = append(choice.Managers, member.PlayerName)
	}

	out := make([]CaptainChoice, 0, len(byElement))
	for _, choice := range byElement {
		sort.Strings(choice.Managers)
		out = append(out, *choice)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Element < out[j].Element
	})
	return out, nil
}

// PlayerOwner is one league member who has a given player in their squad.
type PlayerOwner struct {
	EntryID    int64  `json:"entry_id"`
	PlayerName string `json:"player_name"`
	EntryName  string `json:"entry_name"`
	Benched    bool   `json:"benched"`
	Captain    bool   `json:"captain"`
	Multiplier int    `json:"multiplier"`
}

type PlayerOwnership struct {
	Element  int64         `json:"element"`
	WebName  string        `json:"web_name"`
	FullName string        `json:"full_name"`
	Gameweek int           `json:"gameweek"`
	Count    int           `json:"count"`
	Owners   []PlayerOwner `json:"owners"`
}

// PlayerOwnership lists the league members who picked elementID for
// gameweek, starters before bench, then by manager name.
func (s *ScoringService) PlayerOwnership(ctx context.Context, leagueID int64, gameweek int, elementID int64) (PlayerOwnership, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.PlayerOwnership", leagueAttrs(leagueID, gameweek)...)
	defer span.End()

	if err := requirePositiveID("league id", leagueID); err != nil {
		return PlayerOwnership{}, err
	}
	if err := requirePositiveID("element id", elementID); err != nil {
		return PlayerOwnership{}, err
	}
	if err := validateGameweek(gameweek); err != nil {
		return PlayerOwnership{}, err
	}

	bootstrap, err := s.client.Bootstrap(ctx, snapshot.PolicyCached)
	if err != nil {
		return PlayerOwnership{}, fmt.Errorf("load bootstrap: %w", err)
	}
	element, ok := bootstrap.Element(elementID)
	if !ok {
		return PlayerOwnership{}, fmt.Errorf("%w: player %d", ErrNotFound, elementID)
	}
	event, ok := bootstrap.Event(gameweek)
	if !ok {
		return PlayerOwnership{}, fmt.Errorf("%w: gameweek %d", ErrNotFound, gameweek)
	}

	_, members, err := s.client.LeagueStandings(ctx, leagueID, snapshot.PolicyCached)
	if err != nil {
		return PlayerOwnership{}, fmt.Errorf("load league %d: %w", leagueID, err)
	}
	picksByEntry, _, err := s.sync.SyncLeaguePicks(ctx, leagueID, gameweek, event.Finished)
	if err != nil {
		return PlayerOwnership{}, err
	}

	out := PlayerOwnership{
		Element:  element.ID,
		WebName:  element.WebName,
		FullName: element.FullName(),
		Gameweek: gameweek,
		Owners:   []PlayerOwner{},
	}
	for _, member := range members {
		picks, ok := picksByEntry[member.Entry]
		if !ok {
			continue
		}
		for _, pick := range picks.Picks {
			if pick.Element != elementID {
				continue
			}
			out.Owners = append(out.Owners, PlayerOwner{
				EntryID:    member.Entry,
				PlayerName: member.PlayerName,
				EntryName:  member.EntryName,
				Benched:    !pick.IsStarter(),
				Captain:    pick.IsCaptain,
				Multiplier: pick.Multiplier,
			})
			break
		}
	}
	sort.SliceStable(out.Owners, func(i, j int) bool {
		if out.Owners[i].Benched != out.Owners[j].Benched {
			return !out.Owners[i].Benched
		}
		if out.Owners[i].PlayerName != out.Owners[j].PlayerName {
			return out.Owners[i].PlayerName < out.Owners[j].PlayerName
		}
		return out.Owners[i].EntryID < out.Owners[j].EntryID
	})
	out.Count = len(out.Owners)
	return out, nil
}

// TransferActivity returns a manager's transfers for gameweek.
func (s *ScoringService) TransferActivity(ctx context.Context, entryID int64, gameweek int) (fpl.TransferActivity, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.TransferActivity", entryAttrs(entryID, gameweek)...)
	defer span.End()

	if err := requirePositiveID("entry id", entryID); err != nil {
		return fpl.TransferActivity{}, err
	}

	bootstrap, err := s.client.Bootstrap(ctx, snapshot.PolicyCached)
	if err != nil {
		return fpl.TransferActivity{}, fmt.Errorf("load bootstrap: %w", err)
	}
	event, ok := bootstrap.Event(gameweek)
	if !ok {
		return fpl.TransferActivity{}, fmt.Errorf("%w: gameweek %d", ErrNotFound, gameweek)
	}

	return s.client.TransferActivity(ctx, entryID, gameweek, event.Finished)
}
