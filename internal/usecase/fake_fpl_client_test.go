package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/fpl-livescore/internal/domain/fpl"
	"github.com/riskibarqy/fpl-livescore/internal/domain/snapshot"
	"github.com/riskibarqy/fpl-livescore/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/fpl-livescore/internal/platform/cache"
	"github.com/riskibarqy/fpl-livescore/internal/platform/logging"
)

// fakeFPLClient serves a fixed gameweek 5 world: elements 1..15 each play
// for their own team, every match is over and element n scored n points.
type fakeFPLClient struct {
	mu        sync.Mutex
	bootstrap fpl.Bootstrap
	fixtures  []fpl.Fixture
	live      fpl.Live
	league    fpl.LeagueInfo
	members   []fpl.LeagueEntry
	picks     map[int64]fpl.EntryPicks
	history   map[int64]fpl.EntryHistory
	transfers map[int64][]fpl.Transfer
	failing   map[int64]error

	rawCalls   atomic.Int32
	entryCalls atomic.Int32
}

var elementTypes = [15]int{1, 2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 1, 2, 3, 4}

func newFakeFPLClient() *fakeFPLClient {
	f := &fakeFPLClient{
		bootstrap: fpl.Bootstrap{Events: []fpl.Event{
			{ID: 4, Finished: true, IsPrevious: true},
			{ID: 5, IsCurrent: true},
		}},
		league:    fpl.LeagueInfo{ID: 314, Name: "Office"},
		picks:     map[int64]fpl.EntryPicks{},
		history:   map[int64]fpl.EntryHistory{},
		transfers: map[int64][]fpl.Transfer{},
		failing:   map[int64]error{},
	}
	for i, et := range elementTypes {
		id := int64(i + 1)
		f.bootstrap.Elements = append(f.bootstrap.Elements, fpl.Element{
			ID:          id,
			WebName:     fmt.Sprintf("Player%d", id),
			Team:        id,
			ElementType: et,
		})
		f.fixtures = append(f.fixtures, fpl.Fixture{
			ID:                  id,
			Event:               5,
			TeamH:               id,
			TeamA:               100 + id,
			Started:             true,
			Finished:            true,
			FinishedProvisional: true,
		})
		f.live.Elements = append(f.live.Elements, fpl.LiveElement{
			ID:    id,
			Stats: fpl.LiveStats{Minutes: 90, TotalPoints: int(id)},
		})
	}
	return f
}

// addManager registers a member whose squad is elements 1..15 in slot order.
func (f *fakeFPLClient) addManager(entry int64, name string, captain, vice int64, cost, priorTotal int) {
	picks := make([]fpl.Pick, 0, 15)
	for slot := 1; slot <= 15; slot++ {
		id := int64(slot)
		multiplier := 1
		if slot > 11 {
			multiplier = 0
		}
		if id == captain {
			multiplier = 2
		}
		picks = append(picks, fpl.Pick{
			Element:       id,
			Position:      slot,
			Multiplier:    multiplier,
			IsCaptain:     id == captain,
			IsViceCaptain: id == vice,
		})
	}

	f.members = append(f.members, fpl.LeagueEntry{Entry: entry, PlayerName: name, EntryName: name + " XI"})
	f.picks[entry] = fpl.EntryPicks{
		Picks:        picks,
		EntryHistory: fpl.EventHistory{Event: 5, EventTransfersCost: cost},
	}
	f.history[entry] = fpl.EntryHistory{Current: []fpl.EventHistory{{Event: 4, TotalPoints: priorTotal}}}
}

// setFailing makes every request for entry fail as if upstream were down.
func (f *fakeFPLClient) setFailing(entry int64, failing bool) {
	var err error
	if failing {
		err = fmt.Errorf("%w: entry %d", ErrDependencyUnavailable, entry)
	}
	f.setFailure(entry, err)
}

// setRejected makes upstream answer 404 for entry, like a manager who
// joined the league after the gameweek.
func (f *fakeFPLClient) setRejected(entry int64) {
	f.setFailure(entry, fmt.Errorf("%w: entry %d", ErrNotFound, entry))
}

func (f *fakeFPLClient) setFailure(entry int64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failing, entry)
		return
	}
	f.failing[entry] = err
}

func (f *fakeFPLClient) failure(entry int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failing[entry]
}

func (f *fakeFPLClient) Bootstrap(context.Context, snapshot.FreshnessPolicy) (fpl.Bootstrap, error) {
	return f.bootstrap, nil
}

func (f *fakeFPLClient) Fixtures(context.Context, int, snapshot.FreshnessPolicy) ([]fpl.Fixture, error) {
	return f.fixtures, nil
}

func (f *fakeFPLClient) Live(context.Context, int, snapshot.FreshnessPolicy) (fpl.Live, error) {
	return f.live, nil
}

func (f *fakeFPLClient) LeagueStandings(_ context.Context, leagueID int64, _ snapshot.FreshnessPolicy) (fpl.LeagueInfo, []fpl.LeagueEntry, error) {
	if leagueID != f.league.ID {
		return fpl.LeagueInfo{}, nil, fmt.Errorf("%w: league %d", ErrNotFound, leagueID)
	}
	return f.league, f.members, nil
}

func (f *fakeFPLClient) EntryPicks(_ context.Context, entryID int64, _ int, _ snapshot.FreshnessPolicy) (fpl.EntryPicks, error) {
	f.entryCalls.Add(1)
	if err := f.failure(entryID); err != nil {
		return fpl.EntryPicks{}, err
	}
	return f.picks[entryID], nil
}

func (f *fakeFPLClient) EntryHistory(_ context.Context, entryID int64, _ int, _ snapshot.FreshnessPolicy) (fpl.EntryHistory, error) {
	f.entryCalls.Add(1)
	if err := f.failure(entryID); err != nil {
		return fpl.EntryHistory{}, err
	}
	return f.history[entryID], nil
}

func (f *fakeFPLClient) TransferActivity(_ context.Context, entryID int64, gameweek int, _ bool) (fpl.TransferActivity, error) {
	return fpl.TransferActivity{
		EntryID:   entryID,
		Gameweek:  gameweek,
		Transfers: fpl.TransfersFor(f.transfers[entryID], gameweek),
	}, nil
}

func (f *fakeFPLClient) RawEntryPicks(_ context.Context, entryID int64, _ int) ([]byte, error) {
	f.rawCalls.Add(1)
	if err := f.failure(entryID); err != nil {
		return nil, err
	}
	return sonic.Marshal(f.picks[entryID])
}

func (f *fakeFPLClient) RawEntryHistory(_ context.Context, entryID int64) ([]byte, error) {
	f.rawCalls.Add(1)
	if err := f.failure(entryID); err != nil {
		return nil, err
	}
	return sonic.Marshal(f.history[entryID])
}

func newTestStore() (*cache.Store, *memory.SnapshotRepository) {
	repo := memory.NewSnapshotRepository()
	return cache.NewStore(repo, logging.NewNop()), repo
}
