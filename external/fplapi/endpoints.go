package fplapi

import (
	"context"
	"fmt"
	"strconv"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/fpl-livescore/internal/domain/fpl"
	"github.com/riskibarqy/fpl-livescore/internal/domain/snapshot"
	"github.com/riskibarqy/fpl-livescore/internal/platform/cache"
	"github.com/sourcegraph/conc"
)

// maxStandingsPages caps league roster pagination at 50 rows per page.
const maxStandingsPages = 40

// Request describes one cacheable upstream resource.
type Request struct {
	Path     string
	Category snapshot.Category
	Scope    string
	Gameweek int
	Policy   snapshot.FreshnessPolicy
	// Permanent keeps a forced refresh of finished data from expiring.
	Permanent bool
}

func (r Request) Key() string {
	return snapshot.Key(r.Category, r.Scope, r.Gameweek)
}

// Fetch serves req from the snapshot cache when its policy allows and
// otherwise goes to the network, writing a successful body through.
func (c *Client) Fetch(ctx context.Context, req Request) ([]byte, error) {
	if c.cache == nil {
		return c.Get(ctx, req.Path)
	}
	return c.cache.GetOrLoad(ctx, cache.Request{
		Key:       req.Key(),
		Category:  req.Category,
		Gameweek:  req.Gameweek,
		Policy:    req.Policy,
		Permanent: req.Permanent,
	}, func(ctx context.Context) ([]byte, error) {
		return c.Get(ctx, req.Path)
	})
}

func fetchInto[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var out T
	raw, err := c.Fetch(ctx, req)
	if err != nil {
		return out, err
	}
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", req.Path, err)
	}
	return out, nil
}

func PicksPath(entryID int64, gameweek int) string {
	return fmt.Sprintf("entry/%d/event/%d/picks/", entryID, gameweek)
}

func HistoryPath(entryID int64) string {
	return fmt.Sprintf("entry/%d/history/", entryID)
}

func (c *Client) Bootstrap(ctx context.Context, policy snapshot.FreshnessPolicy) (fpl.Bootstrap, error) {
	return fetchInto[fpl.Bootstrap](ctx, c, Request{
		Path:     "bootstrap-static/",
		Category: snapshot.CategoryBootstrap,
		Policy:   policy,
	})
}

func (c *Client) Fixtures(ctx context.Context, gameweek int, policy snapshot.FreshnessPolicy) ([]fpl.Fixture, error) {
	return fetchInto[[]fpl.Fixture](ctx, c, Request{
		Path:     "fixtures/?event=" + strconv.Itoa(gameweek),
		Category: snapshot.CategoryFixtures,
		Gameweek: gameweek,
		Policy:   policy,
	})
}

func (c *Client) Live(ctx context.Context, gameweek int, policy snapshot.FreshnessPolicy) (fpl.Live, error) {
	return fetchInto[fpl.Live](ctx, c, Request{
		Path:     fmt.Sprintf("event/%d/live/", gameweek),
		Category: snapshot.CategoryLive,
		Gameweek: gameweek,
		Policy:   policy,
	})
}

// LeagueStandings walks every standings page of a classic league and
// returns the league header plus the full member roster.
func (c *Client) LeagueStandings(ctx context.Context, leagueID int64, policy snapshot.FreshnessPolicy) (fpl.LeagueInfo, []fpl.LeagueEntry, error) {
	var (
		info    fpl.LeagueInfo
		members []fpl.LeagueEntry
	)
	for page := 1; page <= maxStandingsPages; page++ {
		standings, err := fetchInto[fpl.LeagueStandings](ctx, c, Request{
			Path:     fmt.Sprintf("leagues-classic/%d/standings/?page_standings=%d", leagueID, page),
			Category: snapshot.CategoryLeagueStandings,
			Scope:    fmt.Sprintf("%d_p%d", leagueID, page),
			Policy:   policy,
		})
		if err != nil {
			return fpl.LeagueInfo{}, nil, fmt.Errorf("league %d standings page %d: %w", leagueID, page, err)
		}
		if page == 1 {
			info = standings.League
		}
		members = append(members, standings.Standings.Results...)
		if !standings.Standings.HasNext {
			break
		}
	}
	return info, members, nil
}

func (c *Client) EntryPicks(ctx context.Context, entryID int64, gameweek int, policy snapshot.FreshnessPolicy) (fpl.EntryPicks, error) {
	return fetchInto[fpl.EntryPicks](ctx, c, picksRequest(entryID, gameweek, policy))
}

func picksRequest(entryID int64, gameweek int, policy snapshot.FreshnessPolicy) Request {
	return Request{
		Path:     PicksPath(entryID, gameweek),
		Category: snapshot.CategoryEntryPicks,
		Scope:    strconv.FormatInt(entryID, 10),
		Gameweek: gameweek,
		Policy:   policy,
	}
}

// EntryHistory is cached against the gameweek it was requested for, since
// the payload grows by one row each gameweek.
func (c *Client) EntryHistory(ctx context.Context, entryID int64, gameweek int, policy snapshot.FreshnessPolicy) (fpl.EntryHistory, error) {
	return fetchInto[fpl.EntryHistory](ctx, c, Request{
		Path:     HistoryPath(entryID),
		Category: snapshot.CategoryEntryHistory,
		Scope:    strconv.FormatInt(entryID, 10),
		Gameweek: gameweek,
		Policy:   policy,
	})
}

func (c *Client) EntryTransfers(ctx context.Context, entryID int64, gameweek int, policy snapshot.FreshnessPolicy) ([]fpl.Transfer, error) {
	return fetchInto[[]fpl.Transfer](ctx, c, transfersRequest(entryID, gameweek, policy))
}

func transfersRequest(entryID int64, gameweek int, policy snapshot.FreshnessPolicy) Request {
	return Request{
		Path:     fmt.Sprintf("entry/%d/transfers/", entryID),
		Category: snapshot.CategoryEntryTransfers,
		Scope:    strconv.FormatInt(entryID, 10),
		Gameweek: gameweek,
		Policy:   policy,
	}
}

// RawEntryPicks and RawEntryHistory bypass the per-entry cache. League wide
// syncs cache the merged result instead.
func (c *Client) RawEntryPicks(ctx context.Context, entryID int64, gameweek int) ([]byte, error) {
	return c.Get(ctx, PicksPath(entryID, gameweek))
}

func (c *Client) RawEntryHistory(ctx context.Context, entryID int64) ([]byte, error) {
	return c.Get(ctx, HistoryPath(entryID))
}

// TransferActivity joins a manager's transfers for gameweek with the
// counters on their picks. When picks claim more transfers than the
// transfers list shows, the cached copies are stale relative to each other
// and both are refetched once from the network. A refetch of a finished
// gameweek is stored as permanent again.
func (c *Client) TransferActivity(ctx context.Context, entryID int64, gameweek int, finished bool) (fpl.TransferActivity, error) {
	activity, err := c.transferActivity(ctx, entryID, gameweek, snapshot.PolicyFor(finished), finished)
	if err != nil {
		return fpl.TransferActivity{}, err
	}
	if activity.EventTransfers <= len(activity.Transfers) {
		return activity, nil
	}

	c.logger.InfoContext(ctx, "transfer record behind picks, refetching",
		"entry_id", entryID,
		"gameweek", gameweek,
		"event_transfers", activity.EventTransfers,
		"visible_transfers", len(activity.Transfers),
	)
	return c.transferActivity(ctx, entryID, gameweek, snapshot.PolicyForceRefresh, finished)
}

func (c *Client) transferActivity(ctx context.Context, entryID int64, gameweek int, policy snapshot.FreshnessPolicy, permanent bool) (fpl.TransferActivity, error) {
	picksReq := picksRequest(entryID, gameweek, policy)
	picksReq.Permanent = permanent
	transfersReq := transfersRequest(entryID, gameweek, policy)
	transfersReq.Permanent = permanent

	var (
		picks        fpl.EntryPicks
		transfers    []fpl.Transfer
		picksErr     error
		transfersErr error
		wg           conc.WaitGroup
	)
	wg.Go(func() {
		picks, picksErr = fetchInto[fpl.EntryPicks](ctx, c, picksReq)
	})
	wg.Go(func() {
		transfers, transfersErr = fetchInto[[]fpl.Transfer](ctx, c, transfersReq)
	})
	wg.Wait()

	if picksErr != nil {
		return fpl.TransferActivity{}, fmt.Errorf("entry %d picks: %w", entryID, picksErr)
	}
	if transfersErr != nil {
		return fpl.TransferActivity{}, fmt.Errorf("entry %d transfers: %w", entryID, transfersErr)
	}

	return fpl.TransferActivity{
		EntryID:        entryID,
		Gameweek:       gameweek,
		ActiveChip:     picks.ActiveChip,
		EventTransfers: picks.EntryHistory.EventTransfers,
		TransfersCost:  picks.EntryHistory.EventTransfersCost,
		Transfers:      fpl.TransfersFor(transfers, gameweek),
	}, nil
}
