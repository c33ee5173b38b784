package fpl

import (
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/fpl-livescore/internal/domain/player"
)

// Chip is the one-off modifier a manager may activate for a gameweek.
type Chip string

const (
	ChipNone          Chip = ""
	ChipBenchBoost    Chip = "bboost"
	ChipTripleCaptain Chip = "3xc"
	ChipWildcard      Chip = "wildcard"
	ChipFreeHit       Chip = "freehit"
	ChipAssistant     Chip = "manager"
)

// Event is one gameweek as published in bootstrap-static.
type Event struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	DeadlineTime string `json:"deadline_time"`
	IsPrevious   bool   `json:"is_previous"`
	IsCurrent    bool   `json:"is_current"`
	IsNext       bool   `json:"is_next"`
	Finished     bool   `json:"finished"`
	DataChecked  bool   `json:"data_checked"`
}

type Team struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

// Element is a player reference row from bootstrap-static.
type Element struct {
	ID          int64  `json:"id"`
	WebName     string `json:"web_name"`
	FirstName   string `json:"first_name"`
	SecondName  string `json:"second_name"`
	Team        int64  `json:"team"`
	ElementType int    `json:"element_type"`
}

func (e Element) Player() (player.Player, error) {
	pos, err := player.PositionFromElementType(e.ElementType)
	if err != nil {
		return player.Player{}, err
	}
	return player.Player{
		ID:       e.ID,
		TeamID:   e.Team,
		WebName:  e.WebName,
		Position: pos,
	}, nil
}

type Bootstrap struct {
	Events   []Event   `json:"events"`
	Teams    []Team    `json:"teams"`
	Elements []Element `json:"elements"`
}

// CurrentEvent returns the event flagged current, falling back to the most
// recent finished one before the season starts or between seasons.
func (b Bootstrap) CurrentEvent() (Event, bool) {
	for _, ev := range b.Events {
		if ev.IsCurrent {
			return ev, true
		}
	}

	var latest Event
	found := false
	for _, ev := range b.Events {
		if ev.Finished && (!found || ev.ID > latest.ID) {
			latest = ev
			found = true
		}
	}
	return latest, found
}

func (b Bootstrap) Event(id int) (Event, bool) {
	for _, ev := range b.Events {
		if ev.ID == id {
			return ev, true
		}
	}
	return Event{}, false
}

func (b Bootstrap) Element(id int64) (Element, bool) {
	for _, el := range b.Elements {
		if el.ID == id {
			return el, true
		}
	}
	return Element{}, false
}

// FullName is "first second", falling back to the web name.
func (e Element) FullName() string {
	name := strings.TrimSpace(e.FirstName + " " + e.SecondName)
	if name == "" {
		return e.WebName
	}
	return name
}

// Players indexes elements by id. Elements with an unknown element type are skipped.
func (b Bootstrap) Players() map[int64]player.Player {
	out := make(map[int64]player.Player, len(b.Elements))
	for _, el := range b.Elements {
		p, err := el.Player()
		if err != nil {
			continue
		}
		out[p.ID] = p
	}
	return out
}

type StatValue struct {
	Element int64 `json:"element"`
	Value   int   `json:"value"`
}

type FixtureStat struct {
	Identifier string      `json:"identifier"`
	H          []StatValue `json:"h"`
	A          []StatValue `json:"a"`
}

type Fixture struct {
	ID                  int64         `json:"id"`
	Event               int           `json:"event"`
	KickoffTime         string        `json:"kickoff_time"`
	TeamH               int64         `json:"team_h"`
	TeamA               int64         `json:"team_a"`
	TeamHScore          *int          `json:"team_h_score"`
	TeamAScore          *int          `json:"team_a_score"`
	TeamHDifficulty     int           `json:"team_h_difficulty"`
	TeamADifficulty     int           `json:"team_a_difficulty"`
	Started             bool          `json:"started"`
	Finished            bool          `json:"finished"`
	FinishedProvisional bool          `json:"finished_provisional"`
	Minutes             int           `json:"minutes"`
	Stats               []FixtureStat `json:"stats"`
}

const statBPS = "bps"

// BPS merges the home and away bonus point system arrays. The second return
// is false when the fixture carries no bps stat at all.
func (f Fixture) BPS() ([]StatValue, bool) {
	for _, stat := range f.Stats {
		if stat.Identifier != statBPS {
			continue
		}
		out := make([]StatValue, 0, len(stat.H)+len(stat.A))
		out = append(out, stat.H...)
		out = append(out, stat.A...)
		return out, true
	}
	return nil, false
}

func (f Fixture) Involves(teamID int64) bool {
	return f.TeamH == teamID || f.TeamA == teamID
}

type LiveStats struct {
	Minutes     int `json:"minutes"`
	TotalPoints int `json:"total_points"`
	Bonus       int `json:"bonus"`
	BPS         int `json:"bps"`
}

type LiveElement struct {
	ID    int64     `json:"id"`
	Stats LiveStats `json:"stats"`
}

// Live is the event/{gw}/live payload.
type Live struct {
	Elements []LiveElement `json:"elements"`
}

func (l Live) StatsByElement() map[int64]LiveStats {
	out := make(map[int64]LiveStats, len(l.Elements))
	for _, el := range l.Elements {
		out[el.ID] = el.Stats
	}
	return out
}

type Pick struct {
	Element       int64 `json:"element"`
	Position      int   `json:"position"`
	Multiplier    int   `json:"multiplier"`
	IsCaptain     bool  `json:"is_captain"`
	IsViceCaptain bool  `json:"is_vice_captain"`
}

func (p Pick) IsStarter() bool {
	return p.Position >= 1 && p.Position <= 11
}

// EventHistory is one gameweek row of a manager's history.
type EventHistory struct {
	Event              int `json:"event"`
	Points             int `json:"points"`
	TotalPoints        int `json:"total_points"`
	Rank               int `json:"rank"`
	OverallRank        int `json:"overall_rank"`
	Bank               int `json:"bank"`
	Value              int `json:"value"`
	EventTransfers     int `json:"event_transfers"`
	EventTransfersCost int `json:"event_transfers_cost"`
	PointsOnBench      int `json:"points_on_bench"`
}

type AutomaticSub struct {
	Entry      int64 `json:"entry"`
	ElementIn  int64 `json:"element_in"`
	ElementOut int64 `json:"element_out"`
	Event      int   `json:"event"`
}

// EntryPicks is the entry/{id}/event/{gw}/picks payload.
type EntryPicks struct {
	ActiveChip    Chip           `json:"active_chip"`
	AutomaticSubs []AutomaticSub `json:"automatic_subs"`
	EntryHistory  EventHistory   `json:"entry_history"`
	Picks         []Pick         `json:"picks"`
}

func (p EntryPicks) Captain() (Pick, bool) {
	for _, pick := range p.Picks {
		if pick.IsCaptain {
			return pick, true
		}
	}
	return Pick{}, false
}

func (p EntryPicks) ViceCaptain() (Pick, bool) {
	for _, pick := range p.Picks {
		if pick.IsViceCaptain {
			return pick, true
		}
	}
	return Pick{}, false
}

type ChipPlay struct {
	Name  Chip `json:"name"`
	Event int  `json:"event"`
}

// EntryHistory is the entry/{id}/history payload.
type EntryHistory struct {
	Current []EventHistory `json:"current"`
	Chips   []ChipPlay     `json:"chips"`
}

func (h EntryHistory) Row(gameweek int) (EventHistory, bool) {
	for _, row := range h.Current {
		if row.Event == gameweek {
			return row, true
		}
	}
	return EventHistory{}, false
}

type Transfer struct {
	Entry          int64     `json:"entry"`
	Event          int       `json:"event"`
	ElementIn      int64     `json:"element_in"`
	ElementInCost  int       `json:"element_in_cost"`
	ElementOut     int64     `json:"element_out"`
	ElementOutCost int       `json:"element_out_cost"`
	Time           time.Time `json:"time"`
}

type LeagueInfo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// LeagueEntry is one member row of a classic league table.
type LeagueEntry struct {
	ID         int64  `json:"id"`
	Entry      int64  `json:"entry"`
	EntryName  string `json:"entry_name"`
	PlayerName string `json:"player_name"`
	Rank       int    `json:"rank"`
	LastRank   int    `json:"last_rank"`
	EventTotal int    `json:"event_total"`
	Total      int    `json:"total"`
}

type StandingsPage struct {
	HasNext bool          `json:"has_next"`
	Page    int           `json:"page"`
	Results []LeagueEntry `json:"results"`
}

// LeagueStandings is the leagues-classic/{id}/standings payload.
type LeagueStandings struct {
	League    LeagueInfo    `json:"league"`
	Standings StandingsPage `json:"standings"`
}

// TransferActivity is a manager's transfer record for one gameweek, joined
// with the counters reported on their picks for the same gameweek.
type TransferActivity struct {
	EntryID        int64      `json:"entry_id"`
	Gameweek       int        `json:"gameweek"`
	ActiveChip     Chip       `json:"active_chip"`
	EventTransfers int        `json:"event_transfers"`
	TransfersCost  int        `json:"transfers_cost"`
	Transfers      []Transfer `json:"transfers"`
}

// TransfersFor keeps only the transfers made for gameweek, oldest first.
func TransfersFor(all []Transfer, gameweek int) []Transfer {
	out := make([]Transfer, 0, len(all))
	for _, t := range all {
		if t.Event == gameweek {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})
	return out
}
