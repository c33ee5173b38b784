package scoring

import (
	"github.com/riskibarqy/fpl-livescore/internal/domain/fpl"
	"github.com/riskibarqy/fpl-livescore/internal/domain/player"
)

// squadLayout lists positions by slot, 1..15. Element ids equal slot numbers
// and every element plays for its own team, so team id == element id.
type squadLayout [15]player.Position

var (
	gk  = player.PositionGoalkeeper
	def = player.PositionDefender
	mid = player.PositionMidfielder
	fwd = player.PositionForward
)

// 4-4-2 with a GK, DEF, MID, FWD bench.
var standardSquad = squadLayout{gk, def, def, def, def, mid, mid, mid, mid, fwd, fwd, gk, def, mid, fwd}

type gameweekFixture struct {
	picks    []fpl.Pick
	players  map[int64]player.Player
	live     map[int64]fpl.LiveStats
	fixtures []fpl.Fixture
}

func newGameweekFixture(layout squadLayout, captain, vice int64) *gameweekFixture {
	g := &gameweekFixture{
		players: make(map[int64]player.Player, len(layout)),
		live:    make(map[int64]fpl.LiveStats, len(layout)),
	}
	for i, pos := range layout {
		id := int64(i + 1)
		multiplier := 1
		if i >= 11 {
			multiplier = 0
		}
		if id == captain {
			multiplier = 2
		}
		g.picks = append(g.picks, fpl.Pick{
			Element:       id,
			Position:      i + 1,
			Multiplier:    multiplier,
			IsCaptain:     id == captain,
			IsViceCaptain: id == vice,
		})
		g.players[id] = player.Player{ID: id, TeamID: id, WebName: "p", Position: pos}
		g.fixtures = append(g.fixtures, fpl.Fixture{ID: id, TeamH: id, TeamA: 100 + id, Started: true})
		g.live[id] = fpl.LiveStats{Minutes: 90, TotalPoints: 2}
	}
	return g
}

// played sets minutes and points and marks the element's match over.
func (g *gameweekFixture) played(id int64, minutes, points int) *gameweekFixture {
	g.live[id] = fpl.LiveStats{Minutes: minutes, TotalPoints: points}
	g.finish(id)
	return g
}

// benched marks the element as unused in a finished match.
func (g *gameweekFixture) benched(id int64) *gameweekFixture {
	return g.played(id, 0, 0)
}

// pending leaves the element on 0 minutes with the match still running.
func (g *gameweekFixture) pending(id int64) *gameweekFixture {
	g.live[id] = fpl.LiveStats{}
	for i := range g.fixtures {
		if g.fixtures[i].TeamH == id {
			g.fixtures[i].Finished = false
		}
	}
	return g
}

// provisional leaves the element on 0 minutes in a match that is over but
// not yet confirmed.
func (g *gameweekFixture) provisional(id int64) *gameweekFixture {
	g.live[id] = fpl.LiveStats{}
	for i := range g.fixtures {
		if g.fixtures[i].TeamH == id {
			g.fixtures[i].Finished = false
			g.fixtures[i].FinishedProvisional = true
		}
	}
	return g
}

func (g *gameweekFixture) finish(id int64) {
	for i := range g.fixtures {
		if g.fixtures[i].TeamH == id {
			g.fixtures[i].Finished = true
		}
	}
}

func (g *gameweekFixture) input(chip fpl.Chip) SubstitutionInput {
	return SubstitutionInput{
		Picks:    g.picks,
		Players:  g.players,
		Live:     g.live,
		Fixtures: g.fixtures,
		Chip:     chip,
	}
}

func elements(picks []fpl.Pick) []int64 {
	out := make([]int64, 0, len(picks))
	for _, p := range picks {
		out = append(out, p.Element)
	}
	return out
}
