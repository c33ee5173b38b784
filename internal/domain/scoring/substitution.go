package scoring

import (
	"sort"

	"github.com/riskibarqy/fpl-livescore/internal/domain/fantasy"
	"github.com/riskibarqy/fpl-livescore/internal/domain/fpl"
	"github.com/riskibarqy/fpl-livescore/internal/domain/player"
)

// Substitution is one bench player brought in for a starter.
type Substitution struct {
	In  int64 `json:"element_in"`
	Out int64 `json:"element_out"`
}

type SubstitutionInput struct {
	Picks    []fpl.Pick
	Players  map[int64]player.Player
	Live     map[int64]fpl.LiveStats
	Fixtures []fpl.Fixture
	Chip     fpl.Chip
	// Finalized is set once upstream has finished the gameweek. Together
	// with a non-empty AutomaticSubs it makes the official record win.
	Finalized     bool
	AutomaticSubs []fpl.AutomaticSub
	Rules         *fantasy.Rules
}

// Resolution is the set of picks that score for a manager.
type Resolution struct {
	ScoringPicks  []fpl.Pick
	CaptainPlayed bool
	Substitutions []Substitution
	// Official is true when the upstream automatic subs record was applied.
	Official bool
}

// ResolveSubstitutions determines the scoring picks of a squad.
//
// Under bench boost every pick scores. Otherwise a finalized gameweek with
// an official automatic subs record is applied as published. In every other
// case subs are computed: a starter is only replaced once they have 0
// minutes and every fixture of their team is finished, the goalkeeper is
// swapped first, then each bench outfielder with minutes in priority order
// replaces the first eligible starter whose removal keeps a legal formation.
func ResolveSubstitutions(in SubstitutionInput) Resolution {
	status := newPlayStatus(in.Players, in.Live, in.Fixtures)
	res := Resolution{CaptainPlayed: status.captainPlayed(in.Picks)}

	if in.Chip == fpl.ChipBenchBoost {
		res.ScoringPicks = append([]fpl.Pick(nil), in.Picks...)
		return res
	}

	starters, bench := splitSquad(in.Picks)

	if in.Finalized && len(in.AutomaticSubs) > 0 {
		res.ScoringPicks, res.Substitutions = applyOfficialSubs(starters, bench, in.AutomaticSubs)
		res.Official = true
		return res
	}

	rules := fantasy.DefaultRules()
	if in.Rules != nil {
		rules = *in.Rules
	}

	lineup := append([]fpl.Pick(nil), starters...)
	used := make(map[int64]struct{}, len(bench))

	if i, ok := status.goalkeeperSlot(lineup); ok && status.didNotPlay(lineup[i].Element) {
		for _, sub := range bench {
			if !status.isGoalkeeper(sub.Element) || status.minutes(sub.Element) == 0 {
				continue
			}
			res.Substitutions = append(res.Substitutions, Substitution{In: sub.Element, Out: lineup[i].Element})
			lineup[i] = sub
			used[sub.Element] = struct{}{}
			break
		}
	}

	for _, sub := range bench {
		if _, taken := used[sub.Element]; taken {
			continue
		}
		if !status.known(sub.Element) || status.isGoalkeeper(sub.Element) || status.minutes(sub.Element) == 0 {
			continue
		}

		for i, starter := range lineup {
			if !status.known(starter.Element) || status.isGoalkeeper(starter.Element) || !status.didNotPlay(starter.Element) {
				continue
			}

			candidate := append([]fpl.Pick(nil), lineup...)
			candidate[i] = sub
			if !status.formationHolds(candidate, rules) {
				continue
			}

			res.Substitutions = append(res.Substitutions, Substitution{In: sub.Element, Out: starter.Element})
			lineup = candidate
			used[sub.Element] = struct{}{}
			break
		}
	}

	res.ScoringPicks = lineup
	return res
}

// splitSquad returns starters in slot order and the bench in priority order.
func splitSquad(picks []fpl.Pick) (starters, bench []fpl.Pick) {
	for _, p := range picks {
		if p.IsStarter() {
			starters = append(starters, p)
		} else {
			bench = append(bench, p)
		}
	}
	sort.SliceStable(starters, func(i, j int) bool { return starters[i].Position < starters[j].Position })
	sort.SliceStable(bench, func(i, j int) bool { return bench[i].Position < bench[j].Position })
	return starters, bench
}

func applyOfficialSubs(starters, bench []fpl.Pick, subs []fpl.AutomaticSub) ([]fpl.Pick, []Substitution) {
	in := make(map[int64]struct{}, len(subs))
	out := make(map[int64]struct{}, len(subs))
	applied := make([]Substitution, 0, len(subs))
	for _, s := range subs {
		in[s.ElementIn] = struct{}{}
		out[s.ElementOut] = struct{}{}
		applied = append(applied, Substitution{In: s.ElementIn, Out: s.ElementOut})
	}

	scoring := make([]fpl.Pick, 0, len(starters))
	for _, p := range starters {
		if _, subbedOut := out[p.Element]; !subbedOut {
			scoring = append(scoring, p)
		}
	}
	for _, p := range bench {
		if _, subbedIn := in[p.Element]; subbedIn {
			scoring = append(scoring, p)
		}
	}
	return scoring, applied
}

// playStatus answers the did-they-play questions for one gameweek.
type playStatus struct {
	players      map[int64]player.Player
	live         map[int64]fpl.LiveStats
	teamFinished map[int64]bool
}

func newPlayStatus(players map[int64]player.Player, live map[int64]fpl.LiveStats, fixtures []fpl.Fixture) playStatus {
	finished := make(map[int64]bool)
	for _, f := range fixtures {
		for _, team := range []int64{f.TeamH, f.TeamA} {
			done, seen := finished[team]
			if !seen {
				done = true
			}
			finished[team] = done && f.Finished
		}
	}
	return playStatus{players: players, live: live, teamFinished: finished}
}

func (s playStatus) known(elementID int64) bool {
	_, ok := s.players[elementID]
	return ok
}

func (s playStatus) isGoalkeeper(elementID int64) bool {
	p, ok := s.players[elementID]
	return ok && p.IsGoalkeeper()
}

func (s playStatus) minutes(elementID int64) int {
	return s.live[elementID].Minutes
}

// teamDone is true once every fixture of the team is confirmed finished.
// A provisional finish does not count. A team without a fixture this
// gameweek has nothing left to play.
func (s playStatus) teamDone(elementID int64) bool {
	p, ok := s.players[elementID]
	if !ok {
		return false
	}
	done, scheduled := s.teamFinished[p.TeamID]
	if !scheduled {
		return true
	}
	return done
}

// didNotPlay is the substitution trigger. 0 minutes alone only means the
// player may still come on.
func (s playStatus) didNotPlay(elementID int64) bool {
	return s.minutes(elementID) == 0 && s.teamDone(elementID)
}

func (s playStatus) captainPlayed(picks []fpl.Pick) bool {
	for _, p := range picks {
		if p.IsCaptain {
			return !s.didNotPlay(p.Element)
		}
	}
	return true
}

func (s playStatus) goalkeeperSlot(lineup []fpl.Pick) (int, bool) {
	for i, p := range lineup {
		if s.isGoalkeeper(p.Element) {
			return i, true
		}
	}
	return 0, false
}

// formationHolds validates lineup over the starters with a known position.
// Unknown elements are left out of the count, so one missing bootstrap
// record does not block every swap for the manager.
func (s playStatus) formationHolds(lineup []fpl.Pick, rules fantasy.Rules) bool {
	if len(lineup) != rules.StarterCount {
		return false
	}

	positions := make([]player.Position, 0, len(lineup))
	goalkeeperKnown := false
	for _, p := range lineup {
		known, ok := s.players[p.Element]
		if !ok {
			continue
		}
		positions = append(positions, known.Position)
		goalkeeperKnown = goalkeeperKnown || known.IsGoalkeeper()
	}
	if len(positions) < len(lineup) {
		rules.StarterCount = len(positions)
		if !goalkeeperKnown {
			rules.Goalkeepers = 0
		}
	}
	return fantasy.ValidateFormation(positions, rules) == nil
}
