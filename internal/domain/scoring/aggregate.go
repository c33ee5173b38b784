package scoring

import (
	"github.com/riskibarqy/fpl-livescore/internal/domain/fpl"
)

// ScoredPick is one scoring pick with the multiplier that was applied.
type ScoredPick struct {
	Element             int64 `json:"element"`
	Position            int   `json:"position"`
	IsCaptain           bool  `json:"is_captain"`
	IsViceCaptain       bool  `json:"is_vice_captain"`
	Minutes             int   `json:"minutes"`
	Points              int   `json:"points"`
	PredictedBonus      int   `json:"predicted_bonus"`
	EffectiveMultiplier int   `json:"multiplier"`
}

// Result is the live score of one manager for one gameweek. It is built
// once per request and not mutated afterwards.
type Result struct {
	ManagerID      int64          `json:"manager_id"`
	Gameweek       int            `json:"gameweek"`
	ActiveChip     fpl.Chip       `json:"active_chip,omitempty"`
	Picks          []ScoredPick   `json:"picks"`
	Substitutions  []Substitution `json:"substitutions,omitempty"`
	CaptainPlayed  bool           `json:"captain_played"`
	TransferCost   int            `json:"transfer_cost"`
	GameweekPoints int            `json:"gameweek_points"`
	TotalPoints    int            `json:"total_points"`
	PlayersPlayed  int            `json:"players_played"`
	Official       bool           `json:"official"`
}

type AggregateInput struct {
	ManagerID      int64
	Gameweek       int
	Squad          []fpl.Pick
	Resolution     Resolution
	Live           map[int64]fpl.LiveStats
	PredictedBonus map[int64]int
	Chip           fpl.Chip
	TransferCost   int
	PriorTotal     int
	// OfficialPoints is entry_history.points. It becomes the gameweek score
	// when the resolution came from the official automatic subs record.
	OfficialPoints int
}

// Aggregate turns resolved scoring picks into a Result.
func Aggregate(in AggregateInput) Result {
	res := in.Resolution
	out := Result{
		ManagerID:     in.ManagerID,
		Gameweek:      in.Gameweek,
		ActiveChip:    in.Chip,
		Substitutions: res.Substitutions,
		CaptainPlayed: res.CaptainPlayed,
		TransferCost:  in.TransferCost,
		PlayersPlayed: PlayersPlayed(in.Squad, in.Live),
		Official:      res.Official,
		Picks:         make([]ScoredPick, 0, len(res.ScoringPicks)),
	}

	scoring := make(map[int64]struct{}, len(res.ScoringPicks))
	for _, p := range res.ScoringPicks {
		scoring[p.Element] = struct{}{}
	}

	sum := 0
	for _, p := range res.ScoringPicks {
		stats := in.Live[p.Element]
		bonus := EffectiveBonus(in.PredictedBonus, p.Element, stats)
		points := stats.TotalPoints + bonus

		multiplier := p.Multiplier
		if !res.Official {
			multiplier = effectiveMultiplier(p, stats, res.CaptainPlayed, in.Chip, scoring)
		}

		out.Picks = append(out.Picks, ScoredPick{
			Element:             p.Element,
			Position:            p.Position,
			IsCaptain:           p.IsCaptain,
			IsViceCaptain:       p.IsViceCaptain,
			Minutes:             stats.Minutes,
			Points:              points,
			PredictedBonus:      bonus,
			EffectiveMultiplier: multiplier,
		})
		sum += points * multiplier
	}

	if res.Official {
		// entry_history.points is before hits; the running total is not.
		out.GameweekPoints = in.OfficialPoints
		out.TotalPoints = in.PriorTotal + in.OfficialPoints - in.TransferCost
		return out
	}

	out.GameweekPoints = sum - in.TransferCost
	out.TotalPoints = in.PriorTotal + out.GameweekPoints
	return out
}

func effectiveMultiplier(p fpl.Pick, stats fpl.LiveStats, captainPlayed bool, chip fpl.Chip, scoring map[int64]struct{}) int {
	switch {
	case p.IsCaptain:
		if !captainPlayed {
			return 1
		}
		if chip == fpl.ChipTripleCaptain {
			return 3
		}
		return 2
	case p.IsViceCaptain && !captainPlayed:
		if _, ok := scoring[p.Element]; ok && stats.Minutes > 0 {
			return 2
		}
		return 1
	case chip == fpl.ChipBenchBoost && p.Multiplier > 0:
		return p.Multiplier
	default:
		return 1
	}
}

// PlayersPlayed counts starters with minutes on the board.
func PlayersPlayed(squad []fpl.Pick, live map[int64]fpl.LiveStats) int {
	n := 0
	for _, p := range squad {
		if p.IsStarter() && live[p.Element].Minutes > 0 {
			n++
		}
	}
	return n
}

// PriorTotal is the manager's overall total before gameweek. The previous
// gameweek's history row is preferred. Without it the total is rebuilt from
// the current row: total_points - points, plus the hit that total_points
// already paid for.
func PriorTotal(history fpl.EntryHistory, current fpl.EventHistory, gameweek int) int {
	if gameweek <= 1 {
		return 0
	}
	if row, ok := history.Row(gameweek - 1); ok {
		return row.TotalPoints
	}
	if current.Event == gameweek {
		return current.TotalPoints - current.Points + current.EventTransfersCost
	}
	return 0
}
