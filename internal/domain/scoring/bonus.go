package scoring

import (
	"sort"

	"github.com/riskibarqy/fpl-livescore/internal/domain/fpl"
)

// bonusByRank is indexed by rank-1.
var bonusByRank = [...]int{3, 2, 1}

// PredictBonus derives provisional bonus points from the bps arrays of
// fixtures that have started but whose bonus is not yet confirmed. Players
// sharing a bps value share the bonus of their rank and the next distinct
// value lands at rank+groupSize. A player appearing in two such fixtures
// accumulates both predictions.
func PredictBonus(fixtures []fpl.Fixture) map[int64]int {
	out := make(map[int64]int)
	for _, fixture := range fixtures {
		if !fixture.Started || fixture.FinishedProvisional {
			continue
		}
		bps, ok := fixture.BPS()
		if !ok {
			continue
		}
		allocateBonus(bps, out)
	}
	return out
}

func allocateBonus(bps []fpl.StatValue, out map[int64]int) {
	ranked := append([]fpl.StatValue(nil), bps...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Value != ranked[j].Value {
			return ranked[i].Value > ranked[j].Value
		}
		return ranked[i].Element < ranked[j].Element
	})

	rank := 1
	for i := 0; i < len(ranked) && rank <= len(bonusByRank); {
		value := ranked[i].Value
		if value <= 0 {
			return
		}

		j := i
		for j < len(ranked) && ranked[j].Value == value {
			j++
		}
		for _, tied := range ranked[i:j] {
			out[tied.Element] += bonusByRank[rank-1]
		}

		rank += j - i
		i = j
	}
}

// EffectiveBonus is the prediction to add on top of official points. Once
// the official bonus is non-zero it already sits inside total_points.
func EffectiveBonus(predicted map[int64]int, elementID int64, stats fpl.LiveStats) int {
	if stats.Bonus != 0 {
		return 0
	}
	return predicted[elementID]
}
