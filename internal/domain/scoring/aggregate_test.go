package scoring

import (
	"testing"

	"github.com/riskibarqy/fpl-livescore/internal/domain/fpl"
)

func aggregateFor(g *gameweekFixture, chip fpl.Chip, predicted map[int64]int) Result {
	res := ResolveSubstitutions(g.input(chip))
	return Aggregate(AggregateInput{
		ManagerID:      77,
		Gameweek:       5,
		Squad:          g.picks,
		Resolution:     res,
		Live:           g.live,
		PredictedBonus: predicted,
		Chip:           chip,
	})
}

func multiplierOf(t *testing.T, r Result, element int64) int {
	t.Helper()
	for _, p := range r.Picks {
		if p.Element == element {
			return p.EffectiveMultiplier
		}
	}
	t.Fatalf("element %d not among scoring picks", element)
	return 0
}

func TestAggregate_CaptainDoubled(t *testing.T) {
	t.Parallel()

	g := newGameweekFixture(standardSquad, 10, 6)
	g.played(10, 90, 9)

	r := aggregateFor(g, fpl.ChipNone, nil)
	// ten starters on 2 plus the captain's 9 doubled
	if r.GameweekPoints != 10*2+18 {
		t.Fatalf("expected 38 points, got=%d", r.GameweekPoints)
	}
	if multiplierOf(t, r, 10) != 2 {
		t.Fatalf("expected captain multiplier 2")
	}
}

func TestAggregate_TripleCaptain(t *testing.T) {
	t.Parallel()

	g := newGameweekFixture(standardSquad, 10, 6)
	g.played(10, 90, 9)

	r := aggregateFor(g, fpl.ChipTripleCaptain, nil)
	if r.GameweekPoints != 10*2+27 {
		t.Fatalf("expected 47 points, got=%d", r.GameweekPoints)
	}
}

func TestAggregate_ViceCaptainPromoted(t *testing.T) {
	t.Parallel()

	g := newGameweekFixture(standardSquad, 10, 6)
	g.benched(10).played(6, 45, 5).benched(15).benched(13).benched(14)

	r := aggregateFor(g, fpl.ChipNone, nil)
	if r.CaptainPlayed {
		t.Fatalf("expected captain not to have played")
	}
	if got := multiplierOf(t, r, 6); got != 2 {
		t.Fatalf("expected vice captain multiplier 2, got=%d", got)
	}
	if got := multiplierOf(t, r, 10); got != 1 {
		t.Fatalf("expected captain multiplier 1, got=%d", got)
	}
}

func TestAggregate_ViceCaptainWithoutMinutesNotPromoted(t *testing.T) {
	t.Parallel()

	g := newGameweekFixture(standardSquad, 10, 6)
	g.benched(10).pending(6).benched(13).benched(14).benched(15)

	r := aggregateFor(g, fpl.ChipNone, nil)
	for _, p := range r.Picks {
		if p.EffectiveMultiplier != 1 {
			t.Fatalf("expected no promotion, element %d has multiplier %d", p.Element, p.EffectiveMultiplier)
		}
	}
}

func TestAggregate_ViceCaptainOutsideScoringPicksNotPromoted(t *testing.T) {
	t.Parallel()

	// the bench defender takes the captain's place, the bench vice never comes on
	g := newGameweekFixture(standardSquad, 10, 14)
	g.benched(10).played(13, 90, 4).played(14, 90, 7).benched(15)

	r := aggregateFor(g, fpl.ChipNone, nil)
	for _, p := range r.Picks {
		if p.Element == 14 {
			t.Fatalf("expected vice captain to stay on the bench")
		}
		if p.EffectiveMultiplier != 1 {
			t.Fatalf("expected no promotion, element %d has multiplier %d", p.Element, p.EffectiveMultiplier)
		}
	}
}

func TestAggregate_ViceCaptainPromotedFromBench(t *testing.T) {
	t.Parallel()

	g := newGameweekFixture(standardSquad, 10, 14)
	g.benched(10).benched(13).played(14, 90, 7).benched(15)

	r := aggregateFor(g, fpl.ChipNone, nil)
	if got := multiplierOf(t, r, 14); got != 2 {
		t.Fatalf("expected substituted vice captain multiplier 2, got=%d", got)
	}
}

func TestAggregate_BenchBoostSumsFifteen(t *testing.T) {
	t.Parallel()

	g := newGameweekFixture(standardSquad, 10, 6)
	for id := int64(12); id <= 15; id++ {
		g.played(id, 90, 3)
	}

	r := aggregateFor(g, fpl.ChipBenchBoost, nil)
	if len(r.Picks) != 15 {
		t.Fatalf("expected 15 scored picks, got=%d", len(r.Picks))
	}
	// nine outfield starters and the keeper on 2, captain doubled, bench on 3
	want := 10*2 + 2*2 + 4*3
	if r.GameweekPoints != want {
		t.Fatalf("expected %d points, got=%d", want, r.GameweekPoints)
	}
}

func TestAggregate_PredictedBonusOnlyWithoutOfficialBonus(t *testing.T) {
	t.Parallel()

	g := newGameweekFixture(standardSquad, 10, 6)
	g.live[3] = fpl.LiveStats{Minutes: 90, TotalPoints: 6, Bonus: 0}
	g.live[4] = fpl.LiveStats{Minutes: 90, TotalPoints: 9, Bonus: 3}

	r := aggregateFor(g, fpl.ChipNone, map[int64]int{3: 2, 4: 3})
	for _, p := range r.Picks {
		switch p.Element {
		case 3:
			if p.Points != 8 || p.PredictedBonus != 2 {
				t.Fatalf("expected predicted bonus on element 3, got=%+v", p)
			}
		case 4:
			if p.Points != 9 || p.PredictedBonus != 0 {
				t.Fatalf("expected official bonus only on element 4, got=%+v", p)
			}
		}
	}
}

func TestAggregate_TransferCostAndPriorTotal(t *testing.T) {
	t.Parallel()

	g := newGameweekFixture(standardSquad, 10, 6)
	res := ResolveSubstitutions(g.input(fpl.ChipNone))

	r := Aggregate(AggregateInput{
		ManagerID:    1,
		Gameweek:     5,
		Squad:        g.picks,
		Resolution:   res,
		Live:         g.live,
		TransferCost: 4,
		PriorTotal:   250,
	})
	// 10 starters on 2, captain 2x2
	if r.GameweekPoints != 24-4 {
		t.Fatalf("expected 20 points, got=%d", r.GameweekPoints)
	}
	if r.TotalPoints != 270 {
		t.Fatalf("expected total 270, got=%d", r.TotalPoints)
	}
	if r.PlayersPlayed != 11 {
		t.Fatalf("expected 11 players played, got=%d", r.PlayersPlayed)
	}
}

func TestAggregate_OfficialPointsAreAuthoritative(t *testing.T) {
	t.Parallel()

	g := newGameweekFixture(standardSquad, 10, 6)
	in := g.input(fpl.ChipNone)
	in.Finalized = true
	in.AutomaticSubs = []fpl.AutomaticSub{{ElementIn: 13, ElementOut: 2}}
	res := ResolveSubstitutions(in)

	r := Aggregate(AggregateInput{
		ManagerID:      1,
		Gameweek:       5,
		Squad:          g.picks,
		Resolution:     res,
		Live:           g.live,
		TransferCost:   4,
		PriorTotal:     300,
		OfficialPoints: 61,
	})
	if r.GameweekPoints != 61 {
		t.Fatalf("expected official 61 points, got=%d", r.GameweekPoints)
	}
	if r.TotalPoints != 357 {
		t.Fatalf("expected total 357, got=%d", r.TotalPoints)
	}
	if !r.Official {
		t.Fatalf("expected official result")
	}
}

func TestPriorTotal(t *testing.T) {
	t.Parallel()

	history := fpl.EntryHistory{Current: []fpl.EventHistory{
		{Event: 3, TotalPoints: 150},
		{Event: 4, TotalPoints: 201},
	}}

	if got := PriorTotal(history, fpl.EventHistory{}, 5); got != 201 {
		t.Fatalf("expected 201 from the previous row, got=%d", got)
	}
	if got := PriorTotal(history, fpl.EventHistory{}, 1); got != 0 {
		t.Fatalf("expected 0 before gameweek 1, got=%d", got)
	}

	current := fpl.EventHistory{Event: 9, Points: 60, TotalPoints: 452, EventTransfersCost: 8}
	if got := PriorTotal(fpl.EntryHistory{}, current, 9); got != 400 {
		t.Fatalf("expected 400 rebuilt from the current row, got=%d", got)
	}
}
