package fantasy

import (
	"errors"
	"fmt"

	"github.com/riskibarqy/fpl-livescore/internal/domain/fpl"
	"github.com/riskibarqy/fpl-livescore/internal/domain/player"
)

var (
	ErrInvalidSquadSize      = errors.New("invalid squad size")
	ErrInvalidLineupSize     = errors.New("invalid lineup size")
	ErrInsufficientFormation = errors.New("minimum formation requirement not met")
	ErrGoalkeeperCount       = errors.New("lineup must field exactly one goalkeeper")
	ErrUnknownPlayerPosition = errors.New("unknown player position")
	ErrDuplicatePick         = errors.New("duplicate pick in squad")
	ErrCaptaincy             = errors.New("squad must have exactly one captain and one vice captain")
)

// Rules stores squad and lineup validation parameters.
type Rules struct {
	SquadSize     int
	StarterCount  int
	Goalkeepers   int
	MinByPosition map[player.Position]int
}

func DefaultRules() Rules {
	return Rules{
		SquadSize:    15,
		StarterCount: 11,
		Goalkeepers:  1,
		MinByPosition: map[player.Position]int{
			player.PositionDefender:   3,
			player.PositionMidfielder: 2,
			player.PositionForward:    1,
		},
	}
}

// Formation counts lineup players per position.
type Formation struct {
	Goalkeepers int
	Defenders   int
	Midfielders int
	Forwards    int
}

func FormationOf(positions []player.Position) Formation {
	var f Formation
	for _, pos := range positions {
		switch pos {
		case player.PositionGoalkeeper:
			f.Goalkeepers++
		case player.PositionDefender:
			f.Defenders++
		case player.PositionMidfielder:
			f.Midfielders++
		case player.PositionForward:
			f.Forwards++
		}
	}
	return f
}

func (f Formation) count(pos player.Position) int {
	switch pos {
	case player.PositionGoalkeeper:
		return f.Goalkeepers
	case player.PositionDefender:
		return f.Defenders
	case player.PositionMidfielder:
		return f.Midfielders
	case player.PositionForward:
		return f.Forwards
	default:
		return 0
	}
}

// String renders the outfield shape, e.g. "4-4-2".
func (f Formation) String() string {
	return fmt.Sprintf("%d-%d-%d", f.Defenders, f.Midfielders, f.Forwards)
}

// ValidateFormation checks a starting lineup: exactly StarterCount players,
// exactly one goalkeeper and the outfield minimums.
func ValidateFormation(positions []player.Position, rules Rules) error {
	if len(positions) != rules.StarterCount {
		return fmt.Errorf("%w: expected %d, got %d", ErrInvalidLineupSize, rules.StarterCount, len(positions))
	}
	for _, pos := range positions {
		if _, ok := player.AllPositions[pos]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPlayerPosition, pos)
		}
	}

	f := FormationOf(positions)
	if f.Goalkeepers != rules.Goalkeepers {
		return fmt.Errorf("%w: current=%d", ErrGoalkeeperCount, f.Goalkeepers)
	}
	for _, pos := range []player.Position{player.PositionDefender, player.PositionMidfielder, player.PositionForward} {
		minRequired := rules.MinByPosition[pos]
		if f.count(pos) < minRequired {
			return fmt.Errorf("%w: pos=%s min=%d current=%d", ErrInsufficientFormation, pos, minRequired, f.count(pos))
		}
	}

	return nil
}

// ValidateSquad checks the shape of a picks payload: SquadSize picks in
// distinct slots 1..SquadSize, no repeated element, one captain and one
// vice captain.
func ValidateSquad(picks []fpl.Pick, rules Rules) error {
	if len(picks) != rules.SquadSize {
		return fmt.Errorf("%w: expected %d, got %d", ErrInvalidSquadSize, rules.SquadSize, len(picks))
	}

	slots := make(map[int]struct{}, len(picks))
	elements := make(map[int64]struct{}, len(picks))
	var captains, vices int
	for _, pick := range picks {
		if pick.Position < 1 || pick.Position > rules.SquadSize {
			return fmt.Errorf("%w: slot=%d", ErrInvalidSquadSize, pick.Position)
		}
		if _, exists := slots[pick.Position]; exists {
			return fmt.Errorf("%w: slot=%d", ErrDuplicatePick, pick.Position)
		}
		slots[pick.Position] = struct{}{}
		if _, exists := elements[pick.Element]; exists {
			return fmt.Errorf("%w: element=%d", ErrDuplicatePick, pick.Element)
		}
		elements[pick.Element] = struct{}{}

		if pick.IsCaptain {
			captains++
		}
		if pick.IsViceCaptain {
			vices++
		}
	}
	if captains != 1 || vices != 1 {
		return fmt.Errorf("%w: captains=%d vice_captains=%d", ErrCaptaincy, captains, vices)
	}

	return nil
}
