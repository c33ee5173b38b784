package fantasy

import (
	"errors"
	"testing"

	"github.com/riskibarqy/fpl-livescore/internal/domain/fpl"
	"github.com/riskibarqy/fpl-livescore/internal/domain/player"
)

func TestValidateFormation(t *testing.T) {
	rules := DefaultRules()
	lineup := []player.Position{
		player.PositionGoalkeeper,
		player.PositionDefender, player.PositionDefender, player.PositionDefender, player.PositionDefender,
		player.PositionMidfielder, player.PositionMidfielder, player.PositionMidfielder, player.PositionMidfielder,
		player.PositionForward, player.PositionForward,
	}

	tests := []struct {
		name      string
		mutate    func([]player.Position) []player.Position
		targetErr error
	}{
		{
			name:   "valid 4-4-2",
			mutate: func(p []player.Position) []player.Position { return p },
		},
		{
			name: "valid 5-4-1",
			mutate: func(p []player.Position) []player.Position {
				p[9] = player.PositionDefender
				return p
			},
		},
		{
			name: "two defenders",
			mutate: func(p []player.Position) []player.Position {
				p[1] = player.PositionMidfielder
				p[2] = player.PositionForward
				return p
			},
			targetErr: ErrInsufficientFormation,
		},
		{
			name: "one midfielder",
			mutate: func(p []player.Position) []player.Position {
				p[5] = player.PositionForward
				p[6] = player.PositionForward
				p[7] = player.PositionDefender
				return p
			},
			targetErr: ErrInsufficientFormation,
		},
		{
			name: "no forward",
			mutate: func(p []player.Position) []player.Position {
				p[9] = player.PositionMidfielder
				p[10] = player.PositionDefender
				return p
			},
			targetErr: ErrInsufficientFormation,
		},
		{
			name: "two goalkeepers",
			mutate: func(p []player.Position) []player.Position {
				p[4] = player.PositionGoalkeeper
				return p
			},
			targetErr: ErrGoalkeeperCount,
		},
		{
			name: "no goalkeeper",
			mutate: func(p []player.Position) []player.Position {
				p[0] = player.PositionDefender
				return p
			},
			targetErr: ErrGoalkeeperCount,
		},
		{
			name: "ten players",
			mutate: func(p []player.Position) []player.Position {
				return p[:10]
			},
			targetErr: ErrInvalidLineupSize,
		},
		{
			name: "unknown position",
			mutate: func(p []player.Position) []player.Position {
				p[3] = player.Position("UNK")
				return p
			},
			targetErr: ErrUnknownPlayerPosition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			positions := tt.mutate(append([]player.Position(nil), lineup...))

			err := ValidateFormation(positions, rules)
			if tt.targetErr == nil {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			if !errors.Is(err, tt.targetErr) {
				t.Fatalf("expected error %v, got %v", tt.targetErr, err)
			}
		})
	}
}

func TestFormationString(t *testing.T) {
	f := FormationOf([]player.Position{
		player.PositionGoalkeeper,
		player.PositionDefender, player.PositionDefender, player.PositionDefender,
		player.PositionMidfielder, player.PositionMidfielder, player.PositionMidfielder, player.PositionMidfielder, player.PositionMidfielder,
		player.PositionForward, player.PositionForward,
	})
	if got := f.String(); got != "3-5-2" {
		t.Fatalf("expected 3-5-2, got %s", got)
	}
}

func TestValidateSquad(t *testing.T) {
	rules := DefaultRules()
	squad := make([]fpl.Pick, 0, 15)
	for slot := 1; slot <= 15; slot++ {
		squad = append(squad, fpl.Pick{
			Element:       int64(100 + slot),
			Position:      slot,
			Multiplier:    1,
			IsCaptain:     slot == 10,
			IsViceCaptain: slot == 7,
		})
	}

	if err := ValidateSquad(squad, rules); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	noVice := append([]fpl.Pick(nil), squad...)
	noVice[6].IsViceCaptain = false
	if err := ValidateSquad(noVice, rules); !errors.Is(err, ErrCaptaincy) {
		t.Fatalf("expected ErrCaptaincy, got %v", err)
	}

	dupSlot := append([]fpl.Pick(nil), squad...)
	dupSlot[14].Position = 1
	if err := ValidateSquad(dupSlot, rules); !errors.Is(err, ErrDuplicatePick) {
		t.Fatalf("expected ErrDuplicatePick, got %v", err)
	}

	if err := ValidateSquad(squad[:14], rules); !errors.Is(err, ErrInvalidSquadSize) {
		t.Fatalf("expected ErrInvalidSquadSize, got %v", err)
	}
}
