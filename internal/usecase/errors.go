package usecase

import (
	"errors"
	"fmt"
)

// MaxGameweek is the last gameweek of a Premier League season.
const MaxGameweek = 38

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	// ErrDependencyUnavailable means the upstream API could not serve the
	// request this cycle; callers may retry later.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

func requirePositiveID(name string, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: %s must be > 0", ErrInvalidInput, name)
	}
	return nil
}

func validateGameweek(gameweek int) error {
	if gameweek <= 0 || gameweek > MaxGameweek {
		return fmt.Errorf("%w: gameweek must be between 1 and %d, got %d", ErrInvalidInput, MaxGameweek, gameweek)
	}
	return nil
}
