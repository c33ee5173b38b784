package resilience

import (
	"context"
	"time"
)

// RetryPolicy is the attempt budget and backoff schedule for upstream calls.
// Server errors back off base*2^attempt, throttling backs off base*4^attempt.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
	}
}

func NormalizeRetryPolicy(p RetryPolicy) RetryPolicy {
	defaults := DefaultRetryPolicy()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = defaults.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaults.BaseDelay
	}
	return p
}

// Delay returns the wait after the zero-based attempt.
func (p RetryPolicy) Delay(attempt int, throttled bool) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	factor := time.Duration(1)
	step := time.Duration(2)
	if throttled {
		step = 4
	}
	for i := 0; i < attempt; i++ {
		factor *= step
	}
	return p.BaseDelay * factor
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
