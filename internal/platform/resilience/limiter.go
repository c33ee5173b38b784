package resilience

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// DefaultLimiterCapacity bounds concurrent upstream requests per process.
const DefaultLimiterCapacity = 10

// Limiter is a bounded permit pool shared by everything that talks to one
// upstream. It is constructed once and handed to clients explicitly.
type Limiter struct {
	sem      *semaphore.Weighted
	capacity int
}

func NewLimiter(capacity int) *Limiter {
	if capacity < 1 {
		capacity = DefaultLimiterCapacity
	}
	return &Limiter{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

// Acquire blocks until a permit is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

func (l *Limiter) TryAcquire() bool {
	return l.sem.TryAcquire(1)
}

func (l *Limiter) Release() {
	l.sem.Release(1)
}

func (l *Limiter) Capacity() int {
	return l.capacity
}

// Do runs fn while holding a permit. The permit is released even if fn panics.
func (l *Limiter) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn(ctx)
}
