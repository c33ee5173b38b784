package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// TransitionFunc observes state changes. It runs after the breaker lock is
// released and must not block.
type TransitionFunc func(from, to CircuitState)

// CircuitBreaker sheds calls to the upstream after consecutive transient
// failures. All methods are safe on a nil receiver, which never trips.
type CircuitBreaker struct {
	mu sync.Mutex

	failureThreshold int
	openTimeout      time.Duration
	halfOpenMaxReq   int

	state     CircuitState
	failures  int
	openedAt  time.Time
	inFlight  int
	successes int

	onTransition TransitionFunc
	now          func() time.Time
}

func NewCircuitBreaker(failureThreshold int, openTimeout time.Duration, halfOpenMaxReq int) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: max(failureThreshold, 1),
		openTimeout:      durationOr(openTimeout, 30*time.Second),
		halfOpenMaxReq:   max(halfOpenMaxReq, 1),
		state:            CircuitStateClosed,
		now:              time.Now,
	}
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// OnTransition registers fn to be told about every state change.
func (b *CircuitBreaker) OnTransition(fn TransitionFunc) {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.onTransition = fn
	b.mu.Unlock()
}

// Allow reports whether a call may proceed. In half-open state at most
// halfOpenMaxReq trial requests are in flight at once.
func (b *CircuitBreaker) Allow() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	from := b.state
	err := b.allowLocked()
	to, hook := b.state, b.onTransition
	b.mu.Unlock()

	notify(hook, from, to)
	return err
}

func (b *CircuitBreaker) allowLocked() error {
	if b.state == CircuitStateOpen {
		if b.now().Sub(b.openedAt) < b.openTimeout {
			return ErrCircuitOpen
		}
		b.moveTo(CircuitStateHalfOpen)
	}
	if b.state == CircuitStateHalfOpen {
		if b.inFlight >= b.halfOpenMaxReq {
			return ErrCircuitOpen
		}
		b.inFlight++
	}
	return nil
}

// Record counts the outcome of an allowed call. Only failures that say
// something about upstream health should be passed as failed.
func (b *CircuitBreaker) Record(failed bool) {
	if b == nil {
		return
	}
	b.mu.Lock()
	from := b.state
	if failed {
		b.failureLocked()
	} else {
		b.successLocked()
	}
	to, hook := b.state, b.onTransition
	b.mu.Unlock()

	notify(hook, from, to)
}

func (b *CircuitBreaker) successLocked() {
	switch b.state {
	case CircuitStateClosed:
		b.failures = 0
	case CircuitStateHalfOpen:
		b.inFlight = max(b.inFlight-1, 0)
		b.successes++
		if b.successes >= b.halfOpenMaxReq && b.inFlight == 0 {
			b.moveTo(CircuitStateClosed)
		}
	}
}

func (b *CircuitBreaker) failureLocked() {
	switch b.state {
	case CircuitStateClosed:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.moveTo(CircuitStateOpen)
		}
	case CircuitStateHalfOpen:
		b.moveTo(CircuitStateOpen)
	case CircuitStateOpen:
		// a straggler that was allowed before the trip extends the window
		b.openedAt = b.now()
	}
}

// State is the effective state: an open breaker whose timeout elapsed
// reports half-open even before the next Allow.
func (b *CircuitBreaker) State() CircuitState {
	if b == nil {
		return CircuitStateClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && b.now().Sub(b.openedAt) >= b.openTimeout {
		return CircuitStateHalfOpen
	}
	return b.state
}

func (b *CircuitBreaker) moveTo(state CircuitState) {
	b.state = state
	b.failures = 0
	b.inFlight = 0
	b.successes = 0
	if state == CircuitStateOpen {
		b.openedAt = b.now()
	}
}

func notify(hook TransitionFunc, from, to CircuitState) {
	if hook != nil && from != to {
		hook(from, to)
	}
}
