package llm

import (
	"sync"
	"time"

	"github.com/Veraticus/callguard/internal/metrics"
)

// breakerState is the state of the remote classifier circuit.
type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// breaker trips after threshold consecutive failures and short-circuits
// remote calls for cooldown, then lets a single probe through.
type breaker struct {
	lastFailure time.Time
	now         func() time.Time
	threshold   int
	failures    int
	cooldown    time.Duration
	state       breakerState
	mu          sync.Mutex
}

// newBreaker returns nil when threshold is not positive, which disables breaking.
func newBreaker(threshold int, cooldown time.Duration) *breaker {
	if threshold <= 0 {
		return nil
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &breaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// allow reports whether a remote call may proceed.
func (b *breaker) allow() bool {
	if b == nil {
		return true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerOpen:
		if b.now().Sub(b.lastFailure) >= b.cooldown {
			b.transition(breakerHalfOpen)
			return true
		}
		return false
	case breakerHalfOpen:
		return false
	default:
		return true
	}
}

func (b *breaker) success() {
	if b == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state != breakerClosed {
		b.transition(breakerClosed)
	}
}

func (b *breaker) failure() {
	if b == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.now()

	switch {
	case b.state == breakerHalfOpen:
		b.transition(breakerOpen)
	case b.state == breakerClosed && b.failures >= b.threshold:
		b.transition(breakerOpen)
	}
}

func (b *breaker) current() breakerState {
	if b == nil {
		return breakerClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// transition must be called with mu held.
func (b *breaker) transition(to breakerState) {
	metrics.BreakerTransitionsTotal.WithLabelValues(b.state.String(), to.String()).Inc()
	b.state = to
}
