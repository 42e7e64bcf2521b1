package sourceclient

import (
	"sync"
	"time"
)

// breakerState mirrors the textbook closed/open/half-open circuit breaker
// states; spec.md §4.2 fixes the thresholds (5 consecutive failures opens
// it, 2 minutes before a half-open probe).
type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

const (
	consecutiveFailureThreshold = 5
	openDuration                = 2 * time.Minute
)

// circuitBreaker trips after consecutiveFailureThreshold consecutive network
// failures, refuses calls for openDuration, then goes half-open and admits
// calls until the next recorded outcome: a success closes it, a network
// failure re-opens it.
type circuitBreaker struct {
	mu               sync.Mutex
	state            breakerState
	consecutiveFails int
	openedAt         time.Time
	now              func() time.Time
}

func newCircuitBreaker(now func() time.Time) *circuitBreaker {
	if now == nil {
		now = time.Now
	}
	return &circuitBreaker{now: now}
}

// allow reports whether a call may proceed, transitioning open -> half-open
// once openDuration has elapsed.
func (b *circuitBreaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerOpen:
		if b.now().Sub(b.openedAt) >= openDuration {
			b.state = breakerHalfOpen
			return true
		}
		return false
	default:
		return true
	}
}

// recordSuccess closes the breaker (from closed or half-open) and resets the
// failure streak.
func (b *circuitBreaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = breakerClosed
	b.consecutiveFails = 0
}

// recordNetworkFailure counts toward the trip threshold. Only network-class
// failures count; HTTP 4xx/malformed-body errors never trip the breaker.
func (b *circuitBreaker) recordNetworkFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == breakerHalfOpen {
		b.state = breakerOpen
		b.openedAt = b.now()
		return
	}

	b.consecutiveFails++
	if b.consecutiveFails >= consecutiveFailureThreshold {
		b.state = breakerOpen
		b.openedAt = b.now()
	}
}
