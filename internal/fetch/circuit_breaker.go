// SPDX-License-Identifier: MIT

package fetch

import (
	"errors"
	"sync"
	"time"

	"github.com/tvplayer/playlistd/internal/metrics"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = iota // normal operation, requests allowed
	StateOpen                  // circuit open, requests blocked
	StateHalfOpen              // testing if the host recovered
)

const (
	defaultFailureThreshold = 5
	defaultResetTimeout     = 2 * time.Minute
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker blocks fetches against a host after repeated failures so a
// dead upstream is not hammered on every scheduled refresh.
type CircuitBreaker struct {
	mu               sync.RWMutex
	host             string
	state            State
	failures         int
	failureThreshold int
	resetTimeout     time.Duration
	lastFailure      time.Time
}

// NewCircuitBreaker creates a closed breaker for the given host.
func NewCircuitBreaker(host string, threshold int, resetTimeout time.Duration) *CircuitBreaker {
	cb := &CircuitBreaker{
		host:             host,
		state:            StateClosed,
		failureThreshold: threshold,
		resetTimeout:     resetTimeout,
	}
	metrics.SetCircuitBreakerState(host, float64(cb.state))
	return cb
}

// Execute runs fn if the circuit is closed or half-open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allowRequest() {
		return ErrCircuitOpen
	}
	if err := fn(); err != nil {
		cb.recordFailure()
		return err
	}
	cb.recordSuccess()
	return nil
}

func (cb *CircuitBreaker) allowRequest() bool {
	cb.mu.Lock()
	prev := cb.state

	if cb.state == StateClosed {
		cb.mu.Unlock()
		return true
	}

	if cb.state == StateOpen {
		if time.Since(cb.lastFailure) > cb.resetTimeout {
			cb.state = StateHalfOpen
			state := cb.state
			cb.mu.Unlock()
			cb.publish(prev, state)
			return true
		}
		cb.mu.Unlock()
		return false
	}

	// StateHalfOpen: allow the probe request through.
	cb.mu.Unlock()
	return true
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	prev := cb.state

	cb.failures++
	cb.lastFailure = time.Now()

	if cb.state == StateHalfOpen || cb.failures >= cb.failureThreshold {
		cb.state = StateOpen
	}
	state := cb.state
	cb.mu.Unlock()
	cb.publish(prev, state)
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	prev := cb.state
	cb.failures = 0
	cb.state = StateClosed
	state := cb.state
	cb.mu.Unlock()
	cb.publish(prev, state)
}

func (cb *CircuitBreaker) publish(prev, state State) {
	if state != prev {
		metrics.SetCircuitBreakerState(cb.host, float64(state))
	}
}

// State returns the current state (thread-safe).
func (cb *CircuitBreaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}
