// Package circuitbreaker protects the outbound collectors from hammering an
// upstream API that is failing or rate limiting us.
//
// A tripped breaker makes calls fail fast with ErrCircuitOpen. Collectors
// treat that like any other upstream failure and report absent data.
package circuitbreaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrCircuitOpen is returned by Execute while the breaker rejects calls
var ErrCircuitOpen = errors.New("circuit breaker open")

// ErrCallerAborted marks a failure caused by the caller giving up, such as a
// cancelled request context. Execute does not count it against the upstream.
var ErrCallerAborted = errors.New("caller aborted")

// State represents the current state of the circuit breaker
type State int

// Circuit breaker states
const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Tripped, calls rejected
	StateHalfOpen              // Probing whether the upstream recovered
)

// String returns the lowercase state name
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CircuitBreaker counts consecutive upstream failures and opens once the
// threshold is reached.
type CircuitBreaker struct {
	// Name of the upstream, used in logs and status output
	name string

	// Consecutive failures that trip the breaker
	failureThreshold int

	// Current state of the circuit breaker (Closed, Open, HalfOpen)
	state State

	// Timestamp of the last circuit trip
	lastTrip time.Time

	// Duration before a half-open probe is allowed
	cooldown time.Duration

	// Mutex for thread safety
	mu sync.Mutex

	// Consecutive failures while closed
	failureCount int

	// Count of consecutive successful operations in HalfOpen state
	successCount int

	// Number of successful operations required to close circuit
	successThreshold int

	// Last error that counted as a failure
	lastErr error

	// Event callback for monitoring/alerting
	onTripCallback func(name, reason string)
}

// New creates a new CircuitBreaker for the named upstream
func New(name string, failureThreshold int) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	return &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		state:            StateClosed,
		cooldown:         30 * time.Second,
		successThreshold: 1,
	}
}

// WithCooldown sets how long the breaker stays open and returns the circuit breaker
func (cb *CircuitBreaker) WithCooldown(delay time.Duration) *CircuitBreaker {
	cb.cooldown = delay
	return cb
}

// WithSuccessThreshold sets the number of successful operations needed to close the circuit
func (cb *CircuitBreaker) WithSuccessThreshold(threshold int) *CircuitBreaker {
	if threshold < 1 {
		threshold = 1
	}
	cb.successThreshold = threshold
	return cb
}

// WithTripCallback sets a callback function that is called when the circuit trips
func (cb *CircuitBreaker) WithTripCallback(callback func(name, reason string)) *CircuitBreaker {
	cb.onTripCallback = callback
	return cb
}

// Name returns the upstream name
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Execute runs fn unless the circuit is open, and records its outcome.
// Errors wrapping ErrCallerAborted are returned without being recorded.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.allow(); err != nil {
		return err
	}

	err := fn()
	switch {
	case err == nil:
		cb.recordSuccess()
	case errors.Is(err, ErrCallerAborted):
	default:
		cb.recordFailure(err)
	}
	return err
}

// allow rejects calls while open and moves to half-open after the cooldown
func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return nil
	}
	if time.Since(cb.lastTrip) < cb.cooldown {
		return fmt.Errorf("%w: %s", ErrCircuitOpen, cb.name)
	}

	cb.state = StateHalfOpen
	cb.successCount = 0
	logrus.WithField("upstream", cb.name).Info("Circuit breaker half-open: testing upstream recovery")
	return nil
}

func (cb *CircuitBreaker) recordFailure(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastErr = err
	switch cb.state {
	case StateHalfOpen:
		cb.trip(fmt.Sprintf("probe failed: %v", err))
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.failureThreshold {
			cb.trip(fmt.Sprintf("%d consecutive failures, last: %v", cb.failureCount, err))
		}
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount = 0
	if cb.state == StateHalfOpen {
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.state = StateClosed
			cb.successCount = 0
			logrus.WithField("upstream", cb.name).Info("Circuit breaker closed: upstream has recovered")
		}
	}
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forcibly resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failureCount = 0
	cb.successCount = 0
	logrus.WithField("upstream", cb.name).Info("Circuit breaker manually reset to closed state")
}

// Snapshot is a point-in-time view of a breaker for status endpoints
type Snapshot struct {
	Name         string    `json:"name"`
	State        State     `json:"state"`
	FailureCount int       `json:"failure_count"`
	LastTrip     time.Time `json:"last_trip,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
}

// Snapshot returns the current breaker status
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s := Snapshot{
		Name:         cb.name,
		State:        cb.state,
		FailureCount: cb.failureCount,
		LastTrip:     cb.lastTrip,
	}
	if cb.lastErr != nil {
		s.LastError = cb.lastErr.Error()
	}
	return s
}

// trip sets the circuit breaker to open state with the current time.
// Callers hold cb.mu.
func (cb *CircuitBreaker) trip(reason string) {
	cb.state = StateOpen
	cb.lastTrip = time.Now()
	cb.failureCount = 0
	cb.successCount = 0
	logrus.WithField("upstream", cb.name).Warnf("Circuit breaker tripped: %s", reason)

	if cb.onTripCallback != nil {
		go cb.onTripCallback(cb.name, reason)
	}
}
