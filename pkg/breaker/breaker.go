// Package breaker implements a three-state circuit breaker used to guard
// calls to external dependencies (openFDA, the AI service).
package breaker

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/drugfactsio/backend/pkg/errors"
)

// State represents the circuit breaker state
type State string

const (
	// StateClosed allows all calls through
	StateClosed State = "CLOSED"

	// StateOpen rejects all calls until the open timeout elapses
	StateOpen State = "OPEN"

	// StateHalfOpen allows a single trial call at a time
	StateHalfOpen State = "HALF_OPEN"
)

// Config holds circuit breaker tuning parameters
type Config struct {
	// FailureThreshold is the number of failures within MonitoringWindow
	// that trips the circuit open.
	FailureThreshold int

	// SuccessThreshold is the number of consecutive half-open successes
	// required to close the circuit again.
	SuccessThreshold int

	// OpenTimeout is how long the circuit stays open before allowing a trial.
	OpenTimeout time.Duration

	// MonitoringWindow is the trailing window failures are counted over.
	MonitoringWindow time.Duration
}

// DefaultConfig returns the configuration used for external API dependencies
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
		MonitoringWindow: 60 * time.Second,
	}
}

// Metrics is a point-in-time snapshot of breaker counters
type Metrics struct {
	Name             string    `json:"name"`
	State            State     `json:"state"`
	RecentFailures   int       `json:"recent_failures"`
	TotalFailures    int64     `json:"total_failures"`
	TotalSuccesses   int64     `json:"total_successes"`
	LastFailureAt    time.Time `json:"last_failure_at,omitempty"`
	LastSuccessAt    time.Time `json:"last_success_at,omitempty"`
	LastTransitionAt time.Time `json:"last_transition_at,omitempty"`
	NextAttemptAt    time.Time `json:"next_attempt_at,omitempty"`
	FailureRate      float64   `json:"failure_rate"`
	Uptime           float64   `json:"uptime"`
}

// CircuitBreaker guards a single external dependency. Safe for concurrent use.
type CircuitBreaker struct {
	name string
	cfg  Config
	now  func() time.Time

	mu             sync.Mutex
	state          State
	failures       []time.Time
	halfOpenProbe  bool
	successStreak  int
	totalFailures  int64
	totalSuccesses int64
	lastFailure    time.Time
	lastSuccess    time.Time
	lastTransition time.Time
	nextAttempt    time.Time
}

// New creates a circuit breaker for the named dependency
func New(name string, cfg Config) *CircuitBreaker {
	return newWithClock(name, cfg, time.Now)
}

func newWithClock(name string, cfg Config, now func() time.Time) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = DefaultConfig().SuccessThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultConfig().OpenTimeout
	}
	if cfg.MonitoringWindow <= 0 {
		cfg.MonitoringWindow = DefaultConfig().MonitoringWindow
	}
	return &CircuitBreaker{
		name:           name,
		cfg:            cfg,
		now:            now,
		state:          StateClosed,
		lastTransition: now(),
	}
}

// Name returns the guarded dependency name
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// State returns the current state
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Execute runs fn under circuit breaker protection. In the open state the
// call is rejected without invoking fn; the returned error carries the
// suggested retry-after duration.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.beforeCall(); err != nil {
		return err
	}

	err := fn(ctx)
	cb.afterCall(err)
	return err
}

// beforeCall admits or rejects the call and performs OPEN -> HALF_OPEN
// transition when the open timeout has elapsed.
func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if now.Before(cb.nextAttempt) {
			return apperrors.NewCircuitOpenError(cb.name, cb.nextAttempt.Sub(now))
		}
		cb.transition(StateHalfOpen, now)
		cb.successStreak = 0
		cb.halfOpenProbe = true
		return nil
	case StateHalfOpen:
		if cb.halfOpenProbe {
			// A trial call is already in flight.
			return apperrors.NewCircuitOpenError(cb.name, cb.cfg.OpenTimeout)
		}
		cb.halfOpenProbe = true
		return nil
	}
	return nil
}

func (cb *CircuitBreaker) afterCall(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()

	if err != nil {
		cb.totalFailures++
		cb.lastFailure = now

		switch cb.state {
		case StateHalfOpen:
			// A single failure while probing reopens the circuit.
			cb.halfOpenProbe = false
			cb.trip(now)
		case StateClosed:
			cb.failures = append(cb.failures, now)
			cb.pruneFailures(now)
			if len(cb.failures) >= cb.cfg.FailureThreshold {
				cb.trip(now)
			}
		}
		return
	}

	cb.totalSuccesses++
	cb.lastSuccess = now

	switch cb.state {
	case StateHalfOpen:
		cb.halfOpenProbe = false
		cb.successStreak++
		if cb.successStreak >= cb.cfg.SuccessThreshold {
			cb.transition(StateClosed, now)
			cb.failures = nil
		}
	case StateClosed:
		// Decay rather than reset: one success forgives one failure.
		if len(cb.failures) > 0 {
			cb.failures = cb.failures[1:]
		}
	}
}

// trip moves the breaker to OPEN and schedules the next attempt
func (cb *CircuitBreaker) trip(now time.Time) {
	cb.transition(StateOpen, now)
	cb.nextAttempt = now.Add(cb.cfg.OpenTimeout)
	cb.failures = nil
}

func (cb *CircuitBreaker) transition(to State, now time.Time) {
	if cb.state == to {
		return
	}
	cb.state = to
	cb.lastTransition = now
}

func (cb *CircuitBreaker) pruneFailures(now time.Time) {
	cutoff := now.Add(-cb.cfg.MonitoringWindow)
	kept := cb.failures[:0]
	for _, ts := range cb.failures {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	cb.failures = kept
}

// Metrics returns a snapshot of the breaker counters
func (cb *CircuitBreaker) Metrics() Metrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	total := cb.totalFailures + cb.totalSuccesses
	var failureRate, uptime float64
	if total > 0 {
		failureRate = float64(cb.totalFailures) / float64(total)
		uptime = float64(cb.totalSuccesses) / float64(total)
	}

	m := Metrics{
		Name:             cb.name,
		State:            cb.state,
		RecentFailures:   len(cb.failures),
		TotalFailures:    cb.totalFailures,
		TotalSuccesses:   cb.totalSuccesses,
		LastFailureAt:    cb.lastFailure,
		LastSuccessAt:    cb.lastSuccess,
		LastTransitionAt: cb.lastTransition,
		FailureRate:      failureRate,
		Uptime:           uptime,
	}
	if cb.state == StateOpen {
		m.NextAttemptAt = cb.nextAttempt
	}
	return m
}

// ForceReset returns the breaker to CLOSED and clears failure history.
// Operator override only.
func (cb *CircuitBreaker) ForceReset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.transition(StateClosed, cb.now())
	cb.failures = nil
	cb.successStreak = 0
	cb.halfOpenProbe = false
	cb.nextAttempt = time.Time{}
}
