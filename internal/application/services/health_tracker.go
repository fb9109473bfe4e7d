package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/drugfactsio/backend/pkg/errors"
)

// HealthStatus is the derived health of a tracked dependency
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// Tracked dependency names
const (
	DependencyFDA = "fda_api"
	DependencyAI  = "ai_service"
)

const (
	defaultMaxRecentErrors = 50

	// unhealthyConsecutiveThreshold trips the unhealthy state on its own;
	// degradedConsecutiveThreshold only downgrades to degraded.
	unhealthyConsecutiveThreshold = 5
	degradedConsecutiveThreshold  = 2

	// Success rate is computed over the last healthWindowSize outcomes and
	// ignored until healthMinRateSamples have been observed, so a lone
	// startup failure cannot report a 0% rate.
	healthWindowSize     = 20
	healthMinRateSamples = 3

	// After recoveryCooldown without a new failure, unhealthy softens to
	// degraded so callers using the status as a pre-flight gate let a
	// trial call through, the way a breaker goes half-open.
	recoveryCooldown = time.Minute
)

// ErrorEvent is one recorded failure
type ErrorEvent struct {
	Operation     string    `json:"operation"`
	ErrorType     string    `json:"error_type"`
	Message       string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id"`
}

// DependencyHealth is a point-in-time snapshot of one dependency
type DependencyHealth struct {
	Dependency          string       `json:"dependency"`
	Status              HealthStatus `json:"status"`
	TotalSuccesses      int          `json:"total_successes"`
	TotalFailures       int          `json:"total_failures"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	SuccessRate         float64      `json:"success_rate"`
	AvgResponseTimeMs   float64      `json:"avg_response_time_ms"`
	RecentErrors        []ErrorEvent `json:"recent_errors,omitempty"`
}

type dependencyState struct {
	totalSuccesses      int
	totalFailures       int
	consecutiveFailures int
	avgResponseTimeMs   float64
	recentErrors        []ErrorEvent
	recentOutcomes      []bool
	lastFailureAt       time.Time
}

func (s *dependencyState) recordOutcome(success bool) {
	s.recentOutcomes = append(s.recentOutcomes, success)
	if len(s.recentOutcomes) > healthWindowSize {
		s.recentOutcomes = s.recentOutcomes[len(s.recentOutcomes)-healthWindowSize:]
	}
}

// successRate is the fraction of successes in the rolling outcome window,
// or 1.0 while the window holds too few samples to judge.
func (s *dependencyState) successRate() float64 {
	if len(s.recentOutcomes) < healthMinRateSamples {
		return 1.0
	}
	successes := 0
	for _, ok := range s.recentOutcomes {
		if ok {
			successes++
		}
	}
	return float64(successes) / float64(len(s.recentOutcomes))
}

// HealthTracker records success/failure events per external dependency and
// derives a rolling health status. The content generation service uses the
// AI dependency's status as a pre-flight skip signal.
type HealthTracker struct {
	mu              sync.RWMutex
	deps            map[string]*dependencyState
	maxRecentErrors int
	now             func() time.Time
}

// NewHealthTracker creates a new tracker.
func NewHealthTracker() *HealthTracker {
	return &HealthTracker{
		deps:            make(map[string]*dependencyState),
		maxRecentErrors: defaultMaxRecentErrors,
		now:             time.Now,
	}
}

func (t *HealthTracker) state(dependency string) *dependencyState {
	state, ok := t.deps[dependency]
	if !ok {
		state = &dependencyState{}
		t.deps[dependency] = state
	}
	return state
}

// RecordSuccess resets the consecutive-failure count and folds the
// response time into the rolling average.
func (t *HealthTracker) RecordSuccess(dependency, operation string, duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := t.state(dependency)
	state.totalSuccesses++
	state.consecutiveFailures = 0
	state.recordOutcome(true)

	ms := float64(duration.Milliseconds())
	if state.avgResponseTimeMs == 0 {
		state.avgResponseTimeMs = ms
	} else {
		// Exponential moving average, biased toward history.
		state.avgResponseTimeMs = state.avgResponseTimeMs*0.8 + ms*0.2
	}
}

// RecordError appends to the bounded recent-error buffer and increments
// the consecutive-failure count.
func (t *HealthTracker) RecordError(dependency, operation string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := t.state(dependency)
	state.totalFailures++
	state.consecutiveFailures++
	state.recordOutcome(false)
	state.lastFailureAt = t.now()

	event := ErrorEvent{
		Operation:     operation,
		ErrorType:     string(apperrors.TypeOf(err)),
		Timestamp:     t.now(),
		CorrelationID: uuid.New().String(),
	}
	if err != nil {
		event.Message = err.Error()
	}

	state.recentErrors = append(state.recentErrors, event)
	if len(state.recentErrors) > t.maxRecentErrors {
		state.recentErrors = state.recentErrors[len(state.recentErrors)-t.maxRecentErrors:]
	}
}

// Status derives the health of a dependency from its current counters.
func (t *HealthTracker) Status(dependency string) HealthStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state, ok := t.deps[dependency]
	if !ok {
		return HealthStatusHealthy
	}
	return deriveStatus(state, t.now())
}

// deriveStatus derives health from the rolling counters: unhealthy when
// consecutive failures reach the hard threshold or the windowed success
// rate drops below 50%; degraded below 80% success or at two consecutive
// failures. An unhealthy dependency whose last failure is older than the
// recovery cooldown reports degraded instead, so a trial call can prove
// the dependency back to health.
func deriveStatus(state *dependencyState, now time.Time) HealthStatus {
	successRate := state.successRate()

	if state.consecutiveFailures >= unhealthyConsecutiveThreshold || successRate < 0.5 {
		if now.Sub(state.lastFailureAt) >= recoveryCooldown {
			return HealthStatusDegraded
		}
		return HealthStatusUnhealthy
	}
	if successRate < 0.8 || state.consecutiveFailures >= degradedConsecutiveThreshold {
		return HealthStatusDegraded
	}
	return HealthStatusHealthy
}

// Snapshot returns the current health of one dependency.
func (t *HealthTracker) Snapshot(dependency string) DependencyHealth {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state, ok := t.deps[dependency]
	if !ok {
		return DependencyHealth{Dependency: dependency, Status: HealthStatusHealthy, SuccessRate: 1.0}
	}

	errors := make([]ErrorEvent, len(state.recentErrors))
	copy(errors, state.recentErrors)

	return DependencyHealth{
		Dependency:          dependency,
		Status:              deriveStatus(state, t.now()),
		TotalSuccesses:      state.totalSuccesses,
		TotalFailures:       state.totalFailures,
		ConsecutiveFailures: state.consecutiveFailures,
		SuccessRate:         state.successRate(),
		AvgResponseTimeMs:   state.avgResponseTimeMs,
		RecentErrors:        errors,
	}
}

// SnapshotAll returns the current health of every tracked dependency.
func (t *HealthTracker) SnapshotAll() []DependencyHealth {
	t.mu.RLock()
	names := make([]string, 0, len(t.deps))
	for name := range t.deps {
		names = append(names, name)
	}
	t.mu.RUnlock()

	snapshots := make([]DependencyHealth, 0, len(names))
	for _, name := range names {
		snapshots = append(snapshots, t.Snapshot(name))
	}
	return snapshots
}
