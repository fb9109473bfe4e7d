package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/drugfactsio/backend/pkg/errors"
)

func TestHealthTrackerStartsHealthy(t *testing.T) {
	tracker := NewHealthTracker()
	assert.Equal(t, HealthStatusHealthy, tracker.Status(DependencyAI))
}

func TestHealthTrackerUnhealthyOnConsecutiveFailures(t *testing.T) {
	tracker := NewHealthTracker()

	// Lots of history so the success rate stays high; only the
	// consecutive count should trip unhealthy.
	for i := 0; i < 95; i++ {
		tracker.RecordSuccess(DependencyAI, "generate_enrichment", 100*time.Millisecond)
	}
	for i := 0; i < 4; i++ {
		tracker.RecordError(DependencyAI, "generate_enrichment", errors.New("timeout"))
	}
	assert.NotEqual(t, HealthStatusUnhealthy, tracker.Status(DependencyAI))

	tracker.RecordError(DependencyAI, "generate_enrichment", errors.New("timeout"))
	assert.Equal(t, HealthStatusUnhealthy, tracker.Status(DependencyAI))
}

func TestHealthTrackerUnhealthyOnLowSuccessRate(t *testing.T) {
	tracker := NewHealthTracker()

	tracker.RecordError(DependencyFDA, "resolve_label", errors.New("boom"))
	tracker.RecordSuccess(DependencyFDA, "resolve_label", 50*time.Millisecond)
	tracker.RecordError(DependencyFDA, "resolve_label", errors.New("boom"))

	// 1 success / 3 calls = 33% < 50%
	assert.Equal(t, HealthStatusUnhealthy, tracker.Status(DependencyFDA))
}

func TestHealthTrackerDegraded(t *testing.T) {
	tracker := NewHealthTracker()

	// 7 successes, 3 failures = 70% success, consecutive reset by last
	// success: degraded via success rate.
	for i := 0; i < 3; i++ {
		tracker.RecordError(DependencyAI, "generate_enrichment", errors.New("boom"))
	}
	for i := 0; i < 7; i++ {
		tracker.RecordSuccess(DependencyAI, "generate_enrichment", 100*time.Millisecond)
	}
	assert.Equal(t, HealthStatusDegraded, tracker.Status(DependencyAI))
}

func TestHealthTrackerDegradedOnTwoConsecutive(t *testing.T) {
	tracker := NewHealthTracker()

	for i := 0; i < 20; i++ {
		tracker.RecordSuccess(DependencyAI, "generate_enrichment", 100*time.Millisecond)
	}
	tracker.RecordError(DependencyAI, "generate_enrichment", errors.New("boom"))
	assert.Equal(t, HealthStatusHealthy, tracker.Status(DependencyAI))

	tracker.RecordError(DependencyAI, "generate_enrichment", errors.New("boom"))
	assert.Equal(t, HealthStatusDegraded, tracker.Status(DependencyAI))
}

func TestHealthTrackerSuccessResetsConsecutive(t *testing.T) {
	tracker := NewHealthTracker()

	for i := 0; i < 4; i++ {
		tracker.RecordError(DependencyAI, "generate_enrichment", errors.New("boom"))
	}
	tracker.RecordSuccess(DependencyAI, "generate_enrichment", 100*time.Millisecond)

	snapshot := tracker.Snapshot(DependencyAI)
	assert.Equal(t, 0, snapshot.ConsecutiveFailures)
	assert.Equal(t, 4, snapshot.TotalFailures)
	assert.Equal(t, 1, snapshot.TotalSuccesses)
}

func TestHealthTrackerRecentErrorsBounded(t *testing.T) {
	tracker := NewHealthTracker()
	tracker.maxRecentErrors = 5

	for i := 0; i < 12; i++ {
		tracker.RecordError(DependencyFDA, "resolve_label", apperrors.NewExternalError("boom", nil, true))
	}

	snapshot := tracker.Snapshot(DependencyFDA)
	assert.Len(t, snapshot.RecentErrors, 5)
	assert.Equal(t, 12, snapshot.TotalFailures)

	event := snapshot.RecentErrors[0]
	assert.Equal(t, "resolve_label", event.Operation)
	assert.Equal(t, string(apperrors.ErrorTypeExternal), event.ErrorType)
	assert.NotEmpty(t, event.CorrelationID)
	assert.False(t, event.Timestamp.IsZero())
}

func TestHealthTrackerRollingAverage(t *testing.T) {
	tracker := NewHealthTracker()

	tracker.RecordSuccess(DependencyAI, "generate_enrichment", 100*time.Millisecond)
	snapshot := tracker.Snapshot(DependencyAI)
	assert.InDelta(t, 100, snapshot.AvgResponseTimeMs, 0.001)

	tracker.RecordSuccess(DependencyAI, "generate_enrichment", 200*time.Millisecond)
	snapshot = tracker.Snapshot(DependencyAI)
	require.Greater(t, snapshot.AvgResponseTimeMs, 100.0)
	require.Less(t, snapshot.AvgResponseTimeMs, 200.0)
}

func TestHealthTrackerLoneEarlyFailureStaysHealthy(t *testing.T) {
	tracker := NewHealthTracker()

	// A single failure before any success must not report a 0% rate.
	tracker.RecordError(DependencyAI, "generate_enrichment", errors.New("timeout"))

	assert.Equal(t, HealthStatusHealthy, tracker.Status(DependencyAI))
	assert.InDelta(t, 1.0, tracker.Snapshot(DependencyAI).SuccessRate, 0.001)
}

func TestHealthTrackerSuccessRateIsWindowed(t *testing.T) {
	tracker := NewHealthTracker()

	// Old failures age out of the outcome window once enough successes
	// follow them.
	for i := 0; i < 10; i++ {
		tracker.RecordError(DependencyAI, "generate_enrichment", errors.New("boom"))
	}
	for i := 0; i < healthWindowSize; i++ {
		tracker.RecordSuccess(DependencyAI, "generate_enrichment", 100*time.Millisecond)
	}

	snapshot := tracker.Snapshot(DependencyAI)
	assert.InDelta(t, 1.0, snapshot.SuccessRate, 0.001)
	assert.Equal(t, HealthStatusHealthy, snapshot.Status)
}

func TestHealthTrackerUnhealthySoftensAfterCooldown(t *testing.T) {
	tracker := NewHealthTracker()
	current := time.Now()
	tracker.now = func() time.Time { return current }

	for i := 0; i < 5; i++ {
		tracker.RecordError(DependencyAI, "generate_enrichment", errors.New("timeout"))
	}
	require.Equal(t, HealthStatusUnhealthy, tracker.Status(DependencyAI))

	// After the cooldown the status softens so a trial call gets through.
	current = current.Add(recoveryCooldown + time.Second)
	assert.Equal(t, HealthStatusDegraded, tracker.Status(DependencyAI))

	// A fresh failure during probation latches unhealthy again.
	tracker.RecordError(DependencyAI, "generate_enrichment", errors.New("timeout"))
	assert.Equal(t, HealthStatusUnhealthy, tracker.Status(DependencyAI))

	// Successes during a later probation walk it back to healthy.
	current = current.Add(recoveryCooldown + time.Second)
	for i := 0; i < healthWindowSize; i++ {
		tracker.RecordSuccess(DependencyAI, "generate_enrichment", 100*time.Millisecond)
	}
	assert.Equal(t, HealthStatusHealthy, tracker.Status(DependencyAI))
}
