package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/drugfactsio/backend/pkg/errors"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestBreaker(t *testing.T) (*CircuitBreaker, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	cb := newWithClock("FDA_API", Config{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
		MonitoringWindow: time.Minute,
	}, clock.now)
	return cb, clock
}

var errDown = errors.New("service down")

func fail(ctx context.Context) error    { return errDown }
func succeed(ctx context.Context) error { return nil }

func TestBreaker_OpensAfterThresholdFailures(t *testing.T) {
	cb, _ := newTestBreaker(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	}

	assert.Equal(t, StateOpen, cb.State())
}

func TestBreaker_RejectsWhileOpenWithoutInvoking(t *testing.T) {
	cb, clock := newTestBreaker(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, fail)
	}
	require.Equal(t, StateOpen, cb.State())

	clock.advance(10 * time.Second)

	invoked := false
	err := cb.Execute(ctx, func(ctx context.Context) error {
		invoked = true
		return nil
	})

	assert.False(t, invoked)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeCircuitOpen))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 20*time.Second, appErr.RetryAfter)
}

func TestBreaker_HalfOpenTrialAndRecovery(t *testing.T) {
	cb, clock := newTestBreaker(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, fail)
	}
	clock.advance(31 * time.Second)

	// First success is the half-open trial; success threshold is 2.
	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, fail)
	}
	clock.advance(31 * time.Second)

	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, cb.State())
}

func TestBreaker_ClosedSuccessDecrementsFailures(t *testing.T) {
	cb, _ := newTestBreaker(t)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, fail)
	require.NoError(t, cb.Execute(ctx, succeed))

	// Two failures minus one success leaves one; two more failures are needed
	// to reach the threshold of three.
	_ = cb.Execute(ctx, fail)
	assert.Equal(t, StateClosed, cb.State())
	_ = cb.Execute(ctx, fail)
	assert.Equal(t, StateOpen, cb.State())
}

func TestBreaker_MonitoringWindowExpiresOldFailures(t *testing.T) {
	cb, clock := newTestBreaker(t)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, fail)
	clock.advance(2 * time.Minute)

	// Old failures are outside the window, so this does not trip.
	_ = cb.Execute(ctx, fail)
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreaker_ForceReset(t *testing.T) {
	cb, _ := newTestBreaker(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, fail)
	}
	require.Equal(t, StateOpen, cb.State())

	cb.ForceReset()

	assert.Equal(t, StateClosed, cb.State())
	assert.NoError(t, cb.Execute(ctx, succeed))
}

func TestBreaker_Metrics(t *testing.T) {
	cb, _ := newTestBreaker(t)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, succeed)
	_ = cb.Execute(ctx, succeed)
	_ = cb.Execute(ctx, succeed)

	m := cb.Metrics()
	assert.Equal(t, "FDA_API", m.Name)
	assert.Equal(t, StateClosed, m.State)
	assert.Equal(t, int64(1), m.TotalFailures)
	assert.Equal(t, int64(3), m.TotalSuccesses)
	assert.InDelta(t, 0.25, m.FailureRate, 0.0001)
	assert.InDelta(t, 0.75, m.Uptime, 0.0001)
}

func TestRegistry_ReturnsSameInstancePerName(t *testing.T) {
	reg := NewRegistry(DefaultConfig())

	fda := reg.Get(FDAAPIBreaker)
	ai := reg.Get(AIServiceBreaker)

	assert.Same(t, fda, reg.Get(FDAAPIBreaker))
	assert.NotSame(t, fda, ai)
	assert.Len(t, reg.Metrics(), 2)
}
