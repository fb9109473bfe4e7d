package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drugfactsio/backend/internal/domain/entities"
	"github.com/drugfactsio/backend/internal/domain/providers"
)

type fakeCache struct {
	mu       sync.Mutex
	patterns []string
	err      error
}

func (f *fakeCache) Get(_ context.Context, _ string) ([]byte, error) { return nil, nil }

func (f *fakeCache) Set(_ context.Context, _ string, _ []byte, _ int) error { return nil }

func (f *fakeCache) Delete(_ context.Context, _ string) error { return nil }

func (f *fakeCache) Exists(_ context.Context, _ string) (bool, error) { return false, nil }

func (f *fakeCache) DeletePattern(_ context.Context, pattern string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patterns = append(f.patterns, pattern)
	return f.err
}

func (f *fakeCache) deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.patterns...)
}

type fakeNotifier struct {
	mu            sync.Mutex
	invalidations []providers.CacheInvalidation
	err           error
}

func (f *fakeNotifier) Notify(_ context.Context, invalidation providers.CacheInvalidation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidations = append(f.invalidations, invalidation)
	return f.err
}

func (f *fakeNotifier) sent() []providers.CacheInvalidation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]providers.CacheInvalidation(nil), f.invalidations...)
}

type fakeEventBus struct {
	events chan *entities.DrugEvent
}

func newFakeEventBus() *fakeEventBus {
	return &fakeEventBus{events: make(chan *entities.DrugEvent, 10)}
}

func (f *fakeEventBus) Publish(_ context.Context, _ string, event *entities.DrugEvent) error {
	f.events <- event
	return nil
}

func (f *fakeEventBus) Subscribe(_ context.Context, _ string) (<-chan *entities.DrugEvent, error) {
	return f.events, nil
}

func (f *fakeEventBus) Unsubscribe(_ context.Context, _ string) error { return nil }
func (f *fakeEventBus) Close() error                                  { return nil }

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestCacheInvalidationHandlesDrugEvent(t *testing.T) {
	cache := &fakeCache{}
	notifier := &fakeNotifier{}
	bus := newFakeEventBus()

	service := NewCacheInvalidationService(cache, bus, notifier)
	require.NoError(t, service.Start())
	defer service.Stop()

	event := entities.NewDrugEvent("drug-1", "0071-0155", "lipitor-atorvastatin", entities.DrugEventTypeEnrichmentUpdated)
	require.NoError(t, bus.Publish(context.Background(), providers.EventChannelDrugUpdates, event))

	waitFor(t, func() bool { return len(notifier.sent()) == 1 })

	deleted := cache.deleted()
	assert.Contains(t, deleted, "http:cache:*drugs/drug-1*")
	assert.Contains(t, deleted, "http:cache:*drugs/0071-0155*")
	assert.Contains(t, deleted, "http:cache:*drugs/slug/lipitor-atorvastatin*")

	sent := notifier.sent()[0]
	assert.Equal(t, providers.InvalidationTypeDrug, sent.Type)
	assert.Equal(t, "lipitor-atorvastatin", sent.Slug)
	assert.Equal(t, "0071-0155", sent.NDC)
}

func TestCacheInvalidationSwallowsFailures(t *testing.T) {
	cache := &fakeCache{err: errors.New("redis down")}
	notifier := &fakeNotifier{err: errors.New("webhook down")}
	bus := newFakeEventBus()

	service := NewCacheInvalidationService(cache, bus, notifier)
	require.NoError(t, service.Start())
	defer service.Stop()

	event := entities.NewDrugEvent("drug-1", "", "", entities.DrugEventTypeLabelUpdated)
	require.NoError(t, bus.Publish(context.Background(), providers.EventChannelDrugUpdates, event))

	// Both downstream failures are logged, the loop keeps running.
	waitFor(t, func() bool { return len(notifier.sent()) == 1 })

	second := entities.NewDrugEvent("drug-2", "", "", entities.DrugEventTypeLabelUpdated)
	require.NoError(t, bus.Publish(context.Background(), providers.EventChannelDrugUpdates, second))
	waitFor(t, func() bool { return len(notifier.sent()) == 2 })
}

func TestCacheInvalidationNilNotifier(t *testing.T) {
	cache := &fakeCache{}
	bus := newFakeEventBus()

	service := NewCacheInvalidationService(cache, bus, nil)
	require.NoError(t, service.Start())
	defer service.Stop()

	event := entities.NewDrugEvent("drug-1", "", "", entities.DrugEventTypeLabelUpdated)
	require.NoError(t, bus.Publish(context.Background(), providers.EventChannelDrugUpdates, event))

	waitFor(t, func() bool {
		return len(cache.deleted()) >= 1
	})
}

func TestInvalidateSearchCaches(t *testing.T) {
	cache := &fakeCache{}
	notifier := &fakeNotifier{}
	service := NewCacheInvalidationService(cache, newFakeEventBus(), notifier)

	require.NoError(t, service.InvalidateSearchCaches(context.Background()))
	assert.Contains(t, cache.deleted(), "http:cache:*search*")
	require.Len(t, notifier.sent(), 1)
	assert.Equal(t, providers.InvalidationTypeGlobal, notifier.sent()[0].Type)
}
