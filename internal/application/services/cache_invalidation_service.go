package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/drugfactsio/backend/internal/domain/entities"
	"github.com/drugfactsio/backend/internal/domain/providers"
)

const invalidationTimeout = 5 * time.Second

// CacheInvalidationService listens for drug update events, evicts the
// matching HTTP cache entries and pings the frontend revalidation webhook.
type CacheInvalidationService struct {
	cache    providers.CacheProvider
	eventBus providers.EventBus
	notifier providers.WebhookNotifier
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewCacheInvalidationService creates a new cache invalidation service.
// notifier may be nil when no frontend webhook is configured.
func NewCacheInvalidationService(
	cache providers.CacheProvider,
	eventBus providers.EventBus,
	notifier providers.WebhookNotifier,
) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		notifier: notifier,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins listening for drug updates and invalidating cache
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelDrugUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to drug updates: %w", err)
	}

	go s.processEvents(eventChan)
	log.Println("Cache invalidation service started")
	return nil
}

// Stop stops the cache invalidation service
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	log.Println("Cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.DrugEvent) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case event := <-eventChan:
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

// handleEvent evicts the cached responses for one drug and notifies the
// frontend. Either step failing is logged and never propagated.
func (s *CacheInvalidationService) handleEvent(event *entities.DrugEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), invalidationTimeout)
	defer cancel()

	log.Printf("Processing cache invalidation for event: %s (drug: %s, type: %s)",
		event.ID, event.DrugID, event.EventType)

	for _, pattern := range drugCachePatterns(event) {
		if err := s.cache.DeletePattern(ctx, pattern); err != nil {
			log.Printf("Warning: Failed to invalidate cache pattern %s: %v", pattern, err)
		}
	}

	if s.notifier != nil {
		invalidation := providers.CacheInvalidation{
			Type: providers.InvalidationTypeDrug,
			Slug: event.Slug,
			NDC:  event.NDC,
		}
		if err := s.notifier.Notify(ctx, invalidation); err != nil {
			log.Printf("Warning: Failed to notify frontend webhook for drug %s: %v", event.DrugID, err)
		}
	}
}

// drugCachePatterns lists the HTTP cache key patterns touched by one drug
// update. Search caches are left to expire on their short TTL; evicting
// them on every enrichment would cause a cache stampede.
func drugCachePatterns(event *entities.DrugEvent) []string {
	patterns := []string{
		fmt.Sprintf("http:cache:*drugs/%s*", event.DrugID),
	}
	if event.NDC != "" {
		patterns = append(patterns, fmt.Sprintf("http:cache:*drugs/%s*", event.NDC))
	}
	if event.Slug != "" {
		patterns = append(patterns, fmt.Sprintf("http:cache:*drugs/slug/%s*", event.Slug))
	}
	return patterns
}

// InvalidateSearchCaches invalidates all search-related caches. Intended
// for maintenance windows and bulk backfills only.
func (s *CacheInvalidationService) InvalidateSearchCaches(ctx context.Context) error {
	patterns := []string{
		"http:cache:*search*",
	}

	for _, pattern := range patterns {
		if err := s.cache.DeletePattern(ctx, pattern); err != nil {
			return fmt.Errorf("failed to invalidate pattern %s: %w", pattern, err)
		}
		log.Printf("Invalidated cache pattern: %s", pattern)
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, providers.CacheInvalidation{Type: providers.InvalidationTypeGlobal}); err != nil {
			log.Printf("Warning: Failed to send global invalidation webhook: %v", err)
		}
	}
	return nil
}

// InvalidateDrugCache invalidates the cached responses for one drug
func (s *CacheInvalidationService) InvalidateDrugCache(ctx context.Context, drugID string) error {
	pattern := fmt.Sprintf("http:cache:*drugs/%s*", drugID)
	if err := s.cache.DeletePattern(ctx, pattern); err != nil {
		return fmt.Errorf("failed to invalidate drug cache: %w", err)
	}
	log.Printf("Invalidated drug cache for %s", drugID)
	return nil
}
