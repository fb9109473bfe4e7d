package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/drugfactsio/backend/internal/domain/entities"
	"github.com/drugfactsio/backend/internal/domain/providers"
	"github.com/drugfactsio/backend/internal/domain/repositories"
	"github.com/drugfactsio/backend/pkg/config"
	apperrors "github.com/drugfactsio/backend/pkg/errors"
)

const backgroundRefreshTimeout = 2 * time.Minute

// EnrichmentService is the top-level pipeline: validate identifiers, serve
// cached records, fall back to the FDA gateway, generate content,
// cross-validate related drugs and persist. One identifier's failure never
// aborts the batch.
type EnrichmentService struct {
	labelRepo      repositories.DrugLabelRepository
	enrichmentRepo repositories.DrugEnrichmentRepository
	relatedRepo    repositories.RelatedDrugRepository
	searchRepo     repositories.DrugSearchRepository
	gateway        providers.DrugLabelProvider
	generator      *ContentGenerationService
	relatedService *RelatedDrugService
	validator      *IdentifierValidationService
	eventBus       providers.EventBus

	labelTTL      time.Duration
	enrichmentTTL time.Duration

	enrichLocks  *lockSet
	relatedLocks *lockSet
	now          func() time.Time
}

// NewEnrichmentService creates the orchestrator. searchRepo and eventBus
// may be nil; indexing and event publishing are then skipped.
func NewEnrichmentService(
	labelRepo repositories.DrugLabelRepository,
	enrichmentRepo repositories.DrugEnrichmentRepository,
	relatedRepo repositories.RelatedDrugRepository,
	searchRepo repositories.DrugSearchRepository,
	gateway providers.DrugLabelProvider,
	generator *ContentGenerationService,
	relatedService *RelatedDrugService,
	eventBus providers.EventBus,
	cfg *config.EnrichmentConfig,
) *EnrichmentService {
	service := &EnrichmentService{
		labelRepo:      labelRepo,
		enrichmentRepo: enrichmentRepo,
		relatedRepo:    relatedRepo,
		searchRepo:     searchRepo,
		gateway:        gateway,
		generator:      generator,
		relatedService: relatedService,
		validator:      NewIdentifierValidationService(),
		eventBus:       eventBus,
		labelTTL:       24 * time.Hour,
		enrichmentTTL:  7 * 24 * time.Hour,
		enrichLocks:    newLockSet(),
		relatedLocks:   newLockSet(),
		now:            time.Now,
	}
	if cfg != nil {
		if cfg.LabelTTL > 0 {
			service.labelTTL = cfg.LabelTTL
		}
		if cfg.EnrichmentTTL > 0 {
			service.enrichmentTTL = cfg.EnrichmentTTL
		}
	}
	return service
}

// ValidateIdentifiers runs structural validation over the batch without
// touching any external service.
func (s *EnrichmentService) ValidateIdentifiers(identifiers []entities.DrugIdentifier) entities.ValidationResult {
	return s.validator.Validate(identifiers)
}

// EnrichDrugs processes a batch of identifiers. An empty identifier list
// is the only synchronous error; every other failure is reported per item.
func (s *EnrichmentService) EnrichDrugs(ctx context.Context, req *entities.EnrichmentRequest) (*entities.EnrichmentBatchResult, error) {
	if req == nil || len(req.Identifiers) == 0 {
		return nil, apperrors.NewValidationError("at least one identifier is required")
	}

	start := s.now()
	result := &entities.EnrichmentBatchResult{
		RequestID: uuid.New().String(),
		Timestamp: start,
	}

	toProcess := req.Identifiers
	if req.ValidateIdentifiers {
		validation := s.validator.Validate(req.Identifiers)
		result.ValidationResult = &validation
		toProcess = validation.ValidIdentifiers

		for _, issue := range validation.Errors {
			result.Results = append(result.Results, entities.EnrichmentItemResult{
				Identifier: issue.Identifier,
				Status:     entities.EnrichmentStatusError,
				Error:      issue.Message,
				ErrorType:  string(apperrors.ErrorTypeValidation),
			})
		}
	}

	for _, identifier := range toProcess {
		result.Results = append(result.Results, s.processIdentifier(ctx, identifier, req.Context))
	}

	result.TotalProcessed = len(result.Results)
	result.Summary = summarize(result.Results, time.Since(start))
	return result, nil
}

// processIdentifier runs the full per-identifier pipeline and never
// returns an error; failures become the item's status.
func (s *EnrichmentService) processIdentifier(ctx context.Context, identifier entities.DrugIdentifier, requestContext string) entities.EnrichmentItemResult {
	start := s.now()
	item := entities.EnrichmentItemResult{Identifier: identifier}

	finish := func() entities.EnrichmentItemResult {
		item.ProcessingTimeMs = time.Since(start).Milliseconds()
		return item
	}

	// Cache path: an existing label+enrichment pair short-circuits all
	// external calls, even when stale.
	if label, enrichment := s.findCached(ctx, identifier); label != nil && enrichment != nil {
		item.Status = entities.EnrichmentStatusSuccess
		item.DataSource = entities.DataSourceDatabase
		item.Label = label
		item.Enrichment = enrichment
		if related, err := s.relatedRepo.ListBySourceDrug(ctx, label.ID); err == nil {
			item.RelatedDrugs = related
		}

		if label.IsStale(s.labelTTL, s.now()) || enrichment.IsStale(s.enrichmentTTL, s.now()) {
			s.refreshInBackground(identifier, label.ID)
		}
		return finish()
	}

	label, err := s.gateway.Resolve(ctx, identifier)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			item.Status = entities.EnrichmentStatusNotFound
			item.Error = err.Error()
		} else {
			item.Status = entities.EnrichmentStatusError
			item.Error = err.Error()
			item.ErrorType = string(apperrors.TypeOf(err))
		}
		return finish()
	}

	lockKey := lockKeyFor(label)
	if !s.enrichLocks.TryAcquire(lockKey) {
		// Another request is generating for this drug. Serve whatever is
		// already persisted rather than duplicating the work.
		if cachedLabel, cachedEnrichment := s.findCached(ctx, identifier); cachedLabel != nil && cachedEnrichment != nil {
			item.Status = entities.EnrichmentStatusSuccess
			item.DataSource = entities.DataSourceDatabase
			item.Label = cachedLabel
			item.Enrichment = cachedEnrichment
			return finish()
		}
		item.Status = entities.EnrichmentStatusError
		item.Error = fmt.Sprintf("enrichment already in progress for %s", label.DisplayName())
		item.ErrorType = string(apperrors.ErrorTypeConflict)
		return finish()
	}
	defer s.enrichLocks.Release(lockKey)

	enrichment, err := s.generator.Generate(ctx, label)
	if err != nil {
		item.Status = entities.EnrichmentStatusError
		item.Error = err.Error()
		item.ErrorType = string(apperrors.TypeOf(err))
		return finish()
	}

	if requestContext != "" {
		enrichment.Summary += "\n\nNote: " + requestContext
	}

	persisted := s.persistLabel(ctx, label)
	var related []*entities.RelatedDrug
	if persisted != nil {
		label = persisted
		enrichment.DrugID = label.ID
		s.persistEnrichment(ctx, enrichment)
		related = s.validateRelatedDrugs(ctx, label, enrichment)
		s.indexAndPublish(ctx, label, enrichment)
	} else {
		log.Printf("Warning: serving unpersisted enrichment for %s", label.DisplayName())
	}

	item.Status = entities.EnrichmentStatusSuccess
	item.DataSource = label.DataSource
	item.Label = label
	item.Enrichment = enrichment
	item.RelatedDrugs = related
	return finish()
}

// findCached looks up an existing label+enrichment pair for the
// identifier. Only NDC and name identifiers have a local lookup key.
func (s *EnrichmentService) findCached(ctx context.Context, identifier entities.DrugIdentifier) (*entities.DrugLabel, *entities.DrugEnrichment) {
	var label *entities.DrugLabel
	var err error

	switch identifier.Type {
	case entities.IdentifierTypeNDC:
		label, err = s.labelRepo.GetByNDC(ctx, identifier.Value)
	case entities.IdentifierTypeBrandName:
		label, err = s.labelRepo.GetByBrandName(ctx, identifier.Value)
	case entities.IdentifierTypeGenericName:
		label, err = s.labelRepo.GetByGenericName(ctx, identifier.Value)
	default:
		return nil, nil
	}
	if err != nil || label == nil {
		return nil, nil
	}

	enrichment, err := s.enrichmentRepo.GetByDrugID(ctx, label.ID)
	if err != nil || enrichment == nil {
		return label, nil
	}
	return label, enrichment
}

// persistLabel creates or updates the canonical label row, matching by
// NDC first and brand name second. Returns nil when persistence failed;
// the pipeline then serves the in-memory record.
func (s *EnrichmentService) persistLabel(ctx context.Context, label *entities.DrugLabel) *entities.DrugLabel {
	existing := s.findExistingLabel(ctx, label)
	if existing != nil {
		merged := *label
		merged.ID = existing.ID
		merged.CreatedAt = existing.CreatedAt
		if err := s.labelRepo.Update(ctx, &merged); err != nil {
			log.Printf("Warning: failed to update label %s: %v", existing.ID, err)
			return existing
		}
		return &merged
	}

	if err := s.labelRepo.Create(ctx, label); err != nil {
		// A concurrent request may have inserted the same NDC; the
		// duplicate-key race resolves by re-reading.
		if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
			if refetched := s.findExistingLabel(ctx, label); refetched != nil {
				return refetched
			}
		}
		log.Printf("Warning: failed to persist label for %s: %v", label.DisplayName(), err)
		return nil
	}
	return label
}

func (s *EnrichmentService) findExistingLabel(ctx context.Context, label *entities.DrugLabel) *entities.DrugLabel {
	if label.NDC != "" {
		if existing, err := s.labelRepo.GetByNDC(ctx, label.NDC); err == nil && existing != nil {
			return existing
		}
	}
	if label.BrandName != "" {
		if existing, err := s.labelRepo.GetByBrandName(ctx, label.BrandName); err == nil && existing != nil {
			return existing
		}
	}
	return nil
}

// persistEnrichment upserts the enrichment, resolving slug collisions with
// another drug by suffixing. Failures are logged, never surfaced.
func (s *EnrichmentService) persistEnrichment(ctx context.Context, enrichment *entities.DrugEnrichment) {
	if taken, err := s.enrichmentRepo.SlugExists(ctx, enrichment.Slug, enrichment.DrugID); err == nil && taken {
		enrichment.Slug = uniqueSlug(enrichment.Slug, enrichment.DrugID)
	}
	if err := s.enrichmentRepo.Upsert(ctx, enrichment); err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
			enrichment.Slug = uniqueSlug(enrichment.Slug, enrichment.DrugID)
			if retryErr := s.enrichmentRepo.Upsert(ctx, enrichment); retryErr == nil {
				return
			}
		}
		log.Printf("Warning: failed to persist enrichment for drug %s: %v", enrichment.DrugID, err)
	}
}

// validateRelatedDrugs cross-validates the suggestions and replaces the
// stored set. Guarded by its own lock so concurrent requests do not race
// the wholesale replace.
func (s *EnrichmentService) validateRelatedDrugs(ctx context.Context, label *entities.DrugLabel, enrichment *entities.DrugEnrichment) []*entities.RelatedDrug {
	if s.relatedService == nil || len(enrichment.RelatedDrugSuggestions) == 0 {
		return nil
	}
	if !s.relatedLocks.TryAcquire(label.ID) {
		return nil
	}
	defer s.relatedLocks.Release(label.ID)

	related, err := s.relatedService.ValidateAndBuild(ctx, label, enrichment.RelatedDrugSuggestions, enrichment.ConfidenceScore)
	if err != nil {
		log.Printf("Warning: related drug validation failed for %s: %v", label.DisplayName(), err)
		return nil
	}
	for _, drug := range related {
		drug.SourceDrugID = label.ID
	}
	if err := s.relatedRepo.ReplaceForSourceDrug(ctx, label.ID, related); err != nil {
		log.Printf("Warning: failed to persist related drugs for %s: %v", label.ID, err)
	}
	return related
}

// indexAndPublish pushes the record to the search index and announces the
// update on the event bus. Both are best-effort.
func (s *EnrichmentService) indexAndPublish(ctx context.Context, label *entities.DrugLabel, enrichment *entities.DrugEnrichment) {
	if s.searchRepo != nil {
		if err := s.searchRepo.Index(ctx, label, enrichment); err != nil {
			log.Printf("Warning: failed to index drug %s: %v", label.ID, err)
		}
	}
	if s.eventBus != nil {
		event := entities.NewDrugEvent(label.ID, label.NDC, enrichment.Slug, entities.DrugEventTypeEnrichmentUpdated)
		if err := s.eventBus.Publish(ctx, providers.EventChannelDrugUpdates, event); err != nil {
			log.Printf("Warning: failed to publish drug event for %s: %v", label.ID, err)
		}
	}
}

// refreshInBackground re-runs the gateway+generation pipeline for a stale
// record without blocking the caller. The per-drug lock skips the refresh
// when a generation is already underway.
func (s *EnrichmentService) refreshInBackground(identifier entities.DrugIdentifier, drugID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundRefreshTimeout)
		defer cancel()

		label, err := s.gateway.Resolve(ctx, identifier)
		if err != nil {
			log.Printf("Warning: background refresh fetch failed for drug %s: %v", drugID, err)
			return
		}

		lockKey := lockKeyFor(label)
		if !s.enrichLocks.TryAcquire(lockKey) {
			return
		}
		defer s.enrichLocks.Release(lockKey)

		enrichment, err := s.generator.Generate(ctx, label)
		if err != nil {
			log.Printf("Warning: background refresh generation failed for drug %s: %v", drugID, err)
			return
		}

		persisted := s.persistLabel(ctx, label)
		if persisted == nil {
			return
		}
		enrichment.DrugID = persisted.ID
		s.persistEnrichment(ctx, enrichment)
		s.validateRelatedDrugs(ctx, persisted, enrichment)
		s.indexAndPublish(ctx, persisted, enrichment)
	}()
}

func lockKeyFor(label *entities.DrugLabel) string {
	if label.NDC != "" {
		return "ndc:" + label.NDC
	}
	return "name:" + strings.ToLower(label.DisplayName())
}

func uniqueSlug(slug, drugID string) string {
	suffix := drugID
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return slug + "-" + suffix
}

func summarize(results []entities.EnrichmentItemResult, elapsed time.Duration) entities.EnrichmentSummary {
	summary := entities.EnrichmentSummary{TotalTimeMs: elapsed.Milliseconds()}
	if len(results) == 0 {
		return summary
	}

	successes := 0
	confidenceSum := 0.0
	confidenceCount := 0
	for _, item := range results {
		if item.Status != entities.EnrichmentStatusSuccess {
			continue
		}
		successes++
		if item.Enrichment != nil {
			confidenceSum += item.Enrichment.ConfidenceScore
			confidenceCount++
		}
	}

	summary.SuccessRate = math.Round(float64(successes)/float64(len(results))*100) / 100
	if confidenceCount > 0 {
		summary.AverageConfidence = math.Round(confidenceSum/float64(confidenceCount)*100) / 100
	}
	return summary
}
