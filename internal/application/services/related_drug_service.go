package services

import (
	"context"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/drugfactsio/backend/internal/domain/entities"
	"github.com/drugfactsio/backend/internal/domain/providers"
	apperrors "github.com/drugfactsio/backend/pkg/errors"
	"github.com/drugfactsio/backend/pkg/retry"
)

const (
	defaultRelatedDrugTarget  = 3
	defaultRelatedDrugRetries = 3

	// AI-suggested relations carry less weight than the source enrichment.
	relatedConfidenceDiscount = 0.8
)

// RelatedDrugService cross-validates AI-suggested related drug names
// against the FDA dataset. Suggestions without a confirmed FDA match are
// discarded, never persisted.
type RelatedDrugService struct {
	gateway     providers.DrugLabelProvider
	targetCount int
	maxRetries  int
	now         func() time.Time
}

// NewRelatedDrugService creates a new cross-validator. targetCount and
// maxRetries fall back to their defaults when non-positive.
func NewRelatedDrugService(gateway providers.DrugLabelProvider, targetCount, maxRetries int) *RelatedDrugService {
	if targetCount <= 0 {
		targetCount = defaultRelatedDrugTarget
	}
	if maxRetries <= 0 {
		maxRetries = defaultRelatedDrugRetries
	}
	return &RelatedDrugService{
		gateway:     gateway,
		targetCount: targetCount,
		maxRetries:  maxRetries,
		now:         time.Now,
	}
}

// ValidateAndBuild resolves suggested names against the FDA dataset and
// returns records for the candidates that matched, up to the target count.
// Candidates are processed in order; case-insensitive duplicates and the
// source drug's own names are skipped.
func (s *RelatedDrugService) ValidateAndBuild(
	ctx context.Context,
	sourceLabel *entities.DrugLabel,
	suggestions []string,
	sourceConfidence float64,
) ([]*entities.RelatedDrug, error) {
	if s.gateway == nil || len(suggestions) == 0 {
		return nil, nil
	}

	seen := map[string]bool{}
	if sourceLabel != nil {
		seen[strings.ToLower(strings.TrimSpace(sourceLabel.BrandName))] = true
		seen[strings.ToLower(strings.TrimSpace(sourceLabel.GenericName))] = true
	}

	validated := make([]*entities.RelatedDrug, 0, s.targetCount)
	for _, suggestion := range suggestions {
		if len(validated) >= s.targetCount {
			break
		}
		name := strings.TrimSpace(suggestion)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true

		match, err := s.lookup(ctx, name)
		if err != nil {
			log.Printf("Warning: related drug lookup for %q failed, discarding: %v", name, err)
			continue
		}
		if match == nil {
			log.Printf("Discarding related drug suggestion %q: no FDA match", name)
			continue
		}

		validated = append(validated, s.buildRecord(sourceLabel, name, match, sourceConfidence))
	}

	return validated, nil
}

// lookup searches the FDA dataset for the name, retrying transport
// failures up to the retry budget. A definitive empty result returns
// (nil, nil) without consuming further attempts.
func (s *RelatedDrugService) lookup(ctx context.Context, name string) (*entities.DrugLabel, error) {
	cfg := retry.Config{
		MaxAttempts:     s.maxRetries,
		InitialDelay:    250 * time.Millisecond,
		MaxDelay:        2 * time.Second,
		BackoffFactor:   2.0,
		MaxTotalTimeout: 15 * time.Second,
	}

	var match *entities.DrugLabel
	var terminal error
	err := retry.Do(ctx, cfg, func() error {
		label, err := s.gateway.SearchByName(ctx, name)
		if err != nil {
			// A clean miss is definitive; retrying would just re-ask the
			// same question. Open circuits and other non-retryable
			// rejections won't resolve within the budget either.
			if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
				return nil
			}
			if apperrors.IsType(err, apperrors.ErrorTypeCircuitOpen) || !apperrors.IsRetryable(err) {
				terminal = err
				return nil
			}
			return err
		}
		match = label
		return nil
	})
	if err != nil {
		return nil, err
	}
	if terminal != nil {
		return nil, terminal
	}
	return match, nil
}

func (s *RelatedDrugService) buildRecord(
	sourceLabel *entities.DrugLabel,
	suggestion string,
	match *entities.DrugLabel,
	sourceConfidence float64,
) *entities.RelatedDrug {
	sourceDrugID := ""
	sourceName := ""
	if sourceLabel != nil {
		sourceDrugID = sourceLabel.ID
		sourceName = sourceLabel.DisplayName()
	}

	confidence := math.Round(sourceConfidence*relatedConfidenceDiscount*100) / 100

	return &entities.RelatedDrug{
		ID:               uuid.New().String(),
		SourceDrugID:     sourceDrugID,
		Name:             match.DisplayName(),
		NDC:              match.NDC,
		BrandName:        match.BrandName,
		GenericName:      match.GenericName,
		Manufacturer:     match.Manufacturer,
		Relationship:     "Suggested as related to " + sourceName,
		RelationshipType: entities.RelationshipSimilarIndication,
		ConfidenceScore:  confidence,
		Metadata: entities.RelatedDrugMetadata{
			OriginalSuggestion: suggestion,
			FDAValidated:       true,
			ValidatedAt:        s.now(),
		},
		CreatedAt: s.now(),
	}
}
