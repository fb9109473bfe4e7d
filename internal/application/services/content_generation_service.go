package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/drugfactsio/backend/internal/domain/entities"
	"github.com/drugfactsio/backend/internal/domain/providers"
	"github.com/drugfactsio/backend/pkg/breaker"
)

const (
	generateOperation = "generate_enrichment"

	// Generation favors determinism over creativity.
	generationTemperature = 0.2

	fallbackConfidence = 0.3
	baseConfidence     = 0.5
	sectionIncrement   = 0.1
	summaryIncrement   = 0.05
	faqIncrement       = 0.05
	minSummaryLength   = 100
)

// ContentGenerationService produces SEO enrichment content for a drug
// label, or a deterministic fallback when the LLM path is unavailable.
type ContentGenerationService struct {
	provider providers.ContentProvider
	tracker  *HealthTracker
	breaker  *breaker.CircuitBreaker
}

// NewContentGenerationService creates a new generator. A nil provider
// means no API credential is configured; the service then always serves
// fallback records.
func NewContentGenerationService(
	provider providers.ContentProvider,
	tracker *HealthTracker,
	registry *breaker.Registry,
) *ContentGenerationService {
	return &ContentGenerationService{
		provider: provider,
		tracker:  tracker,
		breaker:  registry.Get(breaker.AIServiceBreaker),
	}
}

// Generate builds an enrichment for the label. It always returns a
// structurally valid record: LLM outages, open circuits and unparseable
// responses all degrade to the fallback record rather than failing.
func (s *ContentGenerationService) Generate(ctx context.Context, label *entities.DrugLabel) (*entities.DrugEnrichment, error) {
	if label == nil {
		return nil, errors.New("label is required")
	}

	// Pre-flight checks consume no circuit-breaker attempt.
	if s.provider == nil {
		return s.fallback(label), nil
	}
	if s.tracker.Status(DependencyAI) == HealthStatusUnhealthy {
		log.Printf("AI service unhealthy, serving fallback enrichment for %s", label.DisplayName())
		return s.fallback(label), nil
	}

	start := time.Now()
	var completion *providers.CompletionResult
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		result, err := s.provider.Complete(ctx, providers.CompletionRequest{
			SystemPrompt: drugContentSystemPrompt,
			UserPrompt:   buildDrugContentPrompt(label),
			Temperature:  generationTemperature,
		})
		if err != nil {
			return err
		}
		completion = result
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		s.tracker.RecordError(DependencyAI, generateOperation, err)
		log.Printf("Warning: enrichment generation failed for %s: %v", label.DisplayName(), err)
		return s.fallback(label), nil
	}

	enrichment, ok := parseGeneratedContent(completion.Text)
	if !ok {
		s.tracker.RecordError(DependencyAI, generateOperation, errors.New("generated content is not valid JSON"))
		log.Printf("Warning: unparseable enrichment for %s, serving fallback", label.DisplayName())
		return s.fallback(label), nil
	}
	s.tracker.RecordSuccess(DependencyAI, generateOperation, duration)

	s.applyDefaults(enrichment, label)
	enrichment.Model = completion.Model
	if enrichment.Model == "" {
		enrichment.Model = s.provider.Model()
	}
	enrichment.ConfidenceScore = scoreConfidence(label, enrichment)
	enrichment.ContentHash = contentHash(enrichment)

	return enrichment, nil
}

// applyDefaults backfills required fields a partial parse left empty.
func (s *ContentGenerationService) applyDefaults(enrichment *entities.DrugEnrichment, label *entities.DrugLabel) {
	if enrichment.Title == "" {
		enrichment.Title = defaultTitle(label)
	}
	if enrichment.Slug == "" {
		enrichment.Slug = defaultSlug(label)
	}
	if enrichment.Summary == "" {
		enrichment.Summary = defaultSummary(label)
	}
	if enrichment.MetaDescription == "" {
		meta := enrichment.Summary
		if len(meta) > 160 {
			meta = strings.TrimSpace(meta[:160])
		}
		enrichment.MetaDescription = meta
	}
}

// fallback builds the deterministic degraded record served whenever the
// LLM path is skipped or fails.
func (s *ContentGenerationService) fallback(label *entities.DrugLabel) *entities.DrugEnrichment {
	summary := defaultSummary(label)
	meta := summary
	if len(meta) > 160 {
		meta = strings.TrimSpace(meta[:160])
	}

	enrichment := &entities.DrugEnrichment{
		Title:           defaultTitle(label),
		MetaDescription: meta,
		Slug:            defaultSlug(label),
		Summary:         summary,
		Model:           "fallback",
		ConfidenceScore: fallbackConfidence,
	}
	enrichment.ContentHash = contentHash(enrichment)
	return enrichment
}

func defaultTitle(label *entities.DrugLabel) string {
	name := label.DisplayName()
	if label.BrandName != "" && label.GenericName != "" && !strings.EqualFold(label.BrandName, label.GenericName) {
		name = fmt.Sprintf("%s (%s)", label.BrandName, label.GenericName)
	}
	return fmt.Sprintf("%s: Drug Information", name)
}

func defaultSlug(label *entities.DrugLabel) string {
	parts := []string{label.BrandName, label.GenericName}
	if label.BrandName == "" && label.GenericName == "" {
		parts = []string{"ndc", label.NDC}
	}
	return sanitizeSlug(strings.Join(parts, " "))
}

func defaultSummary(label *entities.DrugLabel) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "%s is a drug product", label.DisplayName())
	if label.GenericName != "" && !strings.EqualFold(label.BrandName, label.GenericName) && label.BrandName != "" {
		fmt.Fprintf(&builder, " containing %s", label.GenericName)
	}
	if label.Manufacturer != "" {
		fmt.Fprintf(&builder, ", manufactured by %s", label.Manufacturer)
	}
	builder.WriteString(". Refer to the FDA label for indications, dosage and safety information.")
	return builder.String()
}

// scoreConfidence derives a confidence score from source completeness and
// generated content quality: base 0.5, +0.1 per populated source section,
// +0.05 for a substantive summary, +0.05 when FAQs were generated; capped
// at 1.0 and rounded to two decimals.
func scoreConfidence(label *entities.DrugLabel, enrichment *entities.DrugEnrichment) float64 {
	score := baseConfidence
	for _, section := range []string{label.Indications, label.Warnings, label.Dosage, label.Contraindications} {
		if strings.TrimSpace(section) != "" {
			score += sectionIncrement
		}
	}
	if len(enrichment.Summary) >= minSummaryLength {
		score += summaryIncrement
	}
	if len(enrichment.FAQs) > 0 {
		score += faqIncrement
	}
	if score > 1.0 {
		score = 1.0
	}
	return math.Round(score*100) / 100
}

// contentHash fingerprints the generated text fields for change detection.
func contentHash(enrichment *entities.DrugEnrichment) string {
	hasher := sha256.New()
	hasher.Write([]byte(enrichment.Title))
	hasher.Write([]byte(enrichment.MetaDescription))
	hasher.Write([]byte(enrichment.Summary))
	for _, faq := range enrichment.FAQs {
		hasher.Write([]byte(faq.Question))
		hasher.Write([]byte(faq.Answer))
	}
	return hex.EncodeToString(hasher.Sum(nil))
}
