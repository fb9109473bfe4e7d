package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/drugfactsio/backend/internal/domain/entities"
	"github.com/drugfactsio/backend/internal/domain/repositories"
	"github.com/drugfactsio/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/drugfactsio/backend/pkg/errors"
)

var drugEnrichmentColumns = []interface{}{
	"id",
	"drug_id",
	"title",
	"meta_description",
	"slug",
	"summary",
	"section_summaries",
	"faqs",
	"keywords",
	"related_drug_suggestions",
	"related_conditions",
	"structured_data",
	"model",
	"confidence_score",
	"content_hash",
	"reviewed",
	"published",
	"created_at",
	"updated_at",
}

// DrugEnrichmentAdapter implements DrugEnrichmentRepository.
type DrugEnrichmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewDrugEnrichmentAdapter creates a new adapter.
func NewDrugEnrichmentAdapter(client *postgres.Client) repositories.DrugEnrichmentRepository {
	return &DrugEnrichmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByDrugID retrieves the enrichment for a drug.
func (a *DrugEnrichmentAdapter) GetByDrugID(ctx context.Context, drugID string) (*entities.DrugEnrichment, error) {
	return a.getOne(ctx, goqu.Ex{"drug_id": drugID},
		fmt.Sprintf("enrichment for drug %s not found", drugID))
}

// GetBySlug retrieves an enrichment by its globally unique slug.
func (a *DrugEnrichmentAdapter) GetBySlug(ctx context.Context, slug string) (*entities.DrugEnrichment, error) {
	return a.getOne(ctx, goqu.Ex{"slug": slug},
		fmt.Sprintf("enrichment with slug %q not found", slug))
}

func (a *DrugEnrichmentAdapter) getOne(ctx context.Context, condition goqu.Expression, notFoundMsg string) (*entities.DrugEnrichment, error) {
	query, args, err := a.db.Select(drugEnrichmentColumns...).
		From("drug_enrichments").
		Where(condition).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build enrichment query", err)
	}

	enrichment := &entities.DrugEnrichment{}
	var sectionsRaw, faqsRaw, keywordsRaw, suggestionsRaw, conditionsRaw, structuredRaw []byte
	var metaDescription, model, contentHash sql.NullString

	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&enrichment.ID,
		&enrichment.DrugID,
		&enrichment.Title,
		&metaDescription,
		&enrichment.Slug,
		&enrichment.Summary,
		&sectionsRaw,
		&faqsRaw,
		&keywordsRaw,
		&suggestionsRaw,
		&conditionsRaw,
		&structuredRaw,
		&model,
		&enrichment.ConfidenceScore,
		&contentHash,
		&enrichment.Reviewed,
		&enrichment.Published,
		&enrichment.CreatedAt,
		&enrichment.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(notFoundMsg)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get enrichment", err)
	}

	enrichment.MetaDescription = metaDescription.String
	enrichment.Model = model.String
	enrichment.ContentHash = contentHash.String

	if len(sectionsRaw) > 0 {
		_ = json.Unmarshal(sectionsRaw, &enrichment.SectionSummaries)
	}
	if len(faqsRaw) > 0 {
		_ = json.Unmarshal(faqsRaw, &enrichment.FAQs)
	}
	if len(keywordsRaw) > 0 {
		_ = json.Unmarshal(keywordsRaw, &enrichment.Keywords)
	}
	if len(suggestionsRaw) > 0 {
		_ = json.Unmarshal(suggestionsRaw, &enrichment.RelatedDrugSuggestions)
	}
	if len(conditionsRaw) > 0 {
		_ = json.Unmarshal(conditionsRaw, &enrichment.RelatedConditions)
	}
	if len(structuredRaw) > 0 {
		enrichment.StructuredData = structuredRaw
	}

	return enrichment, nil
}

// Upsert inserts or updates the enrichment for its drug. The conflict
// target on drug_id keeps the one-enrichment-per-drug invariant.
func (a *DrugEnrichmentAdapter) Upsert(ctx context.Context, enrichment *entities.DrugEnrichment) error {
	if enrichment == nil {
		return apperrors.NewValidationError("enrichment is required")
	}
	if enrichment.DrugID == "" {
		return apperrors.NewValidationError("enrichment requires a drug id")
	}
	if enrichment.ID == "" {
		enrichment.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if enrichment.CreatedAt.IsZero() {
		enrichment.CreatedAt = now
	}
	enrichment.UpdatedAt = now

	sectionsBytes, _ := json.Marshal(enrichment.SectionSummaries)
	faqsBytes, _ := json.Marshal(enrichment.FAQs)
	keywordsBytes, _ := json.Marshal(enrichment.Keywords)
	suggestionsBytes, _ := json.Marshal(enrichment.RelatedDrugSuggestions)
	conditionsBytes, _ := json.Marshal(enrichment.RelatedConditions)

	query := `
		INSERT INTO drug_enrichments
			(id, drug_id, title, meta_description, slug, summary, section_summaries,
			 faqs, keywords, related_drug_suggestions, related_conditions, structured_data,
			 model, confidence_score, content_hash, reviewed, published, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb, $9::jsonb, $10::jsonb, $11::jsonb,
			 $12::jsonb, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (drug_id)
		DO UPDATE SET
			title = EXCLUDED.title,
			meta_description = EXCLUDED.meta_description,
			slug = EXCLUDED.slug,
			summary = EXCLUDED.summary,
			section_summaries = EXCLUDED.section_summaries,
			faqs = EXCLUDED.faqs,
			keywords = EXCLUDED.keywords,
			related_drug_suggestions = EXCLUDED.related_drug_suggestions,
			related_conditions = EXCLUDED.related_conditions,
			structured_data = EXCLUDED.structured_data,
			model = EXCLUDED.model,
			confidence_score = EXCLUDED.confidence_score,
			content_hash = EXCLUDED.content_hash,
			updated_at = EXCLUDED.updated_at
	`

	_, err := a.client.DB().ExecContext(
		ctx,
		query,
		enrichment.ID,
		enrichment.DrugID,
		enrichment.Title,
		enrichment.MetaDescription,
		enrichment.Slug,
		enrichment.Summary,
		string(sectionsBytes),
		string(faqsBytes),
		string(keywordsBytes),
		string(suggestionsBytes),
		string(conditionsBytes),
		rawOrNull(enrichment.StructuredData),
		enrichment.Model,
		enrichment.ConfidenceScore,
		enrichment.ContentHash,
		enrichment.Reviewed,
		enrichment.Published,
		enrichment.CreatedAt,
		enrichment.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf("slug %q already taken", enrichment.Slug))
		}
		return apperrors.NewPersistenceError("failed to upsert enrichment", err)
	}
	return nil
}

// SlugExists reports whether a slug is already taken by another drug.
func (a *DrugEnrichmentAdapter) SlugExists(ctx context.Context, slug, excludeDrugID string) (bool, error) {
	query, args, err := a.db.Select(goqu.COUNT("id")).
		From("drug_enrichments").
		Where(goqu.Ex{"slug": slug}, goqu.C("drug_id").Neq(excludeDrugID)).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build slug query", err)
	}

	var count int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, apperrors.NewInternalError("failed to check slug", err)
	}
	return count > 0, nil
}
