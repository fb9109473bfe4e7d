package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drugfactsio/backend/internal/domain/entities"
	apperrors "github.com/drugfactsio/backend/pkg/errors"
)

func enrichmentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "drug_id", "title", "meta_description", "slug", "summary",
		"section_summaries", "faqs", "keywords", "related_drug_suggestions",
		"related_conditions", "structured_data", "model", "confidence_score",
		"content_hash", "reviewed", "published", "created_at", "updated_at",
	})
}

func TestDrugEnrichmentAdapterGetByDrugID(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewDrugEnrichmentAdapter(client)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT (.+) FROM "drug_enrichments" WHERE`).
		WillReturnRows(enrichmentRows().AddRow(
			"enr-1", "label-1", "Lipitor (atorvastatin): Uses & Side Effects",
			"Meta description", "lipitor-atorvastatin", "A summary of Lipitor.",
			[]byte(`{"indications":"Lowers cholesterol."}`),
			[]byte(`[{"question":"What is Lipitor?","answer":"A statin."}]`),
			[]byte(`["lipitor","statin"]`),
			[]byte(`["Crestor"]`),
			[]byte(`["high cholesterol"]`),
			[]byte(`{"@type":"Drug"}`),
			"claude-3-5-sonnet-20241022", 0.85, "abc123", false, true, now, now,
		))

	enrichment, err := adapter.GetByDrugID(context.Background(), "label-1")
	require.NoError(t, err)

	assert.Equal(t, "enr-1", enrichment.ID)
	assert.Equal(t, "lipitor-atorvastatin", enrichment.Slug)
	assert.Equal(t, "Lowers cholesterol.", enrichment.SectionSummaries.Indications)
	require.Len(t, enrichment.FAQs, 1)
	assert.Equal(t, "What is Lipitor?", enrichment.FAQs[0].Question)
	assert.Equal(t, []string{"lipitor", "statin"}, enrichment.Keywords)
	assert.Equal(t, []string{"Crestor"}, enrichment.RelatedDrugSuggestions)
	assert.InDelta(t, 0.85, enrichment.ConfidenceScore, 0.001)
	assert.True(t, enrichment.Published)
}

func TestDrugEnrichmentAdapterGetBySlugNotFound(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewDrugEnrichmentAdapter(client)

	mock.ExpectQuery(`SELECT (.+) FROM "drug_enrichments" WHERE`).
		WillReturnError(sql.ErrNoRows)

	_, err := adapter.GetBySlug(context.Background(), "no-such-slug")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestDrugEnrichmentAdapterUpsert(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewDrugEnrichmentAdapter(client)

	mock.ExpectExec(`INSERT INTO drug_enrichments(.|\n)+ON CONFLICT \(drug_id\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	enrichment := &entities.DrugEnrichment{
		DrugID:          "label-1",
		Title:           "Lipitor",
		Slug:            "lipitor-atorvastatin",
		Summary:         "Summary",
		ConfidenceScore: 0.8,
	}
	err := adapter.Upsert(context.Background(), enrichment)
	require.NoError(t, err)

	assert.NotEmpty(t, enrichment.ID)
	assert.False(t, enrichment.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDrugEnrichmentAdapterUpsertRequiresDrugID(t *testing.T) {
	client, _ := setupMockDB(t)
	adapter := NewDrugEnrichmentAdapter(client)

	err := adapter.Upsert(context.Background(), &entities.DrugEnrichment{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestDrugEnrichmentAdapterUpsertPersistenceError(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewDrugEnrichmentAdapter(client)

	mock.ExpectExec(`INSERT INTO drug_enrichments`).
		WillReturnError(errors.New("connection reset"))

	err := adapter.Upsert(context.Background(), &entities.DrugEnrichment{DrugID: "label-1"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePersistence))
}

func TestDrugEnrichmentAdapterSlugExists(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewDrugEnrichmentAdapter(client)

	mock.ExpectQuery(`SELECT COUNT\("id"\) FROM "drug_enrichments"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := adapter.SlugExists(context.Background(), "lipitor-atorvastatin", "other-drug")
	require.NoError(t, err)
	assert.True(t, exists)
}
