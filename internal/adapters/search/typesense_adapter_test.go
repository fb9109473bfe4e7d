package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/drugfactsio/backend/internal/domain/entities"
)

func TestBuildDrugDocument(t *testing.T) {
	labelUpdated := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	enrichmentUpdated := labelUpdated.Add(48 * time.Hour)

	label := &entities.DrugLabel{
		ID:          "label-1",
		NDC:         "58151-574",
		BrandName:   "Lipitor",
		GenericName: "atorvastatin",
		UpdatedAt:   labelUpdated,
	}
	enrichment := &entities.DrugEnrichment{
		Slug:            "lipitor-atorvastatin",
		Summary:         "A statin for high cholesterol.",
		Keywords:        []string{"lipitor", "statin"},
		ConfidenceScore: 0.85,
		UpdatedAt:       enrichmentUpdated,
	}

	document := buildDrugDocument(label, enrichment)

	assert.Equal(t, "label-1", document["id"])
	assert.Equal(t, "58151-574", document["ndc"])
	assert.Equal(t, "Lipitor", document["brand_name"])
	assert.Equal(t, "lipitor-atorvastatin", document["slug"])
	assert.Equal(t, []string{"lipitor", "statin"}, document["keywords"])
	assert.Equal(t, 0.85, document["confidence_score"])
	assert.Equal(t, enrichmentUpdated.Unix(), document["updated_at"])
}

func TestBuildDrugDocumentWithoutEnrichment(t *testing.T) {
	label := &entities.DrugLabel{
		ID:        "label-1",
		NDC:       "58151-574",
		BrandName: "Lipitor",
		UpdatedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}

	document := buildDrugDocument(label, nil)

	assert.Equal(t, "", document["slug"])
	assert.Equal(t, "", document["summary"])
	assert.Equal(t, []string{}, document["keywords"])
	assert.Equal(t, 0.0, document["confidence_score"])
	assert.Equal(t, label.UpdatedAt.Unix(), document["updated_at"])
}
