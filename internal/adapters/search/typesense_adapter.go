package search

import (
	"context"
	"fmt"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/drugfactsio/backend/internal/domain/entities"
	"github.com/drugfactsio/backend/internal/domain/repositories"
	tsclient "github.com/drugfactsio/backend/internal/infrastructure/clients/typesense"
)

// TypesenseAdapter implements drug search using Typesense
type TypesenseAdapter struct {
	client *tsclient.Client
}

// Ensure TypesenseAdapter implements DrugSearchRepository
var _ repositories.DrugSearchRepository = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// InitSchema ensures the drugs collection exists
func (a *TypesenseAdapter) InitSchema(ctx context.Context) error {
	// Check if collection exists
	_, err := a.client.Client().Collection(tsclient.DrugsCollection).Retrieve(ctx)
	if err == nil {
		return nil // Collection exists
	}

	schema := &api.CollectionSchema{
		Name: tsclient.DrugsCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "ndc", Type: "string"},
			{Name: "brand_name", Type: "string"},
			{Name: "generic_name", Type: "string"},
			{Name: "slug", Type: "string"},
			{Name: "summary", Type: "string"},
			{Name: "keywords", Type: "string[]"},
			{Name: "confidence_score", Type: "float"},
			{Name: "updated_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("updated_at"),
	}

	_, err = a.client.Client().Collections().Create(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create typesense collection: %w", err)
	}

	return nil
}

// Index upserts a drug document into the search index. The enrichment is
// optional; labels without one are still findable by name and NDC.
func (a *TypesenseAdapter) Index(ctx context.Context, label *entities.DrugLabel, enrichment *entities.DrugEnrichment) error {
	if label == nil {
		return fmt.Errorf("label is required")
	}

	document := buildDrugDocument(label, enrichment)

	_, err := a.client.Client().Collection(tsclient.DrugsCollection).Documents().Upsert(ctx, document)
	if err != nil {
		return fmt.Errorf("failed to index drug: %w", err)
	}

	return nil
}

// buildDrugDocument flattens a label and its optional enrichment into the
// indexed document shape.
func buildDrugDocument(label *entities.DrugLabel, enrichment *entities.DrugEnrichment) map[string]interface{} {
	document := map[string]interface{}{
		"id":               label.ID,
		"ndc":              label.NDC,
		"brand_name":       label.BrandName,
		"generic_name":     label.GenericName,
		"slug":             "",
		"summary":          "",
		"keywords":         []string{},
		"confidence_score": 0.0,
		"updated_at":       label.UpdatedAt.Unix(),
	}
	if enrichment != nil {
		document["slug"] = enrichment.Slug
		document["summary"] = enrichment.Summary
		document["confidence_score"] = enrichment.ConfidenceScore
		if len(enrichment.Keywords) > 0 {
			document["keywords"] = enrichment.Keywords
		}
		if enrichment.UpdatedAt.After(label.UpdatedAt) {
			document["updated_at"] = enrichment.UpdatedAt.Unix()
		}
	}
	return document
}

// Delete removes a drug document from the search index
func (a *TypesenseAdapter) Delete(ctx context.Context, id string) error {
	_, err := a.client.Client().Collection(tsclient.DrugsCollection).Document(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete drug from index: %w", err)
	}
	return nil
}

// Search queries the index by free text over names, summary and keywords
func (a *TypesenseAdapter) Search(ctx context.Context, query string, limit int) ([]*repositories.DrugSearchDocument, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	searchParams := &api.SearchCollectionParams{
		Q:       pointer.String(query),
		QueryBy: pointer.String("brand_name,generic_name,keywords,summary"),
		PerPage: pointer.Int(limit),
	}

	result, err := a.client.Client().Collection(tsclient.DrugsCollection).Documents().Search(ctx, searchParams)
	if err != nil {
		return nil, fmt.Errorf("failed to search drugs: %w", err)
	}

	documents := []*repositories.DrugSearchDocument{}
	if result.Hits == nil {
		return documents, nil
	}

	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		doc := *hit.Document

		document := &repositories.DrugSearchDocument{}
		if val, ok := doc["id"].(string); ok {
			document.ID = val
		}
		if val, ok := doc["ndc"].(string); ok {
			document.NDC = val
		}
		if val, ok := doc["brand_name"].(string); ok {
			document.BrandName = val
		}
		if val, ok := doc["generic_name"].(string); ok {
			document.GenericName = val
		}
		if val, ok := doc["slug"].(string); ok {
			document.Slug = val
		}
		if val, ok := doc["summary"].(string); ok {
			document.Summary = val
		}
		if raw, ok := doc["keywords"].([]interface{}); ok {
			for _, kw := range raw {
				if val, ok := kw.(string); ok {
					document.Keywords = append(document.Keywords, val)
				}
			}
		}

		documents = append(documents, document)
	}

	return documents, nil
}
