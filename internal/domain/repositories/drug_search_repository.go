package repositories

import (
	"context"

	"github.com/drugfactsio/backend/internal/domain/entities"
)

// DrugSearchDocument is the flattened document shape indexed for search
type DrugSearchDocument struct {
	ID          string   `json:"id"`
	NDC         string   `json:"ndc"`
	BrandName   string   `json:"brand_name"`
	GenericName string   `json:"generic_name"`
	Slug        string   `json:"slug"`
	Summary     string   `json:"summary"`
	Keywords    []string `json:"keywords"`
}

// DrugSearchRepository defines the interface for the drug search index
type DrugSearchRepository interface {
	// InitSchema creates the search collection if it does not exist
	InitSchema(ctx context.Context) error

	// Index upserts a drug document into the search index
	Index(ctx context.Context, label *entities.DrugLabel, enrichment *entities.DrugEnrichment) error

	// Delete removes a drug document from the search index
	Delete(ctx context.Context, id string) error

	// Search queries the index by free text over names, summary and keywords
	Search(ctx context.Context, query string, limit int) ([]*DrugSearchDocument, error)
}
