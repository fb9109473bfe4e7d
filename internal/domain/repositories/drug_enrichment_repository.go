package repositories

import (
	"context"

	"github.com/drugfactsio/backend/internal/domain/entities"
)

// DrugEnrichmentRepository defines the interface for enrichment data access.
// The one-enrichment-per-drug invariant is enforced here via upsert on the
// drug id.
type DrugEnrichmentRepository interface {
	// GetByDrugID retrieves the enrichment for a drug
	GetByDrugID(ctx context.Context, drugID string) (*entities.DrugEnrichment, error)

	// GetBySlug retrieves an enrichment by its globally unique slug
	GetBySlug(ctx context.Context, slug string) (*entities.DrugEnrichment, error)

	// Upsert inserts or updates the enrichment for its drug
	Upsert(ctx context.Context, enrichment *entities.DrugEnrichment) error

	// SlugExists reports whether a slug is already taken by another drug
	SlugExists(ctx context.Context, slug, excludeDrugID string) (bool, error)
}
