package providers

import (
	"context"

	"github.com/drugfactsio/backend/internal/domain/entities"
)

// DrugLabelProvider resolves a drug identifier against the external FDA
// label dataset. Resolve returns a NOT_FOUND AppError when the dataset has
// no match; circuit-open and transport failures surface as distinct error
// types so callers can tell a retryable outage from a terminal miss.
type DrugLabelProvider interface {
	// Resolve looks up a label for the identifier. Lookup-miss retry
	// strategies (NDC reformatting, prefix search) are internal to the
	// provider.
	Resolve(ctx context.Context, identifier entities.DrugIdentifier) (*entities.DrugLabel, error)

	// SearchByName looks up a label by drug name (exact, then prefix, then
	// substring). Used by related-drug cross-validation.
	SearchByName(ctx context.Context, name string) (*entities.DrugLabel, error)
}
