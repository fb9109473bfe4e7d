package repositories

import (
	"context"

	"github.com/drugfactsio/backend/internal/domain/entities"
)

// RelatedDrugRepository defines the interface for related drug data access.
// Regeneration for a source drug is always a wholesale replace, never a
// partial merge.
type RelatedDrugRepository interface {
	// ListBySourceDrug returns the validated related drugs for a source drug
	ListBySourceDrug(ctx context.Context, sourceDrugID string) ([]*entities.RelatedDrug, error)

	// ReplaceForSourceDrug deletes the existing set and inserts the new one
	// in a single transaction
	ReplaceForSourceDrug(ctx context.Context, sourceDrugID string, drugs []*entities.RelatedDrug) error
}
