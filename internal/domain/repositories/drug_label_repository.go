package repositories

import (
	"context"

	"github.com/drugfactsio/backend/internal/domain/entities"
)

// DrugLabelRepository defines the interface for drug label data access
type DrugLabelRepository interface {
	// GetByID retrieves a label by its primary key
	GetByID(ctx context.Context, id string) (*entities.DrugLabel, error)

	// GetByNDC retrieves a label by its unique NDC
	GetByNDC(ctx context.Context, ndc string) (*entities.DrugLabel, error)

	// GetByBrandName retrieves a label by brand name (case-insensitive)
	GetByBrandName(ctx context.Context, brandName string) (*entities.DrugLabel, error)

	// GetByGenericName retrieves a label by generic name (case-insensitive)
	GetByGenericName(ctx context.Context, genericName string) (*entities.DrugLabel, error)

	// Create inserts a new label
	Create(ctx context.Context, label *entities.DrugLabel) error

	// Update updates an existing label in place
	Update(ctx context.Context, label *entities.DrugLabel) error

	// List returns labels ordered by update time, newest first
	List(ctx context.Context, limit, offset int) ([]*entities.DrugLabel, error)
}
