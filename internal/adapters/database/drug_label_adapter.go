package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/drugfactsio/backend/internal/domain/entities"
	"github.com/drugfactsio/backend/internal/domain/repositories"
	"github.com/drugfactsio/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/drugfactsio/backend/pkg/errors"
)

var drugLabelColumns = []interface{}{
	"id",
	"ndc",
	"brand_name",
	"generic_name",
	"manufacturer",
	"indications",
	"warnings",
	"dosage",
	"contraindications",
	"raw_payload",
	"data_source",
	"created_at",
	"updated_at",
}

// DrugLabelAdapter implements DrugLabelRepository.
type DrugLabelAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewDrugLabelAdapter creates a new adapter.
func NewDrugLabelAdapter(client *postgres.Client) repositories.DrugLabelRepository {
	return &DrugLabelAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a label by its primary key.
func (a *DrugLabelAdapter) GetByID(ctx context.Context, id string) (*entities.DrugLabel, error) {
	return a.getOne(ctx, goqu.Ex{"id": id}, fmt.Sprintf("drug label with id %s not found", id))
}

// GetByNDC retrieves a label by its unique NDC.
func (a *DrugLabelAdapter) GetByNDC(ctx context.Context, ndc string) (*entities.DrugLabel, error) {
	return a.getOne(ctx, goqu.Ex{"ndc": ndc}, fmt.Sprintf("drug label with ndc %s not found", ndc))
}

// GetByBrandName retrieves a label by brand name, case-insensitively.
func (a *DrugLabelAdapter) GetByBrandName(ctx context.Context, brandName string) (*entities.DrugLabel, error) {
	return a.getOne(ctx,
		goqu.L("LOWER(brand_name) = ?", strings.ToLower(brandName)),
		fmt.Sprintf("drug label with brand name %q not found", brandName))
}

// GetByGenericName retrieves a label by generic name, case-insensitively.
func (a *DrugLabelAdapter) GetByGenericName(ctx context.Context, genericName string) (*entities.DrugLabel, error) {
	return a.getOne(ctx,
		goqu.L("LOWER(generic_name) = ?", strings.ToLower(genericName)),
		fmt.Sprintf("drug label with generic name %q not found", genericName))
}

func (a *DrugLabelAdapter) getOne(ctx context.Context, condition goqu.Expression, notFoundMsg string) (*entities.DrugLabel, error) {
	query, args, err := a.db.Select(drugLabelColumns...).
		From("drug_labels").
		Where(condition).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build drug label query", err)
	}

	label, err := scanDrugLabel(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(notFoundMsg)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get drug label", err)
	}
	return label, nil
}

// Create inserts a new label. A duplicate NDC surfaces as a CONFLICT error
// so callers can re-fetch the winner of a concurrent insert race.
func (a *DrugLabelAdapter) Create(ctx context.Context, label *entities.DrugLabel) error {
	if label == nil {
		return apperrors.NewValidationError("label is required")
	}
	if label.NDC == "" && label.BrandName == "" {
		return apperrors.NewValidationError("label requires an NDC or brand name")
	}
	if label.ID == "" {
		label.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if label.CreatedAt.IsZero() {
		label.CreatedAt = now
	}
	label.UpdatedAt = now

	query, args, err := a.db.Insert("drug_labels").
		Rows(goqu.Record{
			"id":                label.ID,
			"ndc":               label.NDC,
			"brand_name":        label.BrandName,
			"generic_name":      label.GenericName,
			"manufacturer":      label.Manufacturer,
			"indications":       label.Indications,
			"warnings":          label.Warnings,
			"dosage":            label.Dosage,
			"contraindications": label.Contraindications,
			"raw_payload":       rawOrNull(label.RawPayload),
			"data_source":       label.DataSource,
			"created_at":        label.CreatedAt,
			"updated_at":        label.UpdatedAt,
		}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build drug label insert", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf("drug label with ndc %s already exists", label.NDC))
		}
		return apperrors.NewPersistenceError("failed to create drug label", err)
	}
	return nil
}

// Update updates an existing label in place, keyed by id.
func (a *DrugLabelAdapter) Update(ctx context.Context, label *entities.DrugLabel) error {
	if label == nil || label.ID == "" {
		return apperrors.NewValidationError("label with id is required")
	}

	label.UpdatedAt = time.Now().UTC()

	query, args, err := a.db.Update("drug_labels").
		Set(goqu.Record{
			"ndc":               label.NDC,
			"brand_name":        label.BrandName,
			"generic_name":      label.GenericName,
			"manufacturer":      label.Manufacturer,
			"indications":       label.Indications,
			"warnings":          label.Warnings,
			"dosage":            label.Dosage,
			"contraindications": label.Contraindications,
			"raw_payload":       rawOrNull(label.RawPayload),
			"data_source":       label.DataSource,
			"updated_at":        label.UpdatedAt,
		}).
		Where(goqu.Ex{"id": label.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build drug label update", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewPersistenceError("failed to update drug label", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("drug label with id %s not found", label.ID))
	}
	return nil
}

// List returns labels ordered by update time, newest first.
func (a *DrugLabelAdapter) List(ctx context.Context, limit, offset int) ([]*entities.DrugLabel, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query, args, err := a.db.Select(drugLabelColumns...).
		From("drug_labels").
		Order(goqu.I("updated_at").Desc()).
		Limit(uint(limit)).
		Offset(uint(offset)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build drug label list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list drug labels", err)
	}
	defer rows.Close()

	labels := []*entities.DrugLabel{}
	for rows.Next() {
		label, err := scanDrugLabel(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan drug label", err)
		}
		labels = append(labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate drug labels", err)
	}
	return labels, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDrugLabel(row rowScanner) (*entities.DrugLabel, error) {
	label := &entities.DrugLabel{}
	var brand, generic, manufacturer sql.NullString
	var indications, warnings, dosage, contraindications sql.NullString
	var rawPayload []byte

	err := row.Scan(
		&label.ID,
		&label.NDC,
		&brand,
		&generic,
		&manufacturer,
		&indications,
		&warnings,
		&dosage,
		&contraindications,
		&rawPayload,
		&label.DataSource,
		&label.CreatedAt,
		&label.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	label.BrandName = brand.String
	label.GenericName = generic.String
	label.Manufacturer = manufacturer.String
	label.Indications = indications.String
	label.Warnings = warnings.String
	label.Dosage = dosage.String
	label.Contraindications = contraindications.String
	if len(rawPayload) > 0 {
		label.RawPayload = rawPayload
	}
	return label, nil
}

func rawOrNull(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
