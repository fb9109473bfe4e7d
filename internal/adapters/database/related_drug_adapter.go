package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/drugfactsio/backend/internal/domain/entities"
	"github.com/drugfactsio/backend/internal/domain/repositories"
	"github.com/drugfactsio/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/drugfactsio/backend/pkg/errors"
)

// RelatedDrugAdapter implements RelatedDrugRepository.
type RelatedDrugAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewRelatedDrugAdapter creates a new adapter.
func NewRelatedDrugAdapter(client *postgres.Client) repositories.RelatedDrugRepository {
	return &RelatedDrugAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// ListBySourceDrug returns the validated related drugs for a source drug.
func (a *RelatedDrugAdapter) ListBySourceDrug(ctx context.Context, sourceDrugID string) ([]*entities.RelatedDrug, error) {
	query, args, err := a.db.Select(
		"id",
		"source_drug_id",
		"name",
		"ndc",
		"brand_name",
		"generic_name",
		"manufacturer",
		"relationship",
		"relationship_type",
		"confidence_score",
		"metadata",
		"created_at",
	).
		From("related_drugs").
		Where(goqu.Ex{"source_drug_id": sourceDrugID}).
		Order(goqu.I("confidence_score").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build related drugs query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list related drugs", err)
	}
	defer rows.Close()

	drugs := []*entities.RelatedDrug{}
	for rows.Next() {
		drug := &entities.RelatedDrug{}
		var ndc, brand, generic, manufacturer, relationship sql.NullString
		var relationshipType string
		var metadataRaw []byte

		err := rows.Scan(
			&drug.ID,
			&drug.SourceDrugID,
			&drug.Name,
			&ndc,
			&brand,
			&generic,
			&manufacturer,
			&relationship,
			&relationshipType,
			&drug.ConfidenceScore,
			&metadataRaw,
			&drug.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan related drug", err)
		}

		drug.NDC = ndc.String
		drug.BrandName = brand.String
		drug.GenericName = generic.String
		drug.Manufacturer = manufacturer.String
		drug.Relationship = relationship.String
		drug.RelationshipType = entities.RelationshipType(relationshipType)
		if len(metadataRaw) > 0 {
			_ = json.Unmarshal(metadataRaw, &drug.Metadata)
		}

		drugs = append(drugs, drug)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate related drugs", err)
	}
	return drugs, nil
}

// ReplaceForSourceDrug deletes the existing set and inserts the new one in
// a single transaction. A partially-applied replace never becomes visible.
func (a *RelatedDrugAdapter) ReplaceForSourceDrug(ctx context.Context, sourceDrugID string, drugs []*entities.RelatedDrug) error {
	if sourceDrugID == "" {
		return apperrors.NewValidationError("source drug id is required")
	}

	tx, err := a.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewPersistenceError("failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	deleteQuery, deleteArgs, err := a.db.Delete("related_drugs").
		Where(goqu.Ex{"source_drug_id": sourceDrugID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build related drugs delete", err)
	}
	if _, err := tx.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
		return apperrors.NewPersistenceError("failed to delete related drugs", err)
	}

	for _, drug := range drugs {
		if drug.ID == "" {
			drug.ID = uuid.New().String()
		}
		drug.SourceDrugID = sourceDrugID
		if drug.CreatedAt.IsZero() {
			drug.CreatedAt = time.Now().UTC()
		}

		metadataBytes, _ := json.Marshal(drug.Metadata)

		insertQuery, insertArgs, err := a.db.Insert("related_drugs").
			Rows(goqu.Record{
				"id":                drug.ID,
				"source_drug_id":    drug.SourceDrugID,
				"name":              drug.Name,
				"ndc":               drug.NDC,
				"brand_name":        drug.BrandName,
				"generic_name":      drug.GenericName,
				"manufacturer":      drug.Manufacturer,
				"relationship":      drug.Relationship,
				"relationship_type": string(drug.RelationshipType),
				"confidence_score":  drug.ConfidenceScore,
				"metadata":          string(metadataBytes),
				"created_at":        drug.CreatedAt,
			}).
			ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build related drug insert", err)
		}
		if _, err := tx.ExecContext(ctx, insertQuery, insertArgs...); err != nil {
			return apperrors.NewPersistenceError("failed to insert related drug", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewPersistenceError("failed to commit related drugs replace", err)
	}
	return nil
}
