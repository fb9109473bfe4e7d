package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drugfactsio/backend/internal/domain/entities"
	apperrors "github.com/drugfactsio/backend/pkg/errors"
)

func TestRelatedDrugAdapterListBySourceDrug(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewRelatedDrugAdapter(client)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "source_drug_id", "name", "ndc", "brand_name", "generic_name",
		"manufacturer", "relationship", "relationship_type", "confidence_score",
		"metadata", "created_at",
	}).AddRow(
		"rel-1", "label-1", "Crestor", "0310-0751", "Crestor", "rosuvastatin",
		"AstraZeneca", "Also a statin", "same_class", 0.68,
		[]byte(`{"original_suggestion":"crestor","fda_validated":true,"validated_at":"2026-08-30T10:00:00Z"}`),
		now,
	)

	mock.ExpectQuery(`SELECT (.+) FROM "related_drugs" WHERE`).WillReturnRows(rows)

	drugs, err := adapter.ListBySourceDrug(context.Background(), "label-1")
	require.NoError(t, err)
	require.Len(t, drugs, 1)

	drug := drugs[0]
	assert.Equal(t, "Crestor", drug.Name)
	assert.Equal(t, entities.RelationshipSameClass, drug.RelationshipType)
	assert.InDelta(t, 0.68, drug.ConfidenceScore, 0.001)
	assert.Equal(t, "crestor", drug.Metadata.OriginalSuggestion)
	assert.True(t, drug.Metadata.FDAValidated)
}

func TestRelatedDrugAdapterReplaceForSourceDrug(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewRelatedDrugAdapter(client)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "related_drugs"`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO "related_drugs"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "related_drugs"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	drugs := []*entities.RelatedDrug{
		{Name: "Crestor", ConfidenceScore: 0.68},
		{Name: "Zocor", ConfidenceScore: 0.64},
	}
	err := adapter.ReplaceForSourceDrug(context.Background(), "label-1", drugs)
	require.NoError(t, err)

	assert.Equal(t, "label-1", drugs[0].SourceDrugID)
	assert.NotEmpty(t, drugs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelatedDrugAdapterReplaceEmptySetDeletesOnly(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewRelatedDrugAdapter(client)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "related_drugs"`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	err := adapter.ReplaceForSourceDrug(context.Background(), "label-1", nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelatedDrugAdapterReplaceRollsBackOnInsertFailure(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewRelatedDrugAdapter(client)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "related_drugs"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "related_drugs"`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := adapter.ReplaceForSourceDrug(context.Background(), "label-1", []*entities.RelatedDrug{{Name: "Crestor"}})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePersistence))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelatedDrugAdapterReplaceRequiresSourceDrug(t *testing.T) {
	client, _ := setupMockDB(t)
	adapter := NewRelatedDrugAdapter(client)

	err := adapter.ReplaceForSourceDrug(context.Background(), "", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}
