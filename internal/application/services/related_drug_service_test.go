package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drugfactsio/backend/internal/domain/entities"
	apperrors "github.com/drugfactsio/backend/pkg/errors"
)

type fakeLabelProvider struct {
	labels map[string]*entities.DrugLabel
	errs   map[string][]error
	calls  []string
}

func (f *fakeLabelProvider) Resolve(_ context.Context, _ entities.DrugIdentifier) (*entities.DrugLabel, error) {
	return nil, apperrors.NewNotFoundError("not implemented")
}

func (f *fakeLabelProvider) SearchByName(_ context.Context, name string) (*entities.DrugLabel, error) {
	f.calls = append(f.calls, name)
	if queued := f.errs[name]; len(queued) > 0 {
		err := queued[0]
		f.errs[name] = queued[1:]
		return nil, err
	}
	if label, ok := f.labels[name]; ok {
		return label, nil
	}
	return nil, apperrors.NewNotFoundError("no FDA label found for name " + name)
}

func sourceLabelFixture() *entities.DrugLabel {
	return &entities.DrugLabel{
		ID:          "source-1",
		NDC:         "0071-0155",
		BrandName:   "Lipitor",
		GenericName: "atorvastatin",
	}
}

func crestorLabel() *entities.DrugLabel {
	return &entities.DrugLabel{
		ID:           "match-crestor",
		NDC:          "0310-0751",
		BrandName:    "Crestor",
		GenericName:  "rosuvastatin",
		Manufacturer: "AstraZeneca",
	}
}

func TestValidateAndBuildMatches(t *testing.T) {
	provider := &fakeLabelProvider{labels: map[string]*entities.DrugLabel{
		"Crestor": crestorLabel(),
	}}
	service := NewRelatedDrugService(provider, 3, 3)

	drugs, err := service.ValidateAndBuild(context.Background(), sourceLabelFixture(), []string{"Crestor"}, 0.9)
	require.NoError(t, err)
	require.Len(t, drugs, 1)

	drug := drugs[0]
	assert.Equal(t, "source-1", drug.SourceDrugID)
	assert.Equal(t, "Crestor", drug.Name)
	assert.Equal(t, "0310-0751", drug.NDC)
	assert.Equal(t, "rosuvastatin", drug.GenericName)
	assert.Equal(t, "AstraZeneca", drug.Manufacturer)
	assert.Equal(t, entities.RelationshipSimilarIndication, drug.RelationshipType)
	assert.InDelta(t, 0.72, drug.ConfidenceScore, 0.001)
	assert.Equal(t, "Crestor", drug.Metadata.OriginalSuggestion)
	assert.True(t, drug.Metadata.FDAValidated)
	assert.False(t, drug.Metadata.ValidatedAt.IsZero())
	assert.NotEmpty(t, drug.ID)
}

func TestValidateAndBuildDiscardsUnmatched(t *testing.T) {
	provider := &fakeLabelProvider{labels: map[string]*entities.DrugLabel{
		"Crestor": crestorLabel(),
	}}
	service := NewRelatedDrugService(provider, 3, 3)

	drugs, err := service.ValidateAndBuild(context.Background(), sourceLabelFixture(),
		[]string{"Madeupadrol", "Crestor"}, 0.8)
	require.NoError(t, err)
	require.Len(t, drugs, 1)
	assert.Equal(t, "Crestor", drugs[0].Name)

	// No match is definitive; the retry budget is not consumed on it.
	assert.Equal(t, []string{"Madeupadrol", "Crestor"}, provider.calls)
}

func TestValidateAndBuildSkipsDuplicatesAndSelf(t *testing.T) {
	provider := &fakeLabelProvider{labels: map[string]*entities.DrugLabel{
		"Crestor": crestorLabel(),
	}}
	service := NewRelatedDrugService(provider, 5, 3)

	drugs, err := service.ValidateAndBuild(context.Background(), sourceLabelFixture(),
		[]string{"Lipitor", "atorvastatin", "Crestor", "crestor", "CRESTOR", ""}, 0.8)
	require.NoError(t, err)
	require.Len(t, drugs, 1)
	assert.Equal(t, []string{"Crestor"}, provider.calls)
}

func TestValidateAndBuildStopsAtTarget(t *testing.T) {
	provider := &fakeLabelProvider{labels: map[string]*entities.DrugLabel{
		"Crestor": crestorLabel(),
		"Zocor":   {ID: "match-zocor", BrandName: "Zocor", GenericName: "simvastatin"},
	}}
	service := NewRelatedDrugService(provider, 1, 3)

	drugs, err := service.ValidateAndBuild(context.Background(), sourceLabelFixture(),
		[]string{"Crestor", "Zocor"}, 0.8)
	require.NoError(t, err)
	require.Len(t, drugs, 1)
	assert.Equal(t, []string{"Crestor"}, provider.calls)
}

func TestValidateAndBuildRetriesTransientFailures(t *testing.T) {
	provider := &fakeLabelProvider{
		labels: map[string]*entities.DrugLabel{"Crestor": crestorLabel()},
		errs: map[string][]error{
			"Crestor": {apperrors.NewExternalError("FDA API timeout", nil, true)},
		},
	}
	service := NewRelatedDrugService(provider, 3, 3)

	drugs, err := service.ValidateAndBuild(context.Background(), sourceLabelFixture(), []string{"Crestor"}, 0.8)
	require.NoError(t, err)
	require.Len(t, drugs, 1)
	assert.Equal(t, []string{"Crestor", "Crestor"}, provider.calls)
}

func TestValidateAndBuildDiscardsAfterRetryBudget(t *testing.T) {
	failure := apperrors.NewExternalError("FDA API unavailable", nil, true)
	provider := &fakeLabelProvider{errs: map[string][]error{
		"Crestor": {failure, failure, failure},
	}}
	service := NewRelatedDrugService(provider, 3, 3)

	start := time.Now()
	drugs, err := service.ValidateAndBuild(context.Background(), sourceLabelFixture(), []string{"Crestor"}, 0.8)
	require.NoError(t, err)
	assert.Empty(t, drugs)
	assert.Len(t, provider.calls, 3)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestValidateAndBuildDoesNotRetryCircuitOpen(t *testing.T) {
	provider := &fakeLabelProvider{errs: map[string][]error{
		"Crestor": {apperrors.NewCircuitOpenError("fda_api", 30*time.Second)},
	}}
	service := NewRelatedDrugService(provider, 3, 3)

	drugs, err := service.ValidateAndBuild(context.Background(), sourceLabelFixture(), []string{"Crestor"}, 0.8)
	require.NoError(t, err)
	assert.Empty(t, drugs)

	// An open circuit won't close within the retry budget; one probe only.
	assert.Len(t, provider.calls, 1)
}

func TestValidateAndBuildEmptyInput(t *testing.T) {
	service := NewRelatedDrugService(&fakeLabelProvider{}, 3, 3)
	drugs, err := service.ValidateAndBuild(context.Background(), sourceLabelFixture(), nil, 0.8)
	require.NoError(t, err)
	assert.Empty(t, drugs)
}
