package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drugfactsio/backend/internal/domain/entities"
)

func TestValidateNDC(t *testing.T) {
	validator := NewIdentifierValidationService()

	tests := []struct {
		name        string
		value       string
		wantValid   bool
		wantWarning bool
		wantCode    string
	}{
		{
			name:      "canonical labeler-product",
			value:     "0071-0155",
			wantValid: true,
		},
		{
			name:      "canonical 4-4-2 package",
			value:     "0071-0155-23",
			wantValid: true,
		},
		{
			name:      "canonical 5-4-2 package",
			value:     "58151-5740-01",
			wantValid: true,
		},
		{
			name:        "bare digits pass with warning",
			value:       "58151574",
			wantValid:   true,
			wantWarning: true,
			wantCode:    entities.ValidationCodeNonStandardNDC,
		},
		{
			name:        "non-canonical hyphenation passes with warning",
			value:       "58151-574-01",
			wantValid:   true,
			wantWarning: true,
			wantCode:    entities.ValidationCodeNonStandardNDC,
		},
		{
			name:      "wrong digit count fails",
			value:     "12345",
			wantValid: false,
			wantCode:  entities.ValidationCodeInvalidNDC,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validator.Validate([]entities.DrugIdentifier{
				{Type: entities.IdentifierTypeNDC, Value: tt.value},
			})

			if tt.wantValid {
				assert.True(t, result.IsValid)
				require.Len(t, result.ValidIdentifiers, 1)
			} else {
				assert.False(t, result.IsValid)
				require.Len(t, result.Errors, 1)
				assert.Equal(t, tt.wantCode, result.Errors[0].ErrorType)
			}

			if tt.wantWarning {
				require.Len(t, result.Warnings, 1)
				assert.Equal(t, tt.wantCode, result.Warnings[0].ErrorType)
				assert.NotEmpty(t, result.Warnings[0].Suggestions)
			}
		})
	}
}

func TestValidateUPCCheckDigit(t *testing.T) {
	validator := NewIdentifierValidationService()

	// 036000291452 is a valid UPC-A; flipping the last digit breaks it.
	valid := validator.Validate([]entities.DrugIdentifier{
		{Type: entities.IdentifierTypeUPC, Value: "036000291452"},
	})
	assert.True(t, valid.IsValid)
	assert.Empty(t, valid.Warnings)

	mismatch := validator.Validate([]entities.DrugIdentifier{
		{Type: entities.IdentifierTypeUPC, Value: "036000291453"},
	})
	assert.True(t, mismatch.IsValid, "check digit mismatch is a warning, not an error")
	require.Len(t, mismatch.Warnings, 1)
	assert.Equal(t, entities.ValidationCodeUPCCheckMismatch, mismatch.Warnings[0].ErrorType)
	require.Len(t, mismatch.ValidIdentifiers, 1)

	short := validator.Validate([]entities.DrugIdentifier{
		{Type: entities.IdentifierTypeUPC, Value: "12345"},
	})
	assert.False(t, short.IsValid)
	assert.Equal(t, entities.ValidationCodeInvalidUPC, short.Errors[0].ErrorType)
}

func TestValidateRxCUI(t *testing.T) {
	validator := NewIdentifierValidationService()

	tests := []struct {
		value     string
		wantValid bool
	}{
		{"83367", true},
		{"1", true},
		{"9999999", true},
		{"0", false},
		{"10000000", false},
		{"-5", false},
		{"abc", false},
	}

	for _, tt := range tests {
		result := validator.Validate([]entities.DrugIdentifier{
			{Type: entities.IdentifierTypeRxCUI, Value: tt.value},
		})
		assert.Equal(t, tt.wantValid, result.IsValid, "rxcui %q", tt.value)
	}
}

func TestValidateUNIINormalizesCase(t *testing.T) {
	validator := NewIdentifierValidationService()

	result := validator.Validate([]entities.DrugIdentifier{
		{Type: entities.IdentifierTypeUNII, Value: "a0jwa85v8f"},
	})
	require.True(t, result.IsValid)
	require.Len(t, result.ValidIdentifiers, 1)
	assert.Equal(t, "A0JWA85V8F", result.ValidIdentifiers[0].Value)

	invalid := validator.Validate([]entities.DrugIdentifier{
		{Type: entities.IdentifierTypeUNII, Value: "short"},
	})
	assert.False(t, invalid.IsValid)
	assert.Equal(t, entities.ValidationCodeInvalidUNII, invalid.Errors[0].ErrorType)
}

func TestValidateNames(t *testing.T) {
	validator := NewIdentifierValidationService()

	tests := []struct {
		name      string
		idType    entities.IdentifierType
		value     string
		wantValid bool
	}{
		{"simple generic", entities.IdentifierTypeGenericName, "atorvastatin", true},
		{"brand with punctuation", entities.IdentifierTypeBrandName, "Children's Tylenol", true},
		{"brand with trademark", entities.IdentifierTypeBrandName, "Advil®", true},
		{"trademark not allowed in generic", entities.IdentifierTypeGenericName, "ibuprofen™", false},
		{"starts with digit", entities.IdentifierTypeBrandName, "5-hour Energy", false},
		{"single character", entities.IdentifierTypeGenericName, "a", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validator.Validate([]entities.DrugIdentifier{
				{Type: tt.idType, Value: tt.value},
			})
			assert.Equal(t, tt.wantValid, result.IsValid)
		})
	}
}

func TestValidateBatchIndependence(t *testing.T) {
	validator := NewIdentifierValidationService()

	result := validator.Validate([]entities.DrugIdentifier{
		{Type: entities.IdentifierTypeNDC, Value: "0071-0155"},
		{Type: entities.IdentifierTypeNDC, Value: ""},
		{Type: "isbn", Value: "978-0"},
		{Type: entities.IdentifierTypeRxCUI, Value: "83367"},
	})

	assert.False(t, result.IsValid)
	assert.Equal(t, 2, result.ErrorCount)
	assert.Len(t, result.ValidIdentifiers, 2)
	assert.Equal(t, entities.ValidationCodeEmptyValue, result.Errors[0].ErrorType)
	assert.Equal(t, entities.ValidationCodeUnknownType, result.Errors[1].ErrorType)
}

func TestValidateTrimsWhitespace(t *testing.T) {
	validator := NewIdentifierValidationService()

	result := validator.Validate([]entities.DrugIdentifier{
		{Type: entities.IdentifierTypeGenericName, Value: "  atorvastatin  "},
	})
	require.True(t, result.IsValid)
	assert.Equal(t, "atorvastatin", result.ValidIdentifiers[0].Value)
}
