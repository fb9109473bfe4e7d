package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/drugfactsio/backend/internal/domain/entities"
)

const maxRxCUI = 9999999

var (
	ndcStandardPattern = regexp.MustCompile(`^(\d{4}-\d{4}|\d{4}-\d{4}-\d{2}|\d{5}-\d{4}-\d{2})$`)
	uniiPattern        = regexp.MustCompile(`^[A-Z0-9]{10}$`)
	genericNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9 \-()',.]*$`)
	brandNamePattern   = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9 \-()',.®™]*$`)
	nonDigitsPattern   = regexp.MustCompile(`\D`)
)

// IdentifierValidationService validates drug identifiers. Pure logic, no
// I/O; every identifier is judged independently so one bad entry never
// aborts a batch.
type IdentifierValidationService struct{}

// NewIdentifierValidationService creates a new validator.
func NewIdentifierValidationService() *IdentifierValidationService {
	return &IdentifierValidationService{}
}

// Validate checks each identifier and partitions them into valid entries,
// warnings and errors. Warnings do not disqualify an identifier.
func (s *IdentifierValidationService) Validate(identifiers []entities.DrugIdentifier) entities.ValidationResult {
	result := entities.ValidationResult{
		ValidIdentifiers: []entities.DrugIdentifier{},
		Errors:           []entities.ValidationIssue{},
		Warnings:         []entities.ValidationIssue{},
	}

	for _, identifier := range identifiers {
		identifier.Value = strings.TrimSpace(identifier.Value)

		if identifier.Value == "" {
			result.Errors = append(result.Errors, entities.ValidationIssue{
				Identifier: identifier,
				ErrorType:  entities.ValidationCodeEmptyValue,
				Message:    "identifier value is empty",
			})
			continue
		}

		if !entities.IsValidIdentifierType(identifier.Type) {
			result.Errors = append(result.Errors, entities.ValidationIssue{
				Identifier: identifier,
				ErrorType:  entities.ValidationCodeUnknownType,
				Message:    fmt.Sprintf("unknown identifier type %q", identifier.Type),
				Suggestions: []string{
					"use one of: ndc, upc, rxcui, unii, generic_name, brand_name",
				},
			})
			continue
		}

		normalized, issue := validateOne(identifier)
		if issue != nil {
			if issue.warning {
				result.Warnings = append(result.Warnings, issue.issue)
			} else {
				result.Errors = append(result.Errors, issue.issue)
				continue
			}
		}
		result.ValidIdentifiers = append(result.ValidIdentifiers, normalized)
	}

	result.ErrorCount = len(result.Errors)
	result.WarningCount = len(result.Warnings)
	result.IsValid = result.ErrorCount == 0
	return result
}

type validationOutcome struct {
	issue   entities.ValidationIssue
	warning bool
}

func validateOne(identifier entities.DrugIdentifier) (entities.DrugIdentifier, *validationOutcome) {
	switch identifier.Type {
	case entities.IdentifierTypeNDC:
		return validateNDC(identifier)
	case entities.IdentifierTypeUPC:
		return validateUPC(identifier)
	case entities.IdentifierTypeRxCUI:
		return validateRxCUI(identifier)
	case entities.IdentifierTypeUNII:
		return validateUNII(identifier)
	case entities.IdentifierTypeGenericName:
		return validateName(identifier, genericNamePattern)
	default:
		return validateName(identifier, brandNamePattern)
	}
}

// validateNDC accepts 8, 10 or 11 digits. Canonical hyphen groupings
// (4-4, 4-4-2, 5-4-2) pass silently; any other rendering of a valid digit
// count passes with a warning and a canonical suggestion.
func validateNDC(identifier entities.DrugIdentifier) (entities.DrugIdentifier, *validationOutcome) {
	digits := nonDigitsPattern.ReplaceAllString(identifier.Value, "")

	switch len(digits) {
	case 8, 10, 11:
	default:
		return identifier, &validationOutcome{issue: entities.ValidationIssue{
			Identifier: identifier,
			ErrorType:  entities.ValidationCodeInvalidNDC,
			Message:    fmt.Sprintf("NDC must contain 8, 10 or 11 digits, got %d", len(digits)),
			Suggestions: []string{
				"use a labeler-product NDC like 0071-0155",
				"use a full package NDC like 58151-574-01 or 0071-0155-23",
			},
		}}
	}

	if len(digits) == 8 {
		if identifier.Value == digits[:4]+"-"+digits[4:] {
			return identifier, nil
		}
	} else if ndcStandardPattern.MatchString(identifier.Value) {
		return identifier, nil
	}

	return identifier, &validationOutcome{
		warning: true,
		issue: entities.ValidationIssue{
			Identifier:  identifier,
			ErrorType:   entities.ValidationCodeNonStandardNDC,
			Message:     "NDC is digit-valid but not in a canonical grouping",
			Suggestions: canonicalNDCSuggestions(digits),
		},
	}
}

func canonicalNDCSuggestions(digits string) []string {
	switch len(digits) {
	case 8:
		return []string{digits[:4] + "-" + digits[4:]}
	case 10:
		return []string{digits[:4] + "-" + digits[4:8] + "-" + digits[8:]}
	case 11:
		return []string{digits[:5] + "-" + digits[5:9] + "-" + digits[9:]}
	default:
		return nil
	}
}

// validateUPC requires exactly 12 digits. A check-digit mismatch is a
// warning only; mistyped UPCs are common on inbound data and the gateway
// refuses UPC lookups anyway.
func validateUPC(identifier entities.DrugIdentifier) (entities.DrugIdentifier, *validationOutcome) {
	value := identifier.Value
	if len(value) != 12 || nonDigitsPattern.MatchString(value) {
		return identifier, &validationOutcome{issue: entities.ValidationIssue{
			Identifier:  identifier,
			ErrorType:   entities.ValidationCodeInvalidUPC,
			Message:     "UPC must be exactly 12 digits",
			Suggestions: []string{"check for dropped leading zeros"},
		}}
	}

	sum := 0
	for i := 0; i < 11; i++ {
		digit := int(value[i] - '0')
		if i%2 == 0 {
			sum += digit * 3
		} else {
			sum += digit
		}
	}
	check := (10 - sum%10) % 10
	if check != int(value[11]-'0') {
		return identifier, &validationOutcome{
			warning: true,
			issue: entities.ValidationIssue{
				Identifier: identifier,
				ErrorType:  entities.ValidationCodeUPCCheckMismatch,
				Message:    fmt.Sprintf("UPC check digit mismatch: expected %d, got %c", check, value[11]),
			},
		}
	}

	return identifier, nil
}

func validateRxCUI(identifier entities.DrugIdentifier) (entities.DrugIdentifier, *validationOutcome) {
	value, err := strconv.Atoi(identifier.Value)
	if err != nil || value < 1 || value > maxRxCUI {
		return identifier, &validationOutcome{issue: entities.ValidationIssue{
			Identifier: identifier,
			ErrorType:  entities.ValidationCodeInvalidRxCUI,
			Message:    "RxCUI must be a positive integer between 1 and 9999999",
		}}
	}
	return identifier, nil
}

// validateUNII normalizes to uppercase before matching.
func validateUNII(identifier entities.DrugIdentifier) (entities.DrugIdentifier, *validationOutcome) {
	normalized := strings.ToUpper(identifier.Value)
	if !uniiPattern.MatchString(normalized) {
		return identifier, &validationOutcome{issue: entities.ValidationIssue{
			Identifier: identifier,
			ErrorType:  entities.ValidationCodeInvalidUNII,
			Message:    "UNII must be exactly 10 alphanumeric characters",
		}}
	}
	identifier.Value = normalized
	return identifier, nil
}

func validateName(identifier entities.DrugIdentifier, pattern *regexp.Regexp) (entities.DrugIdentifier, *validationOutcome) {
	value := identifier.Value
	length := utf8.RuneCountInString(value)
	if length < 2 || length > 100 || !pattern.MatchString(value) {
		return identifier, &validationOutcome{issue: entities.ValidationIssue{
			Identifier: identifier,
			ErrorType:  entities.ValidationCodeInvalidName,
			Message:    "drug name must start with a letter, be 2-100 characters, and contain only letters, digits, spaces and basic punctuation",
		}}
	}
	return identifier, nil
}
