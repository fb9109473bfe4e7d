package entities

// IdentifierType enumerates the supported drug identifier kinds
type IdentifierType string

const (
	IdentifierTypeNDC         IdentifierType = "ndc"
	IdentifierTypeUPC         IdentifierType = "upc"
	IdentifierTypeRxCUI       IdentifierType = "rxcui"
	IdentifierTypeUNII        IdentifierType = "unii"
	IdentifierTypeGenericName IdentifierType = "generic_name"
	IdentifierTypeBrandName   IdentifierType = "brand_name"
)

// IdentifierTypes lists every supported identifier type
func IdentifierTypes() []IdentifierType {
	return []IdentifierType{
		IdentifierTypeNDC,
		IdentifierTypeUPC,
		IdentifierTypeRxCUI,
		IdentifierTypeUNII,
		IdentifierTypeGenericName,
		IdentifierTypeBrandName,
	}
}

// IsValidIdentifierType reports whether t is a known identifier type
func IsValidIdentifierType(t IdentifierType) bool {
	switch t {
	case IdentifierTypeNDC, IdentifierTypeUPC, IdentifierTypeRxCUI,
		IdentifierTypeUNII, IdentifierTypeGenericName, IdentifierTypeBrandName:
		return true
	}
	return false
}

// DrugIdentifier is an immutable lookup key for a drug. Never persisted
// standalone.
type DrugIdentifier struct {
	Type  IdentifierType `json:"type"`
	Value string         `json:"value"`
}

// Validation error codes surfaced per identifier
const (
	ValidationCodeEmptyValue       = "EMPTY_VALUE"
	ValidationCodeUnknownType      = "UNKNOWN_TYPE"
	ValidationCodeInvalidNDC       = "INVALID_NDC_FORMAT"
	ValidationCodeInvalidUPC       = "INVALID_UPC_FORMAT"
	ValidationCodeInvalidRxCUI     = "INVALID_RXCUI"
	ValidationCodeInvalidUNII      = "INVALID_UNII"
	ValidationCodeInvalidName      = "INVALID_NAME"
	ValidationCodeNonStandardNDC   = "NON_STANDARD_NDC_FORMAT"
	ValidationCodeUPCCheckMismatch = "UPC_CHECK_DIGIT_MISMATCH"
)

// ValidationIssue describes one validation error or warning
type ValidationIssue struct {
	Identifier  DrugIdentifier `json:"identifier"`
	ErrorType   string         `json:"error_type"`
	Message     string         `json:"message"`
	Suggestions []string       `json:"suggestions,omitempty"`
}

// ValidationResult aggregates per-identifier validation outcomes.
// Identifiers are judged independently; an invalid entry never aborts the
// batch.
type ValidationResult struct {
	IsValid          bool              `json:"is_valid"`
	ValidIdentifiers []DrugIdentifier  `json:"valid_identifiers"`
	Errors           []ValidationIssue `json:"errors"`
	Warnings         []ValidationIssue `json:"warnings"`
	ErrorCount       int               `json:"error_count"`
	WarningCount     int               `json:"warning_count"`
}
