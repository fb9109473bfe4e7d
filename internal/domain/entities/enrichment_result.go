package entities

import "time"

// EnrichmentRequest is the top-level batch request
type EnrichmentRequest struct {
	Identifiers         []DrugIdentifier `json:"identifiers"`
	Context             string           `json:"context,omitempty"`
	ValidateIdentifiers bool             `json:"validate_identifiers"`
	IncludeConfidence   bool             `json:"include_confidence"`
}

// Per-identifier enrichment statuses
const (
	EnrichmentStatusSuccess  = "success"
	EnrichmentStatusError    = "error"
	EnrichmentStatusNotFound = "not_found"
)

// EnrichmentItemResult is the outcome for one identifier in a batch
type EnrichmentItemResult struct {
	Identifier       DrugIdentifier  `json:"identifier"`
	Status           string          `json:"status"`
	DataSource       string          `json:"data_source,omitempty"`
	Label            *DrugLabel      `json:"label,omitempty"`
	Enrichment       *DrugEnrichment `json:"enrichment,omitempty"`
	RelatedDrugs     []*RelatedDrug  `json:"related_drugs,omitempty"`
	Error            string          `json:"error,omitempty"`
	ErrorType        string          `json:"error_type,omitempty"`
	ProcessingTimeMs int64           `json:"processing_time_ms"`
}

// EnrichmentSummary aggregates batch statistics
type EnrichmentSummary struct {
	SuccessRate       float64 `json:"success_rate"`
	AverageConfidence float64 `json:"average_confidence"`
	TotalTimeMs       int64   `json:"total_time_ms"`
}

// EnrichmentBatchResult is the transient per-request aggregate. Every
// requested identifier appears exactly once in Results.
type EnrichmentBatchResult struct {
	RequestID        string                 `json:"request_id"`
	Timestamp        time.Time              `json:"timestamp"`
	ValidationResult *ValidationResult      `json:"validation_result,omitempty"`
	Results          []EnrichmentItemResult `json:"results"`
	TotalProcessed   int                    `json:"total_processed"`
	Summary          EnrichmentSummary      `json:"summary"`
}
