package entities

import (
	"encoding/json"
	"time"
)

// FAQ is a generated question/answer pair
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// SectionSummaries holds the per-section generated summaries
type SectionSummaries struct {
	Indications       string `json:"indications,omitempty"`
	Warnings          string `json:"warnings,omitempty"`
	Dosage            string `json:"dosage,omitempty"`
	Contraindications string `json:"contraindications,omitempty"`
	SideEffects       string `json:"side_effects,omitempty"`
}

// DrugEnrichment stores AI-generated SEO content for a drug label. Exactly
// one row per drug; re-enrichment updates in place.
type DrugEnrichment struct {
	ID                     string           `json:"id" db:"id"`
	DrugID                 string           `json:"drug_id" db:"drug_id"`
	Title                  string           `json:"title" db:"title"`
	MetaDescription        string           `json:"meta_description" db:"meta_description"`
	Slug                   string           `json:"slug" db:"slug"`
	Summary                string           `json:"summary" db:"summary"`
	SectionSummaries       SectionSummaries `json:"section_summaries" db:"-"`
	FAQs                   []FAQ            `json:"faqs" db:"-"`
	Keywords               []string         `json:"keywords" db:"-"`
	RelatedDrugSuggestions []string         `json:"related_drug_suggestions" db:"-"`
	RelatedConditions      []string         `json:"related_conditions" db:"-"`
	StructuredData         json.RawMessage  `json:"structured_data,omitempty" db:"structured_data"`
	Model                  string           `json:"model" db:"model"`
	ConfidenceScore        float64          `json:"confidence_score" db:"confidence_score"`
	ContentHash            string           `json:"content_hash" db:"content_hash"`
	Reviewed               bool             `json:"reviewed" db:"reviewed"`
	Published              bool             `json:"published" db:"published"`
	CreatedAt              time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at" db:"updated_at"`
}

// IsStale reports whether the enrichment was generated before now-ttl
func (e *DrugEnrichment) IsStale(ttl time.Duration, now time.Time) bool {
	return e.UpdatedAt.Before(now.Add(-ttl))
}
