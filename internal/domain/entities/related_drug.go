package entities

import "time"

// RelationshipType tags how a related drug relates to its source drug
type RelationshipType string

const (
	RelationshipSimilarIndication RelationshipType = "similar_indication"
	RelationshipSameClass         RelationshipType = "same_class"
	RelationshipAlternative       RelationshipType = "alternative"
	RelationshipGenericEquivalent RelationshipType = "generic_equivalent"
)

// RelatedDrugMetadata records provenance for a validated suggestion
type RelatedDrugMetadata struct {
	OriginalSuggestion string    `json:"original_suggestion"`
	FDAValidated       bool      `json:"fda_validated"`
	ValidatedAt        time.Time `json:"validated_at"`
}

// RelatedDrug is an AI-suggested related drug that passed FDA
// cross-validation. Suggestions that cannot be matched to a real FDA entry
// are discarded, never stored. Regeneration replaces the full set for a
// source drug.
type RelatedDrug struct {
	ID               string              `json:"id" db:"id"`
	SourceDrugID     string              `json:"source_drug_id" db:"source_drug_id"`
	Name             string              `json:"name" db:"name"`
	NDC              string              `json:"ndc" db:"ndc"`
	BrandName        string              `json:"brand_name" db:"brand_name"`
	GenericName      string              `json:"generic_name" db:"generic_name"`
	Manufacturer     string              `json:"manufacturer" db:"manufacturer"`
	Relationship     string              `json:"relationship" db:"relationship"`
	RelationshipType RelationshipType    `json:"relationship_type" db:"relationship_type"`
	ConfidenceScore  float64             `json:"confidence_score" db:"confidence_score"`
	Metadata         RelatedDrugMetadata `json:"metadata" db:"-"`
	CreatedAt        time.Time           `json:"created_at" db:"created_at"`
}
