package entities

import (
	"encoding/json"
	"time"
)

// Data source tags recorded on labels and batch results
const (
	DataSourceFDA      = "fda"
	DataSourceDatabase = "database"
)

// DrugLabel is the canonical cached drug record, keyed by NDC. Created on
// the first successful openFDA fetch and updated in place on refresh.
type DrugLabel struct {
	ID                string          `json:"id" db:"id"`
	NDC               string          `json:"ndc" db:"ndc"`
	BrandName         string          `json:"brand_name" db:"brand_name"`
	GenericName       string          `json:"generic_name" db:"generic_name"`
	Manufacturer      string          `json:"manufacturer" db:"manufacturer"`
	Indications       string          `json:"indications" db:"indications"`
	Warnings          string          `json:"warnings" db:"warnings"`
	Dosage            string          `json:"dosage" db:"dosage"`
	Contraindications string          `json:"contraindications" db:"contraindications"`
	RawPayload        json.RawMessage `json:"raw_payload,omitempty" db:"raw_payload"`
	DataSource        string          `json:"data_source" db:"data_source"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// DisplayName returns the brand name, falling back to the generic name
func (l *DrugLabel) DisplayName() string {
	if l.BrandName != "" {
		return l.BrandName
	}
	return l.GenericName
}

// IsStale reports whether the label was last updated before now-ttl
func (l *DrugLabel) IsStale(ttl time.Duration, now time.Time) bool {
	return l.UpdatedAt.Before(now.Add(-ttl))
}
