package entities

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// DrugEventType represents the type of drug update event
type DrugEventType string

const (
	DrugEventTypeLabelUpdated      DrugEventType = "label_updated"
	DrugEventTypeEnrichmentUpdated DrugEventType = "enrichment_updated"
	DrugEventTypeRelatedUpdated    DrugEventType = "related_drugs_updated"
)

// DrugEvent represents a cache-relevant update for a drug
type DrugEvent struct {
	ID        string        `json:"id"`
	DrugID    string        `json:"drug_id"`
	NDC       string        `json:"ndc,omitempty"`
	Slug      string        `json:"slug,omitempty"`
	EventType DrugEventType `json:"event_type"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewDrugEvent creates a new drug update event
func NewDrugEvent(drugID, ndc, slug string, eventType DrugEventType) *DrugEvent {
	return &DrugEvent{
		ID:        generateEventID(),
		DrugID:    drugID,
		NDC:       ndc,
		Slug:      slug,
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

// generateEventID generates a unique event ID
func generateEventID() string {
	return time.Now().Format("20060102150405") + "-" + randomString(8)
}

// randomString generates a random string of specified length
func randomString(length int) string {
	bytes := make([]byte, length/2+1)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based if crypto/rand fails
		return time.Now().Format("150405.000")
	}
	return hex.EncodeToString(bytes)[:length]
}
