package summary

import (
	"time"

	"github.com/google/uuid"

	"github.com/medvault/medvault/internal/domain/records"
)

const (
	GeneratedByAI       = "ai"
	GeneratedByFallback = "fallback"
)

// Anomaly is a single flagged finding. Category ties it to the record
// category it came from so scope filtering can drop it.
type Anomaly struct {
	Category records.Category `json:"category"`
	Field    string           `json:"field"`
	Value    string           `json:"value"`
	Message  string           `json:"message"`
}

// Summary is the latest generated overview for a patient. One row per
// patient; regeneration replaces it.
type Summary struct {
	PatientID      uuid.UUID `db:"patient_id" json:"patient_id"`
	ClinicianText  string    `db:"clinician_text" json:"clinician_text"`
	PatientText    string    `db:"patient_text" json:"patient_text"`
	Anomalies      []Anomaly `db:"anomalies" json:"anomalies"`
	EquityConcerns []string  `db:"equity_concerns" json:"equity_concerns"`
	Predictions    []string  `db:"predictions" json:"predictions"`
	GeneratedBy    string    `db:"generated_by" json:"generated_by"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// GenerateResult reports the outcome of a generation request. A cooldown
// refusal is a normal result, not an error.
type GenerateResult struct {
	Allowed      bool     `json:"allowed"`
	RetryAfterMS int64    `json:"retry_after_ms,omitempty"`
	Summary      *Summary `json:"summary,omitempty"`
}
