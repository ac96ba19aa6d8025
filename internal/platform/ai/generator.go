// Package ai defines the text-generation collaborator used for clinical
// summaries. The summary domain owns anomaly detection and the deterministic
// fallback text; this package only abstracts the free-text provider.
package ai

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable signals that no generation provider is configured or the
// provider failed. Callers are expected to fall back to deterministic text
// rather than surface this to clients.
var ErrUnavailable = errors.New("ai generator unavailable")

// RecordDigest is a compact, PHI-minimal description of one medical record
// handed to the generator.
type RecordDigest struct {
	Category    string     `json:"category"`
	Hospital    string     `json:"hospital"`
	Description string     `json:"description"`
	RecordDate  *time.Time `json:"record_date,omitempty"`
}

// Input is the prompt material for one summary generation.
type Input struct {
	PatientName string         `json:"patient_name"`
	Records     []RecordDigest `json:"records"`
	Anomalies   []string       `json:"anomalies"`
}

// Output carries the two generated narratives.
type Output struct {
	ClinicianSummary string `json:"clinician_summary"`
	PatientSummary   string `json:"patient_summary"`
}

// Generator produces clinician- and patient-facing summary text.
type Generator interface {
	Generate(ctx context.Context, in Input) (*Output, error)
}

// Disabled is the Generator used when no provider is configured. It always
// returns ErrUnavailable, which routes every generation through the
// deterministic fallback.
type Disabled struct{}

func (Disabled) Generate(context.Context, Input) (*Output, error) {
	return nil, ErrUnavailable
}
