package summary

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("summary not found")
	// ErrNoRecords means there is nothing to summarize yet.
	ErrNoRecords = errors.New("patient has no records to summarize")
)

type Repository interface {
	Get(ctx context.Context, patientID uuid.UUID) (*Summary, error)
	// Upsert replaces the patient's summary row.
	Upsert(ctx context.Context, s *Summary) error
}
