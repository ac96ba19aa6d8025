package records

import (
	"context"

	"github.com/google/uuid"
)

// Repository loads medical records. Records enter the system through imports
// (seed tooling, hospital feeds), never through the patient API, so the
// read path dominates.
type Repository interface {
	// ListByPatient returns the patient's records limited to the scope's
	// categories, newest record date first.
	ListByPatient(ctx context.Context, patientID uuid.UUID, scope Scope, limit, offset int) ([]*MedicalRecord, int, error)
	Create(ctx context.Context, r *MedicalRecord) error
}
