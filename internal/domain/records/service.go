package records

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListForPatient returns the patient's own records, optionally narrowed to
// the given categories. An empty filter means all categories.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, categories []string, limit, offset int) ([]*MedicalRecord, int, error) {
	scope := FullScope()
	if len(categories) > 0 {
		parsed, err := ParseScope(categories)
		if err != nil {
			return nil, 0, err
		}
		scope = parsed
	}
	return s.repo.ListByPatient(ctx, patientID, scope, limit, offset)
}

// ListScoped returns records visible through a grant's scope. Callers have
// already authenticated the grant; the scope does the narrowing here.
func (s *Service) ListScoped(ctx context.Context, patientID uuid.UUID, scope Scope, limit, offset int) ([]*MedicalRecord, int, error) {
	if err := scope.Validate(); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByPatient(ctx, patientID, scope, limit, offset)
}

// Import stores a record pulled from a hospital source.
func (s *Service) Import(ctx context.Context, rec *MedicalRecord) error {
	if rec.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if rec.Hospital == "" {
		return fmt.Errorf("hospital is required")
	}
	if _, err := ParseCategory(string(rec.Category)); err != nil {
		return err
	}
	if rec.Payload == nil {
		return fmt.Errorf("payload is required")
	}
	if rec.Payload.PayloadCategory() != rec.Category {
		return fmt.Errorf("payload type does not match category %s", rec.Category)
	}
	return s.repo.Create(ctx, rec)
}
