package sharing

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound covers both missing rows and rows owned by another
	// patient. Handlers render it as 404 so token ids cannot be probed.
	ErrNotFound = errors.New("not found")
	// ErrInvalidToken is returned for unknown, expired, or revoked token
	// values. One message for all three so providers cannot distinguish.
	ErrInvalidToken = errors.New("invalid or expired token")
)

type TokenRepository interface {
	Create(ctx context.Context, t *ShareToken) error
	GetByID(ctx context.Context, id uuid.UUID) (*ShareToken, error)
	GetByValue(ctx context.Context, value string) (*ShareToken, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*ShareToken, error)
	Revoke(ctx context.Context, id uuid.UUID) (*ShareToken, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ProviderRepository interface {
	Create(ctx context.Context, p *ProviderAuthorization) error
	GetByID(ctx context.Context, id uuid.UUID) (*ProviderAuthorization, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*ProviderAuthorization, error)
	GetByPatientAndEmployee(ctx context.Context, patientID, employeeRef uuid.UUID) (*ProviderAuthorization, error)
	Update(ctx context.Context, p *ProviderAuthorization) error
	Delete(ctx context.Context, id uuid.UUID) error
}
