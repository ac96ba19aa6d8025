package patient

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("patient not found")

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	// GetByNameAndDOB matches the identity claim on the login form. Name
	// matching is case-insensitive.
	GetByNameAndDOB(ctx context.Context, name string, dob time.Time) (*Patient, error)
	GetByEmail(ctx context.Context, email string) (*Patient, error)
	UpdateSettings(ctx context.Context, id uuid.UUID, s Settings) (*Patient, error)
	Create(ctx context.Context, p *Patient) error
}
