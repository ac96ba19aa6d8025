package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrEmployeeNotFound     = errors.New("employee not found")
)

type OrganizationRepository interface {
	GetBySlug(ctx context.Context, slug string) (*Organization, error)
	ListActive(ctx context.Context) ([]*Organization, error)
	Create(ctx context.Context, o *Organization) error
}

// EmployeeRepository looks up staff. Lookups are always scoped to an
// organization; employee ids from one hospital mean nothing at another.
type EmployeeRepository interface {
	GetByOrgAndEmployeeID(ctx context.Context, orgID uuid.UUID, employeeID string) (*Employee, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Employee, error)
	Create(ctx context.Context, e *Employee) error
}
