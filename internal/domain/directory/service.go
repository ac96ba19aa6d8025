package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	orgs      OrganizationRepository
	employees EmployeeRepository
}

func NewService(orgs OrganizationRepository, employees EmployeeRepository) *Service {
	return &Service{orgs: orgs, employees: employees}
}

func (s *Service) ListOrganizations(ctx context.Context) ([]*Organization, error) {
	return s.orgs.ListActive(ctx)
}

// ResolveOrganization maps a slug to an active organization.
func (s *Service) ResolveOrganization(ctx context.Context, slug string) (*Organization, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, ErrOrganizationNotFound
	}
	org, err := s.orgs.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !org.Active {
		return nil, ErrOrganizationNotFound
	}
	return org, nil
}

// LookupEmployee finds a staff member by badge number within an organization.
func (s *Service) LookupEmployee(ctx context.Context, orgID uuid.UUID, employeeID string) (*Employee, error) {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return nil, ErrEmployeeNotFound
	}
	return s.employees.GetByOrgAndEmployeeID(ctx, orgID, employeeID)
}

func (s *Service) GetEmployee(ctx context.Context, id uuid.UUID) (*Employee, error) {
	return s.employees.GetByID(ctx, id)
}

// CreateOrganization registers a hospital. Used by seed tooling.
func (s *Service) CreateOrganization(ctx context.Context, o *Organization) error {
	if o.Slug == "" {
		return fmt.Errorf("slug is required")
	}
	if o.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.orgs.Create(ctx, o)
}

// CreateEmployee registers a staff member. Used by seed tooling.
func (s *Service) CreateEmployee(ctx context.Context, e *Employee) error {
	if e.OrganizationID == uuid.Nil {
		return fmt.Errorf("organization_id is required")
	}
	if e.EmployeeID == "" {
		return fmt.Errorf("employee_id is required")
	}
	if e.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.employees.Create(ctx, e)
}
