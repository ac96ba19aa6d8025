package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medvault/medvault/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Organization Repository ===========

type orgRepoPG struct{ pool *pgxpool.Pool }

func NewOrganizationRepoPG(pool *pgxpool.Pool) OrganizationRepository { return &orgRepoPG{pool: pool} }

func (r *orgRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const orgCols = `id, slug, name, active, created_at`

func scanOrg(row pgx.Row) (*Organization, error) {
	var o Organization
	err := row.Scan(&o.ID, &o.Slug, &o.Name, &o.Active, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrganizationNotFound
	}
	return &o, err
}

func (r *orgRepoPG) GetBySlug(ctx context.Context, slug string) (*Organization, error) {
	return scanOrg(r.conn(ctx).QueryRow(ctx,
		`SELECT `+orgCols+` FROM organization WHERE slug = $1`, slug))
}

func (r *orgRepoPG) ListActive(ctx context.Context) ([]*Organization, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+orgCols+` FROM organization WHERE active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Organization
	for rows.Next() {
		var o Organization
		if err := rows.Scan(&o.ID, &o.Slug, &o.Name, &o.Active, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

func (r *orgRepoPG) Create(ctx context.Context, o *Organization) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO organization (id, slug, name, active)
		VALUES ($1,$2,$3,$4)`,
		o.ID, o.Slug, o.Name, o.Active)
	return err
}

// =========== Employee Repository ===========

type employeeRepoPG struct{ pool *pgxpool.Pool }

func NewEmployeeRepoPG(pool *pgxpool.Pool) EmployeeRepository { return &employeeRepoPG{pool: pool} }

func (r *employeeRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const employeeCols = `id, organization_id, employee_id, name, active, is_emergency_staff, created_at`

func scanEmployee(row pgx.Row) (*Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.OrganizationID, &e.EmployeeID, &e.Name, &e.Active, &e.IsEmergencyStaff, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEmployeeNotFound
	}
	return &e, err
}

func (r *employeeRepoPG) GetByOrgAndEmployeeID(ctx context.Context, orgID uuid.UUID, employeeID string) (*Employee, error) {
	return scanEmployee(r.conn(ctx).QueryRow(ctx,
		`SELECT `+employeeCols+` FROM employee WHERE organization_id = $1 AND employee_id = $2`,
		orgID, employeeID))
}

func (r *employeeRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Employee, error) {
	return scanEmployee(r.conn(ctx).QueryRow(ctx,
		`SELECT `+employeeCols+` FROM employee WHERE id = $1`, id))
}

func (r *employeeRepoPG) Create(ctx context.Context, e *Employee) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO employee (id, organization_id, employee_id, name, active, is_emergency_staff)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		e.ID, e.OrganizationID, e.EmployeeID, e.Name, e.Active, e.IsEmergencyStaff)
	return err
}
