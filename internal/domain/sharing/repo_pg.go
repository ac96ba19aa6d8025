package sharing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medvault/medvault/internal/domain/records"
	"github.com/medvault/medvault/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Share Token Repository ===========

type tokenRepoPG struct {
	pool *pgxpool.Pool
	q    queryable
}

func NewTokenRepoPG(pool *pgxpool.Pool) TokenRepository { return &tokenRepoPG{pool: pool} }

// NewTokenRepoQueryable builds the repo over a raw queryable. Tests use it
// with a mock pool.
func NewTokenRepoQueryable(q queryable) TokenRepository { return &tokenRepoPG{q: q} }

func (r *tokenRepoPG) conn(ctx context.Context) queryable {
	if r.q != nil {
		return r.q
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const tokenCols = `id, patient_id, token, scope, expires_at, revoked_at, created_at`

func scanToken(row pgx.Row) (*ShareToken, error) {
	var (
		t     ShareToken
		scope []string
	)
	err := row.Scan(&t.ID, &t.PatientID, &t.Token, &scope, &t.ExpiresAt, &t.RevokedAt, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Scope = records.ScopeFromStrings(scope)
	return &t, nil
}

func (r *tokenRepoPG) Create(ctx context.Context, t *ShareToken) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO share_token (id, patient_id, token, scope, expires_at)
		VALUES ($1,$2,$3,$4,$5)`,
		t.ID, t.PatientID, t.Token, t.Scope.Strings(), t.ExpiresAt)
	return err
}

func (r *tokenRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ShareToken, error) {
	return scanToken(r.conn(ctx).QueryRow(ctx,
		`SELECT `+tokenCols+` FROM share_token WHERE id = $1`, id))
}

func (r *tokenRepoPG) GetByValue(ctx context.Context, value string) (*ShareToken, error) {
	return scanToken(r.conn(ctx).QueryRow(ctx,
		`SELECT `+tokenCols+` FROM share_token WHERE token = $1`, value))
}

func (r *tokenRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*ShareToken, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+tokenCols+` FROM share_token WHERE patient_id = $1 ORDER BY created_at DESC`,
		patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ShareToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *tokenRepoPG) Revoke(ctx context.Context, id uuid.UUID) (*ShareToken, error) {
	// COALESCE keeps the original revocation time on repeat calls.
	return scanToken(r.conn(ctx).QueryRow(ctx, `
		UPDATE share_token SET revoked_at = COALESCE(revoked_at, NOW())
		WHERE id = $1
		RETURNING `+tokenCols, id))
}

func (r *tokenRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM share_token WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// =========== Provider Authorization Repository ===========

type providerRepoPG struct{ pool *pgxpool.Pool }

func NewProviderRepoPG(pool *pgxpool.Pool) ProviderRepository { return &providerRepoPG{pool: pool} }

func (r *providerRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const providerCols = `id, patient_id, provider_name, organization, email, employee_ref, scope, created_at, updated_at`

func scanProvider(row pgx.Row) (*ProviderAuthorization, error) {
	var (
		p     ProviderAuthorization
		scope []string
	)
	err := row.Scan(&p.ID, &p.PatientID, &p.ProviderName, &p.Organization, &p.Email,
		&p.EmployeeRef, &scope, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Scope = records.ScopeFromStrings(scope)
	return &p, nil
}

func (r *providerRepoPG) Create(ctx context.Context, p *ProviderAuthorization) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO provider_authorization (id, patient_id, provider_name, organization, email, employee_ref, scope)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.PatientID, p.ProviderName, p.Organization, p.Email, p.EmployeeRef, p.Scope.Strings())
	return err
}

func (r *providerRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ProviderAuthorization, error) {
	return scanProvider(r.conn(ctx).QueryRow(ctx,
		`SELECT `+providerCols+` FROM provider_authorization WHERE id = $1`, id))
}

func (r *providerRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*ProviderAuthorization, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+providerCols+` FROM provider_authorization WHERE patient_id = $1 ORDER BY created_at DESC`,
		patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ProviderAuthorization
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *providerRepoPG) GetByPatientAndEmployee(ctx context.Context, patientID, employeeRef uuid.UUID) (*ProviderAuthorization, error) {
	return scanProvider(r.conn(ctx).QueryRow(ctx, `
		SELECT `+providerCols+` FROM provider_authorization
		WHERE patient_id = $1 AND employee_ref = $2
		ORDER BY created_at DESC LIMIT 1`,
		patientID, employeeRef))
}

func (r *providerRepoPG) Update(ctx context.Context, p *ProviderAuthorization) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE provider_authorization
		SET provider_name=$2, organization=$3, email=$4, employee_ref=$5, scope=$6, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.ProviderName, p.Organization, p.Email, p.EmployeeRef, p.Scope.Strings())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *providerRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM provider_authorization WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
