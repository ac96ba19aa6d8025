package access

import (
	"context"

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

type logRepoPG struct{ pool *pgxpool.Pool }

func NewLogRepoPG(pool *pgxpool.Pool) LogRepository { return &logRepoPG{pool: pool} }

func (r *logRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const logCols = `id, patient_id, token_id, method, organization_slug, employee_id, employee_name,
	provider_name, ip_address, user_agent, scope, is_emergency, created_at`

func (r *logRepoPG) Create(ctx context.Context, e *AccessLogEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO access_log (id, patient_id, token_id, method, organization_slug, employee_id, employee_name,
			provider_name, ip_address, user_agent, scope, is_emergency)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		e.ID, e.PatientID, e.TokenID, e.Method, e.OrganizationSlug, e.EmployeeID, e.EmployeeName,
		e.ProviderName, e.IPAddress, e.UserAgent, e.Scope.Strings(), e.IsEmergency)
	return err
}

func (r *logRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*AccessLogEntry, int, error) {
	q := r.conn(ctx)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM access_log WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+logCols+` FROM access_log
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*AccessLogEntry
	for rows.Next() {
		var (
			e     AccessLogEntry
			scope []string
		)
		if err := rows.Scan(&e.ID, &e.PatientID, &e.TokenID, &e.Method, &e.OrganizationSlug,
			&e.EmployeeID, &e.EmployeeName, &e.ProviderName, &e.IPAddress, &e.UserAgent,
			&scope, &e.IsEmergency, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		e.Scope = records.ScopeFromStrings(scope)
		out = append(out, &e)
	}
	return out, total, rows.Err()
}
