package records

import (
	"context"

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

type repoPG struct {
	pool *pgxpool.Pool
	q    queryable
}

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

// NewRepoQueryable builds the repo over a raw queryable. Tests use it with a
// mock pool.
func NewRepoQueryable(q queryable) Repository { return &repoPG{q: q} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if r.q != nil {
		return r.q
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const recordCols = `id, patient_id, hospital, category, payload, record_date, created_at`

func scanRecord(row pgx.Row) (*MedicalRecord, error) {
	var (
		rec MedicalRecord
		raw []byte
	)
	err := row.Scan(&rec.ID, &rec.PatientID, &rec.Hospital, &rec.Category, &raw, &rec.RecordDate, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.Payload, err = DecodePayload(rec.Category, raw)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, scope Scope, limit, offset int) ([]*MedicalRecord, int, error) {
	q := r.conn(ctx)
	cats := scope.Normalize().Strings()

	var total int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM medical_record WHERE patient_id = $1 AND category = ANY($2)`,
		patientID, cats).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+recordCols+` FROM medical_record
		WHERE patient_id = $1 AND category = ANY($2)
		ORDER BY record_date DESC NULLS LAST, created_at DESC
		LIMIT $3 OFFSET $4`,
		patientID, cats, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]*MedicalRecord, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, rec *MedicalRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	raw, err := EncodePayload(rec.Payload)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO medical_record (id, patient_id, hospital, category, payload, record_date)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		rec.ID, rec.PatientID, rec.Hospital, rec.Category, raw, rec.RecordDate)
	return err
}
