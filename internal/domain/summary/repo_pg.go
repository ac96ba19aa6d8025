package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *repoPG) Get(ctx context.Context, patientID uuid.UUID) (*Summary, error) {
	var (
		s   Summary
		raw []byte
	)
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT patient_id, clinician_text, patient_text, anomalies, equity_concerns, predictions, generated_by, created_at
		FROM summary WHERE patient_id = $1`, patientID).
		Scan(&s.PatientID, &s.ClinicianText, &s.PatientText, &raw,
			&s.EquityConcerns, &s.Predictions, &s.GeneratedBy, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &s.Anomalies); err != nil {
		return nil, fmt.Errorf("decode anomalies: %w", err)
	}
	return &s, nil
}

func (r *repoPG) Upsert(ctx context.Context, s *Summary) error {
	raw, err := json.Marshal(s.Anomalies)
	if err != nil {
		return fmt.Errorf("encode anomalies: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO summary (patient_id, clinician_text, patient_text, anomalies, equity_concerns, predictions, generated_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (patient_id) DO UPDATE SET
			clinician_text = EXCLUDED.clinician_text,
			patient_text = EXCLUDED.patient_text,
			anomalies = EXCLUDED.anomalies,
			equity_concerns = EXCLUDED.equity_concerns,
			predictions = EXCLUDED.predictions,
			generated_by = EXCLUDED.generated_by,
			created_at = EXCLUDED.created_at`,
		s.PatientID, s.ClinicianText, s.PatientText, raw,
		s.EquityConcerns, s.Predictions, s.GeneratedBy, s.CreatedAt)
	return err
}
