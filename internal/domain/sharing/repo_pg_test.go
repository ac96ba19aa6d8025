package sharing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v3"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	return mock
}

func TestTokenRepoGetByValue(t *testing.T) {
	mock := newMockPool(t)
	defer mock.Close()
	repo := NewTokenRepoQueryable(mock)

	id, pid := uuid.New(), uuid.New()
	created := time.Now().Add(-time.Hour)
	expires := time.Now().Add(23 * time.Hour)

	mock.ExpectQuery(`SELECT id, patient_id, token, scope, expires_at, revoked_at, created_at FROM share_token WHERE token = \$1`).
		WithArgs("tok-value").
		WillReturnRows(pgxmock.NewRows([]string{"id", "patient_id", "token", "scope", "expires_at", "revoked_at", "created_at"}).
			AddRow(id, pid, "tok-value", []string{"labs", "meds"}, expires, nil, created))

	tok, err := repo.GetByValue(context.Background(), "tok-value")
	if err != nil {
		t.Fatalf("GetByValue: %v", err)
	}
	if tok.ID != id || tok.PatientID != pid {
		t.Errorf("wrong row scanned: %+v", tok)
	}
	if len(tok.Scope) != 2 || string(tok.Scope[0]) != "labs" {
		t.Errorf("scope = %v", tok.Scope)
	}
	if !tok.Valid(time.Now()) {
		t.Error("token should be valid")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestTokenRepoGetByValueNoRows(t *testing.T) {
	mock := newMockPool(t)
	defer mock.Close()
	repo := NewTokenRepoQueryable(mock)

	mock.ExpectQuery(`SELECT .+ FROM share_token WHERE token = \$1`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id", "patient_id", "token", "scope", "expires_at", "revoked_at", "created_at"}))

	_, err := repo.GetByValue(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestTokenRepoRevokeKeepsOriginalTimestamp(t *testing.T) {
	mock := newMockPool(t)
	defer mock.Close()
	repo := NewTokenRepoQueryable(mock)

	id, pid := uuid.New(), uuid.New()
	revoked := time.Now().Add(-10 * time.Minute)

	mock.ExpectQuery(`UPDATE share_token SET revoked_at = COALESCE\(revoked_at, NOW\(\)\)`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "patient_id", "token", "scope", "expires_at", "revoked_at", "created_at"}).
			AddRow(id, pid, "tok", []string{"vitals"}, time.Now().Add(time.Hour), &revoked, time.Now().Add(-time.Hour)))

	tok, err := repo.Revoke(context.Background(), id)
	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if tok.RevokedAt == nil || !tok.RevokedAt.Equal(revoked) {
		t.Errorf("revoked_at = %v, want %v", tok.RevokedAt, revoked)
	}
	if tok.Valid(time.Now()) {
		t.Error("revoked token must not be valid")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestTokenRepoDeleteMissingRow(t *testing.T) {
	mock := newMockPool(t)
	defer mock.Close()
	repo := NewTokenRepoQueryable(mock)

	id := uuid.New()
	mock.ExpectExec(`DELETE FROM share_token WHERE id = \$1`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.Delete(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
