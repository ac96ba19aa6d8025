package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medvault/medvault/internal/platform/db"
)

// Challenge purposes. Login challenges authenticate a patient; provider-access
// challenges gate the employee-OTP data access flow.
const (
	PurposeLogin          = "login"
	PurposeProviderAccess = "provider_access"
)

// ErrCodeInvalid covers every verification failure: unknown challenge, wrong
// code, expired, or already consumed. Callers surface a single generic message
// so the failure mode is not enumerable.
var ErrCodeInvalid = errors.New("invalid or expired verification code")

// Challenge is an outstanding one-time passcode. Only the SHA-256 hash of the
// code is stored.
type Challenge struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Email      string     `db:"email" json:"email"`
	CodeHash   string     `db:"code_hash" json:"-"`
	Purpose    string     `db:"purpose" json:"purpose"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	ConsumedAt *time.Time `db:"consumed_at" json:"consumed_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// ChallengeStore persists OTP challenges.
type ChallengeStore interface {
	Create(ctx context.Context, email, purpose, code string, ttl time.Duration) (*Challenge, error)
	// Consume validates the code against the newest outstanding challenge for
	// (email, purpose) and marks it consumed. Any failure is ErrCodeInvalid.
	Consume(ctx context.Context, email, purpose, code string, now time.Time) error
}

// GenerateCode returns a 6-digit numeric one-time passcode from crypto/rand.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// HashCode returns the hex-encoded SHA-256 digest of a passcode.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// MaskEmail obscures the local part of an address for display, keeping the
// first character: "jane@example.com" -> "j***@example.com".
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

// -- Postgres store --

type pgChallengeStore struct{ pool *pgxpool.Pool }

func NewPGChallengeStore(pool *pgxpool.Pool) ChallengeStore {
	return &pgChallengeStore{pool: pool}
}

func (s *pgChallengeStore) conn(ctx context.Context) db.Queryable {
	if q := db.ConnFromContext(ctx); q != nil {
		return q
	}
	return s.pool
}

func (s *pgChallengeStore) Create(ctx context.Context, email, purpose, code string, ttl time.Duration) (*Challenge, error) {
	ch := &Challenge{
		ID:        uuid.New(),
		Email:     email,
		CodeHash:  HashCode(code),
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(ttl),
	}
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO otp_challenge (id, email, code_hash, purpose, expires_at)
		VALUES ($1, $2, $3, $4, $5)`,
		ch.ID, ch.Email, ch.CodeHash, ch.Purpose, ch.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("create otp challenge: %w", err)
	}
	return ch, nil
}

func (s *pgChallengeStore) Consume(ctx context.Context, email, purpose, code string, now time.Time) error {
	var id uuid.UUID
	var codeHash string
	err := s.conn(ctx).QueryRow(ctx, `
		SELECT id, code_hash FROM otp_challenge
		WHERE email = $1 AND purpose = $2 AND consumed_at IS NULL AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1`, email, purpose, now).Scan(&id, &codeHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCodeInvalid
		}
		return fmt.Errorf("lookup otp challenge: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(codeHash), []byte(HashCode(code))) != 1 {
		return ErrCodeInvalid
	}

	tag, err := s.conn(ctx).Exec(ctx, `
		UPDATE otp_challenge SET consumed_at = $2
		WHERE id = $1 AND consumed_at IS NULL`, id, now)
	if err != nil {
		return fmt.Errorf("consume otp challenge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Raced with a concurrent verify; the code was already used.
		return ErrCodeInvalid
	}
	return nil
}
