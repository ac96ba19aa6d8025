package sharing

import (
	"time"

	"github.com/google/uuid"

	"github.com/medvault/medvault/internal/domain/records"
)

// ShareToken is a revocable bearer grant a patient hands to a provider. The
// token value is an opaque random string; scope limits which record
// categories it exposes.
type ShareToken struct {
	ID        uuid.UUID     `db:"id" json:"id"`
	PatientID uuid.UUID     `db:"patient_id" json:"patient_id"`
	Token     string        `db:"token" json:"token"`
	Scope     records.Scope `db:"scope" json:"scope"`
	ExpiresAt time.Time     `db:"expires_at" json:"expires_at"`
	RevokedAt *time.Time    `db:"revoked_at" json:"revoked_at,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// Valid reports whether the token grants access at the given instant.
// Revocation wins over expiry.
func (t *ShareToken) Valid(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// ProviderAuthorization is a standing grant to a named provider, used by the
// OTP access flow. EmployeeRef links the grant to a directory employee when
// the patient picked one; Organization and Email are free-text context.
type ProviderAuthorization struct {
	ID           uuid.UUID     `db:"id" json:"id"`
	PatientID    uuid.UUID     `db:"patient_id" json:"patient_id"`
	ProviderName string        `db:"provider_name" json:"provider_name"`
	Organization *string       `db:"organization" json:"organization,omitempty"`
	Email        *string       `db:"email" json:"email,omitempty"`
	EmployeeRef  *uuid.UUID    `db:"employee_ref" json:"employee_ref,omitempty"`
	Scope        records.Scope `db:"scope" json:"scope"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}
