package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient owns their record vault. Email is the OTP delivery address and is
// never returned unmasked to unauthenticated callers.
type Patient struct {
	ID                   uuid.UUID `db:"id" json:"id"`
	Name                 string    `db:"name" json:"name"`
	Email                string    `db:"email" json:"-"`
	DateOfBirth          time.Time `db:"date_of_birth" json:"date_of_birth"`
	ExternalAuthID       *string   `db:"external_auth_id" json:"-"`
	AllowEmergencyAccess bool      `db:"allow_emergency_access" json:"allow_emergency_access"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// Settings is the patient-editable slice of the profile.
type Settings struct {
	AllowEmergencyAccess bool `json:"allow_emergency_access"`
}
