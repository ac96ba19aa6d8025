package directory

import (
	"time"

	"github.com/google/uuid"
)

// Organization is a hospital or clinic whose staff may request access to
// patient records.
type Organization struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Slug      string    `db:"slug" json:"slug"`
	Name      string    `db:"name" json:"name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Employee is a staff member of an organization. EmployeeID is the badge
// number the organization issued; it is unique within the organization,
// not globally.
type Employee struct {
	ID               uuid.UUID `db:"id" json:"id"`
	OrganizationID   uuid.UUID `db:"organization_id" json:"organization_id"`
	EmployeeID       string    `db:"employee_id" json:"employee_id"`
	Name             string    `db:"name" json:"name"`
	Active           bool      `db:"active" json:"active"`
	IsEmergencyStaff bool      `db:"is_emergency_staff" json:"is_emergency_staff"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
