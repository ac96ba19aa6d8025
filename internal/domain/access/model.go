package access

import (
	"time"

	"github.com/google/uuid"

	"github.com/medvault/medvault/internal/domain/records"
	"github.com/medvault/medvault/internal/domain/summary"
)

// Access methods as recorded in the audit log.
const (
	MethodToken     = "token"
	MethodOTP       = "otp"
	MethodEmergency = "emergency"
	// MethodEmployeeID marks legacy entries from the retired direct
	// badge-number flow. Nothing writes it anymore; readers still see it.
	MethodEmployeeID = "employee_id"
)

// ScopeWarning is attached to partial-scope responses. The summary text is
// generated over the full record set, so a narrowed scope can still see it
// reference out-of-scope data; only structured anomalies are filtered.
const ScopeWarning = "summary text may reference data outside the authorized scope"

// AccessLogEntry is one audit record. Entries are immutable; the application
// never updates or deletes them.
type AccessLogEntry struct {
	ID               uuid.UUID     `db:"id" json:"id"`
	PatientID        uuid.UUID     `db:"patient_id" json:"patient_id"`
	TokenID          *uuid.UUID    `db:"token_id" json:"token_id,omitempty"`
	Method           string        `db:"method" json:"method"`
	OrganizationSlug string        `db:"organization_slug" json:"organization_slug"`
	EmployeeID       string        `db:"employee_id" json:"employee_id,omitempty"`
	EmployeeName     string        `db:"employee_name" json:"employee_name,omitempty"`
	ProviderName     string        `db:"provider_name" json:"provider_name,omitempty"`
	IPAddress        string        `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent        string        `db:"user_agent" json:"user_agent,omitempty"`
	Scope            records.Scope `db:"scope" json:"scope"`
	IsEmergency      bool          `db:"is_emergency" json:"is_emergency"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
}

// Requester is the audit metadata carried by every provider-facing request.
type Requester struct {
	OrganizationSlug string
	EmployeeID       string
	IPAddress        string
	UserAgent        string
}

// Grant is a successful access decision plus the data it exposes.
type Grant struct {
	PatientID     uuid.UUID                `json:"patient_id"`
	PatientName   string                   `json:"patient_name"`
	Scope         records.Scope            `json:"scope"`
	HasFullAccess bool                     `json:"has_full_access"`
	Warning       string                   `json:"warning,omitempty"`
	Records       []*records.MedicalRecord `json:"records"`
	Summary       *summary.Summary         `json:"summary,omitempty"`
	IsEmergency   bool                     `json:"is_emergency,omitempty"`
}

// OTPChallengeInfo is the phase-1 response of the OTP flow. Access is not
// granted yet; the code travels to the patient's email.
type OTPChallengeInfo struct {
	MaskedEmail string        `json:"masked_email"`
	Scope       records.Scope `json:"scope"`
}

// FilterRecords returns the records whose category is in scope, preserving
// relative order.
func FilterRecords(recs []*records.MedicalRecord, scope records.Scope) []*records.MedicalRecord {
	out := make([]*records.MedicalRecord, 0, len(recs))
	for _, r := range recs {
		if scope.Contains(r.Category) {
			out = append(out, r)
		}
	}
	return out
}
