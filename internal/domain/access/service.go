package access

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/domain/directory"
	"github.com/medvault/medvault/internal/domain/patient"
	"github.com/medvault/medvault/internal/domain/records"
	"github.com/medvault/medvault/internal/domain/sharing"
	"github.com/medvault/medvault/internal/domain/summary"
	"github.com/medvault/medvault/internal/platform/auth"
	"github.com/medvault/medvault/internal/platform/notification"
)

// Deliberately generic denial messages; they never say which check failed in
// a way that would help enumeration.
var (
	ErrInvalidOrganization   = errors.New("invalid organization")
	ErrInvalidEmployee       = errors.New("invalid employee")
	ErrInvalidToken          = errors.New("invalid or expired token")
	ErrProviderNotAuthorized = errors.New("provider not authorized; the patient must add this provider first")
	ErrEmergencyNotEnabled   = errors.New("patient has not enabled emergency access")
)

// maxAccessRecords bounds a single provider response.
const maxAccessRecords = 1000

// Service is the authorization engine for the three provider access methods.
// Every decision is derived from reads against the store with one `now`
// snapshot per request; a denied request has no side effects, and a granted
// one always leaves an audit entry or fails outright.
type Service struct {
	dir        *directory.Service
	shares     *sharing.Service
	recs       *records.Service
	summaries  *summary.Service
	patients   patient.Repository
	logs       LogRepository
	challenges auth.ChallengeStore
	mailer     *notification.Mailer
	logger     zerolog.Logger
	otpTTL     time.Duration
	now        func() time.Time
}

func NewService(
	dir *directory.Service,
	shares *sharing.Service,
	recs *records.Service,
	summaries *summary.Service,
	patients patient.Repository,
	logs LogRepository,
	challenges auth.ChallengeStore,
	mailer *notification.Mailer,
	logger zerolog.Logger,
	otpTTL time.Duration,
) *Service {
	return &Service{
		dir:        dir,
		shares:     shares,
		recs:       recs,
		summaries:  summaries,
		patients:   patients,
		logs:       logs,
		challenges: challenges,
		mailer:     mailer,
		logger:     logger,
		otpTTL:     otpTTL,
		now:        time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// TokenAccess grants access on a bearer share token. The token alone is the
// capability: organization identity is required for the audit trail, but a
// failed employee lookup is logged and does not block access.
func (s *Service) TokenAccess(ctx context.Context, tokenValue string, req Requester) (*Grant, error) {
	now := s.now()

	// Organization and token have no data dependency; resolve them
	// concurrently.
	type orgResult struct {
		org *directory.Organization
		err error
	}
	orgCh := make(chan orgResult, 1)
	go func() {
		org, err := s.dir.ResolveOrganization(ctx, req.OrganizationSlug)
		orgCh <- orgResult{org, err}
	}()

	token, tokenErr := s.shares.ResolveValidToken(ctx, tokenValue, now)
	orgRes := <-orgCh

	if orgRes.err != nil {
		return nil, ErrInvalidOrganization
	}
	if tokenErr != nil {
		return nil, ErrInvalidToken
	}

	entry := &AccessLogEntry{
		PatientID:        token.PatientID,
		TokenID:          &token.ID,
		Method:           MethodToken,
		OrganizationSlug: orgRes.org.Slug,
		EmployeeID:       req.EmployeeID,
		IPAddress:        req.IPAddress,
		UserAgent:        req.UserAgent,
		Scope:            token.Scope,
	}
	if emp, err := s.dir.LookupEmployee(ctx, orgRes.org.ID, req.EmployeeID); err != nil {
		s.logger.Warn().Str("organization", orgRes.org.Slug).Str("employee_id", req.EmployeeID).
			Msg("token access with unresolvable employee")
	} else {
		entry.EmployeeName = emp.Name
	}

	return s.grant(ctx, token.PatientID, token.Scope, entry)
}

// RequestOTPAccess is phase 1 of the employee-OTP flow: it validates the
// provider's standing authorization and emails the patient a code. No access
// is granted and nothing is logged yet.
func (s *Service) RequestOTPAccess(ctx context.Context, patientID uuid.UUID, req Requester) (*OTPChallengeInfo, error) {
	p, authz, err := s.resolveOTPParticipants(ctx, patientID, req)
	if err != nil {
		return nil, err
	}

	code, err := auth.GenerateCode()
	if err != nil {
		return nil, fmt.Errorf("generate access code: %w", err)
	}
	if _, err := s.challenges.Create(ctx, p.Email, auth.PurposeProviderAccess, code, s.otpTTL); err != nil {
		return nil, fmt.Errorf("store access challenge: %w", err)
	}
	_, err = s.mailer.SendFromTemplate(ctx, "provider-access-code", map[string]string{
		"patient_name":  p.Name,
		"provider_name": authz.ProviderName,
		"code":          code,
		"ttl_minutes":   strconv.Itoa(int(s.otpTTL.Minutes())),
	}, p.Email)
	if err != nil {
		return nil, fmt.Errorf("send access code: %w", err)
	}

	return &OTPChallengeInfo{
		MaskedEmail: auth.MaskEmail(p.Email),
		Scope:       authz.Scope,
	}, nil
}

// VerifyOTPAccess is phase 2: it re-resolves the same participants, consumes
// the code, and grants the provider authorization's scope. A bad code leaves
// no audit entry.
func (s *Service) VerifyOTPAccess(ctx context.Context, patientID uuid.UUID, code string, req Requester) (*Grant, error) {
	p, authz, err := s.resolveOTPParticipants(ctx, patientID, req)
	if err != nil {
		return nil, err
	}
	if err := s.challenges.Consume(ctx, p.Email, auth.PurposeProviderAccess, code, s.now()); err != nil {
		return nil, err
	}

	entry := &AccessLogEntry{
		PatientID:        p.ID,
		Method:           MethodOTP,
		OrganizationSlug: req.OrganizationSlug,
		EmployeeID:       req.EmployeeID,
		ProviderName:     authz.ProviderName,
		IPAddress:        req.IPAddress,
		UserAgent:        req.UserAgent,
		Scope:            authz.Scope,
	}
	return s.grant(ctx, p.ID, authz.Scope, entry)
}

// resolveOTPParticipants performs the organization → employee → provider
// authorization chain shared by both OTP phases. Phase 2 must land on the
// same provider record phase 1 did, so the resolution is repeated, not
// cached.
func (s *Service) resolveOTPParticipants(ctx context.Context, patientID uuid.UUID, req Requester) (*patient.Patient, *sharing.ProviderAuthorization, error) {
	org, err := s.dir.ResolveOrganization(ctx, req.OrganizationSlug)
	if err != nil {
		return nil, nil, ErrInvalidOrganization
	}
	emp, err := s.dir.LookupEmployee(ctx, org.ID, req.EmployeeID)
	if err != nil || !emp.Active {
		return nil, nil, ErrInvalidEmployee
	}

	authz, err := s.shares.ResolveProviderByEmployee(ctx, patientID, emp.ID)
	if err != nil {
		return nil, nil, ErrProviderNotAuthorized
	}
	// A zero-scope authorization lists the provider as a contact but grants
	// nothing; both phases deny it.
	if len(authz.Scope) == 0 {
		return nil, nil, ErrProviderNotAuthorized
	}

	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, nil, err
	}
	return p, authz, nil
}

// EmergencyAccess is the break-glass path: no code, no token, full scope.
// It requires an active emergency-staff employee and the patient's standing
// opt-in.
func (s *Service) EmergencyAccess(ctx context.Context, patientID uuid.UUID, req Requester) (*Grant, error) {
	org, err := s.dir.ResolveOrganization(ctx, req.OrganizationSlug)
	if err != nil {
		return nil, ErrInvalidOrganization
	}
	emp, err := s.dir.LookupEmployee(ctx, org.ID, req.EmployeeID)
	if err != nil || !emp.Active || !emp.IsEmergencyStaff {
		return nil, ErrInvalidEmployee
	}
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if !p.AllowEmergencyAccess {
		return nil, ErrEmergencyNotEnabled
	}

	scope := records.FullScope()
	entry := &AccessLogEntry{
		PatientID:        p.ID,
		Method:           MethodEmergency,
		OrganizationSlug: org.Slug,
		EmployeeID:       emp.EmployeeID,
		EmployeeName:     emp.Name,
		IPAddress:        req.IPAddress,
		UserAgent:        req.UserAgent,
		Scope:            scope,
		IsEmergency:      true,
	}
	grant, err := s.grant(ctx, p.ID, scope, entry)
	if err != nil {
		return nil, err
	}
	grant.IsEmergency = true

	// The alert email is best effort; the access stands either way.
	if _, err := s.mailer.SendFromTemplate(ctx, "emergency-access-alert", map[string]string{
		"patient_name": p.Name,
		"organization": org.Name,
		"accessed_at":  s.now().UTC().Format(time.RFC3339),
	}, p.Email); err != nil {
		s.logger.Error().Err(err).Str("patient_id", p.ID.String()).Msg("emergency access alert email failed")
	}

	return grant, nil
}

// grant assembles the response data for an authorized access and writes the
// audit entry. A failed audit write fails the access; there is no silent
// unaudited path.
func (s *Service) grant(ctx context.Context, patientID uuid.UUID, scope records.Scope, entry *AccessLogEntry) (*Grant, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	recs, _, err := s.recs.ListScoped(ctx, patientID, scope, maxAccessRecords, 0)
	if err != nil {
		return nil, err
	}

	var sum *summary.Summary
	if stored, err := s.summaries.Get(ctx, patientID); err == nil {
		filtered := *stored
		filtered.Anomalies = summary.FilterAnomalies(stored.Anomalies, scope)
		sum = &filtered
	} else if !errors.Is(err, summary.ErrNotFound) {
		return nil, err
	}

	if err := s.logs.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("write access log: %w", err)
	}

	g := &Grant{
		PatientID:     p.ID,
		PatientName:   p.Name,
		Scope:         scope,
		HasFullAccess: scope.HasFullAccess(),
		Records:       recs,
		Summary:       sum,
	}
	if !g.HasFullAccess {
		g.Warning = ScopeWarning
	}
	return g, nil
}

// ListLogs returns a patient's audit trail, newest first.
func (s *Service) ListLogs(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*AccessLogEntry, int, error) {
	return s.logs.ListByPatient(ctx, patientID, limit, offset)
}
