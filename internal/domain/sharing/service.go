package sharing

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medvault/medvault/internal/domain/records"
)

const tokenBytes = 32

type Service struct {
	tokens     TokenRepository
	providers  ProviderRepository
	defaultTTL time.Duration
	maxTTL     time.Duration
}

func NewService(tokens TokenRepository, providers ProviderRepository, defaultTTL, maxTTL time.Duration) *Service {
	return &Service{tokens: tokens, providers: providers, defaultTTL: defaultTTL, maxTTL: maxTTL}
}

func newTokenValue() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// -- Share tokens --

// CreateToken mints a scoped bearer token. A zero ttl takes the configured
// default; anything beyond the ceiling is rejected.
func (s *Service) CreateToken(ctx context.Context, patientID uuid.UUID, scope records.Scope, ttl time.Duration) (*ShareToken, error) {
	scope = scope.Normalize()
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	if ttl < 0 {
		return nil, fmt.Errorf("ttl must be positive")
	}
	if ttl > s.maxTTL {
		return nil, fmt.Errorf("ttl exceeds maximum of %d hours", int(s.maxTTL.Hours()))
	}

	value, err := newTokenValue()
	if err != nil {
		return nil, err
	}
	t := &ShareToken{
		PatientID: patientID,
		Token:     value,
		Scope:     scope,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := s.tokens.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) ListTokens(ctx context.Context, patientID uuid.UUID) ([]*ShareToken, error) {
	return s.tokens.ListByPatient(ctx, patientID)
}

// RevokeToken marks a token revoked. Revoking an already revoked token is a
// no-op success.
func (s *Service) RevokeToken(ctx context.Context, patientID, tokenID uuid.UUID) (*ShareToken, error) {
	if _, err := s.ownedToken(ctx, patientID, tokenID); err != nil {
		return nil, err
	}
	return s.tokens.Revoke(ctx, tokenID)
}

func (s *Service) DeleteToken(ctx context.Context, patientID, tokenID uuid.UUID) error {
	if _, err := s.ownedToken(ctx, patientID, tokenID); err != nil {
		return err
	}
	return s.tokens.Delete(ctx, tokenID)
}

func (s *Service) ownedToken(ctx context.Context, patientID, tokenID uuid.UUID) (*ShareToken, error) {
	t, err := s.tokens.GetByID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if t.PatientID != patientID {
		return nil, ErrNotFound
	}
	return t, nil
}

// ResolveValidToken maps a presented token value to its grant. Unknown,
// revoked, and expired all come back as ErrInvalidToken.
func (s *Service) ResolveValidToken(ctx context.Context, value string, now time.Time) (*ShareToken, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ErrInvalidToken
	}
	t, err := s.tokens.GetByValue(ctx, value)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !t.Valid(now) {
		return nil, ErrInvalidToken
	}
	return t, nil
}

// -- Provider authorizations --

// CreateProvider records a standing grant. Scope may be empty at creation;
// an empty scope authorizes nothing until the patient widens it.
func (s *Service) CreateProvider(ctx context.Context, p *ProviderAuthorization) error {
	if p.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if strings.TrimSpace(p.ProviderName) == "" {
		return fmt.Errorf("provider_name is required")
	}
	p.Scope = p.Scope.Normalize()
	for _, c := range p.Scope {
		if _, err := records.ParseCategory(string(c)); err != nil {
			return err
		}
	}
	return s.providers.Create(ctx, p)
}

func (s *Service) ListProviders(ctx context.Context, patientID uuid.UUID) ([]*ProviderAuthorization, error) {
	return s.providers.ListByPatient(ctx, patientID)
}

// UpdateProvider replaces the mutable fields of an authorization.
func (s *Service) UpdateProvider(ctx context.Context, patientID, providerID uuid.UUID, upd *ProviderAuthorization) (*ProviderAuthorization, error) {
	existing, err := s.ownedProvider(ctx, patientID, providerID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(upd.ProviderName) != "" {
		existing.ProviderName = upd.ProviderName
	}
	if upd.Organization != nil {
		existing.Organization = upd.Organization
	}
	if upd.Email != nil {
		existing.Email = upd.Email
	}
	if upd.EmployeeRef != nil {
		existing.EmployeeRef = upd.EmployeeRef
	}
	if upd.Scope != nil {
		scope := upd.Scope.Normalize()
		for _, c := range scope {
			if _, err := records.ParseCategory(string(c)); err != nil {
				return nil, err
			}
		}
		existing.Scope = scope
	}
	if err := s.providers.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *Service) DeleteProvider(ctx context.Context, patientID, providerID uuid.UUID) error {
	if _, err := s.ownedProvider(ctx, patientID, providerID); err != nil {
		return err
	}
	return s.providers.Delete(ctx, providerID)
}

func (s *Service) ownedProvider(ctx context.Context, patientID, providerID uuid.UUID) (*ProviderAuthorization, error) {
	p, err := s.providers.GetByID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if p.PatientID != patientID {
		return nil, ErrNotFound
	}
	return p, nil
}

// ResolveProviderByEmployee finds the patient's standing grant for a
// directory employee. Used by the OTP access flow.
func (s *Service) ResolveProviderByEmployee(ctx context.Context, patientID, employeeRef uuid.UUID) (*ProviderAuthorization, error) {
	return s.providers.GetByPatientAndEmployee(ctx, patientID, employeeRef)
}
