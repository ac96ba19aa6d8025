package sharing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medvault/medvault/internal/domain/records"
)

type mockTokenRepo struct {
	tokens map[uuid.UUID]*ShareToken
}

func newMockTokenRepo() *mockTokenRepo {
	return &mockTokenRepo{tokens: map[uuid.UUID]*ShareToken{}}
}

func (m *mockTokenRepo) Create(ctx context.Context, t *ShareToken) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now()
	m.tokens[t.ID] = t
	return nil
}

func (m *mockTokenRepo) GetByID(ctx context.Context, id uuid.UUID) (*ShareToken, error) {
	if t, ok := m.tokens[id]; ok {
		return t, nil
	}
	return nil, ErrNotFound
}

func (m *mockTokenRepo) GetByValue(ctx context.Context, value string) (*ShareToken, error) {
	for _, t := range m.tokens {
		if t.Token == value {
			return t, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockTokenRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*ShareToken, error) {
	var out []*ShareToken
	for _, t := range m.tokens {
		if t.PatientID == patientID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTokenRepo) Revoke(ctx context.Context, id uuid.UUID) (*ShareToken, error) {
	t, ok := m.tokens[id]
	if !ok {
		return nil, ErrNotFound
	}
	if t.RevokedAt == nil {
		now := time.Now()
		t.RevokedAt = &now
	}
	return t, nil
}

func (m *mockTokenRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.tokens[id]; !ok {
		return ErrNotFound
	}
	delete(m.tokens, id)
	return nil
}

type mockProviderRepo struct {
	providers map[uuid.UUID]*ProviderAuthorization
}

func newMockProviderRepo() *mockProviderRepo {
	return &mockProviderRepo{providers: map[uuid.UUID]*ProviderAuthorization{}}
}

func (m *mockProviderRepo) Create(ctx context.Context, p *ProviderAuthorization) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.providers[p.ID] = p
	return nil
}

func (m *mockProviderRepo) GetByID(ctx context.Context, id uuid.UUID) (*ProviderAuthorization, error) {
	if p, ok := m.providers[id]; ok {
		return p, nil
	}
	return nil, ErrNotFound
}

func (m *mockProviderRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*ProviderAuthorization, error) {
	var out []*ProviderAuthorization
	for _, p := range m.providers {
		if p.PatientID == patientID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProviderRepo) GetByPatientAndEmployee(ctx context.Context, patientID, employeeRef uuid.UUID) (*ProviderAuthorization, error) {
	for _, p := range m.providers {
		if p.PatientID == patientID && p.EmployeeRef != nil && *p.EmployeeRef == employeeRef {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockProviderRepo) Update(ctx context.Context, p *ProviderAuthorization) error {
	if _, ok := m.providers[p.ID]; !ok {
		return ErrNotFound
	}
	m.providers[p.ID] = p
	return nil
}

func (m *mockProviderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.providers[id]; !ok {
		return ErrNotFound
	}
	delete(m.providers, id)
	return nil
}

func newTestService() (*Service, *mockTokenRepo, *mockProviderRepo) {
	tokens := newMockTokenRepo()
	providers := newMockProviderRepo()
	return NewService(tokens, providers, 24*time.Hour, 720*time.Hour), tokens, providers
}

func TestCreateToken(t *testing.T) {
	svc, _, _ := newTestService()
	pid := uuid.New()
	ctx := context.Background()

	tok, err := svc.CreateToken(ctx, pid, records.Scope{records.CategoryLabs, records.CategoryLabs, records.CategoryVitals}, 0)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	if len(tok.Token) < 40 {
		t.Errorf("token value too short: %q", tok.Token)
	}
	if len(tok.Scope) != 2 {
		t.Errorf("scope not deduped: %v", tok.Scope)
	}
	until := time.Until(tok.ExpiresAt)
	if until < 23*time.Hour || until > 25*time.Hour {
		t.Errorf("default ttl not applied, expires in %s", until)
	}

	tok2, err := svc.CreateToken(ctx, pid, records.FullScope(), 24*time.Hour)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	if tok2.Token == tok.Token {
		t.Error("token values must be unique")
	}
}

func TestCreateTokenValidation(t *testing.T) {
	svc, _, _ := newTestService()
	pid := uuid.New()
	ctx := context.Background()

	if _, err := svc.CreateToken(ctx, pid, records.Scope{}, 0); err == nil {
		t.Error("empty scope should be rejected")
	}
	if _, err := svc.CreateToken(ctx, pid, records.FullScope(), 10000*time.Hour); err == nil {
		t.Error("ttl above ceiling should be rejected")
	}
}

func TestRevokeTokenIdempotent(t *testing.T) {
	svc, _, _ := newTestService()
	pid := uuid.New()
	ctx := context.Background()

	tok, err := svc.CreateToken(ctx, pid, records.FullScope(), 0)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	first, err := svc.RevokeToken(ctx, pid, tok.ID)
	if err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	if first.RevokedAt == nil {
		t.Fatal("revoked_at not set")
	}

	second, err := svc.RevokeToken(ctx, pid, tok.ID)
	if err != nil {
		t.Fatalf("second revoke should succeed: %v", err)
	}
	if !second.RevokedAt.Equal(*first.RevokedAt) {
		t.Error("second revoke must not move the revocation time")
	}
}

func TestTokenOwnershipMismatchIsNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	owner, intruder := uuid.New(), uuid.New()
	ctx := context.Background()

	tok, err := svc.CreateToken(ctx, owner, records.FullScope(), 0)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	if _, err := svc.RevokeToken(ctx, intruder, tok.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("revoke by non-owner: got %v, want ErrNotFound", err)
	}
	if err := svc.DeleteToken(ctx, intruder, tok.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete by non-owner: got %v, want ErrNotFound", err)
	}
}

func TestResolveValidToken(t *testing.T) {
	svc, repo, _ := newTestService()
	pid := uuid.New()
	ctx := context.Background()
	now := time.Now()

	tok, err := svc.CreateToken(ctx, pid, records.FullScope(), time.Hour)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	got, err := svc.ResolveValidToken(ctx, tok.Token, now)
	if err != nil {
		t.Fatalf("ResolveValidToken: %v", err)
	}
	if got.ID != tok.ID {
		t.Errorf("resolved %s, want %s", got.ID, tok.ID)
	}

	if _, err := svc.ResolveValidToken(ctx, "no-such-token", now); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("unknown value: got %v, want ErrInvalidToken", err)
	}
	if _, err := svc.ResolveValidToken(ctx, tok.Token, now.Add(2*time.Hour)); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired: got %v, want ErrInvalidToken", err)
	}

	if _, err := repo.Revoke(ctx, tok.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := svc.ResolveValidToken(ctx, tok.Token, now); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("revoked: got %v, want ErrInvalidToken", err)
	}
}

func TestProviderLifecycle(t *testing.T) {
	svc, _, _ := newTestService()
	pid := uuid.New()
	emp := uuid.New()
	ctx := context.Background()

	p := &ProviderAuthorization{PatientID: pid, ProviderName: "Dr. Chen", EmployeeRef: &emp}
	if err := svc.CreateProvider(ctx, p); err != nil {
		t.Fatalf("CreateProvider: %v", err)
	}
	if len(p.Scope) != 0 {
		t.Errorf("new provider should default to empty scope, got %v", p.Scope)
	}

	got, err := svc.ResolveProviderByEmployee(ctx, pid, emp)
	if err != nil {
		t.Fatalf("ResolveProviderByEmployee: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("resolved %s, want %s", got.ID, p.ID)
	}

	upd, err := svc.UpdateProvider(ctx, pid, p.ID, &ProviderAuthorization{Scope: records.Scope{records.CategoryMeds}})
	if err != nil {
		t.Fatalf("UpdateProvider: %v", err)
	}
	if len(upd.Scope) != 1 || upd.Scope[0] != records.CategoryMeds {
		t.Errorf("scope not updated: %v", upd.Scope)
	}
	if upd.ProviderName != "Dr. Chen" {
		t.Errorf("name should be unchanged, got %q", upd.ProviderName)
	}

	if _, err := svc.UpdateProvider(ctx, uuid.New(), p.ID, &ProviderAuthorization{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("update by non-owner: got %v, want ErrNotFound", err)
	}

	if err := svc.DeleteProvider(ctx, pid, p.ID); err != nil {
		t.Fatalf("DeleteProvider: %v", err)
	}
	if _, err := svc.ResolveProviderByEmployee(ctx, pid, emp); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete: got %v, want ErrNotFound", err)
	}
}

func TestCreateProviderValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if err := svc.CreateProvider(ctx, &ProviderAuthorization{ProviderName: "Dr. Chen"}); err == nil {
		t.Error("missing patient_id should be rejected")
	}
	if err := svc.CreateProvider(ctx, &ProviderAuthorization{PatientID: uuid.New()}); err == nil {
		t.Error("missing provider_name should be rejected")
	}
	if err := svc.CreateProvider(ctx, &ProviderAuthorization{
		PatientID: uuid.New(), ProviderName: "Dr. Chen",
		Scope: records.Scope{records.Category("imaging")},
	}); err == nil {
		t.Error("unknown scope category should be rejected")
	}
}
