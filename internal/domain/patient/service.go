package patient

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/platform/auth"
	"github.com/medvault/medvault/internal/platform/notification"
)

// LoginStart is returned after the first login step. Only the masked email
// goes back to the caller; the code travels by email.
type LoginStart struct {
	PatientID   uuid.UUID `json:"patient_id"`
	MaskedEmail string    `json:"masked_email"`
}

type Service struct {
	repo       Repository
	challenges auth.ChallengeStore
	mailer     *notification.Mailer
	logger     zerolog.Logger
	otpTTL     time.Duration
	now        func() time.Time
}

func NewService(repo Repository, challenges auth.ChallengeStore, mailer *notification.Mailer, logger zerolog.Logger, otpTTL time.Duration) *Service {
	return &Service{
		repo:       repo,
		challenges: challenges,
		mailer:     mailer,
		logger:     logger,
		otpTTL:     otpTTL,
		now:        time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// StartLogin matches the identity claim and emails a one-time code. The
// caller learns only a masked delivery address.
func (s *Service) StartLogin(ctx context.Context, name string, dob time.Time) (*LoginStart, error) {
	name = strings.TrimSpace(name)
	if name == "" || dob.IsZero() {
		return nil, fmt.Errorf("name and date_of_birth are required")
	}
	p, err := s.repo.GetByNameAndDOB(ctx, name, dob)
	if err != nil {
		return nil, err
	}

	code, err := auth.GenerateCode()
	if err != nil {
		return nil, fmt.Errorf("generate login code: %w", err)
	}
	if _, err := s.challenges.Create(ctx, p.Email, auth.PurposeLogin, code, s.otpTTL); err != nil {
		return nil, fmt.Errorf("store login challenge: %w", err)
	}

	_, err = s.mailer.SendFromTemplate(ctx, "login-code", map[string]string{
		"patient_name": p.Name,
		"code":         code,
		"ttl_minutes":  strconv.Itoa(int(s.otpTTL.Minutes())),
	}, p.Email)
	if err != nil {
		return nil, fmt.Errorf("send login code: %w", err)
	}

	s.logger.Info().Str("patient_id", p.ID.String()).Msg("login code sent")
	return &LoginStart{PatientID: p.ID, MaskedEmail: auth.MaskEmail(p.Email)}, nil
}

// VerifyLogin consumes the one-time code and returns the authenticated
// patient. Failures are uniform; the caller cannot tell a wrong code from an
// expired one.
func (s *Service) VerifyLogin(ctx context.Context, patientID uuid.UUID, code string) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if err := s.challenges.Consume(ctx, p.Email, auth.PurposeLogin, code, s.now()); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateSettings(ctx context.Context, id uuid.UUID, settings Settings) (*Patient, error) {
	return s.repo.UpdateSettings(ctx, id, settings)
}

// Register creates a patient. Used by seed tooling.
func (s *Service) Register(ctx context.Context, p *Patient) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !strings.Contains(p.Email, "@") {
		return fmt.Errorf("a valid email is required")
	}
	if p.DateOfBirth.IsZero() {
		return fmt.Errorf("date_of_birth is required")
	}
	return s.repo.Create(ctx, p)
}
