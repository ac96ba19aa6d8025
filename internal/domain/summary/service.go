package summary

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/domain/records"
	"github.com/medvault/medvault/internal/platform/ai"
)

// maxRecordsForSummary bounds how much history feeds one generation.
const maxRecordsForSummary = 500

// RecordSource is the slice of the records repository the summarizer needs.
type RecordSource interface {
	ListByPatient(ctx context.Context, patientID uuid.UUID, scope records.Scope, limit, offset int) ([]*records.MedicalRecord, int, error)
}

// NameSource resolves a patient's display name for the generator prompt.
type NameSource interface {
	DisplayName(ctx context.Context, patientID uuid.UUID) (string, error)
}

type Service struct {
	repo      Repository
	source    RecordSource
	names     NameSource
	generator ai.Generator
	logger    zerolog.Logger
	cooldown  time.Duration
	now       func() time.Time
}

func NewService(repo Repository, source RecordSource, names NameSource, generator ai.Generator, logger zerolog.Logger, cooldown time.Duration) *Service {
	return &Service{
		repo:      repo,
		source:    source,
		names:     names,
		generator: generator,
		logger:    logger,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) Get(ctx context.Context, patientID uuid.UUID) (*Summary, error) {
	return s.repo.Get(ctx, patientID)
}

// Generate builds a fresh summary unless the previous one is within the
// cooldown window. A cooldown refusal is returned as a result, not an error.
func (s *Service) Generate(ctx context.Context, patientID uuid.UUID) (*GenerateResult, error) {
	now := s.now()

	prev, err := s.repo.Get(ctx, patientID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if prev != nil {
		if elapsed := now.Sub(prev.CreatedAt); elapsed < s.cooldown {
			return &GenerateResult{
				Allowed:      false,
				RetryAfterMS: (s.cooldown - elapsed).Milliseconds(),
			}, nil
		}
	}

	recs, _, err := s.source.ListByPatient(ctx, patientID, records.FullScope(), maxRecordsForSummary, 0)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNoRecords
	}

	anomalies := DetectAnomalies(recs, now)
	sum := &Summary{
		PatientID:      patientID,
		Anomalies:      anomalies,
		EquityConcerns: equityConcerns(recs),
		Predictions:    predictions(recs, anomalies),
		CreatedAt:      now,
	}

	out, genErr := s.generate(ctx, patientID, recs, anomalies)
	if genErr != nil {
		// One log line per downgrade; generation failure is never a 500.
		s.logger.Warn().Err(genErr).Str("patient_id", patientID.String()).Msg("ai generation failed, using fallback summary")
		sum.ClinicianText = fallbackClinicianText(recs, anomalies)
		sum.PatientText = fallbackPatientText(recs, anomalies)
		sum.GeneratedBy = GeneratedByFallback
	} else {
		sum.ClinicianText = out.ClinicianSummary
		sum.PatientText = out.PatientSummary
		sum.GeneratedBy = GeneratedByAI
	}

	if err := s.repo.Upsert(ctx, sum); err != nil {
		return nil, err
	}
	return &GenerateResult{Allowed: true, Summary: sum}, nil
}

func (s *Service) generate(ctx context.Context, patientID uuid.UUID, recs []*records.MedicalRecord, anomalies []Anomaly) (*ai.Output, error) {
	name := ""
	if s.names != nil {
		if n, err := s.names.DisplayName(ctx, patientID); err == nil {
			name = n
		}
	}

	in := ai.Input{PatientName: name}
	for _, r := range recs {
		in.Records = append(in.Records, ai.RecordDigest{
			Category:    string(r.Category),
			Hospital:    r.Hospital,
			Description: records.Describe(r),
			RecordDate:  r.RecordDate,
		})
	}
	for _, a := range anomalies {
		in.Anomalies = append(in.Anomalies, a.Message)
	}
	return s.generator.Generate(ctx, in)
}

// FilterAnomalies drops anomalies whose category falls outside the scope,
// preserving order.
func FilterAnomalies(anomalies []Anomaly, scope records.Scope) []Anomaly {
	out := make([]Anomaly, 0, len(anomalies))
	for _, a := range anomalies {
		if scope.Contains(a.Category) {
			out = append(out, a)
		}
	}
	return out
}

// -- Rule-based analysis --

// Vital sign thresholds for anomaly flagging.
const (
	maxHeartRate = 100
	minHeartRate = 50
	maxSystolic  = 140
	maxDiastolic = 90
	maxTempC     = 38.0
	minSpO2      = 92
)

// DetectAnomalies runs the deterministic rules over a patient's records.
// Results are ordered by record recency, matching the input order.
func DetectAnomalies(recs []*records.MedicalRecord, now time.Time) []Anomaly {
	var out []Anomaly

	activeMeds := map[string]int{}
	var lastEncounter *time.Time

	for _, r := range recs {
		switch p := r.Payload.(type) {
		case *records.VitalsPayload:
			out = append(out, vitalsAnomalies(p)...)
		case *records.LabsPayload:
			if a, ok := labAnomaly(p); ok {
				out = append(out, a)
			}
		case *records.MedsPayload:
			if strings.EqualFold(p.Status, "active") {
				activeMeds[strings.ToLower(p.Name)]++
			}
		case *records.EncountersPayload:
			if r.RecordDate != nil && (lastEncounter == nil || r.RecordDate.After(*lastEncounter)) {
				lastEncounter = r.RecordDate
			}
		}
	}

	names := make([]string, 0, len(activeMeds))
	for name, n := range activeMeds {
		if n > 1 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, Anomaly{
			Category: records.CategoryMeds,
			Field:    "name",
			Value:    name,
			Message:  fmt.Sprintf("multiple active prescriptions for %s; check for duplicate therapy", name),
		})
	}

	if lastEncounter != nil && now.Sub(*lastEncounter) > 365*24*time.Hour {
		out = append(out, Anomaly{
			Category: records.CategoryEncounters,
			Field:    "record_date",
			Value:    lastEncounter.Format("2006-01-02"),
			Message:  "more than a year since the last clinical encounter",
		})
	}

	return out
}

func vitalsAnomalies(p *records.VitalsPayload) []Anomaly {
	var out []Anomaly
	if p.HeartRate != nil {
		if *p.HeartRate > maxHeartRate {
			out = append(out, vitalAnomaly("heart_rate", fmt.Sprintf("%d", *p.HeartRate), "elevated heart rate"))
		} else if *p.HeartRate < minHeartRate {
			out = append(out, vitalAnomaly("heart_rate", fmt.Sprintf("%d", *p.HeartRate), "low heart rate"))
		}
	}
	if p.BloodPressureSys != nil && *p.BloodPressureSys > maxSystolic {
		out = append(out, vitalAnomaly("blood_pressure_sys", fmt.Sprintf("%d", *p.BloodPressureSys), "elevated systolic blood pressure"))
	}
	if p.BloodPressureDia != nil && *p.BloodPressureDia > maxDiastolic {
		out = append(out, vitalAnomaly("blood_pressure_dia", fmt.Sprintf("%d", *p.BloodPressureDia), "elevated diastolic blood pressure"))
	}
	if p.Temperature != nil && *p.Temperature > maxTempC {
		out = append(out, vitalAnomaly("temperature", fmt.Sprintf("%.1f", *p.Temperature), "fever"))
	}
	if p.OxygenSaturation != nil && *p.OxygenSaturation < minSpO2 {
		out = append(out, vitalAnomaly("oxygen_saturation", fmt.Sprintf("%d", *p.OxygenSaturation), "low oxygen saturation"))
	}
	return out
}

func vitalAnomaly(field, value, message string) Anomaly {
	return Anomaly{Category: records.CategoryVitals, Field: field, Value: value, Message: message}
}

func labAnomaly(p *records.LabsPayload) (Anomaly, bool) {
	flag := strings.ToUpper(strings.TrimSpace(p.Flag))
	if flag == "" {
		return Anomaly{}, false
	}
	var msg string
	switch flag {
	case "H":
		msg = fmt.Sprintf("%s above reference range", p.TestName)
	case "L":
		msg = fmt.Sprintf("%s below reference range", p.TestName)
	default:
		msg = fmt.Sprintf("%s flagged abnormal", p.TestName)
	}
	value := p.ValueText
	if p.Value != nil {
		value = strings.TrimSpace(fmt.Sprintf("%g %s", *p.Value, p.Unit))
	}
	return Anomaly{Category: records.CategoryLabs, Field: p.TestName, Value: value, Message: msg}, true
}

func equityConcerns(recs []*records.MedicalRecord) []string {
	hospitals := map[string]bool{}
	for _, r := range recs {
		hospitals[r.Hospital] = true
	}
	var out []string
	if len(hospitals) > 2 {
		out = append(out, fmt.Sprintf("care is spread across %d facilities; records may be fragmented", len(hospitals)))
	}
	return out
}

func predictions(recs []*records.MedicalRecord, anomalies []Anomaly) []string {
	var out []string
	for _, a := range anomalies {
		if a.Category == records.CategoryVitals && strings.Contains(a.Message, "blood pressure") {
			out = append(out, "repeated elevated blood pressure readings suggest a hypertension follow-up")
			break
		}
	}
	for _, a := range anomalies {
		if a.Category == records.CategoryEncounters {
			out = append(out, "overdue for a routine visit")
			break
		}
	}
	return out
}

func fallbackClinicianText(recs []*records.MedicalRecord, anomalies []Anomaly) string {
	counts := map[records.Category]int{}
	for _, r := range recs {
		counts[r.Category]++
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Record overview: %d vitals, %d labs, %d medications, %d encounters.",
		counts[records.CategoryVitals], counts[records.CategoryLabs],
		counts[records.CategoryMeds], counts[records.CategoryEncounters])
	if len(anomalies) == 0 {
		b.WriteString(" No findings flagged by rule-based review.")
		return b.String()
	}
	fmt.Fprintf(&b, " Flagged findings (%d):", len(anomalies))
	for _, a := range anomalies {
		fmt.Fprintf(&b, " [%s] %s (%s=%s).", a.Category, a.Message, a.Field, a.Value)
	}
	return b.String()
}

func fallbackPatientText(recs []*records.MedicalRecord, anomalies []Anomaly) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You have %d records on file.", len(recs))
	if len(anomalies) == 0 {
		b.WriteString(" Nothing stood out in an automated review, but this is not medical advice.")
		return b.String()
	}
	fmt.Fprintf(&b, " An automated review noted %d item(s) worth discussing with your care team:", len(anomalies))
	for _, a := range anomalies {
		fmt.Fprintf(&b, " %s.", a.Message)
	}
	return b.String()
}
