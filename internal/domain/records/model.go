package records

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Category tags a medical record with the kind of data it holds. Access
// scopes are sets of categories.
type Category string

const (
	CategoryVitals     Category = "vitals"
	CategoryLabs       Category = "labs"
	CategoryMeds       Category = "meds"
	CategoryEncounters Category = "encounters"
)

// AllCategories lists every category in canonical order.
var AllCategories = []Category{CategoryVitals, CategoryLabs, CategoryMeds, CategoryEncounters}

// ParseCategory validates a category string.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	switch c {
	case CategoryVitals, CategoryLabs, CategoryMeds, CategoryEncounters:
		return c, nil
	}
	return "", fmt.Errorf("unknown record category %q", s)
}

// MedicalRecord is one record pulled from a hospital source. Records are
// imported, never edited through the API.
type MedicalRecord struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	Hospital   string     `db:"hospital" json:"hospital"`
	Category   Category   `db:"category" json:"category"`
	Payload    Payload    `db:"payload" json:"payload"`
	RecordDate *time.Time `db:"record_date" json:"record_date,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Payload is the category-specific body of a record. It is a tagged union:
// the record's Category selects the concrete type, decoded at the storage
// boundary so the rest of the system never handles raw JSON blobs.
type Payload interface {
	PayloadCategory() Category
}

// VitalsPayload holds a point-in-time vital sign measurement set.
type VitalsPayload struct {
	HeartRate        *int     `json:"heart_rate,omitempty"`
	BloodPressureSys *int     `json:"blood_pressure_sys,omitempty"`
	BloodPressureDia *int     `json:"blood_pressure_dia,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	RespiratoryRate  *int     `json:"respiratory_rate,omitempty"`
	OxygenSaturation *int     `json:"oxygen_saturation,omitempty"`
	RecordedBy       string   `json:"recorded_by,omitempty"`
}

func (VitalsPayload) PayloadCategory() Category { return CategoryVitals }

// LabsPayload holds one lab result.
type LabsPayload struct {
	TestName       string   `json:"test_name"`
	Value          *float64 `json:"value,omitempty"`
	ValueText      string   `json:"value_text,omitempty"`
	Unit           string   `json:"unit,omitempty"`
	ReferenceRange string   `json:"reference_range,omitempty"`
	Flag           string   `json:"flag,omitempty"` // "H", "L", "abnormal", or empty
}

func (LabsPayload) PayloadCategory() Category { return CategoryLabs }

// MedsPayload holds one medication entry.
type MedsPayload struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage,omitempty"`
	Frequency    string `json:"frequency,omitempty"`
	PrescribedBy string `json:"prescribed_by,omitempty"`
	Status       string `json:"status,omitempty"` // "active", "completed", "stopped"
}

func (MedsPayload) PayloadCategory() Category { return CategoryMeds }

// EncountersPayload holds one clinical encounter.
type EncountersPayload struct {
	Type     string `json:"type"`
	Provider string `json:"provider,omitempty"`
	Location string `json:"location,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

func (EncountersPayload) PayloadCategory() Category { return CategoryEncounters }

// DecodePayload unmarshals raw payload JSON into the typed shape selected by
// the category.
func DecodePayload(category Category, data []byte) (Payload, error) {
	var p Payload
	switch category {
	case CategoryVitals:
		p = &VitalsPayload{}
	case CategoryLabs:
		p = &LabsPayload{}
	case CategoryMeds:
		p = &MedsPayload{}
	case CategoryEncounters:
		p = &EncountersPayload{}
	default:
		return nil, fmt.Errorf("unknown record category %q", category)
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", category, err)
	}
	return p, nil
}

// EncodePayload marshals a typed payload for storage.
func EncodePayload(p Payload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", p.PayloadCategory(), err)
	}
	return data, nil
}

// Describe renders a one-line human summary of the payload, used for summary
// digests.
func Describe(r *MedicalRecord) string {
	switch p := r.Payload.(type) {
	case *VitalsPayload:
		return fmt.Sprintf("vital signs recorded at %s", r.Hospital)
	case *LabsPayload:
		if p.Flag != "" {
			return fmt.Sprintf("lab %s flagged %s", p.TestName, p.Flag)
		}
		return fmt.Sprintf("lab %s", p.TestName)
	case *MedsPayload:
		return fmt.Sprintf("medication %s %s", p.Name, p.Status)
	case *EncountersPayload:
		return fmt.Sprintf("%s encounter at %s", p.Type, r.Hospital)
	}
	return string(r.Category)
}
