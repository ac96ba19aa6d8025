package records

import (
	"reflect"
	"testing"
)

func TestParseScope(t *testing.T) {
	s, err := ParseScope([]string{"labs", "vitals", "labs"})
	if err != nil {
		t.Fatalf("ParseScope: %v", err)
	}
	if !reflect.DeepEqual(s, Scope{CategoryLabs, CategoryVitals}) {
		t.Errorf("got %v, want labs then vitals with duplicate dropped", s)
	}

	if _, err := ParseScope([]string{"vitals", "genome"}); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestScopeHasFullAccess(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want bool
	}{
		{"all in order", []string{"vitals", "labs", "meds", "encounters"}, true},
		{"all shuffled with dupes", []string{"encounters", "meds", "meds", "labs", "vitals"}, true},
		{"missing one", []string{"vitals", "labs", "meds"}, false},
		{"empty", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := ScopeFromStrings(tc.in)
			if got := s.HasFullAccess(); got != tc.want {
				t.Errorf("HasFullAccess(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestScopeValidate(t *testing.T) {
	if err := (Scope{}).Validate(); err == nil {
		t.Error("empty scope should be invalid")
	}
	if err := (Scope{Category("bogus")}).Validate(); err == nil {
		t.Error("unknown category should be invalid")
	}
	if err := FullScope().Validate(); err != nil {
		t.Errorf("full scope should be valid: %v", err)
	}
}

func TestDecodePayloadRoundTrip(t *testing.T) {
	hr := 72
	raw, err := EncodePayload(&VitalsPayload{HeartRate: &hr, RecordedBy: "Dr. Osei"})
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}
	p, err := DecodePayload(CategoryVitals, raw)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	v, ok := p.(*VitalsPayload)
	if !ok {
		t.Fatalf("got %T, want *VitalsPayload", p)
	}
	if v.HeartRate == nil || *v.HeartRate != 72 {
		t.Errorf("heart rate not preserved: %+v", v)
	}
	if p.PayloadCategory() != CategoryVitals {
		t.Errorf("category = %s", p.PayloadCategory())
	}
}

func TestDecodePayloadUnknownCategory(t *testing.T) {
	if _, err := DecodePayload(Category("dna"), []byte(`{}`)); err == nil {
		t.Error("expected error for unknown category")
	}
}
