package screening

import (
	"encoding/json"
	"testing"
)

func TestDosageInterval_Hours(t *testing.T) {
	want := map[DosageInterval]float64{
		IntervalAny:       0,
		IntervalHourly:    1,
		IntervalDaily:     24,
		IntervalWeekly:    168,
		IntervalBiweekly:  336,
		IntervalMonthly:   720,
		IntervalQuarterly: 2190,
		IntervalYearly:    8760,
	}
	for iv, hours := range want {
		if iv.Hours() != hours {
			t.Errorf("%s.Hours() = %v, want %v", iv, iv.Hours(), hours)
		}
	}
	if len(Intervals()) != len(want) {
		t.Errorf("Intervals() has %d entries, want %d", len(Intervals()), len(want))
	}
}

func TestDosageInterval_Unknown(t *testing.T) {
	iv := DosageInterval(5)
	if iv.Known() {
		t.Error("5h should not be a named interval")
	}
	if iv.String() != "5h" {
		t.Errorf("expected '5h', got %q", iv.String())
	}
	if _, err := iv.MarshalText(); err == nil {
		t.Error("expected error marshaling unnamed interval")
	}
	if _, err := ParseInterval("fortnightly"); err == nil {
		t.Error("expected error parsing unknown interval")
	}
}

func TestDrugEntry_JSON(t *testing.T) {
	data := `{
		"drug": {"name": "Digoxine", "codes": ["C01AA05"]},
		"selected_code": "C01AA05",
		"frequency": "as_needed",
		"dosage": 0.25,
		"interval": "Daily"
	}`
	var e DrugEntry
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Frequency != FrequencyAsNeeded {
		t.Errorf("expected as-needed, got %s", e.Frequency)
	}
	if e.Interval != IntervalDaily {
		t.Errorf("expected daily, got %s", e.Interval)
	}
	if e.SelectedCode != "C01AA05" || e.Drug.Name != "Digoxine" {
		t.Errorf("unexpected entry %+v", e)
	}

	out, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var round map[string]any
	if err := json.Unmarshal(out, &round); err != nil {
		t.Fatalf("unmarshal round: %v", err)
	}
	if round["frequency"] != "as-needed" || round["interval"] != "daily" {
		t.Errorf("expected canonical names, got %s", out)
	}
}

func TestInput_JSON(t *testing.T) {
	var in Input
	err := json.Unmarshal([]byte(`{"age": 81, "gender": "FEMALE", "drugs": []}`), &in)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if in.Age != 81 || in.Gender != GenderFemale {
		t.Errorf("unexpected input %+v", in)
	}

	if err := json.Unmarshal([]byte(`{"gender": "other"}`), &in); err == nil {
		t.Error("expected error for unknown gender")
	}
}
