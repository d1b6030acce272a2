package screening

import (
	"fmt"
	"strings"
)

// Gender of the screened patient.
type Gender int

const (
	GenderMale Gender = iota
	GenderFemale
)

var genderNames = map[Gender]string{
	GenderMale:   "male",
	GenderFemale: "female",
}

func (g Gender) String() string {
	if name, ok := genderNames[g]; ok {
		return name
	}
	return fmt.Sprintf("gender(%d)", int(g))
}

func (g Gender) MarshalText() ([]byte, error) {
	name, ok := genderNames[g]
	if !ok {
		return nil, fmt.Errorf("unknown gender %d", int(g))
	}
	return []byte(name), nil
}

func (g *Gender) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for v, name := range genderNames {
		if name == s {
			*g = v
			return nil
		}
	}
	return fmt.Errorf("unknown gender %q", string(text))
}

// Frequency classifies how a drug is taken. It is carried for display and is
// not consulted when a criterion leaf is matched.
type Frequency int

const (
	FrequencyAny Frequency = iota
	FrequencyChronic
	FrequencyAcute
	FrequencyAsNeeded
)

var frequencyNames = map[Frequency]string{
	FrequencyAny:      "any",
	FrequencyChronic:  "chronic",
	FrequencyAcute:    "acute",
	FrequencyAsNeeded: "as-needed",
}

func (f Frequency) String() string {
	if name, ok := frequencyNames[f]; ok {
		return name
	}
	return fmt.Sprintf("frequency(%d)", int(f))
}

func (f Frequency) MarshalText() ([]byte, error) {
	name, ok := frequencyNames[f]
	if !ok {
		return nil, fmt.Errorf("unknown frequency %d", int(f))
	}
	return []byte(name), nil
}

func (f *Frequency) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	s = strings.ReplaceAll(s, "_", "-")
	for v, name := range frequencyNames {
		if name == s {
			*f = v
			return nil
		}
	}
	return fmt.Errorf("unknown frequency %q", string(text))
}

// DosageInterval is the period a dose is given over, expressed in hours.
// IntervalAny (0) means the timing of the dose is not constrained.
type DosageInterval int

const (
	IntervalAny       DosageInterval = 0
	IntervalHourly    DosageInterval = 1
	IntervalDaily     DosageInterval = 24
	IntervalWeekly    DosageInterval = 7 * 24
	IntervalBiweekly  DosageInterval = 2 * 7 * 24
	IntervalMonthly   DosageInterval = 30 * 24
	IntervalQuarterly DosageInterval = 365 * 24 / 4
	IntervalYearly    DosageInterval = 365 * 24
)

var intervalNames = map[DosageInterval]string{
	IntervalAny:       "any",
	IntervalHourly:    "hourly",
	IntervalDaily:     "daily",
	IntervalWeekly:    "weekly",
	IntervalBiweekly:  "biweekly",
	IntervalMonthly:   "monthly",
	IntervalQuarterly: "quarterly",
	IntervalYearly:    "yearly",
}

// Intervals lists the named intervals from shortest to longest, ANY first.
func Intervals() []DosageInterval {
	return []DosageInterval{
		IntervalAny, IntervalHourly, IntervalDaily, IntervalWeekly,
		IntervalBiweekly, IntervalMonthly, IntervalQuarterly, IntervalYearly,
	}
}

// Hours returns the length of the interval in hours.
func (i DosageInterval) Hours() float64 {
	return float64(i)
}

// Known reports whether i is one of the named intervals.
func (i DosageInterval) Known() bool {
	_, ok := intervalNames[i]
	return ok
}

func (i DosageInterval) String() string {
	if name, ok := intervalNames[i]; ok {
		return name
	}
	return fmt.Sprintf("%dh", int(i))
}

func (i DosageInterval) MarshalText() ([]byte, error) {
	name, ok := intervalNames[i]
	if !ok {
		return nil, fmt.Errorf("unknown dosage interval %d", int(i))
	}
	return []byte(name), nil
}

func (i *DosageInterval) UnmarshalText(text []byte) error {
	v, err := ParseInterval(string(text))
	if err != nil {
		return err
	}
	*i = v
	return nil
}

// ParseInterval parses an interval name such as "daily" or "weekly".
func ParseInterval(s string) (DosageInterval, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for v, name := range intervalNames {
		if name == s {
			return v, nil
		}
	}
	return IntervalAny, fmt.Errorf("unknown dosage interval %q", s)
}

// Drug identifies a medicinal substance by display name and the ATC-like
// classification codes it covers. Codes are matched by prefix.
type Drug struct {
	Name  string   `json:"name" yaml:"name"`
	Codes []string `json:"codes" yaml:"codes"`
}

// DrugEntry is one line of a regimen, or the template a criterion leaf
// matches regimen lines against. SelectedCode is empty in templates.
type DrugEntry struct {
	Drug         Drug           `json:"drug" yaml:"drug"`
	SelectedCode string         `json:"selected_code,omitempty" yaml:"selected_code,omitempty"`
	Frequency    Frequency      `json:"frequency" yaml:"frequency"`
	Dosage       float64        `json:"dosage" yaml:"dosage"`
	Interval     DosageInterval `json:"interval" yaml:"interval"`
}

// Input is the subject of one screening: a patient and their regimen.
// An omitted gender decodes as GenderMale, the zero value. Age and gender
// are carried for display; no criterion consults them.
type Input struct {
	Age    int         `json:"age"`
	Gender Gender      `json:"gender"`
	Drugs  []DrugEntry `json:"drugs"`
}
