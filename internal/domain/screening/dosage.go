package screening

import (
	"fmt"
	"math"
	"strings"
)

// AnyIntervalPolicy decides what rate a dose with IntervalAny has.
type AnyIntervalPolicy int

const (
	// AnyIntervalZeroRate treats ANY as a rate of zero: a criterion with an
	// ANY interval is met by any non-negative dose, and an observed ANY dose
	// never meets a timed threshold.
	AnyIntervalZeroRate AnyIntervalPolicy = iota
	// AnyIntervalUnbounded treats ANY as an infinite rate: a criterion with
	// an ANY interval is only met by another ANY dose.
	AnyIntervalUnbounded
)

// DefaultAnyIntervalPolicy is the policy used by DefaultNormalizer.
const DefaultAnyIntervalPolicy = AnyIntervalZeroRate

// DefaultDosageTolerance is the absolute slack, in dose units per hour,
// allowed when an observed rate is compared against a threshold rate.
const DefaultDosageTolerance = 1e-9

var anyPolicyNames = map[AnyIntervalPolicy]string{
	AnyIntervalZeroRate:  "zero-rate",
	AnyIntervalUnbounded: "unbounded",
}

func (p AnyIntervalPolicy) String() string {
	if name, ok := anyPolicyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParseAnyIntervalPolicy parses "zero-rate" or "unbounded". An empty string
// yields DefaultAnyIntervalPolicy.
func ParseAnyIntervalPolicy(s string) (AnyIntervalPolicy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultAnyIntervalPolicy, nil
	}
	for p, name := range anyPolicyNames {
		if name == s {
			return p, nil
		}
	}
	return DefaultAnyIntervalPolicy, fmt.Errorf("unknown any-interval policy %q", s)
}

// Normalizer converts doses to per-hour rates and compares them.
type Normalizer struct {
	AnyPolicy AnyIntervalPolicy
	Tolerance float64
}

var DefaultNormalizer = Normalizer{
	AnyPolicy: DefaultAnyIntervalPolicy,
	Tolerance: DefaultDosageTolerance,
}

// Rate returns the dose per hour. Intervals of zero or less follow the
// ANY policy.
func (n Normalizer) Rate(dosage float64, interval DosageInterval) float64 {
	if interval <= IntervalAny {
		if n.AnyPolicy == AnyIntervalUnbounded {
			return math.Inf(1)
		}
		return 0
	}
	return dosage / interval.Hours()
}

// MeetsOrExceeds reports whether the observed dose rate is at least the
// threshold rate, within the normalizer's tolerance.
func (n Normalizer) MeetsOrExceeds(observedDose float64, observedInterval DosageInterval, thresholdDose float64, thresholdInterval DosageInterval) bool {
	observed := n.Rate(observedDose, observedInterval)
	threshold := n.Rate(thresholdDose, thresholdInterval)

	// Inf - Inf is NaN; an unbounded threshold is only met by an unbounded rate.
	if math.IsInf(threshold, 1) {
		return math.IsInf(observed, 1)
	}
	return observed-threshold >= -n.Tolerance
}

// Rate converts a dose with DefaultNormalizer.
func Rate(dosage float64, interval DosageInterval) float64 {
	return DefaultNormalizer.Rate(dosage, interval)
}

// MeetsOrExceeds compares two doses with DefaultNormalizer.
func MeetsOrExceeds(observedDose float64, observedInterval DosageInterval, thresholdDose float64, thresholdInterval DosageInterval) bool {
	return DefaultNormalizer.MeetsOrExceeds(observedDose, observedInterval, thresholdDose, thresholdInterval)
}
