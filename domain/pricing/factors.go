// Package pricing implements the deterministic cost-matrix premium model.
package pricing

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Payment mode labels. These are the four standard installment schedules
// a breakdown always covers.
const (
	ModeYearly     = "Yearly"
	ModeHalfYearly = "Half-Yearly"
	ModeQuarterly  = "Quarterly"
	ModeMonthly    = "Monthly"
)

// Installments maps a payment mode to the number of installments per year.
var Installments = map[string]int{
	ModeYearly:     1,
	ModeHalfYearly: 2,
	ModeQuarterly:  4,
	ModeMonthly:    12,
}

// Band maps values at or below Threshold to a multiplicative Factor.
type Band struct {
	Threshold float64 `yaml:"threshold"`
	Factor    float64 `yaml:"factor"`
}

// RateBand maps a sum-insured amount at or below Threshold to an annual base rate.
type RateBand struct {
	Threshold int     `yaml:"threshold"`
	Rate      float64 `yaml:"rate"`
}

// CostFactors is the static pricing configuration: base-rate bands plus
// the multiplicative factor tables applied on top of them. It is built
// once at startup (defaults, optionally overridden from a YAML file) and
// treated as read-only afterwards.
type CostFactors struct {
	// BaseRates are annual base rates per sum-insured band, ascending by
	// threshold. Requests above the top band extrapolate from its rate.
	BaseRates       []RateBand `yaml:"base_rates"`
	DefaultBaseRate float64    `yaml:"default_base_rate"`

	// ExtrapolationExponent dampens base-rate growth above the top
	// sum-insured band: rate = top_rate * (requested/top_threshold)^exp.
	ExtrapolationExponent float64 `yaml:"extrapolation_exponent"`

	AgeBands []Band `yaml:"age_bands"`
	BMIBands []Band `yaml:"bmi_bands"`

	Smoking  map[string]float64 `yaml:"smoking"`
	Alcohol  map[string]float64 `yaml:"alcohol"`
	Exercise map[string]float64 `yaml:"exercise"`
	PlanType map[string]float64 `yaml:"plan_type"`

	// MemberStep is the surcharge per insured member beyond the first.
	MemberStep float64 `yaml:"member_step"`

	PreExistingFactor   float64 `yaml:"pre_existing_factor"`
	FamilyHistoryFactor float64 `yaml:"family_history_factor"`

	MetroLocations []string `yaml:"metro_locations"`
	MetroFactor    float64  `yaml:"metro_factor"`

	PaymentMode map[string]float64 `yaml:"payment_mode"`
	TermFactor  map[int]float64    `yaml:"term_factor"`

	// MinimumPremium floors the annual total. Installment amounts are
	// floored at MinimumPremium divided by the monthly installment count.
	MinimumPremium float64 `yaml:"minimum_premium"`

	// RoundingUnit is the currency granularity every amount is rounded to.
	RoundingUnit float64 `yaml:"rounding_unit"`
}

// DefaultFactors returns the published cost matrix in INR.
func DefaultFactors() CostFactors {
	return CostFactors{
		BaseRates: []RateBand{
			{Threshold: 300_000, Rate: 7000},
			{Threshold: 500_000, Rate: 9000},
			{Threshold: 700_000, Rate: 12000},
			{Threshold: 1_000_000, Rate: 15000},
			{Threshold: 1_500_000, Rate: 19000},
			{Threshold: 2_000_000, Rate: 23000},
			{Threshold: 3_000_000, Rate: 30000},
			{Threshold: 5_000_000, Rate: 42000},
		},
		DefaultBaseRate:       15000,
		ExtrapolationExponent: 0.3,
		AgeBands: []Band{
			{Threshold: 25, Factor: 0.90},
			{Threshold: 35, Factor: 1.00},
			{Threshold: 45, Factor: 1.20},
			{Threshold: 55, Factor: 1.45},
			{Threshold: 65, Factor: 1.80},
			{Threshold: 200, Factor: 2.20},
		},
		BMIBands: []Band{
			{Threshold: 18.5, Factor: 0.95},
			{Threshold: 24.9, Factor: 1.00},
			{Threshold: 29.9, Factor: 1.15},
			{Threshold: 34.9, Factor: 1.30},
			{Threshold: 100, Factor: 1.50},
		},
		Smoking: map[string]float64{
			"No":         1.00,
			"Occasional": 1.10,
			"Yes":        1.25,
		},
		Alcohol: map[string]float64{
			"Never":      1.00,
			"Occasional": 1.05,
			"Regular":    1.10,
		},
		Exercise: map[string]float64{
			"Sedentary":      1.10,
			"1-2 times/week": 1.05,
			"3-4 times/week": 1.00,
			"Daily":          0.97,
		},
		PlanType: map[string]float64{
			"Individual": 1.00,
			"Family":     1.20,
		},
		MemberStep:          0.08,
		PreExistingFactor:   1.10,
		FamilyHistoryFactor: 1.05,
		MetroLocations: []string{
			"Mumbai", "Delhi", "Bengaluru", "Bangalore",
			"Chennai", "Kolkata", "Hyderabad", "Pune",
		},
		MetroFactor: 1.08,
		PaymentMode: map[string]float64{
			ModeMonthly:    1.00,
			ModeQuarterly:  0.99,
			ModeHalfYearly: 0.985,
			ModeYearly:     0.98,
		},
		TermFactor: map[int]float64{
			1: 1.00,
			2: 0.99,
			3: 0.98,
		},
		MinimumPremium: 3000,
		RoundingUnit:   10,
	}
}

// LoadFactors reads a CostFactors YAML file. Fields absent from the file
// keep their default values, so a partial override is valid.
func LoadFactors(path string) (CostFactors, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CostFactors{}, fmt.Errorf("read cost factors: %w", err)
	}

	f := DefaultFactors()
	if err := yaml.Unmarshal(data, &f); err != nil {
		return CostFactors{}, fmt.Errorf("parse cost factors: %w", err)
	}

	if err := f.Validate(); err != nil {
		return CostFactors{}, err
	}
	return f, nil
}

// Validate checks the structural invariants of the factor tables.
// Bands must be sorted ascending by threshold with no duplicates, and the
// final band acts as the open-ended ceiling, so every table needs at
// least one entry.
func (f CostFactors) Validate() error {
	if len(f.BaseRates) == 0 {
		return errors.New("cost factors: base rates are empty")
	}
	if !sort.SliceIsSorted(f.BaseRates, func(i, j int) bool {
		return f.BaseRates[i].Threshold < f.BaseRates[j].Threshold
	}) {
		return errors.New("cost factors: base rates not ascending by threshold")
	}
	if err := validateBands("age bands", f.AgeBands); err != nil {
		return err
	}
	if err := validateBands("bmi bands", f.BMIBands); err != nil {
		return err
	}
	if f.MinimumPremium <= 0 {
		return errors.New("cost factors: minimum premium must be positive")
	}
	if f.RoundingUnit <= 0 {
		return errors.New("cost factors: rounding unit must be positive")
	}
	if f.ExtrapolationExponent <= 0 || f.ExtrapolationExponent >= 1 {
		return errors.New("cost factors: extrapolation exponent must be in (0, 1)")
	}
	return nil
}

func validateBands(name string, bands []Band) error {
	if len(bands) == 0 {
		return fmt.Errorf("cost factors: %s are empty", name)
	}
	for i := 1; i < len(bands); i++ {
		if bands[i].Threshold <= bands[i-1].Threshold {
			return fmt.Errorf("cost factors: %s not ascending by threshold", name)
		}
	}
	return nil
}

// IsMetro reports whether the location is one of the configured metro areas.
func (f CostFactors) IsMetro(location string) bool {
	for _, m := range f.MetroLocations {
		if m == location {
			return true
		}
	}
	return false
}
