package pricing

import (
	"math"
	"strings"

	"github.com/smarthealth/quotekit/domain/profile"
)

// Breakdown maps a payment-mode label to the amount payable per installment.
type Breakdown map[string]float64

// Calculator turns a profile into an annual baseline premium and a
// per-mode installment breakdown. It is a pure function of the profile
// and the configured cost factors: no I/O, no randomness, and every
// absent profile field has a defined default, so it never fails on a
// validated profile.
type Calculator struct {
	factors CostFactors
}

// NewCalculator creates a Calculator after validating the factor tables.
func NewCalculator(factors CostFactors) (Calculator, error) {
	if err := factors.Validate(); err != nil {
		return Calculator{}, err
	}
	return Calculator{factors: factors}, nil
}

// DefaultCalculator returns a Calculator over the published cost matrix.
func DefaultCalculator() Calculator {
	return Calculator{factors: DefaultFactors()}
}

// Factors returns the factor tables the calculator prices with.
func (c Calculator) Factors() CostFactors { return c.factors }

// BaseAnnual computes the annual premium before the payment-mode factor:
// the sum-insured base rate with all multiplicative factors and the term
// discount applied, floored at the minimum premium and rounded.
func (c Calculator) BaseAnnual(p profile.Profile) float64 {
	f := c.factors

	premium := c.pickBase(p.SumInsured)

	// Age 0 is a valid applicant age; only an absent age falls back to
	// the default, so presence is decided by the pointer, not the value.
	age := 35
	if p.Age != nil {
		age = *p.Age
	}
	premium *= bandFactor(float64(age), f.AgeBands)

	if bmi, ok := p.BodyMassIndex(); ok {
		premium *= bandFactor(bmi, f.BMIBands)
	}

	premium *= categoryFactor(f.Smoking, p.SmokingTobaccoUse, "No")
	premium *= categoryFactor(f.Alcohol, p.AlcoholConsumption, "Never")
	premium *= categoryFactor(f.Exercise, p.ExerciseFrequency, "3-4 times/week")

	members := valueOr(p.NumberOfInsuredMembers, 1)
	premium *= 1.0 + float64(max(0, members-1))*f.MemberStep

	premium *= categoryFactor(f.PlanType, p.PlanType, "Individual")

	if hasText(p.PreExistingConditions) {
		premium *= f.PreExistingFactor
	}
	if hasText(p.FamilyMedicalHistory) {
		premium *= f.FamilyHistoryFactor
	}
	if f.IsMetro(strings.TrimSpace(p.Location)) {
		premium *= f.MetroFactor
	}

	term := valueOr(p.PolicyTermYears, 1)
	if tf, ok := f.TermFactor[term]; ok {
		premium *= tf
	}

	return c.round(math.Max(f.MinimumPremium, premium))
}

// TotalPayable computes the single headline amount for the profile's
// selected payment mode (Yearly when absent, unknown modes neutral).
func (c Calculator) TotalPayable(p profile.Profile) float64 {
	base := c.BaseAnnual(p)

	mode := p.PremiumPaymentMode
	if mode == "" {
		mode = ModeYearly
	}
	factor := 1.0
	if mf, ok := c.factors.PaymentMode[mode]; ok {
		factor = mf
	}

	return c.round(math.Max(c.factors.MinimumPremium, base*factor))
}

// ComputeBreakdown returns the per-installment amount for each of the
// four standard payment modes, independent of the mode the caller
// selected for the headline number. The Yearly amount is floored at the
// full minimum premium; split installments are floored at the monthly
// share of the minimum.
func (c Calculator) ComputeBreakdown(p profile.Profile) Breakdown {
	base := c.BaseAnnual(p)
	minimum := c.factors.MinimumPremium
	installmentFloor := minimum / float64(Installments[ModeMonthly])

	b := make(Breakdown, len(Installments))
	for mode, parts := range Installments {
		factor := 1.0
		if mf, ok := c.factors.PaymentMode[mode]; ok {
			factor = mf
		}
		annual := base * factor
		if mode == ModeYearly {
			b[mode] = c.round(math.Max(minimum, annual))
			continue
		}
		installment := annual / float64(parts)
		b[mode] = c.round(math.Max(installmentFloor, installment))
	}
	return b
}

// pickBase locates the smallest sum-insured band covering the requested
// amount; above the top band the rate is extrapolated sublinearly.
func (c Calculator) pickBase(sumInsured *int) float64 {
	if sumInsured == nil || *sumInsured <= 0 {
		return c.factors.DefaultBaseRate
	}
	requested := *sumInsured
	for _, band := range c.factors.BaseRates {
		if requested <= band.Threshold {
			return band.Rate
		}
	}
	top := c.factors.BaseRates[len(c.factors.BaseRates)-1]
	return top.Rate * math.Pow(float64(requested)/float64(top.Threshold), c.factors.ExtrapolationExponent)
}

func (c Calculator) round(amount float64) float64 {
	unit := c.factors.RoundingUnit
	return math.Round(amount/unit) * unit
}

func bandFactor(value float64, bands []Band) float64 {
	for _, b := range bands {
		if value <= b.Threshold {
			return b.Factor
		}
	}
	return bands[len(bands)-1].Factor
}

func categoryFactor(table map[string]float64, value, fallback string) float64 {
	if value == "" {
		value = fallback
	}
	if f, ok := table[value]; ok {
		return f
	}
	return 1.0
}

func valueOr(v *int, fallback int) int {
	if v == nil || *v == 0 {
		return fallback
	}
	return *v
}

func hasText(s string) bool {
	return strings.TrimSpace(s) != ""
}
