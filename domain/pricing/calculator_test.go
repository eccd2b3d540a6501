package pricing_test

import (
	"math"
	"testing"

	"github.com/smarthealth/quotekit/domain/pricing"
	"github.com/smarthealth/quotekit/domain/profile"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// referenceProfile is a 30-year-old in Mumbai insuring 5 lakh yearly.
// Every multiplicative factor except the metro surcharge is neutral, so
// the annual baseline is 9000 * 1.08 = 9720.
func referenceProfile() profile.Profile {
	return profile.Profile{
		Age:                intPtr(30),
		Location:           "Mumbai",
		SumInsured:         intPtr(500_000),
		PremiumPaymentMode: pricing.ModeYearly,
	}
}

func TestCalculator_ReferenceProfile(t *testing.T) {
	calc := pricing.DefaultCalculator()
	p := referenceProfile()

	require.Equal(t, 9720.0, calc.BaseAnnual(p))
	// Yearly headline: 9720 * 0.98 = 9525.6, rounded to 9530.
	require.Equal(t, 9530.0, calc.TotalPayable(p))
}

func TestCalculator_Breakdown(t *testing.T) {
	calc := pricing.DefaultCalculator()
	b := calc.ComputeBreakdown(referenceProfile())

	require.Equal(t, 9530.0, b[pricing.ModeYearly])
	require.Equal(t, 4790.0, b[pricing.ModeHalfYearly]) // 9720*0.985/2
	require.Equal(t, 2410.0, b[pricing.ModeQuarterly])  // 9720*0.99/4
	require.Equal(t, 810.0, b[pricing.ModeMonthly])     // 9720/12
}

func TestCalculator_Deterministic(t *testing.T) {
	calc := pricing.DefaultCalculator()
	p := profile.Profile{
		Age:                   intPtr(52),
		Location:              "Pune",
		SumInsured:            intPtr(1_200_000),
		SmokingTobaccoUse:     "Yes",
		PreExistingConditions: "Diabetes",
		PlanType:              "Family",
		NumberOfInsuredMembers: intPtr(4),
	}

	first := calc.TotalPayable(p)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, calc.TotalPayable(p))
	}
}

func TestCalculator_RoundingUnit(t *testing.T) {
	calc := pricing.DefaultCalculator()
	profiles := []profile.Profile{
		{},
		referenceProfile(),
		{Age: intPtr(63), SumInsured: intPtr(2_500_000), SmokingTobaccoUse: "Occasional"},
		{Age: intPtr(41), BMI: floatPtr(31.2), AlcoholConsumption: "Regular"},
	}

	for _, p := range profiles {
		total := calc.TotalPayable(p)
		require.Zero(t, math.Mod(total, 10), "total %v not a multiple of 10", total)
		require.GreaterOrEqual(t, total, 3000.0)
		for _, amount := range calc.ComputeBreakdown(p) {
			require.Zero(t, math.Mod(amount, 10), "installment %v not a multiple of 10", amount)
		}
	}
}

func TestCalculator_MemberSurchargeIsLinear(t *testing.T) {
	calc := pricing.DefaultCalculator()

	base := profile.Profile{Age: intPtr(30), SumInsured: intPtr(500_000)}
	require.Equal(t, 9000.0, calc.BaseAnnual(base))

	three := base
	three.NumberOfInsuredMembers = intPtr(3)
	// Two extra members at 8% each: 9000 * 1.16 = 10440.
	require.Equal(t, 10440.0, calc.BaseAnnual(three))
}

func TestCalculator_ExtrapolatesAboveTopBand(t *testing.T) {
	calc := pricing.DefaultCalculator()
	p := profile.Profile{Age: intPtr(30), SumInsured: intPtr(10_000_000)}

	// 42000 * (10M/5M)^0.3 = 51708.07, rounded to 51710.
	require.Equal(t, 51710.0, calc.BaseAnnual(p))

	// The extrapolated rate grows sublinearly: doubling the sum insured
	// less than doubles the premium.
	top := profile.Profile{Age: intPtr(30), SumInsured: intPtr(5_000_000)}
	require.Less(t, calc.BaseAnnual(p), 2*calc.BaseAnnual(top))
}

func TestCalculator_BMIDerivedFromHeightAndWeight(t *testing.T) {
	calc := pricing.DefaultCalculator()

	normal := profile.Profile{
		Age:        intPtr(30),
		SumInsured: intPtr(500_000),
		HeightCM:   floatPtr(170),
		WeightKG:   floatPtr(65), // BMI 22.5, neutral band
	}
	overweight := normal
	overweight.WeightKG = floatPtr(85) // BMI 29.4, factor 1.15

	require.Equal(t, 9000.0, calc.BaseAnnual(normal))
	require.Equal(t, 10350.0, calc.BaseAnnual(overweight))
}

func TestCalculator_ExplicitBMIWins(t *testing.T) {
	calc := pricing.DefaultCalculator()

	p := profile.Profile{
		Age:        intPtr(30),
		SumInsured: intPtr(500_000),
		HeightCM:   floatPtr(170),
		WeightKG:   floatPtr(85),
		BMI:        floatPtr(22.0),
	}
	require.Equal(t, 9000.0, calc.BaseAnnual(p))
}

func TestCalculator_AgeZeroUsesYoungestBand(t *testing.T) {
	calc := pricing.DefaultCalculator()

	newborn := profile.Profile{Age: intPtr(0), SumInsured: intPtr(500_000)}
	require.NoError(t, newborn.Validate())
	// An explicit age of 0 prices in the youngest band (0.90), not at
	// the absent-age default: 9000 * 0.90 = 8100.
	require.Equal(t, 8100.0, calc.BaseAnnual(newborn))

	absent := profile.Profile{SumInsured: intPtr(500_000)}
	require.Equal(t, 9000.0, calc.BaseAnnual(absent))
}

func TestCalculator_EmptyProfileUsesDefaults(t *testing.T) {
	calc := pricing.DefaultCalculator()

	// Defaults: base 15000, age 35 (1.0), everything else neutral.
	require.Equal(t, 15000.0, calc.BaseAnnual(profile.Profile{}))
	require.Equal(t, 14700.0, calc.TotalPayable(profile.Profile{}))
}

func TestCalculator_MinimumPremiumFloor(t *testing.T) {
	factors := pricing.DefaultFactors()
	factors.MinimumPremium = 12000

	calc, err := pricing.NewCalculator(factors)
	require.NoError(t, err)

	p := profile.Profile{Age: intPtr(22), SumInsured: intPtr(200_000)}
	// 7000 * 0.90 = 6300 is below the floor.
	require.Equal(t, 12000.0, calc.BaseAnnual(p))

	b := calc.ComputeBreakdown(p)
	require.Equal(t, 12000.0, b[pricing.ModeYearly])
	require.Equal(t, 1000.0, b[pricing.ModeMonthly]) // floor / 12
}

func TestCalculator_UnknownModeIsNeutral(t *testing.T) {
	calc := pricing.DefaultCalculator()
	p := referenceProfile()
	p.PremiumPaymentMode = "Weekly"

	require.Equal(t, 9720.0, calc.TotalPayable(p))
}

func TestCalculator_BreakdownMissingModeIsNeutral(t *testing.T) {
	factors := pricing.DefaultFactors()
	delete(factors.PaymentMode, pricing.ModeHalfYearly)

	calc, err := pricing.NewCalculator(factors)
	require.NoError(t, err)

	p := profile.Profile{Age: intPtr(30), SumInsured: intPtr(500_000)}
	b := calc.ComputeBreakdown(p)
	// A mode absent from the factor table prices at 1.0, matching
	// TotalPayable, instead of zeroing the installment: 9000 / 2 = 4500.
	require.Equal(t, 4500.0, b[pricing.ModeHalfYearly])
}

func TestNewCalculator_RejectsInvalidFactors(t *testing.T) {
	factors := pricing.DefaultFactors()
	factors.AgeBands = nil

	_, err := pricing.NewCalculator(factors)
	require.Error(t, err)
}
