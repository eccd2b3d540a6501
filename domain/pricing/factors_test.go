package pricing_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/smarthealth/quotekit/domain/pricing"
	"github.com/stretchr/testify/require"
)

func writeFactorsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "factors.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFactors_PartialOverride(t *testing.T) {
	path := writeFactorsFile(t, `
minimum_premium: 5000
metro_factor: 1.12
metro_locations:
  - Mumbai
`)

	f, err := pricing.LoadFactors(path)
	require.NoError(t, err)

	require.Equal(t, 5000.0, f.MinimumPremium)
	require.Equal(t, 1.12, f.MetroFactor)
	require.True(t, f.IsMetro("Mumbai"))
	require.False(t, f.IsMetro("Delhi"))

	// Untouched fields keep their defaults.
	require.Equal(t, 0.08, f.MemberStep)
	require.Equal(t, 10.0, f.RoundingUnit)
	require.Len(t, f.BaseRates, 8)
}

func TestLoadFactors_MissingFile(t *testing.T) {
	_, err := pricing.LoadFactors(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadFactors_InvalidYAML(t *testing.T) {
	path := writeFactorsFile(t, "minimum_premium: [oops")
	_, err := pricing.LoadFactors(path)
	require.Error(t, err)
}

func TestLoadFactors_RejectsInvalidOverride(t *testing.T) {
	path := writeFactorsFile(t, "extrapolation_exponent: 1.5")
	_, err := pricing.LoadFactors(path)
	require.ErrorContains(t, err, "extrapolation exponent")
}

func TestValidate(t *testing.T) {
	require.NoError(t, pricing.DefaultFactors().Validate())

	cases := map[string]func(f *pricing.CostFactors){
		"empty base rates": func(f *pricing.CostFactors) { f.BaseRates = nil },
		"unsorted base rates": func(f *pricing.CostFactors) {
			f.BaseRates[0], f.BaseRates[1] = f.BaseRates[1], f.BaseRates[0]
		},
		"unsorted age bands": func(f *pricing.CostFactors) {
			f.AgeBands[2].Threshold = f.AgeBands[0].Threshold
		},
		"zero minimum premium": func(f *pricing.CostFactors) { f.MinimumPremium = 0 },
		"zero rounding unit":   func(f *pricing.CostFactors) { f.RoundingUnit = 0 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := pricing.DefaultFactors()
			mutate(&f)
			require.Error(t, f.Validate())
		})
	}
}
