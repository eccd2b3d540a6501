package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/smarthealth/quotekit/application/service"
	"github.com/smarthealth/quotekit/domain/pricing"
	"github.com/smarthealth/quotekit/domain/profile"
	"github.com/smarthealth/quotekit/domain/search"
	vecsearch "github.com/smarthealth/quotekit/infrastructure/search"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// stubEmbedder returns the same vector for every text.
type stubEmbedder struct {
	vec []float64
	err error
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = s.vec
	}
	return out, nil
}

// stubGenerator returns a canned response.
type stubGenerator struct {
	response string
	err      error
}

func (s *stubGenerator) Generate(context.Context, string, string) (string, error) {
	return s.response, s.err
}

// testIndex holds three entries; the first aligns with the test query
// vector.
func testIndex(t *testing.T) *vecsearch.Handle {
	t.Helper()

	idx := vecsearch.NewFlatIndex()
	err := idx.Build(
		[][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		[]search.RecordMeta{
			{Text: "Age: 30 Location: Mumbai", PremiumINR: floatPtr(9500)},
			{Text: "Age: 50 Location: Delhi", PremiumINR: floatPtr(15000)},
			{Text: "Age: 25 Location: Pune"},
		},
	)
	require.NoError(t, err)
	return vecsearch.NewHandle(idx)
}

// referenceProfile prices to a deterministic Yearly headline of 9530.
func referenceProfile() profile.Profile {
	return profile.Profile{
		Age:                intPtr(30),
		Location:           "Mumbai",
		SumInsured:         intPtr(500_000),
		PremiumPaymentMode: pricing.ModeYearly,
	}
}

func TestQuote_DeterministicOnly(t *testing.T) {
	svc := service.NewQuoteService(pricing.DefaultCalculator(), vecsearch.NewHandle(nil))

	result, err := svc.Quote(context.Background(), referenceProfile())
	require.NoError(t, err)

	require.Equal(t, 9530.0, result.TotalPayable())
	require.Equal(t, 9530.0, result.Baseline())
	require.Equal(t, 9530.0, result.Breakdown()[pricing.ModeYearly])
	require.Equal(t, 810.0, result.Breakdown()[pricing.ModeMonthly])
	require.True(t, result.Degraded())
	require.Empty(t, result.Examples())
}

func TestQuote_RejectsInvalidProfile(t *testing.T) {
	svc := service.NewQuoteService(pricing.DefaultCalculator(), vecsearch.NewHandle(nil))

	_, err := svc.Quote(context.Background(), profile.Profile{Age: intPtr(150)})
	require.ErrorIs(t, err, profile.ErrValidation)
}

func TestQuote_RetrievesExamples(t *testing.T) {
	svc := service.NewQuoteService(pricing.DefaultCalculator(), testIndex(t),
		service.WithEmbedder(&stubEmbedder{vec: []float64{1, 0, 0}}),
		service.WithSearchLimit(2),
	)

	result, err := svc.Quote(context.Background(), referenceProfile())
	require.NoError(t, err)

	require.False(t, result.Degraded())
	require.Len(t, result.Examples(), 2)
	require.Equal(t, 0, result.Examples()[0].ID())
	require.Equal(t, "Age: 30 Location: Mumbai", result.Examples()[0].Snippet())
	require.NotNil(t, result.Examples()[0].PremiumINR())
}

func TestQuote_EmbeddingFailureDegrades(t *testing.T) {
	svc := service.NewQuoteService(pricing.DefaultCalculator(), testIndex(t),
		service.WithEmbedder(&stubEmbedder{err: errors.New("endpoint down")}),
	)

	result, err := svc.Quote(context.Background(), referenceProfile())
	require.NoError(t, err)
	require.True(t, result.Degraded())
	require.Empty(t, result.Examples())
	require.Equal(t, 9530.0, result.TotalPayable())
}

func TestQuote_GeneratedAmountWithinDrift(t *testing.T) {
	svc := service.NewQuoteService(pricing.DefaultCalculator(), testIndex(t),
		service.WithEmbedder(&stubEmbedder{vec: []float64{1, 0, 0}}),
		service.WithGenerator(&stubGenerator{response: `{"totalPayableINR": 9800}`}),
	)

	result, err := svc.Quote(context.Background(), referenceProfile())
	require.NoError(t, err)

	require.Equal(t, 9800.0, result.TotalPayable())
	require.Equal(t, 9530.0, result.Baseline())
	require.False(t, result.Reconciled())
	require.False(t, result.Degraded())
	// The breakdown stays deterministic regardless of the generated headline.
	require.Equal(t, 9530.0, result.Breakdown()[pricing.ModeYearly])
}

func TestQuote_GeneratedAmountReconciled(t *testing.T) {
	// 20000 is far beyond 20% of the 9530 baseline.
	svc := service.NewQuoteService(pricing.DefaultCalculator(), testIndex(t),
		service.WithEmbedder(&stubEmbedder{vec: []float64{1, 0, 0}}),
		service.WithGenerator(&stubGenerator{response: `{"totalPayableINR": 20000}`}),
	)

	result, err := svc.Quote(context.Background(), referenceProfile())
	require.NoError(t, err)

	require.Equal(t, 9530.0, result.TotalPayable())
	require.True(t, result.Reconciled())
	require.False(t, result.Degraded())
}

func TestQuote_ReconciliationDisabled(t *testing.T) {
	svc := service.NewQuoteService(pricing.DefaultCalculator(), testIndex(t),
		service.WithEmbedder(&stubEmbedder{vec: []float64{1, 0, 0}}),
		service.WithGenerator(&stubGenerator{response: `{"totalPayableINR": 20000}`}),
		service.WithReconcileTotals(false),
	)

	result, err := svc.Quote(context.Background(), referenceProfile())
	require.NoError(t, err)
	require.Equal(t, 20000.0, result.TotalPayable())
	require.False(t, result.Reconciled())
}

func TestQuote_GeneratorFailureDegrades(t *testing.T) {
	cases := map[string]service.Generator{
		"transport error": &stubGenerator{err: errors.New("timeout")},
		"not json":        &stubGenerator{response: "I cannot help with that."},
		"missing field":   &stubGenerator{response: `{"something": 1}`},
		"negative amount": &stubGenerator{response: `{"totalPayableINR": -5}`},
	}

	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			svc := service.NewQuoteService(pricing.DefaultCalculator(), testIndex(t),
				service.WithEmbedder(&stubEmbedder{vec: []float64{1, 0, 0}}),
				service.WithGenerator(gen),
			)

			result, err := svc.Quote(context.Background(), referenceProfile())
			require.NoError(t, err)
			require.Equal(t, 9530.0, result.TotalPayable())
			require.True(t, result.Degraded())
		})
	}
}

func TestQuote_GeneratedJSONInCodeFence(t *testing.T) {
	svc := service.NewQuoteService(pricing.DefaultCalculator(), testIndex(t),
		service.WithEmbedder(&stubEmbedder{vec: []float64{1, 0, 0}}),
		service.WithGenerator(&stubGenerator{
			response: "```json\n{\"totalPayableINR\": 9600}\n```",
		}),
	)

	result, err := svc.Quote(context.Background(), referenceProfile())
	require.NoError(t, err)
	require.Equal(t, 9600.0, result.TotalPayable())
}

func TestPlan_FallbackWithoutGenerator(t *testing.T) {
	svc := service.NewQuoteService(pricing.DefaultCalculator(), vecsearch.NewHandle(nil))

	result, err := svc.Plan(context.Background(), referenceProfile())
	require.NoError(t, err)

	plan := result.Plan()
	require.True(t, result.Degraded())
	require.Equal(t, "Standard Health Plan", plan.PlanName)
	require.Equal(t, 9530.0, plan.PremiumINR)
	require.Equal(t, 500_000, *plan.SumInsured)
	require.Equal(t, 1, *plan.PolicyTermYears)
	require.Equal(t, pricing.ModeYearly, plan.PaymentMode)
	require.Len(t, plan.CoverageDetails, 4)
	require.NotEmpty(t, plan.Rationale)
}

func TestPlan_GeneratorErrorFallsBack(t *testing.T) {
	svc := service.NewQuoteService(pricing.DefaultCalculator(), testIndex(t),
		service.WithEmbedder(&stubEmbedder{vec: []float64{1, 0, 0}}),
		service.WithGenerator(&stubGenerator{response: "not a json object at all"}),
	)

	result, err := svc.Plan(context.Background(), referenceProfile())
	require.NoError(t, err)
	require.True(t, result.Degraded())
	require.Equal(t, "Standard Health Plan", result.Plan().PlanName)
	// Retrieval succeeded even though generation did not.
	require.Len(t, result.Examples(), 3)
}

func TestPlan_GeneratedPlan(t *testing.T) {
	svc := service.NewQuoteService(pricing.DefaultCalculator(), testIndex(t),
		service.WithEmbedder(&stubEmbedder{vec: []float64{1, 0, 0}}),
		service.WithGenerator(&stubGenerator{response: `{
			"planName": "Silver Shield",
			"premiumINR": 9700,
			"sumInsured": 500000,
			"policyTermYears": 1,
			"paymentMode": "Yearly",
			"coverageDetails": ["Hospitalization", "Ambulance"],
			"rationale": "Healthy non-smoker in a metro area."
		}`}),
	)

	result, err := svc.Plan(context.Background(), referenceProfile())
	require.NoError(t, err)

	plan := result.Plan()
	require.False(t, result.Degraded())
	require.Equal(t, "Silver Shield", plan.PlanName)
	require.Equal(t, 9700.0, plan.PremiumINR)
	require.Equal(t, []string{"Hospitalization", "Ambulance"}, plan.CoverageDetails)
}

func TestPlan_GeneratedPlanDefaultsFilled(t *testing.T) {
	svc := service.NewQuoteService(pricing.DefaultCalculator(), testIndex(t),
		service.WithEmbedder(&stubEmbedder{vec: []float64{1, 0, 0}}),
		service.WithGenerator(&stubGenerator{response: `{"coverageDetails": []}`}),
	)

	result, err := svc.Plan(context.Background(), referenceProfile())
	require.NoError(t, err)

	plan := result.Plan()
	require.Equal(t, "Standard Health Plan", plan.PlanName)
	require.Equal(t, 9530.0, plan.PremiumINR)
	require.NotEmpty(t, plan.Rationale)
}

func TestStats(t *testing.T) {
	svc := service.NewQuoteService(pricing.DefaultCalculator(), vecsearch.NewHandle(nil))
	require.False(t, svc.Stats().Loaded())

	svc = service.NewQuoteService(pricing.DefaultCalculator(), testIndex(t))
	stats := svc.Stats()
	require.True(t, stats.Loaded())
	require.Equal(t, 3, stats.Count())
	require.Equal(t, 3, stats.Dimension())
}
