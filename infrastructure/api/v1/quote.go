// Package v1 implements the v1 quote API routes.
package v1

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smarthealth/quotekit"
	"github.com/smarthealth/quotekit/application/service"
	"github.com/smarthealth/quotekit/domain/pricing"
	"github.com/smarthealth/quotekit/domain/profile"
	"github.com/smarthealth/quotekit/domain/search"
	"github.com/smarthealth/quotekit/infrastructure/api/middleware"
	"github.com/smarthealth/quotekit/infrastructure/api/v1/dto"
)

// QuoteRouter handles quote API endpoints.
type QuoteRouter struct {
	client *quotekit.Client
	logger *slog.Logger
}

// NewQuoteRouter creates a new QuoteRouter.
func NewQuoteRouter(client *quotekit.Client) *QuoteRouter {
	return &QuoteRouter{
		client: client,
		logger: client.Logger(),
	}
}

// Routes returns the chi router for quote endpoints.
func (r *QuoteRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/", r.Quote)
	router.Post("/plan", r.Plan)

	return router
}

// Quote handles POST /api/v1/quote: deterministic pricing with the
// per-mode breakdown, optionally adjusted by the generation provider.
func (r *QuoteRouter) Quote(w http.ResponseWriter, req *http.Request) {
	p, err := decodeProfile(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	result, err := r.client.Quotes.Quote(req.Context(), p)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, buildAmountResponse(result))
}

// Plan handles POST /api/v1/quote/plan: a full generated plan with the
// retrieved examples it was based on.
func (r *QuoteRouter) Plan(w http.ResponseWriter, req *http.Request) {
	p, err := decodeProfile(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	result, err := r.client.Quotes.Plan(req.Context(), p)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, buildPlanResponse(result))
}

// decodeProfile parses the request body into a validated profile. An
// unparseable body is a validation error, not a server error.
func decodeProfile(req *http.Request) (profile.Profile, error) {
	var body dto.QuoteRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return profile.Profile{}, fmt.Errorf("%w: %v", profile.ErrValidation, err)
	}

	p := toProfile(body)
	if err := p.Validate(); err != nil {
		return profile.Profile{}, err
	}
	return p, nil
}

func toProfile(body dto.QuoteRequest) profile.Profile {
	return profile.Profile{
		Age:                    body.Age,
		Gender:                 body.Gender,
		Location:               body.Location,
		Occupation:             body.Occupation,
		MedicalHistory:         body.MedicalHistory,
		Lifestyle:              body.Lifestyle,
		CoverageNeed:           body.CoverageNeed,
		NumberOfInsuredMembers: body.NumberOfInsuredMembers,
		FamilyDetails:          body.FamilyDetails,
		PreExistingConditions:  body.PreExistingConditions,
		PastMedicalHistory:     body.PastMedicalHistory,
		FamilyMedicalHistory:   body.FamilyMedicalHistory,
		HeightCM:               body.HeightCM,
		WeightKG:               body.WeightKG,
		BMI:                    body.BMI,
		PregnancyStatus:        body.PregnancyStatus,
		SmokingTobaccoUse:      body.SmokingTobaccoUse,
		AlcoholConsumption:     body.AlcoholConsumption,
		ExerciseFrequency:      body.ExerciseFrequency,
		PlanType:               body.PlanType,
		SumInsured:             body.SumInsured,
		PolicyTermYears:        body.PolicyTermYears,
		PremiumPaymentMode:     body.PremiumPaymentMode,
	}
}

func buildAmountResponse(result service.QuoteResult) dto.QuoteAmountResponse {
	breakdown := result.Breakdown()
	mode := func(name string) *float64 {
		if amount, ok := breakdown[name]; ok {
			return &amount
		}
		return nil
	}

	return dto.QuoteAmountResponse{
		TotalPayableINR: result.TotalPayable(),
		YearlyINR:       mode(pricing.ModeYearly),
		HalfYearlyINR:   mode(pricing.ModeHalfYearly),
		QuarterlyINR:    mode(pricing.ModeQuarterly),
		MonthlyINR:      mode(pricing.ModeMonthly),
		Degraded:        result.Degraded(),
		Reconciled:      result.Reconciled(),
	}
}

func buildPlanResponse(result service.PlanResult) dto.PlanResponse {
	plan := result.Plan()
	return dto.PlanResponse{
		PlanName:           plan.PlanName,
		PremiumINR:         plan.PremiumINR,
		SumInsured:         plan.SumInsured,
		PolicyTermYears:    plan.PolicyTermYears,
		PaymentMode:        plan.PaymentMode,
		DeductibleINR:      plan.DeductibleINR,
		CoinsurancePercent: plan.CoinsurancePercent,
		CoverageDetails:    plan.CoverageDetails,
		Rationale:          plan.Rationale,
		BasedOnExamples:    buildExamples(result.Examples()),
		Degraded:           result.Degraded(),
	}
}

func buildExamples(results []search.Result) []dto.RetrievedExample {
	examples := make([]dto.RetrievedExample, len(results))
	for i, res := range results {
		examples[i] = dto.RetrievedExample{
			ID:         res.ID(),
			Score:      res.Score(),
			Snippet:    res.Snippet(),
			PremiumINR: res.PremiumINR(),
		}
	}
	return examples
}
