// Package service provides application layer services that orchestrate
// domain operations.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/smarthealth/quotekit/domain/pricing"
	"github.com/smarthealth/quotekit/domain/profile"
	"github.com/smarthealth/quotekit/domain/search"
	"github.com/smarthealth/quotekit/infrastructure/persistence"
	vecsearch "github.com/smarthealth/quotekit/infrastructure/search"
	"github.com/smarthealth/quotekit/internal/config"
	"github.com/smarthealth/quotekit/internal/log"
)

// maxGeneratedDrift bounds how far a generated headline amount may move
// from the deterministic baseline before reconciliation discards it.
const maxGeneratedDrift = 0.20

// Generator produces a model completion for a system/user prompt pair.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// QuoteResult is the assembled output of a quote request.
type QuoteResult struct {
	total      float64
	baseline   float64
	breakdown  pricing.Breakdown
	examples   []search.Result
	degraded   bool
	reconciled bool
}

// TotalPayable returns the headline amount for the selected payment mode.
func (r QuoteResult) TotalPayable() float64 { return r.total }

// Baseline returns the deterministic amount before any generated
// adjustment.
func (r QuoteResult) Baseline() float64 { return r.baseline }

// Breakdown returns the per-mode installment amounts.
func (r QuoteResult) Breakdown() pricing.Breakdown { return r.breakdown }

// Examples returns the retrieved similar profiles.
func (r QuoteResult) Examples() []search.Result { return r.examples }

// Degraded reports whether any external stage (embedding, search,
// generation) failed and a fallback was used.
func (r QuoteResult) Degraded() bool { return r.degraded }

// Reconciled reports whether a generated amount was discarded in favor of
// the deterministic baseline.
func (r QuoteResult) Reconciled() bool { return r.reconciled }

// Plan is a full generated insurance plan.
type Plan struct {
	PlanName           string   `json:"planName"`
	PremiumINR         float64  `json:"premiumINR"`
	SumInsured         *int     `json:"sumInsured,omitempty"`
	PolicyTermYears    *int     `json:"policyTermYears,omitempty"`
	PaymentMode        string   `json:"paymentMode,omitempty"`
	DeductibleINR      *float64 `json:"deductibleINR,omitempty"`
	CoinsurancePercent *float64 `json:"coinsurancePercent,omitempty"`
	CoverageDetails    []string `json:"coverageDetails"`
	Rationale          string   `json:"rationale"`
}

// PlanResult is the assembled output of a plan request.
type PlanResult struct {
	plan     Plan
	examples []search.Result
	degraded bool
}

// Plan returns the generated or fallback plan.
func (r PlanResult) Plan() Plan { return r.plan }

// Examples returns the retrieved similar profiles.
func (r PlanResult) Examples() []search.Result { return r.examples }

// Degraded reports whether a fallback was used at any stage.
func (r PlanResult) Degraded() bool { return r.degraded }

// QuoteService orchestrates encoding, retrieval, pricing, and generation
// for quote and plan requests. The deterministic calculator is the only
// required collaborator: every external stage degrades gracefully.
type QuoteService struct {
	calc        pricing.Calculator
	index       *vecsearch.Handle
	embedder    search.Embedder
	generator   Generator
	store       *persistence.QuoteStore
	searchLimit int
	reconcile   bool
	logger      *log.Logger
}

// QuoteServiceOption configures a QuoteService.
type QuoteServiceOption func(*QuoteService)

// WithEmbedder sets the embedding provider for retrieval.
func WithEmbedder(e search.Embedder) QuoteServiceOption {
	return func(s *QuoteService) { s.embedder = e }
}

// WithGenerator sets the text generation provider.
func WithGenerator(g Generator) QuoteServiceOption {
	return func(s *QuoteService) { s.generator = g }
}

// WithQuoteStore sets the audit store for served quotes.
func WithQuoteStore(store *persistence.QuoteStore) QuoteServiceOption {
	return func(s *QuoteService) { s.store = store }
}

// WithSearchLimit sets how many similar profiles are retrieved.
func WithSearchLimit(n int) QuoteServiceOption {
	return func(s *QuoteService) {
		if n > 0 {
			s.searchLimit = n
		}
	}
}

// WithReconcileTotals sets whether generated amounts outside the drift
// bound are replaced by the deterministic baseline.
func WithReconcileTotals(reconcile bool) QuoteServiceOption {
	return func(s *QuoteService) { s.reconcile = reconcile }
}

// WithLogger sets the service logger.
func WithLogger(l *log.Logger) QuoteServiceOption {
	return func(s *QuoteService) { s.logger = l }
}

// NewQuoteService creates a QuoteService.
func NewQuoteService(calc pricing.Calculator, index *vecsearch.Handle, opts ...QuoteServiceOption) *QuoteService {
	s := &QuoteService{
		calc:        calc,
		index:       index,
		searchLimit: config.DefaultSearchLimit,
		reconcile:   true,
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Quote prices the profile and assembles the full quote result. The
// deterministic amount and breakdown are always present; retrieval and
// generation failures degrade the result rather than failing it.
func (s *QuoteService) Quote(ctx context.Context, p profile.Profile) (QuoteResult, error) {
	if err := p.Validate(); err != nil {
		return QuoteResult{}, err
	}

	baseline := s.calc.TotalPayable(p)
	result := QuoteResult{
		total:     baseline,
		baseline:  baseline,
		breakdown: s.calc.ComputeBreakdown(p),
	}

	examples, degraded := s.retrieve(ctx, p)
	result.examples = examples
	result.degraded = degraded

	if s.generator != nil {
		amount, err := s.generateAmount(ctx, p, baseline, examples)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "amount generation failed, using baseline", "error", err)
			result.degraded = true
		case s.reconcile && math.Abs(amount-baseline) > baseline*maxGeneratedDrift:
			s.logger.InfoContext(ctx, "generated amount reconciled to baseline",
				"generated", amount, "baseline", baseline)
			result.reconciled = true
		default:
			result.total = amount
		}
	}

	s.record(ctx, p, result)
	return result, nil
}

// Plan generates a full insurance plan for the profile, falling back to a
// deterministic standard plan when generation is unavailable or its output
// does not parse.
func (s *QuoteService) Plan(ctx context.Context, p profile.Profile) (PlanResult, error) {
	if err := p.Validate(); err != nil {
		return PlanResult{}, err
	}

	baseline := s.calc.TotalPayable(p)
	examples, degraded := s.retrieve(ctx, p)
	result := PlanResult{examples: examples, degraded: degraded}

	if s.generator == nil {
		result.plan = s.fallbackPlan(p, baseline)
		result.degraded = true
		return result, nil
	}

	plan, err := s.generatePlan(ctx, p, baseline, examples)
	if err != nil {
		s.logger.WarnContext(ctx, "plan generation failed, using standard plan", "error", err)
		result.plan = s.fallbackPlan(p, baseline)
		result.degraded = true
		return result, nil
	}

	result.plan = plan
	return result, nil
}

// Stats reports the state of the published index.
func (s *QuoteService) Stats() search.Stats {
	idx := s.index.Index()
	if idx == nil {
		return search.EmptyStats()
	}
	return idx.Stats()
}

// retrieve embeds the profile text and searches the published index.
// Any failure returns no examples and marks the result degraded.
func (s *QuoteService) retrieve(ctx context.Context, p profile.Profile) ([]search.Result, bool) {
	if s.embedder == nil || !s.index.Loaded() {
		return nil, true
	}

	text := profile.EncodeText(p)
	vectors, err := s.embedder.Embed(ctx, []string{text})
	if err != nil || len(vectors) != 1 {
		s.logger.WarnContext(ctx, "query embedding failed", "error", err)
		return nil, true
	}

	results, err := s.index.Index().Search(vectors[0], s.searchLimit)
	if err != nil {
		s.logger.WarnContext(ctx, "index search failed", "error", err)
		return nil, true
	}
	return results, false
}

// generateAmount asks the generation provider for a minimally adjusted
// headline amount as {"totalPayableINR": n}.
func (s *QuoteService) generateAmount(ctx context.Context, p profile.Profile, baseline float64, examples []search.Result) (float64, error) {
	system := "You are a health insurance pricing assistant. Respond with JSON only."
	user := fmt.Sprintf(`Given the user profile and a deterministic baseline premium of %.0f INR, return the total payable amount with at most a minimal adjustment justified by the profile.

User Profile:
%s

Similar Examples from Database:
%s

Respond with exactly this JSON structure:
{"totalPayableINR": number}`, baseline, profile.Summary(p), exampleContext(examples))

	raw, err := s.generator.Generate(ctx, system, user)
	if err != nil {
		return 0, err
	}

	var payload struct {
		TotalPayableINR *float64 `json:"totalPayableINR"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		return 0, fmt.Errorf("parse amount response: %w", err)
	}
	if payload.TotalPayableINR == nil || *payload.TotalPayableINR <= 0 {
		return 0, fmt.Errorf("amount response missing totalPayableINR")
	}
	return *payload.TotalPayableINR, nil
}

// generatePlan asks the generation provider for a full plan JSON.
func (s *QuoteService) generatePlan(ctx context.Context, p profile.Profile, baseline float64, examples []search.Result) (Plan, error) {
	system := "You are a health insurance expert. Respond with JSON only."
	user := fmt.Sprintf(`Generate a detailed insurance quote in JSON format based on the user profile and similar examples. The deterministic baseline premium is %.0f INR.

User Profile:
%s

Similar Examples from Database:
%s

Generate a JSON response with the following structure:
{
    "planName": "string",
    "premiumINR": number,
    "sumInsured": number,
    "policyTermYears": number,
    "paymentMode": "string",
    "deductibleINR": number,
    "coinsurancePercent": number,
    "coverageDetails": ["string", "string"],
    "rationale": "string explaining the quote calculation"
}

Consider the user's age, medical history, and similar examples to determine appropriate premium and coverage.`, baseline, profile.Summary(p), exampleContext(examples))

	raw, err := s.generator.Generate(ctx, system, user)
	if err != nil {
		return Plan{}, err
	}

	var plan Plan
	if err := json.Unmarshal([]byte(extractJSON(raw)), &plan); err != nil {
		return Plan{}, fmt.Errorf("parse plan response: %w", err)
	}

	if plan.PlanName == "" {
		plan.PlanName = "Standard Health Plan"
	}
	if plan.PremiumINR <= 0 {
		plan.PremiumINR = baseline
	}
	if plan.Rationale == "" {
		plan.Rationale = "Quote generated based on provided information and similar cases."
	}
	return plan, nil
}

// fallbackPlan assembles the deterministic standard plan used when
// generation is unavailable.
func (s *QuoteService) fallbackPlan(p profile.Profile, baseline float64) Plan {
	sumInsured := 500000
	if p.SumInsured != nil && *p.SumInsured > 0 {
		sumInsured = *p.SumInsured
	}
	term := 1
	if p.PolicyTermYears != nil && *p.PolicyTermYears > 0 {
		term = *p.PolicyTermYears
	}
	mode := p.PremiumPaymentMode
	if mode == "" {
		mode = pricing.ModeYearly
	}

	return Plan{
		PlanName:        "Standard Health Plan",
		PremiumINR:      baseline,
		SumInsured:      &sumInsured,
		PolicyTermYears: &term,
		PaymentMode:     mode,
		CoverageDetails: []string{
			"Hospitalization expenses",
			"Pre and post hospitalization",
			"Emergency ambulance",
			"Day care procedures",
		},
		Rationale: "Quote generated based on standard parameters and similar profiles.",
	}
}

// record persists the served quote to the audit store, best effort.
func (s *QuoteService) record(ctx context.Context, p profile.Profile, r QuoteResult) {
	if s.store == nil {
		return
	}
	entry := persistence.QuoteModel{
		Age:          p.Age,
		Location:     p.Location,
		SumInsured:   p.SumInsured,
		PaymentMode:  p.PremiumPaymentMode,
		TotalPayable: r.total,
		ExampleCount: len(r.examples),
		Degraded:     r.degraded,
		Reconciled:   r.reconciled,
	}
	if err := s.store.Record(ctx, entry); err != nil {
		s.logger.WarnContext(ctx, "quote audit record failed", "error", err)
	}
}

// exampleContext renders retrieved profiles as prompt context lines.
func exampleContext(examples []search.Result) string {
	if len(examples) == 0 {
		return "No similar profiles available."
	}
	lines := make([]string, len(examples))
	for i, ex := range examples {
		line := fmt.Sprintf("- (score %.2f) %s", ex.Score(), ex.Snippet())
		if premium := ex.PremiumINR(); premium != nil {
			line += fmt.Sprintf(" [historical premium: %.0f INR]", *premium)
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

// extractJSON trims any prose around the first JSON object in a model
// response. Models occasionally wrap JSON in code fences or commentary.
func extractJSON(raw string) string {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
