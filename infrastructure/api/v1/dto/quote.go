// Package dto defines the request and response shapes of the v1 API.
package dto

import "time"

// QuoteRequest is the customer profile submitted for pricing. All fields
// are optional; field names match the public API contract.
type QuoteRequest struct {
	Age            *int   `json:"age,omitempty"`
	MedicalHistory string `json:"medicalHistory,omitempty"`
	Lifestyle      string `json:"lifestyle,omitempty"`
	CoverageNeed   string `json:"coverageNeed,omitempty"`

	Gender                 string   `json:"gender,omitempty"`
	Location               string   `json:"location,omitempty"`
	Occupation             string   `json:"occupation,omitempty"`
	NumberOfInsuredMembers *int     `json:"numberOfInsuredMembers,omitempty"`
	FamilyDetails          string   `json:"familyDetails,omitempty"`
	PreExistingConditions  string   `json:"preExistingConditions,omitempty"`
	PastMedicalHistory     string   `json:"pastMedicalHistory,omitempty"`
	FamilyMedicalHistory   string   `json:"familyMedicalHistory,omitempty"`
	HeightCM               *float64 `json:"heightCm,omitempty"`
	WeightKG               *float64 `json:"weightKg,omitempty"`
	BMI                    *float64 `json:"bmi,omitempty"`
	PregnancyStatus        string   `json:"pregnancyStatus,omitempty"`
	SmokingTobaccoUse      string   `json:"smokingTobaccoUse,omitempty"`
	AlcoholConsumption     string   `json:"alcoholConsumption,omitempty"`
	ExerciseFrequency      string   `json:"exerciseFrequency,omitempty"`
	PlanType               string   `json:"planType,omitempty"`
	SumInsured             *int     `json:"sumInsured,omitempty"`
	PolicyTermYears        *int     `json:"policyTermYears,omitempty"`
	PremiumPaymentMode     string   `json:"premiumPaymentMode,omitempty"`
}

// QuoteAmountResponse carries the headline amount and the per-mode
// installment breakdown.
type QuoteAmountResponse struct {
	TotalPayableINR float64  `json:"totalPayableINR"`
	YearlyINR       *float64 `json:"yearlyINR,omitempty"`
	HalfYearlyINR   *float64 `json:"halfYearlyINR,omitempty"`
	QuarterlyINR    *float64 `json:"quarterlyINR,omitempty"`
	MonthlyINR      *float64 `json:"monthlyINR,omitempty"`
	Degraded        bool     `json:"degraded,omitempty"`
	Reconciled      bool     `json:"reconciled,omitempty"`
}

// RetrievedExample is one similar historical profile returned alongside
// a generated plan.
type RetrievedExample struct {
	ID         int      `json:"id"`
	Score      float64  `json:"score"`
	Snippet    string   `json:"snippet"`
	PremiumINR *float64 `json:"premium_inr,omitempty"`
}

// PlanResponse is a full generated insurance plan.
type PlanResponse struct {
	PlanName           string             `json:"planName"`
	PremiumINR         float64            `json:"premiumINR"`
	SumInsured         *int               `json:"sumInsured,omitempty"`
	PolicyTermYears    *int               `json:"policyTermYears,omitempty"`
	PaymentMode        string             `json:"paymentMode,omitempty"`
	DeductibleINR      *float64           `json:"deductibleINR,omitempty"`
	CoinsurancePercent *float64           `json:"coinsurancePercent,omitempty"`
	CoverageDetails    []string           `json:"coverageDetails"`
	Rationale          string             `json:"rationale"`
	BasedOnExamples    []RetrievedExample `json:"basedOnExamples"`
	Degraded           bool               `json:"degraded,omitempty"`
}

// StatusResponse reports the vector index state.
type StatusResponse struct {
	Status        string `json:"status"`
	Count         int    `json:"count"`
	Dimension     int    `json:"dimension"`
	MetadataCount int    `json:"metadataCount"`
	Message       string `json:"message,omitempty"`
}

// AuditedQuote is one entry of the served-quote audit log.
type AuditedQuote struct {
	ID           uint      `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	Age          *int      `json:"age,omitempty"`
	Location     string    `json:"location,omitempty"`
	SumInsured   *int      `json:"sumInsured,omitempty"`
	PaymentMode  string    `json:"paymentMode,omitempty"`
	TotalPayable float64   `json:"totalPayableINR"`
	ExampleCount int       `json:"exampleCount"`
	Degraded     bool      `json:"degraded"`
	Reconciled   bool      `json:"reconciled"`
}

// AuditedQuotesResponse wraps the audit listing.
type AuditedQuotesResponse struct {
	Quotes []AuditedQuote `json:"quotes"`
}
