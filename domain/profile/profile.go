// Package profile defines the customer profile submitted for pricing and
// its canonical text encoding.
package profile

import (
	"errors"
	"fmt"
)

// ErrValidation indicates a malformed or out-of-range profile. Requests
// carrying such a profile are rejected before any pricing or retrieval.
var ErrValidation = errors.New("invalid profile")

// Profile holds the customer attributes used for pricing and similarity
// retrieval. Every field is optional: nil pointers and empty strings mean
// "not provided", and each downstream consumer applies its own documented
// default.
type Profile struct {
	Age        *int
	Gender     string
	Location   string
	Occupation string

	MedicalHistory string
	Lifestyle      string
	CoverageNeed   string

	NumberOfInsuredMembers *int
	FamilyDetails          string

	PreExistingConditions string
	PastMedicalHistory    string
	FamilyMedicalHistory  string

	HeightCM *float64
	WeightKG *float64
	BMI      *float64

	PregnancyStatus    string
	SmokingTobaccoUse  string
	AlcoholConsumption string
	ExerciseFrequency  string

	PlanType           string
	SumInsured         *int
	PolicyTermYears    *int
	PremiumPaymentMode string
}

// Validate checks the range invariants of the provided fields. Absent
// fields are always valid.
func (p Profile) Validate() error {
	if p.Age != nil && (*p.Age < 0 || *p.Age > 120) {
		return fmt.Errorf("%w: age must be between 0 and 120, got %d", ErrValidation, *p.Age)
	}
	if p.SumInsured != nil && *p.SumInsured <= 0 {
		return fmt.Errorf("%w: sum insured must be positive, got %d", ErrValidation, *p.SumInsured)
	}
	if p.PolicyTermYears != nil && *p.PolicyTermYears <= 0 {
		return fmt.Errorf("%w: policy term must be positive, got %d", ErrValidation, *p.PolicyTermYears)
	}
	if p.NumberOfInsuredMembers != nil && *p.NumberOfInsuredMembers <= 0 {
		return fmt.Errorf("%w: insured members must be positive, got %d", ErrValidation, *p.NumberOfInsuredMembers)
	}
	return nil
}

// BodyMassIndex returns the profile's BMI, preferring an explicitly
// provided value and otherwise deriving it from height and weight.
// The second return value is false when the BMI cannot be determined.
func (p Profile) BodyMassIndex() (float64, bool) {
	if p.BMI != nil {
		return *p.BMI, true
	}
	if p.HeightCM != nil && p.WeightKG != nil && *p.HeightCM > 0 {
		meters := *p.HeightCM / 100.0
		return *p.WeightKG / (meters * meters), true
	}
	return 0, false
}
