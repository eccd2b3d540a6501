package profile

import (
	"fmt"
	"strconv"
	"strings"
)

// FallbackText is emitted when every profile field is absent, so the
// embedding provider never receives an empty string.
const FallbackText = "Health insurance quote request"

// EncodeText serializes the non-empty profile fields as "Label: value"
// pairs joined by single spaces, in a fixed order. Query-time encoding
// and corpus ingestion both go through this function: the embedding
// space's separability depends on the two sides using identical phrasing
// and identical field ordering, with absent fields omitted entirely.
func EncodeText(p Profile) string {
	var parts []string
	add := func(label, value string) {
		if value != "" {
			parts = append(parts, label+": "+value)
		}
	}

	add("Age", intText(p.Age))
	add("Gender", p.Gender)
	add("Location", p.Location)
	add("Occupation", p.Occupation)
	add("Members", intText(p.NumberOfInsuredMembers))
	add("Pre-existing", p.PreExistingConditions)
	add("Past", p.PastMedicalHistory)
	add("Family", p.FamilyMedicalHistory)
	if bmi, ok := p.BodyMassIndex(); ok {
		add("BMI", strconv.FormatFloat(bmi, 'f', 1, 64))
	}
	add("Pregnancy", p.PregnancyStatus)
	add("Smoking", p.SmokingTobaccoUse)
	add("Alcohol", p.AlcoholConsumption)
	add("Exercise", p.ExerciseFrequency)
	add("Plan Type", p.PlanType)
	add("Sum Insured", intText(p.SumInsured))
	add("Term", intText(p.PolicyTermYears))
	add("Payment", p.PremiumPaymentMode)
	add("Medical History", p.MedicalHistory)
	add("Lifestyle", p.Lifestyle)
	add("Coverage Need", p.CoverageNeed)

	if len(parts) == 0 {
		return FallbackText
	}
	return strings.Join(parts, " ")
}

// Summary renders the profile as a short multi-line block for generation
// prompts, with stated placeholders for absent fields.
func Summary(p Profile) string {
	value := func(s string, fallback string) string {
		if s == "" {
			return fallback
		}
		return s
	}

	lines := []string{
		"- Age: " + value(intText(p.Age), "Not specified"),
		"- Gender: " + value(p.Gender, "Not specified"),
		"- Location: " + value(p.Location, "Not specified"),
		"- Occupation: " + value(p.Occupation, "Not specified"),
		"- Medical History: " + value(p.MedicalHistory, "Not specified"),
		"- Pre-existing Conditions: " + value(p.PreExistingConditions, "None"),
		"- Lifestyle: " + value(p.Lifestyle, "Not specified"),
		"- Coverage Need: " + value(p.CoverageNeed, "Standard"),
		"- Sum Insured: " + value(intText(p.SumInsured), "Not specified"),
	}
	return strings.Join(lines, "\n")
}

func intText(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}
