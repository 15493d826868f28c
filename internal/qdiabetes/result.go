package qdiabetes

// Model identifies the fitted variant used for a score.
type Model string

const (
	ModelA Model = "A" // no lab values
	ModelB Model = "B" // fasting blood glucose
	ModelC Model = "C" // HbA1c
)

// RiskLevel is the clinical tier of a 10-year risk percentage.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelModerate RiskLevel = "moderate"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelVeryHigh RiskLevel = "very-high"
)

// Tier boundaries, in percent.
const (
	moderateThreshold = 5.6
	highThreshold     = 10
	veryHighThreshold = 20
)

// RiskLevelFromPercentage derives the tier for a risk percentage.
func RiskLevelFromPercentage(p float64) RiskLevel {
	switch {
	case p < moderateThreshold:
		return RiskLevelLow
	case p < highThreshold:
		return RiskLevelModerate
	case p < veryHighThreshold:
		return RiskLevelHigh
	default:
		return RiskLevelVeryHigh
	}
}

// RiskResult is the engine output.
type RiskResult struct {
	RiskPercentage float64   `json:"riskPercentage"`
	RiskLevel      RiskLevel `json:"riskLevel"`
	Model          Model     `json:"model"`
}
