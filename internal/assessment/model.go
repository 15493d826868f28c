package assessment

import (
	"time"

	"github.com/riskcalc/platform/internal/qdiabetes"
	"github.com/riskcalc/platform/internal/shared/types"
)

// Source records how the variables of an assessment were gathered.
type Source string

const (
	SourceForm  Source = "form"
	SourceVoice Source = "voice"
	SourceHIS   Source = "his"
	SourceCLI   Source = "cli"
)

// Assessment is a computed QDiabetes score together with the input it was
// computed from.
type Assessment struct {
	ID          types.ID                `json:"id"`
	Source      Source                  `json:"source"`
	PatientRef  string                  `json:"patientRef,omitempty"`
	ClinicianID string                  `json:"clinicianId,omitempty"`
	Input       qdiabetes.ClinicalInput `json:"input"`
	Result      qdiabetes.RiskResult    `json:"result"`
	Stored      bool                    `json:"stored"`
	CreatedAt   time.Time               `json:"createdAt"`
}

// ListFilter selects recent assessments.
type ListFilter struct {
	PatientRef string
	Limit      int
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func (f ListFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return defaultListLimit
	case f.Limit > maxListLimit:
		return maxListLimit
	default:
		return f.Limit
	}
}

// ComputedEvent is the payload of the assessment.computed event.
type ComputedEvent struct {
	AssessmentID   types.ID            `json:"assessment_id"`
	Source         Source              `json:"source"`
	PatientRef     string              `json:"patient_ref,omitempty"`
	Model          qdiabetes.Model     `json:"model"`
	RiskPercentage float64             `json:"risk_percentage"`
	RiskLevel      qdiabetes.RiskLevel `json:"risk_level"`
}
