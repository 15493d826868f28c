package qdiabetes

import "fmt"

// Targets applied by Project to the modifiable factors.
const (
	TargetBMI                 = 25.0 // kg/m²
	TargetFastingBloodGlucose = 5.9  // mmol/L
	TargetHbA1c               = 38.0 // mmol/mol, equivalent to 5.6%
)

// Projection compares the current risk with the risk after lifestyle and
// treatment changes.
type Projection struct {
	Current      RiskResult `json:"current"`
	Projected    RiskResult `json:"projected"`
	Reduction    float64    `json:"reduction"`
	Improvement  float64    `json:"improvementPercent"`
	Improvements []string   `json:"improvements"`
}

// Project scores the input as-is and again with smoking stopped, BMI reduced to
// TargetBMI, hypertension controlled and lab values brought to target. Factors
// that cannot be modified are left unchanged. Both scores use the same model.
func Project(in ClinicalInput) (Projection, error) {
	current, err := Compute(in)
	if err != nil {
		return Projection{}, err
	}

	improved := in
	var improvements []string

	if in.Smoking > SmokingNon {
		improvements = append(improvements, "Quit smoking")
	}
	improved.Smoking = SmokingNon

	if in.BMI > TargetBMI {
		improvements = append(improvements, fmt.Sprintf("Reduce BMI to %.0f (from %.1f)", TargetBMI, in.BMI))
		improved.BMI = TargetBMI
	}

	if in.TreatedHypertension {
		improvements = append(improvements, "Manage hypertension")
	}
	improved.TreatedHypertension = false

	if in.FastingBloodGlucose > TargetFastingBloodGlucose {
		improvements = append(improvements, "Improve fasting glucose")
		improved.FastingBloodGlucose = TargetFastingBloodGlucose
	}
	if in.HbA1c > TargetHbA1c {
		improvements = append(improvements, "Improve HbA1c")
		improved.HbA1c = TargetHbA1c
	}

	projected, err := ComputeModel(improved, current.Model)
	if err != nil {
		return Projection{}, err
	}

	p := Projection{
		Current:      current,
		Projected:    projected,
		Reduction:    current.RiskPercentage - projected.RiskPercentage,
		Improvements: improvements,
	}
	if current.RiskPercentage > 0 {
		p.Improvement = p.Reduction / current.RiskPercentage * 100
	}
	if p.Improvements == nil {
		p.Improvements = []string{}
	}
	return p, nil
}
