package qdiabetes

import "fmt"

// Contribution is one factor's share of the linear predictor, including the
// age interaction terms attributed to it.
type Contribution struct {
	Factor string  `json:"factor"`
	Value  float64 `json:"value"`
}

// Breakdown splits a score's linear predictor by factor.
type Breakdown struct {
	Model           Model          `json:"model"`
	LinearPredictor float64        `json:"linearPredictor"`
	Contributions   []Contribution `json:"contributions"`
}

// Explain returns the per-factor contributions behind Compute(in). The
// contributions sum to the linear predictor up to rounding. Factors that are
// not part of the selected model are omitted.
func Explain(in ClinicalInput) (Breakdown, error) {
	model := SelectModel(in)
	v, err := resolveVariant(in, model)
	if err != nil {
		return Breakdown{}, err
	}

	var l ledger
	l.evaluate(v, in)

	b := Breakdown{Model: model, LinearPredictor: l.a}
	for f := factor(0); f < numFactors; f++ {
		if f == factorLab && model == ModelA {
			continue
		}
		if (f == factorGestationalDiabetes || f == factorPolycysticOvaries) && in.Sex != SexFemale {
			continue
		}
		b.Contributions = append(b.Contributions, Contribution{Factor: factorNames[f], Value: l.parts[f]})
	}
	return b, nil
}

// Impact is a qualitative rating of a single risk factor.
type Impact string

const (
	ImpactNone     Impact = "none"
	ImpactLow      Impact = "low"
	ImpactModerate Impact = "moderate"
	ImpactHigh     Impact = "high"
)

// Factor is a display row describing a risk factor and its impact.
type Factor struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Impact      Impact `json:"impact"`
	Description string `json:"description"`
}

// Factors rates the headline risk factors of a (possibly partial) input for display.
func Factors(p PartialInput) []Factor {
	age := Factor{Name: "Age", Value: "N/A", Impact: ImpactNone, Description: "Older age increases diabetes risk"}
	if p.Age != nil && *p.Age > 0 {
		age.Value = fmt.Sprintf("%d years", *p.Age)
		age.Impact = ImpactModerate
		if *p.Age > 45 {
			age.Impact = ImpactHigh
		}
	}

	bmi := Factor{Name: "BMI", Value: "N/A", Impact: ImpactLow, Description: "Body Mass Index is a key risk factor"}
	if v, ok := knownBMI(p); ok {
		bmi.Value = fmt.Sprintf("%.1f", v)
		switch {
		case v > 30:
			bmi.Impact = ImpactHigh
		case v > 25:
			bmi.Impact = ImpactModerate
		}
	}

	smoking := Factor{Name: "Smoking", Value: "Never", Impact: ImpactLow, Description: "Smoking status affects diabetes risk"}
	if p.Smoking != nil {
		switch {
		case *p.Smoking > SmokingEx:
			smoking.Value, smoking.Impact = "Active", ImpactHigh
		case *p.Smoking == SmokingEx:
			smoking.Value, smoking.Impact = "Former", ImpactModerate
		}
	}

	return []Factor{
		age,
		bmi,
		smoking,
		yesNo("Family History", p.FamilyHistoryDiabetes, ImpactHigh, "Family history is a strong predictor"),
		yesNo("CVD", p.CardiovascularDisease, ImpactHigh, "Cardiovascular disease increases risk"),
		yesNo("Hypertension", p.TreatedHypertension, ImpactModerate, "High blood pressure increases risk"),
	}
}

func knownBMI(p PartialInput) (float64, bool) {
	if p.BMI != nil && *p.BMI > 0 {
		return *p.BMI, true
	}
	if p.Height != nil && p.Weight != nil {
		return BMI(*p.Height, *p.Weight)
	}
	return 0, false
}

func yesNo(name string, flag *bool, present Impact, description string) Factor {
	f := Factor{Name: name, Value: "No", Impact: ImpactLow, Description: description}
	if flag != nil && *flag {
		f.Value, f.Impact = "Yes", present
	}
	return f
}
