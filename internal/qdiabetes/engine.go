// Package qdiabetes implements the QDiabetes-2018 10-year type 2 diabetes risk score.
package qdiabetes

import "math"

// SelectModel picks the most specific model the input supports:
// HbA1c first, then fasting blood glucose, then the baseline model.
func SelectModel(in ClinicalInput) Model {
	switch {
	case in.HbA1c > 0:
		return ModelC
	case in.FastingBloodGlucose > 0:
		return ModelB
	default:
		return ModelA
	}
}

// Compute scores the input with the model chosen by SelectModel.
// It returns ErrInvalidInput when age or sex is missing.
func Compute(in ClinicalInput) (RiskResult, error) {
	if err := in.validate(); err != nil {
		return RiskResult{}, err
	}
	return ComputeModel(in, SelectModel(in))
}

// ComputeModel scores the input with a specific model. Model B requires a
// positive fasting blood glucose and model C a positive HbA1c; otherwise
// ErrInvalidInput is returned. There is no fallback to a less specific model.
func ComputeModel(in ClinicalInput, model Model) (RiskResult, error) {
	v, err := resolveVariant(in, model)
	if err != nil {
		return RiskResult{}, err
	}

	var l ledger
	l.evaluate(v, in)
	risk := survival(v.coef.survivor, l.a)

	return RiskResult{
		RiskPercentage: clamp(risk, 0, 100),
		// Tiering uses the unclamped value.
		RiskLevel: RiskLevelFromPercentage(risk),
		Model:     model,
	}, nil
}

func resolveVariant(in ClinicalInput, model Model) (variant, error) {
	if err := in.validate(); err != nil {
		return variant{}, err
	}
	switch model {
	case ModelB:
		if !(in.FastingBloodGlucose > 0) {
			return variant{}, &InputError{Field: "fastingBloodGlucose", Reason: "is required for model B"}
		}
	case ModelC:
		if !(in.HbA1c > 0) {
			return variant{}, &InputError{Field: "hba1c", Reason: "is required for model C"}
		}
	}
	v, ok := lookupVariant(in.Sex, model)
	if !ok {
		return variant{}, &InputError{Field: "model", Reason: "must be A, B or C"}
	}
	return v, nil
}

// survival converts a linear predictor into a percentage risk.
func survival(s0, a float64) float64 {
	return 100.0 * (1 - math.Pow(s0, math.Exp(a)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// factor groups linear predictor terms for explanation. Interaction terms are
// attributed to the non-age covariate they multiply.
type factor int

const (
	factorEthnicity factor = iota
	factorSmoking
	factorAge
	factorBMI
	factorLab
	factorTownsend
	factorAtypicalAntipsychotics
	factorCorticosteroids
	factorCardiovascularDisease
	factorGestationalDiabetes
	factorLearningDisabilities
	factorMentalIllness
	factorPolycysticOvaries
	factorStatins
	factorTreatedHypertension
	factorFamilyHistory
	numFactors
)

var factorNames = [numFactors]string{
	"ethnicity",
	"smoking",
	"age",
	"bmi",
	"lab",
	"townsend",
	"atypicalAntipsychotics",
	"corticosteroids",
	"cardiovascularDisease",
	"gestationalDiabetes",
	"learningDisabilities",
	"mentalIllness",
	"polycysticOvaries",
	"statins",
	"treatedHypertension",
	"familyHistoryDiabetes",
}

// ledger accumulates the linear predictor and its per-factor split.
type ledger struct {
	a     float64
	parts [numFactors]float64
}

func (l *ledger) add(f factor, v float64) {
	l.a += v
	l.parts[f] += v
}

func (l *ledger) evaluate(v variant, in ClinicalInput) {
	c := v.coef
	t := v.terms(in)
	female := v.sex == SexFemale
	hasLab := v.lab != nil

	atyp := b2f(in.AtypicalAntipsychotics)
	ld := b2f(in.LearningDisabilities)
	statins := b2f(in.Statins)
	fh := b2f(in.FamilyHistoryDiabetes)

	l.add(factorEthnicity, lookup(c.ethnicity[:], int(in.Ethnicity)))
	l.add(factorSmoking, lookup(c.smoking[:], int(in.Smoking)))

	l.add(factorAge, t.age1*c.age1)
	l.add(factorAge, t.age2*c.age2)
	l.add(factorBMI, t.bmi1*c.bmi1)
	l.add(factorBMI, t.bmi2*c.bmi2)
	if hasLab {
		l.add(factorLab, t.lab1*c.lab1)
		l.add(factorLab, t.lab2*c.lab2)
	}
	l.add(factorTownsend, t.town*c.town)

	l.add(factorAtypicalAntipsychotics, atyp*c.atypicalAntipsychotics)
	l.add(factorCorticosteroids, b2f(in.Corticosteroids)*c.corticosteroids)
	l.add(factorCardiovascularDisease, b2f(in.CardiovascularDisease)*c.cardiovascularDisease)
	if female {
		l.add(factorGestationalDiabetes, b2f(in.GestationalDiabetes)*c.gestationalDiabetes)
	}
	l.add(factorLearningDisabilities, ld*c.learningDisabilities)
	l.add(factorMentalIllness, b2f(in.MentalIllness)*c.mentalIllness)
	if female {
		l.add(factorPolycysticOvaries, b2f(in.PolycysticOvaries)*c.polycysticOvaries)
	}
	l.add(factorStatins, statins*c.statins)
	l.add(factorTreatedHypertension, b2f(in.TreatedHypertension)*c.treatedHypertension)
	l.add(factorFamilyHistory, fh*c.familyHistoryDiabetes)

	l.add(factorAtypicalAntipsychotics, t.age1*atyp*c.age1AtypicalAntipsychotics)
	l.add(factorLearningDisabilities, t.age1*ld*c.age1LearningDisabilities)
	l.add(factorStatins, t.age1*statins*c.age1Statins)
	l.add(factorBMI, t.age1*t.bmi1*c.age1BMI1)
	l.add(factorBMI, t.age1*t.bmi2*c.age1BMI2)
	if hasLab {
		l.add(factorLab, t.age1*t.lab1*c.age1Lab1)
		l.add(factorLab, t.age1*t.lab2*c.age1Lab2)
	}
	l.add(factorFamilyHistory, t.age1*fh*c.age1FamilyHistory)

	l.add(factorAtypicalAntipsychotics, t.age2*atyp*c.age2AtypicalAntipsychotics)
	l.add(factorLearningDisabilities, t.age2*ld*c.age2LearningDisabilities)
	l.add(factorStatins, t.age2*statins*c.age2Statins)
	l.add(factorBMI, t.age2*t.bmi1*c.age2BMI1)
	l.add(factorBMI, t.age2*t.bmi2*c.age2BMI2)
	if hasLab {
		l.add(factorLab, t.age2*t.lab1*c.age2Lab1)
		l.add(factorLab, t.age2*t.lab2*c.age2Lab2)
	}
	l.add(factorFamilyHistory, t.age2*fh*c.age2FamilyHistory)
}

// lookup indexes a categorical table, treating unknown codes as zero.
func lookup(table []float64, code int) float64 {
	if code < 0 || code >= len(table) {
		return 0
	}
	return table[code]
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
