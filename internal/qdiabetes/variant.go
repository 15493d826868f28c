package qdiabetes

import "math"

// coefficients is one published {sex, model} table. Lab terms are zero for model A;
// the female-only flag terms are zero for men.
type coefficients struct {
	survivor  float64
	ethnicity [10]float64
	smoking   [5]float64

	age1 float64
	age2 float64
	bmi1 float64
	bmi2 float64
	lab1 float64
	lab2 float64
	town float64

	atypicalAntipsychotics float64
	corticosteroids        float64
	cardiovascularDisease  float64
	gestationalDiabetes    float64
	learningDisabilities   float64
	mentalIllness          float64
	polycysticOvaries      float64
	statins                float64
	treatedHypertension    float64
	familyHistoryDiabetes  float64

	age1AtypicalAntipsychotics float64
	age1LearningDisabilities   float64
	age1Statins                float64
	age1BMI1                   float64
	age1BMI2                   float64
	age1Lab1                   float64
	age1Lab2                   float64
	age1FamilyHistory          float64
	age2AtypicalAntipsychotics float64
	age2LearningDisabilities   float64
	age2Statins                float64
	age2BMI1                   float64
	age2BMI2                   float64
	age2Lab1                   float64
	age2Lab2                   float64
	age2FamilyHistory          float64
}

// terms holds the centred continuous covariates of one input.
type terms struct {
	age1, age2 float64
	bmi1, bmi2 float64
	lab1, lab2 float64
	town       float64
}

// variant binds a coefficient table to the transforms of its sex and model.
type variant struct {
	sex   Sex
	model Model
	coef  *coefficients

	demographics func(age int, bmi, townsend float64) terms
	// lab is nil for model A.
	lab func(v float64) (float64, float64)
}

func (v variant) terms(in ClinicalInput) terms {
	t := v.demographics(in.Age, in.BMI, in.TownsendScore)
	switch v.model {
	case ModelB:
		t.lab1, t.lab2 = v.lab(in.FastingBloodGlucose)
	case ModelC:
		t.lab1, t.lab2 = v.lab(in.HbA1c)
	}
	return t
}

// Women: square-root age, linear BMI.
func femaleDemographics(age int, bmi, townsend float64) terms {
	dage := float64(age) / 10
	dbmi := bmi / 10
	return terms{
		age1: math.Pow(dage, 0.5) - 2.123332023620606,
		age2: math.Pow(dage, 3) - 91.644744873046875,
		bmi1: dbmi - 2.571253299713135,
		bmi2: math.Pow(dbmi, 3) - 16.999439239501953,
		town: townsend - 0.391116052865982,
	}
}

// Men: log age, squared BMI.
func maleDemographics(age int, bmi, townsend float64) terms {
	dage := float64(age) / 10
	dbmi := bmi / 10
	return terms{
		age1: math.Log(dage) - 1.496392488479614,
		age2: math.Pow(dage, 3) - 89.048171997070313,
		bmi1: math.Pow(dbmi, 2) - 6.817805767059326,
		bmi2: math.Pow(dbmi, 3) - 17.801923751831055,
		town: townsend - 0.515986680984497,
	}
}

func femaleGlucose(fbs float64) (float64, float64) {
	return math.Pow(fbs, -1) - 0.208309367299080,
		math.Pow(fbs, -1)*math.Log(fbs) - 0.326781362295151
}

func maleGlucose(fbs float64) (float64, float64) {
	return math.Pow(fbs, -0.5) - 0.448028832674026,
		math.Pow(fbs, -0.5)*math.Log(fbs) - 0.719442605972290
}

func femaleHbA1c(hba1c float64) (float64, float64) {
	d := hba1c / 10
	return math.Pow(d, 0.5) - 1.886751174926758, d - 3.559829950332642
}

func maleHbA1c(hba1c float64) (float64, float64) {
	d := hba1c / 10
	return math.Pow(d, 0.5) - 1.900265336036682, d - 3.611008167266846
}

// lookupVariant returns the variant for a validated sex and a known model.
func lookupVariant(sex Sex, model Model) (variant, bool) {
	if sex == SexFemale {
		switch model {
		case ModelA:
			return variant{sex: sex, model: model, coef: &femaleA, demographics: femaleDemographics}, true
		case ModelB:
			return variant{sex: sex, model: model, coef: &femaleB, demographics: femaleDemographics, lab: femaleGlucose}, true
		case ModelC:
			return variant{sex: sex, model: model, coef: &femaleC, demographics: femaleDemographics, lab: femaleHbA1c}, true
		}
		return variant{}, false
	}
	switch model {
	case ModelA:
		return variant{sex: sex, model: model, coef: &maleA, demographics: maleDemographics}, true
	case ModelB:
		return variant{sex: sex, model: model, coef: &maleB, demographics: maleDemographics, lab: maleGlucose}, true
	case ModelC:
		return variant{sex: sex, model: model, coef: &maleC, demographics: maleDemographics, lab: maleHbA1c}, true
	}
	return variant{}, false
}
