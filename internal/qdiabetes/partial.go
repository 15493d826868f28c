package qdiabetes

// DefaultBMI is used when neither a BMI nor a usable height and weight is known.
const DefaultBMI = 25.0

// PartialInput is a ClinicalInput in which every field may be unknown. It is the
// shape produced by the transcript extraction service and by form drafts.
// Height is in centimetres and weight in kilograms.
type PartialInput struct {
	Age       *int       `json:"age" validate:"omitempty,min=25,max=84"`
	Sex       *Sex       `json:"sex" validate:"omitempty,oneof=male female"`
	Ethnicity *Ethnicity `json:"ethnicity" validate:"omitempty,min=0,max=99"`
	Smoking   *Smoking   `json:"smoking" validate:"omitempty,min=0,max=4"`
	Height    *float64   `json:"height" validate:"omitempty,min=50,max=250"`
	Weight    *float64   `json:"weight" validate:"omitempty,min=20,max=300"`
	BMI       *float64   `json:"bmi,omitempty" validate:"omitempty,min=10,max=80"`

	FamilyHistoryDiabetes  *bool `json:"familyHistoryDiabetes"`
	CardiovascularDisease  *bool `json:"cardiovascularDisease"`
	TreatedHypertension    *bool `json:"treatedHypertension"`
	LearningDisabilities   *bool `json:"learningDisabilities"`
	MentalIllness          *bool `json:"mentalIllness"`
	Corticosteroids        *bool `json:"corticosteroids"`
	Statins                *bool `json:"statins"`
	AtypicalAntipsychotics *bool `json:"atypicalAntipsychotics"`
	PolycysticOvaries      *bool `json:"polycysticOvaries"`
	GestationalDiabetes    *bool `json:"gestationalDiabetes"`

	FastingBloodGlucose *float64 `json:"fastingBloodGlucose" validate:"omitempty,min=0,max=40"`
	HbA1c               *float64 `json:"hba1c" validate:"omitempty,min=0,max=200"`
	TownsendScore       *float64 `json:"townsendScore"`
}

// Merge returns a copy of p in which every field known in other replaces p's value.
func (p PartialInput) Merge(other PartialInput) PartialInput {
	merged := p
	setIf(&merged.Age, other.Age)
	setIf(&merged.Sex, other.Sex)
	setIf(&merged.Ethnicity, other.Ethnicity)
	setIf(&merged.Smoking, other.Smoking)
	setIf(&merged.Height, other.Height)
	setIf(&merged.Weight, other.Weight)
	setIf(&merged.BMI, other.BMI)
	setIf(&merged.FamilyHistoryDiabetes, other.FamilyHistoryDiabetes)
	setIf(&merged.CardiovascularDisease, other.CardiovascularDisease)
	setIf(&merged.TreatedHypertension, other.TreatedHypertension)
	setIf(&merged.LearningDisabilities, other.LearningDisabilities)
	setIf(&merged.MentalIllness, other.MentalIllness)
	setIf(&merged.Corticosteroids, other.Corticosteroids)
	setIf(&merged.Statins, other.Statins)
	setIf(&merged.AtypicalAntipsychotics, other.AtypicalAntipsychotics)
	setIf(&merged.PolycysticOvaries, other.PolycysticOvaries)
	setIf(&merged.GestationalDiabetes, other.GestationalDiabetes)
	setIf(&merged.FastingBloodGlucose, other.FastingBloodGlucose)
	setIf(&merged.HbA1c, other.HbA1c)
	setIf(&merged.TownsendScore, other.TownsendScore)
	return merged
}

func setIf[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

// Complete reports whether the mandatory age and sex are known.
func (p PartialInput) Complete() bool {
	return p.Age != nil && *p.Age > 0 && p.Sex != nil && *p.Sex != ""
}

// ResolvedBMI returns the explicit BMI when positive, else the BMI derived from
// height and weight, else DefaultBMI.
func (p PartialInput) ResolvedBMI() float64 {
	if p.BMI != nil && *p.BMI > 0 {
		return *p.BMI
	}
	if p.Height != nil && p.Weight != nil {
		if bmi, ok := BMI(*p.Height, *p.Weight); ok {
			return bmi
		}
	}
	return DefaultBMI
}

// Resolve applies the documented defaults and returns a scoreable input.
// Age and sex have no default; their absence is an ErrInvalidInput.
// Lab values pass through unchanged.
func (p PartialInput) Resolve() (ClinicalInput, error) {
	if p.Age == nil || *p.Age <= 0 {
		return ClinicalInput{}, &InputError{Field: "age", Reason: "is required"}
	}
	if p.Sex == nil || *p.Sex == "" {
		return ClinicalInput{}, &InputError{Field: "sex", Reason: "is required"}
	}

	in := ClinicalInput{
		Age:                    *p.Age,
		Sex:                    *p.Sex,
		Ethnicity:              valueOr(p.Ethnicity, EthnicityWhiteOrNotStated),
		Smoking:                valueOr(p.Smoking, SmokingNon),
		BMI:                    p.ResolvedBMI(),
		FamilyHistoryDiabetes:  valueOr(p.FamilyHistoryDiabetes, false),
		CardiovascularDisease:  valueOr(p.CardiovascularDisease, false),
		TreatedHypertension:    valueOr(p.TreatedHypertension, false),
		LearningDisabilities:   valueOr(p.LearningDisabilities, false),
		MentalIllness:          valueOr(p.MentalIllness, false),
		Corticosteroids:        valueOr(p.Corticosteroids, false),
		Statins:                valueOr(p.Statins, false),
		AtypicalAntipsychotics: valueOr(p.AtypicalAntipsychotics, false),
		PolycysticOvaries:      valueOr(p.PolycysticOvaries, false),
		GestationalDiabetes:    valueOr(p.GestationalDiabetes, false),
		FastingBloodGlucose:    valueOr(p.FastingBloodGlucose, 0),
		HbA1c:                  valueOr(p.HbA1c, 0),
		TownsendScore:          valueOr(p.TownsendScore, 0),
	}
	if err := in.validate(); err != nil {
		return ClinicalInput{}, err
	}
	return in, nil
}

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

// BMI computes kg/m² from a height in centimetres and a weight in kilograms.
// ok is false unless both are positive.
func BMI(heightCm, weightKg float64) (bmi float64, ok bool) {
	if !(heightCm > 0) || !(weightKg > 0) {
		return 0, false
	}
	h := heightCm / 100
	return weightKg / (h * h), true
}

// Partial converts a complete input back into a PartialInput with every field set.
func (in ClinicalInput) Partial() PartialInput {
	p := PartialInput{
		Age:                    ptr(in.Age),
		Sex:                    ptr(in.Sex),
		Ethnicity:              ptr(in.Ethnicity),
		Smoking:                ptr(in.Smoking),
		BMI:                    ptr(in.BMI),
		FamilyHistoryDiabetes:  ptr(in.FamilyHistoryDiabetes),
		CardiovascularDisease:  ptr(in.CardiovascularDisease),
		TreatedHypertension:    ptr(in.TreatedHypertension),
		LearningDisabilities:   ptr(in.LearningDisabilities),
		MentalIllness:          ptr(in.MentalIllness),
		Corticosteroids:        ptr(in.Corticosteroids),
		Statins:                ptr(in.Statins),
		AtypicalAntipsychotics: ptr(in.AtypicalAntipsychotics),
		PolycysticOvaries:      ptr(in.PolycysticOvaries),
		GestationalDiabetes:    ptr(in.GestationalDiabetes),
		TownsendScore:          ptr(in.TownsendScore),
	}
	if in.FastingBloodGlucose > 0 {
		p.FastingBloodGlucose = ptr(in.FastingBloodGlucose)
	}
	if in.HbA1c > 0 {
		p.HbA1c = ptr(in.HbA1c)
	}
	return p
}

func ptr[T any](v T) *T {
	return &v
}
