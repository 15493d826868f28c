package qdiabetes

// Sex selects the coefficient table set. Men and women share no coefficients.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// Valid reports whether s is one of the two modelled sexes.
func (s Sex) Valid() bool {
	return s == SexMale || s == SexFemale
}

// Ethnicity is the QDiabetes ethnicity code. Codes outside 1-9 contribute nothing.
type Ethnicity int

const (
	EthnicityWhiteOrNotStated Ethnicity = 1
	EthnicityIndian           Ethnicity = 2
	EthnicityPakistani        Ethnicity = 3
	EthnicityBangladeshi      Ethnicity = 4
	EthnicityOtherAsian       Ethnicity = 5
	EthnicityBlackCaribbean   Ethnicity = 6
	EthnicityBlackAfrican     Ethnicity = 7
	EthnicityChinese          Ethnicity = 8
	EthnicityOther            Ethnicity = 9
)

// Smoking is the QDiabetes smoking category. Codes outside 0-4 contribute nothing.
type Smoking int

const (
	SmokingNon      Smoking = 0
	SmokingEx       Smoking = 1
	SmokingLight    Smoking = 2 // less than 10 a day
	SmokingModerate Smoking = 3 // 10-19 a day
	SmokingHeavy    Smoking = 4 // 20 or more a day
)

// ClinicalInput is the complete variable record the engine scores.
//
// Units are fixed: BMI in kg/m², fasting blood glucose in mmol/L and HbA1c in
// mmol/mol. A lab value of zero means the test was not done. Age is expected to
// be within 25-84; the engine does not range-check it.
type ClinicalInput struct {
	Age       int       `json:"age"`
	Sex       Sex       `json:"sex"`
	Ethnicity Ethnicity `json:"ethnicity"`
	Smoking   Smoking   `json:"smoking"`
	BMI       float64   `json:"bmi"`

	FamilyHistoryDiabetes  bool `json:"familyHistoryDiabetes"`
	CardiovascularDisease  bool `json:"cardiovascularDisease"`
	TreatedHypertension    bool `json:"treatedHypertension"`
	LearningDisabilities   bool `json:"learningDisabilities"`
	MentalIllness          bool `json:"mentalIllness"` // manic depression or schizophrenia
	Corticosteroids        bool `json:"corticosteroids"`
	Statins                bool `json:"statins"`
	AtypicalAntipsychotics bool `json:"atypicalAntipsychotics"`

	// Female only; ignored for men.
	PolycysticOvaries   bool `json:"polycysticOvaries"`
	GestationalDiabetes bool `json:"gestationalDiabetes"`

	FastingBloodGlucose float64 `json:"fastingBloodGlucose,omitempty"`
	HbA1c               float64 `json:"hba1c,omitempty"`
	TownsendScore       float64 `json:"townsendScore"`
}

func (in ClinicalInput) validate() error {
	if in.Age <= 0 {
		return &InputError{Field: "age", Reason: "is required"}
	}
	if in.Sex == "" {
		return &InputError{Field: "sex", Reason: "is required"}
	}
	if !in.Sex.Valid() {
		return &InputError{Field: "sex", Reason: "must be male or female"}
	}
	return nil
}

// Option is a labelled categorical code.
type Option struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// EthnicityOptions lists the ethnicity codes in display order.
var EthnicityOptions = []Option{
	{Value: 1, Label: "White or not stated"},
	{Value: 2, Label: "Indian"},
	{Value: 3, Label: "Pakistani"},
	{Value: 4, Label: "Bangladeshi"},
	{Value: 5, Label: "Other Asian"},
	{Value: 6, Label: "Black Caribbean"},
	{Value: 7, Label: "Black African"},
	{Value: 8, Label: "Chinese"},
	{Value: 9, Label: "Other ethnic group"},
}

// SmokingOptions lists the smoking categories in display order.
var SmokingOptions = []Option{
	{Value: 0, Label: "Non-smoker"},
	{Value: 1, Label: "Ex-smoker"},
	{Value: 2, Label: "Light smoker (less than 10/day)"},
	{Value: 3, Label: "Moderate smoker (10-19/day)"},
	{Value: 4, Label: "Heavy smoker (20+/day)"},
}
