package his

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/riskcalc/platform/internal/qdiabetes"
)

// labLookback bounds how old a lab result may be to prefill the form.
const labLookback = 2 * 365 * 24 * time.Hour

// Prefill is the set of risk variables recovered from a patient's record.
// Variables the record does not establish are left unknown; Notes explains
// anything that was found but not used.
type Prefill struct {
	PatientRef string                 `json:"patientRef"`
	Variables  qdiabetes.PartialInput `json:"variables"`
	Notes      []string               `json:"notes"`
}

// Prefiller builds risk inputs from HIS records.
type Prefiller struct {
	source Source
	logger *zap.Logger
	now    func() time.Time
}

// NewPrefiller creates a prefiller over source.
func NewPrefiller(source Source, logger *zap.Logger) *Prefiller {
	return &Prefiller{source: source, logger: logger, now: time.Now}
}

// Health checks the underlying HIS connection.
func (p *Prefiller) Health(ctx context.Context) error {
	return p.source.Health(ctx)
}

// Prefill loads the patient's record and maps it onto risk variables.
func (p *Prefiller) Prefill(ctx context.Context, patientRef string) (*Prefill, error) {
	patient, err := p.source.FetchPatient(ctx, patientRef)
	if err != nil {
		return nil, err
	}

	now := p.now()
	var (
		vitals        []Vital
		labs          []LabResult
		diagnoses     []Diagnosis
		prescriptions []Prescription
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vitals, err = p.source.FetchVitals(gctx, patient.ID)
		return err
	})
	g.Go(func() error {
		var err error
		labs, err = p.source.FetchLabResults(gctx, patient.ID, now.Add(-labLookback))
		return err
	})
	g.Go(func() error {
		var err error
		diagnoses, err = p.source.FetchDiagnoses(gctx, patient.ID)
		return err
	})
	g.Go(func() error {
		var err error
		prescriptions, err = p.source.FetchActivePrescriptions(gctx, patient.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load clinical record: %w", err)
	}

	out := &Prefill{PatientRef: patientRef, Notes: []string{}}
	v := &out.Variables

	mapDemographics(v, patient, now, out)
	mapVitals(v, vitals, out)
	mapLabs(v, labs, out)
	mapConditions(v, diagnoses, prescriptions)

	p.logger.Debug("prefill built",
		zap.String("patient_ref", patientRef),
		zap.Int("labs", len(labs)),
		zap.Int("diagnoses", len(diagnoses)),
		zap.Int("prescriptions", len(prescriptions)),
		zap.Int("notes", len(out.Notes)),
	)
	return out, nil
}

func (p *Prefill) note(format string, args ...any) {
	p.Notes = append(p.Notes, fmt.Sprintf(format, args...))
}

func mapDemographics(v *qdiabetes.PartialInput, patient *Patient, now time.Time, out *Prefill) {
	if !patient.DateOfBirth.IsZero() {
		age := ageAt(patient.DateOfBirth, now)
		v.Age = &age
	}

	switch patient.Gender {
	case GenderMale:
		sex := qdiabetes.SexMale
		v.Sex = &sex
	case GenderFemale:
		sex := qdiabetes.SexFemale
		v.Sex = &sex
	default:
		out.note("sex is not recorded as male or female")
	}
}

// ageAt returns completed years between dob and now.
func ageAt(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

func mapVitals(v *qdiabetes.PartialInput, vitals []Vital, out *Prefill) {
	for _, vital := range vitals {
		switch strings.ToUpper(vital.Code) {
		case VitalHeight:
			if v.Height != nil {
				continue
			}
			if !sameUnit(vital.Unit, unitHeight) {
				out.note("height recorded in %q was not used", vital.Unit)
				continue
			}
			h := vital.Value
			v.Height = &h
		case VitalWeight:
			if v.Weight != nil {
				continue
			}
			if !sameUnit(vital.Unit, unitWeight) {
				out.note("weight recorded in %q was not used", vital.Unit)
				continue
			}
			w := vital.Value
			v.Weight = &w
		}
	}
}

func mapLabs(v *qdiabetes.PartialInput, labs []LabResult, out *Prefill) {
	for _, lab := range labs {
		switch {
		case v.HbA1c == nil && matchesLab(lab, hba1cLOINC, hba1cTests):
			v.HbA1c = labValue(lab, unitHbA1c, "HbA1c", out)
		case v.FastingBloodGlucose == nil && matchesLab(lab, glucoseLOINC, glucoseTests):
			v.FastingBloodGlucose = labValue(lab, unitGlucose, "fasting glucose", out)
		}
	}
}

// labValue returns the numeric value of lab when it is in the accepted unit.
func labValue(lab LabResult, unit, name string, out *Prefill) *float64 {
	if !sameUnit(lab.Unit, unit) {
		out.note("%s from %s recorded in %q was skipped", name, lab.CollectedAt.Format("2006-01-02"), lab.Unit)
		return nil
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(lab.Value), ",", "."), 64)
	if err != nil || value <= 0 {
		out.note("%s from %s has unreadable value %q", name, lab.CollectedAt.Format("2006-01-02"), lab.Value)
		return nil
	}
	return &value
}

func mapConditions(v *qdiabetes.PartialInput, diagnoses []Diagnosis, prescriptions []Prescription) {
	var cvd, hypertension, ld, smi, pcos, gdm, famhx bool
	for _, d := range diagnoses {
		code := normalizeICD(d.ICD10Code)
		switch {
		case hasPrefix(code, cardiovascularCodes):
			cvd = true
		case hasPrefix(code, hypertensionCodes):
			hypertension = hypertension || d.Active()
		case hasPrefix(code, learningDisabilityCodes):
			ld = true
		case hasPrefix(code, severeMentalIllnessCodes):
			smi = smi || d.Active()
		case hasPrefix(code, polycysticOvaryCodes):
			pcos = true
		case hasPrefix(code, gestationalDiabetesCodes):
			gdm = true
		case hasPrefix(code, familyHistoryDiabetesCode):
			famhx = true
		}
	}

	var statins, steroids, antipsychotics, antihypertensives bool
	for _, rx := range prescriptions {
		code := normalizeATC(rx.ATCCode)
		statins = statins || hasPrefix(code, statinCodes)
		steroids = steroids || hasPrefix(code, corticosteroidCodes)
		antipsychotics = antipsychotics || hasPrefix(code, atypicalAntipsychoticCodes)
		antihypertensives = antihypertensives || hasPrefix(code, antihypertensiveATCs)
	}

	treated := hypertension && antihypertensives

	v.CardiovascularDisease = &cvd
	v.TreatedHypertension = &treated
	v.LearningDisabilities = &ld
	v.MentalIllness = &smi
	v.FamilyHistoryDiabetes = &famhx
	v.Statins = &statins
	v.Corticosteroids = &steroids
	v.AtypicalAntipsychotics = &antipsychotics
	if v.Sex != nil && *v.Sex == qdiabetes.SexFemale {
		v.PolycysticOvaries = &pcos
		v.GestationalDiabetes = &gdm
	}
}
