package his

import (
	"context"
	"errors"
	"time"
)

// ErrPatientNotFound is returned when the HIS has no patient for a reference.
var ErrPatientNotFound = errors.New("patient not found")

// Source reads the clinical records needed for a risk prefill from a
// hospital information system.
type Source interface {
	FetchPatient(ctx context.Context, patientRef string) (*Patient, error)
	FetchVitals(ctx context.Context, patientID string) ([]Vital, error)
	FetchLabResults(ctx context.Context, patientID string, since time.Time) ([]LabResult, error)
	FetchDiagnoses(ctx context.Context, patientID string) ([]Diagnosis, error)
	FetchActivePrescriptions(ctx context.Context, patientID string) ([]Prescription, error)
	Health(ctx context.Context) error
}

// Gender as recorded by the HIS.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

// Patient holds the demographic fields used by the prefill.
type Patient struct {
	ID          string
	MRN         string
	DateOfBirth time.Time
	Gender      Gender
}

// Vital codes recorded by the HIS.
const (
	VitalHeight = "HEIGHT"
	VitalWeight = "WEIGHT"
)

// Vital is a single observation, newest first when returned by a Source.
type Vital struct {
	Code       string
	Value      float64
	Unit       string
	MeasuredAt time.Time
}

// LabResult is a laboratory observation. Value is kept as recorded.
type LabResult struct {
	ID          string
	TestCode    string
	LOINCCode   string
	Value       string
	Unit        string
	CollectedAt time.Time
}

// Diagnosis is a coded problem list entry.
type Diagnosis struct {
	ICD10Code   string
	Description string
	DiagnosedAt time.Time
	ResolvedAt  *time.Time
}

// Active reports whether the diagnosis has not been resolved.
func (d Diagnosis) Active() bool {
	return d.ResolvedAt == nil
}

// Prescription is a medication order.
type Prescription struct {
	MedicationName string
	ATCCode        string
	PrescribedAt   time.Time
}
