package sqlserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/denisenkom/go-mssqldb" // SQL Server driver

	"github.com/riskcalc/platform/internal/adapters/his"
	"github.com/riskcalc/platform/internal/shared/config"
)

// Tables names the HIS tables read by the adapter.
type Tables struct {
	Patients      string
	Vitals        string
	LabResults    string
	Prescriptions string
	Diagnoses     string
}

// DefaultTables returns the standard dbo schema layout.
func DefaultTables() Tables {
	return Tables{
		Patients:      "dbo.Patients",
		Vitals:        "dbo.Vitals",
		LabResults:    "dbo.LabResults",
		Prescriptions: "dbo.Prescriptions",
		Diagnoses:     "dbo.Diagnoses",
	}
}

// Adapter implements his.Source over a SQL Server HIS database.
type Adapter struct {
	db     *sql.DB
	tables Tables
}

// New opens a connection pool to the HIS database and verifies it.
func New(ctx context.Context, cfg config.HISConfig) (*Adapter, error) {
	db, err := sql.Open("sqlserver", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open HIS database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping HIS database: %w", err)
	}

	return NewWithDB(db, DefaultTables()), nil
}

// NewWithDB wraps an existing connection pool.
func NewWithDB(db *sql.DB, tables Tables) *Adapter {
	return &Adapter{db: db, tables: tables}
}

// Close closes the connection pool
func (a *Adapter) Close() error {
	return a.db.Close()
}

// Health checks database connectivity
func (a *Adapter) Health(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

// FetchPatient looks a patient up by medical record number.
func (a *Adapter) FetchPatient(ctx context.Context, patientRef string) (*his.Patient, error) {
	query := fmt.Sprintf(`
		SELECT PatientID, MRN, DateOfBirth, Gender
		FROM %s
		WHERE MRN = @mrn
	`, a.tables.Patients)

	var p his.Patient
	var dob sql.NullTime
	var gender sql.NullString

	err := a.db.QueryRowContext(ctx, query, sql.Named("mrn", patientRef)).Scan(&p.ID, &p.MRN, &dob, &gender)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", his.ErrPatientNotFound, patientRef)
		}
		return nil, fmt.Errorf("failed to fetch patient: %w", err)
	}

	if dob.Valid {
		p.DateOfBirth = dob.Time
	}
	p.Gender = mapGender(gender.String)
	return &p, nil
}

// FetchVitals returns height and weight observations, newest first.
func (a *Adapter) FetchVitals(ctx context.Context, patientID string) ([]his.Vital, error) {
	query := fmt.Sprintf(`
		SELECT Code, Value, Unit, MeasuredAt
		FROM %s
		WHERE PatientID = @patientID
		  AND Code IN ('HEIGHT', 'WEIGHT')
		ORDER BY MeasuredAt DESC
	`, a.tables.Vitals)

	rows, err := a.db.QueryContext(ctx, query, sql.Named("patientID", patientID))
	if err != nil {
		return nil, fmt.Errorf("failed to query vitals: %w", err)
	}
	defer rows.Close()

	var vitals []his.Vital
	for rows.Next() {
		var v his.Vital
		var unit sql.NullString
		if err := rows.Scan(&v.Code, &v.Value, &unit, &v.MeasuredAt); err != nil {
			return nil, fmt.Errorf("failed to scan vital: %w", err)
		}
		v.Unit = unit.String
		vitals = append(vitals, v)
	}
	return vitals, rows.Err()
}

// FetchLabResults returns lab results collected since the given time, newest first.
func (a *Adapter) FetchLabResults(ctx context.Context, patientID string, since time.Time) ([]his.LabResult, error) {
	query := fmt.Sprintf(`
		SELECT LabResultID, TestCode, LOINCCode, Value, Unit, CollectedAt
		FROM %s
		WHERE PatientID = @patientID
		  AND CollectedAt >= @since
		ORDER BY CollectedAt DESC
	`, a.tables.LabResults)

	rows, err := a.db.QueryContext(ctx, query,
		sql.Named("patientID", patientID),
		sql.Named("since", since),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query lab results: %w", err)
	}
	defer rows.Close()

	var results []his.LabResult
	for rows.Next() {
		var r his.LabResult
		var loinc, unit sql.NullString
		if err := rows.Scan(&r.ID, &r.TestCode, &loinc, &r.Value, &unit, &r.CollectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan lab result: %w", err)
		}
		r.LOINCCode = loinc.String
		r.Unit = unit.String
		results = append(results, r)
	}
	return results, rows.Err()
}

// FetchDiagnoses returns the full problem list, resolved entries included.
func (a *Adapter) FetchDiagnoses(ctx context.Context, patientID string) ([]his.Diagnosis, error) {
	query := fmt.Sprintf(`
		SELECT ICD10Code, Description, DiagnosedAt, ResolvedAt
		FROM %s
		WHERE PatientID = @patientID
		ORDER BY DiagnosedAt DESC
	`, a.tables.Diagnoses)

	rows, err := a.db.QueryContext(ctx, query, sql.Named("patientID", patientID))
	if err != nil {
		return nil, fmt.Errorf("failed to query diagnoses: %w", err)
	}
	defer rows.Close()

	var diagnoses []his.Diagnosis
	for rows.Next() {
		var d his.Diagnosis
		var description sql.NullString
		var resolvedAt sql.NullTime
		if err := rows.Scan(&d.ICD10Code, &description, &d.DiagnosedAt, &resolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan diagnosis: %w", err)
		}
		d.Description = description.String
		if resolvedAt.Valid {
			d.ResolvedAt = &resolvedAt.Time
		}
		diagnoses = append(diagnoses, d)
	}
	return diagnoses, rows.Err()
}

// FetchActivePrescriptions returns prescriptions that are active and not expired.
func (a *Adapter) FetchActivePrescriptions(ctx context.Context, patientID string) ([]his.Prescription, error) {
	query := fmt.Sprintf(`
		SELECT MedicationName, ATCCode, PrescribedAt
		FROM %s
		WHERE PatientID = @patientID
		  AND Status = 'active'
		  AND (ValidUntil IS NULL OR ValidUntil > GETDATE())
		ORDER BY PrescribedAt DESC
	`, a.tables.Prescriptions)

	rows, err := a.db.QueryContext(ctx, query, sql.Named("patientID", patientID))
	if err != nil {
		return nil, fmt.Errorf("failed to query prescriptions: %w", err)
	}
	defer rows.Close()

	var prescriptions []his.Prescription
	for rows.Next() {
		var rx his.Prescription
		var atc sql.NullString
		if err := rows.Scan(&rx.MedicationName, &atc, &rx.PrescribedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prescription: %w", err)
		}
		rx.ATCCode = atc.String
		prescriptions = append(prescriptions, rx)
	}
	return prescriptions, rows.Err()
}

// mapGender maps HIS gender codes. Local systems use Z (zensko) for female.
func mapGender(code string) his.Gender {
	switch code {
	case "M", "m", "1":
		return his.GenderMale
	case "F", "f", "Z", "z", "2":
		return his.GenderFemale
	default:
		return his.GenderUnknown
	}
}

var _ his.Source = (*Adapter)(nil)
