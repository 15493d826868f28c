package assessment

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/riskcalc/platform/internal/qdiabetes"
	"github.com/riskcalc/platform/internal/shared/errors"
	"github.com/riskcalc/platform/internal/shared/metrics"
	"github.com/riskcalc/platform/internal/shared/types"
)

// Repository stores assessments.
type Repository interface {
	Save(ctx context.Context, a *Assessment) error
	FindByID(ctx context.Context, id types.ID) (*Assessment, error)
	List(ctx context.Context, filter ListFilter) ([]Assessment, error)
}

// PostgresRepository provides database operations for assessments
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new assessment repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Save inserts an assessment
func (r *PostgresRepository) Save(ctx context.Context, a *Assessment) error {
	defer observe("assessment_save", time.Now())

	input, err := json.Marshal(a.Input)
	if err != nil {
		return errors.Wrap(err, "failed to encode assessment input")
	}

	query := `
		INSERT INTO assessments (
			id, source, patient_ref, clinician_id, input,
			model, risk_percentage, risk_level, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.pool.Exec(ctx, query,
		a.ID, string(a.Source), nullable(a.PatientRef), nullable(a.ClinicianID), input,
		string(a.Result.Model), a.Result.RiskPercentage, string(a.Result.RiskLevel), a.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save assessment")
	}
	return nil
}

const selectColumns = `
	SELECT id, source, patient_ref, clinician_id, input,
		model, risk_percentage, risk_level, created_at
	FROM assessments`

// FindByID finds an assessment by ID
func (r *PostgresRepository) FindByID(ctx context.Context, id types.ID) (*Assessment, error) {
	defer observe("assessment_find", time.Now())

	a, err := scanAssessment(r.pool.QueryRow(ctx, selectColumns+` WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("assessment", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find assessment")
	}
	return a, nil
}

// List returns the most recent assessments, newest first
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]Assessment, error) {
	defer observe("assessment_list", time.Now())

	query := selectColumns
	args := []any{}
	if filter.PatientRef != "" {
		args = append(args, filter.PatientRef)
		query += ` WHERE patient_ref = $1`
	}
	args = append(args, filter.limit())
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list assessments")
	}
	defer rows.Close()

	out := []Assessment{}
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan assessment")
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to list assessments")
	}
	return out, nil
}

func scanAssessment(row pgx.Row) (*Assessment, error) {
	var (
		a                       Assessment
		source, model, level    string
		patientRef, clinicianID *string
		input                   []byte
	)
	err := row.Scan(
		&a.ID, &source, &patientRef, &clinicianID, &input,
		&model, &a.Result.RiskPercentage, &level, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(input, &a.Input); err != nil {
		return nil, err
	}

	a.Source = Source(source)
	a.Result.Model = qdiabetes.Model(model)
	a.Result.RiskLevel = qdiabetes.RiskLevel(level)
	if patientRef != nil {
		a.PatientRef = *patientRef
	}
	if clinicianID != nil {
		a.ClinicianID = *clinicianID
	}
	a.Stored = true
	return &a, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func observe(operation string, start time.Time) {
	metrics.RecordDBQuery(operation, time.Since(start))
}
