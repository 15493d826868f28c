package assessment

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/riskcalc/platform/internal/qdiabetes"
	"github.com/riskcalc/platform/internal/shared/errors"
	"github.com/riskcalc/platform/internal/shared/events"
	"github.com/riskcalc/platform/internal/shared/metrics"
	"github.com/riskcalc/platform/internal/shared/types"
)

// EventComputed is published after every successful assessment.
const EventComputed = "assessment.computed"

// Service computes and records assessments
type Service struct {
	repo      Repository
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates an assessment service. With a nil repo assessments are
// computed and published but not stored.
func NewService(repo Repository, publisher events.Publisher, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateRequest is the input to Create.
type CreateRequest struct {
	Variables   qdiabetes.PartialInput
	Source      Source
	PatientRef  string
	ClinicianID string
}

// Create resolves the variables, scores them and records the result.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Assessment, error) {
	in, err := req.Variables.Resolve()
	if err != nil {
		return nil, err
	}
	result, err := qdiabetes.Compute(in)
	if err != nil {
		return nil, err
	}

	source := req.Source
	if source == "" {
		source = SourceForm
	}

	a := &Assessment{
		ID:          types.NewID(),
		Source:      source,
		PatientRef:  req.PatientRef,
		ClinicianID: req.ClinicianID,
		Input:       in,
		Result:      result,
		CreatedAt:   s.now(),
	}

	if s.repo != nil {
		if err := s.repo.Save(ctx, a); err != nil {
			return nil, err
		}
		a.Stored = true
	}

	metrics.RecordAssessment(string(result.Model), string(result.RiskLevel), string(source))

	if s.publisher != nil {
		event := events.NewEvent(EventComputed, "assessment", ComputedEvent{
			AssessmentID:   a.ID,
			Source:         a.Source,
			PatientRef:     a.PatientRef,
			Model:          result.Model,
			RiskPercentage: result.RiskPercentage,
			RiskLevel:      result.RiskLevel,
		}).WithActor(req.ClinicianID)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish assessment event",
				zap.String("assessment_id", a.ID.String()),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("assessment computed",
		zap.String("assessment_id", a.ID.String()),
		zap.String("model", string(result.Model)),
		zap.String("risk_level", string(result.RiskLevel)),
		zap.Bool("stored", a.Stored),
	)
	return a, nil
}

// Get returns a stored assessment.
func (s *Service) Get(ctx context.Context, id types.ID) (*Assessment, error) {
	if s.repo == nil {
		return nil, errors.Unavailable("assessment storage")
	}
	return s.repo.FindByID(ctx, id)
}

// List returns recent stored assessments, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Assessment, error) {
	if s.repo == nil {
		return nil, errors.Unavailable("assessment storage")
	}
	return s.repo.List(ctx, filter)
}
