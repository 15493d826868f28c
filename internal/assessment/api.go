package assessment

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/riskcalc/platform/internal/adapters/his"
	"github.com/riskcalc/platform/internal/qdiabetes"
	"github.com/riskcalc/platform/internal/shared/auth"
	"github.com/riskcalc/platform/internal/shared/errors"
	"github.com/riskcalc/platform/internal/shared/metrics"
	"github.com/riskcalc/platform/internal/shared/types"
	"github.com/riskcalc/platform/internal/shared/validation"
)

// Prefiller builds partial inputs from a hospital information system.
type Prefiller interface {
	Prefill(ctx context.Context, patientRef string) (*his.Prefill, error)
}

// Handler provides HTTP handlers for the assessment module
type Handler struct {
	service   *Service
	prefiller Prefiller
	logger    *zap.Logger
}

// NewHandler creates a new assessment handler. prefiller may be nil when no
// HIS is configured.
func NewHandler(service *Service, prefiller Prefiller, logger *zap.Logger) *Handler {
	return &Handler{service: service, prefiller: prefiller, logger: logger}
}

// Routes registers the assessment routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListAssessments)
	r.Post("/", h.CreateAssessment)

	// Stateless calculations
	r.Post("/projection", h.Project)
	r.Post("/breakdown", h.Breakdown)

	r.Get("/{assessmentID}", h.GetAssessment)

	return r
}

// ReferenceRoutes registers the reference data routes
func (h *Handler) ReferenceRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/options", h.GetOptions)
	return r
}

// PatientRoutes registers the HIS-backed patient routes
func (h *Handler) PatientRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{patientRef}/prefill", h.GetPrefill)
	return r
}

// createMeta holds the request fields that sit alongside the variables.
type createMeta struct {
	Source     Source `json:"source" validate:"omitempty,oneof=form voice his cli"`
	PatientRef string `json:"patientRef" validate:"omitempty,max=128"`
}

// CreateAssessment scores a PartialInput and records the result
func (h *Handler) CreateAssessment(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, errors.BadRequest("failed to read request body"))
		return
	}

	var variables qdiabetes.PartialInput
	var meta createMeta
	if err := json.Unmarshal(body, &variables); err != nil {
		writeError(w, errors.BadRequest("invalid request body: "+err.Error()))
		return
	}
	if err := json.Unmarshal(body, &meta); err != nil {
		writeError(w, errors.BadRequest("invalid request body: "+err.Error()))
		return
	}
	if err := validation.Struct(variables); err != nil {
		writeError(w, err)
		return
	}
	if err := validation.Struct(meta); err != nil {
		writeError(w, err)
		return
	}

	req := CreateRequest{
		Variables:  variables,
		Source:     meta.Source,
		PatientRef: meta.PatientRef,
	}
	if user := auth.GetUser(r.Context()); user != nil {
		req.ClinicianID = user.ID
	}

	a, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeError(w, errors.FromDomain(err))
		return
	}

	writeJSON(w, http.StatusCreated, a)
}

// ListAssessments lists recent assessments
func (h *Handler) ListAssessments(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{PatientRef: r.URL.Query().Get("patientRef")}

	if l := r.URL.Query().Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 1 {
			writeError(w, errors.BadRequest("limit must be a positive integer"))
			return
		}
		filter.Limit = limit
	}

	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, errors.FromDomain(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  list,
		"total": len(list),
		"limit": filter.limit(),
	})
}

// GetAssessment returns one assessment
func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "assessmentID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid assessment ID"))
		return
	}

	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, errors.FromDomain(err))
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// Project compares the current risk with the risk after modifiable factors
// reach their targets
func (h *Handler) Project(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}

	projection, err := qdiabetes.Project(in)
	if err != nil {
		writeError(w, errors.FromDomain(err))
		return
	}

	writeJSON(w, http.StatusOK, projection)
}

// BreakdownResponse explains a score factor by factor.
type BreakdownResponse struct {
	Result    qdiabetes.RiskResult `json:"result"`
	Breakdown qdiabetes.Breakdown  `json:"breakdown"`
	Factors   []qdiabetes.Factor   `json:"factors"`
}

// Breakdown returns the per-factor contributions behind a score
func (h *Handler) Breakdown(w http.ResponseWriter, r *http.Request) {
	var p qdiabetes.PartialInput
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, errors.BadRequest("invalid request body: "+err.Error()))
		return
	}
	in, ok := resolve(w, p)
	if !ok {
		return
	}

	result, err := qdiabetes.Compute(in)
	if err != nil {
		writeError(w, errors.FromDomain(err))
		return
	}
	breakdown, err := qdiabetes.Explain(in)
	if err != nil {
		writeError(w, errors.FromDomain(err))
		return
	}

	writeJSON(w, http.StatusOK, BreakdownResponse{
		Result:    result,
		Breakdown: breakdown,
		Factors:   qdiabetes.Factors(p),
	})
}

// GetOptions returns the categorical code tables
func (h *Handler) GetOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ethnicity": qdiabetes.EthnicityOptions,
		"smoking":   qdiabetes.SmokingOptions,
	})
}

// PrefillResponse is a HIS prefill with the score when age and sex are known.
type PrefillResponse struct {
	*his.Prefill
	Result  *qdiabetes.RiskResult `json:"result,omitempty"`
	Factors []qdiabetes.Factor    `json:"factors"`
}

// GetPrefill loads a patient's variables from the HIS
func (h *Handler) GetPrefill(w http.ResponseWriter, r *http.Request) {
	if h.prefiller == nil {
		writeError(w, errors.Unavailable("HIS"))
		return
	}

	patientRef := chi.URLParam(r, "patientRef")
	prefill, err := h.prefiller.Prefill(r.Context(), patientRef)
	if err != nil {
		if stderrors.Is(err, his.ErrPatientNotFound) {
			metrics.RecordHISPrefill("not_found")
			writeError(w, errors.NotFound("patient", patientRef))
			return
		}
		metrics.RecordHISPrefill("error")
		h.logger.Error("HIS prefill failed", zap.String("patient_ref", patientRef), zap.Error(err))
		writeError(w, errors.Wrap(err, "failed to load patient record"))
		return
	}
	metrics.RecordHISPrefill("ok")

	resp := PrefillResponse{Prefill: prefill, Factors: qdiabetes.Factors(prefill.Variables)}
	if prefill.Variables.Complete() {
		if in, err := prefill.Variables.Resolve(); err == nil {
			if result, err := qdiabetes.Compute(in); err == nil {
				resp.Result = &result
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// decodeInput reads a PartialInput body and resolves it. It writes the error
// response itself and reports whether the caller should continue.
func decodeInput(w http.ResponseWriter, r *http.Request) (qdiabetes.ClinicalInput, bool) {
	var p qdiabetes.PartialInput
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, errors.BadRequest("invalid request body: "+err.Error()))
		return qdiabetes.ClinicalInput{}, false
	}
	return resolve(w, p)
}

func resolve(w http.ResponseWriter, p qdiabetes.PartialInput) (qdiabetes.ClinicalInput, bool) {
	if err := validation.Struct(p); err != nil {
		writeError(w, err)
		return qdiabetes.ClinicalInput{}, false
	}
	in, err := p.Resolve()
	if err != nil {
		writeError(w, errors.FromDomain(err))
		return qdiabetes.ClinicalInput{}, false
	}
	return in, true
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
