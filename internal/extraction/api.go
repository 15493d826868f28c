package extraction

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/riskcalc/platform/internal/qdiabetes"
	apperrors "github.com/riskcalc/platform/internal/shared/errors"
	"github.com/riskcalc/platform/internal/shared/middleware"
	"github.com/riskcalc/platform/internal/shared/validation"
)

// Handler provides HTTP handlers for transcript extraction
type Handler struct {
	service *Service
	limiter *middleware.IPRateLimiter
	logger  *zap.Logger
}

// NewHandler creates a new extraction handler. limiter may be nil.
func NewHandler(service *Service, limiter *middleware.IPRateLimiter, logger *zap.Logger) *Handler {
	return &Handler{service: service, limiter: limiter, logger: logger}
}

// Routes registers the extraction routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	if h.limiter != nil {
		r.Use(h.limiter.Middleware)
	}

	r.Post("/", h.Extract)
	r.Post("/assess", h.ExtractAndAssess)

	return r
}

// ExtractRequest carries a consultation transcript.
type ExtractRequest struct {
	Transcript string `json:"transcript" validate:"required"`
}

// ExtractResponse carries the variables found in a transcript.
type ExtractResponse struct {
	Variables qdiabetes.PartialInput `json:"variables"`
}

// Extract handles POST /extraction
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.BadRequest("invalid request body: "+err.Error()))
		return
	}
	if err := validation.Struct(req); err != nil {
		writeError(w, err)
		return
	}

	variables, err := h.service.Extract(r.Context(), req.Transcript)
	if err != nil {
		writeError(w, toAppError(err))
		return
	}

	writeJSON(w, http.StatusOK, ExtractResponse{Variables: variables})
}

// AssessRequest carries a transcript and the variables already entered.
type AssessRequest struct {
	Transcript string                 `json:"transcript" validate:"required"`
	Current    qdiabetes.PartialInput `json:"current"`
}

// AssessResponse carries the merged variables and, once age and sex are
// known, the resulting score.
type AssessResponse struct {
	Variables qdiabetes.PartialInput `json:"variables"`
	Result    *qdiabetes.RiskResult  `json:"result,omitempty"`
	Factors   []qdiabetes.Factor     `json:"factors"`
}

// ExtractAndAssess handles POST /extraction/assess. Extracted values replace
// the ones in current.
func (h *Handler) ExtractAndAssess(w http.ResponseWriter, r *http.Request) {
	var req AssessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.BadRequest("invalid request body: "+err.Error()))
		return
	}
	if err := validation.Struct(req); err != nil {
		writeError(w, err)
		return
	}

	extracted, err := h.service.Extract(r.Context(), req.Transcript)
	if err != nil {
		writeError(w, toAppError(err))
		return
	}

	merged := req.Current.Merge(extracted)
	resp := AssessResponse{Variables: merged, Factors: qdiabetes.Factors(merged)}

	if merged.Complete() {
		in, err := merged.Resolve()
		if err == nil {
			var result qdiabetes.RiskResult
			result, err = qdiabetes.Compute(in)
			if err == nil {
				resp.Result = &result
			}
		}
		if err != nil {
			h.logger.Debug("merged variables not scorable", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func toAppError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, ErrEmptyTranscript):
		return apperrors.BadRequest(err.Error())
	case errors.Is(err, ErrRateLimited):
		return apperrors.TooManyRequests("rate limit exceeded, please try again later")
	case errors.Is(err, ErrPaymentRequired):
		return apperrors.PaymentRequired("extraction credits exhausted")
	case errors.Is(err, ErrNotConfigured):
		return apperrors.Unavailable("extraction")
	case errors.Is(err, ErrNoVariables):
		return apperrors.Wrap(err, "could not extract variables from transcript")
	}
	return apperrors.FromDomain(err)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
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
