package speech

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/riskcalc/platform/internal/shared/errors"
)

// TokenSource issues temporary speech keys.
type TokenSource interface {
	Token(ctx context.Context) (Token, error)
}

// Handler provides HTTP handlers for voice input
type Handler struct {
	tokens TokenSource
}

// NewHandler creates a new speech handler
func NewHandler(tokens TokenSource) *Handler {
	return &Handler{tokens: tokens}
}

// Routes registers the speech routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/token", h.GetToken)

	return r
}

// GetToken returns a temporary speech key
func (h *Handler) GetToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.tokens.Token(r.Context())
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			writeError(w, apperrors.Unavailable("speech"))
			return
		}
		writeError(w, apperrors.Wrap(err, "failed to create speech token"))
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, token)
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
