package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/riskcalc/platform/internal/adapters/his"
	"github.com/riskcalc/platform/internal/qdiabetes"
	"github.com/riskcalc/platform/internal/shared/auth"
	"github.com/riskcalc/platform/internal/shared/events"
	"github.com/riskcalc/platform/internal/shared/types"
)

const referenceBody = `{
	"age": 40, "sex": "male", "ethnicity": 1, "smoking": 2,
	"height": 182, "weight": 90, "treatedHypertension": true
}`

type stubPrefiller struct {
	prefill *his.Prefill
	err     error
}

func (s stubPrefiller) Prefill(ctx context.Context, patientRef string) (*his.Prefill, error) {
	if s.err != nil {
		return nil, s.err
	}
	p := *s.prefill
	p.PatientRef = patientRef
	return &p, nil
}

func newTestRouter(prefiller Prefiller) (http.Handler, *events.Recorder) {
	recorder := events.NewRecorder(0)
	h := NewHandler(newTestService(newMemoryRepository(), recorder), prefiller, zap.NewNop())

	r := chi.NewRouter()
	r.Mount("/assessments", h.Routes())
	r.Mount("/reference", h.ReferenceRoutes())
	r.Mount("/patients", h.PatientRoutes())
	return r, recorder
}

func do(t *testing.T, h http.Handler, method, path, body string, ctx ...context.Context) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if len(ctx) > 0 {
		req = req.WithContext(ctx[0])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Code    string            `json:"code"`
	Details map[string]string `json:"details"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestCreateAssessment(t *testing.T) {
	router, recorder := newTestRouter(nil)
	ctx := context.WithValue(context.Background(), auth.UserContextKey, &auth.User{ID: "dr-7"})

	body := strings.Replace(referenceBody, "{", `{"source": "voice", "patientRef": "MRN-42",`, 1)
	rec := do(t, router, http.MethodPost, "/assessments", body, ctx)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var a Assessment
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&a))
	assert.Equal(t, SourceVoice, a.Source)
	assert.Equal(t, "MRN-42", a.PatientRef)
	assert.Equal(t, "dr-7", a.ClinicianID)
	assert.True(t, a.Stored)
	assert.Equal(t, qdiabetes.ModelA, a.Result.Model)
	assert.InEpsilon(t, 3.367959893889072, a.Result.RiskPercentage, 1e-6)
	assert.Len(t, recorder.Events(), 1)

	rec = do(t, router, http.MethodGet, "/assessments/"+a.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched Assessment
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&fetched))
	assert.Equal(t, a.ID, fetched.ID)

	rec = do(t, router, http.MethodGet, "/assessments?patientRef=MRN-42&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data  []Assessment `json:"data"`
		Total int          `json:"total"`
		Limit int          `json:"limit"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, 5, list.Limit)
}

func TestCreateAssessment_Validation(t *testing.T) {
	router, recorder := newTestRouter(nil)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"age below range", `{"age": 12, "sex": "male"}`, "age"},
		{"unknown sex", `{"age": 50, "sex": "other"}`, "sex"},
		{"missing sex", `{"age": 50}`, "sex"},
		{"bad source", `{"age": 50, "sex": "male", "source": "fax"}`, "source"},
		{"hba1c out of range", `{"age": 50, "sex": "male", "hba1c": 500}`, "hba1c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/assessments", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, "VALIDATION_ERROR", body.Code)
			assert.Contains(t, body.Details, tt.field)
		})
	}
	assert.Empty(t, recorder.Events())
}

func TestCreateAssessment_Sources(t *testing.T) {
	router, _ := newTestRouter(nil)

	for _, source := range []Source{SourceForm, SourceVoice, SourceHIS, SourceCLI} {
		body := `{"age": 50, "sex": "male", "source": "` + string(source) + `"}`
		rec := do(t, router, http.MethodPost, "/assessments", body)
		require.Equal(t, http.StatusCreated, rec.Code, source)

		var a Assessment
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&a))
		assert.Equal(t, source, a.Source)
	}

	for _, legacy := range []string{"manual", "transcript"} {
		rec := do(t, router, http.MethodPost, "/assessments", `{"age": 50, "sex": "male", "source": "`+legacy+`"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, legacy)
	}
}

func TestCreateAssessment_OutOfTableCodesAccepted(t *testing.T) {
	router, _ := newTestRouter(nil)

	rec := do(t, router, http.MethodPost, "/assessments", `{"age": 50, "sex": "female", "ethnicity": 99, "smoking": 0}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateAssessment_MalformedBody(t *testing.T) {
	router, _ := newTestRouter(nil)

	rec := do(t, router, http.MethodPost, "/assessments", `{"age": "forty"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", decodeError(t, rec).Code)
}

func TestGetAssessment_Errors(t *testing.T) {
	router, _ := newTestRouter(nil)

	rec := do(t, router, http.MethodGet, "/assessments/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/assessments/"+types.NewID().String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
}

func TestListAssessments_BadLimit(t *testing.T) {
	router, _ := newTestRouter(nil)

	for _, limit := range []string{"abc", "0", "-3"} {
		rec := do(t, router, http.MethodGet, "/assessments?limit="+limit, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, limit)
	}
}

func TestProject(t *testing.T) {
	router, recorder := newTestRouter(nil)

	rec := do(t, router, http.MethodPost, "/assessments/projection", referenceBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var p qdiabetes.Projection
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	assert.LessOrEqual(t, p.Projected.RiskPercentage, p.Current.RiskPercentage)
	assert.Equal(t, p.Current.Model, p.Projected.Model)
	assert.Contains(t, p.Improvements, "Quit smoking")
	assert.Empty(t, recorder.Events())
}

func TestProject_MissingAge(t *testing.T) {
	router, _ := newTestRouter(nil)

	rec := do(t, router, http.MethodPost, "/assessments/projection", `{"sex": "male"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Equal(t, "is required", body.Details["age"])
}

func TestBreakdown(t *testing.T) {
	router, _ := newTestRouter(nil)

	rec := do(t, router, http.MethodPost, "/assessments/breakdown", referenceBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp BreakdownResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, qdiabetes.ModelA, resp.Breakdown.Model)

	var sum float64
	for _, c := range resp.Breakdown.Contributions {
		sum += c.Value
	}
	assert.InDelta(t, resp.Breakdown.LinearPredictor, sum, 1e-9)
	assert.NotEmpty(t, resp.Factors)
}

func TestGetOptions(t *testing.T) {
	router, _ := newTestRouter(nil)

	rec := do(t, router, http.MethodGet, "/reference/options", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var opts map[string][]qdiabetes.Option
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&opts))
	assert.Equal(t, qdiabetes.EthnicityOptions, opts["ethnicity"])
	assert.Equal(t, qdiabetes.SmokingOptions, opts["smoking"])
}

func TestGetPrefill(t *testing.T) {
	prefill := &his.Prefill{
		Variables: referenceVariables(),
		Notes:     []string{"HbA1c reported in % was skipped"},
	}
	router, _ := newTestRouter(stubPrefiller{prefill: prefill})

	rec := do(t, router, http.MethodGet, "/patients/MRN-9/prefill", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		PatientRef string                 `json:"patientRef"`
		Variables  qdiabetes.PartialInput `json:"variables"`
		Notes      []string               `json:"notes"`
		Result     *qdiabetes.RiskResult  `json:"result"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "MRN-9", resp.PatientRef)
	assert.Equal(t, 40, *resp.Variables.Age)
	assert.Len(t, resp.Notes, 1)
	require.NotNil(t, resp.Result)
	assert.InEpsilon(t, 3.367959893889072, resp.Result.RiskPercentage, 1e-6)
}

func TestGetPrefill_Incomplete(t *testing.T) {
	prefill := &his.Prefill{Variables: qdiabetes.PartialInput{Age: ptr(61)}, Notes: []string{}}
	router, _ := newTestRouter(stubPrefiller{prefill: prefill})

	rec := do(t, router, http.MethodGet, "/patients/MRN-9/prefill", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"result"`)
}

func TestGetPrefill_Errors(t *testing.T) {
	tests := []struct {
		name      string
		prefiller Prefiller
		status    int
		code      string
	}{
		{"no HIS", nil, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"unknown patient", stubPrefiller{err: his.ErrPatientNotFound}, http.StatusNotFound, "NOT_FOUND"},
		{"HIS failure", stubPrefiller{err: fmt.Errorf("load clinical record: %w", io.ErrUnexpectedEOF)}, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(tt.prefiller)
			rec := do(t, router, http.MethodGet, "/patients/MRN-9/prefill", "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}
