package fhir

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/riskcalc/platform/internal/adapters/his"
	"github.com/riskcalc/platform/internal/qdiabetes"
	"github.com/riskcalc/platform/internal/shared/config"
)

const patientBundle = `{
  "resourceType": "Bundle", "type": "searchset", "total": 1,
  "entry": [{"resource": {
    "resourceType": "Patient", "id": "pat-17",
    "identifier": [
      {"system": "urn:oid:1.2.3", "value": "NHS-99"},
      {"type": {"coding": [{"system": "http://terminology.hl7.org/CodeSystem/v2-0203", "code": "MR"}]}, "value": "MRN-1"}
    ],
    "gender": "female", "birthDate": "1968-04-02"
  }}]
}`

const vitalsBundle = `{
  "resourceType": "Bundle", "type": "searchset",
  "entry": [
    {"resource": {"resourceType": "Observation", "id": "h1", "status": "final",
      "code": {"coding": [{"system": "http://loinc.org", "code": "8302-2"}]},
      "effectiveDateTime": "2024-01-10T09:00:00Z",
      "valueQuantity": {"value": 165, "unit": "cm", "system": "http://unitsofmeasure.org", "code": "cm"}}},
    {"resource": {"resourceType": "Observation", "id": "w1", "status": "final",
      "code": {"coding": [{"system": "http://loinc.org", "code": "29463-7"}]},
      "effectiveDateTime": "2024-06-01T09:00:00Z",
      "valueQuantity": {"value": 72.5, "unit": "kilogram", "code": "kg"}}},
    {"resource": {"resourceType": "Observation", "id": "w2", "status": "entered-in-error",
      "code": {"coding": [{"system": "http://loinc.org", "code": "29463-7"}]},
      "effectiveDateTime": "2024-07-01T09:00:00Z",
      "valueQuantity": {"value": 700, "code": "kg"}}},
    {"resource": {"resourceType": "Observation", "id": "w3", "status": "final",
      "code": {"coding": [{"system": "http://loinc.org", "code": "29463-7"}]},
      "effectiveDateTime": "2024-08-01T09:00:00Z"}}
  ]
}`

const conditionBundle = `{
  "resourceType": "Bundle", "type": "searchset",
  "entry": [
    {"resource": {"resourceType": "Condition", "id": "c1",
      "clinicalStatus": {"coding": [{"code": "active"}]},
      "code": {"coding": [{"system": "http://hl7.org/fhir/sid/icd-10", "code": "I10", "display": "Essential hypertension"}]},
      "onsetDateTime": "2015-03-01"}},
    {"resource": {"resourceType": "Condition", "id": "c2",
      "clinicalStatus": {"coding": [{"code": "resolved"}]},
      "code": {"coding": [{"system": "http://hl7.org/fhir/sid/icd-10-cm", "code": "F32.3"}]},
      "onsetDateTime": "2010-01-01", "abatementDateTime": "2012-01-01"}},
    {"resource": {"resourceType": "Condition", "id": "c3",
      "clinicalStatus": {"coding": [{"code": "inactive"}]},
      "code": {"coding": [{"system": "http://hl7.org/fhir/sid/icd-10", "code": "O24.4"}]},
      "recordedDate": "2001-05-05"}},
    {"resource": {"resourceType": "Condition", "id": "c4",
      "verificationStatus": {"coding": [{"code": "refuted"}]},
      "code": {"coding": [{"system": "http://hl7.org/fhir/sid/icd-10", "code": "I21"}]}}},
    {"resource": {"resourceType": "Condition", "id": "c5",
      "code": {"coding": [{"system": "http://snomed.info/sct", "code": "44054006"}]}}}
  ]
}`

const medicationBundle = `{
  "resourceType": "Bundle", "type": "searchset",
  "entry": [
    {"resource": {"resourceType": "MedicationRequest", "id": "m1", "status": "active", "intent": "order",
      "medicationCodeableConcept": {"coding": [{"system": "http://www.whocc.no/atc", "code": "C09AA05", "display": "ramipril"}]},
      "authoredOn": "2023-02-01"}},
    {"resource": {"resourceType": "MedicationRequest", "id": "m2", "status": "active", "intent": "order",
      "medicationCodeableConcept": {"text": "atorvastatin 20mg", "coding": [{"system": "http://www.whocc.no/atc", "code": "C10AA05"}]}}}
  ]
}`

func labsPage(next string, collected time.Time) string {
	link := ""
	if next != "" {
		link = fmt.Sprintf(`"link": [{"relation": "self", "url": "x"}, {"relation": "next", "url": %q}],`, next)
	}
	return fmt.Sprintf(`{
  "resourceType": "Bundle", "type": "searchset", %s
  "entry": [
    {"resource": {"resourceType": "Observation", "id": "hb1", "status": "final",
      "category": [{"coding": [{"code": "laboratory"}]}],
      "code": {"text": "HbA1c", "coding": [{"system": "http://loinc.org", "code": "59261-8"}]},
      "effectiveDateTime": %q,
      "valueQuantity": {"value": 44, "unit": "mmol/mol", "code": "mmol/mol"}}}
  ]
}`, link, collected.Format(time.RFC3339))
}

func glucosePage(collected, old time.Time) string {
	return fmt.Sprintf(`{
  "resourceType": "Bundle", "type": "searchset",
  "entry": [
    {"resource": {"resourceType": "Observation", "id": "g1", "status": "amended",
      "code": {"coding": [{"system": "http://loinc.org", "code": "1558-6"}]},
      "issued": %q,
      "valueQuantity": {"value": 5.6, "unit": "mmol/L"}}},
    {"resource": {"resourceType": "Observation", "id": "g0", "status": "final",
      "code": {"coding": [{"system": "http://loinc.org", "code": "1558-6"}]},
      "effectiveDateTime": %q,
      "valueQuantity": {"value": 9.9, "unit": "mmol/L"}}},
    {"resource": {"resourceType": "Observation", "id": "t1", "status": "final",
      "code": {"text": "Urine dipstick"},
      "effectiveDateTime": %q,
      "valueString": "negative"}}
  ]
}`, collected.Format(time.RFC3339), old.Format(time.RFC3339), collected.Format(time.RFC3339))
}

type fakeServer struct {
	srv         *httptest.Server
	patients    string
	status      int
	labsCreated time.Time

	mu        sync.Mutex
	lastQuery map[string]string
}

func (f *fakeServer) query(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQuery[key]
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{patients: patientBundle, labsCreated: time.Now().AddDate(0, -1, 0).UTC().Truncate(time.Second)}

	write := func(w http.ResponseWriter, body string) {
		w.Header().Set("Content-Type", "application/fhir+json")
		if f.status != 0 {
			w.WriteHeader(f.status)
			fmt.Fprint(w, `{"resourceType": "OperationOutcome", "issue": [{"severity": "error", "code": "exception", "diagnostics": "database offline"}]}`)
			return
		}
		fmt.Fprint(w, body)
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer his-token", r.Header.Get("Authorization"))
			assert.Equal(t, "application/fhir+json", r.Header.Get("Accept"))
			query := map[string]string{}
			for k := range r.URL.Query() {
				query[k] = r.URL.Query().Get(k)
			}
			f.mu.Lock()
			f.lastQuery = query
			f.mu.Unlock()
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/fhir/metadata", func(w http.ResponseWriter, r *http.Request) {
		write(w, `{"resourceType": "CapabilityStatement", "status": "active", "fhirVersion": "4.0.1"}`)
	})
	r.Get("/fhir/Patient", func(w http.ResponseWriter, r *http.Request) {
		write(w, f.patients)
	})
	r.Get("/fhir/Observation", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("page") == "2":
			write(w, glucosePage(f.labsCreated, f.labsCreated.AddDate(-3, 0, 0)))
		case q.Get("category") == "laboratory":
			write(w, labsPage(f.srv.URL+"/fhir/Observation?page=2", f.labsCreated))
		default:
			write(w, vitalsBundle)
		}
	})
	r.Get("/fhir/Condition", func(w http.ResponseWriter, r *http.Request) {
		write(w, conditionBundle)
	})
	r.Get("/fhir/MedicationRequest", func(w http.ResponseWriter, r *http.Request) {
		write(w, medicationBundle)
	})

	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

func newTestAdapter(t *testing.T, f *fakeServer) *Adapter {
	t.Helper()
	a, err := New(config.HISConfig{FHIRBaseURL: f.srv.URL + "/fhir/", FHIRToken: "his-token", FHIRTimeout: 5 * time.Second})
	require.NoError(t, err)
	return a
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(config.HISConfig{})
	assert.Error(t, err)
}

func TestNew_RejectsRelativeBaseURL(t *testing.T) {
	_, err := New(config.HISConfig{FHIRBaseURL: "his.local/fhir"})
	assert.ErrorContains(t, err, "absolute http(s) URL")

	_, err = New(config.HISConfig{FHIRBaseURL: "ftp://his.local/fhir"})
	assert.Error(t, err)
}

func TestSearch_RejectsNextLinkToAnotherHost(t *testing.T) {
	var foreignHits int
	var foreignAuth string
	var mu sync.Mutex
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		foreignHits++
		foreignAuth = r.Header.Get("Authorization")
		mu.Unlock()
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(labsPage("", time.Now())))
	}))
	t.Cleanup(foreign.Close)

	home := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(labsPage(foreign.URL+"/fhir/Observation?page=2", time.Now())))
	}))
	t.Cleanup(home.Close)

	a, err := New(config.HISConfig{FHIRBaseURL: home.URL + "/fhir", FHIRToken: "his-token"})
	require.NoError(t, err)

	_, err = a.FetchLabResults(context.Background(), "pat-17", time.Now().AddDate(-1, 0, 0))
	require.ErrorIs(t, err, ErrForeignLink)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, foreignHits)
	assert.Empty(t, foreignAuth)
}

func TestSameServer(t *testing.T) {
	a, err := New(config.HISConfig{FHIRBaseURL: "https://His.Local:8443/fhir/"})
	require.NoError(t, err)

	tests := []struct {
		link string
		want string
		ok   bool
	}{
		{"https://his.local:8443/fhir/Observation?page=2", "https://his.local:8443/fhir/Observation?page=2", true},
		{"/fhir/Observation?page=3", "https://His.Local:8443/fhir/Observation?page=3", true},
		{"http://his.local:8443/fhir/Observation?page=2", "", false},
		{"https://his.local/fhir/Observation?page=2", "", false},
		{"https://other.example/fhir/Observation", "", false},
		{"//other.example/fhir/Observation", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			got, err := a.sameServer(tt.link)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrForeignLink)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHealth(t *testing.T) {
	f := newFakeServer(t)
	a := newTestAdapter(t, f)

	assert.NoError(t, a.Health(context.Background()))

	f.status = http.StatusServiceUnavailable
	assert.Error(t, a.Health(context.Background()))
}

func TestFetchPatient(t *testing.T) {
	f := newFakeServer(t)
	a := newTestAdapter(t, f)

	p, err := a.FetchPatient(context.Background(), "MRN-1")
	require.NoError(t, err)

	assert.Equal(t, "MRN-1", f.query("identifier"))
	assert.Equal(t, "pat-17", p.ID)
	assert.Equal(t, "MRN-1", p.MRN)
	assert.Equal(t, his.GenderFemale, p.Gender)
	assert.Equal(t, time.Date(1968, 4, 2, 0, 0, 0, 0, time.UTC), p.DateOfBirth)
}

func TestFetchPatient_NotFound(t *testing.T) {
	f := newFakeServer(t)
	a := newTestAdapter(t, f)

	f.patients = `{"resourceType": "Bundle", "type": "searchset", "total": 0}`
	_, err := a.FetchPatient(context.Background(), "MRN-404")
	assert.ErrorIs(t, err, his.ErrPatientNotFound)

	f.status = http.StatusNotFound
	_, err = a.FetchPatient(context.Background(), "MRN-404")
	assert.ErrorIs(t, err, his.ErrPatientNotFound)
}

func TestFetchPatient_Ambiguous(t *testing.T) {
	f := newFakeServer(t)
	a := newTestAdapter(t, f)

	f.patients = `{"resourceType": "Bundle", "type": "searchset", "entry": [
	  {"resource": {"resourceType": "Patient", "id": "a"}},
	  {"resource": {"resourceType": "Patient", "id": "b"}},
	  {"resource": {"resourceType": "OperationOutcome"}}
	]}`
	_, err := a.FetchPatient(context.Background(), "MRN-1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, his.ErrPatientNotFound))
	assert.Contains(t, err.Error(), "matches 2 patients")
}

func TestFetchPatient_ServerError(t *testing.T) {
	f := newFakeServer(t)
	a := newTestAdapter(t, f)
	f.status = http.StatusInternalServerError

	_, err := a.FetchPatient(context.Background(), "MRN-1")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.Status)
	assert.Equal(t, "database offline", statusErr.Message)
}

func TestFetchVitals(t *testing.T) {
	f := newFakeServer(t)
	a := newTestAdapter(t, f)

	vitals, err := a.FetchVitals(context.Background(), "pat-17")
	require.NoError(t, err)

	assert.Equal(t, "pat-17", f.query("patient"))
	assert.Equal(t, "-date", f.query("_sort"))
	require.Len(t, vitals, 2)
	assert.Equal(t, his.Vital{Code: his.VitalWeight, Value: 72.5, Unit: "kg", MeasuredAt: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}, vitals[0])
	assert.Equal(t, his.VitalHeight, vitals[1].Code)
	assert.Equal(t, 165.0, vitals[1].Value)
}

func TestFetchLabResults_FollowsPagesAndFiltersByDate(t *testing.T) {
	f := newFakeServer(t)
	a := newTestAdapter(t, f)
	since := f.labsCreated.AddDate(-2, 0, 0)

	labs, err := a.FetchLabResults(context.Background(), "pat-17", since)
	require.NoError(t, err)

	require.Len(t, labs, 3)
	ids := []string{labs[0].ID, labs[1].ID, labs[2].ID}
	assert.ElementsMatch(t, []string{"hb1", "g1", "t1"}, ids)

	for _, lab := range labs {
		switch lab.ID {
		case "hb1":
			assert.Equal(t, "59261-8", lab.LOINCCode)
			assert.Equal(t, "HbA1c", lab.TestCode)
			assert.Equal(t, "44", lab.Value)
			assert.Equal(t, "mmol/mol", lab.Unit)
		case "g1":
			assert.Equal(t, "5.6", lab.Value)
			assert.Equal(t, "mmol/L", lab.Unit)
			assert.Equal(t, f.labsCreated, lab.CollectedAt.UTC())
		case "t1":
			assert.Equal(t, "negative", lab.Value)
		}
	}
}

func TestFetchDiagnoses(t *testing.T) {
	f := newFakeServer(t)
	a := newTestAdapter(t, f)

	diagnoses, err := a.FetchDiagnoses(context.Background(), "pat-17")
	require.NoError(t, err)
	require.Len(t, diagnoses, 3)

	assert.Equal(t, "I10", diagnoses[0].ICD10Code)
	assert.Equal(t, "Essential hypertension", diagnoses[0].Description)
	assert.True(t, diagnoses[0].Active())

	assert.Equal(t, "F32.3", diagnoses[1].ICD10Code)
	require.NotNil(t, diagnoses[1].ResolvedAt)
	assert.Equal(t, 2012, diagnoses[1].ResolvedAt.Year())

	assert.Equal(t, "O24.4", diagnoses[2].ICD10Code)
	assert.False(t, diagnoses[2].Active())
	assert.Equal(t, 2001, diagnoses[2].DiagnosedAt.Year())
}

func TestFetchActivePrescriptions(t *testing.T) {
	f := newFakeServer(t)
	a := newTestAdapter(t, f)

	rx, err := a.FetchActivePrescriptions(context.Background(), "pat-17")
	require.NoError(t, err)

	assert.Equal(t, "active", f.query("status"))
	require.Len(t, rx, 2)
	assert.Equal(t, his.Prescription{MedicationName: "ramipril", ATCCode: "C09AA05", PrescribedAt: time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)}, rx[0])
	assert.Equal(t, "atorvastatin 20mg", rx[1].MedicationName)
	assert.Equal(t, "C10AA05", rx[1].ATCCode)
}

func TestPrefillOverFHIR(t *testing.T) {
	f := newFakeServer(t)
	prefill, err := his.NewPrefiller(newTestAdapter(t, f), zap.NewNop()).Prefill(context.Background(), "MRN-1")
	require.NoError(t, err)

	v := prefill.Variables
	require.NotNil(t, v.Sex)
	assert.Equal(t, qdiabetes.SexFemale, *v.Sex)
	require.NotNil(t, v.Age)
	require.NotNil(t, v.Height)
	assert.Equal(t, 165.0, *v.Height)
	require.NotNil(t, v.Weight)
	assert.Equal(t, 72.5, *v.Weight)
	require.NotNil(t, v.HbA1c)
	assert.Equal(t, 44.0, *v.HbA1c)
	require.NotNil(t, v.FastingBloodGlucose)
	assert.Equal(t, 5.6, *v.FastingBloodGlucose)

	assert.True(t, *v.TreatedHypertension)
	assert.True(t, *v.Statins)
	assert.True(t, *v.GestationalDiabetes)
	assert.False(t, *v.MentalIllness)
	assert.False(t, *v.CardiovascularDisease)
}

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-06-01T09:00:00+02:00", time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC), true},
		{"2024-06-01", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), true},
		{"2024-06", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), true},
		{"2024", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"yesterday", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := parseDateTime(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.True(t, tt.want.Equal(got), tt.in)
	}
}
