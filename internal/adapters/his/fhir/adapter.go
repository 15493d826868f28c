// Package fhir reads prefill records from a FHIR R4 server.
package fhir

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/riskcalc/platform/internal/adapters/his"
	"github.com/riskcalc/platform/internal/shared/config"
)

const (
	contentType = "application/fhir+json"
	pageSize    = "100"
	maxPages    = 10

	systemICD10 = "http://hl7.org/fhir/sid/icd-10"
)

// Observation and order statuses that never describe a usable record.
var skippedStatuses = map[string]bool{
	"entered-in-error": true,
	"cancelled":        true,
	"registered":       true,
}

// StatusError is returned when the server answers a search with an error.
type StatusError struct {
	Resource string
	Status   int
	Message  string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("fhir %s search: status %d", e.Resource, e.Status)
	}
	return fmt.Sprintf("fhir %s search: status %d: %s", e.Resource, e.Status, e.Message)
}

// ErrForeignLink is returned when a searchset page links outside the
// configured server.
var ErrForeignLink = errors.New("fhir next link points outside the configured server")

// Adapter implements his.Source over the FHIR REST API.
type Adapter struct {
	http *resty.Client
	base *url.URL
}

var _ his.Source = (*Adapter)(nil)

// New creates an adapter for the server at cfg.FHIRBaseURL.
func New(cfg config.HISConfig) (*Adapter, error) {
	if cfg.FHIRBaseURL == "" {
		return nil, errors.New("fhir base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.FHIRBaseURL, "/"))
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, fmt.Errorf("fhir base URL %q must be an absolute http(s) URL", cfg.FHIRBaseURL)
	}

	timeout := cfg.FHIRTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(base.String()).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("Accept", contentType)
	if cfg.FHIRToken != "" {
		client.SetAuthToken(cfg.FHIRToken)
	}

	return &Adapter{http: client, base: base}, nil
}

// Health fetches the server's capability statement.
func (a *Adapter) Health(ctx context.Context) error {
	resp, err := a.http.R().SetContext(ctx).Get("/metadata")
	if err != nil {
		return fmt.Errorf("fhir metadata: %w", err)
	}
	if resp.IsError() {
		return &StatusError{Resource: "metadata", Status: resp.StatusCode()}
	}
	return nil
}

// FetchPatient looks the patient up by identifier. patientRef may be a bare
// value or a system|value token.
func (a *Adapter) FetchPatient(ctx context.Context, patientRef string) (*his.Patient, error) {
	patients, err := search[Patient](ctx, a, "Patient", url.Values{
		"identifier": {patientRef},
		"_count":     {"2"},
	})
	var statusErr *StatusError
	if errors.As(err, &statusErr) && (statusErr.Status == http.StatusNotFound || statusErr.Status == http.StatusGone) {
		return nil, his.ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}

	var matches []Patient
	for _, p := range patients {
		if p.ResourceType == "Patient" {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return nil, his.ErrPatientNotFound
	case 1:
	default:
		return nil, fmt.Errorf("patient reference %q matches %d patients", patientRef, len(matches))
	}

	p := matches[0]
	out := &his.Patient{ID: p.ID, MRN: medicalRecordNumber(p, patientRef), Gender: gender(p.Gender)}
	if dob, ok := parseDateTime(p.BirthDate); ok {
		out.DateOfBirth = dob
	}
	return out, nil
}

// FetchVitals returns body height and weight observations, newest first.
func (a *Adapter) FetchVitals(ctx context.Context, patientID string) ([]his.Vital, error) {
	observations, err := search[Observation](ctx, a, "Observation", url.Values{
		"patient": {patientID},
		"code":    {SystemLOINC + "|" + LOINCBodyHeight + "," + SystemLOINC + "|" + LOINCBodyWeight},
		"_sort":   {"-date"},
		"_count":  {pageSize},
	})
	if err != nil {
		return nil, err
	}

	var vitals []his.Vital
	for _, obs := range observations {
		if !usable(obs) || obs.ValueQuantity == nil || obs.ValueQuantity.Value == nil {
			continue
		}
		var code string
		switch {
		case obs.Code.HasCode(LOINCBodyHeight):
			code = his.VitalHeight
		case obs.Code.HasCode(LOINCBodyWeight):
			code = his.VitalWeight
		default:
			continue
		}
		measured, _ := parseDateTime(effective(obs))
		vitals = append(vitals, his.Vital{
			Code:       code,
			Value:      *obs.ValueQuantity.Value,
			Unit:       obs.ValueQuantity.unit(),
			MeasuredAt: measured,
		})
	}

	sort.SliceStable(vitals, func(i, j int) bool {
		return vitals[i].MeasuredAt.After(vitals[j].MeasuredAt)
	})
	return vitals, nil
}

// FetchLabResults returns laboratory observations collected since the given
// time, newest first.
func (a *Adapter) FetchLabResults(ctx context.Context, patientID string, since time.Time) ([]his.LabResult, error) {
	observations, err := search[Observation](ctx, a, "Observation", url.Values{
		"patient":  {patientID},
		"category": {"laboratory"},
		"date":     {"ge" + since.Format("2006-01-02")},
		"_sort":    {"-date"},
		"_count":   {pageSize},
	})
	if err != nil {
		return nil, err
	}

	var labs []his.LabResult
	for _, obs := range observations {
		if !usable(obs) {
			continue
		}
		collected, ok := parseDateTime(effective(obs))
		if !ok || collected.Before(since) {
			continue
		}

		lab := his.LabResult{ID: obs.ID, TestCode: obs.Code.Text, CollectedAt: collected}
		if c, ok := obs.Code.Code(SystemLOINC); ok {
			lab.LOINCCode = c.Code
		}
		switch {
		case obs.ValueQuantity != nil && obs.ValueQuantity.Value != nil:
			lab.Value = strconv.FormatFloat(*obs.ValueQuantity.Value, 'f', -1, 64)
			lab.Unit = obs.ValueQuantity.unit()
		case obs.ValueString != "":
			lab.Value = obs.ValueString
		default:
			continue
		}
		labs = append(labs, lab)
	}

	sort.SliceStable(labs, func(i, j int) bool {
		return labs[i].CollectedAt.After(labs[j].CollectedAt)
	})
	return labs, nil
}

// FetchDiagnoses returns ICD-10 coded conditions, including resolved ones.
func (a *Adapter) FetchDiagnoses(ctx context.Context, patientID string) ([]his.Diagnosis, error) {
	conditions, err := search[Condition](ctx, a, "Condition", url.Values{
		"patient": {patientID},
		"_count":  {pageSize},
	})
	if err != nil {
		return nil, err
	}

	var diagnoses []his.Diagnosis
	for _, c := range conditions {
		if c.ResourceType != "Condition" || c.VerificationStatus.HasCode("refuted", "entered-in-error") {
			continue
		}
		coding, ok := c.Code.Code(systemICD10)
		if !ok {
			continue
		}

		d := his.Diagnosis{ICD10Code: coding.Code, Description: c.Code.Label()}
		if t, ok := parseDateTime(c.OnsetDateTime); ok {
			d.DiagnosedAt = t
		} else if t, ok := parseDateTime(c.RecordedDate); ok {
			d.DiagnosedAt = t
		}
		if t, ok := parseDateTime(c.AbatementDateTime); ok {
			d.ResolvedAt = &t
		} else if c.ClinicalStatus.HasCode("inactive", "resolved", "remission") {
			resolved := d.DiagnosedAt
			d.ResolvedAt = &resolved
		}
		diagnoses = append(diagnoses, d)
	}
	return diagnoses, nil
}

// FetchActivePrescriptions returns active medication requests.
func (a *Adapter) FetchActivePrescriptions(ctx context.Context, patientID string) ([]his.Prescription, error) {
	requests, err := search[MedicationRequest](ctx, a, "MedicationRequest", url.Values{
		"patient": {patientID},
		"status":  {"active"},
		"_count":  {pageSize},
	})
	if err != nil {
		return nil, err
	}

	var prescriptions []his.Prescription
	for _, mr := range requests {
		if mr.ResourceType != "MedicationRequest" || mr.Status != "active" || mr.MedicationCodeableConcept == nil {
			continue
		}
		p := his.Prescription{MedicationName: mr.MedicationCodeableConcept.Label()}
		if c, ok := mr.MedicationCodeableConcept.Code(SystemATC); ok {
			p.ATCCode = c.Code
		}
		if t, ok := parseDateTime(mr.AuthoredOn); ok {
			p.PrescribedAt = t
		}
		prescriptions = append(prescriptions, p)
	}
	return prescriptions, nil
}

// search runs a resource search and follows next links up to maxPages.
func search[T any](ctx context.Context, a *Adapter, resource string, params url.Values) ([]T, error) {
	var out []T
	next := ""
	for page := 0; page < maxPages; page++ {
		var bundle Bundle[T]
		var outcome OperationOutcome
		req := a.http.R().
			SetContext(ctx).
			SetResult(&bundle).
			SetError(&outcome)

		var (
			resp *resty.Response
			err  error
		)
		if next == "" {
			resp, err = req.SetQueryParamsFromValues(params).Get("/" + resource)
		} else {
			link, linkErr := a.sameServer(next)
			if linkErr != nil {
				return nil, fmt.Errorf("fhir %s search: %w", resource, linkErr)
			}
			resp, err = req.Get(link)
		}
		if err != nil {
			return nil, fmt.Errorf("fhir %s search: %w", resource, err)
		}
		if resp.IsError() {
			return nil, &StatusError{Resource: resource, Status: resp.StatusCode(), Message: outcome.message()}
		}

		for _, e := range bundle.Entry {
			out = append(out, e.Resource)
		}
		if next = bundle.next(); next == "" {
			break
		}
	}
	return out, nil
}

// sameServer resolves a next link against the base URL and rejects links to
// another scheme or host, which would otherwise receive the bearer token.
func (a *Adapter) sameServer(link string) (string, error) {
	ref, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse next link: %w", err)
	}
	resolved := a.base.ResolveReference(ref)
	if !strings.EqualFold(resolved.Scheme, a.base.Scheme) || !strings.EqualFold(resolved.Host, a.base.Host) {
		return "", fmt.Errorf("%w: %s", ErrForeignLink, resolved.Redacted())
	}
	return resolved.String(), nil
}

func usable(obs Observation) bool {
	return obs.ResourceType == "Observation" && !skippedStatuses[obs.Status]
}

func effective(obs Observation) string {
	if obs.EffectiveDateTime != "" {
		return obs.EffectiveDateTime
	}
	return obs.Issued
}

func medicalRecordNumber(p Patient, patientRef string) string {
	for _, id := range p.Identifier {
		if id.Type.HasCode("MR") && id.Value != "" {
			return id.Value
		}
	}
	if _, value, ok := strings.Cut(patientRef, "|"); ok {
		return value
	}
	return patientRef
}

func gender(g string) his.Gender {
	switch strings.ToLower(g) {
	case "male":
		return his.GenderMale
	case "female":
		return his.GenderFemale
	default:
		return his.GenderUnknown
	}
}
