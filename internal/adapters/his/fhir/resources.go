package fhir

import (
	"strings"
	"time"
)

// Code systems read by the adapter.
const (
	SystemLOINC = "http://loinc.org"
	SystemATC   = "http://www.whocc.no/atc"
)

// LOINC codes for the body measurements used by the prefill.
const (
	LOINCBodyHeight = "8302-2"
	LOINCBodyWeight = "29463-7"
)

// Bundle is a FHIR R4 searchset bundle of resources of one type.
type Bundle[T any] struct {
	ResourceType string           `json:"resourceType"`
	Type         string           `json:"type,omitempty"`
	Total        *int             `json:"total,omitempty"`
	Link         []BundleLink     `json:"link,omitempty"`
	Entry        []BundleEntry[T] `json:"entry,omitempty"`
}

type BundleLink struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

type BundleEntry[T any] struct {
	FullURL  string `json:"fullUrl,omitempty"`
	Resource T      `json:"resource"`
}

// next returns the URL of the following page, if any.
func (b *Bundle[T]) next() string {
	for _, l := range b.Link {
		if l.Relation == "next" {
			return l.URL
		}
	}
	return ""
}

// Meta holds resource metadata
type Meta struct {
	VersionID   string `json:"versionId,omitempty"`
	LastUpdated string `json:"lastUpdated,omitempty"`
}

// Identifier represents a FHIR Identifier
type Identifier struct {
	Use    string           `json:"use,omitempty"`
	Type   *CodeableConcept `json:"type,omitempty"`
	System string           `json:"system,omitempty"`
	Value  string           `json:"value,omitempty"`
}

// CodeableConcept represents a FHIR CodeableConcept
type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Code returns the first code from system. Systems match by prefix so that
// versioned or national variants of a code system are accepted.
func (c *CodeableConcept) Code(system string) (Coding, bool) {
	if c == nil {
		return Coding{}, false
	}
	for _, coding := range c.Coding {
		if strings.HasPrefix(coding.System, system) && coding.Code != "" {
			return coding, true
		}
	}
	return Coding{}, false
}

// HasCode reports whether any coding carries code, regardless of system.
func (c *CodeableConcept) HasCode(codes ...string) bool {
	if c == nil {
		return false
	}
	for _, coding := range c.Coding {
		for _, code := range codes {
			if strings.EqualFold(coding.Code, code) {
				return true
			}
		}
	}
	return false
}

// Label returns the text or, failing that, the first display.
func (c *CodeableConcept) Label() string {
	if c == nil {
		return ""
	}
	if c.Text != "" {
		return c.Text
	}
	for _, coding := range c.Coding {
		if coding.Display != "" {
			return coding.Display
		}
	}
	return ""
}

// Coding represents a FHIR Coding
type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

// Reference represents a FHIR Reference
type Reference struct {
	Reference string `json:"reference,omitempty"`
	Display   string `json:"display,omitempty"`
}

// Quantity represents a FHIR Quantity
type Quantity struct {
	Value  *float64 `json:"value,omitempty"`
	Unit   string   `json:"unit,omitempty"`
	System string   `json:"system,omitempty"`
	Code   string   `json:"code,omitempty"`
}

// unit prefers the coded UCUM unit over the display unit.
func (q *Quantity) unit() string {
	if q.Code != "" {
		return q.Code
	}
	return q.Unit
}

// Patient represents a FHIR R4 Patient resource (simplified)
type Patient struct {
	ResourceType string       `json:"resourceType"`
	ID           string       `json:"id,omitempty"`
	Meta         *Meta        `json:"meta,omitempty"`
	Identifier   []Identifier `json:"identifier,omitempty"`
	Active       *bool        `json:"active,omitempty"`
	Gender       string       `json:"gender,omitempty"`
	BirthDate    string       `json:"birthDate,omitempty"`
}

// Observation represents a FHIR R4 Observation resource (simplified)
type Observation struct {
	ResourceType      string            `json:"resourceType"`
	ID                string            `json:"id,omitempty"`
	Status            string            `json:"status"`
	Category          []CodeableConcept `json:"category,omitempty"`
	Code              CodeableConcept   `json:"code"`
	Subject           *Reference        `json:"subject,omitempty"`
	EffectiveDateTime string            `json:"effectiveDateTime,omitempty"`
	Issued            string            `json:"issued,omitempty"`
	ValueQuantity     *Quantity         `json:"valueQuantity,omitempty"`
	ValueString       string            `json:"valueString,omitempty"`
}

// Condition represents a FHIR R4 Condition resource (simplified)
type Condition struct {
	ResourceType       string           `json:"resourceType"`
	ID                 string           `json:"id,omitempty"`
	ClinicalStatus     *CodeableConcept `json:"clinicalStatus,omitempty"`
	VerificationStatus *CodeableConcept `json:"verificationStatus,omitempty"`
	Code               CodeableConcept  `json:"code"`
	Subject            *Reference       `json:"subject,omitempty"`
	OnsetDateTime      string           `json:"onsetDateTime,omitempty"`
	AbatementDateTime  string           `json:"abatementDateTime,omitempty"`
	RecordedDate       string           `json:"recordedDate,omitempty"`
}

// MedicationRequest represents a FHIR R4 MedicationRequest resource (simplified)
type MedicationRequest struct {
	ResourceType              string           `json:"resourceType"`
	ID                        string           `json:"id,omitempty"`
	Status                    string           `json:"status"`
	Intent                    string           `json:"intent,omitempty"`
	MedicationCodeableConcept *CodeableConcept `json:"medicationCodeableConcept,omitempty"`
	Subject                   *Reference       `json:"subject,omitempty"`
	AuthoredOn                string           `json:"authoredOn,omitempty"`
}

// OperationOutcome carries server-side errors.
type OperationOutcome struct {
	ResourceType string `json:"resourceType"`
	Issue        []struct {
		Severity    string `json:"severity"`
		Code        string `json:"code"`
		Diagnostics string `json:"diagnostics,omitempty"`
	} `json:"issue,omitempty"`
}

func (o *OperationOutcome) message() string {
	var parts []string
	for _, issue := range o.Issue {
		if issue.Diagnostics != "" {
			parts = append(parts, issue.Diagnostics)
		} else if issue.Code != "" {
			parts = append(parts, issue.Code)
		}
	}
	return strings.Join(parts, "; ")
}

// parseDateTime accepts the FHIR date and dateTime forms, including partial
// dates, which resolve to the first day of the year or month.
func parseDateTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
