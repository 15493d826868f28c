package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/riskcalc/platform/internal/qdiabetes"
	"github.com/riskcalc/platform/internal/shared/config"
)

var (
	ErrEmptyTranscript = errors.New("transcript is required")
	ErrRateLimited     = errors.New("extraction rate limit exceeded")
	ErrPaymentRequired = errors.New("extraction provider requires payment")
	ErrNoVariables     = errors.New("no variables in model response")
	ErrNotConfigured   = errors.New("extraction is not configured")
)

// Extractor turns a consultation transcript into risk variables.
type Extractor interface {
	Extract(ctx context.Context, transcript string) (qdiabetes.PartialInput, error)
}

// Client extracts variables through an OpenAI-compatible chat completion API.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a client for the configured endpoint.
func NewClient(cfg config.ExtractionConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.Model,
	}, nil
}

// Extract sends the transcript to the model and parses its JSON reply.
func (c *Client) Extract(ctx context.Context, transcript string) (qdiabetes.PartialInput, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: transcript},
		},
	})
	if err != nil {
		return qdiabetes.PartialInput{}, classifyError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return qdiabetes.PartialInput{}, ErrNoVariables
	}
	return ParseVariables(resp.Choices[0].Message.Content)
}

func classifyError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusPaymentRequired:
		return ErrPaymentRequired
	}
	return fmt.Errorf("extraction request failed: %w", err)
}

// wireVariables accepts the model's loosely typed JSON. Numbers that should be
// integers may arrive with a fractional part.
type wireVariables struct {
	Age       *float64 `json:"age"`
	Sex       *string  `json:"sex"`
	Ethnicity *float64 `json:"ethnicity"`
	Smoking   *float64 `json:"smoking"`
	Height    *float64 `json:"height"`
	Weight    *float64 `json:"weight"`
	BMI       *float64 `json:"bmi"`

	FamilyHistoryDiabetes  *bool `json:"familyHistoryDiabetes"`
	CardiovascularDisease  *bool `json:"cardiovascularDisease"`
	TreatedHypertension    *bool `json:"treatedHypertension"`
	LearningDisabilities   *bool `json:"learningDisabilities"`
	MentalIllness          *bool `json:"mentalIllness"`
	Corticosteroids        *bool `json:"corticosteroids"`
	Statins                *bool `json:"statins"`
	AtypicalAntipsychotics *bool `json:"atypicalAntipsychotics"`
	PolycysticOvaries      *bool `json:"polycysticOvaries"`
	GestationalDiabetes    *bool `json:"gestationalDiabetes"`

	FastingBloodGlucose *float64 `json:"fastingBloodGlucose"`
	HbA1c               *float64 `json:"hba1c"`
	TownsendScore       *float64 `json:"townsendScore"`
}

// ParseVariables decodes the first {...} span of a model reply.
func ParseVariables(content string) (qdiabetes.PartialInput, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return qdiabetes.PartialInput{}, ErrNoVariables
	}

	var w wireVariables
	if err := json.Unmarshal([]byte(content[start:end+1]), &w); err != nil {
		return qdiabetes.PartialInput{}, fmt.Errorf("%w: %v", ErrNoVariables, err)
	}
	return w.partial(), nil
}

func (w wireVariables) partial() qdiabetes.PartialInput {
	p := qdiabetes.PartialInput{
		Height:                 positive(w.Height),
		Weight:                 positive(w.Weight),
		BMI:                    positive(w.BMI),
		FamilyHistoryDiabetes:  w.FamilyHistoryDiabetes,
		CardiovascularDisease:  w.CardiovascularDisease,
		TreatedHypertension:    w.TreatedHypertension,
		LearningDisabilities:   w.LearningDisabilities,
		MentalIllness:          w.MentalIllness,
		Corticosteroids:        w.Corticosteroids,
		Statins:                w.Statins,
		AtypicalAntipsychotics: w.AtypicalAntipsychotics,
		PolycysticOvaries:      w.PolycysticOvaries,
		GestationalDiabetes:    w.GestationalDiabetes,
		FastingBloodGlucose:    positive(w.FastingBloodGlucose),
		HbA1c:                  positive(w.HbA1c),
		TownsendScore:          w.TownsendScore,
	}

	if age := positive(w.Age); age != nil {
		v := int(math.Round(*age))
		p.Age = &v
	}
	if w.Sex != nil {
		sex := qdiabetes.Sex(strings.ToLower(strings.TrimSpace(*w.Sex)))
		if sex.Valid() {
			p.Sex = &sex
		}
	}
	if w.Ethnicity != nil {
		v := qdiabetes.Ethnicity(math.Round(*w.Ethnicity))
		p.Ethnicity = &v
	}
	if w.Smoking != nil {
		v := qdiabetes.Smoking(math.Round(*w.Smoking))
		p.Smoking = &v
	}
	return p
}

func positive(v *float64) *float64 {
	if v == nil || !(*v > 0) {
		return nil
	}
	return v
}
