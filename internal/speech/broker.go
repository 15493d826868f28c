package speech

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/riskcalc/platform/internal/shared/config"
	"github.com/riskcalc/platform/internal/shared/metrics"
)

var (
	ErrNotConfigured = errors.New("speech service is not configured")
	ErrNoProject     = errors.New("no speech project found")
)

const keyComment = "Temporary key for voice input"

// Token is a short-lived key the browser uses to stream audio directly.
type Token struct {
	Key       string `json:"key"`
	ExpiresIn int    `json:"expiresIn"`
}

type projectsResponse struct {
	Projects []struct {
		ProjectID string `json:"project_id"`
		Name      string `json:"name"`
	} `json:"projects"`
}

type createKeyRequest struct {
	Comment           string   `json:"comment"`
	Scopes            []string `json:"scopes"`
	TimeToLiveSeconds int      `json:"time_to_live_in_seconds"`
}

type createKeyResponse struct {
	KeyID string `json:"api_key_id"`
	Key   string `json:"key"`
}

type apiError struct {
	Category string `json:"err_code"`
	Message  string `json:"err_msg"`
}

// Broker exchanges the master Deepgram key for temporary keys.
type Broker struct {
	http   *resty.Client
	ttl    int
	logger *zap.Logger
}

// NewBroker creates a broker. Without an API key every Token call fails with
// ErrNotConfigured.
func NewBroker(cfg config.SpeechConfig, logger *zap.Logger) *Broker {
	ttl := int(cfg.TTL / time.Second)
	if ttl <= 0 {
		ttl = 30
	}

	var client *resty.Client
	if cfg.APIKey != "" {
		client = resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(10*time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(200*time.Millisecond).
			SetRetryMaxWaitTime(time.Second).
			SetHeader("Authorization", "Token "+cfg.APIKey).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json")
	}

	return &Broker{http: client, ttl: ttl, logger: logger}
}

// Token creates a temporary key scoped to usage:write in the first project
// visible to the master key.
func (b *Broker) Token(ctx context.Context) (Token, error) {
	if b.http == nil {
		metrics.RecordSpeechToken("not_configured")
		return Token{}, ErrNotConfigured
	}

	token, err := b.createToken(ctx)
	if err != nil {
		metrics.RecordSpeechToken("error")
		b.logger.Error("speech token request failed", zap.Error(err))
		return Token{}, err
	}

	metrics.RecordSpeechToken("ok")
	return token, nil
}

func (b *Broker) createToken(ctx context.Context) (Token, error) {
	var projects projectsResponse
	var apiErr apiError
	resp, err := b.http.R().
		SetContext(ctx).
		SetResult(&projects).
		SetError(&apiErr).
		Get("/projects")
	if err != nil {
		return Token{}, fmt.Errorf("failed to list projects: %w", err)
	}
	if resp.IsError() {
		return Token{}, fmt.Errorf("failed to list projects: status %d: %s", resp.StatusCode(), apiErr.Message)
	}
	if len(projects.Projects) == 0 || projects.Projects[0].ProjectID == "" {
		return Token{}, ErrNoProject
	}
	projectID := projects.Projects[0].ProjectID

	var created createKeyResponse
	resp, err = b.http.R().
		SetContext(ctx).
		SetPathParam("projectID", projectID).
		SetBody(createKeyRequest{
			Comment:           keyComment,
			Scopes:            []string{"usage:write"},
			TimeToLiveSeconds: b.ttl,
		}).
		SetResult(&created).
		SetError(&apiErr).
		Post("/projects/{projectID}/keys")
	if err != nil {
		return Token{}, fmt.Errorf("failed to create key: %w", err)
	}
	if resp.IsError() {
		return Token{}, fmt.Errorf("failed to create key: status %d: %s", resp.StatusCode(), apiErr.Message)
	}
	if created.Key == "" {
		return Token{}, errors.New("failed to create key: empty key in response")
	}

	return Token{Key: created.Key, ExpiresIn: b.ttl}, nil
}
