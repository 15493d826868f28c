package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/riskcalc/platform/internal/shared/config"
)

type fakeDeepgram struct {
	projects []map[string]string
	keyReq   createKeyRequest
	status   int
}

func (f *fakeDeepgram) server(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/v1/projects", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Token master-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		if f.status != 0 {
			w.WriteHeader(f.status)
			json.NewEncoder(w).Encode(map[string]string{"err_code": "INVALID_AUTH", "err_msg": "Invalid credentials."})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"projects": f.projects})
	})
	r.Post("/v1/projects/{projectID}/keys", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "proj-1", chi.URLParam(r, "projectID"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.keyReq))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"api_key_id": "k1", "key": "temp-key"})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newTestBroker(url string, ttl time.Duration) *Broker {
	return NewBroker(config.SpeechConfig{BaseURL: url + "/v1", APIKey: "master-key", TTL: ttl}, zap.NewNop())
}

func TestBroker_Token(t *testing.T) {
	fake := &fakeDeepgram{projects: []map[string]string{
		{"project_id": "proj-1", "name": "primary"},
		{"project_id": "proj-2", "name": "secondary"},
	}}
	srv := fake.server(t)

	token, err := newTestBroker(srv.URL, 30*time.Second).Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Token{Key: "temp-key", ExpiresIn: 30}, token)
	assert.Equal(t, "Temporary key for voice input", fake.keyReq.Comment)
	assert.Equal(t, []string{"usage:write"}, fake.keyReq.Scopes)
	assert.Equal(t, 30, fake.keyReq.TimeToLiveSeconds)
}

func TestBroker_CustomTTL(t *testing.T) {
	fake := &fakeDeepgram{projects: []map[string]string{{"project_id": "proj-1"}}}
	srv := fake.server(t)

	token, err := newTestBroker(srv.URL, 2*time.Minute).Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 120, token.ExpiresIn)
	assert.Equal(t, 120, fake.keyReq.TimeToLiveSeconds)
}

func TestBroker_NoProject(t *testing.T) {
	srv := (&fakeDeepgram{}).server(t)

	_, err := newTestBroker(srv.URL, 30*time.Second).Token(context.Background())
	assert.ErrorIs(t, err, ErrNoProject)
}

func TestBroker_Unauthorized(t *testing.T) {
	srv := (&fakeDeepgram{status: http.StatusUnauthorized}).server(t)

	_, err := newTestBroker(srv.URL, 30*time.Second).Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "Invalid credentials.")
}

func TestBroker_NotConfigured(t *testing.T) {
	b := NewBroker(config.SpeechConfig{BaseURL: "http://localhost"}, zap.NewNop())

	_, err := b.Token(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}
