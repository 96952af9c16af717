package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

type staticSecrets map[string]string

func (s staticSecrets) Secret(key string) (string, bool) {
	v, ok := s[key]
	return v, ok
}

func newRelayRouter(r *Relay) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/claude", r.Handle)
	return router
}

func TestRelayForwardsWithFixedModel(t *testing.T) {
	var gotHeaders http.Header
	var gotBody anthropicRequest
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotHeaders = r.Header.Clone()
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	}))
	defer upstream.Close()

	relay := NewRelay(staticSecrets{"ANTHROPIC_API_KEY": "sk-test"}, RelayConfig{
		BaseURL: upstream.URL,
		Model:   "model-x",
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/claude",
		strings.NewReader(`{"messages":[{"role":"user","content":"hi"}],"max_tokens":50}`))
	newRelayRouter(relay).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if gotHeaders.Get("x-api-key") != "sk-test" || gotHeaders.Get("anthropic-version") != "2023-06-01" {
		t.Errorf("unexpected headers %v", gotHeaders)
	}
	if gotBody.Model != "model-x" || gotBody.MaxTokens != 50 || gotBody.Messages[0].Content != "hi" {
		t.Errorf("unexpected body %+v", gotBody)
	}
	if !strings.Contains(rec.Body.String(), `"text":"ok"`) {
		t.Errorf("body not passed through: %s", rec.Body.String())
	}
}

func TestRelayMissingKey(t *testing.T) {
	relay := NewRelay(staticSecrets{}, RelayConfig{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/claude", strings.NewReader(`{"messages":[]}`))
	newRelayRouter(relay).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ANTHROPIC_API_KEY not found") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRelayPropagatesUpstreamStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("rate limited"))
	}))
	defer upstream.Close()

	relay := NewRelay(staticSecrets{"ANTHROPIC_API_KEY": "k"}, RelayConfig{BaseURL: upstream.URL})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/claude", strings.NewReader(`{"messages":[]}`))
	newRelayRouter(relay).ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rec.Code)
	}
	var out map[string]string
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out["error"] != "Claude API error: rate limited" {
		t.Errorf("error = %q", out["error"])
	}
}

func TestRelayRejectsMalformedRequest(t *testing.T) {
	relay := NewRelay(staticSecrets{"ANTHROPIC_API_KEY": "k"}, RelayConfig{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/claude", strings.NewReader(`{not json`))
	newRelayRouter(relay).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestClientThroughRelay(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("prompt is too long"))
	}))
	defer upstream.Close()

	relay := NewRelay(staticSecrets{"ANTHROPIC_API_KEY": "k"}, RelayConfig{BaseURL: upstream.URL})
	front := httptest.NewServer(newRelayRouter(relay))
	defer front.Close()

	_, err := NewClient(front.URL+"/api/claude").Send(context.Background(), []Message{{Role: "user", Content: "x"}}, 10)
	if err == nil || !strings.Contains(err.Error(), "API request failed (400)") || !strings.Contains(err.Error(), "prompt is too long") {
		t.Fatalf("unexpected error %v", err)
	}
}
