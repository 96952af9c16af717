package claude

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

const apiKeySecret = "ANTHROPIC_API_KEY"

// SecretSource resolves provider credentials at request time
type SecretSource interface {
	Secret(key string) (string, bool)
}

type RelayConfig struct {
	BaseURL    string
	Model      string
	APIVersion string
}

// Relay forwards chat requests to the Anthropic messages API with a fixed
// model and version header.
type Relay struct {
	secrets    SecretSource
	cfg        RelayConfig
	httpClient *http.Client
}

func NewRelay(secrets SecretSource, cfg RelayConfig) *Relay {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2023-06-01"
	}
	return &Relay{secrets: secrets, cfg: cfg, httpClient: &http.Client{}}
}

func (r *Relay) WithHTTPClient(hc *http.Client) *Relay {
	r.httpClient = hc
	return r
}

// Handle is the gin handler for POST /api/claude.
func (r *Relay) Handle(c *gin.Context) {
	var in relayRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		log.Printf("relay: bad request: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	apiKey, ok := r.secrets.Secret(apiKeySecret)
	if !ok || apiKey == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ANTHROPIC_API_KEY not found in lab app secrets"})
		return
	}

	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	status, body, err := r.forward(c, apiKey, anthropicRequest{
		Model:     r.cfg.Model,
		MaxTokens: maxTokens,
		Messages:  in.Messages,
	})
	if err != nil {
		log.Printf("relay: upstream call failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if status != http.StatusOK {
		log.Printf("Anthropic API error (status %d): %s", status, string(body))
		c.JSON(status, gin.H{"error": fmt.Sprintf("Claude API error: %s", string(body))})
		return
	}

	c.Data(http.StatusOK, "application/json", body)
}

func (r *Relay) forward(c *gin.Context, apiKey string, reqBody anthropicRequest) (int, []byte, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodPost, r.cfg.BaseURL+"/v1/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", r.cfg.APIVersion)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to call Anthropic API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, body, nil
}
