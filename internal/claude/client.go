package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shubh-37/music-brief-analyzer/internal/apperr"
)

const DefaultMaxTokens = 4000

// Client talks to the relay endpoint, never to the provider directly.
// It sets no timeout and does not retry.
type Client struct {
	relayURL   string
	httpClient *http.Client
}

func NewClient(relayURL string) *Client {
	return &Client{
		relayURL:   relayURL,
		httpClient: &http.Client{},
	}
}

// WithHTTPClient swaps the transport, mainly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Send posts the messages and returns the first text block of the reply.
func (c *Client) Send(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	jsonData, err := json.Marshal(relayRequest{Messages: messages, MaxTokens: maxTokens})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.relayURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperr.Transport("API request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Transport("failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apperr.Transport(fmt.Sprintf("API request failed (%d): %s", resp.StatusCode, string(body)), nil)
	}

	var apiResp relayResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", apperr.EmptyResponse("Invalid response from API")
	}

	if apiResp.Error != "" {
		return "", apperr.Upstream(apiResp.Error)
	}

	if len(apiResp.Content) == 0 || apiResp.Content[0].Text == "" {
		return "", apperr.EmptyResponse("Invalid response from API")
	}

	return apiResp.Content[0].Text, nil
}
