package claude

// Message is one chat turn sent through the relay
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// relayRequest is what the client posts and the relay accepts
type relayRequest struct {
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

// relayResponse carries either upstream content or a relay error string
type relayResponse struct {
	Content []contentBlock `json:"content"`
	Error   string         `json:"error,omitempty"`
}

type contentBlock struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text"`
}

type anthropicRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []Message `json:"messages"`
}
