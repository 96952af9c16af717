package config

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("MAX_TOKENS", "")
	t.Setenv("CLAUDE_RELAY_URL", "")

	cfg := LoadConfig()

	if cfg.RelayURL != "http://localhost:8081/api/claude" {
		t.Errorf("RelayURL = %q", cfg.RelayURL)
	}
	if cfg.MaxTokens != 4000 {
		t.Errorf("MaxTokens = %d, want 4000", cfg.MaxTokens)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := Config{StoreBackend: BackendMemory, RelayURL: "http://x", MaxTokens: 10}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown backend", func(c *Config) { c.StoreBackend = "redis" }, true},
		{"postgres without url", func(c *Config) { c.StoreBackend = BackendPostgres; c.DatabaseURL = "" }, true},
		{"postgres pool", func(c *Config) { c.StoreBackend = BackendPostgres; c.DatabaseURL = "postgres://x"; c.DBMaxConns = 4; c.DBMinConns = 2 }, false},
		{"postgres min above max", func(c *Config) { c.StoreBackend = BackendPostgres; c.DatabaseURL = "postgres://x"; c.DBMaxConns = 2; c.DBMinConns = 3 }, true},
		{"zero tokens", func(c *Config) { c.MaxTokens = 0 }, true},
		{"slack without channel", func(c *Config) { c.SlackToken = "xoxb" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSecret(t *testing.T) {
	cfg := &Config{AnthropicKey: "sk-test"}
	if v, ok := cfg.Secret("ANTHROPIC_API_KEY"); !ok || v != "sk-test" {
		t.Errorf("Secret() = %q, %v", v, ok)
	}
	if _, ok := (&Config{}).Secret("ANTHROPIC_API_KEY"); ok {
		t.Error("expected missing secret")
	}
}
