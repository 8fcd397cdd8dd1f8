// Package llm is an optional date-parsing capability backed by a language
// model. It satisfies dateparse.Parser and can stand in for the rule parser.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends one prompt and returns the raw model output
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest is one prompt for a provider
type CompletionRequest struct {
	System    string
	Prompt    string
	Model     string // Provider default when empty
	MaxTokens int
}

// CompletionResponse is the model output for a CompletionRequest
type CompletionResponse struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	Model   string
	APIKey  string
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	MaxTokens int

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Timeout:   30,
		MaxTokens: 1000,
	}
}

const systemPrompt = "You extract dates from historical documents about buildings and sites. You answer with JSON only."

// BuildPrompt asks the model for every date mention in text. Relative
// mentions are resolved against ref.
func BuildPrompt(text string, ref time.Time) string {
	return fmt.Sprintf(`List every date mentioned in the text below.

Rules:
1. Answer with a JSON array and nothing else.
2. Each element is {"text": "...", "date": "...", "end": "..."}.
3. "text" MUST be copied exactly, character for character, from the text.
4. "date" is YYYY, YYYY-MM or YYYY-MM-DD, using only the parts the text states.
5. "end" is only for ranges such as "1920-1925" or decades such as "the 1920s"; omit it otherwise.
6. Resolve relative mentions such as "last year" against the reference date %s.
7. Write a two-digit year such as '62 as 2062.
8. Return [] when there are no dates.

Text:
"""
%s
"""`, ref.Format("2006-01-02"), text)
}

// mention is one element of the model's JSON answer
type mention struct {
	Text string `json:"text"`
	Date string `json:"date"`
	End  string `json:"end,omitempty"`
}

// parseMentions decodes the model answer, tolerating code fences and
// prose around the JSON array
func parseMentions(output string) ([]mention, error) {
	output = strings.TrimSpace(output)
	start := strings.Index(output, "[")
	end := strings.LastIndex(output, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in model output")
	}

	var out []mention
	if err := json.Unmarshal([]byte(output[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("decode model output: %w", err)
	}
	return out, nil
}

const defaultTimeout = 30 * time.Second

func timeoutOf(cfg Config, fallback time.Duration) time.Duration {
	if cfg.Timeout > 0 {
		return time.Duration(cfg.Timeout) * time.Second
	}
	return fallback
}

func maxTokensOf(req CompletionRequest, cfg Config) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if cfg.MaxTokens > 0 {
		return cfg.MaxTokens
	}
	return 1000
}
