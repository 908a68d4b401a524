// Package llm is the sole doorway to model providers. It layers an on-disk
// response cache and a sliding-window rate limiter over a pluggable Provider
// interface, behind one request/response contract.
package llm

import (
	"encoding/json"

	"github.com/kotoba-lab/tessa/pkg/models"
)

// Provider identifiers.
const (
	ProviderMock   = "mock"
	ProviderOpenAI = "openai"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ResponseFormat selects how the model is asked to shape its output.
type ResponseFormat string

const (
	// ResponseFormatText requests free-form text output.
	ResponseFormatText ResponseFormat = "text"
	// ResponseFormatJSON requests a JSON object output.
	ResponseFormatJSON ResponseFormat = "json"
)

// DefaultTokenCost is the declared rate-limiter cost when a request sets no
// MaxOutputTokens.
const DefaultTokenCost = 512

// ModelSpec selects a provider and its sampling parameters.
type ModelSpec struct {
	Provider        string   `json:"provider" yaml:"provider"`
	Name            string   `json:"name" yaml:"name"`
	Temperature     float64  `json:"temperature" yaml:"temperature"`
	TopP            *float64 `json:"topP,omitempty" yaml:"topP,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty" yaml:"maxOutputTokens,omitempty"`
	JSONMode        bool     `json:"jsonMode,omitempty" yaml:"jsonMode,omitempty"`
}

// Message is one turn of a model conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request carries everything a provider needs to produce a completion.
type Request struct {
	Model          ModelSpec      `json:"model"`
	Messages       []Message      `json:"messages"`
	ResponseFormat ResponseFormat `json:"responseFormat,omitempty"`
}

// TokenCost is the upper-bound token cost the caller declares to the rate
// limiter for this request.
func (r Request) TokenCost() int {
	if r.Model.MaxOutputTokens > 0 {
		return r.Model.MaxOutputTokens
	}
	return DefaultTokenCost
}

// LastUserContent returns the content of the last user-role message, or the
// empty string when none exists.
func (r Request) LastUserContent() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}

// Response is the provider-independent completion result.
type Response struct {
	Text  string            `json:"text"`
	Usage models.TokenUsage `json:"usage"`
	// Raw preserves the provider payload for debugging; nil for providers
	// without a wire format.
	Raw json.RawMessage `json:"raw,omitempty"`
}
