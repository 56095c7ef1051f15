// Package gateway provides clients for the content generation backends.
//
// The engine treats generation as a black-box capability: build a Request,
// call Complete, get text back or an error. Provider specifics (Anthropic,
// Gemini) live behind the Client interface so the core never imports an SDK.
package gateway

import (
	"context"
	"errors"
	"time"
)

// Client is a content generation backend.
// Implementations must be safe for concurrent use.
type Client interface {
	// Complete sends a single-turn completion request.
	// The call may block for the full network + model latency; callers
	// bound it with a context deadline.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Name identifies the provider for logging and metrics.
	Name() string
}

// Request configures a completion call.
type Request struct {
	// System is the system instruction, may be empty.
	System string `json:"system,omitempty"`

	// Prompt is the user-turn content.
	Prompt string `json:"prompt"`

	// Model overrides the client's default model when non-empty.
	Model string `json:"model,omitempty"`

	// MaxTokens caps the response length. Zero means the client default.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls sampling. Negative means the provider default.
	Temperature float64 `json:"temperature,omitempty"`
}

// Response is the output of a completion call.
type Response struct {
	Text     string        `json:"text"`
	Model    string        `json:"model"`
	Usage    TokenUsage    `json:"usage"`
	Duration time.Duration `json:"duration"`
}

// TokenUsage tracks token consumption across calls.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Add accumulates usage from another call.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Sentinel errors for gateway calls.
var (
	// ErrNoAPIKey indicates no API key was provided or found in the environment.
	ErrNoAPIKey = errors.New("gateway: no API key configured")

	// ErrEmptyResponse indicates the provider returned no usable text.
	ErrEmptyResponse = errors.New("gateway: empty response")
)
