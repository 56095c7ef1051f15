package gateway

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-sonnet-4-20250514"

// Anthropic implements Client using the Anthropic Messages API.
type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// AnthropicOption configures an Anthropic client.
type AnthropicOption func(*Anthropic)

// WithAnthropicModel sets the default model.
func WithAnthropicModel(model string) AnthropicOption {
	return func(a *Anthropic) { a.model = model }
}

// WithAnthropicMaxTokens sets the default response token cap.
func WithAnthropicMaxTokens(n int) AnthropicOption {
	return func(a *Anthropic) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

// NewAnthropic creates an Anthropic-backed gateway client.
// If apiKey is empty, the ANTHROPIC_API_KEY environment variable is used.
func NewAnthropic(apiKey string, opts ...AnthropicOption) (*Anthropic, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	a := &Anthropic{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     DefaultAnthropicModel,
		maxTokens: 2048,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Name implements Client.
func (a *Anthropic) Name() string { return "anthropic" }

// Complete implements Client.
func (a *Anthropic) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = a.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = a.maxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic request: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, ErrEmptyResponse
	}

	return &Response{
		Text:  text.String(),
		Model: model,
		Usage: TokenUsage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
		Duration: time.Since(start),
	}, nil
}
