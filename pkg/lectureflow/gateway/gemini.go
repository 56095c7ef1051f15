package gateway

import (
	"context"
	"fmt"
	"os"
	"time"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// Gemini implements Client using the Google GenAI API.
type Gemini struct {
	client    *genai.Client
	model     string
	maxTokens int
}

// GeminiOption configures a Gemini client.
type GeminiOption func(*Gemini)

// WithGeminiModel sets the default model.
func WithGeminiModel(model string) GeminiOption {
	return func(g *Gemini) { g.model = model }
}

// WithGeminiMaxTokens sets the default response token cap.
func WithGeminiMaxTokens(n int) GeminiOption {
	return func(g *Gemini) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// NewGemini creates a Gemini-backed gateway client.
// If apiKey is empty, the GEMINI_API_KEY environment variable is used.
func NewGemini(ctx context.Context, apiKey string, opts ...GeminiOption) (*Gemini, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	g := &Gemini{
		client:    client,
		model:     DefaultGeminiModel,
		maxTokens: 2048,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Name implements Client.
func (g *Gemini) Name() string { return "gemini" }

// Complete implements Client.
func (g *Gemini) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = g.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = g.maxTokens
	}

	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature >= 0 {
		temp := float32(req.Temperature)
		cfg.Temperature = &temp
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, ErrEmptyResponse
	}

	usage := TokenUsage{}
	if resp.UsageMetadata != nil {
		usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return &Response{
		Text:     text,
		Model:    model,
		Usage:    usage,
		Duration: time.Since(start),
	}, nil
}
