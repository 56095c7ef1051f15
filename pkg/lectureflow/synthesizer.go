package lectureflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/randalmurphal/lectureflow/pkg/lectureflow/gateway"
	"github.com/randalmurphal/lectureflow/pkg/lectureflow/observability"
)

// GenerationContext carries everything the synthesizer needs to frame a
// generation request: where the cursor sits, what came before, and how the
// session wants content biased.
type GenerationContext struct {
	Topic          string
	SlideTitle     string
	SlideIndex     int
	TotalSlides    int
	NextTitle      string
	IsFirst        bool
	KnowledgeLevel string
	ThreadKind     ThreadKind

	// PriorSlide is the content of the preceding slide, for continuity.
	PriorSlide *Content
}

// GeneratedSlide is the synthesizer's output: a content payload plus the
// action descriptors computed for it.
type GeneratedSlide struct {
	Content Content
	Actions []ActionDescriptor
}

// Synthesizer turns graph operations into generation requests, calls the
// gateway, and packages the result into the thread graph's data model.
//
// The synthesizer never substitutes placeholder content: a gateway failure
// surfaces as a GenerationError with the cause attached. The one retry it
// performs is for malformed JSON in an otherwise successful response - a
// provider output concern, not an operation retry.
type Synthesizer struct {
	client      gateway.Client
	model       string
	maxTokens   int
	temperature float64
	logger      *slog.Logger
	metrics     observability.MetricsRecorder
	spans       observability.SpanManager
}

// SynthOption configures a Synthesizer.
type SynthOption func(*Synthesizer)

// WithSynthModel overrides the gateway client's default model.
func WithSynthModel(model string) SynthOption {
	return func(s *Synthesizer) { s.model = model }
}

// WithSynthMaxTokens caps response length per call.
func WithSynthMaxTokens(n int) SynthOption {
	return func(s *Synthesizer) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// WithSynthLogger sets the logger for gateway diagnostics.
func WithSynthLogger(logger *slog.Logger) SynthOption {
	return func(s *Synthesizer) { s.logger = logger }
}

// WithSynthMetrics sets the metrics recorder for gateway calls.
func WithSynthMetrics(m observability.MetricsRecorder) SynthOption {
	return func(s *Synthesizer) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithSynthSpans sets the span manager for gateway call tracing.
func WithSynthSpans(sm observability.SpanManager) SynthOption {
	return func(s *Synthesizer) {
		if sm != nil {
			s.spans = sm
		}
	}
}

// NewSynthesizer creates a synthesizer backed by the given gateway client.
func NewSynthesizer(client gateway.Client, opts ...SynthOption) *Synthesizer {
	s := &Synthesizer{
		client:      client,
		maxTokens:   2048,
		temperature: -1,
		logger:      slog.Default(),
		metrics:     observability.NoopMetrics{},
		spans:       observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// outlineSize is how many titles the initial outline requests.
const outlineSize = 5

// Outline generates the initial planned slide titles for a topic.
func (s *Synthesizer) Outline(ctx context.Context, topic string) ([]string, error) {
	return s.completeTitles(ctx, "outline", outlinePrompt(topic, outlineSize))
}

// ExtendOutline generates count additional titles continuing an outline.
func (s *Synthesizer) ExtendOutline(ctx context.Context, topic string, existing []string, count int) ([]string, error) {
	return s.completeTitles(ctx, "extend_outline", extendOutlinePrompt(topic, existing, count))
}

// Slide generates the slide for the position described by gc.
func (s *Synthesizer) Slide(ctx context.Context, gc GenerationContext) (*GeneratedSlide, error) {
	return s.completeSlide(ctx, "slide", slidePrompt(gc))
}

// Clarify rewrites content more accessibly, in place. An optional style
// hint ("analogy", "step-by-step") biases the rewrite.
func (s *Synthesizer) Clarify(ctx context.Context, content Content, gc GenerationContext, style string) (*GeneratedSlide, error) {
	return s.completeSlide(ctx, "clarify", clarifyPrompt(content, gc, style))
}

// DeepDive generates the opening slide of a deep-dive detour.
func (s *Synthesizer) DeepDive(ctx context.Context, topic, concept string, gc GenerationContext) (*GeneratedSlide, error) {
	return s.completeSlide(ctx, "deep_dive", deepDivePrompt(topic, concept, gc))
}

// Example generates a worked example for the current content.
func (s *Synthesizer) Example(ctx context.Context, content Content, gc GenerationContext, exampleType string) (*GeneratedSlide, error) {
	return s.completeSlide(ctx, "example", examplePrompt(content, gc, exampleType))
}

// Quiz generates a quiz question over the current content.
func (s *Synthesizer) Quiz(ctx context.Context, content Content, gc GenerationContext) (*GeneratedSlide, error) {
	return s.completeSlide(ctx, "quiz", quizPrompt(content, gc))
}

// References generates a curated learning resources slide.
func (s *Synthesizer) References(ctx context.Context, topic string, covered []string) (*GeneratedSlide, error) {
	return s.completeSlide(ctx, "references", referencesPrompt(topic, covered))
}

// ConceptMap generates a concept map slide for the covered material.
func (s *Synthesizer) ConceptMap(ctx context.Context, topic string, covered []string) (*GeneratedSlide, error) {
	return s.completeSlide(ctx, "concept_map", conceptMapPrompt(topic, covered))
}

// Regenerate produces a replacement for the slide described by gc. The
// prompt explicitly signals that the result supersedes that position so
// the generator biases toward consistency rather than an unrelated slide.
func (s *Synthesizer) Regenerate(ctx context.Context, gc GenerationContext, feedback string) (*GeneratedSlide, error) {
	return s.completeSlide(ctx, "regenerate", regeneratePrompt(gc, feedback))
}

// complete performs one gateway round trip and records observability.
func (s *Synthesizer) complete(ctx context.Context, op, prompt string) (string, error) {
	ctx, span := s.spans.StartGatewaySpan(ctx, s.client.Name(), op)
	start := time.Now()

	resp, err := s.client.Complete(ctx, gateway.Request{
		System:      systemPrompt,
		Prompt:      prompt,
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})

	duration := time.Since(start)
	tokens := 0
	if resp != nil {
		tokens = resp.Usage.Total()
	}
	s.metrics.RecordGatewayCall(ctx, s.client.Name(), op, duration, tokens, err)
	observability.LogGatewayCall(s.logger, s.client.Name(), op,
		float64(duration.Milliseconds()), tokens, err)
	s.spans.EndSpanWithError(span, err)

	if err != nil {
		return "", &GenerationError{Op: op, Cause: err}
	}
	return resp.Text, nil
}

// completeSlide runs a slide-producing prompt and parses the wire format,
// retrying once with an error-correcting prompt on malformed JSON.
func (s *Synthesizer) completeSlide(ctx context.Context, op, prompt string) (*GeneratedSlide, error) {
	raw, err := s.complete(ctx, op, prompt)
	if err != nil {
		return nil, err
	}

	slide, parseErr := parseSlideWire(raw)
	if parseErr != nil {
		s.logger.Debug("slide parse failed, retrying",
			slog.String("op", op),
			slog.String("error", parseErr.Error()),
		)
		raw, err = s.complete(ctx, op, retryPrompt(prompt, parseErr.Error(), raw))
		if err != nil {
			return nil, err
		}
		slide, parseErr = parseSlideWire(raw)
		if parseErr != nil {
			return nil, &GenerationError{Op: op, Cause: parseErr}
		}
	}

	slide.Actions = filterActions(slide.Actions)
	return slide, nil
}

// completeTitles runs a title-list prompt and parses the JSON array,
// with the same single parse retry as slides.
func (s *Synthesizer) completeTitles(ctx context.Context, op, prompt string) ([]string, error) {
	raw, err := s.complete(ctx, op, prompt)
	if err != nil {
		return nil, err
	}

	titles, parseErr := parseTitles(raw)
	if parseErr != nil {
		raw, err = s.complete(ctx, op, retryPrompt(prompt, parseErr.Error(), raw))
		if err != nil {
			return nil, err
		}
		titles, parseErr = parseTitles(raw)
		if parseErr != nil {
			return nil, &GenerationError{Op: op, Cause: parseErr}
		}
	}
	return titles, nil
}

// slideWire mirrors the generator's JSON contract: "text" for the body,
// "action" for the control name.
type slideWire struct {
	Content struct {
		Title       string `json:"title"`
		Text        string `json:"text"`
		DiagramCode string `json:"diagram_code"`
	} `json:"content"`
	Controls []struct {
		Label  string         `json:"label"`
		Action string         `json:"action"`
		Params map[string]any `json:"params"`
	} `json:"controls"`
}

// parseSlideWire decodes a generated slide payload.
func parseSlideWire(raw string) (*GeneratedSlide, error) {
	var wire slideWire
	if err := json.Unmarshal([]byte(stripFences(raw)), &wire); err != nil {
		return nil, fmt.Errorf("decode slide payload: %w", err)
	}
	if wire.Content.Title == "" && wire.Content.Text == "" {
		return nil, fmt.Errorf("decode slide payload: empty content")
	}

	out := &GeneratedSlide{
		Content: Content{
			Title:       wire.Content.Title,
			Body:        wire.Content.Text,
			DiagramCode: wire.Content.DiagramCode,
		},
	}
	for _, c := range wire.Controls {
		out.Actions = append(out.Actions, ActionDescriptor{
			Name:   c.Action,
			Label:  c.Label,
			Params: c.Params,
		})
	}
	return out, nil
}

// parseTitles decodes a generated title list.
func parseTitles(raw string) ([]string, error) {
	var titles []string
	if err := json.Unmarshal([]byte(stripFences(raw)), &titles); err != nil {
		return nil, fmt.Errorf("decode title list: %w", err)
	}
	if len(titles) == 0 {
		return nil, fmt.Errorf("decode title list: empty")
	}
	return titles, nil
}

// stripFences removes a surrounding markdown code block, which generators
// often wrap JSON in despite instructions.
func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if nl := strings.IndexByte(text, '\n'); nl != -1 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// filterActions drops descriptors naming actions outside the fixed
// vocabulary, keeping the router a closed dispatch table no matter what
// the generator invents. An empty result gets a minimal navigation set.
func filterActions(actions []ActionDescriptor) []ActionDescriptor {
	out := actions[:0]
	for _, a := range actions {
		if knownActions[a.Name] {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		out = []ActionDescriptor{
			{Name: ActionAdvance, Label: "Next"},
			{Name: ActionPrevious, Label: "Previous"},
			{Name: ActionClarify, Label: "Clarify This"},
		}
	}
	return out
}
