package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Mock is a deterministic in-memory Client for tests and examples.
//
// Responses are served from a FIFO script when one is queued; otherwise a
// canned response is synthesized from the prompt: prompts asking for a JSON
// array get a title list, everything else gets a minimal slide object in the
// synthesizer's wire format.
type Mock struct {
	mu       sync.Mutex
	script   []scripted
	calls    []Request
	delay    time.Duration
	failWith error
}

type scripted struct {
	text string
	err  error
}

// NewMock creates an empty mock client.
func NewMock() *Mock {
	return &Mock{}
}

// Enqueue schedules the next response text, in FIFO order.
func (m *Mock) Enqueue(text string) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scripted{text: text})
	return m
}

// EnqueueError schedules a failing call, in FIFO order.
func (m *Mock) EnqueueError(err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scripted{err: err})
	return m
}

// FailWith makes every call fail with err until reset with FailWith(nil).
// Scripted responses take precedence.
func (m *Mock) FailWith(err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
	return m
}

// SetDelay makes every call block for d (or until the context is done).
func (m *Mock) SetDelay(d time.Duration) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// Calls returns a copy of all requests seen so far.
func (m *Mock) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of requests seen so far.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Name implements Client.
func (m *Mock) Name() string { return "mock" }

// Complete implements Client.
func (m *Mock) Complete(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	delay := m.delay
	var next *scripted
	if len(m.script) > 0 {
		s := m.script[0]
		m.script = m.script[1:]
		next = &s
	}
	failWith := m.failWith
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var text string
	switch {
	case next != nil:
		if next.err != nil {
			return nil, next.err
		}
		text = next.text
	case failWith != nil:
		return nil, failWith
	default:
		text = m.canned(req)
	}

	return &Response{
		Text:     text,
		Model:    "mock",
		Usage:    TokenUsage{InputTokens: len(req.Prompt) / 4, OutputTokens: len(text) / 4},
		Duration: delay,
	}, nil
}

// canned synthesizes a plausible response from the prompt shape.
func (m *Mock) canned(req Request) string {
	if strings.Contains(req.Prompt, "JSON array") {
		return `["Introduction", "Core Concepts", "Going Deeper", "In Practice", "Pitfalls"]`
	}
	title := "Generated Slide"
	if i := strings.Index(req.Prompt, `slide title: "`); i >= 0 {
		rest := req.Prompt[i+len(`slide title: "`):]
		if j := strings.Index(rest, `"`); j > 0 {
			title = rest[:j]
		}
	}
	return fmt.Sprintf(`{
  "content": {"title": %q, "text": "Mock content for %s."},
  "controls": [
    {"label": "Next", "action": "advance_main_thread"},
    {"label": "Previous", "action": "go_previous"},
    {"label": "Clarify This", "action": "clarify_slide"},
    {"label": "Deep Dive: Example Concept", "action": "deep_dive", "params": {"concept": "Example Concept"}}
  ]
}`, title, title)
}
