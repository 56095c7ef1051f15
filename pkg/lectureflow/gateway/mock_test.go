package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMock_ScriptedResponses verifies FIFO ordering of scripted replies.
func TestMock_ScriptedResponses(t *testing.T) {
	scriptErr := errors.New("scripted failure")
	m := NewMock().
		Enqueue("first").
		EnqueueError(scriptErr).
		Enqueue("third")
	ctx := context.Background()

	resp, err := m.Complete(ctx, Request{Prompt: "a"})
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Text)

	_, err = m.Complete(ctx, Request{Prompt: "b"})
	assert.ErrorIs(t, err, scriptErr)

	resp, err = m.Complete(ctx, Request{Prompt: "c"})
	require.NoError(t, err)
	assert.Equal(t, "third", resp.Text)
	assert.Equal(t, 3, m.CallCount())
}

// TestMock_CannedResponses verifies prompt-shaped synthesis: title lists
// for array prompts, slide JSON otherwise.
func TestMock_CannedResponses(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	resp, err := m.Complete(ctx, Request{Prompt: "Return ONLY a JSON array of strings"})
	require.NoError(t, err)
	assert.Contains(t, resp.Text, `["Introduction"`)

	resp, err = m.Complete(ctx, Request{Prompt: `Current slide title: "Borrowing"`})
	require.NoError(t, err)
	assert.Contains(t, resp.Text, `"title": "Borrowing"`)
}

// TestMock_FailWith verifies persistent failure mode and reset.
func TestMock_FailWith(t *testing.T) {
	cause := errors.New("down")
	m := NewMock().FailWith(cause)
	ctx := context.Background()

	_, err := m.Complete(ctx, Request{})
	assert.ErrorIs(t, err, cause)

	m.FailWith(nil)
	_, err = m.Complete(ctx, Request{})
	assert.NoError(t, err)
}

// TestMock_DelayHonorsContext verifies a delayed call aborts on cancel.
func TestMock_DelayHonorsContext(t *testing.T) {
	m := NewMock().SetDelay(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := m.Complete(ctx, Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

// TestTokenUsage verifies accounting helpers.
func TestTokenUsage(t *testing.T) {
	u := TokenUsage{InputTokens: 100, OutputTokens: 40}
	assert.Equal(t, 140, u.Total())

	u.Add(TokenUsage{InputTokens: 10, OutputTokens: 5})
	assert.Equal(t, 110, u.InputTokens)
	assert.Equal(t, 45, u.OutputTokens)
}
