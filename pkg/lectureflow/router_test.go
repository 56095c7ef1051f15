package lectureflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestResolveAction_Navigation verifies parameterless actions resolve.
func TestResolveAction_Navigation(t *testing.T) {
	testCases := []struct {
		action string
		op     operation
	}{
		{ActionAdvance, opAdvance},
		{ActionPrevious, opBack},
		{ActionQuizMe, opQuiz},
		{ActionReturnToMain, opReturn},
		{ActionShowReferences, opReferences},
		{ActionConceptMap, opConceptMap},
	}

	for _, tc := range testCases {
		t.Run(tc.action, func(t *testing.T) {
			inv, err := resolveAction(tc.action, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.op, inv.op)
			assert.Equal(t, tc.action, inv.action)
		})
	}
}

// TestResolveAction_Unknown verifies unknown names fail before dispatch.
func TestResolveAction_Unknown(t *testing.T) {
	_, err := resolveAction("jump_to_end", nil)
	assert.ErrorIs(t, err, ErrUnsupportedAction)

	var uaErr *UnsupportedActionError
	require.True(t, errors.As(err, &uaErr))
	assert.Equal(t, "jump_to_end", uaErr.Action)
}

// TestResolveAction_RequiredParams verifies missing required parameters
// are rejected with the parameter named.
func TestResolveAction_RequiredParams(t *testing.T) {
	testCases := []struct {
		name   string
		action string
		params map[string]any
		param  string
	}{
		{"deep_dive without concept", ActionDeepDive, nil, "concept"},
		{"deep_dive empty concept", ActionDeepDive, map[string]any{"concept": ""}, "concept"},
		{"quiz_answer without answer", ActionQuizAnswer, map[string]any{"correct": true}, "answer"},
		{"resume_detour without thread_id", ActionResumeDetour, nil, "thread_id"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := resolveAction(tc.action, tc.params)
			assert.ErrorIs(t, err, ErrMissingParameter)

			var mpErr *MissingParameterError
			require.True(t, errors.As(err, &mpErr))
			assert.Equal(t, tc.param, mpErr.Param)
		})
	}
}

// TestResolveAction_DeepDive verifies the concept parameter is captured.
func TestResolveAction_DeepDive(t *testing.T) {
	inv, err := resolveAction(ActionDeepDive, map[string]any{"concept": "borrow checker"})
	require.NoError(t, err)
	assert.Equal(t, opDeepDive, inv.op)
	assert.Equal(t, "borrow checker", inv.concept)
}

// TestResolveAction_QuizAnswer verifies the answer payload, including
// bool values that arrive as strings after a JSON round trip.
func TestResolveAction_QuizAnswer(t *testing.T) {
	inv, err := resolveAction(ActionQuizAnswer, map[string]any{
		"answer":      "B",
		"correct":     "true",
		"explanation": "B is the move semantics case.",
	})
	require.NoError(t, err)
	assert.Equal(t, "B", inv.answer)
	assert.True(t, inv.correct)
	assert.Equal(t, "B is the move semantics case.", inv.explanation)
}

// TestResolveAction_ExtendCount verifies count handling, including the
// default and JSON float64 numbers.
func TestResolveAction_ExtendCount(t *testing.T) {
	testCases := []struct {
		name   string
		params map[string]any
		want   int
	}{
		{"default", nil, defaultExtendCount},
		{"explicit int", map[string]any{"count": 6}, 6},
		{"json float", map[string]any{"count": float64(3)}, 3},
		{"string", map[string]any{"count": "2"}, 2},
		{"zero falls back", map[string]any{"count": 0}, defaultExtendCount},
		{"negative falls back", map[string]any{"count": -5}, defaultExtendCount},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			inv, err := resolveAction(ActionExtendLecture, tc.params)
			require.NoError(t, err)
			assert.Equal(t, tc.want, inv.count)
		})
	}
}

// TestResolveAction_ExampleType verifies the default example type.
func TestResolveAction_ExampleType(t *testing.T) {
	inv, err := resolveAction(ActionShowExample, nil)
	require.NoError(t, err)
	assert.Equal(t, "code", inv.exampleType)

	inv, err = resolveAction(ActionShowExample, map[string]any{"type": "real-world"})
	require.NoError(t, err)
	assert.Equal(t, "real-world", inv.exampleType)
}

// TestOperation_String verifies every operation logs as its action name.
func TestOperation_String(t *testing.T) {
	ops := []operation{
		opAdvance, opBack, opDeepDive, opClarify, opRegenerate, opExample,
		opQuiz, opQuizAnswer, opReturn, opExtend, opReferences,
		opConceptMap, opResumeDetour,
	}
	for _, op := range ops {
		assert.True(t, knownActions[op.String()], "operation %d", int(op))
	}
	assert.Equal(t, "operation(99)", operation(99).String())
}
