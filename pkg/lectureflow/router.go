package lectureflow

import (
	"fmt"
	"strconv"
)

// Action names form the fixed operation vocabulary. Every action
// descriptor a slide offers names one of these; anything else fails with
// ErrUnsupportedAction before any state is touched.
const (
	ActionAdvance        = "advance_main_thread"
	ActionPrevious       = "go_previous"
	ActionDeepDive       = "deep_dive"
	ActionClarify        = "clarify_slide"
	ActionRegenerate     = "regenerate_slide"
	ActionShowExample    = "show_example"
	ActionQuizMe         = "quiz_me"
	ActionQuizAnswer     = "quiz_answer"
	ActionReturnToMain   = "return_to_main"
	ActionExtendLecture  = "extend_lecture"
	ActionShowReferences = "show_references"
	ActionConceptMap     = "show_concept_map"
	ActionResumeDetour   = "resume_detour"
)

// knownActions is the closed vocabulary the synthesizer filters generated
// descriptors against.
var knownActions = map[string]bool{
	ActionAdvance:        true,
	ActionPrevious:       true,
	ActionDeepDive:       true,
	ActionClarify:        true,
	ActionRegenerate:     true,
	ActionShowExample:    true,
	ActionQuizMe:         true,
	ActionQuizAnswer:     true,
	ActionReturnToMain:   true,
	ActionExtendLecture:  true,
	ActionShowReferences: true,
	ActionConceptMap:     true,
	ActionResumeDetour:   true,
}

// operation is the graph operation an action resolves to.
type operation int

const (
	opAdvance operation = iota
	opBack
	opDeepDive
	opClarify
	opRegenerate
	opExample
	opQuiz
	opQuizAnswer
	opReturn
	opExtend
	opReferences
	opConceptMap
	opResumeDetour
)

// defaultExtendCount is how many planned titles extend_lecture adds when
// the caller doesn't say.
const defaultExtendCount = 4

// invocation is a fully validated action ready for dispatch. Validation
// happens entirely before dispatch so an invalid request never causes a
// partial mutation.
type invocation struct {
	action string
	op     operation

	concept     string // deep_dive
	exampleType string // show_example
	styleHint   string // regenerate_slide / clarify_slide
	count       int    // extend_lecture
	threadID    string // resume_detour

	// quiz_answer payload
	answer      string
	correct     bool
	explanation string
}

// resolveAction maps an action name and parameter bag onto a graph
// operation, validating required parameters. It is a pure function over a
// closed table and holds no state.
func resolveAction(name string, params map[string]any) (invocation, error) {
	inv := invocation{action: name}

	switch name {
	case ActionAdvance:
		inv.op = opAdvance

	case ActionPrevious:
		inv.op = opBack

	case ActionDeepDive:
		inv.op = opDeepDive
		concept, ok := stringParam(params, "concept")
		if !ok {
			return invocation{}, &MissingParameterError{Action: name, Param: "concept"}
		}
		inv.concept = concept

	case ActionClarify:
		inv.op = opClarify
		inv.styleHint, _ = stringParam(params, "style")

	case ActionRegenerate:
		inv.op = opRegenerate
		inv.styleHint, _ = stringParam(params, "feedback")

	case ActionShowExample:
		inv.op = opExample
		inv.exampleType, _ = stringParam(params, "type")
		if inv.exampleType == "" {
			inv.exampleType = "code"
		}

	case ActionQuizMe:
		inv.op = opQuiz

	case ActionQuizAnswer:
		inv.op = opQuizAnswer
		answer, ok := stringParam(params, "answer")
		if !ok {
			return invocation{}, &MissingParameterError{Action: name, Param: "answer"}
		}
		inv.answer = answer
		inv.correct = boolParam(params, "correct")
		inv.explanation, _ = stringParam(params, "explanation")

	case ActionReturnToMain:
		inv.op = opReturn

	case ActionExtendLecture:
		inv.op = opExtend
		inv.count = intParam(params, "count", defaultExtendCount)
		if inv.count <= 0 {
			inv.count = defaultExtendCount
		}

	case ActionShowReferences:
		inv.op = opReferences

	case ActionConceptMap:
		inv.op = opConceptMap

	case ActionResumeDetour:
		inv.op = opResumeDetour
		threadID, ok := stringParam(params, "thread_id")
		if !ok {
			return invocation{}, &MissingParameterError{Action: name, Param: "thread_id"}
		}
		inv.threadID = threadID

	default:
		return invocation{}, &UnsupportedActionError{Action: name}
	}

	return inv, nil
}

// stringParam extracts a non-empty string parameter.
func stringParam(params map[string]any, key string) (string, bool) {
	if params == nil {
		return "", false
	}
	s, ok := params[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// boolParam extracts a bool parameter, tolerating string forms since
// params often round-trip through JSON produced by the generator.
func boolParam(params map[string]any, key string) bool {
	if params == nil {
		return false
	}
	switch v := params[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		return err == nil && b
	default:
		return false
	}
}

// intParam extracts an int parameter. JSON numbers arrive as float64.
func intParam(params map[string]any, key string, defaultVal int) int {
	if params == nil {
		return defaultVal
	}
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		return defaultVal
	default:
		return defaultVal
	}
}

// String returns the action name for an operation, for logs.
func (o operation) String() string {
	switch o {
	case opAdvance:
		return ActionAdvance
	case opBack:
		return ActionPrevious
	case opDeepDive:
		return ActionDeepDive
	case opClarify:
		return ActionClarify
	case opRegenerate:
		return ActionRegenerate
	case opExample:
		return ActionShowExample
	case opQuiz:
		return ActionQuizMe
	case opQuizAnswer:
		return ActionQuizAnswer
	case opReturn:
		return ActionReturnToMain
	case opExtend:
		return ActionExtendLecture
	case opReferences:
		return ActionShowReferences
	case opConceptMap:
		return ActionConceptMap
	case opResumeDetour:
		return ActionResumeDetour
	default:
		return fmt.Sprintf("operation(%d)", int(o))
	}
}
