package lectureflow

import "time"

// Provenance records why a slide was created.
type Provenance string

// Slide provenance values.
const (
	// ProvenanceOpening marks the first slide of a session.
	ProvenanceOpening Provenance = "opening"
	// ProvenanceAdvance marks a slide generated by linear advance.
	ProvenanceAdvance Provenance = "advance"
	// ProvenanceResume marks a slide generated to materialize the
	// resume position after returning from a detour.
	ProvenanceResume Provenance = "resume"
	// ProvenanceClarification marks an in-place simplified rewrite.
	ProvenanceClarification Provenance = "clarification"
	// ProvenanceRegenerated marks an in-place regeneration.
	ProvenanceRegenerated Provenance = "regenerated"
	// ProvenanceDeepDive marks the opening slide of a deep-dive detour.
	ProvenanceDeepDive Provenance = "deep_dive"
	// ProvenanceExample marks a worked-example detour slide.
	ProvenanceExample Provenance = "example"
	// ProvenanceQuiz marks a quiz-question detour slide.
	ProvenanceQuiz Provenance = "quiz"
	// ProvenanceQuizResult marks a locally built quiz result slide.
	ProvenanceQuizResult Provenance = "quiz_result"
	// ProvenanceReferences marks a curated-references detour slide.
	ProvenanceReferences Provenance = "references"
	// ProvenanceConceptMap marks a concept-map detour slide.
	ProvenanceConceptMap Provenance = "concept_map"
)

// Content is the generated payload of a slide. The engine treats it as
// opaque; rendering is the caller's concern.
type Content struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	// DiagramCode holds optional diagram source (e.g. mermaid), when the
	// generator produced one.
	DiagramCode string `json:"diagram_code,omitempty"`
}

// ActionDescriptor describes one affordance offered from a slide.
// Descriptors carry only data; the router maps names to operations.
type ActionDescriptor struct {
	// Name is one of the fixed action vocabulary (see Action* constants).
	Name string `json:"name"`
	// Label is the user-facing text for the affordance.
	Label string `json:"label"`
	// Params carries action-specific arguments (e.g. the concept to
	// deep-dive into).
	Params map[string]any `json:"params,omitempty"`
}

// Slide is a single generated unit of content plus the affordances
// available from it.
type Slide struct {
	ID         string             `json:"id"`
	ThreadID   string             `json:"thread_id"`
	Position   int                `json:"position"`
	Content    Content            `json:"content"`
	Actions    []ActionDescriptor `json:"actions"`
	Provenance Provenance         `json:"provenance"`
	CreatedAt  time.Time          `json:"created_at"`
}
