package lectureflow

import (
	"fmt"
	"time"
)

// Cursor is the single (thread, position) pointer denoting the slide the
// user is looking at right now. A session has exactly one cursor.
type Cursor struct {
	ThreadID string `json:"thread_id"`
	Position int    `json:"position"`
}

// ThreadGraph is the aggregate root for one learning session: the main
// thread, every detour spawned from it, and the cursor.
//
// ThreadGraph is NOT safe for concurrent use. The session layer serializes
// all mutations; the graph itself only enforces structural rules.
//
// All mutating operations are validate-then-commit: structural failures are
// detected before any state changes, and operations that depend on content
// generation are split into a prepare step (no mutation) and a commit step
// (called only after generation succeeded). A failed generation therefore
// leaves the graph exactly as it was.
type ThreadGraph struct {
	sessionID      string
	topic          string
	knowledgeLevel string
	createdAt      time.Time

	main    *Thread
	detours map[string]*Thread
	cursor  Cursor
}

// DefaultKnowledgeLevel is applied to new graphs until changed.
const DefaultKnowledgeLevel = "intermediate"

// NewThreadGraph creates a graph with an empty, active main thread.
// The cursor becomes valid when the opening slide is committed.
func NewThreadGraph(sessionID, topic string) *ThreadGraph {
	main := newMainThread(topic)
	return &ThreadGraph{
		sessionID:      sessionID,
		topic:          topic,
		knowledgeLevel: DefaultKnowledgeLevel,
		createdAt:      time.Now().UTC(),
		main:           main,
		detours:        make(map[string]*Thread),
		cursor:         Cursor{ThreadID: main.id},
	}
}

// SessionID returns the owning session id.
func (g *ThreadGraph) SessionID() string { return g.sessionID }

// Topic returns the session topic.
func (g *ThreadGraph) Topic() string { return g.topic }

// KnowledgeLevel returns the tag used to bias generation.
func (g *ThreadGraph) KnowledgeLevel() string { return g.knowledgeLevel }

// SetKnowledgeLevel changes the generation bias tag (e.g. "beginner").
func (g *ThreadGraph) SetKnowledgeLevel(level string) {
	if level != "" {
		g.knowledgeLevel = level
	}
}

// Main returns the main thread.
func (g *ThreadGraph) Main() *Thread { return g.main }

// Detour returns the detour thread with the given id.
func (g *ThreadGraph) Detour(id string) (*Thread, bool) {
	t, ok := g.detours[id]
	return t, ok
}

// DetourIDs returns the ids of all detour threads, in no particular order.
func (g *ThreadGraph) DetourIDs() []string {
	ids := make([]string, 0, len(g.detours))
	for id := range g.detours {
		ids = append(ids, id)
	}
	return ids
}

// Cursor returns the current cursor.
func (g *ThreadGraph) Cursor() Cursor { return g.cursor }

// ActiveThread returns the thread the cursor points into.
func (g *ThreadGraph) ActiveThread() *Thread {
	return g.thread(g.cursor.ThreadID)
}

// InDetour reports whether the cursor is on a detour thread.
func (g *ThreadGraph) InDetour() bool {
	return g.ActiveThread().kind == KindDetour
}

// CurrentSlide returns the slide under the cursor.
func (g *ThreadGraph) CurrentSlide() (*Slide, error) {
	active := g.ActiveThread()
	if active.Len() == 0 {
		return nil, ErrEmptyThread
	}
	return active.SlideAt(g.cursor.Position)
}

// thread resolves a thread id to the main thread or a detour.
func (g *ThreadGraph) thread(id string) *Thread {
	if id == g.main.id {
		return g.main
	}
	return g.detours[id]
}

// CommitOpening appends the first slide of the session to the main thread
// and points the cursor at it.
func (g *ThreadGraph) CommitOpening(content Content, actions []ActionDescriptor) *Slide {
	s := g.main.Append(content, actions, ProvenanceOpening)
	g.cursor = Cursor{ThreadID: g.main.id, Position: 0}
	return s
}

// SetOutline replaces the main thread's planned outline. Used once at
// session start with the generated lecture outline.
func (g *ThreadGraph) SetOutline(titles []string) {
	g.main.outline = append([]string(nil), titles...)
}

// AdvanceCached moves the cursor forward onto an already-materialized
// slide. Returns ErrNoOpAdvance when no slide exists past the cursor, in
// which case the caller generates one and commits it with CommitAdvance.
func (g *ThreadGraph) AdvanceCached() (*Slide, error) {
	active := g.ActiveThread()
	next := g.cursor.Position + 1
	if next >= active.Len() {
		return nil, ErrNoOpAdvance
	}
	g.cursor.Position = next
	return active.slides[next], nil
}

// CommitAdvance appends a freshly generated slide to the active thread and
// moves the cursor onto it. Only valid when the cursor sits on the last
// materialized slide; use AdvanceCached first.
func (g *ThreadGraph) CommitAdvance(content Content, actions []ActionDescriptor, provenance Provenance) (*Slide, error) {
	active := g.ActiveThread()
	if g.cursor.Position != active.Len()-1 {
		return nil, &PositionError{ThreadID: active.id, Position: g.cursor.Position + 1, Length: active.Len()}
	}
	s := active.Append(content, actions, provenance)
	g.cursor.Position = s.Position
	return s, nil
}

// Back moves the cursor to the previous slide in the active thread.
func (g *ThreadGraph) Back() (*Slide, error) {
	if g.cursor.Position == 0 {
		return nil, ErrAtStart
	}
	g.cursor.Position--
	return g.CurrentSlide()
}

// PrepareDetour constructs a detour thread spawned at the current cursor.
// The detour is NOT yet part of the graph: nothing is published until
// CommitDetour, so a failed generation costs nothing.
func (g *ThreadGraph) PrepareDetour(concept string) *Thread {
	return newDetourThread(concept, Origin{
		ThreadID: g.cursor.ThreadID,
		Position: g.cursor.Position,
	})
}

// CommitDetour publishes a prepared detour: the current thread is
// suspended, the detour is registered and activated, its opening slide is
// appended, and the cursor moves to (detour, 0).
//
// Repeated branches from the same origin each publish a distinct detour;
// suspended siblings stay independently reachable by id.
func (g *ThreadGraph) CommitDetour(detour *Thread, content Content, actions []ActionDescriptor, provenance Provenance) (*Slide, error) {
	if detour == nil || detour.kind != KindDetour {
		return nil, fmt.Errorf("commit detour: not a detour thread")
	}
	if g.thread(detour.origin.ThreadID) == nil {
		return nil, ErrThreadNotFound
	}

	g.ActiveThread().suspend()
	detour.activate()
	g.detours[detour.id] = detour
	s := detour.Append(content, actions, provenance)
	g.cursor = Cursor{ThreadID: detour.id, Position: 0}
	return s, nil
}

// ResumeTarget computes where a return from the active detour lands:
// the parent thread and origin.position + 1, i.e. the slide after the
// point of departure. The third return value is the cached slide at that
// position, or nil when the caller must generate it first. No state is
// mutated; commit with CommitReturn.
func (g *ThreadGraph) ResumeTarget() (*Thread, int, *Slide, error) {
	active := g.ActiveThread()
	if active.kind != KindDetour {
		return nil, 0, nil, ErrNotInDetour
	}
	parent := g.thread(active.origin.ThreadID)
	if parent == nil || parent.status == StatusArchived {
		return nil, 0, nil, ErrThreadNotFound
	}

	pos := active.origin.Position + 1
	if pos < parent.Len() {
		return parent, pos, parent.slides[pos], nil
	}
	return parent, pos, nil, nil
}

// CommitReturn suspends the active detour, reactivates its parent, and
// moves the cursor to origin.position + 1. When that position was not yet
// materialized the caller supplies the generated content; otherwise
// content is ignored and the cached slide is reused. The detour keeps its
// history and stays reachable by id.
func (g *ThreadGraph) CommitReturn(content *Content, actions []ActionDescriptor, provenance Provenance) (*Slide, error) {
	parent, pos, cached, err := g.ResumeTarget()
	if err != nil {
		return nil, err
	}
	if cached == nil && content == nil {
		return nil, &PositionError{ThreadID: parent.id, Position: pos, Length: parent.Len()}
	}

	g.ActiveThread().suspend()
	parent.activate()
	if cached == nil {
		cached = parent.Append(*content, actions, provenance)
	}
	g.cursor = Cursor{ThreadID: parent.id, Position: pos}
	return cached, nil
}

// ResumeDetour re-enters a previously suspended detour by id, suspending
// the currently active thread. The cursor lands on the detour's first
// slide; its later slides remain reachable via advance.
func (g *ThreadGraph) ResumeDetour(id string) (*Slide, error) {
	detour, ok := g.detours[id]
	if !ok || detour.status == StatusArchived {
		return nil, ErrThreadNotFound
	}
	if detour.Len() == 0 {
		return nil, ErrEmptyThread
	}

	g.ActiveThread().suspend()
	detour.activate()
	g.cursor = Cursor{ThreadID: detour.id, Position: 0}
	return detour.slides[0], nil
}

// ReplaceCurrent swaps the slide under the cursor for regenerated content,
// discarding every later slide in the thread.
func (g *ThreadGraph) ReplaceCurrent(content Content, actions []ActionDescriptor, provenance Provenance) (*Slide, error) {
	return g.ActiveThread().ReplaceAt(g.cursor.Position, content, actions, provenance)
}

// ExtendActiveOutline appends planned titles to the active thread without
// moving the cursor and returns the new planned length.
func (g *ThreadGraph) ExtendActiveOutline(titles []string) int {
	return g.ActiveThread().ExtendOutline(titles...)
}

// Archive marks every thread archived, removing the session from active
// navigation while retaining full history for audit.
func (g *ThreadGraph) Archive() {
	g.main.archive()
	for _, d := range g.detours {
		d.archive()
	}
}

// checkInvariants validates the structural rules: the cursor references
// the main thread or a non-archived detour, its position indexes a real
// slide (or an empty just-created main thread), and at most one thread is
// active. Used by tests after every operation.
func (g *ThreadGraph) checkInvariants() error {
	active := g.ActiveThread()
	if active == nil {
		return fmt.Errorf("cursor references unknown thread %s", g.cursor.ThreadID)
	}
	if active.status == StatusArchived {
		return fmt.Errorf("cursor references archived thread %s", active.id)
	}
	if active.Len() == 0 {
		if g.cursor.Position != 0 {
			return fmt.Errorf("cursor position %d in empty thread", g.cursor.Position)
		}
	} else if g.cursor.Position < 0 || g.cursor.Position >= active.Len() {
		return fmt.Errorf("cursor position %d out of range [0,%d)", g.cursor.Position, active.Len())
	}

	activeCount := 0
	if g.main.status == StatusActive {
		activeCount++
	}
	for _, d := range g.detours {
		if d.status == StatusActive {
			activeCount++
		}
	}
	if activeCount > 1 {
		return fmt.Errorf("%d threads active, want at most 1", activeCount)
	}
	for pos, s := range active.slides {
		if s.Position != pos {
			return fmt.Errorf("thread %s: slide at index %d has position %d", active.id, pos, s.Position)
		}
	}
	return nil
}
