package lectureflow

import (
	"time"

	"github.com/google/uuid"
)

// ThreadKind distinguishes the main lecture sequence from detours.
type ThreadKind string

// Thread kinds.
const (
	KindMain   ThreadKind = "main"
	KindDetour ThreadKind = "detour"
)

// ThreadStatus is the lifecycle state of a thread.
// At most one thread per session is active at a time.
type ThreadStatus string

// Thread statuses.
const (
	StatusActive    ThreadStatus = "active"
	StatusSuspended ThreadStatus = "suspended"
	StatusArchived  ThreadStatus = "archived"
)

// Origin records where a detour was spawned: the parent thread and the
// position within it. It is a back-reference for resume only; the detour
// never owns its parent.
type Origin struct {
	ThreadID string `json:"thread_id"`
	Position int    `json:"position"`
}

// Thread is one ordered sequence of slides: the main lecture or one detour.
// Threads are owned exclusively by a ThreadGraph and are not safe for
// concurrent use on their own; the session layer serializes access.
type Thread struct {
	id     string
	kind   ThreadKind
	status ThreadStatus
	origin *Origin

	// topic is the session topic for the main thread, or the trigger
	// concept for a detour.
	topic string

	// outline holds planned slide titles. It may extend past the
	// materialized slides; advance generates the next planned title.
	outline []string

	slides []*Slide
}

// newMainThread creates the main thread for a session. Empty until the
// opening slide is appended.
func newMainThread(topic string) *Thread {
	return &Thread{
		id:     uuid.New().String(),
		kind:   KindMain,
		status: StatusActive,
		topic:  topic,
	}
}

// newDetourThread creates a detour spawned at origin. Each spawn creates a
// fresh thread; detours are never merged or reused across branch actions.
func newDetourThread(concept string, origin Origin) *Thread {
	return &Thread{
		id:     uuid.New().String(),
		kind:   KindDetour,
		status: StatusSuspended,
		origin: &Origin{ThreadID: origin.ThreadID, Position: origin.Position},
		topic:  concept,
	}
}

// ID returns the thread's unique identifier.
func (t *Thread) ID() string { return t.id }

// Kind returns whether this is the main thread or a detour.
func (t *Thread) Kind() ThreadKind { return t.kind }

// Status returns the thread's lifecycle state.
func (t *Thread) Status() ThreadStatus { return t.status }

// Topic returns the session topic (main) or trigger concept (detour).
func (t *Thread) Topic() string { return t.topic }

// Origin returns a copy of the detour's spawn point, or nil for the main thread.
func (t *Thread) Origin() *Origin {
	if t.origin == nil {
		return nil
	}
	o := *t.origin
	return &o
}

// Len returns the number of materialized slides.
func (t *Thread) Len() int { return len(t.slides) }

// PlannedLen returns the total known length of the thread: materialized
// slides plus planned outline entries beyond them.
func (t *Thread) PlannedLen() int {
	if len(t.outline) > len(t.slides) {
		return len(t.outline)
	}
	return len(t.slides)
}

// Outline returns a copy of the planned slide titles.
func (t *Thread) Outline() []string {
	out := make([]string, len(t.outline))
	copy(out, t.outline)
	return out
}

// Append adds a slide at the end of the thread and returns it.
// The new slide's position is always the current length, keeping
// positions contiguous from 0.
func (t *Thread) Append(content Content, actions []ActionDescriptor, provenance Provenance) *Slide {
	s := &Slide{
		ID:         uuid.New().String(),
		ThreadID:   t.id,
		Position:   len(t.slides),
		Content:    content,
		Actions:    actions,
		Provenance: provenance,
		CreatedAt:  time.Now().UTC(),
	}
	t.slides = append(t.slides, s)
	if s.Position >= len(t.outline) {
		t.outline = append(t.outline, content.Title)
	}
	return s
}

// ReplaceAt swaps the slide at position for regenerated content and
// discards every slide after it: later slides implicitly depended on the
// replaced one, so keeping them would present stale continuity. The planned
// outline past the replaced position is preserved; advance regenerates
// those slides fresh.
func (t *Thread) ReplaceAt(position int, content Content, actions []ActionDescriptor, provenance Provenance) (*Slide, error) {
	if position < 0 || position >= len(t.slides) {
		return nil, &PositionError{ThreadID: t.id, Position: position, Length: len(t.slides)}
	}

	s := &Slide{
		ID:         uuid.New().String(),
		ThreadID:   t.id,
		Position:   position,
		Content:    content,
		Actions:    actions,
		Provenance: provenance,
		CreatedAt:  time.Now().UTC(),
	}
	t.slides[position] = s
	t.slides = t.slides[:position+1]
	if position < len(t.outline) {
		t.outline[position] = content.Title
	}
	return s, nil
}

// SlideAt returns the slide at position.
func (t *Thread) SlideAt(position int) (*Slide, error) {
	if position < 0 || position >= len(t.slides) {
		return nil, ErrSlideNotFound
	}
	return t.slides[position], nil
}

// ExtendOutline appends planned titles after the current outline and
// returns the new planned length. Appending never moves any cursor; it
// only changes what a later advance finds planned.
func (t *Thread) ExtendOutline(titles ...string) int {
	t.outline = append(t.outline, titles...)
	return t.PlannedLen()
}

// NextTitle returns the planned title at position, if one exists.
func (t *Thread) NextTitle(position int) (string, bool) {
	if position < 0 || position >= len(t.outline) {
		return "", false
	}
	return t.outline[position], true
}

func (t *Thread) activate() { t.status = StatusActive }
func (t *Thread) suspend()  { t.status = StatusSuspended }
func (t *Thread) archive()  { t.status = StatusArchived }
