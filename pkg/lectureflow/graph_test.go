package lectureflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireInvariants fails the test when the graph's structural rules are
// violated. Called after every operation in these tests.
func requireInvariants(t *testing.T, g *ThreadGraph) {
	t.Helper()
	require.NoError(t, g.checkInvariants())
}

// openedGraph returns a graph with an outline and a committed opening slide.
func openedGraph(t *testing.T) *ThreadGraph {
	t.Helper()
	g := NewThreadGraph("session-1", "Rust Ownership")
	g.SetOutline([]string{"Introduction", "Borrowing", "Lifetimes"})
	g.CommitOpening(Content{Title: "Introduction"}, nil)
	requireInvariants(t, g)
	return g
}

// TestNewThreadGraph verifies initial state.
func TestNewThreadGraph(t *testing.T) {
	g := NewThreadGraph("session-1", "Rust Ownership")
	assert.Equal(t, "session-1", g.SessionID())
	assert.Equal(t, "Rust Ownership", g.Topic())
	assert.Equal(t, DefaultKnowledgeLevel, g.KnowledgeLevel())
	assert.Equal(t, KindMain, g.ActiveThread().Kind())
	assert.Empty(t, g.DetourIDs())
	requireInvariants(t, g)

	_, err := g.CurrentSlide()
	assert.ErrorIs(t, err, ErrEmptyThread)
}

// TestThreadGraph_CommitOpening verifies the cursor lands on slide zero.
func TestThreadGraph_CommitOpening(t *testing.T) {
	g := openedGraph(t)

	s, err := g.CurrentSlide()
	require.NoError(t, err)
	assert.Equal(t, "Introduction", s.Content.Title)
	assert.Equal(t, ProvenanceOpening, s.Provenance)
	assert.Equal(t, Cursor{ThreadID: g.Main().ID(), Position: 0}, g.Cursor())
}

// TestThreadGraph_AdvanceCached verifies cached advance versus generation
// required.
func TestThreadGraph_AdvanceCached(t *testing.T) {
	g := openedGraph(t)

	// Nothing materialized past the cursor yet.
	_, err := g.AdvanceCached()
	assert.ErrorIs(t, err, ErrNoOpAdvance)
	assert.Equal(t, 0, g.Cursor().Position, "failed advance leaves cursor alone")

	_, err = g.CommitAdvance(Content{Title: "Borrowing"}, nil, ProvenanceAdvance)
	require.NoError(t, err)
	requireInvariants(t, g)
	assert.Equal(t, 1, g.Cursor().Position)

	// Go back, then advance reuses the cached slide.
	_, err = g.Back()
	require.NoError(t, err)
	s, err := g.AdvanceCached()
	require.NoError(t, err)
	assert.Equal(t, "Borrowing", s.Content.Title)
	requireInvariants(t, g)
}

// TestThreadGraph_CommitAdvance_RequiresCursorAtEnd verifies a generated
// slide only commits when the cursor sits on the last materialized slide.
func TestThreadGraph_CommitAdvance_RequiresCursorAtEnd(t *testing.T) {
	g := openedGraph(t)
	_, err := g.CommitAdvance(Content{Title: "Borrowing"}, nil, ProvenanceAdvance)
	require.NoError(t, err)
	_, err = g.Back()
	require.NoError(t, err)

	_, err = g.CommitAdvance(Content{Title: "X"}, nil, ProvenanceAdvance)
	assert.ErrorIs(t, err, ErrInvalidPosition)
	requireInvariants(t, g)
}

// TestThreadGraph_Back verifies boundary behavior at the first slide.
func TestThreadGraph_Back(t *testing.T) {
	g := openedGraph(t)

	_, err := g.Back()
	assert.ErrorIs(t, err, ErrAtStart)
	assert.Equal(t, 0, g.Cursor().Position)
	requireInvariants(t, g)
}

// TestThreadGraph_DetourLifecycle verifies branch, explore, and return.
func TestThreadGraph_DetourLifecycle(t *testing.T) {
	g := openedGraph(t)
	_, err := g.CommitAdvance(Content{Title: "Borrowing"}, nil, ProvenanceAdvance)
	require.NoError(t, err)

	// Prepare does not mutate.
	detour := g.PrepareDetour("borrow checker")
	assert.Empty(t, g.DetourIDs())
	requireInvariants(t, g)

	_, err = g.CommitDetour(detour, Content{Title: "The Borrow Checker"}, nil, ProvenanceDeepDive)
	require.NoError(t, err)
	requireInvariants(t, g)

	assert.True(t, g.InDetour())
	assert.Equal(t, StatusSuspended, g.Main().Status())
	assert.Equal(t, StatusActive, detour.Status())
	assert.Equal(t, Cursor{ThreadID: detour.ID(), Position: 0}, g.Cursor())
	require.NotNil(t, detour.Origin())
	assert.Equal(t, 1, detour.Origin().Position)

	// Return lands one past the origin; position 2 needs generation.
	parent, pos, cached, err := g.ResumeTarget()
	require.NoError(t, err)
	assert.Same(t, g.Main(), parent)
	assert.Equal(t, 2, pos)
	assert.Nil(t, cached)

	content := Content{Title: "Lifetimes"}
	s, err := g.CommitReturn(&content, nil, ProvenanceResume)
	require.NoError(t, err)
	requireInvariants(t, g)

	assert.Equal(t, "Lifetimes", s.Content.Title)
	assert.Equal(t, ProvenanceResume, s.Provenance)
	assert.False(t, g.InDetour())
	assert.Equal(t, 2, g.Cursor().Position)
	assert.Equal(t, StatusSuspended, detour.Status(), "detour history survives")
}

// TestThreadGraph_CommitReturn_ReusesCachedSlide verifies a return to an
// already-materialized position reuses it instead of regenerating.
func TestThreadGraph_CommitReturn_ReusesCachedSlide(t *testing.T) {
	g := openedGraph(t)
	_, err := g.CommitAdvance(Content{Title: "Borrowing"}, nil, ProvenanceAdvance)
	require.NoError(t, err)
	_, err = g.Back()
	require.NoError(t, err)

	// Branch from position 0; position 1 already exists.
	detour := g.PrepareDetour("moves")
	_, err = g.CommitDetour(detour, Content{Title: "Moves"}, nil, ProvenanceDeepDive)
	require.NoError(t, err)

	_, pos, cached, err := g.ResumeTarget()
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
	require.NotNil(t, cached)

	s, err := g.CommitReturn(nil, nil, ProvenanceResume)
	require.NoError(t, err)
	requireInvariants(t, g)
	assert.Same(t, cached, s)
	assert.Equal(t, "Borrowing", s.Content.Title)
}

// TestThreadGraph_ReturnFromMain verifies return_to_main is rejected on
// the main thread.
func TestThreadGraph_ReturnFromMain(t *testing.T) {
	g := openedGraph(t)
	_, _, _, err := g.ResumeTarget()
	assert.ErrorIs(t, err, ErrNotInDetour)
	_, err = g.CommitReturn(nil, nil, ProvenanceResume)
	assert.ErrorIs(t, err, ErrNotInDetour)
	requireInvariants(t, g)
}

// TestThreadGraph_RepeatedBranches verifies two branches from the same
// slide create distinct detours, both reachable by id.
func TestThreadGraph_RepeatedBranches(t *testing.T) {
	g := openedGraph(t)

	first := g.PrepareDetour("ownership rules")
	_, err := g.CommitDetour(first, Content{Title: "Ownership Rules"}, nil, ProvenanceDeepDive)
	require.NoError(t, err)
	content := Content{Title: "Borrowing"}
	_, err = g.CommitReturn(&content, nil, ProvenanceResume)
	require.NoError(t, err)
	_, err = g.Back()
	require.NoError(t, err)

	second := g.PrepareDetour("ownership rules")
	_, err = g.CommitDetour(second, Content{Title: "Ownership Rules Again"}, nil, ProvenanceDeepDive)
	require.NoError(t, err)
	requireInvariants(t, g)

	assert.NotEqual(t, first.ID(), second.ID())
	assert.Len(t, g.DetourIDs(), 2)
	assert.Equal(t, StatusSuspended, first.Status())
	assert.Equal(t, StatusActive, second.Status())
}

// TestThreadGraph_ResumeDetour verifies re-entry into a suspended detour.
func TestThreadGraph_ResumeDetour(t *testing.T) {
	g := openedGraph(t)

	detour := g.PrepareDetour("slices")
	_, err := g.CommitDetour(detour, Content{Title: "Slices"}, nil, ProvenanceDeepDive)
	require.NoError(t, err)
	content := Content{Title: "Borrowing"}
	_, err = g.CommitReturn(&content, nil, ProvenanceResume)
	require.NoError(t, err)

	s, err := g.ResumeDetour(detour.ID())
	require.NoError(t, err)
	requireInvariants(t, g)

	assert.Equal(t, "Slices", s.Content.Title)
	assert.Equal(t, Cursor{ThreadID: detour.ID(), Position: 0}, g.Cursor())
	assert.Equal(t, StatusSuspended, g.Main().Status())

	_, err = g.ResumeDetour("no-such-thread")
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

// TestThreadGraph_NestedDetour verifies a detour spawned from a detour
// returns to the inner parent, not the main thread.
func TestThreadGraph_NestedDetour(t *testing.T) {
	g := openedGraph(t)

	outer := g.PrepareDetour("borrowing")
	_, err := g.CommitDetour(outer, Content{Title: "Borrowing Detour"}, nil, ProvenanceDeepDive)
	require.NoError(t, err)

	inner := g.PrepareDetour("mutable borrows")
	_, err = g.CommitDetour(inner, Content{Title: "Mutable Borrows"}, nil, ProvenanceDeepDive)
	require.NoError(t, err)
	requireInvariants(t, g)

	parent, pos, cached, err := g.ResumeTarget()
	require.NoError(t, err)
	assert.Same(t, outer, parent)
	assert.Equal(t, 1, pos)
	assert.Nil(t, cached)

	content := Content{Title: "Borrowing Continued"}
	_, err = g.CommitReturn(&content, nil, ProvenanceResume)
	require.NoError(t, err)
	requireInvariants(t, g)
	assert.Equal(t, outer.ID(), g.Cursor().ThreadID)
}

// TestThreadGraph_ReplaceCurrent verifies in-place replacement truncates
// the active thread at the cursor.
func TestThreadGraph_ReplaceCurrent(t *testing.T) {
	g := openedGraph(t)
	_, err := g.CommitAdvance(Content{Title: "Borrowing"}, nil, ProvenanceAdvance)
	require.NoError(t, err)
	_, err = g.CommitAdvance(Content{Title: "Lifetimes"}, nil, ProvenanceAdvance)
	require.NoError(t, err)
	_, err = g.Back()
	require.NoError(t, err)

	s, err := g.ReplaceCurrent(Content{Title: "Borrowing, Take Two"}, nil, ProvenanceRegenerated)
	require.NoError(t, err)
	requireInvariants(t, g)

	assert.Equal(t, 1, s.Position)
	assert.Equal(t, ProvenanceRegenerated, s.Provenance)
	assert.Equal(t, 2, g.Main().Len(), "later slides discarded")
	assert.Equal(t, 3, g.Main().PlannedLen(), "outline preserved")
}

// TestThreadGraph_ExtendActiveOutline verifies extension never moves the
// cursor.
func TestThreadGraph_ExtendActiveOutline(t *testing.T) {
	g := openedGraph(t)
	before := g.Cursor()

	got := g.ExtendActiveOutline([]string{"Smart Pointers", "Concurrency"})
	assert.Equal(t, 5, got)
	assert.Equal(t, before, g.Cursor())
	requireInvariants(t, g)
}

// TestThreadGraph_Archive verifies archived sessions leave navigation.
func TestThreadGraph_Archive(t *testing.T) {
	g := openedGraph(t)
	detour := g.PrepareDetour("x")
	_, err := g.CommitDetour(detour, Content{Title: "X"}, nil, ProvenanceDeepDive)
	require.NoError(t, err)

	g.Archive()
	assert.Equal(t, StatusArchived, g.Main().Status())
	assert.Equal(t, StatusArchived, detour.Status())

	_, err = g.ResumeDetour(detour.ID())
	assert.ErrorIs(t, err, ErrThreadNotFound)
}
