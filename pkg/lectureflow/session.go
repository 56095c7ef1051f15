package lectureflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/randalmurphal/lectureflow/pkg/lectureflow/observability"
	"github.com/randalmurphal/lectureflow/pkg/lectureflow/store"
	"github.com/randalmurphal/lectureflow/pkg/lectureflow/urlcheck"
)

// maxReferenceAttempts bounds how many times a references slide is
// regenerated when its links fail validation. The attempt with the most
// valid links wins.
const maxReferenceAttempts = 3

// SessionState is the stable view of a session returned after every
// operation. It is safe to serialize and hand to a UI layer.
type SessionState struct {
	SessionID        string     `json:"session_id"`
	ActiveThreadKind ThreadKind `json:"active_thread_kind"`
	CurrentSlide     *Slide     `json:"current_slide"`
	Position         int        `json:"position"`
	TotalKnownLength int        `json:"total_known_length"`
}

// Session owns one thread graph and serializes all operations on it.
//
// Concurrency contract: at most one operation runs at a time. A second
// call while one is in flight fails fast with ErrSessionBusy rather than
// queueing; slide generation is slow enough that queued duplicate clicks
// would produce surprising jumps. Cancel bumps the sequence counter so an
// in-flight operation's gateway completion is discarded instead of
// committed (ErrStaleOperation). Graph commits take mu so that State can
// safely snapshot the graph while an operation is in flight.
type Session struct {
	id    string
	graph *ThreadGraph
	synth *Synthesizer

	store          store.Store
	validator      *urlcheck.Validator
	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	gatewayTimeout time.Duration

	mu     sync.RWMutex
	busy   atomic.Bool
	seq    atomic.Uint64
	closed atomic.Bool
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Topic returns the session topic.
func (s *Session) Topic() string { return s.graph.Topic() }

// Graph returns the underlying thread graph. Read-only access for
// inspection between operations; all mutations go through Perform, and
// the graph must not be read while an operation is in flight.
func (s *Session) Graph() *ThreadGraph { return s.graph }

// State builds the session's current view. Safe to call while an
// operation is in flight; commits are serialized against it.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	current, _ := s.graph.CurrentSlide()
	return SessionState{
		SessionID:        s.id,
		ActiveThreadKind: s.graph.ActiveThread().Kind(),
		CurrentSlide:     current,
		Position:         s.graph.Cursor().Position,
		TotalKnownLength: s.graph.ActiveThread().PlannedLen(),
	}
}

// Cancel invalidates the in-flight operation, if any. Its gateway
// completion will be discarded with ErrStaleOperation instead of being
// committed. State is unchanged; the next operation proceeds normally.
func (s *Session) Cancel() {
	s.seq.Add(1)
}

// Perform executes one action against the session. Validation happens
// before any state changes; a failed generation or a stale completion
// leaves the graph exactly as it was. Rejected calls return a zero
// SessionState; state is unchanged and can be read with State.
func (s *Session) Perform(ctx context.Context, action string, params map[string]any) (SessionState, error) {
	inv, err := resolveAction(action, params)
	if err != nil {
		return SessionState{}, err
	}
	return s.perform(ctx, inv)
}

func (s *Session) perform(ctx context.Context, inv invocation) (SessionState, error) {
	if s.closed.Load() {
		return SessionState{}, ErrSessionClosed
	}
	if !s.busy.CompareAndSwap(false, true) {
		return SessionState{}, ErrSessionBusy
	}
	defer s.busy.Store(false)

	seq := s.seq.Load()
	ctx, span := s.spans.StartOperationSpan(ctx, s.id, inv.action)
	elapsed := observability.TimedOperation()
	logger := observability.EnrichLogger(s.logger, s.id, inv.action, seq)

	err := s.dispatch(ctx, inv, seq, logger)

	duration := time.Duration(elapsed() * float64(time.Millisecond))
	s.metrics.RecordOperation(ctx, inv.action, duration, err)
	observability.LogOperation(logger, inv.action, float64(duration.Milliseconds()), err)
	s.spans.EndSpanWithError(span, err)

	if err != nil {
		return s.State(), err
	}
	s.persist(ctx, logger)
	return s.State(), nil
}

// dispatch routes a validated invocation to its graph operation.
func (s *Session) dispatch(ctx context.Context, inv invocation, seq uint64, logger *slog.Logger) error {
	switch inv.op {
	case opAdvance:
		return s.advance(ctx, seq, logger)
	case opBack:
		s.mu.Lock()
		_, err := s.graph.Back()
		s.mu.Unlock()
		return err
	case opDeepDive:
		return s.deepDive(ctx, inv.concept, seq, logger)
	case opClarify:
		return s.clarify(ctx, inv.styleHint, seq, logger)
	case opRegenerate:
		return s.regenerate(ctx, inv.styleHint, seq, logger)
	case opExample:
		return s.example(ctx, inv.exampleType, seq, logger)
	case opQuiz:
		return s.quiz(ctx, seq, logger)
	case opQuizAnswer:
		return s.quizAnswer(inv)
	case opReturn:
		return s.returnToMain(ctx, seq, logger)
	case opExtend:
		return s.extend(ctx, inv.count, seq, logger)
	case opReferences:
		return s.references(ctx, seq, logger)
	case opConceptMap:
		return s.conceptMap(ctx, seq, logger)
	case opResumeDetour:
		s.mu.Lock()
		_, err := s.graph.ResumeDetour(inv.threadID)
		s.mu.Unlock()
		return err
	default:
		return &UnsupportedActionError{Action: inv.action}
	}
}

// generationContext frames a request for the slide at position in thread.
func (s *Session) generationContext(thread *Thread, position int) GenerationContext {
	gc := GenerationContext{
		Topic:          thread.Topic(),
		SlideIndex:     position,
		TotalSlides:    thread.PlannedLen(),
		IsFirst:        position == 0,
		KnowledgeLevel: s.graph.KnowledgeLevel(),
		ThreadKind:     thread.Kind(),
	}
	if title, ok := thread.NextTitle(position); ok {
		gc.SlideTitle = title
	}
	if next, ok := thread.NextTitle(position + 1); ok {
		gc.NextTitle = next
	}
	if position > 0 {
		if prior, err := thread.SlideAt(position - 1); err == nil {
			c := prior.Content
			gc.PriorSlide = &c
		}
	}
	return gc
}

// currentContext frames a request anchored at the cursor.
func (s *Session) currentContext() GenerationContext {
	return s.generationContext(s.graph.ActiveThread(), s.graph.Cursor().Position)
}

// withGatewayTimeout bounds a generation call.
func (s *Session) withGatewayTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.gatewayTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.gatewayTimeout)
}

// checkStale reports whether the operation was superseded while its
// gateway call was in flight. Called after generation, before commit.
func (s *Session) checkStale(seq uint64, action string, logger *slog.Logger) error {
	if current := s.seq.Load(); current != seq {
		observability.LogStaleDiscard(logger, s.id, action, seq, current)
		return ErrStaleOperation
	}
	return nil
}

// advance moves forward: a cached slide when one exists past the cursor,
// otherwise a freshly generated one.
func (s *Session) advance(ctx context.Context, seq uint64, logger *slog.Logger) error {
	s.mu.Lock()
	_, err := s.graph.AdvanceCached()
	s.mu.Unlock()
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNoOpAdvance) {
		return err
	}

	gc := s.generationContext(s.graph.ActiveThread(), s.graph.Cursor().Position+1)
	gctx, cancel := s.withGatewayTimeout(ctx)
	gen, err := s.synth.Slide(gctx, gc)
	cancel()
	if err != nil {
		return err
	}
	if err := s.checkStale(seq, ActionAdvance, logger); err != nil {
		return err
	}
	s.mu.Lock()
	_, err = s.graph.CommitAdvance(gen.Content, gen.Actions, ProvenanceAdvance)
	s.mu.Unlock()
	return err
}

// deepDive spawns a detour thread exploring concept. The detour is
// prepared before generation and published only after it succeeds.
func (s *Session) deepDive(ctx context.Context, concept string, seq uint64, logger *slog.Logger) error {
	detour := s.graph.PrepareDetour(concept)

	gctx, cancel := s.withGatewayTimeout(ctx)
	gen, err := s.synth.DeepDive(gctx, s.graph.Topic(), concept, s.currentContext())
	cancel()
	if err != nil {
		return err
	}
	if err := s.checkStale(seq, ActionDeepDive, logger); err != nil {
		return err
	}
	s.mu.Lock()
	_, err = s.graph.CommitDetour(detour, gen.Content, gen.Actions, ProvenanceDeepDive)
	s.mu.Unlock()
	return err
}

// clarify rewrites the current slide in place, more accessibly.
func (s *Session) clarify(ctx context.Context, style string, seq uint64, logger *slog.Logger) error {
	current, err := s.graph.CurrentSlide()
	if err != nil {
		return err
	}

	gctx, cancel := s.withGatewayTimeout(ctx)
	gen, err := s.synth.Clarify(gctx, current.Content, s.currentContext(), style)
	cancel()
	if err != nil {
		return err
	}
	if err := s.checkStale(seq, ActionClarify, logger); err != nil {
		return err
	}
	s.mu.Lock()
	_, err = s.graph.ReplaceCurrent(gen.Content, gen.Actions, ProvenanceClarification)
	s.mu.Unlock()
	return err
}

// regenerate replaces the current slide, discarding everything after it.
func (s *Session) regenerate(ctx context.Context, feedback string, seq uint64, logger *slog.Logger) error {
	if _, err := s.graph.CurrentSlide(); err != nil {
		return err
	}

	gctx, cancel := s.withGatewayTimeout(ctx)
	gen, err := s.synth.Regenerate(gctx, s.currentContext(), feedback)
	cancel()
	if err != nil {
		return err
	}
	if err := s.checkStale(seq, ActionRegenerate, logger); err != nil {
		return err
	}
	s.mu.Lock()
	_, err = s.graph.ReplaceCurrent(gen.Content, gen.Actions, ProvenanceRegenerated)
	s.mu.Unlock()
	return err
}

// example spawns a worked-example detour for the current slide.
func (s *Session) example(ctx context.Context, exampleType string, seq uint64, logger *slog.Logger) error {
	current, err := s.graph.CurrentSlide()
	if err != nil {
		return err
	}
	detour := s.graph.PrepareDetour("example: " + current.Content.Title)

	gctx, cancel := s.withGatewayTimeout(ctx)
	gen, err := s.synth.Example(gctx, current.Content, s.currentContext(), exampleType)
	cancel()
	if err != nil {
		return err
	}
	if err := s.checkStale(seq, ActionShowExample, logger); err != nil {
		return err
	}
	s.mu.Lock()
	_, err = s.graph.CommitDetour(detour, gen.Content, gen.Actions, ProvenanceExample)
	s.mu.Unlock()
	return err
}

// quiz spawns a quiz detour over the current slide's material.
func (s *Session) quiz(ctx context.Context, seq uint64, logger *slog.Logger) error {
	current, err := s.graph.CurrentSlide()
	if err != nil {
		return err
	}
	detour := s.graph.PrepareDetour("quiz: " + current.Content.Title)

	gctx, cancel := s.withGatewayTimeout(ctx)
	gen, err := s.synth.Quiz(gctx, current.Content, s.currentContext())
	cancel()
	if err != nil {
		return err
	}
	if err := s.checkStale(seq, ActionQuizMe, logger); err != nil {
		return err
	}
	s.mu.Lock()
	_, err = s.graph.CommitDetour(detour, gen.Content, gen.Actions, ProvenanceQuiz)
	s.mu.Unlock()
	return err
}

// quizAnswer builds the result slide locally from the answer payload the
// quiz slide carried. No gateway call is involved. Only valid while the
// cursor sits on a quiz slide; a stray answer never lands in the lecture.
func (s *Session) quizAnswer(inv invocation) error {
	current, err := s.graph.CurrentSlide()
	if err != nil {
		return err
	}
	if current.Provenance != ProvenanceQuiz && current.Provenance != ProvenanceQuizResult {
		return ErrNoActiveQuiz
	}

	var body string
	if inv.correct {
		body = fmt.Sprintf("**Correct!** You chose %s.", inv.answer)
	} else {
		body = fmt.Sprintf("**Not quite.** You chose %s.", inv.answer)
	}
	if inv.explanation != "" {
		body += "\n\n" + inv.explanation
	}

	content := Content{Title: "Quiz Result", Body: body}
	actions := []ActionDescriptor{
		{Name: ActionReturnToMain, Label: "Back to Lecture"},
		{Name: ActionQuizMe, Label: "Another Question"},
	}
	s.mu.Lock()
	_, err = s.graph.CommitAdvance(content, actions, ProvenanceQuizResult)
	s.mu.Unlock()
	return err
}

// returnToMain resumes the parent thread one slide past the detour's
// origin, generating that slide first when it isn't materialized yet.
func (s *Session) returnToMain(ctx context.Context, seq uint64, logger *slog.Logger) error {
	parent, pos, cached, err := s.graph.ResumeTarget()
	if err != nil {
		return err
	}
	if cached != nil {
		s.mu.Lock()
		_, err = s.graph.CommitReturn(nil, nil, ProvenanceResume)
		s.mu.Unlock()
		return err
	}

	gc := s.generationContext(parent, pos)
	gctx, cancel := s.withGatewayTimeout(ctx)
	gen, err := s.synth.Slide(gctx, gc)
	cancel()
	if err != nil {
		return err
	}
	if err := s.checkStale(seq, ActionReturnToMain, logger); err != nil {
		return err
	}
	s.mu.Lock()
	_, err = s.graph.CommitReturn(&gen.Content, gen.Actions, ProvenanceResume)
	s.mu.Unlock()
	return err
}

// extend appends planned titles to the active thread's outline. The
// cursor does not move; the new material is reached by advancing.
func (s *Session) extend(ctx context.Context, count int, seq uint64, logger *slog.Logger) error {
	active := s.graph.ActiveThread()

	gctx, cancel := s.withGatewayTimeout(ctx)
	titles, err := s.synth.ExtendOutline(gctx, active.Topic(), active.Outline(), count)
	cancel()
	if err != nil {
		return err
	}
	if err := s.checkStale(seq, ActionExtendLecture, logger); err != nil {
		return err
	}
	s.mu.Lock()
	s.graph.ExtendActiveOutline(titles)
	s.mu.Unlock()
	return nil
}

// references spawns a detour with curated learning resources. Generated
// links are validated; broken ones are filtered out, and generation is
// retried when too few survive, keeping the best attempt.
func (s *Session) references(ctx context.Context, seq uint64, logger *slog.Logger) error {
	detour := s.graph.PrepareDetour("references: " + s.graph.Topic())
	covered := s.coveredTitles()

	var best *GeneratedSlide
	bestValid := -1
	attempts := 1
	if s.validator != nil {
		attempts = maxReferenceAttempts
	}

	for attempt := 0; attempt < attempts; attempt++ {
		gctx, cancel := s.withGatewayTimeout(ctx)
		gen, err := s.synth.References(gctx, s.graph.Topic(), covered)
		cancel()
		if err != nil {
			if best != nil {
				break
			}
			return err
		}
		if s.validator == nil {
			best = gen
			break
		}

		result, err := s.validator.ValidateReferences(ctx, gen.Content.Body)
		if err != nil {
			return err
		}
		gen.Content.Body = result.FilteredText
		if result.ValidLinks > bestValid {
			best, bestValid = gen, result.ValidLinks
		}
		if !result.NeedsRegeneration() {
			break
		}
		logger.Debug("references need regeneration",
			slog.Int("attempt", attempt+1),
			slog.Int("valid_links", result.ValidLinks),
			slog.Int("total_links", result.TotalLinks),
		)
	}

	if err := s.checkStale(seq, ActionShowReferences, logger); err != nil {
		return err
	}
	s.mu.Lock()
	_, err := s.graph.CommitDetour(detour, best.Content, best.Actions, ProvenanceReferences)
	s.mu.Unlock()
	return err
}

// conceptMap spawns a detour visualizing how the covered material connects.
func (s *Session) conceptMap(ctx context.Context, seq uint64, logger *slog.Logger) error {
	detour := s.graph.PrepareDetour("concept map: " + s.graph.Topic())

	gctx, cancel := s.withGatewayTimeout(ctx)
	gen, err := s.synth.ConceptMap(gctx, s.graph.Topic(), s.coveredTitles())
	cancel()
	if err != nil {
		return err
	}
	if err := s.checkStale(seq, ActionConceptMap, logger); err != nil {
		return err
	}
	s.mu.Lock()
	_, err = s.graph.CommitDetour(detour, gen.Content, gen.Actions, ProvenanceConceptMap)
	s.mu.Unlock()
	return err
}

// coveredTitles lists the titles of every materialized main-thread slide.
func (s *Session) coveredTitles() []string {
	main := s.graph.Main()
	titles := make([]string, 0, main.Len())
	for pos := 0; pos < main.Len(); pos++ {
		slide, err := main.SlideAt(pos)
		if err != nil {
			break
		}
		titles = append(titles, slide.Content.Title)
	}
	return titles
}

// persist saves a snapshot to the store, best effort. A failed save is
// logged but never fails the operation that triggered it.
func (s *Session) persist(ctx context.Context, logger *slog.Logger) {
	if s.store == nil {
		return
	}
	s.mu.RLock()
	data, err := s.graph.Snapshot()
	s.mu.RUnlock()
	if err != nil {
		observability.LogSnapshotError(logger, s.id, err)
		return
	}
	if err := s.store.Save(s.id, data); err != nil {
		observability.LogSnapshotError(logger, s.id, err)
		return
	}
	s.metrics.RecordSnapshot(ctx, int64(len(data)))
}

// close archives the session's threads and drops it from navigation.
func (s *Session) close() {
	s.closed.Store(true)
	s.mu.Lock()
	s.graph.Archive()
	s.mu.Unlock()
}
