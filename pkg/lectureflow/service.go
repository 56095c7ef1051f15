package lectureflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/lectureflow/pkg/lectureflow/gateway"
	"github.com/randalmurphal/lectureflow/pkg/lectureflow/observability"
	"github.com/randalmurphal/lectureflow/pkg/lectureflow/store"
	"github.com/randalmurphal/lectureflow/pkg/lectureflow/urlcheck"
)

// DefaultGatewayTimeout bounds a single generation round trip.
const DefaultGatewayTimeout = 60 * time.Second

// Service manages lecture sessions: creation, action dispatch, and
// lifecycle. It is safe for concurrent use; individual sessions serialize
// their own operations.
type Service struct {
	synth          *Synthesizer
	store          store.Store
	validator      *urlcheck.Validator
	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	gatewayTimeout time.Duration
	knowledgeLevel string

	mu       sync.RWMutex
	sessions map[string]*Session
}

// Option configures a Service.
type Option func(*serviceConfig)

type serviceConfig struct {
	store          store.Store
	validator      *urlcheck.Validator
	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	gatewayTimeout time.Duration
	knowledgeLevel string
	model          string
	maxTokens      int
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStore enables snapshot persistence. Sessions are saved after every
// successful operation and can be reopened after a restart.
func WithStore(st store.Store) Option {
	return func(c *serviceConfig) { c.store = st }
}

// WithLinkValidator enables reference-link validation on the
// show_references action.
func WithLinkValidator(v *urlcheck.Validator) Option {
	return func(c *serviceConfig) { c.validator = v }
}

// WithGatewayTimeout bounds each generation call. Zero disables the bound.
func WithGatewayTimeout(d time.Duration) Option {
	return func(c *serviceConfig) { c.gatewayTimeout = d }
}

// WithModel overrides the gateway client's default model.
func WithModel(model string) Option {
	return func(c *serviceConfig) { c.model = model }
}

// WithMaxTokens caps response length per generation call.
func WithMaxTokens(n int) Option {
	return func(c *serviceConfig) { c.maxTokens = n }
}

// WithKnowledgeLevel sets the default audience level for new sessions
// (e.g. "beginner", "intermediate", "expert").
func WithKnowledgeLevel(level string) Option {
	return func(c *serviceConfig) {
		if level != "" {
			c.knowledgeLevel = level
		}
	}
}

// WithMetricsRecorder enables metrics collection.
func WithMetricsRecorder(m observability.MetricsRecorder) Option {
	return func(c *serviceConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithSpanManager enables trace spans.
func WithSpanManager(sm observability.SpanManager) Option {
	return func(c *serviceConfig) {
		if sm != nil {
			c.spans = sm
		}
	}
}

// New creates a Service backed by the given gateway client.
func New(client gateway.Client, opts ...Option) *Service {
	cfg := &serviceConfig{
		logger:         slog.Default(),
		metrics:        observability.NoopMetrics{},
		spans:          observability.NoopSpanManager{},
		gatewayTimeout: DefaultGatewayTimeout,
		knowledgeLevel: DefaultKnowledgeLevel,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	synthOpts := []SynthOption{
		WithSynthLogger(cfg.logger),
		WithSynthMetrics(cfg.metrics),
		WithSynthSpans(cfg.spans),
	}
	if cfg.model != "" {
		synthOpts = append(synthOpts, WithSynthModel(cfg.model))
	}
	if cfg.maxTokens > 0 {
		synthOpts = append(synthOpts, WithSynthMaxTokens(cfg.maxTokens))
	}

	return &Service{
		synth:          NewSynthesizer(client, synthOpts...),
		store:          cfg.store,
		validator:      cfg.validator,
		logger:         cfg.logger,
		metrics:        cfg.metrics,
		spans:          cfg.spans,
		gatewayTimeout: cfg.gatewayTimeout,
		knowledgeLevel: cfg.knowledgeLevel,
		sessions:       make(map[string]*Session),
	}
}

// newSession wires a session around a graph.
func (svc *Service) newSession(graph *ThreadGraph) *Session {
	return &Session{
		id:             graph.SessionID(),
		graph:          graph,
		synth:          svc.synth,
		store:          svc.store,
		validator:      svc.validator,
		logger:         svc.logger,
		metrics:        svc.metrics,
		spans:          svc.spans,
		gatewayTimeout: svc.gatewayTimeout,
	}
}

// StartSession creates a session for topic: the lecture outline and the
// opening slide are generated before the session is published, so a
// gateway failure leaves nothing behind.
func (svc *Service) StartSession(ctx context.Context, topic string) (SessionState, error) {
	if topic == "" {
		return SessionState{}, ErrEmptyTopic
	}

	id := uuid.New().String()
	ctx, span := svc.spans.StartSessionSpan(ctx, id, topic)
	defer span.End()

	graph := NewThreadGraph(id, topic)
	graph.SetKnowledgeLevel(svc.knowledgeLevel)
	session := svc.newSession(graph)

	gctx, cancel := session.withGatewayTimeout(ctx)
	titles, err := svc.synth.Outline(gctx, topic)
	cancel()
	if err != nil {
		return SessionState{}, err
	}
	graph.SetOutline(titles)

	gc := session.generationContext(graph.Main(), 0)
	gctx, cancel = session.withGatewayTimeout(ctx)
	opening, err := svc.synth.Slide(gctx, gc)
	cancel()
	if err != nil {
		return SessionState{}, err
	}
	graph.CommitOpening(opening.Content, opening.Actions)

	svc.mu.Lock()
	svc.sessions[id] = session
	svc.mu.Unlock()

	observability.LogSessionStart(svc.logger, id, topic)
	svc.metrics.RecordSessionActive(ctx, 1)
	session.persist(ctx, svc.logger)
	return session.State(), nil
}

// PerformAction executes an action against a session. The action is
// validated before the session is even looked up, so malformed requests
// never touch state.
func (svc *Service) PerformAction(ctx context.Context, sessionID, action string, params map[string]any) (SessionState, error) {
	inv, err := resolveAction(action, params)
	if err != nil {
		return SessionState{}, err
	}

	session, err := svc.session(sessionID)
	if err != nil {
		return SessionState{}, err
	}
	return session.perform(ctx, inv)
}

// GetState returns a session's current view without performing anything.
func (svc *Service) GetState(sessionID string) (SessionState, error) {
	session, err := svc.session(sessionID)
	if err != nil {
		return SessionState{}, err
	}
	return session.State(), nil
}

// CancelOperation invalidates a session's in-flight operation, if any.
func (svc *Service) CancelOperation(sessionID string) error {
	session, err := svc.session(sessionID)
	if err != nil {
		return err
	}
	session.Cancel()
	return nil
}

// CloseSession archives a session, persists the final snapshot, and drops
// it from active navigation. The stored history remains for audit.
func (svc *Service) CloseSession(ctx context.Context, sessionID string) error {
	svc.mu.Lock()
	session, ok := svc.sessions[sessionID]
	if ok {
		delete(svc.sessions, sessionID)
	}
	svc.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	session.close()
	session.persist(ctx, svc.logger)
	observability.LogSessionClose(svc.logger, sessionID)
	svc.metrics.RecordSessionActive(ctx, -1)
	return nil
}

// ListStoredSessions returns snapshot metadata from the store, most
// recently updated first.
func (svc *Service) ListStoredSessions() ([]store.Info, error) {
	if svc.store == nil {
		return nil, nil
	}
	return svc.store.List()
}

// session resolves a session id, falling back to the store for sessions
// persisted by a previous process.
func (svc *Service) session(id string) (*Session, error) {
	svc.mu.RLock()
	session, ok := svc.sessions[id]
	svc.mu.RUnlock()
	if ok {
		return session, nil
	}
	return svc.loadSession(id)
}

// loadSession restores a session from its stored snapshot.
func (svc *Service) loadSession(id string) (*Session, error) {
	if svc.store == nil {
		return nil, ErrSessionNotFound
	}

	data, err := svc.store.Load(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	graph, err := RestoreThreadGraph(data)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if existing, ok := svc.sessions[id]; ok {
		return existing, nil
	}
	session := svc.newSession(graph)
	svc.sessions[id] = session
	svc.logger.Info("session restored from store", slog.String("session_id", id))
	return session, nil
}
