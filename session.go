package flowkit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/launchpath/flowkit/internal/events"
	"github.com/launchpath/flowkit/internal/flow"
	"github.com/launchpath/flowkit/internal/models"
	"github.com/launchpath/flowkit/internal/prefetch"
	"github.com/launchpath/flowkit/internal/store"
)

// Session owns all mutable state of one onboarding run: the immutable
// screen graph, the user's recorded answers, the asset readiness
// tracker, and the prefetch coordinator. Sessions replace any notion of
// process-wide shared state; unrelated runs never observe each other.
// A session is created at onboarding start and ended at onboarding
// finish.
type Session struct {
	id          string
	graph       *models.ScreenGraph
	userData    *models.UserData
	tracker     *prefetch.Tracker
	coordinator *prefetch.Coordinator
	resolver    *flow.Resolver
	sink        events.Sink
	store       store.Store
	startedAt   time.Time
}

type sessionConfig struct {
	fetcher       prefetch.Fetcher
	sink          events.Sink
	store         store.Store
	strategy      Strategy
	screenTimeout time.Duration
	cacheDir      string
}

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

// WithFetcher injects the asset-loading capability. When omitted, an
// HTTP fetcher caching under the configured directory is created.
func WithFetcher(f Fetcher) SessionOption {
	return func(c *sessionConfig) { c.fetcher = f }
}

// WithEventSink installs the observability sink. Omitting it is valid;
// events are then discarded.
func WithEventSink(s EventSink) SessionOption {
	return func(c *sessionConfig) { c.sink = s }
}

// WithStore installs the persistence backend for run records.
func WithStore(s Store) SessionOption {
	return func(c *sessionConfig) { c.store = s }
}

// WithStrategy selects the prefetch strategy.
func WithStrategy(s Strategy) SessionOption {
	return func(c *sessionConfig) { c.strategy = s }
}

// WithScreenTimeout bounds each per-screen asset wait. Zero waits
// indefinitely.
func WithScreenTimeout(d time.Duration) SessionOption {
	return func(c *sessionConfig) { c.screenTimeout = d }
}

// WithAssetCacheDir sets the cache directory for the default fetcher.
func WithAssetCacheDir(dir string) SessionOption {
	return func(c *sessionConfig) { c.cacheDir = dir }
}

// NewSession creates a session over a validated screen graph.
func NewSession(graph *ScreenGraph, opts ...SessionOption) (*Session, error) {
	if graph == nil {
		return nil, fmt.Errorf("screen graph is required")
	}
	if err := graph.Validate(); err != nil {
		return nil, err
	}

	cfg := sessionConfig{
		strategy:      DefaultStrategy,
		screenTimeout: DefaultScreenTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sink == nil {
		cfg.sink = events.NoopSink{}
	}
	if cfg.fetcher == nil {
		dir := cfg.cacheDir
		if dir == "" {
			dir = defaultCacheDir()
		}
		f, err := prefetch.NewHTTPFetcher(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to create default asset fetcher: %w", err)
		}
		cfg.fetcher = f
	}

	tracker := prefetch.NewTracker()
	s := &Session{
		id:       uuid.NewString(),
		graph:    graph,
		userData: models.NewUserData(),
		tracker:  tracker,
		coordinator: prefetch.NewCoordinator(graph, tracker, cfg.fetcher,
			prefetch.WithStrategy(cfg.strategy),
			prefetch.WithScreenTimeout(cfg.screenTimeout),
			prefetch.WithSink(cfg.sink)),
		resolver:  flow.NewResolver(cfg.sink),
		sink:      cfg.sink,
		store:     cfg.store,
		startedAt: time.Now(),
	}
	slog.Info("Session created", "session", s.id, "launch", graph.Launch, "screens", len(graph.Screens), "strategy", cfg.strategy)
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Graph returns the immutable screen graph.
func (s *Session) Graph() *ScreenGraph { return s.graph }

// Record stores the value the user produced on a screen.
func (s *Session) Record(screenID string, v UserValue) {
	s.userData.Set(screenID, v)
}

// Recorded returns the value recorded for a screen, if any.
func (s *Session) Recorded(screenID string) (UserValue, bool) {
	return s.userData.Get(screenID)
}

// End tears the session down: background prefetching is drained, the
// tracker is reset, and recorded user data is cleared.
func (s *Session) End(ctx context.Context) {
	s.coordinator.Flush()
	s.tracker.Reset()
	s.userData.Clear()
	slog.Info("Session ended", "session", s.id)
}

// saveRun persists the run record best-effort; persistence failures
// never interrupt the flow.
func (s *Session) saveRun(lastScreen string, completed bool) {
	if s.store == nil {
		return
	}
	rec := models.RunRecord{
		SessionID:  s.id,
		Launch:     s.graph.Launch,
		LastScreen: lastScreen,
		Completed:  completed,
		StartedAt:  s.startedAt,
	}
	if completed {
		finished := time.Now()
		rec.FinishedAt = &finished
	}
	if err := s.store.SaveRunRecord(rec); err != nil {
		slog.Warn("Session failed to persist run record", "error", err, "session", s.id)
	}
}
