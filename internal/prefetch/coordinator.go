package prefetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/launchpath/flowkit/internal/events"
	"github.com/launchpath/flowkit/internal/models"
)

// Strategy selects how the coordinator schedules asset fetching.
type Strategy string

const (
	// StrategyWaitForAllDone fetches every screen concurrently and
	// reports only when all screens have been attempted.
	StrategyWaitForAllDone Strategy = "waitForAllDone"
	// StrategyWaitForFirstDone fetches the launch screen, then continues
	// with the rest of the graph in the background.
	StrategyWaitForFirstDone Strategy = "waitForFirstDone"
	// StrategyWaitForScreenToLoad starts fetching lazily on the first
	// awaited screen and bounds each wait with the configured timeout.
	StrategyWaitForScreenToLoad Strategy = "waitForScreenToLoad"
)

// IsValidStrategy checks if the given strategy is supported.
func IsValidStrategy(s Strategy) bool {
	switch s {
	case StrategyWaitForAllDone, StrategyWaitForFirstDone, StrategyWaitForScreenToLoad:
		return true
	default:
		return false
	}
}

// Coordinator decides which screens' assets to fetch and in what order,
// and exposes a uniform wait surface over the readiness tracker.
//
// Failure policy: a screen whose fetch fails is marked failed in the
// tracker and the flow proceeds; nothing here aborts the onboarding run.
// Sibling fetches are never cancelled early, and every launched fetch
// runs to completion and updates tracker state.
type Coordinator struct {
	graph         *models.ScreenGraph
	tracker       *Tracker
	fetcher       Fetcher
	sink          events.Sink
	strategy      Strategy
	screenTimeout time.Duration

	mu      sync.Mutex
	started bool
	bg      sync.WaitGroup
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithStrategy sets the prefetch strategy.
func WithStrategy(s Strategy) CoordinatorOption {
	return func(c *Coordinator) { c.strategy = s }
}

// WithScreenTimeout bounds each WaitForScreen call. Zero waits
// indefinitely.
func WithScreenTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) { c.screenTimeout = d }
}

// WithSink sets the observability sink.
func WithSink(s events.Sink) CoordinatorOption {
	return func(c *Coordinator) { c.sink = s }
}

// NewCoordinator creates a coordinator over one screen graph. The
// default strategy is StrategyWaitForScreenToLoad.
func NewCoordinator(graph *models.ScreenGraph, tracker *Tracker, fetcher Fetcher, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		graph:    graph,
		tracker:  tracker,
		fetcher:  fetcher,
		strategy: StrategyWaitForScreenToLoad,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start kicks off prefetching according to the strategy.
//
// For StrategyWaitForAllDone it blocks until every screen has been
// attempted and returns the aggregate error if any screen failed. For
// StrategyWaitForFirstDone it blocks only for the launch screen and
// continues with the rest in the background. For
// StrategyWaitForScreenToLoad it is a no-op; the first WaitForScreen
// call bootstraps fetching.
func (c *Coordinator) Start(ctx context.Context) error {
	slog.Debug("Coordinator Start", "strategy", c.strategy, "screens", len(c.graph.Screens))
	switch c.strategy {
	case StrategyWaitForAllDone:
		c.markStarted()
		return c.prefetchAll(ctx)
	case StrategyWaitForFirstDone:
		c.markStarted()
		err := c.prefetchScreen(ctx, c.graph.Screen(c.graph.Launch))
		c.bg.Add(1)
		go func() {
			defer c.bg.Done()
			c.prefetchRest(ctx, c.graph.Launch)
		}()
		return err
	default:
		return nil
	}
}

// WaitForScreen blocks until the given screen is ready or failed, or
// until the configured timeout elapses (timeout outcomes report
// success). Under StrategyWaitForScreenToLoad, prefetching for the
// whole graph is started lazily here if Start never ran.
func (c *Coordinator) WaitForScreen(ctx context.Context, screenID string) WaitOutcome {
	c.ensureStarted(ctx)
	return c.tracker.Wait(ctx, screenID, c.screenTimeout)
}

// Flush blocks until background prefetching has finished. Intended for
// session teardown.
func (c *Coordinator) Flush() {
	c.bg.Wait()
}

func (c *Coordinator) markStarted() {
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
}

// ensureStarted lazily bootstraps graph-wide prefetching: the launch
// screen first, then the rest, all in the background.
func (c *Coordinator) ensureStarted(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	slog.Debug("Coordinator lazy bootstrap", "strategy", c.strategy)
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		c.prefetchScreen(ctx, c.graph.Screen(c.graph.Launch))
		c.prefetchRest(ctx, c.graph.Launch)
	}()
}

// prefetchAll fetches every screen concurrently and joins. The
// aggregate reports failure if any screen failed, but siblings are
// never cancelled early.
func (c *Coordinator) prefetchAll(ctx context.Context) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, screen := range c.graph.Screens {
		wg.Add(1)
		go func(s *models.Screen) {
			defer wg.Done()
			if err := c.prefetchScreen(ctx, s); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(screen)
	}
	wg.Wait()

	events.Emit(c.sink, events.EventPrefetchFinished, map[string]any{
		"screens": len(c.graph.Screens),
		"failed":  len(errs),
	})
	if len(errs) > 0 {
		slog.Warn("Coordinator prefetch finished with failures", "failed", len(errs), "screens", len(c.graph.Screens))
		return fmt.Errorf("prefetch failed for %d of %d screens: %w", len(errs), len(c.graph.Screens), errors.Join(errs...))
	}
	slog.Info("Coordinator prefetch finished", "screens", len(c.graph.Screens))
	return nil
}

// prefetchRest fetches every screen except the excluded one, then
// reports completion. No caller awaits it.
func (c *Coordinator) prefetchRest(ctx context.Context, exclude string) {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for id, screen := range c.graph.Screens {
		if id == exclude {
			continue
		}
		wg.Add(1)
		go func(s *models.Screen) {
			defer wg.Done()
			if err := c.prefetchScreen(ctx, s); err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(screen)
	}
	wg.Wait()
	events.Emit(c.sink, events.EventPrefetchFinished, map[string]any{
		"screens": len(c.graph.Screens),
		"failed":  failed,
	})
}

// prefetchScreen fetches every asset of one screen concurrently. Any
// single failure marks the whole screen failed, but the remaining
// fetches for that screen still run to completion and their errors are
// aggregated.
func (c *Coordinator) prefetchScreen(ctx context.Context, screen *models.Screen) error {
	if screen == nil {
		return nil
	}
	if !c.tracker.BeginPreparing(screen.ID) {
		// Another attempt already ran for this screen this session.
		return nil
	}

	refs := ScreenAssets(screen)
	if len(refs) == 0 {
		c.tracker.MarkReady(screen.ID)
		return nil
	}
	slog.Debug("Coordinator prefetching screen", "screen", screen.ID, "assets", len(refs))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, ref := range refs {
		wg.Add(1)
		go func(ref models.AssetRef) {
			defer wg.Done()
			var err error
			switch ref.Kind {
			case models.AssetKindVideo:
				_, err = c.fetcher.FetchVideo(ctx, ref.URL)
			default:
				_, err = c.fetcher.FetchImage(ctx, ref.URL)
			}
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(ref)
	}
	wg.Wait()

	if len(errs) > 0 {
		err := fmt.Errorf("screen %q: %w", screen.ID, errors.Join(errs...))
		slog.Warn("Coordinator screen prefetch failed", "screen", screen.ID, "failed_assets", len(errs), "assets", len(refs))
		c.tracker.MarkFailed(screen.ID, err)
		return err
	}
	c.tracker.MarkReady(screen.ID)
	slog.Debug("Coordinator screen prefetch succeeded", "screen", screen.ID, "assets", len(refs))
	return nil
}
