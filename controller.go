package flowkit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/launchpath/flowkit/internal/events"
	"github.com/launchpath/flowkit/internal/models"
)

// StepResult is what the controller hands the host renderer for one
// navigation step.
type StepResult struct {
	// Screen is the screen to display; nil when Done.
	Screen *Screen
	// Transition is how the screen should be presented.
	Transition models.TransitionKind
	// Ready reports whether the screen's assets loaded. A false value
	// is not an error: the host shows the screen without the missing
	// assets, matching the timed-out and failed-prefetch policies.
	Ready bool
	// TimedOut reports that the asset wait hit its deadline.
	TimedOut bool
	// Done reports that the flow terminated: no next screen exists.
	Done bool
}

// Controller ties edge resolution and the prefetch coordinator together
// to answer "what screen next, is it ready, show it". Its own logic is
// thin dispatch over the session's subsystems.
type Controller struct {
	session *Session

	mu      sync.Mutex
	current *models.Screen
	done    bool
}

// NewController creates a controller over a session.
func NewController(session *Session) *Controller {
	return &Controller{session: session}
}

// Start begins the run: prefetching kicks off per the configured
// strategy and the launch screen is returned once its assets settle.
// Aggregate prefetch failures are logged, not surfaced; asset problems
// never abort the flow.
func (c *Controller) Start(ctx context.Context) (*StepResult, error) {
	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("controller already started")
	}
	c.mu.Unlock()

	if err := c.session.coordinator.Start(ctx); err != nil {
		slog.Warn("Controller prefetch reported failures", "error", err, "session", c.session.id)
	}

	launch := c.session.graph.Screen(c.session.graph.Launch)
	out := c.session.coordinator.WaitForScreen(ctx, launch.ID)

	c.mu.Lock()
	c.current = launch
	c.mu.Unlock()

	c.session.saveRun(launch.ID, false)
	events.Emit(c.session.sink, events.EventScreenShown, map[string]any{
		"screen": launch.ID, "ready": out.OK, "timed_out": out.TimedOut,
	})
	return &StepResult{
		Screen:     launch,
		Transition: models.TransitionPush,
		Ready:      out.OK && out.Err == nil,
		TimedOut:   out.TimedOut,
	}, nil
}

// Current returns the screen currently shown, or nil before Start or
// after the flow finished.
func (c *Controller) Current() *Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return nil
	}
	return c.current
}

// Submit records the user's value for the current screen.
func (c *Controller) Submit(v UserValue) error {
	c.mu.Lock()
	current := c.current
	done := c.done
	c.mu.Unlock()
	if current == nil || done {
		return fmt.Errorf("no current screen to submit a value for")
	}
	if err := current.CheckValue(v); err != nil {
		return err
	}
	c.session.Record(current.ID, v)
	return nil
}

// Next advances the flow through the named action of the current
// screen: the next edge is resolved against the recorded user data, the
// target screen's assets are awaited per the session's strategy, and
// the result is handed back for rendering. When no edge resolves the
// flow terminates and the session's user data is cleared.
func (c *Controller) Next(ctx context.Context, actionName string) (*StepResult, error) {
	c.mu.Lock()
	current := c.current
	done := c.done
	c.mu.Unlock()
	if current == nil {
		return nil, fmt.Errorf("controller not started")
	}
	if done {
		return nil, fmt.Errorf("flow already finished")
	}

	var edges []*models.ConditionedAction
	if action, ok := current.Actions[actionName]; ok {
		edges = action.Edges
	} else {
		slog.Debug("Controller action not declared on screen", "screen", current.ID, "action", actionName)
		events.Emit(c.session.sink, events.EventNoNextScreen, map[string]any{
			"screen": current.ID, "action": actionName,
		})
	}

	edge := c.session.resolver.Resolve(edges, c.session.graph, c.session.userData)
	if edge == nil {
		return c.finish(current.ID), nil
	}

	next := c.session.graph.Screen(edge.Target)
	out := c.session.coordinator.WaitForScreen(ctx, next.ID)
	if out.Err != nil {
		// Failed prefetch: proceed and let the host render without the
		// missing assets.
		slog.Warn("Controller showing screen with failed assets", "screen", next.ID, "error", out.Err)
	}

	c.mu.Lock()
	c.current = next
	c.mu.Unlock()

	c.session.saveRun(next.ID, false)
	transition := edge.Transition
	if transition == "" {
		transition = models.TransitionPush
	}
	events.Emit(c.session.sink, events.EventScreenShown, map[string]any{
		"screen": next.ID, "ready": out.OK && out.Err == nil, "timed_out": out.TimedOut,
	})
	return &StepResult{
		Screen:     next,
		Transition: transition,
		Ready:      out.OK && out.Err == nil,
		TimedOut:   out.TimedOut,
	}, nil
}

func (c *Controller) finish(lastScreen string) *StepResult {
	c.mu.Lock()
	c.done = true
	c.mu.Unlock()

	slog.Info("Controller flow finished", "session", c.session.id, "last_screen", lastScreen)
	c.session.saveRun(lastScreen, true)
	events.Emit(c.session.sink, events.EventFlowFinished, map[string]any{"last_screen": lastScreen})
	c.session.userData.Clear()
	return &StepResult{Done: true}
}
