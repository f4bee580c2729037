// Package events provides the observability sink used by the flow core.
//
// Sinks must never affect control flow: every core component accepts a
// nil-safe sink and a no-op implementation is always valid.
package events

import "log/slog"

// Event names emitted by the core.
const (
	// EventScreenShown fires when the controller hands a screen to the host.
	EventScreenShown = "onboarding_screen_shown"
	// EventFallbackEdge fires when edge resolution found no matching
	// condition and no unconditioned edge, and picked the first edge.
	EventFallbackEdge = "onboarding_fallback_edge"
	// EventNoNextScreen fires when an action carries no edges at all.
	EventNoNextScreen = "onboarding_no_next_screen"
	// EventPrefetchFinished fires once per prefetch session when every
	// screen has been attempted.
	EventPrefetchFinished = "onboarding_prefetch_finished"
	// EventFlowFinished fires when the flow terminates.
	EventFlowFinished = "onboarding_finished"
)

// Sink receives observability events from the core.
type Sink interface {
	Emit(name string, params map[string]any)
}

// NoopSink discards all events.
type NoopSink struct{}

// Emit does nothing.
func (NoopSink) Emit(string, map[string]any) {}

// SlogSink logs events at debug level through the default slog logger.
type SlogSink struct{}

// Emit logs the event name and parameters.
func (SlogSink) Emit(name string, params map[string]any) {
	args := make([]any, 0, len(params)*2)
	for k, v := range params {
		args = append(args, k, v)
	}
	slog.Debug("Event "+name, args...)
}

// Emit sends through the sink, tolerating a nil sink.
func Emit(s Sink, name string, params map[string]any) {
	if s == nil {
		return
	}
	s.Emit(name, params)
}
