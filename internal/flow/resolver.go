package flow

import (
	"log/slog"

	"github.com/launchpath/flowkit/internal/events"
	"github.com/launchpath/flowkit/internal/models"
)

// Resolver selects the next edge out of a screen. It is stateless apart
// from the optional observability sink.
type Resolver struct {
	sink events.Sink
}

// NewResolver creates a Resolver reporting through the given sink.
// A nil sink is valid and disables events.
func NewResolver(sink events.Sink) *Resolver {
	return &Resolver{sink: sink}
}

// Resolve picks the next edge from an ordered edge list:
//
//  1. Every conditioned edge is checked in declaration order; the first
//     edge whose full rule evaluates true wins.
//  2. Otherwise the first unconditioned edge wins.
//  3. Otherwise the first edge overall wins. This is a permissive
//     fallback kept for compatibility, reported via EventFallbackEdge.
//  4. An empty edge list resolves to nil: the flow has no next screen.
//
// Resolve is deterministic for a fixed edge list and user-data snapshot.
func (r *Resolver) Resolve(edges []*models.ConditionedAction, graph *models.ScreenGraph, data *models.UserData) *models.ConditionedAction {
	if len(edges) == 0 {
		return nil
	}

	for _, edge := range edges {
		if edge.Unconditioned() {
			continue
		}
		if r.ruleSatisfied(edge.Rule, graph, data) {
			slog.Debug("Resolver matched conditioned edge", "target", edge.Target)
			return edge
		}
	}

	for _, edge := range edges {
		if edge.Unconditioned() {
			slog.Debug("Resolver fell back to unconditioned edge", "target", edge.Target)
			return edge
		}
	}

	// No right condition; an arbitrary edge is used.
	slog.Warn("Resolver found no matching edge, using first edge", "target", edges[0].Target)
	events.Emit(r.sink, events.EventFallbackEdge, map[string]any{"target": edges[0].Target})
	return edges[0]
}

// ruleSatisfied reports whether every condition of the rule holds.
func (r *Resolver) ruleSatisfied(rule []models.Condition, graph *models.ScreenGraph, data *models.UserData) bool {
	for _, cond := range rule {
		if !EvaluateCondition(cond, graph, data) {
			return false
		}
	}
	return true
}
