// Package flowkit renders declarative, JSON-described onboarding and
// paywall flows inside host applications.
//
// Hosts load a screen graph through a Source, open a Session over it,
// and drive a Controller: the controller resolves which screen comes
// next from the user's recorded answers, waits for that screen's assets
// through the prefetch coordinator, and hands the screen to the host's
// renderer. Receipt validation runs through the Validator against
// Apple's verification endpoints.
//
// Subsystem implementations live under internal/; this package
// re-exports the types hosts need to construct and inspect.
package flowkit

import (
	"github.com/launchpath/flowkit/internal/events"
	"github.com/launchpath/flowkit/internal/flow"
	"github.com/launchpath/flowkit/internal/graphsource"
	"github.com/launchpath/flowkit/internal/models"
	"github.com/launchpath/flowkit/internal/prefetch"
	"github.com/launchpath/flowkit/internal/receipt"
	"github.com/launchpath/flowkit/internal/store"
)

// Graph and user-data types.
type (
	ScreenGraph       = models.ScreenGraph
	Screen            = models.Screen
	Action            = models.Action
	ConditionedAction = models.ConditionedAction
	Condition         = models.Condition
	ContentBlock      = models.ContentBlock
	ContentItem       = models.ContentItem
	UserValue         = models.UserValue
	UserData          = models.UserData
	RunRecord         = models.RunRecord
)

// Capability and outcome types.
type (
	EventSink        = events.Sink
	NoopSink         = events.NoopSink
	SlogSink         = events.SlogSink
	Fetcher          = prefetch.Fetcher
	WaitOutcome      = prefetch.WaitOutcome
	Strategy         = prefetch.Strategy
	Store            = store.Store
	Source           = graphsource.Source
	Transport        = receipt.Transport
	Validator        = receipt.Validator
	ValidatedReceipt = receipt.ValidatedReceipt
)

// Prefetch strategies.
const (
	StrategyWaitForAllDone      = prefetch.StrategyWaitForAllDone
	StrategyWaitForFirstDone    = prefetch.StrategyWaitForFirstDone
	StrategyWaitForScreenToLoad = prefetch.StrategyWaitForScreenToLoad
)

// User value constructors.
var (
	StringValue   = models.StringValue
	NumberValue   = models.NumberValue
	IntArrayValue = models.IntArrayValue
	DictValue     = models.DictValue
	NewUserData   = models.NewUserData
)

// Graph loading.
var (
	FromJSON        = graphsource.FromJSON
	NewBundleSource = graphsource.NewBundleSource
	NewRemoteSource = graphsource.NewRemoteSource
)

// NewValidator creates a receipt validator against Apple's verification
// endpoints. A custom transport may be injected for tests.
func NewValidator(secret string, transport Transport) *Validator {
	if transport == nil {
		transport = receipt.NewAppStoreTransport()
	}
	return receipt.NewValidator(transport, secret)
}

// ResolveEdge runs edge resolution standalone, without a session. Most
// hosts use Controller instead; this is the seam for custom renderers.
func ResolveEdge(edges []*ConditionedAction, graph *ScreenGraph, data *UserData, sink EventSink) *ConditionedAction {
	return flow.NewResolver(sink).Resolve(edges, graph, data)
}
