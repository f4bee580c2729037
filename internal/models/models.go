// Package models defines the core data structures for flowkit.
//
// It includes the screen graph (screens, actions, conditioned edges),
// the per-session user data recorded while a flow runs, and the shared
// error variables used across modules.
package models

import (
	"errors"
	"fmt"
)

// ValueType declares what shape of user input a screen produces, and
// therefore how conditions referencing that screen compare values.
type ValueType string

const (
	// ValueTypeString compares as a literal string.
	ValueTypeString ValueType = "string"
	// ValueTypeInt compares numerically after integer parsing.
	ValueTypeInt ValueType = "int"
	// ValueTypeDouble compares numerically after float parsing.
	ValueTypeDouble ValueType = "double"
	// ValueTypeDate compares chronologically after ISO-8601 parsing.
	ValueTypeDate ValueType = "date"
	// ValueTypeBool compares as a boolean (eq/neq only).
	ValueTypeBool ValueType = "bool"
	// ValueTypeIntArray compares as a set of selected indices.
	ValueTypeIntArray ValueType = "intArray"
	// ValueTypeDict holds nested values keyed by sub-field (custom screens).
	ValueTypeDict ValueType = "dict"
	// ValueTypeNone means the screen records no user input.
	ValueTypeNone ValueType = "none"
)

// IsValidValueType checks if the given value type is supported.
func IsValidValueType(vt ValueType) bool {
	switch vt {
	case ValueTypeString, ValueTypeInt, ValueTypeDouble, ValueTypeDate,
		ValueTypeBool, ValueTypeIntArray, ValueTypeDict, ValueTypeNone:
		return true
	default:
		return false
	}
}

// Operator identifies a condition comparison operator.
type Operator string

const (
	OperatorEq    Operator = "eq"
	OperatorNeq   Operator = "neq"
	OperatorLt    Operator = "lt"
	OperatorGt    Operator = "gt"
	OperatorLte   Operator = "lte"
	OperatorGte   Operator = "gte"
	OperatorIn    Operator = "in"
	OperatorNotIn Operator = "notin"
)

// TransitionKind describes how the next screen is presented.
type TransitionKind string

const (
	// TransitionPush pushes the next screen onto the navigation stack.
	TransitionPush TransitionKind = "push"
	// TransitionPresent presents the next screen modally.
	TransitionPresent TransitionKind = "present"
)

// Error variables for better error handling and testability.
var (
	ErrEmptyScreenGraph    = errors.New("screen graph contains no screens")
	ErrMissingLaunchScreen = errors.New("launch screen id not present in graph")
	ErrDanglingEdgeTarget  = errors.New("edge targets a screen id not present in graph")
	ErrInvalidScreenValue  = errors.New("value does not match the screen's declared value type")

	ErrInvalidAssetURL   = errors.New("invalid asset URL")
	ErrInvalidAssetData  = errors.New("invalid asset data")
	ErrFailedToLoadAsset = errors.New("failed to load asset")

	ErrNoReceiptData        = errors.New("no receipt data")
	ErrNoRemoteData         = errors.New("no data in remote response")
	ErrRequestBodyEncode    = errors.New("failed to encode request body")
	ErrNetwork              = errors.New("network error")
	ErrJSONDecode           = errors.New("failed to decode response payload")
	ErrReceiptInvalid       = errors.New("receipt rejected by validation endpoint")
	ErrValidationInProgress = errors.New("receipt validation already in flight")
)

// Condition guards a ConditionedAction. Key references a prior screen's
// recorded value as "screenID" or "screenID.subField" for dict screens.
type Condition struct {
	Key     string   `json:"key"`
	Op      Operator `json:"operator"`
	Operand string   `json:"value"`
}

// ConditionedAction is one possible transition out of a screen ("edge").
// An empty Rule means the edge is unconditioned and always matches if
// reached during resolution.
type ConditionedAction struct {
	Target     string         `json:"target"`
	Transition TransitionKind `json:"transition,omitempty"`
	Rule       []Condition    `json:"rule,omitempty"`
}

// Unconditioned reports whether the edge carries no conditions.
func (e *ConditionedAction) Unconditioned() bool {
	return len(e.Rule) == 0
}

// Action is a named exit point of a screen (e.g. "next"). It owns an
// ordered sequence of edges evaluated in declaration order.
type Action struct {
	Edges []*ConditionedAction `json:"edges"`
}

// Screen is a node of the screen graph.
type Screen struct {
	ID             string               `json:"id"`
	ValueType      ValueType            `json:"valueType,omitempty"`
	SubTypes       map[string]ValueType `json:"subTypes,omitempty"`
	UseLocalAssets bool                 `json:"useLocalAssets,omitempty"`
	Content        []ContentBlock       `json:"content,omitempty"`
	Actions        map[string]*Action   `json:"actions,omitempty"`
}

// ScreenGraph is the immutable directed graph describing one onboarding
// flow. It is loaded once per session and read-only afterwards.
type ScreenGraph struct {
	Screens  map[string]*Screen `json:"screens"`
	Launch   string             `json:"launch"`
	Language string             `json:"language,omitempty"`
}

// Validate performs structural validation on a decoded screen graph.
func (g *ScreenGraph) Validate() error {
	if len(g.Screens) == 0 {
		return ErrEmptyScreenGraph
	}
	if _, ok := g.Screens[g.Launch]; !ok {
		return fmt.Errorf("%w: %q", ErrMissingLaunchScreen, g.Launch)
	}
	for id, screen := range g.Screens {
		for name, action := range screen.Actions {
			for _, edge := range action.Edges {
				if _, ok := g.Screens[edge.Target]; !ok {
					return fmt.Errorf("%w: screen %q action %q target %q", ErrDanglingEdgeTarget, id, name, edge.Target)
				}
			}
		}
	}
	return nil
}

// Screen returns the screen for the given id, or nil when absent.
func (g *ScreenGraph) Screen(id string) *Screen {
	return g.Screens[id]
}

// CheckValue verifies that a submitted user value matches the screen's
// declared value type.
func (s *Screen) CheckValue(v UserValue) error {
	ok := false
	switch s.ValueType {
	case ValueTypeString, ValueTypeDate, ValueTypeBool:
		ok = v.Kind == UserValueString
	case ValueTypeInt, ValueTypeDouble:
		ok = v.Kind == UserValueNumber || v.Kind == UserValueString
	case ValueTypeIntArray:
		ok = v.Kind == UserValueIntArray
	case ValueTypeDict:
		ok = v.Kind == UserValueDict
	case ValueTypeNone:
		// Screens without input accept nothing.
	}
	if !ok {
		return fmt.Errorf("%w: screen %q declares %s, got %s", ErrInvalidScreenValue, s.ID, s.ValueType, v.Kind)
	}
	return nil
}

// AssetKind distinguishes the fetch path used for an asset reference.
type AssetKind string

const (
	AssetKindImage AssetKind = "image"
	AssetKindVideo AssetKind = "video"
)

// AssetRef is a single remote asset a screen needs before display.
type AssetRef struct {
	Kind AssetKind
	URL  string
}
