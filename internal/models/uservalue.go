// Package models defines the user-data values recorded while a flow runs.
package models

import (
	"sort"
	"strconv"
	"sync"

	"github.com/goccy/go-json"
)

// UserValueKind tags which field of a UserValue is populated.
type UserValueKind string

const (
	UserValueString   UserValueKind = "string"
	UserValueNumber   UserValueKind = "number"
	UserValueIntArray UserValueKind = "intArray"
	UserValueDict     UserValueKind = "dict"
)

// UserValue is the value a user produced on one screen: a string answer,
// a numeric answer, the selected indices of a list/grid, or a nested
// dictionary for custom screens (kept as raw JSON for sub-key lookup).
type UserValue struct {
	Kind UserValueKind
	Str  string
	Num  float64
	Ints []int
	Dict json.RawMessage
}

// StringValue builds a string-kind user value.
func StringValue(s string) UserValue {
	return UserValue{Kind: UserValueString, Str: s}
}

// NumberValue builds a number-kind user value.
func NumberValue(n float64) UserValue {
	return UserValue{Kind: UserValueNumber, Num: n}
}

// IntArrayValue builds an index-array user value.
func IntArrayValue(indices []int) UserValue {
	return UserValue{Kind: UserValueIntArray, Ints: indices}
}

// DictValue builds a dict-kind user value from raw JSON.
func DictValue(raw json.RawMessage) UserValue {
	return UserValue{Kind: UserValueDict, Dict: raw}
}

// Scalar renders the value as the string the condition evaluator parses.
// Dict values have no scalar rendering and return false.
func (v UserValue) Scalar() (string, bool) {
	switch v.Kind {
	case UserValueString:
		return v.Str, true
	case UserValueNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64), true
	default:
		return "", false
	}
}

// SortedInts returns a sorted copy of the index array.
func (v UserValue) SortedInts() []int {
	out := make([]int, len(v.Ints))
	copy(out, v.Ints)
	sort.Ints(out)
	return out
}

// UserData is the mutable per-session mapping from screen id to the value
// the user produced on that screen. It grows for the duration of one
// onboarding run and is cleared when the run finishes.
type UserData struct {
	mu     sync.RWMutex
	values map[string]UserValue
}

// NewUserData creates an empty user-data map for one session.
func NewUserData() *UserData {
	return &UserData{values: make(map[string]UserValue)}
}

// Set records the value produced on the given screen.
func (d *UserData) Set(screenID string, v UserValue) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values[screenID] = v
}

// Get returns the recorded value for the given screen, if any.
func (d *UserData) Get(screenID string) (UserValue, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.values[screenID]
	return v, ok
}

// Len reports how many screens have recorded values.
func (d *UserData) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.values)
}

// Clear removes all recorded values. Called when the run finishes.
func (d *UserData) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values = make(map[string]UserValue)
}
