// Package flow implements condition evaluation and edge resolution for
// the screen graph.
package flow

import (
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/launchpath/flowkit/internal/models"
)

// Date layouts accepted for date-typed conditions, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// EvaluateCondition evaluates one condition against the user data
// recorded so far. It never errors: a missing screen, a missing recorded
// value, or an unsupported operator/type combination all evaluate false,
// with one exception — a numeric neq against a missing or unparseable
// value evaluates true (the user never answered, so "not equal to X"
// trivially holds).
func EvaluateCondition(cond models.Condition, graph *models.ScreenGraph, data *models.UserData) bool {
	screenID, subKey := splitKey(cond.Key)
	screen := graph.Screen(screenID)
	if screen == nil {
		return false
	}

	value, present := data.Get(screenID)

	if screen.ValueType == models.ValueTypeDict {
		if subKey == "" {
			return false
		}
		subType, ok := screen.SubTypes[subKey]
		if !ok {
			return false
		}
		actual, exists := "", false
		if present && len(value.Dict) > 0 {
			if sub := gjson.GetBytes(value.Dict, subKey); sub.Exists() {
				actual, exists = sub.String(), true
			}
		}
		return Compare(actual, exists, cond.Op, cond.Operand, subType)
	}

	switch screen.ValueType {
	case models.ValueTypeIntArray:
		if !present {
			return false
		}
		return compareIntArray(value.SortedInts(), cond.Op, cond.Operand)
	default:
		actual, exists := "", false
		if present {
			actual, exists = value.Scalar()
		}
		return Compare(actual, exists, cond.Op, cond.Operand, screen.ValueType)
	}
}

// Compare evaluates a scalar comparison under the declared value type.
// exists reports whether the actual value was recorded at all.
func Compare(actual string, exists bool, op models.Operator, operand string, vt models.ValueType) bool {
	switch vt {
	case models.ValueTypeString:
		return compareString(actual, exists, op, operand)
	case models.ValueTypeInt, models.ValueTypeDouble:
		return compareNumeric(actual, exists, op, operand)
	case models.ValueTypeDate:
		return compareDate(actual, exists, op, operand)
	case models.ValueTypeBool:
		return compareBool(actual, exists, op, operand)
	default:
		return false
	}
}

func splitKey(key string) (screenID, subKey string) {
	if i := strings.Index(key, "."); i >= 0 {
		return key[:i], key[i+1:]
	}
	return key, ""
}

func compareString(actual string, exists bool, op models.Operator, operand string) bool {
	if !exists {
		return false
	}
	switch op {
	case models.OperatorEq:
		return actual == operand
	case models.OperatorNeq:
		return actual != operand
	case models.OperatorIn:
		return strings.Contains(actual, operand)
	case models.OperatorNotIn:
		return !strings.Contains(actual, operand)
	default:
		return false
	}
}

func compareNumeric(actual string, exists bool, op models.Operator, operand string) bool {
	a, aErr := strconv.ParseFloat(strings.TrimSpace(actual), 64)
	if !exists || actual == "" || aErr != nil {
		// Never-answered values trivially satisfy neq; everything else
		// fails closed.
		return op == models.OperatorNeq
	}
	b, err := strconv.ParseFloat(strings.TrimSpace(operand), 64)
	if err != nil {
		return false
	}
	return ordered(op, compareFloats(a, b))
}

func compareDate(actual string, exists bool, op models.Operator, operand string) bool {
	if !exists {
		return false
	}
	a, ok := parseDate(actual)
	if !ok {
		return false
	}
	b, ok := parseDate(operand)
	if !ok {
		return false
	}
	switch {
	case a.Before(b):
		return ordered(op, -1)
	case a.After(b):
		return ordered(op, 1)
	default:
		return ordered(op, 0)
	}
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func compareBool(actual string, exists bool, op models.Operator, operand string) bool {
	if !exists {
		return false
	}
	a, errA := strconv.ParseBool(strings.TrimSpace(actual))
	b, errB := strconv.ParseBool(strings.TrimSpace(operand))
	if errA != nil || errB != nil {
		return false
	}
	switch op {
	case models.OperatorEq:
		return a == b
	case models.OperatorNeq:
		return a != b
	default:
		return false
	}
}

// compareIntArray compares the recorded selection indices against an
// operand like "[1,2,3]" (a bare comma list is accepted too). eq/neq are
// set equality; in/notin are subset tests. An empty recorded selection
// never satisfies in or notin.
func compareIntArray(actual []int, op models.Operator, operand string) bool {
	want, ok := parseIntArray(operand)
	if !ok {
		return false
	}
	switch op {
	case models.OperatorEq:
		return intSetsEqual(actual, want)
	case models.OperatorNeq:
		return !intSetsEqual(actual, want)
	case models.OperatorIn:
		if len(actual) == 0 {
			return false
		}
		return intSubset(actual, want)
	case models.OperatorNotIn:
		if len(actual) == 0 {
			return false
		}
		return !intSubset(actual, want)
	default:
		return false
	}
}

func parseIntArray(s string) ([]int, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var out []int
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, false
		}
		return out, true
	}
	if s == "" {
		return nil, true
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

func intSetsEqual(a, b []int) bool {
	return intSubset(a, b) && intSubset(b, a)
}

// intSubset reports whether every element of a appears in b.
func intSubset(a, b []int) bool {
	set := make(map[int]struct{}, len(b))
	for _, n := range b {
		set[n] = struct{}{}
	}
	for _, n := range a {
		if _, ok := set[n]; !ok {
			return false
		}
	}
	return true
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// ordered maps a three-way comparison result onto an ordering operator.
func ordered(op models.Operator, cmp int) bool {
	switch op {
	case models.OperatorEq:
		return cmp == 0
	case models.OperatorNeq:
		return cmp != 0
	case models.OperatorLt:
		return cmp < 0
	case models.OperatorGt:
		return cmp > 0
	case models.OperatorLte:
		return cmp <= 0
	case models.OperatorGte:
		return cmp >= 0
	default:
		return false
	}
}
