package store

import (
	"fmt"
	"strconv"
	"strings"
)

// matches reports whether the record satisfies the query's search term and
// every condition. Shared by the memory backend; the SQL backends express
// the same semantics in SQL.
func matches(doc Record, q Query) bool {
	if q.Search != "" && len(q.SearchAttributes) > 0 {
		hit := false
		needle := strings.ToLower(q.Search)
		for _, attr := range q.SearchAttributes {
			if strings.Contains(strings.ToLower(stringValue(doc[attr])), needle) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}

	for _, cond := range q.Conditions {
		if !matchCondition(doc, cond) {
			return false
		}
	}
	return true
}

func matchCondition(doc Record, cond Condition) bool {
	value, ok := doc[cond.Attribute]
	switch cond.Operator {
	case OpEqual:
		return ok && stringValue(value) == stringValue(cond.Value)
	case OpIn:
		if !ok {
			return false
		}
		for _, candidate := range valueList(cond.Value) {
			if stringValue(value) == candidate {
				return true
			}
		}
		return false
	case OpContains:
		return ok && strings.Contains(
			strings.ToLower(stringValue(value)),
			strings.ToLower(stringValue(cond.Value)),
		)
	case OpGreaterOrEqual:
		lhs, lok := numberValue(value)
		rhs, rok := numberValue(cond.Value)
		return ok && lok && rok && lhs >= rhs
	case OpLessOrEqual:
		lhs, lok := numberValue(value)
		rhs, rok := numberValue(cond.Value)
		return ok && lok && rok && lhs <= rhs
	default:
		return false
	}
}

// stringValue normalizes a document value for comparison. JSON decoding
// produces float64 for numbers, so integral floats print without a
// fraction.
func stringValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		return fmt.Sprintf("%v", value)
	}
}

func numberValue(v any) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	case string:
		parsed, err := strconv.ParseFloat(value, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

// valueList normalizes an OpIn operand into comparable strings.
func valueList(v any) []string {
	switch value := v.(type) {
	case []string:
		return value
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			out = append(out, stringValue(item))
		}
		return out
	case nil:
		return nil
	default:
		return []string{stringValue(value)}
	}
}
