package query

import (
	"strings"
	"time"
)

// EvaluateCondition applies one operator to a row value. The second return
// reports whether the operator was recognized; callers decide whether an
// unknown operator fails the row or passes it through.
//
// Numbers compare numerically whenever both sides coerce, strings compare
// case-insensitively, and a nil row value never satisfies any condition.
func EvaluateCondition(fieldValue interface{}, operator string, value, value2 interface{}) (matched, known bool) {
	if fieldValue == nil {
		return false, operatorKnown(operator)
	}

	switch operator {
	case OpGT:
		cmp, ok := compareValues(fieldValue, value)
		return ok && cmp > 0, true
	case OpLT:
		cmp, ok := compareValues(fieldValue, value)
		return ok && cmp < 0, true
	case OpGTE:
		cmp, ok := compareValues(fieldValue, value)
		return ok && cmp >= 0, true
	case OpLTE:
		cmp, ok := compareValues(fieldValue, value)
		return ok && cmp <= 0, true
	case OpEq, OpEqAlias:
		cmp, ok := compareValues(fieldValue, value)
		return ok && cmp == 0, true
	case OpNotEq:
		cmp, ok := compareValues(fieldValue, value)
		return ok && cmp != 0, true
	case OpContains:
		return strings.Contains(lowerString(fieldValue), lowerString(value)), true
	case OpStartsWith:
		return strings.HasPrefix(lowerString(fieldValue), lowerString(value)), true
	case OpEndsWith:
		return strings.HasSuffix(lowerString(fieldValue), lowerString(value)), true
	case OpBetween:
		lo, okLo := compareValues(fieldValue, value)
		hi, okHi := compareValues(fieldValue, value2)
		return okLo && okHi && lo >= 0 && hi <= 0, true
	case OpIn:
		return valueIn(fieldValue, value), true
	default:
		return false, false
	}
}

func operatorKnown(op string) bool {
	switch op {
	case OpGT, OpLT, OpGTE, OpLTE, OpEq, OpEqAlias, OpNotEq,
		OpContains, OpStartsWith, OpEndsWith, OpBetween, OpIn:
		return true
	}
	return false
}

// compareValues orders two values: negative, zero or positive like
// strings.Compare. Numeric coercion wins when both sides are numbers;
// otherwise both sides compare as case-insensitive strings.
func compareValues(a, b interface{}) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}

	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}

	as, aStr := toComparableString(a)
	bs, bStr := toComparableString(b)
	if aStr && bStr {
		return strings.Compare(strings.ToLower(as), strings.ToLower(bs)), true
	}

	return 0, false
}

func valueIn(fieldValue, list interface{}) bool {
	values, ok := list.([]interface{})
	if !ok {
		if strs, okStr := list.([]string); okStr {
			for _, s := range strs {
				if cmp, okCmp := compareValues(fieldValue, s); okCmp && cmp == 0 {
					return true
				}
			}
		}
		return false
	}
	for _, v := range values {
		if cmp, okCmp := compareValues(fieldValue, v); okCmp && cmp == 0 {
			return true
		}
	}
	return false
}

// toFloat coerces the numeric types that appear in rows and decoded JSON.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case time.Time:
		return float64(n.UnixNano()), true
	}
	return 0, false
}

func toComparableString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case time.Time:
		return s.UTC().Format(time.RFC3339), true
	case bool:
		if s {
			return "true", true
		}
		return "false", true
	}
	return "", false
}

func lowerString(v interface{}) string {
	s, _ := toComparableString(v)
	return strings.ToLower(s)
}
