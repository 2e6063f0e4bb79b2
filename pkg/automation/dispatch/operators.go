package dispatch

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"relay-hq/triton/pkg/automation/rule"
)

// evaluateOperator applies a condition operator to the resolved field value.
// defined reports whether the field path resolved at all; only exists and
// not_exists match on an undefined value.
func evaluateOperator(op rule.Operator, actual any, defined bool, expected any) (bool, error) {
	switch op {
	case rule.OperatorExists:
		return defined, nil

	case rule.OperatorNotExists:
		return !defined, nil

	case rule.OperatorEquals:
		if !defined {
			return false, nil
		}
		return evaluateEqual(actual, expected), nil

	case rule.OperatorNotEquals:
		if !defined {
			// An undefined value is never equal to a concrete one.
			return true, nil
		}
		return !evaluateEqual(actual, expected), nil

	case rule.OperatorContains:
		if !defined {
			return false, nil
		}
		return strings.Contains(coerceString(actual), coerceString(expected)), nil

	case rule.OperatorGreaterThan:
		if !defined {
			return false, nil
		}
		a, e, err := coerceNumbers(actual, expected)
		if err != nil {
			return false, err
		}
		return a > e, nil

	case rule.OperatorLessThan:
		if !defined {
			return false, nil
		}
		a, e, err := coerceNumbers(actual, expected)
		if err != nil {
			return false, err
		}
		return a < e, nil

	default:
		return false, &ConditionError{Operator: op, Message: "unknown operator"}
	}
}

// evaluateEqual compares two values, preferring numeric comparison so that
// int and float64 payloads compare equal, falling back to deep equality.
func evaluateEqual(actual, expected any) bool {
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}

	if a, aok := toFloat64(actual); aok {
		if e, eok := toFloat64(expected); eok {
			return a == e
		}
	}

	return reflect.DeepEqual(actual, expected)
}

// coerceNumbers converts both comparison sides to float64.
func coerceNumbers(actual, expected any) (float64, float64, error) {
	a, ok := toFloat64(actual)
	if !ok {
		return 0, 0, &ConditionError{Message: fmt.Sprintf("cannot coerce %T to number", actual)}
	}
	e, ok := toFloat64(expected)
	if !ok {
		return 0, 0, &ConditionError{Message: fmt.Sprintf("cannot coerce %T to number", expected)}
	}
	return a, e, nil
}

// toFloat64 converts numeric types and numeric strings to float64.
func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// coerceString renders a value for substring matching.
func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(v)
	}
}
