package expression

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// truthy follows JSON-logic: nil, false, 0, NaN, "" and empty arrays are false.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	}
	if n, ok := toFloat64(v); ok {
		return n != 0 && !math.IsNaN(n)
	}
	if items, ok := toSlice(v); ok {
		return len(items) > 0
	}
	return true
}

// compareValuesWithError orders two values. Numbers compare numerically,
// strings lexically, and mixed operands are compared as numbers when both
// convert.
func compareValuesWithError(a, b any) (int, error) {
	aNum, aIsNum := toFloat64(a)
	bNum, bIsNum := toFloat64(b)
	if aIsNum && bIsNum {
		return compareFloats(aNum, bNum), nil
	}

	aStr, aIsStr := a.(string)
	bStr, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return strings.Compare(aStr, bStr), nil
	}

	aNum, aOK := toNumber(a)
	bNum, bOK := toNumber(b)
	if aOK && bOK {
		return compareFloats(aNum, bNum), nil
	}
	return 0, fmt.Errorf("cannot compare %T with %T", a, b)
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

// looseEqual compares with type coercion between numbers, numeric strings
// and booleans. nil only equals nil.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	aStr, aIsStr := a.(string)
	bStr, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return aStr == bStr
	}
	if isScalar(a) && isScalar(b) {
		aNum, aOK := toNumber(a)
		bNum, bOK := toNumber(b)
		return aOK && bOK && aNum == bNum
	}
	return reflect.DeepEqual(a, b)
}

// strictEqual requires both operands to have the same JSON type. Numbers of
// different Go types are equal when their values are.
func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	aNum, aIsNum := toFloat64(a)
	bNum, bIsNum := toFloat64(b)
	if aIsNum || bIsNum {
		return aIsNum && bIsNum && aNum == bNum
	}
	return reflect.DeepEqual(a, b)
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool:
		return true
	}
	_, ok := toFloat64(v)
	return ok
}

// toNumber converts numbers, numeric strings, booleans and nil.
func toNumber(v any) (float64, bool) {
	if n, ok := toFloat64(v); ok {
		return n, true
	}
	switch val := v.(type) {
	case nil:
		return 0, true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, true
		}
		n, err := strconv.ParseFloat(s, 64)
		return n, err == nil
	}
	return 0, false
}

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
	default:
		return 0, false
	}
}

// toString renders a value the way cat and string operators see it.
func toString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// toSlice accepts []any and any other slice or array type.
func toSlice(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}
