package expression

import (
	"fmt"
	"math"
	"strings"
)

// Comparison

// comparison builds <, <=, > and >=. When between is set a third argument
// turns the operator into a range check: {"<": [1, x, 10]}.
func comparison(accept func(int) bool, between bool) valueFunc {
	return func(_ *Evaluator, values []any, _ any) (any, error) {
		switch {
		case len(values) == 2:
			cmp, err := compareValuesWithError(values[0], values[1])
			if err != nil {
				return nil, err
			}
			return accept(cmp), nil
		case len(values) == 3 && between:
			lower, err := compareValuesWithError(values[0], values[1])
			if err != nil {
				return nil, err
			}
			upper, err := compareValuesWithError(values[1], values[2])
			if err != nil {
				return nil, err
			}
			return accept(lower) && accept(upper), nil
		default:
			return nil, fmt.Errorf("unexpected argument count %d", len(values))
		}
	}
}

// Arithmetic

func numbers(values []any) ([]float64, error) {
	out := make([]float64, len(values))
	for i, v := range values {
		n, ok := toNumber(v)
		if !ok {
			return nil, fmt.Errorf("argument %d is not numeric: %v", i, v)
		}
		out[i] = n
	}
	return out, nil
}

func operatorAdd(_ *Evaluator, values []any, _ any) (any, error) {
	nums, err := numbers(values)
	if err != nil {
		return nil, err
	}
	sum := 0.0
	for _, n := range nums {
		sum += n
	}
	return sum, nil
}

func operatorSubtract(_ *Evaluator, values []any, _ any) (any, error) {
	nums, err := numbers(values)
	if err != nil {
		return nil, err
	}
	switch len(nums) {
	case 1:
		return -nums[0], nil
	case 2:
		return nums[0] - nums[1], nil
	default:
		return nil, fmt.Errorf("expected 1 or 2 arguments, got %d", len(nums))
	}
}

func operatorMultiply(_ *Evaluator, values []any, _ any) (any, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("expected at least 1 argument")
	}
	nums, err := numbers(values)
	if err != nil {
		return nil, err
	}
	product := 1.0
	for _, n := range nums {
		product *= n
	}
	return product, nil
}

func operatorDivide(_ *Evaluator, values []any, _ any) (any, error) {
	if len(values) != 2 {
		return nil, fmt.Errorf("expected 2 arguments, got %d", len(values))
	}
	nums, err := numbers(values)
	if err != nil {
		return nil, err
	}
	if nums[1] == 0 {
		return nil, fmt.Errorf("division by zero")
	}
	return nums[0] / nums[1], nil
}

func operatorModulo(_ *Evaluator, values []any, _ any) (any, error) {
	if len(values) != 2 {
		return nil, fmt.Errorf("expected 2 arguments, got %d", len(values))
	}
	nums, err := numbers(values)
	if err != nil {
		return nil, err
	}
	if nums[1] == 0 {
		return nil, fmt.Errorf("modulo by zero")
	}
	return math.Mod(nums[0], nums[1]), nil
}

// extremum builds min and max. An empty argument list yields nil.
func extremum(better func(v, best float64) bool) valueFunc {
	return func(_ *Evaluator, values []any, _ any) (any, error) {
		if len(values) == 0 {
			return nil, nil
		}
		nums, err := numbers(values)
		if err != nil {
			return nil, err
		}
		best := nums[0]
		for _, n := range nums[1:] {
			if better(n, best) {
				best = n
			}
		}
		return best, nil
	}
}

// Strings

func operatorCat(_ *Evaluator, values []any, _ any) (any, error) {
	var b strings.Builder
	for _, v := range values {
		b.WriteString(toString(v))
	}
	return b.String(), nil
}

// operatorSubstr takes [string, start, length?]. A negative start counts from
// the end; a negative length drops that many characters from the end.
func operatorSubstr(_ *Evaluator, values []any, _ any) (any, error) {
	if len(values) < 2 || len(values) > 3 {
		return nil, fmt.Errorf("expected 2 or 3 arguments, got %d", len(values))
	}
	runes := []rune(toString(values[0]))
	size := len(runes)

	startF, ok := toNumber(values[1])
	if !ok {
		return nil, fmt.Errorf("start must be numeric, got %v", values[1])
	}
	start := int(startF)
	if start < 0 {
		start = max(size+start, 0)
	}
	if start > size {
		return "", nil
	}

	end := size
	if len(values) == 3 {
		lengthF, ok := toNumber(values[2])
		if !ok {
			return nil, fmt.Errorf("length must be numeric, got %v", values[2])
		}
		length := int(lengthF)
		if length < 0 {
			end = max(size+length, start)
		} else {
			end = min(start+length, size)
		}
	}
	return string(runes[start:end]), nil
}

func operatorRegex(e *Evaluator, values []any, _ any) (any, error) {
	if len(values) != 2 {
		return nil, fmt.Errorf("expected [value, pattern], got %d arguments", len(values))
	}
	pattern, ok := values[1].(string)
	if !ok {
		return nil, fmt.Errorf("regex pattern must be a string")
	}

	re, err := e.compileRegex(pattern)
	if err != nil {
		return nil, err
	}
	return re.MatchString(toString(values[0])), nil
}

// Arrays

// operatorIn checks substring membership for strings and element membership
// for arrays.
func operatorIn(needle, haystack any) (any, error) {
	if s, ok := haystack.(string); ok {
		return strings.Contains(s, toString(needle)), nil
	}
	items, ok := toSlice(haystack)
	if !ok {
		return false, nil
	}
	for _, item := range items {
		if strictEqual(needle, item) {
			return true, nil
		}
	}
	return false, nil
}

// operatorMerge flattens one level of nested arrays.
func operatorMerge(_ *Evaluator, values []any, _ any) (any, error) {
	out := []any{}
	for _, v := range values {
		if items, ok := toSlice(v); ok {
			out = append(out, items...)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// scope evaluates the array argument of map, filter, reduce and the quantifiers.
func scope(e *Evaluator, args []any, data any) ([]any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	v, err := e.Apply(args[0], data)
	if err != nil {
		return nil, err
	}
	items, _ := toSlice(v)
	return items, nil
}

func operatorMap(e *Evaluator, args []any, data any) (any, error) {
	items, err := scope(e, args, data)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(items))
	if len(args) < 2 {
		return out, nil
	}
	for _, item := range items {
		v, err := e.Apply(args[1], item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func operatorFilter(e *Evaluator, args []any, data any) (any, error) {
	items, err := scope(e, args, data)
	if err != nil {
		return nil, err
	}
	out := []any{}
	if len(args) < 2 {
		return out, nil
	}
	for _, item := range items {
		keep, err := e.Apply(args[1], item)
		if err != nil {
			return nil, err
		}
		if truthy(keep) {
			out = append(out, item)
		}
	}
	return out, nil
}

// operatorReduce takes [array, logic, initial]; logic sees {"current", "accumulator"}.
func operatorReduce(e *Evaluator, args []any, data any) (any, error) {
	items, err := scope(e, args, data)
	if err != nil {
		return nil, err
	}
	var acc any
	if len(args) > 2 {
		if acc, err = e.Apply(args[2], data); err != nil {
			return nil, err
		}
	}
	if len(args) < 2 {
		return acc, nil
	}
	for _, item := range items {
		acc, err = e.Apply(args[1], map[string]any{
			"current":     item,
			"accumulator": acc,
		})
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// quantifier builds all, some and none from the number of truthy results.
func quantifier(decide func(matched, total int) bool) OperatorFunc {
	return func(e *Evaluator, args []any, data any) (any, error) {
		items, err := scope(e, args, data)
		if err != nil {
			return nil, err
		}
		if len(args) < 2 {
			return decide(0, len(items)), nil
		}
		matched := 0
		for _, item := range items {
			v, err := e.Apply(args[1], item)
			if err != nil {
				return nil, err
			}
			if truthy(v) {
				matched++
			}
		}
		return decide(matched, len(items)), nil
	}
}
