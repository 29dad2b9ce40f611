// Package expression - Expression evaluator implementation
package expression

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/c360/coredata/pkg/cache"
	"github.com/c360/coredata/pkg/tree"
)

const defaultRegexCacheSize = 100

// NewEvaluator creates a new evaluator with all supported operators
func NewEvaluator(opts ...Option) *Evaluator {
	o := evaluatorOptions{regexCacheSize: defaultRegexCacheSize}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	regexes, err := cache.NewLRU[*regexp.Regexp](o.regexCacheSize)
	if err != nil {
		// Size is always positive here
		panic(fmt.Sprintf("failed to initialize regex cache: %v", err))
	}

	e := &Evaluator{
		operators: make(map[string]OperatorFunc),
		regexes:   regexes,
	}

	// Data access
	e.operators[OpVar] = eager(operatorVar)
	e.operators[OpMissing] = eager(operatorMissing)
	e.operators[OpMissingSome] = eager(operatorMissingSome)

	// Logic, evaluated lazily
	e.operators[OpIf] = operatorIf
	e.operators[OpTernary] = operatorIf
	e.operators[OpAnd] = operatorAnd
	e.operators[OpOr] = operatorOr
	e.operators[OpEqual] = eager(binary(func(a, b any) (any, error) { return looseEqual(a, b), nil }))
	e.operators[OpNotEqual] = eager(binary(func(a, b any) (any, error) { return !looseEqual(a, b), nil }))
	e.operators[OpStrictEqual] = eager(binary(func(a, b any) (any, error) { return strictEqual(a, b), nil }))
	e.operators[OpStrictNotEq] = eager(binary(func(a, b any) (any, error) { return !strictEqual(a, b), nil }))
	e.operators[OpNot] = eager(func(_ *Evaluator, values []any, _ any) (any, error) { return !truthy(first(values)), nil })
	e.operators[OpTruthy] = eager(func(_ *Evaluator, values []any, _ any) (any, error) { return truthy(first(values)), nil })

	// Numeric
	e.operators[OpLessThan] = eager(comparison(func(c int) bool { return c < 0 }, true))
	e.operators[OpLessThanEqual] = eager(comparison(func(c int) bool { return c <= 0 }, true))
	e.operators[OpGreaterThan] = eager(comparison(func(c int) bool { return c > 0 }, false))
	e.operators[OpGreaterThanEqual] = eager(comparison(func(c int) bool { return c >= 0 }, false))
	e.operators[OpAdd] = eager(operatorAdd)
	e.operators[OpSubtract] = eager(operatorSubtract)
	e.operators[OpMultiply] = eager(operatorMultiply)
	e.operators[OpDivide] = eager(operatorDivide)
	e.operators[OpModulo] = eager(operatorModulo)
	e.operators[OpMin] = eager(extremum(func(v, best float64) bool { return v < best }))
	e.operators[OpMax] = eager(extremum(func(v, best float64) bool { return v > best }))

	// Strings
	e.operators[OpCat] = eager(operatorCat)
	e.operators[OpSubstr] = eager(operatorSubstr)
	e.operators[OpStartsWith] = eager(binary(func(a, b any) (any, error) { return strings.HasPrefix(toString(a), toString(b)), nil }))
	e.operators[OpEndsWith] = eager(binary(func(a, b any) (any, error) { return strings.HasSuffix(toString(a), toString(b)), nil }))
	e.operators[OpRegexMatch] = eager(operatorRegex)
	e.operators[OpUpper] = eager(func(_ *Evaluator, values []any, _ any) (any, error) {
		return strings.ToUpper(toString(first(values))), nil
	})
	e.operators[OpLower] = eager(func(_ *Evaluator, values []any, _ any) (any, error) {
		return strings.ToLower(toString(first(values))), nil
	})

	// Arrays
	e.operators[OpIn] = eager(binary(operatorIn))
	e.operators[OpMerge] = eager(operatorMerge)
	e.operators[OpMap] = operatorMap
	e.operators[OpFilter] = operatorFilter
	e.operators[OpReduce] = operatorReduce
	e.operators[OpAll] = quantifier(func(matched, total int) bool { return total > 0 && matched == total })
	e.operators[OpSome] = quantifier(func(matched, _ int) bool { return matched > 0 })
	e.operators[OpNone] = quantifier(func(matched, _ int) bool { return matched == 0 })

	return e
}

// AddOperator registers or replaces an operator.
func (e *Evaluator) AddOperator(name string, fn OperatorFunc) {
	e.operators[name] = fn
}

// Apply evaluates rule against data and returns the result.
func (e *Evaluator) Apply(rule, data any) (any, error) {
	switch r := rule.(type) {
	case []any:
		out := make([]any, len(r))
		for i, item := range r {
			v, err := e.Apply(item, data)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case map[string]any:
		if len(r) != 1 {
			return r, nil
		}
		for name, rawArgs := range r {
			return e.applyOperator(name, asArgs(rawArgs), data)
		}
	}
	return rule, nil
}

func (e *Evaluator) applyOperator(name string, args []any, data any) (any, error) {
	opFunc, exists := e.operators[name]
	if !exists {
		return nil, &EvaluationError{
			Operator: name,
			Message:  "unsupported operator",
		}
	}

	result, err := opFunc(e, args, data)
	if err != nil {
		var evalErr *EvaluationError
		if errors.As(err, &evalErr) {
			return nil, err
		}
		return nil, &EvaluationError{
			Operator: name,
			Message:  "operator execution failed",
			Err:      err,
		}
	}
	return result, nil
}

// valueFunc implements an operator over already evaluated arguments.
type valueFunc func(e *Evaluator, values []any, data any) (any, error)

// eager evaluates every argument before calling fn.
func eager(fn valueFunc) OperatorFunc {
	return func(e *Evaluator, args []any, data any) (any, error) {
		values := make([]any, len(args))
		for i, arg := range args {
			v, err := e.Apply(arg, data)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		return fn(e, values, data)
	}
}

func binary(fn func(a, b any) (any, error)) valueFunc {
	return func(_ *Evaluator, values []any, _ any) (any, error) {
		if len(values) != 2 {
			return nil, fmt.Errorf("expected 2 arguments, got %d", len(values))
		}
		return fn(values[0], values[1])
	}
}

// asArgs normalizes the operator value into an argument list:
// {"var": "a"} is shorthand for {"var": ["a"]}.
func asArgs(raw any) []any {
	if args, ok := raw.([]any); ok {
		return args
	}
	return []any{raw}
}

func first(values []any) any {
	if len(values) == 0 {
		return nil
	}
	return values[0]
}

// Data access

func operatorVar(_ *Evaluator, values []any, data any) (any, error) {
	if len(values) == 0 || values[0] == nil {
		return data, nil
	}
	var fallback any
	if len(values) > 1 {
		fallback = values[1]
	}

	path := toString(values[0])
	if path == "" {
		return data, nil
	}
	v, ok := lookup(data, path)
	if !ok || v == nil {
		return fallback, nil
	}
	return v, nil
}

func operatorMissing(_ *Evaluator, values []any, data any) (any, error) {
	keys := values
	if len(values) > 0 {
		if list, ok := toSlice(values[0]); ok {
			keys = list
		}
	}
	missing := []any{}
	for _, key := range keys {
		if !present(data, key) {
			missing = append(missing, key)
		}
	}
	return missing, nil
}

func operatorMissingSome(_ *Evaluator, values []any, data any) (any, error) {
	if len(values) != 2 {
		return nil, fmt.Errorf("expected [need, keys], got %d arguments", len(values))
	}
	need, ok := toNumber(values[0])
	if !ok {
		return nil, fmt.Errorf("minimum count must be numeric, got %T", values[0])
	}
	keys, ok := toSlice(values[1])
	if !ok {
		return nil, fmt.Errorf("keys must be an array, got %T", values[1])
	}

	missing := []any{}
	found := 0
	for _, key := range keys {
		if present(data, key) {
			found++
		} else {
			missing = append(missing, key)
		}
	}
	if float64(found) >= need {
		return []any{}, nil
	}
	return missing, nil
}

func present(data, key any) bool {
	v, ok := lookup(data, toString(key))
	return ok && v != nil && v != ""
}

// lookup resolves a dotted path; numeric segments index arrays.
func lookup(data any, path string) (any, bool) {
	return tree.Get(data, tree.Path(strings.Split(path, ".")))
}

// Logic

func operatorIf(e *Evaluator, args []any, data any) (any, error) {
	i := 0
	for ; i+1 < len(args); i += 2 {
		cond, err := e.Apply(args[i], data)
		if err != nil {
			return nil, err
		}
		if truthy(cond) {
			return e.Apply(args[i+1], data)
		}
	}
	if i < len(args) {
		return e.Apply(args[i], data)
	}
	return nil, nil
}

// operatorAnd returns the first falsy argument, or the last one.
func operatorAnd(e *Evaluator, args []any, data any) (any, error) {
	var current any
	for _, arg := range args {
		v, err := e.Apply(arg, data)
		if err != nil {
			return nil, err
		}
		current = v
		if !truthy(current) {
			return current, nil
		}
	}
	return current, nil
}

// operatorOr returns the first truthy argument, or the last one.
func operatorOr(e *Evaluator, args []any, data any) (any, error) {
	var current any
	for _, arg := range args {
		v, err := e.Apply(arg, data)
		if err != nil {
			return nil, err
		}
		current = v
		if truthy(current) {
			return current, nil
		}
	}
	return current, nil
}
