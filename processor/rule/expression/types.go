// Package expression - JSON-logic rule evaluation for enrichment
package expression

import (
	"fmt"
	"regexp"

	"github.com/c360/coredata/pkg/cache"
)

// Evaluator applies JSON-logic rules to structured input.
//
// A rule is either a literal, an array of rules, or an object with exactly one
// key naming an operator whose value holds the operator arguments. Input is any
// tree of maps, slices and scalars, typically the result of decoding JSON.
type Evaluator struct {
	operators map[string]OperatorFunc
	regexes   cache.Cache[*regexp.Regexp]
}

// OperatorFunc implements an operator. args are the raw, unevaluated arguments;
// implementations call Evaluator.Apply on the arguments they need.
type OperatorFunc func(e *Evaluator, args []any, data any) (any, error)

// Option configures an Evaluator.
type Option func(*evaluatorOptions)

type evaluatorOptions struct {
	regexCacheSize int
}

// WithRegexCacheSize bounds the number of compiled patterns kept by the
// evaluator. Values <= 0 keep the default of 100.
func WithRegexCacheSize(size int) Option {
	return func(o *evaluatorOptions) {
		if size > 0 {
			o.regexCacheSize = size
		}
	}
}

// EvaluationError represents an error during rule evaluation
type EvaluationError struct {
	Operator string
	Message  string
	Err      error
}

func (e *EvaluationError) Error() string {
	if e.Operator == "" {
		if e.Err != nil {
			return fmt.Sprintf("evaluation error: %s: %v", e.Message, e.Err)
		}
		return fmt.Sprintf("evaluation error: %s", e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("evaluation error with operator '%s': %s: %v", e.Operator, e.Message, e.Err)
	}
	return fmt.Sprintf("evaluation error with operator '%s': %s", e.Operator, e.Message)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// Supported operators
const (
	// Data access
	OpVar         = "var"
	OpMissing     = "missing"
	OpMissingSome = "missing_some"

	// Logic
	OpIf          = "if"
	OpTernary     = "?:"
	OpEqual       = "=="
	OpStrictEqual = "==="
	OpNotEqual    = "!="
	OpStrictNotEq = "!=="
	OpNot         = "!"
	OpTruthy      = "!!"
	OpAnd         = "and"
	OpOr          = "or"

	// Numeric
	OpLessThan         = "<"
	OpLessThanEqual    = "<="
	OpGreaterThan      = ">"
	OpGreaterThanEqual = ">="
	OpAdd              = "+"
	OpSubtract         = "-"
	OpMultiply         = "*"
	OpDivide           = "/"
	OpModulo           = "%"
	OpMin              = "min"
	OpMax              = "max"

	// Strings
	OpCat        = "cat"
	OpSubstr     = "substr"
	OpStartsWith = "starts_with"
	OpEndsWith   = "ends_with"
	OpRegexMatch = "regex"
	OpUpper      = "upper"
	OpLower      = "lower"

	// Arrays
	OpIn     = "in"
	OpMerge  = "merge"
	OpMap    = "map"
	OpFilter = "filter"
	OpReduce = "reduce"
	OpAll    = "all"
	OpSome   = "some"
	OpNone   = "none"
)
