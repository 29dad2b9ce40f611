package expression

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decode parses a rule or input written as JSON so tests see the same shapes
// as configuration loaded from disk.
func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestEvaluator_Apply(t *testing.T) {
	evaluator := NewEvaluator()

	data := `{
		"new_amount": 42,
		"currency": "EUR",
		"debtor": {"name": "ACME", "accounts": ["DE01", "DE02"]},
		"scores": [3, 7, 11],
		"empty": "",
		"flag": false
	}`

	tests := []struct {
		name     string
		rule     string
		expected any
	}{
		{"literal_number", `7`, 7.0},
		{"literal_string", `"x"`, "x"},
		{"var_simple", `{"var": "new_amount"}`, 42.0},
		{"var_array_form", `{"var": ["currency"]}`, "EUR"},
		{"var_nested", `{"var": "debtor.name"}`, "ACME"},
		{"var_index", `{"var": "debtor.accounts.1"}`, "DE02"},
		{"var_default", `{"var": ["missing.path", "fallback"]}`, "fallback"},
		{"var_missing_is_nil", `{"var": "nope"}`, nil},
		{"missing", `{"missing": ["currency", "iban", "empty"]}`, []any{"iban", "empty"}},
		{"missing_some_satisfied", `{"missing_some": [1, ["currency", "iban"]]}`, []any{}},
		{"missing_some_short", `{"missing_some": [2, ["currency", "iban"]]}`, []any{"iban"}},

		{"if_then", `{"if": [{"==": [{"var": "currency"}, "EUR"]}, "euro", "other"]}`, "euro"},
		{"if_else", `{"if": [{"==": [{"var": "currency"}, "USD"]}, "dollar", "other"]}`, "other"},
		{"if_chain", `{"if": [false, 1, {"var": "flag"}, 2, 3]}`, 3.0},
		{"if_no_else", `{"if": [false, 1]}`, nil},
		{"ternary", `{"?:": [true, "yes", "no"]}`, "yes"},

		{"loose_equal_coerces", `{"==": [1, "1"]}`, true},
		{"strict_equal_types", `{"===": [1, "1"]}`, false},
		{"strict_equal_numbers", `{"===": [{"var": "new_amount"}, 42]}`, true},
		{"not_equal", `{"!=": ["a", "b"]}`, true},
		{"strict_not_equal", `{"!==": [1, 1]}`, false},
		{"not", `{"!": [{"var": "empty"}]}`, true},
		{"double_not", `{"!!": [{"var": "scores"}]}`, true},
		{"and_returns_falsy", `{"and": [true, 0, "x"]}`, 0.0},
		{"and_returns_last", `{"and": [true, "x"]}`, "x"},
		{"or_returns_truthy", `{"or": [false, "", "first"]}`, "first"},

		{"less_than", `{"<": [{"var": "new_amount"}, 100]}`, true},
		{"between_exclusive", `{"<": [0, {"var": "new_amount"}, 42]}`, false},
		{"between_inclusive", `{"<=": [0, {"var": "new_amount"}, 42]}`, true},
		{"greater_than", `{">": [{"var": "new_amount"}, 100]}`, false},
		{"greater_equal", `{">=": ["b", "a"]}`, true},
		{"numeric_string_compare", `{"<": ["10", 9]}`, false},

		{"add", `{"+": [{"var": "new_amount"}, 8]}`, 50.0},
		{"add_numeric_string", `{"+": ["1.5", 1]}`, 2.5},
		{"subtract", `{"-": [10, 4]}`, 6.0},
		{"negate", `{"-": [3]}`, -3.0},
		{"multiply", `{"*": [2, 3, 4]}`, 24.0},
		{"divide", `{"/": [9, 2]}`, 4.5},
		{"modulo", `{"%": [10, 3]}`, 1.0},
		{"min", `{"min": [5, 2, 9]}`, 2.0},
		{"max", `{"max": [5, 2, 9]}`, 9.0},
		{"max_empty", `{"max": []}`, nil},

		{"cat", `{"cat": ["Amount: ", {"var": "new_amount"}, " ", {"var": "currency"}]}`, "Amount: 42 EUR"},
		{"substr_start", `{"substr": ["coredata", 4]}`, "data"},
		{"substr_negative_start", `{"substr": ["coredata", -4]}`, "data"},
		{"substr_length", `{"substr": ["coredata", 0, 4]}`, "core"},
		{"substr_negative_length", `{"substr": ["coredata", 0, -4]}`, "core"},
		{"starts_with", `{"starts_with": [{"var": "debtor.name"}, "AC"]}`, true},
		{"ends_with", `{"ends_with": [{"var": "debtor.name"}, "ME"]}`, true},
		{"regex", `{"regex": [{"var": "debtor.accounts.0"}, "^DE[0-9]+$"]}`, true},
		{"upper", `{"upper": "eur"}`, "EUR"},
		{"lower", `{"lower": [{"var": "currency"}]}`, "eur"},

		{"in_string", `{"in": ["ME", {"var": "debtor.name"}]}`, true},
		{"in_array", `{"in": ["DE02", {"var": "debtor.accounts"}]}`, true},
		{"in_array_absent", `{"in": ["FR01", {"var": "debtor.accounts"}]}`, false},
		{"merge", `{"merge": [[1, 2], 3, [4]]}`, []any{1.0, 2.0, 3.0, 4.0}},
		{"map", `{"map": [{"var": "scores"}, {"*": [{"var": ""}, 2]}]}`, []any{6.0, 14.0, 22.0}},
		{"filter", `{"filter": [{"var": "scores"}, {">": [{"var": ""}, 5]}]}`, []any{7.0, 11.0}},
		{"reduce", `{"reduce": [{"var": "scores"}, {"+": [{"var": "current"}, {"var": "accumulator"}]}, 0]}`, 21.0},
		{"all", `{"all": [{"var": "scores"}, {">": [{"var": ""}, 1]}]}`, true},
		{"all_empty", `{"all": [[], true]}`, false},
		{"some", `{"some": [{"var": "scores"}, {">": [{"var": ""}, 10]}]}`, true},
		{"none", `{"none": [{"var": "scores"}, {">": [{"var": ""}, 20]}]}`, true},

		{"array_of_rules", `[{"var": "currency"}, 1]`, []any{"EUR", 1.0}},
		{"multi_key_object_is_literal", `{"a": 1, "b": 2}`, map[string]any{"a": 1.0, "b": 2.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := evaluator.Apply(decode(t, tt.rule), decode(t, data))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestEvaluator_NativeInput(t *testing.T) {
	evaluator := NewEvaluator()

	// Inputs built in Go keep their native types through var.
	result, err := evaluator.Apply(map[string]any{"var": "new_amount"}, map[string]any{"new_amount": 42})
	require.NoError(t, err)
	assert.Equal(t, 42, result)

	result, err = evaluator.Apply(map[string]any{"in": []any{"b", map[string]any{"var": "tags"}}},
		map[string]any{"tags": []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, true, result)
}

func TestEvaluator_Errors(t *testing.T) {
	evaluator := NewEvaluator()

	tests := []struct {
		name     string
		rule     string
		operator string
	}{
		{"unknown_operator", `{"frobnicate": [1]}`, "frobnicate"},
		{"division_by_zero", `{"/": [1, 0]}`, "/"},
		{"modulo_by_zero", `{"%": [1, 0]}`, "%"},
		{"non_numeric_add", `{"+": [1, "abc"]}`, "+"},
		{"incomparable", `{"<": [[1], 2]}`, "<"},
		{"wrong_arity", `{"==": [1]}`, "=="},
		{"bad_regex", `{"regex": ["x", "("]}`, "regex"},
		{"nested_failure", `{"cat": ["a", {"bogus": 1}]}`, "bogus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evaluator.Apply(decode(t, tt.rule), nil)
			require.Error(t, err)

			var evalErr *EvaluationError
			require.True(t, errors.As(err, &evalErr))
			assert.Equal(t, tt.operator, evalErr.Operator)
		})
	}
}

func TestEvaluator_AddOperator(t *testing.T) {
	evaluator := NewEvaluator()
	evaluator.AddOperator("double", eager(func(_ *Evaluator, values []any, _ any) (any, error) {
		n, _ := toNumber(first(values))
		return n * 2, nil
	}))

	result, err := evaluator.Apply(decode(t, `{"double": {"var": "x"}}`), decode(t, `{"x": 21}`))
	require.NoError(t, err)
	assert.Equal(t, 42.0, result)
}

func TestEvaluationError_Message(t *testing.T) {
	err := &EvaluationError{Operator: "/", Message: "operator execution failed", Err: errors.New("division by zero")}
	assert.Equal(t, "evaluation error with operator '/': operator execution failed: division by zero", err.Error())
	assert.EqualError(t, errors.Unwrap(err), "division by zero")

	bare := &EvaluationError{Message: "bad rule"}
	assert.Equal(t, "evaluation error: bad rule", bare.Error())
}

func TestTruthy(t *testing.T) {
	assert.False(t, truthy(nil))
	assert.False(t, truthy(0.0))
	assert.False(t, truthy(""))
	assert.False(t, truthy([]any{}))
	assert.False(t, truthy([]string{}))
	assert.True(t, truthy("0"))
	assert.True(t, truthy(map[string]any{}))
	assert.True(t, truthy(-1))
}
