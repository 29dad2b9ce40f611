package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() map[string]any {
	return map[string]any{
		"field1": "value1",
		"nested": map[string]any{
			"field2": "value2",
		},
		"list": []any{
			map[string]any{"amount": 10.0},
			map[string]any{"amount": 20.0},
		},
	}
}

func TestParsePath(t *testing.T) {
	p, err := ParsePath("data.nested.field2")
	require.NoError(t, err)
	assert.Equal(t, Path{"data", "nested", "field2"}, p)
	assert.Equal(t, "data", p.Root())
	assert.Equal(t, Path{"nested", "field2"}, p.Rest())
	assert.Equal(t, "data.nested.field2", p.String())

	for _, bad := range []string{"", "data..x", ".data", "data."} {
		_, err := ParsePath(bad)
		assert.ErrorIs(t, err, ErrEmptyPath, bad)
	}
}

func TestGet(t *testing.T) {
	data := sample()

	tests := []struct {
		path  string
		want  any
		found bool
	}{
		{"field1", "value1", true},
		{"nested.field2", "value2", true},
		{"list.1.amount", 20.0, true},
		{"list.5.amount", nil, false},
		{"list.x", nil, false},
		{"missing", nil, false},
		{"field1.deeper", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			p, err := ParsePath(tt.path)
			require.NoError(t, err)
			got, found := Get(data, p)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}

	got, found := Get(data, nil)
	assert.True(t, found)
	assert.Equal(t, data, got)
}

func TestEnsureObject(t *testing.T) {
	obj, coerced, err := EnsureObject(nil, Strict)
	require.NoError(t, err)
	assert.False(t, coerced)
	assert.Empty(t, obj)

	existing := map[string]any{"a": 1.0}
	obj, coerced, err = EnsureObject(existing, CoerceObjects)
	require.NoError(t, err)
	assert.False(t, coerced)
	assert.Equal(t, existing, obj)

	obj, coerced, err = EnsureObject("scalar", CoerceObjects)
	require.NoError(t, err)
	assert.True(t, coerced)
	assert.Empty(t, obj)

	_, _, err = EnsureObject("scalar", Strict)
	assert.ErrorIs(t, err, ErrNotObject)
}

func TestSet_ExistingField(t *testing.T) {
	root, old, err := Set(sample(), Path{"nested", "field2"}, "updated", CoerceObjects)
	require.NoError(t, err)
	assert.Equal(t, "value2", old)

	got, _ := Get(root, Path{"nested", "field2"})
	assert.Equal(t, "updated", got)
}

func TestSet_CreatesIntermediates(t *testing.T) {
	root, old, err := Set(nil, Path{"a", "b", "c"}, 42.0, Strict)
	require.NoError(t, err)
	assert.Nil(t, old)
	assert.Equal(t, map[string]any{"a": map[string]any{"b": map[string]any{"c": 42.0}}}, root)
}

func TestSet_CoercesNonObjects(t *testing.T) {
	root, old, err := Set(sample(), Path{"field1", "inner"}, true, CoerceObjects)
	require.NoError(t, err)
	assert.Nil(t, old)

	got, found := Get(root, Path{"field1"})
	require.True(t, found)
	assert.Equal(t, map[string]any{"inner": true}, got)

	root, _, err = Set("not an object", Path{"x"}, 1.0, CoerceObjects)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 1.0}, root)
}

func TestSet_StrictRefusesCoercion(t *testing.T) {
	data := sample()
	root, _, err := Set(data, Path{"field1", "inner"}, true, Strict)
	assert.ErrorIs(t, err, ErrNotObject)
	assert.Contains(t, err.Error(), "at field1")
	assert.Equal(t, "value1", data["field1"])
	assert.Equal(t, data, root)

	_, _, err = Set([]any{1.0}, Path{"x"}, 1.0, Strict)
	assert.ErrorIs(t, err, ErrNotObject)
}

func TestSet_EmptyPath(t *testing.T) {
	_, _, err := Set(sample(), nil, 1.0, CoerceObjects)
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestClone(t *testing.T) {
	original := sample()
	clone := Clone(original).(map[string]any)

	clone["nested"].(map[string]any)["field2"] = "changed"
	clone["list"].([]any)[0].(map[string]any)["amount"] = 99.0

	assert.Equal(t, "value2", original["nested"].(map[string]any)["field2"])
	assert.Equal(t, 10.0, original["list"].([]any)[0].(map[string]any)["amount"])
	assert.Equal(t, "scalar", Clone("scalar"))
	assert.Nil(t, Clone(nil))
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(map[string]any{}))
	assert.True(t, IsEmpty([]any{}))
	assert.False(t, IsEmpty(sample()))
	assert.False(t, IsEmpty(0.0))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, CoerceObjects, p)

	p, err = ParsePolicy("STRICT")
	require.NoError(t, err)
	assert.Equal(t, Strict, p)
	assert.Equal(t, "strict", p.String())

	_, err = ParsePolicy("lenient")
	assert.Error(t, err)
}
