package expression

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileRegex_Caches(t *testing.T) {
	evaluator := NewEvaluator()

	re1, err := evaluator.compileRegex(`^[A-Z]{2}\d+$`)
	require.NoError(t, err)
	re2, err := evaluator.compileRegex(`^[A-Z]{2}\d+$`)
	require.NoError(t, err)

	assert.Same(t, re1, re2)
	assert.Equal(t, 1, evaluator.regexes.Size())
	assert.Equal(t, int64(1), evaluator.regexes.Stats().Hits())
}

func TestCompileRegex_Bounded(t *testing.T) {
	evaluator := NewEvaluator(WithRegexCacheSize(2))

	for i := 0; i < 5; i++ {
		_, err := evaluator.compileRegex(fmt.Sprintf("^p%d$", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, evaluator.regexes.Size())
}

func TestCompileRegex_InvalidNotCached(t *testing.T) {
	evaluator := NewEvaluator()

	_, err := evaluator.compileRegex("(unclosed")
	require.Error(t, err)
	assert.Equal(t, 0, evaluator.regexes.Size())

	_, err = evaluator.compileRegex("")
	require.Error(t, err)
}

func TestValidateRegexComplexity(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		wantErr bool
	}{
		{"simple", `^DE\d{20}$`, false},
		{"too_long", strings.Repeat("a", 501), true},
		{"nested_quantifier", `(a+)+b`, true},
		{"nested_wildcards", `x(.*)*y`, true},
		{"large_repeat", `a{1000}`, true},
		{"larger_repeat", `a{25000,}`, true},
		{"small_repeat", `a{999}`, false},
		{"many_groups", strings.Repeat("(a)", 21), true},
		{"deep_nesting", `((((((a))))))`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRegexComplexity(tt.pattern)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCompileRegex_Concurrent(t *testing.T) {
	evaluator := NewEvaluator()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				result, err := evaluator.Apply(
					map[string]any{"regex": []any{fmt.Sprintf("v%d", i%5), fmt.Sprintf("^v%d$", i%5)}}, nil)
				assert.NoError(t, err)
				assert.Equal(t, true, result)
			}
		}()
	}
	wg.Wait()
}
