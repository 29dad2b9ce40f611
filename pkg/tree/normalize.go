package tree

import (
	"encoding/json"
	"fmt"
	"math"
)

// Normalize converts value into the canonical tree types: map[string]any,
// []any, float64, string, bool and nil. The result shares nothing with value,
// so it survives a JSON round trip unchanged and later Set calls can descend
// into objects it contains.
//
// Common Go types are converted directly; anything else (structs, typed maps
// and slices, pointers) goes through encoding/json. Values JSON cannot
// represent, such as NaN, channels or maps with non-string keys, are an error.
func Normalize(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string, bool:
		return v, nil
	case float64:
		return checkFloat(v)
	case float32:
		return checkFloat(float64(v))
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("normalize number %q: %w", v, err)
		}
		return f, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			n, err := Normalize(item)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			n, err := Normalize(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		return viaJSON(v)
	}
}

func checkFloat(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("normalize: %v has no JSON representation", f)
	}
	return f, nil
}

func viaJSON(value any) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize %T: %w", value, err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("normalize %T: %w", value, err)
	}
	return out, nil
}
