package domain

import "maps"

// Values maps field names to scalar values: string, float64 or bool.
type Values map[string]any

// Clone returns a shallow copy; scalars make it a full copy.
func (v Values) Clone() Values {
	if v == nil {
		return Values{}
	}
	return maps.Clone(v)
}

// Has reports whether name holds a non-empty value.
func (v Values) Has(name string) bool {
	val, ok := v[name]
	return ok && !IsEmpty(val)
}

// IsEmpty reports whether a value counts as missing: absent, nil or "".
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// NormalizeValue folds decoder-specific numeric types into float64 so that
// values from JSON, YAML and user input compare under StrictEqual.
// Non-scalar values are returned unchanged.
func NormalizeValue(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}

func normalizeMap(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = NormalizeValue(v)
	}
	return out
}

// StrictEqual compares two scalars by dynamic type and value with no
// coercion: "true" differs from true and "1" differs from 1.
func StrictEqual(a, b any) bool {
	a, b = NormalizeValue(a), NormalizeValue(b)
	switch av := a.(type) {
	case nil:
		return b == nil
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return false
	}
}
