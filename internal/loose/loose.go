// Package loose reads values out of schema-less JSON documents decoded into
// map[string]any. Nothing here panics or errors on a wrong type; accessors
// report absence instead.
package loose

import (
	"encoding/json/v2"
	"math"
	"strconv"
	"strings"
)

// Map returns v as an object, or nil.
func Map(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// Slice returns v as an array, or nil.
func Slice(v any) []any {
	s, _ := v.([]any)
	return s
}

// Maps returns the object elements of the array v, skipping anything else.
func Maps(v any) []map[string]any {
	items := Slice(v)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// String returns m[key] if it is a string, else "".
func String(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// Float coerces JSON numbers and numeric strings. NaN and infinities are rejected.
func Float(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Int coerces integral JSON numbers and base-10 integer strings.
func Int(v any) (int, bool) {
	switch x := v.(type) {
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n, err == nil
	case int:
		return x, true
	}
	f, ok := Float(v)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// Truthy reports whether v would count as set: not null, false, zero,
// an empty string, or an empty collection.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case int:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

// Stringify renders a scalar for use as a text value. Integral numbers lose
// their fraction, null becomes "", and composite values are JSON-encoded.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	default:
		b, err := json.Marshal(x, json.Deterministic(true))
		if err != nil {
			return ""
		}
		return string(b)
	}
}
