// Package coerce provides tolerant parsing for the loosely formatted
// values NSE returns: locale-formatted numbers, currency prefixes,
// "Cr"/"Lakh" unit suffixes, and a family of placeholder tokens that all
// mean "no value". Absence is a return state, never an error.
package coerce

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// placeholders are tokens NSE uses for missing values.
var placeholders = map[string]struct{}{
	"-":    {},
	"—":    {},
	"":     {},
	"NA":   {},
	"N/A":  {},
	"null": {},
	"None": {},
}

// Number converts a raw value to a float64. The second return value is
// false when the value is absent or unparsable. Numeric types pass
// through unchanged; strings are stripped of thousands separators,
// currency markers and percent signs, and trailing Cr/Lac/Lakh unit
// suffixes scale the result by 1e7 / 1e5.
func Number(raw any) (float64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		return parseString(v)
	default:
		return 0, false
	}
}

func parseString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if _, ok := placeholders[s]; ok {
		return 0, false
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "%", "")
	s = strings.ReplaceAll(s, "₹", "")
	s = strings.ReplaceAll(s, "Rs.", "")
	s = strings.TrimSpace(s)

	mul := 1.0
	if trimmed, ok := trimSuffixFold(s, "cr"); ok {
		mul = 1e7
		s = trimmed
	} else if trimmed, ok := trimLakhSuffix(s); ok {
		mul = 1e5
		s = trimmed
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f * mul, true
}

// trimSuffixFold removes a case-insensitive suffix, allowing an optional
// trailing dot ("Cr", "cr.", "CR").
func trimSuffixFold(s, suffix string) (string, bool) {
	t := strings.TrimSuffix(s, ".")
	if len(t) < len(suffix) {
		return s, false
	}
	tail := t[len(t)-len(suffix):]
	if !strings.EqualFold(tail, suffix) {
		return s, false
	}
	return strings.TrimSpace(t[:len(t)-len(suffix)]), true
}

// trimLakhSuffix removes "Lac"/"Lakh" with optional plural and dot.
func trimLakhSuffix(s string) (string, bool) {
	t := strings.TrimSuffix(s, ".")
	t2 := t
	if strings.EqualFold(t2[max(0, len(t2)-1):], "s") && len(t2) > 1 {
		t2 = t2[:len(t2)-1]
	}
	for _, suffix := range []string{"lakh", "lac"} {
		if len(t2) >= len(suffix) && strings.EqualFold(t2[len(t2)-len(suffix):], suffix) {
			return strings.TrimSpace(t2[:len(t2)-len(suffix)]), true
		}
	}
	return s, false
}

// Int converts a raw value to the nearest integer. Absent propagates.
func Int(raw any) (int64, bool) {
	f, ok := Number(raw)
	if !ok {
		return 0, false
	}
	return int64(math.Round(f)), true
}

// NumberOr returns the coerced value or a default when absent.
func NumberOr(raw any, def float64) float64 {
	if f, ok := Number(raw); ok {
		return f
	}
	return def
}

// IntOr returns the coerced integer or a default when absent.
func IntOr(raw any, def int64) int64 {
	if i, ok := Int(raw); ok {
		return i
	}
	return def
}

// Lookup walks a dotted path through nested maps. It returns false when
// any segment is missing or the intermediate value is not a map.
func Lookup(m map[string]any, path string) (any, bool) {
	var cur any = m
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// LookupOr walks a dotted path and falls back to a default.
func LookupOr(m map[string]any, path string, def any) any {
	if v, ok := Lookup(m, path); ok {
		return v
	}
	return def
}
