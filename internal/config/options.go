package config

import "strings"

// Options is a loosely-typed option bag decoded from JSON. Accessors are
// lenient: a missing or mistyped value yields the provided default.
type Options map[string]any

// Bool returns the named option as bool, or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the named option as int, or def. JSON numbers arrive as
// float64 and are truncated.
func (o Options) Int(key string, def int) int {
	switch v := o[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

// String returns the named option as string, or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Rune returns the first rune of the named string option, or def.
func (o Options) Rune(key string, def rune) rune {
	s := o.String(key, "")
	if s == "" {
		return def
	}
	return []rune(s)[0]
}

// StringSlice returns the named option as []string, tolerating the
// []any shape produced by encoding/json.
func (o Options) StringSlice(key string) []string {
	switch v := o[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, it := range v {
			if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Any returns the raw value for key, or nil.
func (o Options) Any(key string) any { return o[key] }
