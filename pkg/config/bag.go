package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Bag is a loosely typed block of declared configuration. Keys may be
// written in camelCase or snake_case; every accessor accepts the camelCase
// name and falls back to the snake_case spelling.
type Bag map[string]any

// Lookup returns the value stored under key, or under CamelToSnake(key) when
// the camelCase key is absent. Nil values count as absent.
func (b Bag) Lookup(key string) (any, bool) {
	if b == nil {
		return nil, false
	}
	if v, ok := b[key]; ok && v != nil {
		return v, true
	}
	if snake := CamelToSnake(key); snake != key {
		if v, ok := b[snake]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Has reports whether key resolves to a value.
func (b Bag) Has(key string) bool {
	_, ok := b.Lookup(key)
	return ok
}

// String returns the value of key rendered as a string. Numbers and booleans
// are formatted; composite values are reported as absent.
func (b Bag) String(key string) (string, bool) {
	v, ok := b.Lookup(key)
	if !ok {
		return "", false
	}
	return Scalar(v)
}

// StringOr returns String(key), or def when the key is absent or empty.
func (b Bag) StringOr(key, def string) string {
	if s, ok := b.String(key); ok && s != "" {
		return s
	}
	return def
}

// Int returns the value of key as an int.
func (b Bag) Int(key string) (int, bool) {
	v, ok := b.Lookup(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	default:
		return 0, false
	}
}

// Bool returns the value of key as a bool.
func (b Bag) Bool(key string) (bool, bool) {
	v, ok := b.Lookup(key)
	if !ok {
		return false, false
	}
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		p, err := strconv.ParseBool(t)
		return p, err == nil
	default:
		return false, false
	}
}

// Strings returns the value of key as a string list. A single scalar is
// returned as a one-element list.
func (b Bag) Strings(key string) ([]string, bool) {
	v, ok := b.Lookup(key)
	if !ok {
		return nil, false
	}
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...), true
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := Scalar(item); ok {
				out = append(out, s)
			}
		}
		return out, true
	default:
		if s, ok := Scalar(v); ok {
			return []string{s}, true
		}
		return nil, false
	}
}

// Map returns the value of key as a nested Bag.
func (b Bag) Map(key string) (Bag, bool) {
	v, ok := b.Lookup(key)
	if !ok {
		return nil, false
	}
	return asBag(v)
}

// Bags returns the value of key as a list of nested Bags. Non-map items are
// dropped.
func (b Bag) Bags(key string) ([]Bag, bool) {
	v, ok := b.Lookup(key)
	if !ok {
		return nil, false
	}
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]Bag, 0, len(list))
	for _, item := range list {
		if m, ok := asBag(item); ok {
			out = append(out, m)
		}
	}
	return out, true
}

// StringMap returns the value of key as a map of scalar strings.
func (b Bag) StringMap(key string) (map[string]string, bool) {
	m, ok := b.Map(key)
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := Scalar(v); ok {
			out[k] = s
		}
	}
	return out, true
}

// Keys returns the bag's keys sorted.
func (b Bag) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func asBag(v any) (Bag, bool) {
	switch t := v.(type) {
	case Bag:
		return t, true
	case map[string]any:
		return Bag(t), true
	case map[any]any:
		out := make(Bag, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// Scalar renders strings, numbers and booleans as text. It reports false
// for composite values.
func Scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int8:
		return strconv.FormatInt(int64(t), 10), true
	case int16:
		return strconv.FormatInt(int64(t), 10), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint:
		return strconv.FormatUint(uint64(t), 10), true
	case uint8:
		return strconv.FormatUint(uint64(t), 10), true
	case uint16:
		return strconv.FormatUint(uint64(t), 10), true
	case uint32:
		return strconv.FormatUint(uint64(t), 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case fmt.Stringer:
		return t.String(), true
	default:
		return "", false
	}
}

// CamelToSnake converts "aaBbCc" to "aa_bb_cc". Every upper-case letter is
// prefixed with an underscore and lowered.
func CamelToSnake(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 4)
	for _, r := range s {
		if unicode.IsUpper(r) {
			sb.WriteByte('_')
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// SnakeToCamel converts "aa_bb_cc" to "aaBbCc".
func SnakeToCamel(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	upper := false
	for i, r := range s {
		if r == '_' && i+1 < len(s) {
			upper = true
			continue
		}
		if upper {
			sb.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// normalizeValue converts decoder-specific map types into Bag recursively.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeValue(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val)
		}
		return out
	default:
		return v
	}
}
