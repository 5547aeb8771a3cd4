// Package jsonvalue provides a tagged view over decoded JSON documents and a
// deterministic depth-first walk shared by the rule checkers.
package jsonvalue

import (
	"encoding/json"
	"sort"
)

// Kind is the JSON type of a decoded value.
type Kind int

// JSON kinds.
const (
	Invalid Kind = iota
	Null
	Object
	Array
	String
	Number
	Bool
)

var kindNames = [...]string{
	Invalid: "invalid",
	Null:    "null",
	Object:  "object",
	Array:   "array",
	String:  "string",
	Number:  "number",
	Bool:    "boolean",
}

// String returns the JSON name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[Invalid]
}

// KindOf classifies a value produced by a JSON decoder into any.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return Null
	case map[string]any:
		return Object
	case []any:
		return Array
	case string:
		return String
	case bool:
		return Bool
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return Number
	default:
		return Invalid
	}
}

// AsObject returns v as a JSON object.
func AsObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// AsArray returns v as a JSON array.
func AsArray(v any) ([]any, bool) {
	a, ok := v.([]any)
	return a, ok
}

// AsString returns v as a JSON string.
func AsString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// Present reports whether v carries a value: null, "", {} and [] are absent.
func Present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	default:
		return true
	}
}

// Field reports whether obj has a present value under key.
func Field(obj map[string]any, key string) (any, bool) {
	v, ok := obj[key]
	if !ok || !Present(v) {
		return nil, false
	}
	return v, true
}

// Objects returns the object elements of v. An array yields its object
// items; a single object yields itself; anything else yields nothing.
// Indexes are those of the source array.
func Objects(v any) []Indexed {
	switch t := v.(type) {
	case map[string]any:
		return []Indexed{{Index: -1, Object: t}}
	case []any:
		out := make([]Indexed, 0, len(t))
		for i, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, Indexed{Index: i, Object: m})
			}
		}
		return out
	default:
		return nil
	}
}

// Indexed is an object found at Index of an array, or Index -1 when the
// object was not inside an array.
type Indexed struct {
	Index  int
	Object map[string]any
}

// Path returns the element location given the location of its container.
func (ix Indexed) Path(base string) string {
	if ix.Index < 0 {
		return base
	}
	return AppendIndex(base, ix.Index)
}

// SortedKeys returns the keys of obj in lexical order.
func SortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
