package models

import (
	"reflect"
	"strings"
)

// Record is the application or invoice data that criteria are matched against and actions consume.
type Record map[string]any

// Lookup returns the value stored under field. A literal key wins; otherwise a dotted
// field walks nested maps ("applicant.email").
func (r Record) Lookup(field string) (any, bool) {
	if value, ok := r[field]; ok {
		return value, true
	}

	if !strings.Contains(field, ".") {
		return nil, false
	}

	var current any = map[string]any(r)

	for _, part := range strings.Split(field, ".") {
		switch node := current.(type) {
		case map[string]any:
			value, ok := node[part]
			if !ok {
				return nil, false
			}

			current = value
		case Record:
			value, ok := node[part]
			if !ok {
				return nil, false
			}

			current = value
		default:
			return nil, false
		}
	}

	return current, true
}

// String returns the field as a string when it holds one.
func (r Record) String(field string) (string, bool) {
	value, ok := r.Lookup(field)
	if !ok {
		return "", false
	}

	s, ok := value.(string)

	return s, ok
}

// IsBlank reports whether a value counts as absent for required-field checks:
// nil, a whitespace-only string, or an empty slice or map.
func IsBlank(value any) bool {
	if value == nil {
		return true
	}

	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
