package storage

import (
	"maps"
	"math"
	"slices"
	"time"
)

// Fields holds the data of a document. Values are limited to string, bool,
// int64, float64, time.Time and []string; Normalize coerces the common Go
// variants of those into canonical form. Writes may additionally carry
// Increment transforms.
type Fields map[string]any

// Increment is a write transform: the stored numeric value of the field
// is increased by the given delta, treating a missing field as zero.
type Increment int64

// Normalize returns a copy of f with every value converted to its canonical type.
func (f Fields) Normalize() (Fields, error) {
	out := make(Fields, len(f))
	for k, v := range f {
		nv, err := normalizeValue(v)
		if err != nil {
			return nil, InvalidFieldValueError(k, v)
		}
		out[k] = nv
	}
	return out, nil
}

func normalizeValue(v any) (any, error) {
	switch t := v.(type) {
	case string, bool, int64, float64, Increment:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case float32:
		return float64(t), nil
	case time.Time:
		return t.UTC(), nil
	case []string:
		return slices.Clone(t), nil
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, ErrInvalidFieldValue
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, ErrInvalidFieldValue
	}
}

// Clone returns a copy of f. List values are copied too.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := maps.Clone(f)
	for k, v := range out {
		if list, ok := v.([]string); ok {
			out[k] = slices.Clone(list)
		}
	}
	return out
}

// Merge applies update on top of f and returns the result. Increment values
// are resolved against the values in f. f is not modified.
func (f Fields) Merge(update Fields) Fields {
	out := maps.Clone(f)
	if out == nil {
		out = Fields{}
	}

	for k, v := range update {
		if inc, ok := v.(Increment); ok {
			current, _ := out.Int(k)
			out[k] = current + int64(inc)
			continue
		}
		out[k] = v
	}
	return out
}

// Has reports whether the field is present, even with a zero value.
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// String returns the string value of the field, or "" when absent or not a string.
func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// Bool returns the boolean value of the field, or false when absent or not a boolean.
func (f Fields) Bool(key string) bool {
	b, _ := f[key].(bool)
	return b
}

// Int returns the integer value of the field. The second value is false when the
// field is absent or not a whole number.
func (f Fields) Int(key string) (int64, bool) {
	switch t := f[key].(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int64(t), true
	default:
		return 0, false
	}
}

// Time returns the timestamp value of the field, or the zero time.
func (f Fields) Time(key string) time.Time {
	t, _ := f[key].(time.Time)
	return t
}

// Strings returns the string list value of the field, or nil.
func (f Fields) Strings(key string) []string {
	switch t := f[key].(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
