// Package schema provides the type and descriptor metadata for transis model
// classes: named attribute converters, attribute declarations, and
// association descriptors with copy-on-write inheritance between classes.
package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Converter coerces raw payload values into an attribute's typed
// representation and serializes typed values back into JSON-compatible ones.
type Converter interface {
	// Coerce converts a raw input value to the attribute type.
	// A nil input always passes through as nil.
	Coerce(raw interface{}) (interface{}, error)

	// Serialize converts a typed value to a JSON-compatible value.
	Serialize(value interface{}) interface{}
}

// IdentityConverter passes values through unchanged
type IdentityConverter struct{}

// Coerce returns the raw value unchanged
func (IdentityConverter) Coerce(raw interface{}) (interface{}, error) { return raw, nil }

// Serialize returns the value unchanged
func (IdentityConverter) Serialize(value interface{}) interface{} { return value }

// StringConverter converts values to strings
type StringConverter struct {
	// Trim removes surrounding whitespace from string inputs
	Trim bool
}

// Coerce converts the raw value to a string
func (c StringConverter) Coerce(raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		s = fmt.Sprintf("%v", raw)
	}
	if c.Trim {
		s = strings.TrimSpace(s)
	}
	return s, nil
}

// Serialize returns the string value unchanged
func (StringConverter) Serialize(value interface{}) interface{} { return value }

// NumberConverter converts values to float64
type NumberConverter struct{}

// Coerce converts the raw value to a float64.
// Numeric input passes through; strings are parsed with ParseNumber and
// non-numeric text coerces to nil; any other input coerces to nil.
func (NumberConverter) Coerce(raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}
	if f, ok := toFloat(raw); ok {
		return f, nil
	}
	if s, ok := raw.(string); ok {
		if f, ok := ParseNumber(s); ok {
			return f, nil
		}
		return nil, nil
	}
	return nil, nil
}

// Serialize returns the numeric value unchanged
func (NumberConverter) Serialize(value interface{}) interface{} { return value }

// IntegerConverter converts values to rounded int64
type IntegerConverter struct{}

// Coerce converts the raw value to an int64, rounding fractional input
func (IntegerConverter) Coerce(raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}
	if f, ok := toFloat(raw); ok {
		return int64(math.Round(f)), nil
	}
	if s, ok := raw.(string); ok {
		if f, ok := ParseNumber(s); ok {
			return int64(math.Round(f)), nil
		}
		return nil, nil
	}
	return nil, nil
}

// Serialize returns the integer value unchanged
func (IntegerConverter) Serialize(value interface{}) interface{} { return value }

// BooleanConverter converts values to booleans via truthiness
type BooleanConverter struct{}

// Coerce converts the raw value to a bool. Nil passes through; every other
// value coerces by truthiness: zero numbers, empty strings and false are
// false, everything else is true.
func (BooleanConverter) Coerce(raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		return v != "", nil
	default:
		if f, ok := toFloat(raw); ok {
			return f != 0, nil
		}
		return true, nil
	}
}

// Serialize returns the boolean value unchanged
func (BooleanConverter) Serialize(value interface{}) interface{} { return value }

// DateConverter converts values to date-only time.Time values (midnight UTC)
type DateConverter struct{}

// Coerce converts the raw value to a date. Nil and time.Time pass through
// (truncated to the day), numeric input is treated as a millisecond epoch,
// strings are parsed with ParseDate, and anything else is a type mismatch.
func (DateConverter) Coerce(raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case time.Time:
		return truncateDay(v), nil
	case string:
		t, err := ParseDate(v)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		if f, ok := toFloat(raw); ok {
			return truncateDay(fromEpochMillis(f)), nil
		}
		return nil, fmt.Errorf("%w: cannot coerce %v (%T) to a date", ErrTypeMismatch, raw, raw)
	}
}

// Serialize formats the date as a date-only ISO 8601 string
func (DateConverter) Serialize(value interface{}) interface{} {
	if t, ok := value.(time.Time); ok {
		return t.Format("2006-01-02")
	}
	return value
}

// DateTimeConverter converts values to full time.Time values
type DateTimeConverter struct{}

// Coerce converts the raw value to a timestamp. Nil and time.Time pass
// through, numeric input is treated as a millisecond epoch, strings are
// parsed with ParseDateTime, and anything else is a type mismatch.
func (DateTimeConverter) Coerce(raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		t, err := ParseDateTime(v)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		if f, ok := toFloat(raw); ok {
			return fromEpochMillis(f), nil
		}
		return nil, fmt.Errorf("%w: cannot coerce %v (%T) to a datetime", ErrTypeMismatch, raw, raw)
	}
}

// Serialize formats the timestamp as a full ISO 8601 string
func (DateTimeConverter) Serialize(value interface{}) interface{} {
	if t, ok := value.(time.Time); ok {
		return t.UTC().Format(time.RFC3339)
	}
	return value
}

// ParseNumber parses a numeric string, tolerating surrounding whitespace and
// thousands separators. The second return value is false for non-numeric text.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseDate parses a date-only ISO 8601 string (2006-01-02)
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date string %q", ErrTypeMismatch, s)
	}
	return t, nil
}

// datetimeFormats are tried in order when parsing datetime strings
var datetimeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDateTime parses a full ISO 8601 timestamp string, accepting a few
// common reduced forms (missing zone, missing seconds, date only)
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, format := range datetimeFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid datetime string %q", ErrTypeMismatch, s)
}

// toFloat converts any numeric Go value to a float64
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// fromEpochMillis converts a millisecond epoch to a UTC time
func fromEpochMillis(ms float64) time.Time {
	return time.UnixMilli(int64(ms)).UTC()
}

// truncateDay truncates a time to midnight UTC
func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
