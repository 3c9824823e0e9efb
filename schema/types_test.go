package schema

import (
	"errors"
	"testing"
	"time"
)

func TestNumberConverter(t *testing.T) {
	c := NumberConverter{}

	t.Run("numeric input passes through", func(t *testing.T) {
		v, err := c.Coerce(3.25)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != 3.25 {
			t.Errorf("expected 3.25, got %v", v)
		}

		v, _ = c.Coerce(7)
		if v != 7.0 {
			t.Errorf("expected 7, got %v", v)
		}
	})

	t.Run("numeric strings are parsed", func(t *testing.T) {
		v, err := c.Coerce("1,234.5")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != 1234.5 {
			t.Errorf("expected 1234.5, got %v", v)
		}
	})

	t.Run("non-numeric text coerces to nil", func(t *testing.T) {
		v, err := c.Coerce("twelve")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != nil {
			t.Errorf("expected nil, got %v", v)
		}
	})

	t.Run("nil passes through", func(t *testing.T) {
		v, err := c.Coerce(nil)
		if err != nil || v != nil {
			t.Errorf("expected nil, nil; got %v, %v", v, err)
		}
	})

	t.Run("other types coerce to nil", func(t *testing.T) {
		v, err := c.Coerce([]int{1})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != nil {
			t.Errorf("expected nil, got %v", v)
		}
	})
}

func TestIntegerConverter(t *testing.T) {
	c := IntegerConverter{}

	t.Run("rounds fractional input", func(t *testing.T) {
		v, err := c.Coerce(2.6)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != int64(3) {
			t.Errorf("expected 3, got %v", v)
		}
	})

	t.Run("parses numeric strings", func(t *testing.T) {
		v, _ := c.Coerce("42")
		if v != int64(42) {
			t.Errorf("expected 42, got %v", v)
		}
	})

	t.Run("non-numeric text coerces to nil", func(t *testing.T) {
		v, err := c.Coerce("many")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != nil {
			t.Errorf("expected nil, got %v", v)
		}
	})
}

func TestBooleanConverter(t *testing.T) {
	c := BooleanConverter{}

	cases := []struct {
		in   interface{}
		want interface{}
	}{
		{nil, nil},
		{true, true},
		{false, false},
		{0, false},
		{1, true},
		{"", false},
		{"no", true},
		{[]string{}, true},
	}
	for _, tc := range cases {
		v, err := c.Coerce(tc.in)
		if err != nil {
			t.Fatalf("unexpected error for %v: %v", tc.in, err)
		}
		if v != tc.want {
			t.Errorf("Coerce(%v) = %v, want %v", tc.in, v, tc.want)
		}
	}
}

func TestStringConverter(t *testing.T) {
	t.Run("trims when configured", func(t *testing.T) {
		v, _ := StringConverter{Trim: true}.Coerce("  hey  ")
		if v != "hey" {
			t.Errorf("expected %q, got %q", "hey", v)
		}
	})

	t.Run("leaves whitespace without trim", func(t *testing.T) {
		v, _ := StringConverter{}.Coerce("  hey  ")
		if v != "  hey  " {
			t.Errorf("expected padded string, got %q", v)
		}
	})
}

func TestDateConverter(t *testing.T) {
	c := DateConverter{}

	t.Run("parses ISO date strings", func(t *testing.T) {
		v, err := c.Coerce("2013-03-29")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		d := v.(time.Time)
		if d.Year() != 2013 || d.Month() != time.March || d.Day() != 29 {
			t.Errorf("unexpected date: %v", d)
		}
	})

	t.Run("numeric epoch becomes a date", func(t *testing.T) {
		v, err := c.Coerce(float64(86400000)) // 1970-01-02
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		d := v.(time.Time)
		if d.Day() != 2 {
			t.Errorf("expected day 2, got %v", d)
		}
	})

	t.Run("unconvertible value is a type mismatch", func(t *testing.T) {
		_, err := c.Coerce(map[string]string{})
		if !IsTypeMismatch(err) {
			t.Errorf("expected type mismatch, got %v", err)
		}
	})

	t.Run("invalid string is a type mismatch", func(t *testing.T) {
		_, err := c.Coerce("not a date")
		if !IsTypeMismatch(err) {
			t.Errorf("expected type mismatch, got %v", err)
		}
	})
}

func TestDateTimeConverter(t *testing.T) {
	c := DateTimeConverter{}

	t.Run("parses RFC3339", func(t *testing.T) {
		v, err := c.Coerce("2013-03-29T09:15:00Z")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		d := v.(time.Time)
		if d.Hour() != 9 || d.Minute() != 15 {
			t.Errorf("unexpected time: %v", d)
		}
	})

	t.Run("accepts reduced forms", func(t *testing.T) {
		if _, err := c.Coerce("2013-03-29 09:15:00"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if _, err := c.Coerce("2013-03-29T09:15"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("serializes to RFC3339", func(t *testing.T) {
		ts := time.Date(2013, 3, 29, 9, 15, 0, 0, time.UTC)
		if got := c.Serialize(ts); got != "2013-03-29T09:15:00Z" {
			t.Errorf("unexpected serialization: %v", got)
		}
	})
}

func TestTypeRegistry(t *testing.T) {
	t.Run("built-ins are registered", func(t *testing.T) {
		r := NewTypeRegistry()
		for _, name := range []string{"identity", "string", "integer", "number", "boolean", "date", "datetime"} {
			if _, ok := r.Get(name); !ok {
				t.Errorf("built-in type %s missing", name)
			}
		}
	})

	t.Run("duplicate registration fails", func(t *testing.T) {
		r := NewTypeRegistry()
		err := r.Register("string", IdentityConverter{})
		if !errors.Is(err, ErrDuplicateType) {
			t.Errorf("expected ErrDuplicateType, got %v", err)
		}
	})

	t.Run("custom types can be registered", func(t *testing.T) {
		r := NewTypeRegistry()
		if err := r.Register("upper", IdentityConverter{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := r.Get("upper"); !ok {
			t.Error("custom type not found after registration")
		}
	})
}
