package frame

import (
	"math"
	"strconv"
)

// Value is a single nullable cell. The zero Value is a null string.
type Value struct {
	kind  Kind
	valid bool
	i     int64
	f     float64
	b     bool
	s     string
}

func IntValue(v int64) Value      { return Value{kind: KindInt, valid: true, i: v} }
func DoubleValue(v float64) Value { return Value{kind: KindDouble, valid: true, f: v} }
func BoolValue(v bool) Value      { return Value{kind: KindBool, valid: true, b: v} }
func StringValue(v string) Value  { return Value{kind: KindString, valid: true, s: v} }

// Null returns the null value of the given kind.
func Null(k Kind) Value { return Value{kind: k} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return !v.valid }

// Int returns the integer payload; zero for other kinds.
func (v Value) Int() int64 { return v.i }

// Bool returns the boolean payload; false for other kinds.
func (v Value) Bool() bool { return v.b }

// Str returns the string payload; empty for other kinds.
func (v Value) Str() string { return v.s }

// Float returns the value as float64 for numeric kinds. ok is false for
// nulls and non-numeric kinds.
func (v Value) Float() (f float64, ok bool) {
	if !v.valid {
		return 0, false
	}
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindDouble:
		return v.f, true
	}
	return 0, false
}

// Text renders the value literally; nulls render as "null".
func (v Value) Text() string {
	if !v.valid {
		return "null"
	}
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindDouble:
		return FormatFloat(v.f)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.s
	}
}

func (v Value) String() string { return v.Text() }

// Equal compares kind, nullness and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind || v.valid != o.valid {
		return false
	}
	if !v.valid {
		return true
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindDouble:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindBool:
		return v.b == o.b
	default:
		return v.s == o.s
	}
}

// FormatFloat renders doubles the way summaries print them: shortest
// round-trippable form, with a trailing ".0" on integral values.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	for _, r := range s {
		if r == '.' || r == 'e' || r == 'E' {
			return s
		}
	}
	return s + ".0"
}
