package query

import (
	"strconv"
	"strings"
)

// Kind identifies the type carried by a Value.
type Kind uint8

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Value is a typed property value.
//
// The unescaped wire text is always kept, so String never loses information
// even for values that were classified as numbers.
type Value struct {
	kind Kind
	raw  string
	i    int64
	f    float64
}

// StringValue returns a text value.
func StringValue(s string) Value {
	return Value{kind: KindString, raw: s}
}

// IntValue returns an integer value.
func IntValue(n int64) Value {
	return Value{kind: KindInt, raw: strconv.FormatInt(n, 10), i: n, f: float64(n)}
}

// FloatValue returns a floating point value.
func FloatValue(f float64) Value {
	return Value{kind: KindFloat, raw: strconv.FormatFloat(f, 'f', -1, 64), f: f}
}

// ListValue returns a multi-valued property. On the wire the items are
// joined by ListSeparator inside a single escaped value.
func ListValue(items ...string) Value {
	return Value{kind: KindList, raw: strings.Join(items, ListSeparator)}
}

// ParseValue classifies unescaped wire text.
//
// Canonical decimal integers become KindInt, decimals with a single dot
// become KindFloat, text containing ListSeparator becomes KindList, anything
// else is KindString.
func ParseValue(raw string) Value {
	if isCanonicalInt(raw) {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return Value{kind: KindInt, raw: raw, i: n, f: float64(n)}
		}
	}
	if isDecimal(raw) {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return Value{kind: KindFloat, raw: raw, f: f}
		}
	}
	if strings.Contains(raw, ListSeparator) {
		return Value{kind: KindList, raw: raw}
	}
	return Value{kind: KindString, raw: raw}
}

func isCanonicalInt(s string) bool {
	digits := strings.TrimPrefix(s, "-")
	if digits == "" || (len(digits) > 1 && digits[0] == '0') || s == "-0" {
		return false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return false
		}
	}
	return true
}

func isDecimal(s string) bool {
	whole, frac, ok := strings.Cut(strings.TrimPrefix(s, "-"), ".")
	if !ok || whole == "" || frac == "" {
		return false
	}
	for _, part := range [2]string{whole, frac} {
		for i := 0; i < len(part); i++ {
			if part[i] < '0' || part[i] > '9' {
				return false
			}
		}
	}
	return true
}

// Kind returns the value's kind.
func (v Value) Kind() Kind {
	return v.kind
}

// String returns the unescaped text of the value.
func (v Value) String() string {
	return v.raw
}

// IsText reports whether the value is text (string or list).
func (v Value) IsText() bool {
	return v.kind == KindString || v.kind == KindList
}

// Int returns the integer value. ok is false for non-integer kinds.
func (v Value) Int() (n int64, ok bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// IntOr returns the integer value or def.
func (v Value) IntOr(def int64) int64 {
	if n, ok := v.Int(); ok {
		return n
	}
	return def
}

// Float returns the numeric value for integer and float kinds.
func (v Value) Float() (f float64, ok bool) {
	if v.kind != KindInt && v.kind != KindFloat {
		return 0, false
	}
	return v.f, true
}

// Bool interprets "1" as true. Everything else is false.
func (v Value) Bool() bool {
	return v.raw == "1"
}

// List returns the items of a multi-valued property. Single values are
// returned as a one element slice; the empty value yields nil.
func (v Value) List() []string {
	if v.raw == "" {
		return nil
	}
	return strings.Split(v.raw, ListSeparator)
}

// Equal compares two values. Numbers compare numerically, everything else
// by text.
func (v Value) Equal(o Value) bool {
	if v.kind == KindInt && o.kind == KindInt {
		return v.i == o.i
	}
	vf, vok := v.Float()
	of, ook := o.Float()
	if vok && ook {
		return vf == of
	}
	return v.raw == o.raw
}
