package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		kind Kind
	}{
		{"0", KindInt},
		{"12345", KindInt},
		{"-1", KindInt},
		{"007", KindString},
		{"-0", KindString},
		{"0.5000", KindFloat},
		{"-1.25", KindFloat},
		{"1.", KindString},
		{"1e5", KindString},
		{"a|b", KindList},
		{"", KindString},
		{"hello", KindString},
		{"99999999999999999999", KindString},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v := ParseValue(tt.raw)
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.raw, v.String())
		})
	}
}

func TestValueAccessors(t *testing.T) {
	n, ok := ParseValue("42").Int()
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)

	_, ok = ParseValue("x").Int()
	assert.False(t, ok)
	assert.Equal(t, int64(7), ParseValue("x").IntOr(7))

	f, ok := ParseValue("0.25").Float()
	assert.True(t, ok)
	assert.InDelta(t, 0.25, f, 1e-9)

	assert.True(t, ParseValue("1").Bool())
	assert.False(t, ParseValue("0").Bool())

	assert.True(t, StringValue("x").IsText())
	assert.True(t, ListValue("a", "b").IsText())
	assert.False(t, IntValue(1).IsText())
	assert.Equal(t, "a|b", ListValue("a", "b").String())
	assert.Nil(t, StringValue("").List())
}

func TestValueEqual(t *testing.T) {
	assert.True(t, IntValue(5).Equal(ParseValue("5")))
	assert.True(t, FloatValue(1).Equal(IntValue(1)))
	assert.True(t, StringValue("abc").Equal(ParseValue("abc")))
	assert.False(t, StringValue("abc").Equal(StringValue("ABC")))
	assert.False(t, IntValue(5).Equal(StringValue("five")))
}

func TestRecordFingerprint(t *testing.T) {
	a := Record{"x": IntValue(1), "y": StringValue("two")}
	b := Record{"y": StringValue("two"), "x": ParseValue("1")}
	c := Record{"x": IntValue(1), "y": StringValue("three")}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())

	clone := a.Clone()
	clone["x"] = IntValue(2)
	assert.Equal(t, int64(1), a.Int("x", 0))
	assert.Equal(t, []string{"x", "y"}, a.Keys())
}
