package loose

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloat(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   float64
		wantOK bool
	}{
		{"json number", 199.5, 199.5, true},
		{"numeric string", " 349.00 ", 349, true},
		{"int", 12, 12, true},
		{"empty string", "", 0, false},
		{"word", "free", 0, false},
		{"nan string", "NaN", 0, false},
		{"inf", math.Inf(1), 0, false},
		{"null", nil, 0, false},
		{"bool", true, 0, false},
		{"object", map[string]any{"value": 1.0}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Float(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInt(t *testing.T) {
	tests := []struct {
		in     any
		want   int
		wantOK bool
	}{
		{"12", 12, true},
		{" 3 ", 3, true},
		{"1.5", 0, false},
		{"", 0, false},
		{7.0, 7, true},
		{7.5, 0, false},
		{nil, 0, false},
	}

	for _, tt := range tests {
		got, ok := Int(tt.in)
		assert.Equal(t, tt.wantOK, ok, "Int(%#v)", tt.in)
		assert.Equal(t, tt.want, got, "Int(%#v)", tt.in)
	}
}

func TestTruthy(t *testing.T) {
	for _, v := range []any{nil, false, "", 0.0, []any{}, map[string]any{}} {
		assert.False(t, Truthy(v), "%#v", v)
	}
	for _, v := range []any{true, "x", 0.5, []any{1.0}, map[string]any{"a": 1.0}} {
		assert.True(t, Truthy(v), "%#v", v)
	}
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "Красный", Stringify("Красный"))
	assert.Equal(t, "40", Stringify(40.0))
	assert.Equal(t, "0.5", Stringify(0.5))
	assert.Equal(t, "true", Stringify(true))
	assert.Equal(t, `["a","b"]`, Stringify([]any{"a", "b"}))
	assert.Equal(t, `{"a":1,"b":2}`, Stringify(map[string]any{"b": 2.0, "a": 1.0}))
}

func TestAccessorsTolerateWrongTypes(t *testing.T) {
	doc := map[string]any{
		"name":     42.0,
		"category": "not an object",
		"labels":   []any{map[string]any{"title": "Red"}, "junk", nil},
	}

	assert.Equal(t, "", String(doc, "name"))
	assert.Nil(t, Map(doc["category"]))
	assert.Nil(t, Slice(doc["missing"]))
	assert.Len(t, Maps(doc["labels"]), 1)
	assert.Empty(t, Maps(doc["category"]))
	assert.Equal(t, "", String(nil, "name"))
}
