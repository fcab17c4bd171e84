package coerce

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumber_Placeholders(t *testing.T) {
	for _, token := range []string{"-", "—", "", "NA", "N/A", "null", "None", "  NA  "} {
		_, ok := Number(token)
		assert.False(t, ok, "placeholder %q should be absent", token)
	}
}

func TestNumber_Formats(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"plain float", 12.5, 12.5},
		{"int", 42, 42.0},
		{"json number", json.Number("3.14"), 3.14},
		{"thousands separators", "1,234.50", 1234.5},
		{"currency prefix", "₹ 1,234.50", 1234.5},
		{"rs prefix", "Rs. 99.5", 99.5},
		{"percent", "12.5%", 12.5},
		{"crore suffix", "12.3 Cr", 123000000.0},
		{"crore with dot", "2 Cr.", 20000000.0},
		{"crore lowercase", "1.5cr", 15000000.0},
		{"lakh suffix", "5 Lakh", 500000.0},
		{"lakhs plural", "2 Lakhs", 200000.0},
		{"lac suffix", "3 Lac", 300000.0},
		{"negative", "-2.5", -2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Number(tt.in)
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestNumber_Garbage(t *testing.T) {
	for _, in := range []any{"abc", "12..3", struct{}{}, []int{1}, "Scr"} {
		_, ok := Number(in)
		assert.False(t, ok, "input %v should be absent", in)
	}
}

func TestInt(t *testing.T) {
	i, ok := Int("1,234.6")
	require.True(t, ok)
	assert.Equal(t, int64(1235), i)

	_, ok = Int("N/A")
	assert.False(t, ok)
}

func TestNumberOr(t *testing.T) {
	assert.Equal(t, 0.0, NumberOr("-", 0.0))
	assert.Equal(t, 7.5, NumberOr("7.5", 0.0))
}

func TestLookup(t *testing.T) {
	m := map[string]any{
		"priceInfo": map[string]any{
			"intraDayHighLow": map[string]any{"max": 105.5},
		},
	}

	v, ok := Lookup(m, "priceInfo.intraDayHighLow.max")
	require.True(t, ok)
	assert.Equal(t, 105.5, v)

	_, ok = Lookup(m, "priceInfo.missing.max")
	assert.False(t, ok)

	_, ok = Lookup(m, "priceInfo.intraDayHighLow.max.deeper")
	assert.False(t, ok)

	assert.Equal(t, "x", LookupOr(m, "nope", "x"))
}
