package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"99.123456", 99.123456, true},
		{"99,5", 99.5, true},
		{"1,234", 1234, true},
		{"1,234,567", 1234567, true},
		{"1.234,50", 1234.5, true},
		{"1,234.50", 1234.5, true},
		{"12 345", 12345, true},
		{"95.5%", 95.5, true},
		{"(12)", -12, true},
		{" 7 ", 7, true},
		{"", 0, false},
		{"-", 0, false},
		{"N/A", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		assert.Equal(t, tt.ok, ok, "in=%q", tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, "in=%q", tt.in)
	}
}

func TestParseInt(t *testing.T) {
	n, ok := ParseInt("12,345")
	assert.True(t, ok)
	assert.Equal(t, 12345, n)

	n, ok = ParseInt("2024.0")
	assert.True(t, ok)
	assert.Equal(t, 2024, n)

	_, ok = ParseInt("99.5")
	assert.False(t, ok)

	_, ok = ParseInt("abc")
	assert.False(t, ok)
}
