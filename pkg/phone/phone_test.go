package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain digits untouched", "5551234567", "5551234567"},
		{"us formatted", "(555) 123-4567", "5551234567"},
		{"spaces only", "555 123 4567", "5551234567"},
		{"plus kept", "+1 555-123-4567", "+15551234567"},
		{"leading zero kept", "020 7946 0958", "02079460958"},
		{"empty", "", ""},
		{"separators only", "() - ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("(555) 123-4567", "5551234567"))
	assert.True(t, Equal("555-1234", "555 1234"))
	assert.False(t, Equal("+15551234567", "5551234567"))
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty("  "))
	assert.True(t, IsEmpty("()-"))
	assert.False(t, IsEmpty("1001"))
}
