package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", ""},
		{"blank", "   ", ""},
		{"national with space", "98765 43210", "+919876543210"},
		{"already e164", "+919876543210", "+919876543210"},
		{"foreign number keeps its country", "+1 650 253 0000", "+16502530000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw, "IN")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_Invalid(t *testing.T) {
	for _, raw := range []string{"abc", "123", "+91 12"} {
		_, err := Normalize(raw, "IN")
		assert.ErrorIs(t, err, ErrInvalid, raw)
	}
}
