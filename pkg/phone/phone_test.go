package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"07700 900123", "+447700900123"},
		{"+44 7700 900123", "+447700900123"},
		{"  07700900123 ", "+447700900123"},
		{"020 7946 0958", "+442079460958"},
	}
	for _, tc := range cases {
		got, err := Normalize(tc.in)
		assert.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestNormalize_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "not a number", "123"} {
		_, err := Normalize(in)
		assert.ErrorIs(t, err, ErrInvalid, in)
	}
}
