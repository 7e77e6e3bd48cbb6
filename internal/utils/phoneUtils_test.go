package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhoneNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"081234567890", "+6281234567890"},
		{"0812-3456-7890", "+6281234567890"},
		{"0812 3456 7890", "+6281234567890"},
		{"6281234567890", "+6281234567890"},
		{"+6281234567890", "+6281234567890"},
		{"81234567890", "+6281234567890"},
		{"+14155238886", "+14155238886"},
		{" 0812\t3456-7890 ", "+6281234567890"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhoneNumber(tt.in, "62"))
		})
	}
}

func TestNormalizePhoneNumberIsIdempotent(t *testing.T) {
	once := NormalizePhoneNumber("0812-3456-7890", "62")
	assert.Equal(t, once, NormalizePhoneNumber(once, "62"))
}
