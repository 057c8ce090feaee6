package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCardNumber(t *testing.T) {
	tests := []struct {
		name   string
		number string
		want   bool
	}{
		{"visa 16", "4532015112830366", true},
		{"visa 13", "4222222222222", true},
		{"amex 15", "378282246310005", true},
		{"19 digits", "6011000990139424124", true},
		{"spaces", "4111 1111 1111 1111", true},
		{"dashes", "4111-1111-1111-1111", true},
		{"tabs and newline", "4111\t1111\n1111 1111", true},
		{"bad checksum", "1234567890123456", false},
		{"off by one", "4532015112830367", false},
		{"luhn ok but 12 digits", "422222222222", false},
		{"luhn ok but 20 digits", "60110009901394241248", false},
		{"letters", "4532a15112830366", false},
		{"dots", "4532.0151.1283.0366", false},
		{"empty", "", false},
		{"only separators", "----", false},
		{"unicode digits", "４５３２015112830366", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateCardNumber(tt.number))
		})
	}
}

func TestNormalizeCardNumber(t *testing.T) {
	assert.Equal(t, "4111111111111111", NormalizeCardNumber(" 4111-1111 1111-1111 "))
}

func TestValidateCVV(t *testing.T) {
	tests := []struct {
		cvv  string
		want bool
	}{
		{"123", true},
		{"1234", true},
		{"000", true},
		{"12", false},
		{"12345", false},
		{"12a", false},
		{" 123", false},
		{"123\n", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.cvv, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateCVV(tt.cvv))
		})
	}
}

func TestParseExpiry(t *testing.T) {
	exp, err := ParseExpiry("12/25")
	require.NoError(t, err)
	assert.Equal(t, Expiry{Month: 12, Year: 2025}, exp)

	exp, err = ParseExpiry("03/2031")
	require.NoError(t, err)
	assert.Equal(t, Expiry{Month: 3, Year: 2031}, exp)

	for _, raw := range []string{"", "1225", "12-25", "ab/cd", "13/25", "00/25", "12/25/1", "12/-1", "/25", "12/", "01/10000", "12/40000", "12/9223372036854775807"} {
		_, err := ParseExpiry(raw)
		assert.ErrorIs(t, err, ErrMalformedExpiry, "input %q", raw)
	}
}

func TestValidateExpiry(t *testing.T) {
	now := time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		expiry string
		want   bool
	}{
		{"current month", "06/24", true},
		{"current month four digit year", "06/2024", true},
		{"next month", "07/24", true},
		{"next year earlier month", "01/25", true},
		{"previous month", "05/24", false},
		{"previous year later month", "12/23", false},
		{"long expired", "01/20", false},
		{"single digit month", "6/24", true},
		{"month out of range", "13/30", false},
		{"malformed", "0624", false},
		{"last four digit year", "12/9999", true},
		{"five digit year", "01/10000", false},
		{"year overflows int", "12/9223372036854775807", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateExpiry(tt.expiry, now))
		})
	}
}

func TestValidateExpiry_IgnoresDayOfMonth(t *testing.T) {
	lastDay := time.Date(2024, time.June, 30, 23, 59, 59, 0, time.UTC)
	firstDay := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, ValidateExpiry("06/24", lastDay))
	assert.False(t, ValidateExpiry("06/24", firstDay))
}
