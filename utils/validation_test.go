package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSiret(t *testing.T) {
	tests := []struct {
		name  string
		siret string
		want  bool
	}{
		{"valid luhn", "73282932000074", true},
		{"another valid luhn", "44306184100047", true},
		{"bad checksum", "12345678901234", false},
		{"too short", "7328293200007", false},
		{"letters", "7328293200007A", false},
		{"la poste uses digit sum", "35600000049837", true},
		{"la poste ignores luhn", "35600000000048", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateSiret(tt.siret))
		})
	}
}

func TestNormalizeSiret(t *testing.T) {
	assert.Equal(t, "73282932000074", NormalizeSiret(" 732 829 320 00074 "))
	assert.Equal(t, "73282932000074", NormalizeSiret("732.829.320-00074"))
}

func TestValidatePhone(t *testing.T) {
	assert.True(t, ValidatePhone("06 12 34 56 78"))
	assert.True(t, ValidatePhone("+33 6 12 34 56 78"))
	assert.True(t, ValidatePhone("(01) 45-67-89-00"))
	assert.False(t, ValidatePhone("12ab"))
	assert.False(t, ValidatePhone(""))
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("contact@bar-du-coin.fr"))
	assert.False(t, ValidateEmail("not-an-email"))
	assert.False(t, ValidateEmail("Bob <bob@example.com>"))
	assert.False(t, ValidateEmail(""))
}

func TestValidatePostalCodeAndClock(t *testing.T) {
	assert.True(t, ValidatePostalCode("75011"))
	assert.False(t, ValidatePostalCode("7501"))

	assert.True(t, ValidateClock("00:00"))
	assert.True(t, ValidateClock("23:59"))
	assert.False(t, ValidateClock("24:00"))
	assert.False(t, ValidateClock("9:30"))
}
