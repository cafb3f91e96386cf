package fipe

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	cases := map[string]string{
		"R$ 85.432,10":    "85432.10",
		"R$ 1.234.567,00": "1234567",
		"R$ 9.999,99": "9999.99",
		"850,5":           "850.5",
		"  R$ 12 ":        "12",
	}
	for in, want := range cases {
		got, err := ParsePrice(in)
		require.NoError(t, err, in)
		assert.True(t, decimal.RequireFromString(want).Equal(got), "%s: got %s", in, got)
	}
}

func TestParsePriceRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "R$", "R$ abc", "12,3,4"} {
		_, err := ParsePrice(in)
		assert.ErrorIs(t, err, ErrInvalidPrice, in)
	}
}

func TestParseYearCode(t *testing.T) {
	year, err := ParseYearCode("2017-1")
	require.NoError(t, err)
	assert.Equal(t, 2017, year)

	year, err = ParseYearCode("32000-3")
	require.NoError(t, err)
	assert.Equal(t, 32000, year)

	year, err = ParseYearCode("1998")
	require.NoError(t, err)
	assert.Equal(t, 1998, year)

	for _, in := range []string{"", "-1", "abc-1", "0-1"} {
		_, err := ParseYearCode(in)
		assert.ErrorIs(t, err, ErrInvalidYearCode, in)
	}
}

func TestValidateReferenceMonth(t *testing.T) {
	assert.NoError(t, ValidateReferenceMonth("2024-01"))
	assert.NoError(t, ValidateReferenceMonth("1999-12"))
	for _, in := range []string{"2024-13", "2024-1", "24-01", "2024/01", ""} {
		assert.ErrorIs(t, ValidateReferenceMonth(in), ErrInvalidReferenceMonth, in)
	}
}
