package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatINR(t *testing.T) {
	cases := map[float64]string{
		0:          "0",
		999:        "999",
		1000:       "1,000",
		125000:     "1,25,000",
		2500.5:     "2,500.50",
		12345678.9: "1,23,45,678.90",
		-75000:     "-75,000",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatINR(in), "FormatINR(%v)", in)
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 10.13, Round2(10.125000001))
	assert.Equal(t, 0.0, Round2(0.004))
}

type planPatch struct {
	Name    *string  `json:"name"`
	Months  *int     `json:"months"`
	Rate    *float64 `json:"interest_percentage"`
	Enabled *bool    `json:"enabled"`
	Skipped string   `json:"skipped"`
}

func TestNormalizeAndUpdatesFromPtrDTO(t *testing.T) {
	name := "  Gold Saver  "
	rate := 2.346
	months := 6
	dto := planPatch{Name: &name, Rate: &rate, Months: &months, Skipped: "x"}

	NormalizePtrDTO(&dto)
	assert.Equal(t, "Gold Saver", *dto.Name)
	assert.Equal(t, 2.35, *dto.Rate)

	updates := UpdatesFromPtrDTO(&dto, map[string]string{"interest_percentage": "interest"})
	assert.Equal(t, map[string]any{"name": "Gold Saver", "months": 6, "interest": 2.35}, updates)

	assert.Empty(t, UpdatesFromPtrDTO(dto, nil))
}

func TestParseIntDefault(t *testing.T) {
	assert.Equal(t, 25, ParseIntDefault(" 25 ", 100))
	assert.Equal(t, 100, ParseIntDefault("", 100))
	assert.Equal(t, 100, ParseIntDefault("-3", 100))
	assert.Equal(t, 100, ParseIntDefault("ten", 100))
}
