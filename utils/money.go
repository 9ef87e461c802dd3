package utils

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Epsilon is the tolerance used for every currency comparison.
const Epsilon = 0.01

// Round2 rounds x to 2 decimal places (banking-style simple round).
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// FormatINR renders x with Indian digit grouping ("1,25,000.50"). Whole
// amounts drop the paise.
func FormatINR(x float64) string {
	s := decimal.NewFromFloat(x).Round(2).StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(whole) > 3 {
		head, tail := whole[:len(whole)-3], whole[len(whole)-3:]
		var groups []string
		for len(head) > 2 {
			groups = append([]string{head[len(head)-2:]}, groups...)
			head = head[:len(head)-2]
		}
		if head != "" {
			groups = append([]string{head}, groups...)
		}
		whole = strings.Join(append(groups, tail), ",")
	}
	if frac == "00" {
		return sign + whole
	}
	return sign + whole + "." + frac
}
