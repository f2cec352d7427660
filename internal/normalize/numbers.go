package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseNumber parses a Brazilian-formatted numeric cell ("R$ 4.990,00",
// "1.234,56", "12,5") as well as plain machine formats ("4990.00", "12").
// Unparseable values coerce to 0; normalization never raises on bad cells.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	s = strings.ReplaceAll(s, " ", "")

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	switch {
	case hasComma && hasDot:
		// "1.234,56": dots are thousands separators, comma is decimal
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case hasComma:
		s = strings.Replace(s, ",", ".", 1)
	case hasDot:
		// A single trailing dot group of 1-2 digits reads as a decimal
		// point; anything else ("4.990", "1.234.567") as thousands.
		if i := strings.LastIndex(s, "."); !(strings.Count(s, ".") == 1 && len(s)-i-1 <= 2) {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}
