package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases, trims and strips diacritics so that "Preço Unitário"
// and "preco unitario" compare equal.
func Fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		return s
	}
	return out
}

// ptMonths maps two-digit month numbers to their Portuguese names and
// abbreviations, used for title-based period inference.
var ptMonths = map[string][]string{
	"01": {"janeiro", "jan"},
	"02": {"fevereiro", "fev"},
	"03": {"marco", "mar"},
	"04": {"abril", "abr"},
	"05": {"maio", "mai"},
	"06": {"junho", "jun"},
	"07": {"julho", "jul"},
	"08": {"agosto", "ago"},
	"09": {"setembro", "set"},
	"10": {"outubro", "out"},
	"11": {"novembro", "nov"},
	"12": {"dezembro", "dez"},
}

// monthOrder fixes the scan order for title inference.
var monthOrder = []string{"01", "02", "03", "04", "05", "06", "07", "08", "09", "10", "11", "12"}

var ptMonthNames = map[string]string{
	"01": "janeiro", "02": "fevereiro", "03": "março", "04": "abril",
	"05": "maio", "06": "junho", "07": "julho", "08": "agosto",
	"09": "setembro", "10": "outubro", "11": "novembro", "12": "dezembro",
}

// MonthName returns the Portuguese month name for a two-digit month number,
// or the input unchanged when it is not a known month.
func MonthName(monthNum string) string {
	if monthNum == "" {
		return ""
	}
	if name, ok := ptMonthNames[monthNum]; ok {
		return name
	}
	return monthNum
}

// MonthNumber resolves a Portuguese month name or abbreviation to its
// two-digit number, returning "" when unrecognized.
func MonthNumber(name string) string {
	n := Fold(name)
	for num, names := range ptMonths {
		for _, candidate := range names {
			if n == candidate {
				return num
			}
		}
	}
	return ""
}
