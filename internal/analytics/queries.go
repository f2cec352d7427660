package analytics

import (
	"sort"
	"strconv"
	"strings"

	"quasarcli/internal/normalize"
	"quasarcli/pkg/contracts/domain"
)

// LatestPeriod returns the most recent (year, month_num) present in the data.
// Records with a non-numeric year or month are ignored. ok is false when no
// record carries a usable period.
func LatestPeriod(txns []domain.Transaction) (year, monthNum string, ok bool) {
	bestYear, bestMonth := 0, 0
	for _, t := range txns {
		y, err := strconv.Atoi(t.Year)
		if err != nil {
			continue
		}
		m := t.Month()
		if m == 0 {
			continue
		}
		if y > bestYear || (y == bestYear && m > bestMonth) {
			bestYear, bestMonth = y, m
		}
	}
	if bestYear == 0 {
		return "", "", false
	}
	return strconv.Itoa(bestYear), pad2(bestMonth), true
}

// LatestYearForMonth returns the most recent year that has data for the given
// month number ("01".."12").
func LatestYearForMonth(txns []domain.Transaction, monthNum string) (string, bool) {
	best := 0
	for _, t := range txns {
		if t.MonthNum != monthNum {
			continue
		}
		y, err := strconv.Atoi(t.Year)
		if err != nil {
			continue
		}
		if y > best {
			best = y
		}
	}
	if best == 0 {
		return "", false
	}
	return strconv.Itoa(best), true
}

// RevenueTotal sums revenue for one (year, month_num), returning the summed
// value and the number of contributing rows.
func RevenueTotal(txns []domain.Transaction, year, monthNum string) (total float64, rows int) {
	for _, t := range txns {
		if t.Year == year && t.MonthNum == monthNum {
			total += t.Revenue
			rows++
		}
	}
	return total, rows
}

// MonthTotals aggregates revenue per (year, month), ordered chronologically.
// Records without a usable period are skipped.
func MonthTotals(txns []domain.Transaction) []domain.MonthTotal {
	type ym struct {
		year, month int
	}
	sums := map[ym]float64{}
	for _, t := range txns {
		y, err := strconv.Atoi(t.Year)
		if err != nil {
			continue
		}
		m := t.Month()
		if m == 0 {
			continue
		}
		sums[ym{y, m}] += t.Revenue
	}

	keys := make([]ym, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	out := make([]domain.MonthTotal, 0, len(keys))
	for _, k := range keys {
		out = append(out, domain.MonthTotal{
			Year:    strconv.Itoa(k.year),
			Month:   normalize.MonthName(pad2(k.month)),
			Revenue: sums[k],
		})
	}
	return out
}

// MonthRanking holds the product rankings of one (year, month) by quantity
// and by revenue.
type MonthRanking struct {
	Year       string                   `json:"year"`
	Month      string                   `json:"month"`
	ByQuantity []domain.ProductQuantity `json:"by_quantity"`
	ByRevenue  []domain.ProductRevenue  `json:"by_revenue"`
}

// TopProductsForMonth ranks products of one (year, month_num) by summed
// quantity and by summed revenue. ok is false when the month has no data.
func TopProductsForMonth(txns []domain.Transaction, year, monthNum string, topN int) (MonthRanking, bool) {
	if topN < 1 {
		topN = 3
	}
	qty := map[string]float64{}
	rev := map[string]float64{}
	found := false
	for _, t := range txns {
		if t.Year != year || t.MonthNum != monthNum {
			continue
		}
		found = true
		qty[t.Product] += t.Quantity
		rev[t.Product] += t.Revenue
	}
	if !found {
		return MonthRanking{}, false
	}
	return MonthRanking{
		Year:       year,
		Month:      normalize.MonthName(monthNum),
		ByQuantity: rankQuantities(qty, topN),
		ByRevenue:  rankProducts(rev, topN),
	}, true
}

// rankQuantities orders products by summed quantity descending, breaking
// ties on product name ascending like the revenue ranking.
func rankQuantities(quantities map[string]float64, topN int) []domain.ProductQuantity {
	ranked := make([]domain.ProductQuantity, 0, len(quantities))
	for p, q := range quantities {
		ranked = append(ranked, domain.ProductQuantity{Product: p, Quantity: q})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Quantity != ranked[j].Quantity {
			return ranked[i].Quantity > ranked[j].Quantity
		}
		return ranked[i].Product < ranked[j].Product
	})
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

// RevenueByTransaction sums revenue for one transaction id, optionally
// filtered to a (year, month_num) period. The id is also matched against
// product names so ids that landed in the product column still resolve.
func RevenueByTransaction(txns []domain.Transaction, transID, year, monthNum string) (total float64, ok bool) {
	id := strings.TrimSpace(transID)
	if id == "" {
		return 0, false
	}

	match := func(t domain.Transaction) bool {
		return strings.TrimSpace(t.TransactionID) == id
	}
	matched := filterSum(txns, match, year, monthNum)
	if matched == nil {
		matched = filterSum(txns, func(t domain.Transaction) bool {
			return strings.TrimSpace(t.Product) == id
		}, year, monthNum)
	}
	if matched == nil {
		return 0, false
	}
	return *matched, true
}

func filterSum(txns []domain.Transaction, match func(domain.Transaction) bool, year, monthNum string) *float64 {
	total := 0.0
	found := false
	for _, t := range txns {
		if !match(t) {
			continue
		}
		if year != "" && t.Year != year {
			continue
		}
		if monthNum != "" && t.MonthNum != monthNum {
			continue
		}
		total += t.Revenue
		found = true
	}
	if !found {
		return nil
	}
	return &total
}

func pad2(m int) string {
	if m < 10 {
		return "0" + strconv.Itoa(m)
	}
	return strconv.Itoa(m)
}
