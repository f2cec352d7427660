// Package analytics computes period aggregates, product rankings, and
// consistency audits over normalized transactions.
package analytics

import (
	"fmt"
	"sort"
	"strconv"

	"quasarcli/internal/config"
	"quasarcli/internal/normalize"
	"quasarcli/pkg/contracts/domain"
)

// Aggregator buckets transactions into the configured period set and derives
// reports from the buckets. The zero period set falls back to the default
// campaign split.
type Aggregator struct {
	periods      []config.PeriodConfig
	includeOther bool
	otherName    string
}

func NewAggregator(cfg config.PeriodsConfig) *Aggregator {
	periods := cfg.Periods
	if len(periods) == 0 {
		periods = config.DefaultPeriods()
	}
	otherName := cfg.OtherName
	if otherName == "" {
		otherName = "outros"
	}
	return &Aggregator{periods: periods, includeOther: cfg.IncludeOther, otherName: otherName}
}

// SplitPeriods assigns each transaction to the first period whose month set
// contains its month. Unmatched transactions go to the catch-all bucket when
// enabled, otherwise they are dropped. Every configured period appears in the
// result even when empty.
func (a *Aggregator) SplitPeriods(txns []domain.Transaction) map[string][]domain.Transaction {
	buckets := make(map[string][]domain.Transaction, len(a.periods)+1)
	for _, p := range a.periods {
		buckets[p.Name] = []domain.Transaction{}
	}
	if a.includeOther {
		buckets[a.otherName] = []domain.Transaction{}
	}

	for _, t := range txns {
		name, ok := a.periodFor(t.Month())
		if !ok {
			continue
		}
		buckets[name] = append(buckets[name], t)
	}
	return buckets
}

func (a *Aggregator) periodFor(month int) (string, bool) {
	if month != 0 {
		for _, p := range a.periods {
			for _, m := range p.Months {
				if m == month {
					return p.Name, true
				}
			}
		}
	}
	if a.includeOther {
		return a.otherName, true
	}
	return "", false
}

// periodNames returns the bucket names in configured order, catch-all last.
func (a *Aggregator) periodNames() []string {
	names := make([]string, 0, len(a.periods)+1)
	for _, p := range a.periods {
		names = append(names, p.Name)
	}
	if a.includeOther {
		names = append(names, a.otherName)
	}
	return names
}

// AggregateByCategory sums revenue and quantity per (period, category).
// Average ticket divides revenue by quantity with a floor of one, so
// zero-quantity categories report their revenue as the ticket.
func (a *Aggregator) AggregateByCategory(txns []domain.Transaction) []domain.CategoryPeriodAggregate {
	buckets := a.SplitPeriods(txns)

	var out []domain.CategoryPeriodAggregate
	for _, period := range a.periodNames() {
		type sums struct {
			revenue  float64
			quantity float64
		}
		byCat := map[string]*sums{}
		for _, t := range buckets[period] {
			s := byCat[t.Category]
			if s == nil {
				s = &sums{}
				byCat[t.Category] = s
			}
			s.revenue += t.Revenue
			s.quantity += t.Quantity
		}

		cats := make([]string, 0, len(byCat))
		for c := range byCat {
			cats = append(cats, c)
		}
		sort.Strings(cats)

		for _, cat := range cats {
			s := byCat[cat]
			qty := int64(s.quantity)
			divisor := qty
			if divisor < 1 {
				divisor = 1
			}
			out = append(out, domain.CategoryPeriodAggregate{
				Period:      period,
				Category:    cat,
				Revenue:     s.revenue,
				Quantity:    qty,
				TicketMedio: s.revenue / float64(divisor),
			})
		}
	}
	return out
}

// TopByRevenue ranks the topN highest-revenue products per (period, category).
// Ties break on product name ascending so rankings are reproducible.
func (a *Aggregator) TopByRevenue(txns []domain.Transaction, topN int) []domain.TopProducts {
	if topN < 1 {
		topN = 3
	}
	buckets := a.SplitPeriods(txns)

	var out []domain.TopProducts
	for _, period := range a.periodNames() {
		byCat := map[string]map[string]float64{}
		for _, t := range buckets[period] {
			m := byCat[t.Category]
			if m == nil {
				m = map[string]float64{}
				byCat[t.Category] = m
			}
			m[t.Product] += t.Revenue
		}

		cats := make([]string, 0, len(byCat))
		for c := range byCat {
			cats = append(cats, c)
		}
		sort.Strings(cats)

		for _, cat := range cats {
			ranked := rankProducts(byCat[cat], topN)
			out = append(out, domain.TopProducts{Period: period, Category: cat, Products: ranked})
		}
	}
	return out
}

func rankProducts(revenues map[string]float64, topN int) []domain.ProductRevenue {
	ranked := make([]domain.ProductRevenue, 0, len(revenues))
	for p, r := range revenues {
		ranked = append(ranked, domain.ProductRevenue{Product: p, Revenue: r})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Revenue != ranked[j].Revenue {
			return ranked[i].Revenue > ranked[j].Revenue
		}
		return ranked[i].Product < ranked[j].Product
	})
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

// auditTolerance is the max absolute difference between recorded revenue and
// quantity times unit price before a transaction counts as inconsistent.
const auditTolerance = 0.01

// maxAuditExamples caps the failing ids reported per month.
const maxAuditExamples = 5

// AuditMonths checks revenue = quantity x unit price for every transaction in
// the audited month range (March through August), reporting the consistent
// fraction and up to five failing ids per month. Months with no data are
// omitted.
func AuditMonths(txns []domain.Transaction) []domain.MonthAudit {
	auditedMonths := []int{3, 4, 5, 6, 7, 8}
	byMonth := map[int][]domain.Transaction{}
	for _, t := range txns {
		m := t.Month()
		for _, am := range auditedMonths {
			if m == am {
				byMonth[m] = append(byMonth[m], t)
				break
			}
		}
	}

	var out []domain.MonthAudit
	for _, m := range auditedMonths {
		lst := byMonth[m]
		if len(lst) == 0 {
			continue
		}
		ok := 0
		var badIDs []string
		for _, t := range lst {
			diff := t.Revenue - t.Quantity*t.UnitPrice
			if diff < 0 {
				diff = -diff
			}
			if diff < auditTolerance {
				ok++
			} else if len(badIDs) < maxAuditExamples {
				badIDs = append(badIDs, t.TransactionID)
			}
		}
		pct := float64(ok) / float64(len(lst))
		out = append(out, domain.MonthAudit{
			Month:         normalize.Fold(normalize.MonthName(fmt.Sprintf("%02d", m))),
			PctOK:         round3(pct),
			Inconsistents: badIDs,
		})
	}
	return out
}

func round3(f float64) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(f, 'f', 3, 64), 64)
	if err != nil {
		return f
	}
	return v
}
