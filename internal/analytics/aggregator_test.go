package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quasarcli/internal/config"
	"quasarcli/pkg/contracts/domain"
)

func txn(product, category string, month int, qty, revenue float64) domain.Transaction {
	monthNum := ""
	if month > 0 {
		monthNum = pad2(month)
	}
	return domain.Transaction{
		Product:  product,
		Category: category,
		Quantity: qty,
		Revenue:  revenue,
		Year:     "2024",
		MonthNum: monthNum,
	}
}

func defaultAggregator() *Aggregator {
	return NewAggregator(config.PeriodsConfig{})
}

func TestSplitPeriodsDefault(t *testing.T) {
	agg := defaultAggregator()
	buckets := agg.SplitPeriods([]domain.Transaction{
		txn("a", "c", 3, 1, 10),
		txn("b", "c", 5, 1, 10),
		txn("c", "c", 6, 1, 10),
		txn("d", "c", 9, 1, 10), // outside both periods
		txn("e", "c", 0, 1, 10), // unknown period
	})

	require.Len(t, buckets, 2)
	assert.Len(t, buckets["mar-mai/2024"], 2)
	assert.Len(t, buckets["jun-ago/2024"], 1)
}

func TestSplitPeriodsCatchAll(t *testing.T) {
	agg := NewAggregator(config.PeriodsConfig{IncludeOther: true})
	buckets := agg.SplitPeriods([]domain.Transaction{
		txn("a", "c", 3, 1, 10),
		txn("b", "c", 9, 1, 10),
		txn("c", "c", 0, 1, 10),
	})

	require.Len(t, buckets, 3)
	assert.Len(t, buckets["mar-mai/2024"], 1)
	assert.Empty(t, buckets["jun-ago/2024"])
	assert.Len(t, buckets["outros"], 2)
}

func TestAggregateByCategory(t *testing.T) {
	agg := defaultAggregator()
	out := agg.AggregateByCategory([]domain.Transaction{
		txn("Laptop", "Eletronicos", 3, 2, 4990),
		txn("Mouse", "Eletronicos", 4, 3, 2400),
		txn("Cadeira", "Moveis", 7, 1, 800),
	})

	require.Len(t, out, 2)

	elet := out[0]
	assert.Equal(t, "mar-mai/2024", elet.Period)
	assert.Equal(t, "Eletronicos", elet.Category)
	assert.InDelta(t, 7390.0, elet.Revenue, 1e-9)
	assert.Equal(t, int64(5), elet.Quantity)
	assert.InDelta(t, 1478.0, elet.TicketMedio, 1e-9)

	mov := out[1]
	assert.Equal(t, "jun-ago/2024", mov.Period)
	assert.Equal(t, "Moveis", mov.Category)
	assert.InDelta(t, 800.0, mov.Revenue, 1e-9)
}

func TestAggregateTicketZeroQuantity(t *testing.T) {
	// Revenue with zero quantity divides by one instead of exploding.
	agg := defaultAggregator()
	out := agg.AggregateByCategory([]domain.Transaction{
		txn("Brinde", "Promo", 3, 0, 150),
	})
	require.Len(t, out, 1)
	assert.InDelta(t, 150.0, out[0].TicketMedio, 1e-9)
}

func TestTopByRevenue(t *testing.T) {
	agg := defaultAggregator()
	out := agg.TopByRevenue([]domain.Transaction{
		txn("Laptop", "Eletronicos", 3, 1, 5000),
		txn("Laptop", "Eletronicos", 4, 1, 1000),
		txn("Mouse", "Eletronicos", 3, 1, 300),
		txn("Teclado", "Eletronicos", 3, 1, 450),
		txn("Monitor", "Eletronicos", 3, 1, 2000),
	}, 3)

	require.Len(t, out, 1)
	top := out[0]
	assert.Equal(t, "mar-mai/2024", top.Period)
	require.Len(t, top.Products, 3)
	assert.Equal(t, "Laptop", top.Products[0].Product)
	assert.InDelta(t, 6000.0, top.Products[0].Revenue, 1e-9)
	assert.Equal(t, "Monitor", top.Products[1].Product)
	assert.Equal(t, "Teclado", top.Products[2].Product)
}

func TestTopByRevenueTieBreaksOnName(t *testing.T) {
	agg := defaultAggregator()
	out := agg.TopByRevenue([]domain.Transaction{
		txn("Zebra", "Cat", 3, 1, 100),
		txn("Alfa", "Cat", 3, 1, 100),
	}, 3)

	require.Len(t, out, 1)
	require.Len(t, out[0].Products, 2)
	assert.Equal(t, "Alfa", out[0].Products[0].Product)
	assert.Equal(t, "Zebra", out[0].Products[1].Product)
}

func TestAuditMonths(t *testing.T) {
	consistent := domain.Transaction{
		TransactionID: "T-202403-0001", Quantity: 2, UnitPrice: 100, Revenue: 200,
		Year: "2024", MonthNum: "03",
	}
	inconsistent := domain.Transaction{
		TransactionID: "T-202403-0002", Quantity: 2, UnitPrice: 100, Revenue: 250,
		Year: "2024", MonthNum: "03",
	}
	outside := domain.Transaction{
		TransactionID: "T-202409-0001", Quantity: 1, UnitPrice: 1, Revenue: 99,
		Year: "2024", MonthNum: "09",
	}

	out := AuditMonths([]domain.Transaction{consistent, inconsistent, outside})

	require.Len(t, out, 1)
	audit := out[0]
	assert.Equal(t, "marco", audit.Month)
	assert.InDelta(t, 0.5, audit.PctOK, 1e-9)
	assert.Equal(t, []string{"T-202403-0002"}, audit.Inconsistents)
}

func TestAuditMonthsBoundary(t *testing.T) {
	// A difference of exactly one cent is already inconsistent; the check
	// is strictly below the tolerance.
	boundary := domain.Transaction{
		TransactionID: "T-202404-0001", Quantity: 2, UnitPrice: 100, Revenue: 200.01,
		Year: "2024", MonthNum: "04",
	}
	within := domain.Transaction{
		TransactionID: "T-202404-0002", Quantity: 2, UnitPrice: 100, Revenue: 200.005,
		Year: "2024", MonthNum: "04",
	}

	out := AuditMonths([]domain.Transaction{boundary, within})
	require.Len(t, out, 1)
	assert.InDelta(t, 0.5, out[0].PctOK, 1e-9)
	assert.Equal(t, []string{"T-202404-0001"}, out[0].Inconsistents)
}

func TestAuditMonthsCapsExamples(t *testing.T) {
	var txns []domain.Transaction
	for i := 0; i < 8; i++ {
		txns = append(txns, domain.Transaction{
			TransactionID: "T-202405-000" + string(rune('1'+i)),
			Quantity:      1, UnitPrice: 1, Revenue: 50,
			Year: "2024", MonthNum: "05",
		})
	}

	out := AuditMonths(txns)
	require.Len(t, out, 1)
	assert.Equal(t, 0.0, out[0].PctOK)
	assert.Len(t, out[0].Inconsistents, 5)
}

func TestAuditMonthsEmptyMonthsOmitted(t *testing.T) {
	out := AuditMonths(nil)
	assert.Empty(t, out)
}
