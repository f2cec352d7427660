package domain

// CategoryPeriodAggregate holds per-period, per-category revenue totals.
// TicketMedio is revenue over quantity with a max(qty,1) guard.
type CategoryPeriodAggregate struct {
	Period      string  `json:"periodo"`
	Category    string  `json:"categoria"`
	Revenue     float64 `json:"receita_total"`
	Quantity    int64   `json:"qtd_total"`
	TicketMedio float64 `json:"ticket_medio"`
}

// ProductRevenue is one entry of a revenue ranking.
type ProductRevenue struct {
	Product string  `json:"produto"`
	Revenue float64 `json:"receita_total"`
}

// ProductQuantity is one entry of a quantity ranking.
type ProductQuantity struct {
	Product  string  `json:"produto"`
	Quantity float64 `json:"qtd_total"`
}

// TopProducts ranks the highest-revenue products for one (period, category).
type TopProducts struct {
	Period   string           `json:"periodo"`
	Category string           `json:"categoria"`
	Products []ProductRevenue `json:"produtos"`
}

// MonthAudit reports the consistency of revenue = quantity x unit price for
// one month, with up to five example failing transaction ids.
type MonthAudit struct {
	Month         string   `json:"mes"`
	PctOK         float64  `json:"pct_ok"`
	Inconsistents []string `json:"erros"`
}

// MonthTotal is the summed revenue for one (year, month).
type MonthTotal struct {
	Year    string  `json:"year"`
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}
