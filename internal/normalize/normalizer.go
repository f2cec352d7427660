package normalize

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"quasarcli/pkg/contracts/domain"
)

// Canonical field names in output column order.
const (
	FieldProduct       = "product"
	FieldQuantity      = "quantity"
	FieldRevenue       = "revenue"
	FieldUnitPrice     = "unit_price"
	FieldCategory      = "category"
	FieldRegion        = "region"
	FieldDate          = "date"
	FieldYear          = "year"
	FieldMonthNum      = "month_num"
	FieldTransactionID = "transaction_id"
	FieldSourceKey     = "source_sheet"
)

// synonym binds one canonical field to its ordered candidate header
// spellings. Candidates are compared after Fold, first match wins.
type synonym struct {
	field      string
	candidates []string
}

// synonymTable is the full header-resolution table. Order inside each
// candidate list matters; unmatched fields are simply absent from the output.
var synonymTable = []synonym{
	{FieldProduct, []string{
		"produto", "produtos", "product", "item", "nome", "descricao", "sku",
		"codigo", "cod", "referencia",
	}},
	{FieldQuantity, []string{
		"quantidade", "qtd", "qtde", "volume", "unidades", "qty",
	}},
	{FieldRevenue, []string{
		"receita", "receita_total", "receita total", "faturamento", "valor_total",
		"valor total", "valor", "total", "vendas", "revenue", "amount",
	}},
	{FieldUnitPrice, []string{
		"preco_unitario", "preco unitario", "preco", "valor_unitario",
		"valor unitario", "unit_price", "unit price", "price",
	}},
	{FieldCategory, []string{
		"categoria", "category", "cat",
	}},
	{FieldRegion, []string{
		"regiao", "region", "uf", "estado",
	}},
	{FieldDate, []string{
		"data", "data_venda", "data da venda", "dia", "date",
	}},
	{FieldTransactionID, []string{
		"id_transacao", "id da transacao", "transaction_id", "transacao",
		"transacao_id", "pedido", "order_id", "id",
	}},
}

// idShapePattern matches ID-shaped values: letter prefix, six-digit block,
// numeric suffix (e.g. "T-202403-0042").
var idShapePattern = regexp.MustCompile(`^[A-Za-z]+-\d{6}-\d{1,6}$`)

// Normalizer converts raw worksheet tables into canonical transaction
// tables. It is pure: all I/O happens before a sheet reaches it.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a normalizer. A nil logger falls back to the default.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// Normalize converts one raw sheet into a canonical table. An empty sheet
// yields an empty table, never an error.
func (n *Normalizer) Normalize(raw domain.RawSheet) domain.Table {
	table := domain.Table{
		SpreadsheetID: raw.SpreadsheetID,
		Worksheet:     raw.Worksheet,
	}
	if len(raw.Header) == 0 {
		return table
	}

	cols := resolveColumns(raw.Header)

	productCol, productBound := cols[FieldProduct]
	transCol, transBound := cols[FieldTransactionID]
	if !productBound {
		// Identifier fallback: transaction-id header first, then the
		// column whose values look most ID-shaped.
		if transBound {
			productCol = transCol
			productBound = true
		} else if idx, ok := bestIDColumn(raw.Rows, len(raw.Header)); ok {
			productCol = idx
			productBound = true
		}
	}

	quantityCol, quantityBound := cols[FieldQuantity]
	revenueCol, revenueBound := cols[FieldRevenue]
	priceCol, priceBound := cols[FieldUnitPrice]
	categoryCol, categoryBound := cols[FieldCategory]
	regionCol, regionBound := cols[FieldRegion]
	dateCol, dateBound := cols[FieldDate]

	key := raw.Key()
	datesParsed := 0
	rows := make([]domain.Transaction, 0, len(raw.Rows))

	for _, row := range raw.Rows {
		if rowBlank(row) {
			continue
		}
		txn := domain.Transaction{SourceKey: key}

		if productBound {
			txn.Product = cellString(row, productCol)
		}
		if transBound {
			txn.TransactionID = cellString(row, transCol)
		}
		if quantityBound {
			txn.Quantity = ParseNumber(cellString(row, quantityCol))
		}
		if priceBound {
			txn.UnitPrice = ParseNumber(cellString(row, priceCol))
			txn.HasUnitPrice = true
		}
		if revenueBound {
			txn.Revenue = ParseNumber(cellString(row, revenueCol))
		} else if quantityBound && priceBound {
			// Revenue invariant: backfill from quantity x unit price.
			txn.Revenue = txn.Quantity * txn.UnitPrice
		}
		if categoryBound {
			txn.Category = cellString(row, categoryCol)
		}
		if regionBound {
			txn.Region = cellString(row, regionCol)
		}
		if dateBound {
			if d, ok := ParseDate(cellString(row, dateCol)); ok {
				txn.Date = d
				txn.HasDate = true
				txn.Year = fmt.Sprintf("%04d", d.Year())
				txn.MonthNum = fmt.Sprintf("%02d", int(d.Month()))
				datesParsed++
			}
		}

		rows = append(rows, txn)
	}

	// Title fallback: when the whole date column was unusable, the period
	// comes from the worksheet or file title; failing that, the empty
	// string stands in as the unknown-period sentinel.
	if datesParsed == 0 {
		year, monthNum := InferPeriodFromTitle(raw.Worksheet)
		if year == "" && monthNum == "" {
			year, monthNum = InferPeriodFromTitle(raw.SpreadsheetName)
		}
		for i := range rows {
			rows[i].Year = year
			rows[i].MonthNum = monthNum
		}
	} else {
		for i := range rows {
			if !rows[i].HasDate {
				rows[i].Year = ""
				rows[i].MonthNum = ""
			}
		}
	}

	table.Rows = rows
	table.Columns = boundColumns(cols, productBound)

	n.logger.Debug("normalized sheet",
		slog.String("key", key),
		slog.Int("rows", len(rows)),
		slog.Int("columns", len(table.Columns)),
		slog.Int("dates_parsed", datesParsed))

	return table
}

// resolveColumns maps canonical fields to header indexes by first-match
// synonym lookup over the folded header set.
func resolveColumns(header []string) map[string]int {
	folded := make(map[string]int, len(header))
	for i := len(header) - 1; i >= 0; i-- {
		// Earlier columns win on duplicate folded headers.
		if f := Fold(header[i]); f != "" {
			folded[f] = i
		}
	}

	cols := make(map[string]int, len(synonymTable))
	for _, syn := range synonymTable {
		for _, candidate := range syn.candidates {
			if idx, ok := folded[candidate]; ok {
				cols[syn.field] = idx
				break
			}
		}
	}
	return cols
}

// MatchRatio returns the fraction of non-empty values in a column that are
// ID-shaped. The selection policy (max ratio, ratio >= 0.5) lives in
// bestIDColumn so both rules stay independently testable.
func MatchRatio(values []string) float64 {
	nonEmpty := 0
	matches := 0
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		nonEmpty++
		if idShapePattern.MatchString(v) {
			matches++
		}
	}
	if nonEmpty == 0 {
		return 0
	}
	return float64(matches) / float64(nonEmpty)
}

// bestIDColumn scans all columns for the one whose values are ID-shaped in
// at least half of non-empty rows, preferring the highest ratio.
func bestIDColumn(rows [][]string, width int) (int, bool) {
	bestIdx, bestRatio := -1, 0.0
	for col := 0; col < width; col++ {
		values := make([]string, 0, len(rows))
		for _, row := range rows {
			values = append(values, cellString(row, col))
		}
		if ratio := MatchRatio(values); ratio >= 0.5 && ratio > bestRatio {
			bestIdx, bestRatio = col, ratio
		}
	}
	return bestIdx, bestIdx >= 0
}

// boundColumns lists the canonical columns present in the output, in the
// fixed canonical order.
func boundColumns(cols map[string]int, productBound bool) []string {
	out := make([]string, 0, len(cols)+3)
	if productBound {
		out = append(out, FieldProduct)
	}
	for _, field := range []string{FieldQuantity, FieldRevenue, FieldUnitPrice, FieldCategory, FieldRegion} {
		if _, ok := cols[field]; ok {
			out = append(out, field)
		}
	}
	out = append(out, FieldYear, FieldMonthNum)
	if _, ok := cols[FieldTransactionID]; ok {
		out = append(out, FieldTransactionID)
	}
	out = append(out, FieldSourceKey)
	return out
}

func cellString(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func rowBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
