package dataset

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"quasarcli/internal/normalize"
	"quasarcli/pkg/contracts/domain"
)

// Serialization layers and formats for raw context blocks.
const (
	LayerSchema  = "schema"
	LayerSamples = "samples"
	LayerFull    = "full"

	FormatCSV   = "csv"
	FormatJSONL = "jsonl"
)

// Defaults for context serialization.
const (
	DefaultSampleRows = 200
	DefaultMaxChars   = 60000
)

const truncationMarker = "...TRUNCATED DUE TO SIZE LIMIT..."

// BuildRawContext serializes the loaded raw worksheets into delimited text
// blocks, one per worksheet, smallest worksheets first so more of them fit
// under the character budget. When a full-layer block would overflow, it is
// downgraded to a sample before the output is truncated.
func (d *Dataset) BuildRawContext(layer string, rowsPerSheet int, format string, maxChars int) string {
	raw := d.Raw()
	if len(raw) == 0 {
		return ""
	}

	layer = strings.ToLower(strings.TrimSpace(layer))
	if layer != LayerSchema && layer != LayerSamples && layer != LayerFull {
		layer = LayerSamples
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format != FormatCSV && format != FormatJSONL {
		format = FormatCSV
	}
	if rowsPerSheet < 1 {
		rowsPerSheet = DefaultSampleRows
	}
	if maxChars < 1 {
		maxChars = DefaultMaxChars
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := len(raw[keys[i]].Rows), len(raw[keys[j]].Rows)
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})

	header := fmt.Sprintf("=== DADOS BRUTOS (camada=%s, formato=%s) ===\n", layer, format)
	header += "Cada bloco possui demarcações: BEGIN_SHEET key=<planilha::aba> rows=<n> e END_SHEET.\n"
	header += "Use o delimitador para parsear de forma robusta.\n\n"

	var out strings.Builder
	out.WriteString(header)
	total := len(header)

	for _, key := range keys {
		sheet := raw[key]
		nRows := len(sheet.Rows)

		if layer == LayerSchema {
			block := fmt.Sprintf("BEGIN_SHEET key=%s rows=%d format=schema\ncolumns: %s\nEND_SHEET\n\n",
				key, nRows, strings.Join(sheet.Header, ", "))
			if total+len(block) > maxChars {
				out.WriteString(truncationMarker)
				break
			}
			out.WriteString(block)
			total += len(block)
			continue
		}

		rows := sheet.Rows
		if layer == LayerSamples && len(rows) > rowsPerSheet {
			rows = rows[:rowsPerSheet]
		}

		blockHeader := fmt.Sprintf("BEGIN_SHEET key=%s rows=%d format=%s\n", key, nRows, format)
		blockFooter := "\nEND_SHEET\n\n"
		block := blockHeader + renderSheet(sheet.Header, rows, format) + blockFooter

		if total+len(block) > maxChars {
			if layer == LayerFull && len(sheet.Rows) > rowsPerSheet {
				sample := blockHeader + renderSheet(sheet.Header, sheet.Rows[:rowsPerSheet], format) + blockFooter
				if total+len(sample) <= maxChars {
					out.WriteString(sample)
					total += len(sample)
					continue
				}
			}
			out.WriteString(truncationMarker)
			break
		}

		out.WriteString(block)
		total += len(block)
	}

	return out.String()
}

// BuildPeriodContext serializes every normalized transaction of one period
// (already resolved to year + month) so downstream consumers can recompute
// totals exactly. Oversized output is trimmed line by line, never mid-record.
func BuildPeriodContext(transactions []domain.Transaction, year, monthNum, format string, maxChars int) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != FormatCSV && format != FormatJSONL {
		format = FormatJSONL
	}
	if maxChars < 1 {
		maxChars = DefaultMaxChars
	}

	var rows []domain.Transaction
	for _, t := range transactions {
		if t.Year == year && t.MonthNum == monthNum {
			rows = append(rows, t)
		}
	}
	if len(rows) == 0 {
		return ""
	}

	header := fmt.Sprintf("BEGIN_DATA period=%s-%s format=%s\n", year, monthNum, format)
	footer := "\nEND_DATA\n"

	data := renderPeriod(rows, format)
	out := header + data + footer
	if len(out) <= maxChars {
		return out
	}

	lines := strings.Split(data, "\n")
	keep := 0
	if format == FormatCSV {
		keep = 1 // CSV header line always survives
	}
	total := len(header) + len(footer)
	for i := 0; i < keep; i++ {
		total += len(lines[i]) + 1
	}
	trimmed := lines[:keep]
	for _, line := range lines[keep:] {
		if total+len(line)+1 > maxChars {
			break
		}
		trimmed = append(trimmed, line)
		total += len(line) + 1
	}
	return header + strings.Join(trimmed, "\n") + footer + "\n" + truncationMarker + "\n"
}

type periodRecord struct {
	SourceSheet   string  `json:"source_sheet"`
	Product       string  `json:"product"`
	Quantity      float64 `json:"quantity"`
	Revenue       float64 `json:"revenue"`
	Year          string  `json:"year"`
	MonthNum      string  `json:"month_num"`
	Month         string  `json:"month"`
	TransactionID string  `json:"transaction_id"`
}

func renderPeriod(rows []domain.Transaction, format string) string {
	if format == FormatCSV {
		var b strings.Builder
		b.WriteString("source_sheet,product,quantity,revenue,year,month_num,month,transaction_id\n")
		for _, t := range rows {
			b.WriteString(csvField(t.SourceKey))
			b.WriteByte(',')
			b.WriteString(csvField(t.Product))
			b.WriteByte(',')
			b.WriteString(formatNumber(t.Quantity))
			b.WriteByte(',')
			b.WriteString(formatNumber(t.Revenue))
			b.WriteByte(',')
			b.WriteString(csvField(t.Year))
			b.WriteByte(',')
			b.WriteString(csvField(t.MonthNum))
			b.WriteByte(',')
			b.WriteString(csvField(normalize.MonthName(t.MonthNum)))
			b.WriteByte(',')
			b.WriteString(csvField(t.TransactionID))
			b.WriteByte('\n')
		}
		return strings.TrimSuffix(b.String(), "\n")
	}

	recs := make([]string, 0, len(rows))
	for _, t := range rows {
		rec := periodRecord{
			SourceSheet:   t.SourceKey,
			Product:       t.Product,
			Quantity:      t.Quantity,
			Revenue:       t.Revenue,
			Year:          t.Year,
			MonthNum:      t.MonthNum,
			Month:         normalize.MonthName(t.MonthNum),
			TransactionID: t.TransactionID,
		}
		encoded, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		recs = append(recs, string(encoded))
	}
	return strings.Join(recs, "\n")
}

// renderSheet renders header + rows in the requested format. JSONL keeps the
// original column order rather than sorting keys.
func renderSheet(header []string, rows [][]string, format string) string {
	if format == FormatCSV {
		var b strings.Builder
		writeCSVRow(&b, header)
		for _, row := range rows {
			writeCSVRow(&b, row)
		}
		return b.String()
	}

	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteByte('{')
		for j, col := range header {
			if j > 0 {
				b.WriteString(", ")
			}
			val := ""
			if j < len(row) {
				val = row[j]
			}
			b.Write(jsonString(col))
			b.WriteString(": ")
			b.Write(jsonString(val))
		}
		b.WriteByte('}')
	}
	return b.String()
}

func writeCSVRow(b *strings.Builder, row []string) {
	for i, cell := range row {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(csvField(cell))
	}
	b.WriteByte('\n')
}

func csvField(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
	}
	return s
}

func jsonString(s string) []byte {
	encoded, err := json.Marshal(s)
	if err != nil {
		return []byte(`""`)
	}
	return encoded
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
