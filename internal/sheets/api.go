package sheets

import "context"

// WorksheetMeta describes one tab of a spreadsheet.
type WorksheetMeta struct {
	Title       string
	ColumnCount int64
}

// SpreadsheetMeta is the metadata needed to plan worksheet reads.
type SpreadsheetMeta struct {
	Title      string
	Worksheets []WorksheetMeta
}

// API is the minimal Sheets surface the reader needs. Satisfied by
// GoogleSheets in production and by fakes in tests.
type API interface {
	// Spreadsheet fetches the spreadsheet title and its worksheet grid shapes.
	Spreadsheet(ctx context.Context, spreadsheetID string) (SpreadsheetMeta, error)
	// Values fetches one A1 range as string cells.
	Values(ctx context.Context, spreadsheetID, a1Range string) ([][]string, error)
}
