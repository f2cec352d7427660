package domain

import (
	"strconv"
	"strings"
	"time"
)

// KeySeparator joins a spreadsheet id and a worksheet title into a table key.
const KeySeparator = "::"

// Transaction represents one normalized sales record with fixed field names,
// independent of the source header spelling or language.
type Transaction struct {
	Product       string    `json:"product" db:"product"`
	Quantity      float64   `json:"quantity" db:"quantity"`
	Revenue       float64   `json:"revenue" db:"revenue"`
	UnitPrice     float64   `json:"unit_price,omitempty" db:"unit_price"`
	HasUnitPrice  bool      `json:"-" db:"-"`
	Category      string    `json:"category,omitempty" db:"category"`
	Region        string    `json:"region,omitempty" db:"region"`
	Date          time.Time `json:"date,omitempty" db:"date"`
	HasDate       bool      `json:"-" db:"-"`
	Year          string    `json:"year" db:"year"`
	MonthNum      string    `json:"month_num" db:"month_num"`
	TransactionID string    `json:"transaction_id,omitempty" db:"transaction_id"`
	SourceKey     string    `json:"source_sheet" db:"source_sheet"`
}

// Month returns the numeric month (1-12), or 0 when the period is unknown.
func (t Transaction) Month() int {
	m, err := strconv.Atoi(t.MonthNum)
	if err != nil || m < 1 || m > 12 {
		return 0
	}
	return m
}

// Identifier returns the product name, falling back to the transaction id.
func (t Transaction) Identifier() string {
	if t.Product != "" {
		return t.Product
	}
	return t.TransactionID
}

// Table is an ordered collection of normalized transactions for one
// (spreadsheet, worksheet) pair.
type Table struct {
	SpreadsheetID string        `json:"spreadsheet_id"`
	Worksheet     string        `json:"worksheet"`
	Columns       []string      `json:"columns"`
	Rows          []Transaction `json:"rows"`
}

// Key returns the table identity key "<spreadsheet_id>::<worksheet_title>".
func (t Table) Key() string {
	return t.SpreadsheetID + KeySeparator + t.Worksheet
}

// Empty reports whether the table holds no rows.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// SplitKey splits a table key back into spreadsheet id and worksheet title.
// A key without separator is treated as a bare spreadsheet id.
func SplitKey(key string) (spreadsheetID, worksheet string) {
	if i := strings.Index(key, KeySeparator); i >= 0 {
		return key[:i], key[i+len(KeySeparator):]
	}
	return key, ""
}

// RawSheet is the transient pre-normalization form of one worksheet:
// a header row plus string data rows. Discarded after normalization.
type RawSheet struct {
	SpreadsheetID   string
	SpreadsheetName string
	Worksheet       string
	Header          []string
	Rows            [][]string
}

// Key returns the sheet identity key, matching the normalized table key.
func (r RawSheet) Key() string {
	return r.SpreadsheetID + KeySeparator + r.Worksheet
}

// Source describes one enumerated spreadsheet source.
type Source struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mime_type"`
	ModifiedTime string `json:"modified_time,omitempty"`
	SharedDrive  bool   `json:"shared_drive,omitempty"`
}

// Google Drive mime types handled by the enumerator.
const (
	MimeSpreadsheet = "application/vnd.google-apps.spreadsheet"
	MimeFolder      = "application/vnd.google-apps.folder"
	MimeShortcut    = "application/vnd.google-apps.shortcut"
	MimeCSV         = "text/csv"
	MimeXLSX        = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)
