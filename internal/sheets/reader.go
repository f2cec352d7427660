package sheets

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"quasarcli/internal/errors"
	"quasarcli/pkg/contracts/domain"
)

// Downloader fetches the raw bytes of a binary Drive file. Satisfied by the
// drive client.
type Downloader interface {
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// Reader turns an enumerated source into raw worksheet tables. Native Google
// spreadsheets go through the Sheets API; XLSX and CSV files are downloaded
// and parsed locally.
type Reader struct {
	api        API
	downloader Downloader
	logger     *slog.Logger
	errlog     *errors.Log
	ignore     *regexp.Regexp
}

// NewReader creates a worksheet reader. ignorePattern filters worksheets by
// title (summary and dashboard tabs); an empty pattern disables filtering.
func NewReader(api API, downloader Downloader, ignorePattern string, logger *slog.Logger, errlog *errors.Log) (*Reader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if errlog == nil {
		errlog = errors.NewLog(0)
	}
	var ignore *regexp.Regexp
	if ignorePattern != "" {
		var err error
		ignore, err = regexp.Compile(ignorePattern)
		if err != nil {
			return nil, errors.NewConfigError("invalid ignore_sheets pattern", err)
		}
	}
	return &Reader{api: api, downloader: downloader, logger: logger, errlog: errlog, ignore: ignore}, nil
}

// Read fetches every readable worksheet of a source. Per-worksheet failures
// are logged and skipped; a source-level failure returns an error so the
// caller can preserve previously merged data for it.
func (r *Reader) Read(ctx context.Context, src domain.Source) ([]domain.RawSheet, error) {
	switch src.MimeType {
	case domain.MimeSpreadsheet:
		return r.readNative(ctx, src)
	case domain.MimeXLSX:
		data, err := r.downloader.Download(ctx, src.ID)
		if err != nil {
			return nil, err
		}
		return r.parseXLSX(src, data)
	case domain.MimeCSV:
		data, err := r.downloader.Download(ctx, src.ID)
		if err != nil {
			return nil, err
		}
		return r.parseCSV(src, data)
	}
	return nil, errors.NewParsingError("unsupported source mime type "+src.MimeType, nil)
}

func (r *Reader) readNative(ctx context.Context, src domain.Source) ([]domain.RawSheet, error) {
	meta, err := r.api.Spreadsheet(ctx, src.ID)
	if err != nil {
		return nil, err
	}
	name := meta.Title
	if name == "" {
		name = src.Name
	}

	var sheets []domain.RawSheet
	for _, ws := range meta.Worksheets {
		if r.ignored(ws.Title) {
			r.logger.DebugContext(ctx, "worksheet ignored by pattern",
				slog.String("spreadsheet", name),
				slog.String("worksheet", ws.Title))
			continue
		}
		cols := ws.ColumnCount
		if cols < 1 {
			cols = 26
		}
		a1 := "'" + strings.ReplaceAll(ws.Title, "'", "''") + "'!A:" + ColumnLetter(cols)
		rows, err := r.api.Values(ctx, src.ID, a1)
		if err != nil {
			r.errlog.Append("worksheet %s of %s: %v", ws.Title, name, err)
			r.logger.WarnContext(ctx, "skipping unreadable worksheet",
				slog.String("spreadsheet", name),
				slog.String("worksheet", ws.Title),
				slog.String("error", err.Error()))
			continue
		}
		if sheet, ok := r.buildSheet(src.ID, name, ws.Title, rows); ok {
			sheets = append(sheets, sheet)
		}
	}
	return sheets, nil
}

// buildSheet locates the header (first non-blank row) and splits the rest
// into data rows. All rows are squared to the widest one, extending the
// header with positional col_<i> names when data rows overflow it.
// Worksheets with no header or no data are dropped.
func (r *Reader) buildSheet(spreadsheetID, spreadsheetName, worksheet string, rows [][]string) (domain.RawSheet, bool) {
	headerIdx := -1
	for i, row := range rows {
		if !rowBlank(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 || headerIdx == len(rows)-1 {
		return domain.RawSheet{}, false
	}

	header := rows[headerIdx]
	width := len(header)
	var data [][]string
	for _, row := range rows[headerIdx+1:] {
		if rowBlank(row) {
			continue
		}
		if len(row) > width {
			width = len(row)
		}
		data = append(data, row)
	}
	if len(data) == 0 {
		return domain.RawSheet{}, false
	}
	header = padHeader(header, width)
	for i, row := range data {
		data[i] = padRow(row, width)
	}
	return domain.RawSheet{
		SpreadsheetID:   spreadsheetID,
		SpreadsheetName: spreadsheetName,
		Worksheet:       worksheet,
		Header:          header,
		Rows:            data,
	}, true
}

func (r *Reader) ignored(title string) bool {
	return r.ignore != nil && r.ignore.MatchString(title)
}

func rowBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// padRow right-pads a ragged row to the header width so column indexes
// stay valid.
func padRow(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}

// padHeader extends a short header to the table width with positional
// filler names so overflowing cells stay addressable as columns.
func padHeader(header []string, width int) []string {
	if len(header) >= width {
		return header
	}
	padded := make([]string, width)
	copy(padded, header)
	for i := len(header); i < width; i++ {
		padded[i] = "col_" + strconv.Itoa(i)
	}
	return padded
}
