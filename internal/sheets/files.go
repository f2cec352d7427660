package sheets

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/xuri/excelize/v2"

	"quasarcli/internal/errors"
	"quasarcli/pkg/contracts/domain"
)

// parseXLSX extracts every sheet of a downloaded XLSX workbook, applying the
// same ignore pattern and header detection as the native path.
func (r *Reader) parseXLSX(src domain.Source, data []byte) ([]domain.RawSheet, error) {
	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewParsingError("failed to open xlsx workbook "+src.Name, err)
	}
	defer book.Close()

	var sheets []domain.RawSheet
	for _, title := range book.GetSheetList() {
		if r.ignored(title) {
			continue
		}
		rows, err := book.GetRows(title)
		if err != nil {
			r.errlog.Append("xlsx sheet %s of %s: %v", title, src.Name, err)
			continue
		}
		if sheet, ok := r.buildSheet(src.ID, src.Name, title, rows); ok {
			sheets = append(sheets, sheet)
		}
	}
	return sheets, nil
}

// parseCSV treats a downloaded CSV file as a single-worksheet source keyed
// by the file name.
func (r *Reader) parseCSV(src domain.Source, data []byte) ([]domain.RawSheet, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewParsingError("failed to parse csv file "+src.Name, err)
		}
		rows = append(rows, record)
	}

	if sheet, ok := r.buildSheet(src.ID, src.Name, src.Name, rows); ok {
		return []domain.RawSheet{sheet}, nil
	}
	return nil, nil
}
