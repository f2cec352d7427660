package sheets

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"quasarcli/internal/errors"
	"quasarcli/internal/infrastructure"
)

const spreadsheetFields = "properties.title,sheets.properties(title,gridProperties.columnCount)"

// GoogleSheets implements API on top of the Sheets v4 service, sharing the
// rate limiter with the Drive client so the combined read rate stays bounded.
type GoogleSheets struct {
	svc     *gsheets.Service
	limiter *rate.Limiter
	retrier infrastructure.Retrier
}

// NewGoogleSheets builds a Sheets client from a service-account credentials file.
func NewGoogleSheets(ctx context.Context, credentialsFile string, limiter *rate.Limiter, retrier infrastructure.Retrier) (*GoogleSheets, error) {
	svc, err := gsheets.NewService(ctx, option.WithCredentialsFile(credentialsFile), option.WithScopes(gsheets.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, errors.NewConfigError("failed to create sheets service", err)
	}
	return &GoogleSheets{svc: svc, limiter: limiter, retrier: retrier}, nil
}

// Spreadsheet fetches the spreadsheet title and per-worksheet column counts.
func (g *GoogleSheets) Spreadsheet(ctx context.Context, spreadsheetID string) (SpreadsheetMeta, error) {
	var ss *gsheets.Spreadsheet
	err := g.retrier.Do(ctx, "sheets.spreadsheets.get", func() error {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		var callErr error
		ss, callErr = g.svc.Spreadsheets.Get(spreadsheetID).
			Fields(spreadsheetFields).
			Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return SpreadsheetMeta{}, errors.NewNetworkError(fmt.Sprintf("spreadsheet fetch for %s failed", spreadsheetID), err)
	}

	meta := SpreadsheetMeta{}
	if ss.Properties != nil {
		meta.Title = ss.Properties.Title
	}
	for _, sheet := range ss.Sheets {
		if sheet.Properties == nil {
			continue
		}
		ws := WorksheetMeta{Title: sheet.Properties.Title}
		if sheet.Properties.GridProperties != nil {
			ws.ColumnCount = sheet.Properties.GridProperties.ColumnCount
		}
		meta.Worksheets = append(meta.Worksheets, ws)
	}
	return meta, nil
}

// Values fetches one A1 range. Unformatted numeric values keep full
// precision; dates render as the sheet displays them.
func (g *GoogleSheets) Values(ctx context.Context, spreadsheetID, a1Range string) ([][]string, error) {
	var vr *gsheets.ValueRange
	err := g.retrier.Do(ctx, "sheets.values.get", func() error {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		var callErr error
		vr, callErr = g.svc.Spreadsheets.Values.Get(spreadsheetID, a1Range).
			ValueRenderOption("UNFORMATTED_VALUE").
			DateTimeRenderOption("FORMATTED_STRING").
			Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return nil, errors.NewNetworkError(fmt.Sprintf("range %s of %s failed", a1Range, spreadsheetID), err)
	}

	rows := make([][]string, 0, len(vr.Values))
	for _, raw := range vr.Values {
		row := make([]string, len(raw))
		for i, cell := range raw {
			row[i] = cellToString(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// cellToString renders a JSON cell value the way the sheet holds it.
// Unformatted numbers arrive as float64 and must not pick up an exponent.
func cellToString(cell interface{}) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ColumnLetter converts a 1-based column index to its A1 letter form
// (1 → A, 26 → Z, 27 → AA).
func ColumnLetter(n int64) string {
	if n < 1 {
		return "A"
	}
	letters := ""
	for n > 0 {
		n--
		letters = string(rune('A'+n%26)) + letters
		n /= 26
	}
	return letters
}
