package sheets

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"quasarcli/internal/errors"
	"quasarcli/pkg/contracts/domain"
)

type fakeSheetsAPI struct {
	meta      map[string]SpreadsheetMeta
	values    map[string][][]string
	valuesErr map[string]error
}

func (f *fakeSheetsAPI) Spreadsheet(_ context.Context, id string) (SpreadsheetMeta, error) {
	meta, ok := f.meta[id]
	if !ok {
		return SpreadsheetMeta{}, errors.NewNotFoundError("spreadsheet not found: "+id, nil)
	}
	return meta, nil
}

func (f *fakeSheetsAPI) Values(_ context.Context, id, a1Range string) ([][]string, error) {
	key := id + "/" + a1Range
	if err := f.valuesErr[key]; err != nil {
		return nil, err
	}
	return f.values[key], nil
}

type fakeDownloader struct {
	data map[string][]byte
}

func (f *fakeDownloader) Download(_ context.Context, id string) ([]byte, error) {
	data, ok := f.data[id]
	if !ok {
		return nil, errors.NewNotFoundError("no media for "+id, nil)
	}
	return data, nil
}

func nativeSource(id, name string) domain.Source {
	return domain.Source{ID: id, Name: name, MimeType: domain.MimeSpreadsheet}
}

func TestReadNativeSpreadsheet(t *testing.T) {
	api := &fakeSheetsAPI{
		meta: map[string]SpreadsheetMeta{
			"s1": {Title: "Planilha Vendas", Worksheets: []WorksheetMeta{{Title: "Vendas", ColumnCount: 3}}},
		},
		values: map[string][][]string{
			"s1/'Vendas'!A:C": {
				{"Produto", "Quantidade", "Receita"},
				{"Laptop", "2", "4990"},
			},
		},
	}
	r, err := NewReader(api, &fakeDownloader{}, "", nil, nil)
	require.NoError(t, err)

	sheets, err := r.Read(context.Background(), nativeSource("s1", "arquivo"))
	require.NoError(t, err)
	require.Len(t, sheets, 1)

	got := sheets[0]
	assert.Equal(t, "s1", got.SpreadsheetID)
	assert.Equal(t, "Planilha Vendas", got.SpreadsheetName)
	assert.Equal(t, "Vendas", got.Worksheet)
	assert.Equal(t, []string{"Produto", "Quantidade", "Receita"}, got.Header)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "Laptop", got.Rows[0][0])
}

func TestReadHeaderDetection(t *testing.T) {
	api := &fakeSheetsAPI{
		meta: map[string]SpreadsheetMeta{
			"s1": {Title: "P", Worksheets: []WorksheetMeta{{Title: "Aba", ColumnCount: 2}}},
		},
		values: map[string][][]string{
			"s1/'Aba'!A:B": {
				{"", ""},
				{},
				{"Produto", "Receita"},
				{"Laptop", "100"},
				{"", " "},
				{"Mouse"},
			},
		},
	}
	r, err := NewReader(api, &fakeDownloader{}, "", nil, nil)
	require.NoError(t, err)

	sheets, err := r.Read(context.Background(), nativeSource("s1", "arquivo"))
	require.NoError(t, err)
	require.Len(t, sheets, 1)

	got := sheets[0]
	assert.Equal(t, []string{"Produto", "Receita"}, got.Header)
	require.Len(t, got.Rows, 2)
	// Ragged rows are padded to the header width.
	assert.Equal(t, []string{"Mouse", ""}, got.Rows[1])
}

func TestReadHeaderExtendedToWidestRow(t *testing.T) {
	api := &fakeSheetsAPI{
		meta: map[string]SpreadsheetMeta{
			"s1": {Title: "P", Worksheets: []WorksheetMeta{{Title: "Aba", ColumnCount: 4}}},
		},
		values: map[string][][]string{
			"s1/'Aba'!A:D": {
				{"Produto", "Receita"},
				{"Laptop", "100", "T-202403-0001", "Sul"},
				{"Mouse", "50"},
			},
		},
	}
	r, err := NewReader(api, &fakeDownloader{}, "", nil, nil)
	require.NoError(t, err)

	sheets, err := r.Read(context.Background(), nativeSource("s1", "arquivo"))
	require.NoError(t, err)
	require.Len(t, sheets, 1)

	got := sheets[0]
	// Overflowing cells get positional filler columns so they stay bindable.
	assert.Equal(t, []string{"Produto", "Receita", "col_2", "col_3"}, got.Header)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, []string{"Laptop", "100", "T-202403-0001", "Sul"}, got.Rows[0])
	assert.Equal(t, []string{"Mouse", "50", "", ""}, got.Rows[1])
}

func TestReadIgnorePattern(t *testing.T) {
	api := &fakeSheetsAPI{
		meta: map[string]SpreadsheetMeta{
			"s1": {Title: "P", Worksheets: []WorksheetMeta{
				{Title: "Resumo", ColumnCount: 2},
				{Title: "Dashboard 2024", ColumnCount: 2},
				{Title: "Vendas", ColumnCount: 2},
			}},
		},
		values: map[string][][]string{
			"s1/'Vendas'!A:B": {
				{"Produto", "Receita"},
				{"Laptop", "100"},
			},
		},
	}
	r, err := NewReader(api, &fakeDownloader{}, `(?i)^(resumo|dashboard)`, nil, nil)
	require.NoError(t, err)

	sheets, err := r.Read(context.Background(), nativeSource("s1", "arquivo"))
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	assert.Equal(t, "Vendas", sheets[0].Worksheet)
}

func TestReadSkipsUnreadableWorksheet(t *testing.T) {
	api := &fakeSheetsAPI{
		meta: map[string]SpreadsheetMeta{
			"s1": {Title: "P", Worksheets: []WorksheetMeta{
				{Title: "Quebrada", ColumnCount: 2},
				{Title: "Vendas", ColumnCount: 2},
			}},
		},
		values: map[string][][]string{
			"s1/'Vendas'!A:B": {
				{"Produto", "Receita"},
				{"Laptop", "100"},
			},
		},
		valuesErr: map[string]error{
			"s1/'Quebrada'!A:B": errors.NewNetworkError("boom", nil),
		},
	}
	errlog := errors.NewLog(10)
	r, err := NewReader(api, &fakeDownloader{}, "", nil, errlog)
	require.NoError(t, err)

	sheets, err := r.Read(context.Background(), nativeSource("s1", "arquivo"))
	require.NoError(t, err)
	assert.Len(t, sheets, 1)
	assert.Equal(t, 1, errlog.Len())
}

func TestReadEmptyWorksheetsDropped(t *testing.T) {
	api := &fakeSheetsAPI{
		meta: map[string]SpreadsheetMeta{
			"s1": {Title: "P", Worksheets: []WorksheetMeta{
				{Title: "SoHeader", ColumnCount: 2},
				{Title: "Vazia", ColumnCount: 2},
			}},
		},
		values: map[string][][]string{
			"s1/'SoHeader'!A:B": {{"Produto", "Receita"}},
			"s1/'Vazia'!A:B":    {},
		},
	}
	r, err := NewReader(api, &fakeDownloader{}, "", nil, nil)
	require.NoError(t, err)

	sheets, err := r.Read(context.Background(), nativeSource("s1", "arquivo"))
	require.NoError(t, err)
	assert.Empty(t, sheets)
}

func TestReadCSVSource(t *testing.T) {
	dl := &fakeDownloader{data: map[string][]byte{
		"csv1": []byte("Produto,Receita\nLaptop,100\nMouse,50\n"),
	}}
	r, err := NewReader(&fakeSheetsAPI{}, dl, "", nil, nil)
	require.NoError(t, err)

	sheets, err := r.Read(context.Background(), domain.Source{ID: "csv1", Name: "vendas.csv", MimeType: domain.MimeCSV})
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	assert.Equal(t, "vendas.csv", sheets[0].Worksheet)
	assert.Equal(t, []string{"Produto", "Receita"}, sheets[0].Header)
	assert.Len(t, sheets[0].Rows, 2)
}

func TestReadXLSXSource(t *testing.T) {
	book := excelize.NewFile()
	sheetName := "Vendas Março 2024"
	book.SetSheetName(book.GetSheetName(0), sheetName)
	book.SetCellValue(sheetName, "A1", "Produto")
	book.SetCellValue(sheetName, "B1", "Receita")
	book.SetCellValue(sheetName, "A2", "Laptop")
	book.SetCellValue(sheetName, "B2", "4990")

	var buf bytes.Buffer
	require.NoError(t, book.Write(&buf))

	dl := &fakeDownloader{data: map[string][]byte{"x1": buf.Bytes()}}
	r, err := NewReader(&fakeSheetsAPI{}, dl, "", nil, nil)
	require.NoError(t, err)

	sheets, err := r.Read(context.Background(), domain.Source{ID: "x1", Name: "vendas.xlsx", MimeType: domain.MimeXLSX})
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	assert.Equal(t, sheetName, sheets[0].Worksheet)
	assert.Equal(t, []string{"Produto", "Receita"}, sheets[0].Header)
	require.Len(t, sheets[0].Rows, 1)
	assert.Equal(t, "Laptop", sheets[0].Rows[0][0])
}

func TestReadUnsupportedMime(t *testing.T) {
	r, err := NewReader(&fakeSheetsAPI{}, &fakeDownloader{}, "", nil, nil)
	require.NoError(t, err)

	_, err = r.Read(context.Background(), domain.Source{ID: "d1", MimeType: "application/pdf"})
	assert.Error(t, err)
}

func TestColumnLetter(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{1, "A"}, {2, "B"}, {26, "Z"}, {27, "AA"}, {52, "AZ"}, {53, "BA"}, {702, "ZZ"}, {703, "AAA"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ColumnLetter(tt.n))
	}
	assert.Equal(t, "A", ColumnLetter(0))
}

func TestReadBadIgnorePattern(t *testing.T) {
	_, err := NewReader(&fakeSheetsAPI{}, &fakeDownloader{}, "([", nil, nil)
	assert.Error(t, err)
}
