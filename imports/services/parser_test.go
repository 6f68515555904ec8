package services

import (
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func newCSVSource(t *testing.T, content string) RowSource {
	t.Helper()
	source, err := NewCSVRowSource(io.NopCloser(strings.NewReader(content)))
	assert.NoError(t, err)
	return source
}

func TestCSVRowSourceNormalizesHeaders(t *testing.T) {
	source := newCSVSource(t, "\uFEFFSKU, Name ,PRICE\nA-1,Widget,9.99\n")
	defer source.Close()

	assert.Equal(t, []string{"sku", "name", "price"}, source.Headers())

	row, err := source.Next()
	assert.NoError(t, err)
	assert.Equal(t, []string{"A-1", "Widget", "9.99"}, row)

	_, err = source.Next()
	assert.Equal(t, io.EOF, err)
}

func TestCSVRowSourceEmptyFile(t *testing.T) {
	_, err := NewCSVRowSource(io.NopCloser(strings.NewReader("")))
	assert.Error(t, err)
}

func TestNewRecordParserMissingRequiredHeader(t *testing.T) {
	_, err := NewRecordParser([]string{"name", "price"})
	assert.Error(t, err)

	var missing *ErrMissingHeader
	assert.ErrorAs(t, err, &missing)
	assert.Equal(t, ColumnSKU, missing.Column)

	_, err = NewRecordParser([]string{"sku", "price"})
	assert.ErrorAs(t, err, &missing)
	assert.Equal(t, ColumnName, missing.Column)
}

func TestPresentColumnsTracksFileLayout(t *testing.T) {
	parser, err := NewRecordParser([]string{"sku", "name", "quantity", "ignored_column"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"sku", "name", "quantity"}, parser.PresentColumns())
}

func TestParseRecordValidRow(t *testing.T) {
	parser, err := NewRecordParser([]string{"sku", "name", "description", "price", "quantity", "is_active"})
	assert.NoError(t, err)

	record, rowErr := parser.ParseRecord([]string{"prod-001", "Widget", "Blue widget", "19.99", "5", "false"}, 2)
	assert.Nil(t, rowErr)
	assert.Equal(t, "PROD-001", record.SKU)
	assert.Equal(t, "Widget", record.Name)
	assert.Equal(t, "Blue widget", *record.Description)
	assert.True(t, record.Price.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, 5, record.Quantity)
	assert.False(t, record.IsActive)
	assert.Equal(t, int64(2), record.RowNumber)
}

func TestParseRecordDefaults(t *testing.T) {
	parser, err := NewRecordParser([]string{"sku", "name"})
	assert.NoError(t, err)

	record, rowErr := parser.ParseRecord([]string{"a-1", "Widget"}, 2)
	assert.Nil(t, rowErr)
	assert.True(t, record.IsActive)
	assert.Nil(t, record.Price)
	assert.Nil(t, record.Description)
	assert.Equal(t, 0, record.Quantity)
}

func TestParseRecordErrors(t *testing.T) {
	parser, err := NewRecordParser([]string{"sku", "name", "price", "quantity", "is_active"})
	assert.NoError(t, err)

	tests := []struct {
		name  string
		row   []string
		field string
	}{
		{"missing sku", []string{"", "Widget", "1.00", "1", "true"}, ColumnSKU},
		{"missing name", []string{"A-1", "", "1.00", "1", "true"}, ColumnName},
		{"invalid price", []string{"A-1", "Widget", "abc", "1", "true"}, ColumnPrice},
		{"negative price", []string{"A-1", "Widget", "-1.00", "1", "true"}, ColumnPrice},
		{"invalid quantity", []string{"A-1", "Widget", "1.00", "five", "true"}, ColumnQuantity},
		{"negative quantity", []string{"A-1", "Widget", "1.00", "-2", "true"}, ColumnQuantity},
		{"invalid is_active", []string{"A-1", "Widget", "1.00", "1", "maybe"}, ColumnIsActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rowErr := parser.ParseRecord(tt.row, 3)
			assert.NotNil(t, rowErr)
			assert.Equal(t, tt.field, rowErr.Field)
			assert.Equal(t, int64(3), rowErr.RowNumber)
			assert.NotEmpty(t, rowErr.Reason)
		})
	}
}

func TestParseRecordShortRow(t *testing.T) {
	parser, err := NewRecordParser([]string{"sku", "name", "price"})
	assert.NoError(t, err)

	// Row with fewer columns than the header: trailing columns are absent.
	record, rowErr := parser.ParseRecord([]string{"a-1", "Widget"}, 4)
	assert.Nil(t, rowErr)
	assert.Nil(t, record.Price)
}
