package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Required columns. Every other recognized column is optional and
// unrecognized columns are ignored entirely.
const (
	ColumnSKU         = "sku"
	ColumnName        = "name"
	ColumnDescription = "description"
	ColumnPrice       = "price"
	ColumnQuantity    = "quantity"
	ColumnIsActive    = "is_active"
)

var optionalColumns = []string{ColumnDescription, ColumnPrice, ColumnQuantity, ColumnIsActive}

// ErrMissingHeader is returned when a required column is absent from the file
// header. This is fatal: the job fails with zero rows processed.
type ErrMissingHeader struct {
	Column string
}

func (e *ErrMissingHeader) Error() string {
	return fmt.Sprintf("required column %q is missing from the file header", e.Column)
}

// RowError records one recoverable per-row decoding problem.
type RowError struct {
	RowNumber int64  `json:"row_number"` // 1-based, counting the header as row 1
	Field     string `json:"field"`
	Reason    string `json:"reason"`
	Raw       []string
}

// ProductRecord is one successfully decoded row, SKU already normalized.
type ProductRecord struct {
	RowNumber   int64
	SKU         string
	Name        string
	Description *string
	Price       *decimal.Decimal
	Quantity    int
	IsActive    bool
}

// RowSource yields raw rows from an uploaded file without materializing it.
// The sequence is lazy, finite and non-restartable.
type RowSource interface {
	// Headers returns the header row, lower-cased and trimmed.
	Headers() []string
	// Next returns the next data row, or io.EOF when exhausted. A non-nil
	// row may accompany a row-scoped error (e.g. column-count mismatch).
	Next() ([]string, error)
	Close() error
}

// csvRowSource streams rows from a CSV byte stream.
type csvRowSource struct {
	reader  *csv.Reader
	headers []string
	closer  io.Closer
}

// NewCSVRowSource reads the header row eagerly and streams the rest.
func NewCSVRowSource(r io.ReadCloser) (RowSource, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // column-count mismatches are handled per row
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header row: %w", err)
	}

	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
	}

	return &csvRowSource{reader: cr, headers: headers, closer: r}, nil
}

func (s *csvRowSource) Headers() []string { return s.headers }

func (s *csvRowSource) Next() ([]string, error) {
	row, err := s.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	var parseErr *csv.ParseError
	if err != nil && errors.As(err, &parseErr) {
		// Recoverable: caller records a RowError and keeps consuming.
		return row, err
	}
	return row, err
}

func (s *csvRowSource) Close() error { return s.closer.Close() }

// RecordParser validates raw rows against the resolved header layout.
type RecordParser struct {
	columns map[string]int // column name -> position in the row
}

// NewRecordParser resolves the header set. A missing required header is fatal.
func NewRecordParser(headers []string) (*RecordParser, error) {
	columns := make(map[string]int, len(headers))
	for i, h := range headers {
		columns[h] = i
	}
	for _, required := range []string{ColumnSKU, ColumnName} {
		if _, ok := columns[required]; !ok {
			return nil, &ErrMissingHeader{Column: required}
		}
	}
	return &RecordParser{columns: columns}, nil
}

// PresentColumns returns the database column names this file actually carries.
// Columns absent from the file are left untouched on update and take their
// defaults on insert.
func (p *RecordParser) PresentColumns() []string {
	present := []string{ColumnSKU, ColumnName}
	for _, col := range optionalColumns {
		if _, ok := p.columns[col]; ok {
			present = append(present, col)
		}
	}
	return present
}

func (p *RecordParser) field(row []string, name string) (string, bool) {
	idx, ok := p.columns[name]
	if !ok || idx >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[idx]), true
}

// ParseRecord decodes one raw row. A decoding problem yields a RowError and
// never stops the stream.
func (p *RecordParser) ParseRecord(row []string, rowNumber int64) (ProductRecord, *RowError) {
	fail := func(field, reason string) (ProductRecord, *RowError) {
		return ProductRecord{}, &RowError{RowNumber: rowNumber, Field: field, Reason: reason, Raw: row}
	}

	sku, _ := p.field(row, ColumnSKU)
	if sku == "" {
		return fail(ColumnSKU, "SKU is required")
	}
	name, _ := p.field(row, ColumnName)
	if name == "" {
		return fail(ColumnName, "Name is required")
	}

	record := ProductRecord{
		RowNumber: rowNumber,
		SKU:       strings.ToUpper(sku),
		Name:      name,
		IsActive:  true,
	}

	if v, ok := p.field(row, ColumnDescription); ok && v != "" {
		record.Description = &v
	}

	if v, ok := p.field(row, ColumnPrice); ok && v != "" {
		price, err := decimal.NewFromString(v)
		if err != nil {
			return fail(ColumnPrice, fmt.Sprintf("Invalid price format: %s", v))
		}
		if price.IsNegative() {
			return fail(ColumnPrice, "Price cannot be negative")
		}
		record.Price = &price
	}

	if v, ok := p.field(row, ColumnQuantity); ok && v != "" {
		quantity, err := strconv.Atoi(v)
		if err != nil {
			return fail(ColumnQuantity, fmt.Sprintf("Invalid quantity format: %s", v))
		}
		if quantity < 0 {
			return fail(ColumnQuantity, "Quantity cannot be negative")
		}
		record.Quantity = quantity
	}

	if v, ok := p.field(row, ColumnIsActive); ok && v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return fail(ColumnIsActive, fmt.Sprintf("Invalid is_active value: %s", v))
		}
		record.IsActive = active
	}

	return record, nil
}
