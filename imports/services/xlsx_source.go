package services

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// xlsxRowSource streams rows from the first sheet of an Excel workbook using
// the excelize row iterator, so large workbooks are never fully materialized.
type xlsxRowSource struct {
	file    *excelize.File
	rows    *excelize.Rows
	headers []string
}

func NewXLSXRowSource(path string) (RowSource, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}

	sheetName := f.GetSheetName(0)
	rows, err := f.Rows(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading sheet %q: %w", sheetName, err)
	}

	if !rows.Next() {
		rows.Close()
		f.Close()
		return nil, errors.New("file is empty")
	}
	header, err := rows.Columns()
	if err != nil {
		rows.Close()
		f.Close()
		return nil, fmt.Errorf("reading header row: %w", err)
	}

	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}

	return &xlsxRowSource{file: f, rows: rows, headers: headers}, nil
}

func (s *xlsxRowSource) Headers() []string { return s.headers }

func (s *xlsxRowSource) Next() ([]string, error) {
	if !s.rows.Next() {
		if err := s.rows.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return s.rows.Columns()
}

func (s *xlsxRowSource) Close() error {
	s.rows.Close()
	return s.file.Close()
}
