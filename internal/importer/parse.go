package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFile = errors.New("unsupported file type (expected .csv or .xlsx)")

// MaxRows bounds a single import batch.
const MaxRows = 5000

// Parse reads a CSV or XLSX file into loosely-typed rows keyed by the raw
// header text. Fully empty lines are skipped.
func Parse(fileName string, r io.Reader) ([]map[string]any, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv", ".txt":
		return ParseCSV(r)
	case ".xlsx", ".xlsm":
		return ParseXLSX(r)
	default:
		return nil, ErrUnsupportedFile
	}
}

// ParseCSV accepts comma or semicolon separated files (the latter is what
// French spreadsheet exports produce).
func ParseCSV(r io.Reader) ([]map[string]any, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(4096)
	sep := ','
	if line, _, _ := bytes.Cut(head, []byte("\n")); bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		sep = ';'
	}

	cr := csv.NewReader(br)
	cr.Comma = sep
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return toRows(records)
}

// ParseXLSX reads the first worksheet.
func ParseXLSX(r io.Reader) ([]map[string]any, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("xlsx has no sheet")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return toRows(records)
}

func toRows(records [][]string) ([]map[string]any, error) {
	if len(records) == 0 {
		return nil, nil
	}
	headers := records[0]
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}

	out := make([]map[string]any, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]any, len(headers))
		empty := true
		for i, h := range headers {
			h = strings.TrimSpace(h)
			if h == "" || i >= len(rec) {
				continue
			}
			v := strings.TrimSpace(rec[i])
			if v != "" {
				empty = false
			}
			row[h] = v
		}
		if empty {
			continue
		}
		if len(out) == MaxRows {
			return nil, fmt.Errorf("too many rows (max %d)", MaxRows)
		}
		out = append(out, row)
	}
	return out, nil
}
