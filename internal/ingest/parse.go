package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// table is a parsed sheet: a header row plus string cells.
type table struct {
	headers []string
	records [][]string
}

// parseCSV decodes delimited text, tolerating a leading BOM, sniffing the
// delimiter from the header line and falling back to ';' then ',' when a
// parse fails.
func parseCSV(data []byte) (*table, error) {
	text := strings.TrimPrefix(string(data), "\ufeff")

	delims := []rune{sniffDelimiter(text), ';', ','}
	var lastErr error
	for _, d := range delims {
		tbl, err := readDelimited(text, d)
		if err == nil {
			return tbl, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("parse csv: %w", lastErr)
}

// sniffDelimiter picks the candidate delimiter occurring most often in the
// first non-empty line.
func sniffDelimiter(text string) rune {
	line := text
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		line = text[:i]
	}
	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t', '|'} {
		if n := strings.Count(line, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func readDelimited(text string, delim rune) (*table, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	return &table{headers: records[0], records: records[1:]}, nil
}

// parseXLSX reads the first sheet of a binary spreadsheet.
func parseXLSX(data []byte) (*table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty sheet")
	}
	return &table{headers: rows[0], records: rows[1:]}, nil
}
