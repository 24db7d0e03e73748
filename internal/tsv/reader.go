// Package tsv reads and writes the tab-delimited result-table wire format:
// UTF-8 text, mandatory header row, "NA" or an empty cell for missing
// numeric values.
package tsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// RawTable is an untyped table straight off the wire: the header and the
// string cells, in input order. The schema validator turns it into a typed
// result.Table.
type RawTable struct {
	Columns []string
	Rows    [][]string
	Path    string // source path when read from a file, informational
}

// Read parses a tab-delimited table with a header row.
func Read(r io.Reader) (*RawTable, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty table: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var rows [][]string
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(rows)+2, err)
		}
		rows = append(rows, row)
	}

	return &RawTable{Columns: header, Rows: rows}, nil
}

// ReadFile parses a tab-delimited table from disk.
func ReadFile(path string) (*RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table %s: %w", path, err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t.Path = path
	return t, nil
}

// Index returns the position of a column in the header, or -1.
func (t *RawTable) Index(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Cell returns the value at (row, column index), tolerating ragged rows.
func (t *RawTable) Cell(row, idx int) string {
	if idx < 0 || idx >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][idx]
}

// IsMissing reports whether a cell encodes a missing value.
func IsMissing(cell string) bool {
	switch cell {
	case "", "NA", "NaN", "nan", "na":
		return true
	}
	return false
}
