// Package delimited writes and reads the converted table as CSV or TSV.
package delimited

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/ChrisMcGann/ppmconc/pkg/convert"
	"github.com/gocarina/gocsv"
)

// Write writes rows with a header line, separated by comma.
func Write(w io.Writer, rows []convert.Row, comma rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma

	if err := gocsv.MarshalCSV(&rows, gocsv.NewSafeCSVWriter(cw)); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

// Read reads a table previously written by Write.
func Read(r io.Reader, comma rune) ([]convert.Row, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma

	var rows []convert.Row
	if err := gocsv.UnmarshalCSV(cr, &rows); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return rows, nil
}
