// Package tsv reads header-bearing delimited abundance tables
package tsv

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/ChrisMcGann/ppmconc/pkg/core"
	"github.com/csimplestring/go-csv/detector"
	"github.com/gocarina/gocsv"
)

// Required column names.
const (
	ColumnID        = "ENSPID"
	ColumnAbundance = "abundance"
)

// Delimiters a table may use; anything else the sniffer suggests is ignored.
var Delimiters = []rune{'\t', ',', ';'}

// MissingColumnError is returned when the header lacks a required column.
type MissingColumnError struct {
	Column string
	Header []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column %q (header: %s)", e.Column, strings.Join(e.Header, ", "))
}

type record struct {
	ENSPID    string  `csv:"ENSPID"`
	Abundance float64 `csv:"abundance"`
}

// Reader iterates over the rows of a delimited table. The table is parsed
// up front so header and value errors surface from NewReader.
type Reader struct {
	rows    []*core.Measurement
	pos     int
	current *core.Measurement
	comma   rune
}

// NewReader parses a delimited table with at least ENSPID and abundance columns.
func NewReader(r io.Reader) (*Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("table is empty")
	}

	comma := DetermineDelimiter(data)

	if err := checkHeader(data, comma); err != nil {
		return nil, err
	}

	csvReader := csv.NewReader(bytes.NewReader(data))
	csvReader.Comma = comma
	csvReader.LazyQuotes = true
	csvReader.TrimLeadingSpace = true

	records := []*record{}
	if err := gocsv.UnmarshalCSV(csvReader, &records); err != nil {
		return nil, fmt.Errorf("failed to parse table: %w", err)
	}

	rows := make([]*core.Measurement, 0, len(records))
	for i, rec := range records {
		id := strings.TrimSpace(rec.ENSPID)
		if id == "" {
			return nil, fmt.Errorf("row %d: empty %s", i+2, ColumnID)
		}
		rows = append(rows, &core.Measurement{
			ExternalID: id,
			ID:         id,
			Abundance:  rec.Abundance,
			Line:       i + 2,
		})
	}

	return &Reader{rows: rows, comma: comma}, nil
}

// DetermineDelimiter returns the most likely delimiter among Delimiters.
// When several are consistent, the earliest in Delimiters wins; tab is the
// default.
func DetermineDelimiter(data []byte) rune {
	d := detector.New()
	candidates := d.DetectDelimiter(bytes.NewReader(data), '"')

	// The detector returns candidates in map order; pick by preference
	found := make(map[rune]bool, len(candidates))
	for _, c := range candidates {
		if c != "" {
			found[rune(c[0])] = true
		}
	}
	for _, allowed := range Delimiters {
		if found[allowed] {
			return allowed
		}
	}

	// Fall back on what the header line contains
	header := firstLine(data)
	for _, allowed := range Delimiters {
		if strings.ContainsRune(header, allowed) {
			return allowed
		}
	}

	return '\t'
}

// Delimiter returns the delimiter the table was parsed with.
func (r *Reader) Delimiter() rune {
	return r.comma
}

// Next advances to the next row.
func (r *Reader) Next() bool {
	if r.pos >= len(r.rows) {
		r.current = nil
		return false
	}
	r.current = r.rows[r.pos]
	r.pos++
	return true
}

// Measurement returns the current row
func (r *Reader) Measurement() *core.Measurement {
	return r.current
}

// Err always returns nil; parse errors are reported by NewReader.
func (r *Reader) Err() error {
	return nil
}

func checkHeader(data []byte, comma rune) error {
	fields := strings.Split(firstLine(data), string(comma))
	for i := range fields {
		fields[i] = strings.Trim(strings.TrimSpace(fields[i]), `"`)
	}

	for _, required := range []string{ColumnID, ColumnAbundance} {
		found := false
		for _, f := range fields {
			if f == required {
				found = true
				break
			}
		}
		if !found {
			return &MissingColumnError{Column: required, Header: fields}
		}
	}
	return nil
}

func firstLine(data []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	if scanner.Scan() {
		return strings.TrimRight(scanner.Text(), "\r")
	}
	return ""
}
