// Package paxdb provides a streaming reader for PAXdb abundance files
package paxdb

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/ppmconc/pkg/core"
)

// CommentPrefix marks header lines in PAXdb dataset files.
const CommentPrefix = "#"

// Reader provides streaming access to PAXdb format files
//
// Rows look like "9606.ENSP00000269305\t2.13"; the species prefix is removed
// from the identifier.
type Reader struct {
	scanner *bufio.Scanner
	prefix  string
	lineNum int
	current *core.Measurement
	err     error
}

// NewReader creates a new PAXdb reader. A species <= 0 disables prefix stripping.
func NewReader(r io.Reader, species int) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	reader := &Reader{scanner: scanner}
	if species > 0 {
		reader.prefix = strconv.Itoa(species) + "."
	}
	return reader
}

// Next advances to the next row. Returns false when no more rows or error.
func (r *Reader) Next() bool {
	r.current = nil
	if r.err != nil {
		return false
	}

	m, err := r.readRow()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}

	r.current = m
	return true
}

// Measurement returns the current row
func (r *Reader) Measurement() *core.Measurement {
	return r.current
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// readRow reads the next data line, skipping comments and blank lines
func (r *Reader) readRow() (*core.Measurement, error) {
	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())

		if line == "" || strings.HasPrefix(line, CommentPrefix) {
			continue
		}

		return r.parseLine(line)
	}

	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
	}

	return nil, io.EOF
}

// parseLine parses "string_external_id<TAB>abundance"
func (r *Reader) parseLine(line string) (*core.Measurement, error) {
	parts := strings.Split(line, "\t")
	if len(parts) < 2 {
		parts = strings.Fields(line)
	}
	if len(parts) < 2 {
		return nil, fmt.Errorf("line %d: expected 2 fields (string_external_id, abundance), got %d", r.lineNum, len(parts))
	}

	externalID := strings.TrimSpace(parts[0])
	abundanceStr := strings.TrimSpace(parts[1])

	abundance, err := strconv.ParseFloat(abundanceStr, 64)
	if err != nil {
		return nil, fmt.Errorf("line %d: invalid abundance value '%s': %w", r.lineNum, abundanceStr, err)
	}

	id := externalID
	if r.prefix != "" {
		id = strings.TrimPrefix(externalID, r.prefix)
	}
	if id == "" {
		return nil, fmt.Errorf("line %d: empty protein identifier", r.lineNum)
	}

	return &core.Measurement{
		ExternalID: externalID,
		ID:         id,
		Abundance:  abundance,
		Line:       r.lineNum,
	}, nil
}
