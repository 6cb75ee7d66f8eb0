// Package reader detects input table shapes and opens the matching row reader
package reader

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ChrisMcGann/ppmconc/pkg/core"
	"github.com/ChrisMcGann/ppmconc/pkg/reader/paxdb"
	"github.com/ChrisMcGann/ppmconc/pkg/reader/tsv"
	"github.com/klauspost/pgzip"
)

// Format identifies an input table shape.
type Format int

const (
	FormatAuto Format = iota
	FormatPAXdb
	FormatTSV
)

func (f Format) String() string {
	switch f {
	case FormatPAXdb:
		return "paxdb"
	case FormatTSV:
		return "tsv"
	}
	return "auto"
}

// ParseFormat parses a --from value.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "paxdb":
		return FormatPAXdb, nil
	case "tsv", "csv", "table":
		return FormatTSV, nil
	}
	return FormatAuto, &FormatError{Shape: s, Reason: "must be auto, paxdb or tsv"}
}

// FormatError is returned for input files of an unsupported shape.
type FormatError struct {
	Shape  string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("unsupported input format %q: %s", e.Shape, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// RowReader is implemented by the per-format readers.
type RowReader interface {
	Next() bool
	Measurement() *core.Measurement
	Err() error
}

// Options configures Open.
type Options struct {
	Format  Format
	Species int // Taxon whose "<species>." prefix is stripped from PAXdb identifiers
}

// File is an opened input table.
type File struct {
	RowReader
	Format     Format
	Compressed bool

	closers []io.Closer
}

// Close closes the decompressor and the underlying file.
func (f *File) Close() error {
	var errs []error
	for i := len(f.closers) - 1; i >= 0; i-- {
		if err := f.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open opens path, transparently decompressing gzip input, and returns a row
// reader for the detected (or forced) format.
func Open(path string, opts Options) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	file, err := NewFile(f, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	file.closers = append([]io.Closer{f}, file.closers...)
	return file, nil
}

// NewFile wraps an already opened stream.
func NewFile(r io.Reader, opts Options) (*File, error) {
	file := &File{}

	br := bufio.NewReaderSize(r, peekSize)
	if isGzip(br) {
		gz, err := pgzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		file.Compressed = true
		file.closers = append(file.closers, gz)
		br = bufio.NewReaderSize(gz, peekSize)
	}

	format := opts.Format
	if format == FormatAuto {
		detected, err := DetectFormat(br)
		if err != nil {
			file.Close()
			return nil, err
		}
		format = detected
	}
	file.Format = format

	switch format {
	case FormatPAXdb:
		file.RowReader = paxdb.NewReader(br, opts.Species)
	case FormatTSV:
		rows, err := tsv.NewReader(br)
		if err != nil {
			file.Close()
			return nil, &FormatError{Shape: format.String(), Reason: "invalid table", Err: err}
		}
		file.RowReader = rows
	default:
		file.Close()
		return nil, &FormatError{Shape: format.String(), Reason: "please provide a PAXdb or TSV file"}
	}

	return file, nil
}

const peekSize = 64 * 1024

var gzipMagic = []byte{0x1f, 0x8b}

func isGzip(br *bufio.Reader) bool {
	sig, _ := br.Peek(len(gzipMagic))
	return bytes.Equal(sig, gzipMagic)
}

// DetectFormat inspects the first line of the stream without consuming it:
// a comment marker means PAXdb, anything else a header-bearing table.
func DetectFormat(br *bufio.Reader) (Format, error) {
	buf, err := br.Peek(peekSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return FormatAuto, fmt.Errorf("failed to read input: %w", err)
	}

	if len(bytes.TrimSpace(buf)) == 0 {
		return FormatAuto, &FormatError{Shape: "empty", Reason: "input has no content"}
	}

	line := buf
	if i := bytes.IndexByte(buf, '\n'); i >= 0 {
		line = buf[:i]
	}
	line = bytes.TrimSpace(line)

	if bytes.HasPrefix(line, []byte(paxdb.CommentPrefix)) {
		return FormatPAXdb, nil
	}
	return FormatTSV, nil
}

// ReadAll drains a row reader.
func ReadAll(r RowReader) ([]*core.Measurement, error) {
	var rows []*core.Measurement
	for r.Next() {
		rows = append(rows, r.Measurement())
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadAll drains the file. Malformed rows are reported as a FormatError.
func (f *File) ReadAll() ([]*core.Measurement, error) {
	rows, err := ReadAll(f.RowReader)
	if err != nil {
		return nil, &FormatError{Shape: f.Format.String(), Reason: "invalid row", Err: err}
	}
	return rows, nil
}
