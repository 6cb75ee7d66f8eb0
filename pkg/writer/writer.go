// Package writer writes converted tables to CSV, TSV or SQLite files.
//
// Output is first written to a temporary file next to the destination and
// renamed into place only once complete, so a failed run leaves no partial
// output behind.
package writer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ChrisMcGann/ppmconc/pkg/convert"
	"github.com/ChrisMcGann/ppmconc/pkg/writer/delimited"
	"github.com/ChrisMcGann/ppmconc/pkg/writer/sqlite"
)

// Kind is an output file type.
type Kind int

const (
	CSV Kind = iota
	TSV
	SQLite
)

func (k Kind) String() string {
	switch k {
	case TSV:
		return "tsv"
	case SQLite:
		return "sqlite"
	}
	return "csv"
}

// RunInfo describes the run, stored alongside SQLite output.
type RunInfo = sqlite.Header

// KindFromPath chooses the output type by file extension. Anything unknown
// is written as comma-separated values.
func KindFromPath(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".txt":
		return TSV
	case ".db", ".sqlite", ".sqlite3":
		return SQLite
	}
	return CSV
}

// Write writes res to path atomically.
func Write(path string, res *convert.Result, info RunInfo) error {
	tmp, err := tempPath(path)
	if err != nil {
		return err
	}

	kind := KindFromPath(path)
	switch kind {
	case SQLite:
		err = writeSQLite(tmp, res, info)
	case TSV:
		err = writeDelimited(tmp, res.Rows, '\t')
	default:
		err = writeDelimited(tmp, res.Rows, ',')
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

// Read reads a table written by Write.
func Read(path string) ([]convert.Row, error) {
	kind := KindFromPath(path)
	if kind == SQLite {
		return sqlite.ReadRows(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open output: %w", err)
	}
	defer f.Close()

	comma := ','
	if kind == TSV {
		comma = '\t'
	}
	return delimited.Read(f, comma)
}

// tempPath reserves an empty file in the destination directory so the final
// rename stays on one filesystem.
func tempPath(path string) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	return name, nil
}

func writeDelimited(path string, rows []convert.Row, comma rune) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}

	werr := delimited.Write(f, rows, comma)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		return err
	}
	return os.Chmod(path, 0o644)
}

func writeSQLite(path string, res *convert.Result, info RunInfo) error {
	w, err := sqlite.NewWriter(path)
	if err != nil {
		return err
	}

	for _, row := range res.Rows {
		if err := w.WriteRow(row); err != nil {
			w.Abort()
			return err
		}
	}
	for _, id := range res.Excluded {
		if err := w.WriteUnresolved(id); err != nil {
			w.Abort()
			return err
		}
	}

	if err := w.Finalize(info); err != nil {
		return err
	}
	return os.Chmod(path, 0o644)
}
