// Package sqlite provides SQLite database writing for converted tables
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ChrisMcGann/ppmconc/pkg/convert"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const (
	// Date format for HeaderTable (ISO 8601)
	headerDateFormat = "2006-01-02"

	// SchemaVersion is written to HeaderTable.version
	SchemaVersion = 1
)

// Header describes the run that produced a database.
type Header struct {
	Version             int       `db:"version"`
	CreationDate        string    `db:"CreationDate"`
	InputFile           string    `db:"InputFile"`
	Species             int       `db:"Species"`
	TotalProteinContent float64   `db:"TotalProteinContent"`
	FillMissing         string    `db:"FillMissing"`
	MassType            string    `db:"MassType"`
	Created             time.Time `db:"-"`
}

// Writer handles writing converted rows to SQLite database files
type Writer struct {
	db             *sql.DB
	tx             *sql.Tx
	outputPath     string
	proteinStmt    *sql.Stmt
	unresolvedStmt *sql.Stmt
	proteinID      int
}

// NewWriter creates a new SQLite writer
func NewWriter(outputPath string) (*Writer, error) {
	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Writer{
		db:         db,
		outputPath: outputPath,
		proteinID:  1,
	}

	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if err := w.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return w, nil
}

// createTables creates the required database schema
func (w *Writer) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ProteinTable (
		ProteinId INTEGER PRIMARY KEY,
		ENSPID TEXT NOT NULL,
		UniProtID TEXT,
		MolecularWeight DOUBLE,
		Abundance DOUBLE,
		Mass DOUBLE,
		WeightSource TEXT
	);

	CREATE TABLE IF NOT EXISTS UnresolvedTable (
		ENSPID TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS HeaderTable (
		version INTEGER NOT NULL DEFAULT 0,
		CreationDate TEXT,
		InputFile TEXT,
		Species INTEGER,
		TotalProteinContent DOUBLE,
		FillMissing TEXT,
		MassType TEXT
	);
	`

	_, err := w.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// prepareStatements opens the write transaction and prepares the inserts
func (w *Writer) prepareStatements() error {
	var err error

	w.tx, err = w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	w.proteinStmt, err = w.tx.Prepare(`
		INSERT INTO ProteinTable (
			ProteinId, ENSPID, UniProtID, MolecularWeight, Abundance, Mass, WeightSource
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		w.tx.Rollback()
		return fmt.Errorf("failed to prepare protein statement: %w", err)
	}

	w.unresolvedStmt, err = w.tx.Prepare(`INSERT INTO UnresolvedTable (ENSPID) VALUES (?)`)
	if err != nil {
		w.tx.Rollback()
		return fmt.Errorf("failed to prepare unresolved statement: %w", err)
	}

	return nil
}

// WriteRow writes a single converted row to the database
func (w *Writer) WriteRow(row convert.Row) error {
	var accession interface{}
	if row.UniProtID != "" {
		accession = row.UniProtID
	}

	_, err := w.proteinStmt.Exec(
		w.proteinID,         // ProteinId
		row.ENSPID,          // ENSPID
		accession,           // UniProtID
		row.MolecularWeight, // MolecularWeight
		row.Abundance,       // Abundance
		row.Mass,            // Mass
		row.Source,          // WeightSource
	)
	if err != nil {
		return fmt.Errorf("failed to insert protein %s: %w", row.ENSPID, err)
	}

	w.proteinID++
	return nil
}

// WriteUnresolved records an identifier excluded from conversion
func (w *Writer) WriteUnresolved(id string) error {
	if _, err := w.unresolvedStmt.Exec(id); err != nil {
		return fmt.Errorf("failed to insert unresolved %s: %w", id, err)
	}
	return nil
}

// Finalize writes the header table, commits and closes the database
func (w *Writer) Finalize(h Header) error {
	created := h.Created
	if created.IsZero() {
		created = time.Now()
	}

	_, err := w.tx.Exec(`
		INSERT INTO HeaderTable (version, CreationDate, InputFile, Species, TotalProteinContent, FillMissing, MassType)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, SchemaVersion, created.Format(headerDateFormat), h.InputFile, h.Species, h.TotalProteinContent, h.FillMissing, h.MassType)
	if err != nil {
		w.Abort()
		return fmt.Errorf("failed to insert header: %w", err)
	}

	w.closeStatements()
	if err := w.tx.Commit(); err != nil {
		w.db.Close()
		return fmt.Errorf("failed to commit: %w", err)
	}

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// Abort rolls back everything written and closes the database
func (w *Writer) Abort() error {
	w.closeStatements()
	w.tx.Rollback()
	return w.db.Close()
}

func (w *Writer) closeStatements() {
	if w.proteinStmt != nil {
		w.proteinStmt.Close()
		w.proteinStmt = nil
	}
	if w.unresolvedStmt != nil {
		w.unresolvedStmt.Close()
		w.unresolvedStmt = nil
	}
}

// ReadRows reads the protein table of a database written by Writer.
func ReadRows(path string) ([]convert.Row, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	var rows []convert.Row
	err = db.Select(&rows, `
		SELECT ENSPID, COALESCE(UniProtID, '') AS UniProtID, MolecularWeight, Abundance, Mass,
			COALESCE(WeightSource, '') AS WeightSource
		FROM ProteinTable ORDER BY ProteinId
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to read proteins: %w", err)
	}
	return rows, nil
}

// ReadHeader reads the run header of a database written by Writer.
func ReadHeader(path string) (*Header, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	var h Header
	err = db.Get(&h, `
		SELECT version, CreationDate, InputFile, Species, TotalProteinContent, FillMissing, MassType
		FROM HeaderTable LIMIT 1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	return &h, nil
}

// ReadUnresolved reads the identifiers excluded from conversion.
func ReadUnresolved(path string) ([]string, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	var ids []string
	if err := db.Select(&ids, `SELECT ENSPID FROM UnresolvedTable ORDER BY rowid`); err != nil {
		return nil, fmt.Errorf("failed to read unresolved: %w", err)
	}
	return ids, nil
}
