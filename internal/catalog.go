package internal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const catalogSchema = `
CREATE TABLE IF NOT EXISTS conversions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	session_id  TEXT NOT NULL,
	source_path TEXT NOT NULL,
	output_path TEXT NOT NULL,
	format      TEXT NOT NULL,
	agents      INTEGER NOT NULL,
	started     TEXT,
	rendered_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS conversions_session ON conversions(session_id);
`

// Conversion is one rendered output file recorded in the catalog
type Conversion struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	SessionID  string    `json:"session_id"`
	SourcePath string    `json:"source_path"`
	OutputPath string    `json:"output_path"`
	Format     string    `json:"format"`
	Agents     int       `json:"agents"`
	Started    string    `json:"started,omitempty"`
	RenderedAt time.Time `json:"rendered_at"`
}

// Catalog records every file written by convert in a SQLite database
type Catalog struct {
	db    *sql.DB
	path  string
	runID string
}

// OpenDatabase opens an existing SQLite database in read-only mode
func OpenDatabase(path string) (*sql.DB, error) {
	// the driver only honours mode=ro for file: URIs
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return db, nil
}

// OpenCatalog opens or creates the catalog at path and starts a new run
func OpenCatalog(ctx context.Context, path string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &StorageError{Path: path, Op: "mkdir", Err: err}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	// convert records from several goroutines
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, catalogSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create catalog schema: %w", err)
	}

	return &Catalog{db: db, path: path, runID: uuid.NewString()}, nil
}

// RunID identifies the conversions recorded through this handle
func (c *Catalog) RunID() string {
	return c.runID
}

// Path returns the database file path
func (c *Catalog) Path() string {
	return c.path
}

// Close closes the database
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Record inserts one conversion under the current run id
func (c *Catalog) Record(ctx context.Context, conv Conversion) error {
	if conv.RenderedAt.IsZero() {
		conv.RenderedAt = time.Now()
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO conversions (run_id, session_id, source_path, output_path, format, agents, started, rendered_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.runID, conv.SessionID, conv.SourcePath, conv.OutputPath, conv.Format, conv.Agents,
		conv.Started, conv.RenderedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", conv.OutputPath, err)
	}
	return nil
}

// ListConversions returns the most recent conversions first. A limit of
// zero or less returns everything.
func ListConversions(ctx context.Context, db *sql.DB, limit int) ([]Conversion, error) {
	query := `SELECT id, run_id, session_id, source_path, output_path, format, agents,
		COALESCE(started, ''), rendered_at FROM conversions ORDER BY id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Conversion
	for rows.Next() {
		var conv Conversion
		var rendered string
		if err := rows.Scan(&conv.ID, &conv.RunID, &conv.SessionID, &conv.SourcePath,
			&conv.OutputPath, &conv.Format, &conv.Agents, &conv.Started, &rendered); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, rendered); err == nil {
			conv.RenderedAt = t
		}
		out = append(out, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

// Conversions lists conversions through an open catalog
func (c *Catalog) Conversions(ctx context.Context, limit int) ([]Conversion, error) {
	return ListConversions(ctx, c.db, limit)
}
