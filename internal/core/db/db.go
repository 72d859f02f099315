package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the local SQLite store that survives restarts: the credential
// and the report export log. Datasets are never written here.
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes schema
func New(dbPath string) (*DB, error) {
	// Ensure parent directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open with WAL mode so the MCP server and the TUI can share the file
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	conn.SetMaxOpenConns(1) // SQLite only supports one writer
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	db := &DB{conn: conn}

	// Initialize schema
	if err := db.initSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// StoredCredential is the persisted login
type StoredCredential struct {
	Token    string
	Username string
	SavedAt  time.Time
}

// LoadCredential returns the stored credential, or nil when logged out
func (db *DB) LoadCredential() (*StoredCredential, error) {
	var c StoredCredential
	err := db.conn.QueryRow(`
		SELECT token, COALESCE(username, ''), saved_at
		FROM credentials WHERE id = 1
	`).Scan(&c.Token, &c.Username, &c.SavedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SaveCredential replaces the stored credential
func (db *DB) SaveCredential(token, username string) error {
	_, err := db.conn.Exec(`
		INSERT INTO credentials (id, token, username, saved_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			username = excluded.username,
			saved_at = excluded.saved_at
	`, token, username, time.Now().UTC())
	return err
}

// DeleteCredential removes the stored credential
func (db *DB) DeleteCredential() error {
	_, err := db.conn.Exec(`DELETE FROM credentials WHERE id = 1`)
	return err
}

// ExportEntry records one saved report
type ExportEntry struct {
	ID         int64
	DatasetID  int64
	Filename   string
	Path       string
	Size       int64
	ExportedAt time.Time
}

// RecordExport appends to the export log
func (db *DB) RecordExport(e ExportEntry) error {
	if e.ExportedAt.IsZero() {
		e.ExportedAt = time.Now().UTC()
	}
	_, err := db.conn.Exec(`
		INSERT INTO exports (dataset_id, filename, path, size, exported_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.DatasetID, e.Filename, e.Path, e.Size, e.ExportedAt)
	return err
}

// ListExports returns the most recent exports, newest first
func (db *DB) ListExports(limit int) ([]ExportEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, dataset_id, COALESCE(filename, ''), path, size, exported_at
		FROM exports
		ORDER BY exported_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ExportEntry
	for rows.Next() {
		var e ExportEntry
		if err := rows.Scan(&e.ID, &e.DatasetID, &e.Filename, &e.Path, &e.Size, &e.ExportedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
