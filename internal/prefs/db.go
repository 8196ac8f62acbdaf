package prefs

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database holding reader settings.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates the SQLite database at the given path.
func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS books (
		url TEXT PRIMARY KEY,
		current TEXT NOT NULL DEFAULT '',
		opened_at DATETIME
	);
	`
	_, err := db.Exec(schema)
	return err
}

// setting returns the stored value for key, or "" when it was never set.
func (d *DB) setting(key string) (string, error) {
	var value string
	err := d.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (d *DB) putSetting(key, value string) error {
	_, err := d.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	return err
}

// Book is a previously opened book.
type Book struct {
	URL      string
	Current  string
	OpenedAt time.Time
}

// RememberBook records that url was opened with current as the chapter on
// screen.
func (d *DB) RememberBook(url, current string) error {
	_, err := d.db.Exec(
		`INSERT INTO books (url, current, opened_at) VALUES (?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET current=excluded.current, opened_at=excluded.opened_at`,
		url, current, time.Now().UTC(),
	)
	return err
}

// LastBook returns the most recently opened book.
func (d *DB) LastBook() (Book, bool, error) {
	var b Book
	var openedAt sql.NullTime
	err := d.db.QueryRow(
		"SELECT url, current, opened_at FROM books ORDER BY opened_at DESC LIMIT 1",
	).Scan(&b.URL, &b.Current, &openedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, false, nil
	}
	if err != nil {
		return Book{}, false, err
	}
	if openedAt.Valid {
		b.OpenedAt = openedAt.Time
	}
	return b, true, nil
}
