package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/tgienger/stash/internal/errs"
	"github.com/tgienger/stash/internal/filter"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
	log  *zap.Logger
	eval *filter.Evaluator
}

// Options configures New
type Options struct {
	Path        string
	Logger      *zap.Logger
	SeedSamples bool // insert starter tag groups and collections on first migration
}

// New opens the database at opts.Path and brings the schema up to date
func New(opts Options) (*DB, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", opts.Path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, errs.Storage("open database", err)
	}
	// One connection keeps SQLite single-writer and lets :memory: databases
	// survive between calls.
	conn.SetMaxOpenConns(1)

	d := &DB{DB: conn, log: log.Named("db")}
	d.eval = filter.NewEvaluator(d, log)

	if err := d.Migrate(opts.SeedSamples); err != nil {
		conn.Close()
		return nil, err
	}

	d.log.Debug("database ready", zap.String("path", opts.Path))
	return d, nil
}

// Evaluator returns the filter evaluator reading from this database
func (db *DB) Evaluator() *filter.Evaluator {
	return db.eval
}

// GetSetting retrieves a setting value by key
func (db *DB) GetSetting(key string) (string, error) {
	var value string
	err := db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errs.Storage("get setting", err)
	}
	return value, nil
}

// SetSetting sets a setting value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return errs.Storage("set setting", err)
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// likePattern builds a case-insensitive substring pattern for LIKE ... ESCAPE '\'
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// nullString stores empty strings as NULL
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
