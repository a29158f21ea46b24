// Package db is the sqlite persistence layer. It stores calendar dates as
// "YYYY-MM-DD" and clock values as "HH:MM" text in the salon's business
// timezone, so the scheduling engine never sees absolute instants.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps sql.DB for the booking service.
type DB struct {
	*sql.DB
}

// New opens the database at path and runs migrations.
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS stylists (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			phone TEXT,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Per-stylist weekly overrides; missing weekday rows fall back to
		// salon_hours at resolution time.
		`CREATE TABLE IF NOT EXISTS stylist_hours (
			stylist_id INTEGER NOT NULL,
			weekday INTEGER NOT NULL,
			is_working BOOLEAN NOT NULL DEFAULT 0,
			start_time TEXT,
			end_time TEXT,
			PRIMARY KEY (stylist_id, weekday),
			FOREIGN KEY (stylist_id) REFERENCES stylists(id)
		)`,

		`CREATE TABLE IF NOT EXISTS salon_hours (
			weekday INTEGER PRIMARY KEY,
			is_working BOOLEAN NOT NULL DEFAULT 0,
			start_time TEXT,
			end_time TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS services (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			duration_minutes INTEGER NOT NULL,
			processing_wait_minutes INTEGER NOT NULL DEFAULT 0,
			processing_gap_minutes INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS blocked_periods (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			stylist_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			is_full_day BOOLEAN NOT NULL DEFAULT 0,
			start_time TEXT,
			end_time TEXT,
			reason TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (stylist_id) REFERENCES stylists(id)
		)`,

		`CREATE TABLE IF NOT EXISTS appointments (
			id TEXT PRIMARY KEY,
			stylist_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			client_name TEXT NOT NULL,
			client_phone TEXT,
			comment TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (stylist_id) REFERENCES stylists(id)
		)`,

		// Ordered service lines with the duration profile snapshotted at
		// booking time.
		`CREATE TABLE IF NOT EXISTS appointment_services (
			appointment_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			service_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			duration_minutes INTEGER NOT NULL,
			processing_wait_minutes INTEGER NOT NULL DEFAULT 0,
			processing_gap_minutes INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (appointment_id, position),
			FOREIGN KEY (appointment_id) REFERENCES appointments(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_stylists_active ON stylists(is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_blocked_stylist_date ON blocked_periods(stylist_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_stylist_date ON appointments(stylist_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_status ON appointments(status)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// Backup writes a consistent snapshot of the database to dest.
func (db *DB) Backup(dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}
	if _, err := db.Exec("VACUUM INTO ?", dest); err != nil {
		return fmt.Errorf("vacuum into %s: %w", dest, err)
	}
	return nil
}

// CleanupBackups removes backup files older than retention and returns how
// many were deleted.
func (db *DB) CleanupBackups(dir string, retention time.Duration) (int, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read backup directory: %w", err)
	}

	cutoff := time.Now().Add(-retention)
	deleted := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".db") {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, file.Name())); err == nil {
				deleted++
			}
		}
	}
	return deleted, nil
}
