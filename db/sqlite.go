package db

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// ConnectToSQLite initializes and returns a SQLite connection
func ConnectToSQLite(dbPath string) (*sql.DB, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for SQLite: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	log.Println("Connected to SQLite database")
	return db, nil
}

// InitializeSchema creates all the necessary tables if they don't exist
func InitializeSchema(db *sql.DB) error {
	// Coordinate cache: one row per geocoded address, never overwritten
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS coordinates (
		address TEXT PRIMARY KEY,
		lng REAL NOT NULL,
		lat REAL NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create coordinates table: %w", err)
	}

	// Duration cache: one row per (origin, destination, mode) route
	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS durations (
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		mode TEXT NOT NULL,
		seconds INTEGER NOT NULL,
		PRIMARY KEY (origin, destination, mode)
	)`)
	if err != nil {
		return fmt.Errorf("failed to create durations table: %w", err)
	}

	// User-defined reachability criteria, persisted without resolved locations
	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS criteria (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		address TEXT NOT NULL,
		time_minutes INTEGER NOT NULL,
		color TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create criteria table: %w", err)
	}

	// Provider credentials: at most one row
	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS credentials (
		app_id TEXT NOT NULL,
		api_key TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create credentials table: %w", err)
	}

	return nil
}
