// Package db persists recording session metadata in sqlite. Frame data
// itself lives in chunked log directories (internal/record); this store
// answers "what recordings exist and where".
package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type DB struct {
	*sql.DB
}

// Recording is one persisted recording session.
type Recording struct {
	ID         string
	CreatedAt  time.Time
	FrameCount int
	DurationMs int64
	LogPath    string
}

// New opens (or creates) the database at path and applies any pending
// schema migrations.
func New(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{sqlDB}
	if err := db.migrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// migrateUp runs all pending migrations from the embedded sources.
func (db *DB) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Note: the migrate instance is not closed here because that would close
	// the underlying DB connection.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// InsertRecording registers a finished recording session.
func (db *DB) InsertRecording(rec Recording) error {
	_, err := db.Exec(`
		INSERT INTO recordings (id, frame_count, duration_ms, log_path)
		VALUES (?, ?, ?, ?)`,
		rec.ID, rec.FrameCount, rec.DurationMs, rec.LogPath,
	)
	if err != nil {
		return fmt.Errorf("failed to insert recording %s: %w", rec.ID, err)
	}
	return nil
}

// GetRecording returns one recording by id.
func (db *DB) GetRecording(id string) (Recording, error) {
	var rec Recording
	err := db.QueryRow(`
		SELECT id, created_at, frame_count, duration_ms, log_path
		FROM recordings WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.FrameCount, &rec.DurationMs, &rec.LogPath)
	if err != nil {
		return Recording{}, fmt.Errorf("failed to get recording %s: %w", id, err)
	}
	return rec, nil
}

// ListRecordings returns all recordings, newest first.
func (db *DB) ListRecordings() ([]Recording, error) {
	rows, err := db.Query(`
		SELECT id, created_at, frame_count, duration_ms, log_path
		FROM recordings ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list recordings: %w", err)
	}
	defer rows.Close()

	var out []Recording
	for rows.Next() {
		var rec Recording
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.FrameCount, &rec.DurationMs, &rec.LogPath); err != nil {
			return nil, fmt.Errorf("failed to scan recording row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
