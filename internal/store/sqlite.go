package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using a local SQLite
// database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion,
			"SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// RecordTriage inserts one processing outcome. A missing id is filled
// with a fresh UUID.
func (s *SQLiteStore) RecordTriage(
	ctx context.Context, rec TriageRecord,
) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	const query = `
		INSERT INTO triage_log (
			id, message_id, subject, sender,
			action, work_item_id, project_id, detail, created_at
		) VALUES (
			:id, :message_id, :subject, :sender,
			:action, :work_item_id, :project_id, :detail, :created_at
		)`

	if _, err := s.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("recording triage outcome: %w", err)
	}
	return nil
}

// RecentTriage returns the most recent records, newest first.
func (s *SQLiteStore) RecentTriage(
	ctx context.Context, limit int,
) ([]TriageRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT id, message_id, subject, sender,
		       action, work_item_id, project_id, detail, created_at
		FROM triage_log
		ORDER BY created_at DESC, id
		LIMIT ?`

	var records []TriageRecord
	if err := s.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("reading triage history: %w", err)
	}
	return records, nil
}
