package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	domain "github.com/bryanwahyu/callcenter-analytics/internal/domain/analysis"
)

// timestamps are stored as fixed-width UTC text so ORDER BY sorts them correctly
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Open opens (or creates) the database file and migrates it.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer at a time; sqlite serializes anyway
	db.SetMaxOpenConns(1)
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS call_analyses (
            name TEXT PRIMARY KEY,
            audio_file TEXT NOT NULL,
            status TEXT NOT NULL,
            result_file TEXT NOT NULL DEFAULT '',
            last_error TEXT,
            updated_at TEXT NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_call_analyses_updated ON call_analyses(updated_at);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// AnalysisRepository is the file-backed index used when no server database is configured.
type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Record) error {
	const q = `
INSERT INTO call_analyses (name, audio_file, status, result_file, last_error, updated_at)
VALUES (?,?,?,?,?,?)
ON CONFLICT(name) DO UPDATE SET
  audio_file=excluded.audio_file,
  status=excluded.status,
  result_file=excluded.result_file,
  last_error=excluded.last_error,
  updated_at=excluded.updated_at;
`
	var lastErr any
	if a.Error != "" {
		lastErr = a.Error
	}
	updated := a.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, a.Name, a.AudioFile, string(a.Status), a.ResultFile, lastErr, updated.UTC().Format(timeLayout))
	return err
}

func (r *AnalysisRepository) Get(ctx context.Context, name string) (*domain.Record, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT name, audio_file, status, result_file, last_error, updated_at
FROM call_analyses WHERE name=?;`, name)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Errorf(domain.KindNotFound, "analysis with id '%s' not found", name)
	}
	return rec, err
}

func (r *AnalysisRepository) List(ctx context.Context, limit int) ([]*domain.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT name, audio_file, status, result_file, last_error, updated_at
FROM call_analyses
ORDER BY updated_at DESC, name ASC
LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*domain.Record, error) {
	var (
		rec     domain.Record
		status  string
		lastErr sql.NullString
		updated string
	)
	if err := s.Scan(&rec.Name, &rec.AudioFile, &status, &rec.ResultFile, &lastErr, &updated); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, updated)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at %q: %w", updated, err)
	}
	rec.Status = domain.Status(status)
	rec.Error = lastErr.String
	rec.UpdatedAt = t
	return &rec, nil
}
