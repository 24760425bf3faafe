package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/bryanwahyu/callcenter-analytics/internal/domain/analysis"
)

// AnalysisRepository keeps one row per analysis name.
type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Save upserts the latest run for r.Name
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Record) error {
	const q = `
INSERT INTO call_analyses
  (name, audio_file, status, result_file, last_error, updated_at)
VALUES (?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  audio_file=VALUES(audio_file), status=VALUES(status), result_file=VALUES(result_file),
  last_error=VALUES(last_error), updated_at=VALUES(updated_at);
`
	updated := a.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, q, a.Name, a.AudioFile, string(a.Status), a.ResultFile, nullIfEmpty(a.Error), updated)
	return err
}

func (r *AnalysisRepository) Get(ctx context.Context, name string) (*domain.Record, error) {
	const q = `
SELECT name, audio_file, status, result_file, last_error, updated_at
FROM call_analyses WHERE name=?;
`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, q, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Errorf(domain.KindNotFound, "analysis with id '%s' not found", name)
	}
	return rec, err
}

// List returns rows ordered by updated_at desc
func (r *AnalysisRepository) List(ctx context.Context, limit int) ([]*domain.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT name, audio_file, status, result_file, last_error, updated_at
FROM call_analyses
ORDER BY updated_at DESC, name ASC
LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, limit)
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
		rec    domain.Record
		status string
		errMsg sql.NullString
	)
	if err := s.Scan(&rec.Name, &rec.AudioFile, &status, &rec.ResultFile, &errMsg, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Status = domain.Status(status)
	rec.Error = errMsg.String
	return &rec, nil
}
