package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	domain "github.com/bryanwahyu/callcenter-analytics/internal/domain/analysis"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Save inserts or updates the latest run for a name
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Record) error {
	const q = `
INSERT INTO call_analyses
  (name, audio_file, status, result_file, last_error, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (name) DO UPDATE SET
  audio_file=EXCLUDED.audio_file,
  status=EXCLUDED.status,
  result_file=EXCLUDED.result_file,
  last_error=EXCLUDED.last_error,
  updated_at=EXCLUDED.updated_at;
`
	var lastErr sql.NullString
	if strings.TrimSpace(a.Error) != "" {
		lastErr = sql.NullString{String: a.Error, Valid: true}
	}
	updated := a.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, q, a.Name, a.AudioFile, string(a.Status), a.ResultFile, lastErr, updated)
	return err
}

func (r *AnalysisRepository) Get(ctx context.Context, name string) (*domain.Record, error) {
	const q = `
SELECT name, audio_file, status, result_file, last_error, updated_at
FROM call_analyses WHERE name=$1;
`
	var (
		rec    domain.Record
		status string
		errMsg sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, name).Scan(&rec.Name, &rec.AudioFile, &status, &rec.ResultFile, &errMsg, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Errorf(domain.KindNotFound, "analysis with id '%s' not found", name)
	}
	if err != nil {
		return nil, err
	}
	rec.Status = domain.Status(status)
	rec.Error = errMsg.String
	return &rec, nil
}

// List returns the most recently updated rows first
func (r *AnalysisRepository) List(ctx context.Context, limit int) ([]*domain.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT name, audio_file, status, result_file, last_error, updated_at
FROM call_analyses
ORDER BY updated_at DESC, name ASC
LIMIT $1;
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Record{}
	for rows.Next() {
		var (
			rec    domain.Record
			status string
			errMsg sql.NullString
		)
		if err := rows.Scan(&rec.Name, &rec.AudioFile, &status, &rec.ResultFile, &errMsg, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.Status = domain.Status(status)
		rec.Error = errMsg.String
		out = append(out, &rec)
	}
	return out, rows.Err()
}
