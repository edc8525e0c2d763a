package recordings

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo persists recording metadata rows.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Add(ctx context.Context, rec *Recording) error {
	_, err := r.db.Exec(
		ctx,
		`INSERT INTO recording (id, activity, week_key, day, filename, path, size_bytes, mime_type, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`,
		rec.ID, rec.Activity, rec.WeekKey, rec.Day, rec.Filename,
		rec.Path, rec.SizeBytes, rec.MimeType, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("add recording: %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (*Recording, error) {
	rec := &Recording{}
	err := r.db.QueryRow(
		ctx,
		`SELECT id, activity, week_key, day, filename, path, size_bytes, mime_type, created_at
			FROM recording WHERE id = $1;`,
		id,
	).Scan(
		&rec.ID, &rec.Activity, &rec.WeekKey, &rec.Day, &rec.Filename,
		&rec.Path, &rec.SizeBytes, &rec.MimeType, &rec.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrRecordingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recording %s: %w", id, err)
	}
	return rec, nil
}

// List returns metadata rows, newest first. Empty activity or weekKey means
// no filter on that column.
func (r *Repo) List(ctx context.Context, activity, weekKey string) ([]Recording, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT id, activity, week_key, day, filename, path, size_bytes, mime_type, created_at
			FROM recording
			WHERE ($1 = '' OR activity = $1)
				AND ($2 = '' OR week_key = $2)
			ORDER BY created_at DESC;`,
		activity, weekKey,
	)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	var recordings []Recording
	for rows.Next() {
		rec := Recording{}
		if err := rows.Scan(
			&rec.ID, &rec.Activity, &rec.WeekKey, &rec.Day, &rec.Filename,
			&rec.Path, &rec.SizeBytes, &rec.MimeType, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan recording row: %w", err)
		}
		recordings = append(recordings, rec)
	}
	return recordings, rows.Err()
}

func (r *Repo) Delete(ctx context.Context, id string) (*Recording, error) {
	rec, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM recording WHERE id = $1;`, id)
	if err != nil {
		return nil, fmt.Errorf("delete recording %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrRecordingNotFound
	}
	return rec, nil
}
