package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo persists week records as JSONB rows keyed by week key. The revision
// column is bumped by the database on every write, so it is a reliable
// generation stamp even with concurrent writers.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) GetWeek(ctx context.Context, weekKey string) (*WeekProgress, error) {
	var (
		payload   []byte
		revision  int64
		updatedAt time.Time
	)
	err := r.db.QueryRow(
		ctx,
		`SELECT payload, revision, updated_at FROM week_progress WHERE week_key = $1;`,
		weekKey,
	).Scan(&payload, &revision, &updatedAt)
	if err == pgx.ErrNoRows {
		return nil, ErrWeekNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get week %s: %w", weekKey, err)
	}

	wp := &WeekProgress{}
	if err := json.Unmarshal(payload, wp); err != nil {
		return nil, fmt.Errorf("unmarshal week %s payload: %w", weekKey, err)
	}
	wp.Revision = revision
	return wp, nil
}

// SaveWeek upserts a week record and returns the new revision.
func (r *Repo) SaveWeek(ctx context.Context, weekKey string, wp *WeekProgress) (int64, error) {
	payload, err := json.Marshal(wp)
	if err != nil {
		return 0, fmt.Errorf("marshal week %s payload: %w", weekKey, err)
	}

	var revision int64
	err = r.db.QueryRow(
		ctx,
		`INSERT INTO week_progress (week_key, payload, revision, updated_at)
			VALUES ($1, $2, 1, now())
			ON CONFLICT (week_key) DO UPDATE
				SET payload = EXCLUDED.payload,
					revision = week_progress.revision + 1,
					updated_at = now()
			RETURNING revision;`,
		weekKey, payload,
	).Scan(&revision)
	if err != nil {
		return 0, fmt.Errorf("save week %s: %w", weekKey, err)
	}
	return revision, nil
}

// CreateWeekIfAbsent inserts an empty-week record without touching an
// existing one. Returns true when the row was created.
func (r *Repo) CreateWeekIfAbsent(ctx context.Context, weekKey string, wp *WeekProgress) (bool, error) {
	payload, err := json.Marshal(wp)
	if err != nil {
		return false, fmt.Errorf("marshal week %s payload: %w", weekKey, err)
	}

	tag, err := r.db.Exec(
		ctx,
		`INSERT INTO week_progress (week_key, payload, revision, updated_at)
			VALUES ($1, $2, 1, now())
			ON CONFLICT (week_key) DO NOTHING;`,
		weekKey, payload,
	)
	if err != nil {
		return false, fmt.Errorf("create week %s: %w", weekKey, err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetAll loads every stored week into one snapshot.
func (r *Repo) GetAll(ctx context.Context) (*Snapshot, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT week_key, payload, revision, updated_at FROM week_progress ORDER BY week_key;`,
	)
	if err != nil {
		return nil, fmt.Errorf("list weeks: %w", err)
	}
	defer rows.Close()

	snapshot := &Snapshot{Weeks: map[string]*WeekProgress{}}
	for rows.Next() {
		var (
			weekKey   string
			payload   []byte
			revision  int64
			updatedAt time.Time
		)
		if err := rows.Scan(&weekKey, &payload, &revision, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan week row: %w", err)
		}

		wp := &WeekProgress{}
		if err := json.Unmarshal(payload, wp); err != nil {
			return nil, fmt.Errorf("unmarshal week %s payload: %w", weekKey, err)
		}
		wp.Revision = revision
		snapshot.Weeks[weekKey] = wp

		if snapshot.LastUpdated == nil || updatedAt.After(*snapshot.LastUpdated) {
			t := updatedAt
			snapshot.LastUpdated = &t
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate week rows: %w", err)
	}

	return snapshot, nil
}
