package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists and queries audit events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs an audit repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends one event.
func (r *Repository) Insert(ctx context.Context, event Event) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("audit repo not initialised")
	}
	detail, err := json.Marshal(event.Detail)
	if err != nil {
		return fmt.Errorf("audit: marshal detail: %w", err)
	}
	const query = `INSERT INTO access_audit (id, at, actor, action, entity, detail) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = r.pool.Exec(ctx, query, event.ID, event.At, event.Actor, event.Action, event.Entity, detail)
	return err
}

// TimelineWindow returns events newest first within the filter window.
// Limit is applied as given; callers over-fetch by one row to detect the
// next page.
func (r *Repository) TimelineWindow(ctx context.Context, filters TimelineFilters, limit, offset int) ([]Event, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("audit repo not initialised")
	}
	const query = `SELECT id, at, actor, action, entity, detail
FROM access_audit
WHERE ($1::timestamptz IS NULL OR at >= $1)
  AND ($2::timestamptz IS NULL OR at <= $2)
  AND ($3::text IS NULL OR actor = $3)
  AND ($4::text IS NULL OR action = $4)
ORDER BY at DESC
LIMIT $5 OFFSET $6`
	rows, err := r.pool.Query(ctx, query,
		optionalTime(filters.From), optionalTime(filters.To),
		optionalText(filters.Actor), optionalText(filters.Action),
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var detail []byte
		if err := rows.Scan(&event.ID, &event.At, &event.Actor, &event.Action, &event.Entity, &detail); err != nil {
			return nil, err
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &event.Detail); err != nil {
				return nil, fmt.Errorf("audit: unmarshal detail: %w", err)
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// DeleteOlderThan removes events before the cutoff and reports how many went.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, fmt.Errorf("audit repo not initialised")
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM access_audit WHERE at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func optionalText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
