package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vigil-ops/vigil/internal/access"
)

// ErrNotFound indicates the requested catalog record does not exist.
var ErrNotFound = errors.New("catalog: not found")

// ErrDuplicate indicates a permission id is already catalogued.
var ErrDuplicate = errors.New("catalog: duplicate permission")

// Repository provides PostgreSQL backed persistence for the permission
// catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a catalog repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListGroups returns all groups ordered by rank, each with its permissions
// ordered by id.
func (r *Repository) ListGroups(ctx context.Context) ([]Group, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("catalog repo not initialised")
	}
	const groupQuery = `SELECT key, label, rank FROM permission_groups ORDER BY rank, key`
	rows, err := r.pool.Query(ctx, groupQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []Group
	index := make(map[string]int)
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.Key, &g.Label, &g.Rank); err != nil {
			return nil, err
		}
		index[g.Key] = len(groups)
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const permQuery = `SELECT id, label, group_key FROM permissions ORDER BY id`
	permRows, err := r.pool.Query(ctx, permQuery)
	if err != nil {
		return nil, err
	}
	defer permRows.Close()

	for permRows.Next() {
		var id, label, groupKey string
		if err := permRows.Scan(&id, &label, &groupKey); err != nil {
			return nil, err
		}
		i, ok := index[groupKey]
		if !ok {
			continue
		}
		groups[i].Entries = append(groups[i].Entries, Entry{
			ID:    access.PermissionID(id),
			Label: label,
		})
	}
	return groups, permRows.Err()
}

// GetEntry fetches one catalogued permission.
func (r *Repository) GetEntry(ctx context.Context, id access.PermissionID) (Entry, error) {
	if r == nil || r.pool == nil {
		return Entry{}, fmt.Errorf("catalog repo not initialised")
	}
	const query = `SELECT id, label FROM permissions WHERE id = $1`
	var entry Entry
	var rawID string
	if err := r.pool.QueryRow(ctx, query, string(id)).Scan(&rawID, &entry.Label); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	entry.ID = access.PermissionID(rawID)
	return entry, nil
}

// CreateEntry inserts a new permission into a group.
func (r *Repository) CreateEntry(ctx context.Context, id access.PermissionID, label, groupKey string) (Entry, error) {
	if r == nil || r.pool == nil {
		return Entry{}, fmt.Errorf("catalog repo not initialised")
	}
	const query = `INSERT INTO permissions (id, label, group_key) VALUES ($1, $2, $3) RETURNING id, label`
	var entry Entry
	var rawID string
	if err := r.pool.QueryRow(ctx, query, string(id), label, groupKey).Scan(&rawID, &entry.Label); err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.ConstraintName == "permissions_pkey" {
			return Entry{}, ErrDuplicate
		}
		return Entry{}, err
	}
	entry.ID = access.PermissionID(rawID)
	return entry, nil
}
