package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vigil-ops/vigil/internal/access"
)

// ErrNotFound indicates the requested user does not exist.
var ErrNotFound = errors.New("directory: user not found")

// Repository provides PostgreSQL backed persistence for the user directory.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a directory repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUsers returns all users ordered by name.
func (r *Repository) ListUsers(ctx context.Context) ([]access.User, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("directory repo not initialised")
	}
	const query = `SELECT id, name, role, COALESCE(badge_no, ''), COALESCE(avatar_key, '') FROM users ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []access.User
	for rows.Next() {
		var u access.User
		var id, role string
		if err := rows.Scan(&id, &u.Name, &role, &u.BadgeNo, &u.AvatarKey); err != nil {
			return nil, err
		}
		u.ID = access.UserID(id)
		u.Role = access.Role(role)
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetUser fetches a single user by id.
func (r *Repository) GetUser(ctx context.Context, id access.UserID) (access.User, error) {
	if r == nil || r.pool == nil {
		return access.User{}, fmt.Errorf("directory repo not initialised")
	}
	const query = `SELECT id, name, role, COALESCE(badge_no, ''), COALESCE(avatar_key, '') FROM users WHERE id = $1`
	var u access.User
	var rawID, role string
	if err := r.pool.QueryRow(ctx, query, string(id)).Scan(&rawID, &u.Name, &role, &u.BadgeNo, &u.AvatarKey); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return access.User{}, ErrNotFound
		}
		return access.User{}, err
	}
	u.ID = access.UserID(rawID)
	u.Role = access.Role(role)
	return u, nil
}

// ListRoles returns the fixed role enumeration ordered by rank.
func (r *Repository) ListRoles(ctx context.Context) ([]access.Role, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("directory repo not initialised")
	}
	const query = `SELECT name FROM roles ORDER BY rank, name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []access.Role
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		roles = append(roles, access.Role(name))
	}
	return roles, rows.Err()
}
