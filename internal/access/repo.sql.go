package access

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vigil-ops/vigil/internal/platform/db"
)

// Repository is the PostgreSQL-backed PolicyStore. Each structure lives in
// its own table and is rewritten wholesale on save inside its own
// transaction; the two saves stay independent (last writer wins per
// structure).
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the policy repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadMatrix reads the full role-permission matrix.
func (r *Repository) LoadMatrix(ctx context.Context) (Matrix, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("access repo not initialised")
	}
	const query = `SELECT permission, role FROM role_permissions`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matrix := make(Matrix)
	for rows.Next() {
		var perm, role string
		if err := rows.Scan(&perm, &role); err != nil {
			return nil, err
		}
		set, ok := matrix[PermissionID(perm)]
		if !ok {
			set = make(RoleSet)
			matrix[PermissionID(perm)] = set
		}
		set[Role(role)] = struct{}{}
	}
	return matrix, rows.Err()
}

// LoadOverrides reads all per-user overrides, dropping nothing: rows are
// sparse by construction so the canonical-minimal invariant holds on load.
func (r *Repository) LoadOverrides(ctx context.Context) (Overrides, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("access repo not initialised")
	}
	const query = `SELECT user_id, permission, allowed FROM user_permission_overrides`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	overrides := make(Overrides)
	for rows.Next() {
		var userID, perm string
		var allowed bool
		if err := rows.Scan(&userID, &perm, &allowed); err != nil {
			return nil, err
		}
		inner, ok := overrides[UserID(userID)]
		if !ok {
			inner = make(map[PermissionID]bool)
			overrides[UserID(userID)] = inner
		}
		inner[PermissionID(perm)] = allowed
	}
	return overrides, rows.Err()
}

// SaveMatrix replaces the stored matrix with the given one.
func (r *Repository) SaveMatrix(ctx context.Context, m Matrix) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("access repo not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions`); err != nil {
			return err
		}
		for perm, roles := range m {
			for role := range roles {
				if _, err := tx.Exec(ctx,
					`INSERT INTO role_permissions (permission, role) VALUES ($1, $2)`,
					string(perm), string(role),
				); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// SaveOverrides replaces the stored override set with the given one.
func (r *Repository) SaveOverrides(ctx context.Context, o Overrides) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("access repo not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_permission_overrides`); err != nil {
			return err
		}
		for user, perms := range o {
			for perm, allowed := range perms {
				if _, err := tx.Exec(ctx,
					`INSERT INTO user_permission_overrides (user_id, permission, allowed) VALUES ($1, $2, $3)`,
					string(user), string(perm), allowed,
				); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
