package directory

import (
	"context"

	"github.com/vigil-ops/vigil/internal/access"
)

// RepositoryPort defines data access methods for the directory.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]access.User, error)
	GetUser(ctx context.Context, id access.UserID) (access.User, error)
	ListRoles(ctx context.Context) ([]access.Role, error)
}

// Service handles user directory lookups for the editor screen.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// SearchUsers returns users whose name or badge number contains the query,
// ignoring case and diacritics. An empty query returns everyone.
func (s *Service) SearchUsers(ctx context.Context, query string) ([]access.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return users, nil
	}
	filtered := make([]access.User, 0, len(users))
	for _, u := range users {
		if matches(query, u.Name, u.BadgeNo) {
			filtered = append(filtered, u)
		}
	}
	return filtered, nil
}

// GetUser fetches a single user. Returns ErrNotFound when absent; callers
// resolving permissions treat that as fail-closed, never as a failure.
func (s *Service) GetUser(ctx context.Context, id access.UserID) (access.User, error) {
	return s.repo.GetUser(ctx, id)
}

// ListRoles returns the fixed role enumeration.
func (s *Service) ListRoles(ctx context.Context) ([]access.Role, error) {
	return s.repo.ListRoles(ctx)
}
