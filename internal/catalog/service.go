package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/vigil-ops/vigil/internal/access"
)

// RepositoryPort defines data access methods for the catalog.
type RepositoryPort interface {
	ListGroups(ctx context.Context) ([]Group, error)
	GetEntry(ctx context.Context, id access.PermissionID) (Entry, error)
	CreateEntry(ctx context.Context, id access.PermissionID, label, groupKey string) (Entry, error)
}

// Service handles permission catalog logic. The resolver never consults it;
// it exists for display grouping and for enumerating permissions on the
// effective-access view.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListGroups returns the grouped catalog for display.
func (s *Service) ListGroups(ctx context.Context) ([]Group, error) {
	return s.repo.ListGroups(ctx)
}

// ListEntries returns the flattened catalog in display order.
func (s *Service) ListEntries(ctx context.Context) ([]Entry, error) {
	groups, err := s.repo.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, g := range groups {
		entries = append(entries, g.Entries...)
	}
	return entries, nil
}

// EnsureEntry registers a permission if it is not yet catalogued.
func (s *Service) EnsureEntry(ctx context.Context, id access.PermissionID, label, groupKey string) (Entry, error) {
	trimmed := access.PermissionID(strings.TrimSpace(string(id)))
	if trimmed == "" {
		return Entry{}, errors.New("catalog: permission id required")
	}
	entry, err := s.repo.CreateEntry(ctx, trimmed, strings.TrimSpace(label), strings.TrimSpace(groupKey))
	if errors.Is(err, ErrDuplicate) {
		return s.repo.GetEntry(ctx, trimmed)
	}
	return entry, err
}
