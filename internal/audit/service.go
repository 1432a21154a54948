package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// RepositoryPort defines the persistence operations the service needs.
type RepositoryPort interface {
	Insert(ctx context.Context, event Event) error
	TimelineWindow(ctx context.Context, filters TimelineFilters, limit, offset int) ([]Event, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service coordinates the policy-edit audit trail.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Record appends an event. Recording is best effort: failures are logged and
// swallowed so a broken audit table never blocks policy editing.
func (s *Service) Record(ctx context.Context, actor, action, entity string, detail map[string]any) {
	if s == nil || s.repo == nil {
		return
	}
	if actor == "" {
		actor = "unknown"
	}
	event := Event{
		ID:     uuid.New(),
		At:     time.Now().UTC(),
		Actor:  actor,
		Action: action,
		Entity: entity,
		Detail: detail,
	}
	if err := s.repo.Insert(ctx, event); err != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}

// Timeline fetches audit events with window paging.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s == nil || s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	rows, err := s.repo.TimelineWindow(ctx, filters, pageSize+1, offset)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// PurgeOlderThan deletes events past the retention horizon.
func (s *Service) PurgeOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	if s == nil || s.repo == nil {
		return 0, fmt.Errorf("audit: repository not configured")
	}
	return s.repo.DeleteOlderThan(ctx, time.Now().UTC().Add(-retention))
}
