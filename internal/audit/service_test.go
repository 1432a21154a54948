package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	inserted  []Event
	insertErr error

	rows      []Event
	lastLimit int
	lastOff   int

	deletedCutoff time.Time
	deleted       int64
}

func (f *fakeRepo) Insert(_ context.Context, event Event) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, event)
	return nil
}

func (f *fakeRepo) TimelineWindow(_ context.Context, _ TimelineFilters, limit, offset int) ([]Event, error) {
	f.lastLimit = limit
	f.lastOff = offset
	if offset >= len(f.rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.rows) {
		end = len(f.rows)
	}
	return f.rows[offset:end], nil
}

func (f *fakeRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.deletedCutoff = cutoff
	return f.deleted, nil
}

func makeEvents(n int) []Event {
	out := make([]Event, n)
	for i := range out {
		out[i] = Event{Action: "matrix.toggle", Actor: "ops"}
	}
	return out
}

func TestRecordFillsDefaults(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, nil)

	svc.Record(context.Background(), "", "override.set", "EDIT_ROSTER", map[string]any{"user_id": "u1"})

	require.Len(t, repo.inserted, 1)
	event := repo.inserted[0]
	require.Equal(t, "unknown", event.Actor)
	require.Equal(t, "override.set", event.Action)
	require.NotEqual(t, [16]byte{}, [16]byte(event.ID))
	require.False(t, event.At.IsZero())
}

func TestRecordSwallowsRepoFailure(t *testing.T) {
	repo := &fakeRepo{insertErr: errors.New("audit table gone")}
	svc := NewService(repo, nil)

	require.NotPanics(t, func() {
		svc.Record(context.Background(), "ops", "policy.commit", "policy", nil)
	})
}

func TestTimelinePagingDefaultsAndClamp(t *testing.T) {
	repo := &fakeRepo{rows: makeEvents(120)}
	svc := NewService(repo, nil)

	result, err := svc.Timeline(context.Background(), TimelineFilters{})
	require.NoError(t, err)
	require.Equal(t, 20, result.Paging.PageSize)
	require.Equal(t, 1, result.Paging.Page)
	require.Len(t, result.Rows, 20)
	require.True(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.NextPage)
	require.Zero(t, result.Paging.PrevPage)

	result, err = svc.Timeline(context.Background(), TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	require.Equal(t, 50, result.Paging.PageSize)
	require.Len(t, result.Rows, 50)
}

func TestTimelineLastPage(t *testing.T) {
	repo := &fakeRepo{rows: makeEvents(25)}
	svc := NewService(repo, nil)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 2, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, result.Rows, 5)
	require.False(t, result.Paging.HasNext)
	require.Equal(t, 1, result.Paging.PrevPage)
	require.Zero(t, result.Paging.NextPage)
	require.Equal(t, 20, repo.lastOff)
}

func TestPurgeOlderThanUsesRetentionCutoff(t *testing.T) {
	repo := &fakeRepo{deleted: 7}
	svc := NewService(repo, nil)

	n, err := svc.PurgeOlderThan(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(7), n)

	expected := time.Now().UTC().Add(-30 * 24 * time.Hour)
	require.WithinDuration(t, expected, repo.deletedCutoff, time.Minute)
}
