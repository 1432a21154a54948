package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/vigil-ops/vigil/internal/access"
	jobmetrics "github.com/vigil-ops/vigil/internal/jobs"
)

type stubPolicyStore struct {
	matrix    access.Matrix
	overrides access.Overrides
	loadErr   error
}

func (s *stubPolicyStore) LoadMatrix(context.Context) (access.Matrix, error) {
	return s.matrix, s.loadErr
}

func (s *stubPolicyStore) LoadOverrides(context.Context) (access.Overrides, error) {
	return s.overrides, s.loadErr
}

func (s *stubPolicyStore) SaveMatrix(context.Context, access.Matrix) error { return nil }

func (s *stubPolicyStore) SaveOverrides(context.Context, access.Overrides) error { return nil }

func TestPolicySnapshotJobPublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := &stubPolicyStore{
		matrix:    access.Matrix{"VIEW_DASHBOARD": {"ROLE_A": {}}},
		overrides: access.Overrides{"u1": {"EDIT_ROSTER": false}},
	}
	snapshotter := access.NewSnapshotter(client, "vigil:policy", 0)
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	job := NewPolicySnapshotJob(store, snapshotter, nil, metrics)

	task, err := NewPolicySnapshotTask(PolicySnapshotPayload{Reason: "test"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	raw, err := mr.Get("vigil:policy")
	require.NoError(t, err)
	var doc access.PolicySnapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	require.Equal(t, []string{"ROLE_A"}, doc.Matrix["VIEW_DASHBOARD"])
}

func TestPolicySnapshotJobPropagatesLoadFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := &stubPolicyStore{loadErr: errors.New("pool exhausted")}
	snapshotter := access.NewSnapshotter(client, "vigil:policy", 0)
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	job := NewPolicySnapshotJob(store, snapshotter, nil, metrics)

	task, err := NewPolicySnapshotTask(PolicySnapshotPayload{Reason: "test"})
	require.NoError(t, err)
	require.Error(t, job.Handle(context.Background(), task))
}

func TestPolicySnapshotJobSkipsRetryOnBadPayload(t *testing.T) {
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	job := NewPolicySnapshotJob(&stubPolicyStore{}, access.NewSnapshotter(nil, "k", time.Minute), nil, metrics)

	task := asynq.NewTask(TaskPolicySnapshot, []byte("{not json"))
	err := job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}
