package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/vigil-ops/vigil/internal/jobs"
)

type stubPurger struct {
	retention time.Duration
	purged    int64
	err       error
}

func (s *stubPurger) PurgeOlderThan(_ context.Context, retention time.Duration) (int64, error) {
	s.retention = retention
	return s.purged, s.err
}

func TestAuditRetentionJobUsesConfiguredWindow(t *testing.T) {
	purger := &stubPurger{purged: 12}
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	job := NewAuditRetentionJob(purger, 90*24*time.Hour, nil, metrics)

	task, err := NewAuditRetentionTask(AuditRetentionPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 90*24*time.Hour, purger.retention)
}

func TestAuditRetentionJobPayloadOverridesWindow(t *testing.T) {
	purger := &stubPurger{}
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	job := NewAuditRetentionJob(purger, 90*24*time.Hour, nil, metrics)

	task, err := NewAuditRetentionTask(AuditRetentionPayload{MaxAgeHours: 24})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 24*time.Hour, purger.retention)
}

func TestAuditRetentionJobSkipsRetryWithoutWindow(t *testing.T) {
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	job := NewAuditRetentionJob(&stubPurger{}, 0, nil, metrics)

	task, err := NewAuditRetentionTask(AuditRetentionPayload{})
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)
}

func TestAuditRetentionJobPropagatesPurgeFailure(t *testing.T) {
	purger := &stubPurger{err: errors.New("lock timeout")}
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	job := NewAuditRetentionJob(purger, time.Hour, nil, metrics)

	task, err := NewAuditRetentionTask(AuditRetentionPayload{})
	require.NoError(t, err)
	require.Error(t, job.Handle(context.Background(), task))
}
