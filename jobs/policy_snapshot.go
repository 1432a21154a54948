package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/vigil-ops/vigil/internal/access"
	jobmetrics "github.com/vigil-ops/vigil/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// PolicySnapshotJob reloads the committed policy from the store and
// republishes it to the read-side cache.
type PolicySnapshotJob struct {
	Store       access.PolicyStore
	Snapshotter *access.Snapshotter
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	clock       func() time.Time
}

// NewPolicySnapshotJob wires dependencies for the snapshot handler.
func NewPolicySnapshotJob(store access.PolicyStore, snapshotter *access.Snapshotter, logger *slog.Logger, metrics *jobmetrics.Metrics) *PolicySnapshotJob {
	return &PolicySnapshotJob{
		Store:       store,
		Snapshotter: snapshotter,
		Logger:      logger,
		Metrics:     metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes policy snapshot tasks.
func (j *PolicySnapshotJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil || j.Snapshotter == nil {
		return errors.New("policy snapshot: handler not configured")
	}
	var payload PolicySnapshotPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskPolicySnapshot)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("reason", payload.Reason))

	matrix, err := j.Store.LoadMatrix(ctx)
	if err != nil {
		resultErr = err
		logger.Error("load matrix", slog.Any("error", err))
		return resultErr
	}
	overrides, err := j.Store.LoadOverrides(ctx)
	if err != nil {
		resultErr = err
		logger.Error("load overrides", slog.Any("error", err))
		return resultErr
	}

	policy := access.Policy{Matrix: matrix, Overrides: overrides}
	if err := j.Snapshotter.Publish(ctx, policy); err != nil {
		resultErr = err
		logger.Error("publish snapshot", slog.Any("error", err))
		return resultErr
	}
	logger.Info("policy snapshot published",
		slog.Int("permissions", len(matrix)),
		slog.Int("override_users", len(overrides)))
	return resultErr
}

func (j *PolicySnapshotJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *PolicySnapshotJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
