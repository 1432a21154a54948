package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPolicySnapshot republishes the committed policy to the read-side
	// cache.
	TaskPolicySnapshot = "access:snapshot"
	// TaskAuditRetention purges audit events past the retention horizon.
	TaskAuditRetention = "audit:retention"
)

// PolicySnapshotPayload parameterises a snapshot run.
type PolicySnapshotPayload struct {
	Reason string `json:"reason"`
}

// NewPolicySnapshotTask constructs an Asynq task.
func NewPolicySnapshotTask(payload PolicySnapshotPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPolicySnapshot, data), nil
}

// AuditRetentionPayload parameterises a retention run. A zero MaxAgeHours
// falls back to the worker's configured retention.
type AuditRetentionPayload struct {
	MaxAgeHours int `json:"max_age_hours"`
}

// NewAuditRetentionTask constructs an Asynq task.
func NewAuditRetentionTask(payload AuditRetentionPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRetention, data), nil
}
