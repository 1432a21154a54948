package access

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PolicySnapshot is the read-side JSON document other services consume
// instead of querying the policy tables directly.
type PolicySnapshot struct {
	Matrix      MatrixView    `json:"matrix"`
	Overrides   OverridesView `json:"overrides"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// Snapshotter writes the committed policy to Redis under a fixed key.
type Snapshotter struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewSnapshotter constructs a Snapshotter. A zero ttl stores the key without
// expiry.
func NewSnapshotter(client *redis.Client, key string, ttl time.Duration) *Snapshotter {
	return &Snapshotter{client: client, key: key, ttl: ttl}
}

// Publish serializes the policy and stores it.
func (s *Snapshotter) Publish(ctx context.Context, policy Policy) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("access: snapshotter not configured")
	}
	doc := PolicySnapshot{
		Matrix:      NewMatrixView(policy.Matrix),
		Overrides:   NewOverridesView(policy.Overrides),
		GeneratedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("access: marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("access: store snapshot: %w", err)
	}
	return nil
}
