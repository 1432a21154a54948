package access

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestSnapshotterPublish(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	snapshotter := NewSnapshotter(client, "vigil:policy", time.Minute)
	policy := Policy{
		Matrix:    Matrix{"VIEW_DASHBOARD": {"ROLE_B": {}, "ROLE_A": {}}},
		Overrides: Overrides{"u1": {"EDIT_ROSTER": false}},
	}

	require.NoError(t, snapshotter.Publish(context.Background(), policy))

	raw, err := mr.Get("vigil:policy")
	require.NoError(t, err)

	var doc PolicySnapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	require.Equal(t, []string{"ROLE_A", "ROLE_B"}, doc.Matrix["VIEW_DASHBOARD"])
	require.False(t, doc.Overrides["u1"]["EDIT_ROSTER"])
	require.False(t, doc.GeneratedAt.IsZero())

	ttl := mr.TTL("vigil:policy")
	require.Equal(t, time.Minute, ttl)
}

func TestSnapshotterUnconfigured(t *testing.T) {
	var snapshotter *Snapshotter
	require.Error(t, snapshotter.Publish(context.Background(), Policy{}))
}
