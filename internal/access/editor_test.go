package access

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu sync.Mutex

	matrix    Matrix
	overrides Overrides

	savedMatrix    []Matrix
	savedOverrides []Overrides

	saveMatrixErr    error
	saveOverridesErr error

	saveMatrixStarted chan struct{}
	releaseSaveMatrix chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{matrix: Matrix{}, overrides: Overrides{}}
}

func (f *fakeStore) LoadMatrix(context.Context) (Matrix, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.matrix.clone(), nil
}

func (f *fakeStore) LoadOverrides(context.Context) (Overrides, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.overrides.clone(), nil
}

func (f *fakeStore) SaveMatrix(ctx context.Context, m Matrix) error {
	if f.saveMatrixStarted != nil {
		close(f.saveMatrixStarted)
	}
	if f.releaseSaveMatrix != nil {
		select {
		case <-f.releaseSaveMatrix:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.saveMatrixErr != nil {
		return f.saveMatrixErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matrix = m.clone()
	f.savedMatrix = append(f.savedMatrix, m.clone())
	return nil
}

func (f *fakeStore) SaveOverrides(_ context.Context, o Overrides) error {
	if f.saveOverridesErr != nil {
		return f.saveOverridesErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overrides = o.clone()
	f.savedOverrides = append(f.savedOverrides, o.clone())
	return nil
}

type recordedEvent struct {
	actor  string
	action string
	entity string
	detail map[string]any
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeRecorder) Record(_ context.Context, actor, action, entity string, detail map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{actor: actor, action: action, entity: entity, detail: detail})
}

type fakePublisher struct {
	mu        sync.Mutex
	published []Policy
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, p Policy) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, p.Clone())
	return nil
}

func TestEditorDraftEditsLeaveCommittedUntouched(t *testing.T) {
	store := newFakeStore()
	store.matrix = Matrix{"VIEW_DASHBOARD": {"ROLE_A": {}}}
	editor := NewEditor(EditorConfig{Store: store})
	require.NoError(t, editor.Refresh(context.Background(), ""))

	editor.Toggle(context.Background(), "ops", "ROLE_B", "VIEW_DASHBOARD")
	allow := true
	editor.SetOverride(context.Background(), "ops", "u1", "EDIT_ROSTER", &allow)

	require.True(t, editor.Draft().Matrix.Grants("ROLE_B", "VIEW_DASHBOARD"))
	require.False(t, editor.Committed().Matrix.Grants("ROLE_B", "VIEW_DASHBOARD"))
	require.NotContains(t, editor.Committed().Overrides, UserID("u1"))
	require.Empty(t, store.savedMatrix, "edits alone must not touch the store")
}

func TestEditorToggleSuperRoleIsSilentNoop(t *testing.T) {
	recorder := &fakeRecorder{}
	editor := NewEditor(EditorConfig{Store: newFakeStore(), Audit: recorder})

	before := editor.Draft()
	after := editor.Toggle(context.Background(), "ops", RoleAdmin, "VIEW_DASHBOARD")

	require.Equal(t, before, after)
	require.Empty(t, recorder.events)
}

func TestEditorCommitPersistsAndPublishes(t *testing.T) {
	store := newFakeStore()
	recorder := &fakeRecorder{}
	publisher := &fakePublisher{}
	editor := NewEditor(EditorConfig{Store: store, Audit: recorder, Publisher: publisher})

	editor.Toggle(context.Background(), "ops", "ROLE_A", "VIEW_DASHBOARD")
	deny := false
	editor.SetOverride(context.Background(), "ops", "u1", "VIEW_DASHBOARD", &deny)

	require.NoError(t, editor.Commit(context.Background(), "ops"))

	require.Len(t, store.savedMatrix, 1)
	require.Len(t, store.savedOverrides, 1)
	require.True(t, store.savedMatrix[0].Grants("ROLE_A", "VIEW_DASHBOARD"))
	require.True(t, editor.Committed().Matrix.Grants("ROLE_A", "VIEW_DASHBOARD"))

	require.Len(t, publisher.published, 1)
	require.True(t, publisher.published[0].Matrix.Grants("ROLE_A", "VIEW_DASHBOARD"))

	last := recorder.events[len(recorder.events)-1]
	require.Equal(t, "policy.commit", last.action)
	require.Equal(t, "ops", last.actor)
}

func TestEditorCommitPartialFailureKeepsDraft(t *testing.T) {
	store := newFakeStore()
	store.saveOverridesErr = errors.New("overrides table unavailable")
	editor := NewEditor(EditorConfig{Store: store})

	editor.Toggle(context.Background(), "ops", "ROLE_A", "VIEW_DASHBOARD")

	err := editor.Commit(context.Background(), "ops")
	require.Error(t, err)
	require.Contains(t, err.Error(), "persist overrides")

	// The matrix half may have persisted; no compensation is attempted.
	require.Len(t, store.savedMatrix, 1)
	require.Empty(t, store.savedOverrides)

	// The draft keeps the attempted edits so the caller can retry.
	require.True(t, editor.Draft().Matrix.Grants("ROLE_A", "VIEW_DASHBOARD"))
	require.False(t, editor.Committed().Matrix.Grants("ROLE_A", "VIEW_DASHBOARD"))
	require.False(t, editor.Saving())

	store.saveOverridesErr = nil
	require.NoError(t, editor.Commit(context.Background(), "ops"))
	require.True(t, editor.Committed().Matrix.Grants("ROLE_A", "VIEW_DASHBOARD"))
}

func TestEditorCommitRejectsOverlap(t *testing.T) {
	store := newFakeStore()
	store.saveMatrixStarted = make(chan struct{})
	store.releaseSaveMatrix = make(chan struct{})
	editor := NewEditor(EditorConfig{Store: store})

	editor.Toggle(context.Background(), "ops", "ROLE_A", "VIEW_DASHBOARD")

	first := make(chan error, 1)
	go func() {
		first <- editor.Commit(context.Background(), "ops")
	}()

	<-store.saveMatrixStarted
	require.True(t, editor.Saving())
	require.ErrorIs(t, editor.Commit(context.Background(), "ops"), ErrCommitInFlight)

	close(store.releaseSaveMatrix)
	require.NoError(t, <-first)
	require.False(t, editor.Saving())
}

func TestEditorRefreshDiscardsDraft(t *testing.T) {
	store := newFakeStore()
	store.matrix = Matrix{"VIEW_DASHBOARD": {"ROLE_A": {}}}
	editor := NewEditor(EditorConfig{Store: store})
	require.NoError(t, editor.Refresh(context.Background(), ""))

	editor.Toggle(context.Background(), "ops", "ROLE_B", "VIEW_DASHBOARD")
	require.True(t, editor.Draft().Matrix.Grants("ROLE_B", "VIEW_DASHBOARD"))

	require.NoError(t, editor.Refresh(context.Background(), ""))
	require.False(t, editor.Draft().Matrix.Grants("ROLE_B", "VIEW_DASHBOARD"))
	require.True(t, editor.Draft().Matrix.Grants("ROLE_A", "VIEW_DASHBOARD"))
}

func TestEditorCommitSurvivesPublishFailure(t *testing.T) {
	store := newFakeStore()
	publisher := &fakePublisher{err: errors.New("redis down")}
	editor := NewEditor(EditorConfig{Store: store, Publisher: publisher})

	editor.Toggle(context.Background(), "ops", "ROLE_A", "VIEW_DASHBOARD")
	require.NoError(t, editor.Commit(context.Background(), "ops"))
	require.True(t, editor.Committed().Matrix.Grants("ROLE_A", "VIEW_DASHBOARD"))
}

func TestEditorResolveUsesDraft(t *testing.T) {
	editor := NewEditor(EditorConfig{Store: newFakeStore()})
	user := &User{ID: "u1", Role: "ROLE_A"}

	require.False(t, editor.Resolve(user, "VIEW_DASHBOARD").Allowed)
	editor.Toggle(context.Background(), "ops", "ROLE_A", "VIEW_DASHBOARD")
	require.True(t, editor.Resolve(user, "VIEW_DASHBOARD").Allowed)
}
