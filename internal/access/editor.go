package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrCommitInFlight is returned when a commit is requested while a previous
// one is still persisting. Overlapping saves are rejected outright; the
// caller retries once the running save settles.
var ErrCommitInFlight = errors.New("access: commit already in flight")

// PolicyStore loads and persists the two policy structures. The two save
// operations are deliberately independent; Commit runs them concurrently and
// does not compensate when only one succeeds.
type PolicyStore interface {
	LoadMatrix(ctx context.Context) (Matrix, error)
	LoadOverrides(ctx context.Context) (Overrides, error)
	SaveMatrix(ctx context.Context, m Matrix) error
	SaveOverrides(ctx context.Context, o Overrides) error
}

// Recorder receives policy-edit audit events. Recording is best effort and
// must never fail a mutation.
type Recorder interface {
	Record(ctx context.Context, actor, action, entity string, detail map[string]any)
}

// SnapshotPublisher republishes the committed policy for read-side consumers
// after a successful commit.
type SnapshotPublisher interface {
	Publish(ctx context.Context, p Policy) error
}

// Editor holds the committed policy and an editable draft. All edits mutate
// only the draft, by structural replacement; the committed pair changes only
// after a successful Commit or an explicit Refresh. A mutex stands in for the
// single-threaded editing surface: every operation observes fully applied
// state.
type Editor struct {
	store     PolicyStore
	logger    *slog.Logger
	audit     Recorder
	publisher SnapshotPublisher

	mu        sync.Mutex
	committed Policy
	draft     Policy
	saving    bool
}

// EditorConfig collects Editor dependencies. Audit and Publisher are optional.
type EditorConfig struct {
	Store     PolicyStore
	Logger    *slog.Logger
	Audit     Recorder
	Publisher SnapshotPublisher
}

// NewEditor constructs an Editor with empty policy; call Refresh to seed it
// from the store.
func NewEditor(cfg EditorConfig) *Editor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	empty := Policy{Matrix: Matrix{}, Overrides: Overrides{}}
	return &Editor{
		store:     cfg.Store,
		logger:    logger,
		audit:     cfg.Audit,
		publisher: cfg.Publisher,
		committed: empty,
		draft:     empty.Clone(),
	}
}

// Refresh discards the draft and reloads both structures from the store.
// An empty actor marks a non-interactive reload (boot) and is not audited.
func (e *Editor) Refresh(ctx context.Context, actor string) error {
	matrix, err := e.store.LoadMatrix(ctx)
	if err != nil {
		return fmt.Errorf("access: load matrix: %w", err)
	}
	overrides, err := e.store.LoadOverrides(ctx)
	if err != nil {
		return fmt.Errorf("access: load overrides: %w", err)
	}
	loaded := Policy{Matrix: matrix, Overrides: overrides}

	e.mu.Lock()
	e.committed = loaded
	e.draft = loaded.Clone()
	e.mu.Unlock()

	if actor != "" {
		e.record(ctx, actor, "policy.refresh", "policy", map[string]any{
			"permissions": len(matrix),
			"overrides":   len(overrides),
		})
	}
	return nil
}

// Draft returns a copy of the current draft policy.
func (e *Editor) Draft() Policy {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft.Clone()
}

// Saving reports whether a commit is currently persisting.
func (e *Editor) Saving() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saving
}

// Toggle flips a role's default grant for a permission in the draft.
// Attempts against the super role are silent no-ops and are not audited.
func (e *Editor) Toggle(ctx context.Context, actor string, role Role, permission PermissionID) Policy {
	e.mu.Lock()
	if role == RoleAdmin {
		snapshot := e.draft.Clone()
		e.mu.Unlock()
		return snapshot
	}
	e.draft = Policy{
		Matrix:    e.draft.Matrix.Toggle(role, permission),
		Overrides: e.draft.Overrides,
	}
	granted := e.draft.Matrix.Grants(role, permission)
	snapshot := e.draft.Clone()
	e.mu.Unlock()

	e.record(ctx, actor, "matrix.toggle", string(permission), map[string]any{
		"role":    string(role),
		"granted": granted,
	})
	return snapshot
}

// SetOverride sets, replaces, or clears (value nil) a per-user override in
// the draft.
func (e *Editor) SetOverride(ctx context.Context, actor string, user UserID, permission PermissionID, value *bool) Policy {
	e.mu.Lock()
	e.draft = Policy{
		Matrix:    e.draft.Matrix,
		Overrides: e.draft.Overrides.Set(user, permission, value),
	}
	snapshot := e.draft.Clone()
	e.mu.Unlock()

	action := "override.clear"
	detail := map[string]any{"user_id": string(user)}
	if value != nil {
		action = "override.set"
		detail["allowed"] = *value
	}
	e.record(ctx, actor, action, string(permission), detail)
	return snapshot
}

// Resolve computes the effective decision for one permission against the
// current draft.
func (e *Editor) Resolve(user *User, permission PermissionID) Decision {
	e.mu.Lock()
	matrix, overrides := e.draft.Matrix, e.draft.Overrides
	e.mu.Unlock()
	return Resolve(user, permission, matrix, overrides)
}

// Commit persists the draft: matrix and overrides are written concurrently
// as two independent operations. If either fails the commit as a whole fails
// and the draft is kept so the caller can retry; whatever half already
// persisted stays persisted. On success the draft becomes the committed
// state.
func (e *Editor) Commit(ctx context.Context, actor string) error {
	e.mu.Lock()
	if e.saving {
		e.mu.Unlock()
		return ErrCommitInFlight
	}
	e.saving = true
	snapshot := e.draft.Clone()
	e.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := e.store.SaveMatrix(gctx, snapshot.Matrix); err != nil {
			return fmt.Errorf("persist matrix: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := e.store.SaveOverrides(gctx, snapshot.Overrides); err != nil {
			return fmt.Errorf("persist overrides: %w", err)
		}
		return nil
	})
	err := g.Wait()

	e.mu.Lock()
	e.saving = false
	if err == nil {
		e.committed = snapshot
	}
	e.mu.Unlock()

	if err != nil {
		e.logger.Error("policy commit failed", slog.Any("error", err))
		return fmt.Errorf("access: commit: %w", err)
	}

	e.record(ctx, actor, "policy.commit", "policy", map[string]any{
		"permissions": len(snapshot.Matrix),
		"overrides":   len(snapshot.Overrides),
	})
	if e.publisher != nil {
		if perr := e.publisher.Publish(ctx, snapshot); perr != nil {
			e.logger.Warn("policy snapshot publish", slog.Any("error", perr))
		}
	}
	return nil
}

// Committed returns a copy of the last committed policy.
func (e *Editor) Committed() Policy {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.committed.Clone()
}

func (e *Editor) record(ctx context.Context, actor, action, entity string, detail map[string]any) {
	if e.audit == nil {
		return
	}
	e.audit.Record(ctx, actor, action, entity, detail)
}
