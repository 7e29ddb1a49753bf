package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/skein"
	"github.com/aretw0/skein/pkg/domain"
	"github.com/aretw0/skein/pkg/ports"
)

// SessionManager resumes and saves a single durable run.
type SessionManager struct {
	Store ports.SnapshotStore
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(store ports.SnapshotStore) *SessionManager {
	return &SessionManager{
		Store: store,
	}
}

// LoadOrStart restores the session into engine when a matching snapshot
// exists, and starts the engine otherwise. It reports whether the session was
// resumed. A snapshot taken against another revision of the story is
// discarded and the story starts over.
func (sm *SessionManager) LoadOrStart(ctx context.Context, engine *skein.Engine, sessionID string) (bool, error) {
	if sessionID == "" || sm.Store == nil {
		return false, engine.Start()
	}

	snap, err := sm.Store.Load(ctx, sessionID)
	switch {
	case err == nil:
		restoreErr := engine.Restore(snap)
		if restoreErr == nil {
			return true, nil
		}
		if !errors.Is(restoreErr, domain.ErrSnapshotMismatch) {
			return false, fmt.Errorf("failed to restore session %s: %w", sessionID, restoreErr)
		}
	case !errors.Is(err, domain.ErrSessionNotFound):
		return false, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	if err := engine.Start(); err != nil {
		return false, err
	}
	// Save immediately to reserve the ID.
	if err := sm.Save(ctx, sessionID, engine.Snapshot()); err != nil {
		return false, fmt.Errorf("failed to initialize session %s: %w", sessionID, err)
	}
	return false, nil
}

// Save persists the snapshot. It is a no-op for ephemeral runs.
func (sm *SessionManager) Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error {
	if sessionID == "" || sm.Store == nil {
		return nil
	}
	return sm.Store.Save(ctx, sessionID, snap)
}
