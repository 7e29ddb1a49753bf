package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/skein"
	"github.com/aretw0/skein/internal/logging"
	"github.com/aretw0/skein/pkg/domain"
	"github.com/aretw0/skein/pkg/ports"
	"github.com/google/uuid"
)

var (
	// ErrInvalidChoice is returned when a choice index is not on offer.
	ErrInvalidChoice = errors.New("choice not available")

	// ErrNotWatchable is returned by WatchLibrary when the library cannot report changes.
	ErrNotWatchable = errors.New("story library does not support watching")
)

// DefaultLockTTL bounds how long a distributed session lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager plays stories for many concurrent sessions. Each call restores the
// session snapshot into a fresh engine, applies the operation and saves the
// new snapshot, all under the session lock.
type Manager struct {
	store   ports.SnapshotStore
	library ports.StoryLibrary

	mu    sync.Mutex            // guards locks
	locks map[string]*lockEntry // ref-counted, removed when unused

	cacheMu sync.RWMutex
	stories map[string]*skein.Story

	locker    ports.DistributedLocker
	lockTTL   time.Duration
	hooks     domain.LifecycleHooks
	parseOpts []skein.ParseOption
	newID     func() string
	logger    *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager and the engines it runs.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithLifecycleHooks attaches hooks to every engine the manager runs.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithParseOptions is applied when stories are compiled.
func WithParseOptions(opts ...skein.ParseOption) Option {
	return func(m *Manager) {
		m.parseOpts = append(m.parseOpts, opts...)
	}
}

// WithIDGenerator replaces the random session id generator.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		m.newID = fn
	}
}

// NewManager creates a manager persisting to store and reading stories from library.
func NewManager(store ports.SnapshotStore, library ports.StoryLibrary, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		library: library,
		locks:   make(map[string]*lockEntry),
		stories: make(map[string]*skein.Story),
		lockTTL: DefaultLockTTL,
		newID:   uuid.NewString,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Story returns the compiled story, compiling and caching it on first use.
func (m *Manager) Story(ctx context.Context, storyID string) (*skein.Story, error) {
	m.cacheMu.RLock()
	story, ok := m.stories[storyID]
	m.cacheMu.RUnlock()
	if ok {
		return story, nil
	}

	src, err := m.library.Get(ctx, storyID)
	if err != nil {
		return nil, err
	}
	story, err = skein.ParseSource(src, append([]skein.ParseOption{skein.WithParseLogger(m.logger)}, m.parseOpts...)...)
	if err != nil {
		return nil, err
	}

	m.cacheMu.Lock()
	m.stories[storyID] = story
	m.cacheMu.Unlock()

	m.logger.Debug("story compiled", "story_id", storyID, "digest", story.Digest, "nodes", len(story.Graph.Nodes))
	return story, nil
}

// Invalidate drops a cached story so the next use recompiles it. Sessions
// started on the old version fail to restore with domain.ErrSnapshotMismatch.
func (m *Manager) Invalidate(storyID string) {
	m.cacheMu.Lock()
	delete(m.stories, storyID)
	m.cacheMu.Unlock()
}

// WatchLibrary invalidates cached stories as the library reports changes,
// until ctx is done.
func (m *Manager) WatchLibrary(ctx context.Context) error {
	w, ok := m.library.(ports.Watchable)
	if !ok {
		return ErrNotWatchable
	}
	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}

	go func() {
		for id := range changes {
			m.logger.Info("story changed", "story_id", id)
			m.Invalidate(id)
		}
	}()
	return nil
}

// Stories lists the library.
func (m *Manager) Stories(ctx context.Context) ([]string, error) {
	return m.library.List(ctx)
}

// Start begins storyID in a new session. An empty sessionID gets a generated
// one; an existing session with the same id is replaced.
func (m *Manager) Start(ctx context.Context, storyID, sessionID string) (*Session, error) {
	if sessionID == "" {
		sessionID = m.newID()
	}

	story, err := m.Story(ctx, storyID)
	if err != nil {
		return nil, err
	}

	var view *Session
	err = m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		eng := m.engine(story)
		if err := eng.Start(); err != nil {
			return err
		}
		snap := eng.Snapshot()
		if err := m.store.Save(ctx, sessionID, snap); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		view = newSession(sessionID, eng, domain.Diff(nil, snap))
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("session started", "session_id", sessionID, "story_id", storyID)
	return view, nil
}

// Get returns the current view of a session.
func (m *Manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	var view *Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		eng, _, err := m.restore(ctx, sessionID)
		if err != nil {
			return err
		}
		view = newSession(sessionID, eng, nil)
		return nil
	})
	return view, err
}

// Snapshot returns the stored snapshot of a session.
func (m *Manager) Snapshot(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		snap, err = m.store.Load(ctx, sessionID)
		return err
	})
	return snap, err
}

// Choose takes the choice at index. The returned session carries the diff
// against the previous state.
func (m *Manager) Choose(ctx context.Context, sessionID string, index int) (*Session, error) {
	return m.mutate(ctx, sessionID, func(eng *skein.Engine) error {
		ok, err := eng.Choose(index)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: index %d", ErrInvalidChoice, index)
		}
		return nil
	})
}

// Reset replays the session from the beginning. Consumed one-shot choices
// stay consumed.
func (m *Manager) Reset(ctx context.Context, sessionID string) (*Session, error) {
	return m.mutate(ctx, sessionID, func(eng *skein.Engine) error {
		eng.Reset()
		return eng.Start()
	})
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying snapshot store.
func (m *Manager) Store() ports.SnapshotStore {
	return m.store
}

func (m *Manager) mutate(ctx context.Context, sessionID string, fn func(*skein.Engine) error) (*Session, error) {
	var view *Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		eng, before, err := m.restore(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := fn(eng); err != nil {
			return err
		}

		after := eng.Snapshot()
		if err := m.store.Save(ctx, sessionID, after); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		view = newSession(sessionID, eng, domain.Diff(before, after))
		return nil
	})
	return view, err
}

// restore loads the snapshot of sessionID into a fresh engine.
func (m *Manager) restore(ctx context.Context, sessionID string) (*skein.Engine, *domain.Snapshot, error) {
	snap, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	story, err := m.Story(ctx, snap.StoryID)
	if err != nil {
		return nil, nil, err
	}

	eng := m.engine(story)
	if err := eng.Restore(snap); err != nil {
		return nil, nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	return eng, snap, nil
}

func (m *Manager) engine(story *skein.Story) *skein.Engine {
	return skein.NewEngine(story,
		skein.WithLogger(m.logger),
		skein.WithLifecycleHooks(m.hooks),
	)
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock executes fn while holding the local and, if configured, the
// distributed lock of the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
