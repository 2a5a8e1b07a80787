package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/georgfedermann/hit2assext/internal/logging"
	"github.com/georgfedermann/hit2assext/pkg/domain"
	"github.com/georgfedermann/hit2assext/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Hooks are notified about pool membership changes. All fields are optional.
type Hooks struct {
	OnCreate func(id string)
	OnRemove func(id string)
	OnReap   func(id string, age time.Duration)
}

// Manager is the pool of live render sessions. It creates RenderContexts, looks them up
// by ID and reaps the ones whose owning render request is presumed abandoned.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*RenderContext

	locksMu sync.Mutex            // Global lock for the lock table
	locks   map[string]*lockEntry // Per-session locks, garbage collected by refcount

	sink        ports.SnapshotStore // Optional archive for sessions leaving the pool
	staleAfter  time.Duration
	contextOpts []Option
	hooks       Hooks
	logger      *slog.Logger
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithSink archives a snapshot of every removed or reaped session.
func WithSink(sink ports.SnapshotStore) ManagerOption {
	return func(m *Manager) {
		m.sink = sink
	}
}

// WithStaleAfter sets the age beyond which Sweep reaps a session. Zero disables reaping.
func WithStaleAfter(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.staleAfter = d
	}
}

// WithContextOptions sets options applied to every RenderContext the Manager creates.
func WithContextOptions(opts ...Option) ManagerOption {
	return func(m *Manager) {
		m.contextOpts = append(m.contextOpts, opts...)
	}
}

// WithHooks registers membership hooks.
func WithHooks(h Hooks) ManagerOption {
	return func(m *Manager) {
		m.hooks = h
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates an empty session pool.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions: make(map[string]*RenderContext),
		locks:    make(map[string]*lockEntry),
		logger:   logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Stale reports whether rc is older than threshold.
func Stale(rc *RenderContext, threshold time.Duration) bool {
	return rc.Age() > threshold
}

// Create starts a new session and registers it under its ID.
func (m *Manager) Create(ctx context.Context) *RenderContext {
	rc := New(m.contextOpts...)

	m.mu.Lock()
	m.sessions[rc.ID()] = rc
	m.mu.Unlock()

	m.logger.Debug("Session created", "session_id", rc.ID())
	if m.hooks.OnCreate != nil {
		m.hooks.OnCreate(rc.ID())
	}
	return rc
}

// Get returns the live session with the given ID.
func (m *Manager) Get(id string) (*RenderContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rc, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return rc, nil
}

// List returns the live sessions ordered by creation time, then ID.
func (m *Manager) List() []*RenderContext {
	m.mu.Lock()
	out := make([]*RenderContext, 0, len(m.sessions))
	for _, rc := range m.sessions {
		out = append(out, rc)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt().Equal(out[j].CreatedAt()) {
			return out[i].CreatedAt().Before(out[j].CreatedAt())
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Remove drops the session from the pool and archives its snapshot.
// The session stays removed even if archiving fails.
func (m *Manager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	rc, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}

	m.logger.Debug("Session removed", "session_id", id)
	if m.hooks.OnRemove != nil {
		m.hooks.OnRemove(id)
	}
	return m.archive(ctx, rc)
}

// Sweep reaps every session older than the configured threshold and returns their IDs.
// A session currently held by WithSession is skipped, however old, and becomes eligible
// again once its render pass returns. Archive failures are logged and joined into the
// returned error.
func (m *Manager) Sweep(ctx context.Context) ([]string, error) {
	if m.staleAfter <= 0 {
		return nil, nil
	}

	var (
		reaped []*RenderContext
		busy   []string
	)
	m.mu.Lock()
	for id, rc := range m.sessions {
		if !Stale(rc, m.staleAfter) {
			continue
		}
		if m.held(id) {
			busy = append(busy, id)
			continue
		}
		delete(m.sessions, id)
		reaped = append(reaped, rc)
	}
	m.mu.Unlock()

	for _, id := range busy {
		m.logger.Debug("Stale session is in use, not reaping", "session_id", id)
	}

	ids := make([]string, 0, len(reaped))
	var errs []error
	for _, rc := range reaped {
		age := rc.Age()
		ids = append(ids, rc.ID())
		m.logger.Info("Reaping stale session",
			"session_id", rc.ID(),
			"age", age.Round(time.Second),
			"threshold", m.staleAfter,
		)
		if m.hooks.OnReap != nil {
			m.hooks.OnReap(rc.ID(), age)
		}
		if err := m.archive(ctx, rc); err != nil {
			errs = append(errs, err)
		}
	}
	sort.Strings(ids)
	return ids, errors.Join(errs...)
}

func (m *Manager) archive(ctx context.Context, rc *RenderContext) error {
	if m.sink == nil {
		return nil
	}
	if err := m.sink.Save(ctx, rc.Snapshot()); err != nil {
		m.logger.Warn("Failed to archive session snapshot",
			"session_id", rc.ID(),
			"err", err,
		)
		return fmt.Errorf("failed to archive session %s: %w", rc.ID(), err)
	}
	return nil
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// held reports whether a WithSession call holds or waits for the session's lock.
// Lock order is m.mu before locksMu.
func (m *Manager) held(sessionID string) bool {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	_, ok := m.locks[sessionID]
	return ok
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return // Should not happen if paired correctly
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithSession runs fn on the live session while holding that session's lock, so render
// passes on the same session do not interleave their writes. Sweep does not reap a
// session while it is held.
func (m *Manager) WithSession(ctx context.Context, sessionID string, fn func(context.Context, *RenderContext) error) error {
	// The lock entry is registered before the lookup so a concurrent Sweep sees it.
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	rc, err := m.Get(sessionID)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, rc)
}
