package ports_test

import (
	"context"
	"sync"
	"testing"

	"github.com/georgfedermann/hit2assext/pkg/domain"
	"github.com/georgfedermann/hit2assext/pkg/ports"
	"github.com/stretchr/testify/assert"
)

// MockStore is a minimal SnapshotStore used to check the contract suite itself.
type MockStore struct {
	mu   sync.Mutex
	data map[string]*domain.Snapshot
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string]*domain.Snapshot)}
}

func (m *MockStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[snap.ID] = snap.Clone()
	return nil
}

func (m *MockStore) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return snap.Clone(), nil
}

func (m *MockStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sessionID)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestSnapshotStore_Contract(t *testing.T) {
	ports.RunSnapshotStoreContract(t, NewMockStore())
}

func TestReporterFunc(t *testing.T) {
	var got domain.FaultKind
	var r ports.Reporter = ports.ReporterFunc(func(kind domain.FaultKind, msg string, args ...any) {
		got = kind
	})
	r.Report(domain.FaultMissingScalar, "missing")
	assert.Equal(t, domain.FaultMissingScalar, got)

	// Must not panic.
	ports.NopReporter{}.Report(domain.FaultMissingList, "ignored", "k", "v")
}
