package ports

import (
	"context"

	"github.com/georgfedermann/hit2assext/pkg/domain"
)

// SnapshotStore archives read-only snapshots of sessions that left the pool.
// It is an inspection aid: sessions are never restored from it.
type SnapshotStore interface {
	// Save stores snap under snap.ID, replacing any previous snapshot.
	Save(ctx context.Context, snap *domain.Snapshot) error

	// Load retrieves the snapshot for a session ID.
	// Returns domain.ErrSessionNotFound if there is none.
	Load(ctx context.Context, sessionID string) (*domain.Snapshot, error)

	// Delete removes the snapshot for a session ID. Deleting a missing snapshot is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored snapshots.
	List(ctx context.Context) ([]string, error)
}
