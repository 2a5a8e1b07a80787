// Package ids generates session identifiers.
package ids

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Formats understood by Generator.
const (
	FormatUUID = "uuid"
	FormatULID = "ulid"
)

// NewUUID returns a random (v4) UUID string.
func NewUUID() string {
	return uuid.NewString()
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewULID returns a new ULID string (26 chars).
// ULIDs sort by creation time, so session listings come out in age order.
func NewULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), entropy).String()
}

// Generator returns the ID function for a format name. Empty means uuid.
func Generator(format string) (func() string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatUUID:
		return NewUUID, nil
	case FormatULID:
		return NewULID, nil
	default:
		return nil, fmt.Errorf("unknown id format %q", format)
	}
}
