package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/georgfedermann/hit2assext/pkg/domain"
	"github.com/georgfedermann/hit2assext/pkg/ports"
	"github.com/google/uuid"
)

// RenderContext is the variable store of one render session.
// It holds list and scalar variables, a sequence counter for stamping emitted elements,
// and the identity and creation time the pool uses to find abandoned sessions.
//
// All methods are safe for concurrent use. Concurrent writes to the same variable
// name are not ordered; callers that need ordering serialize through Manager.WithSession.
type RenderContext struct {
	id        string
	createdAt time.Time
	clock     ports.Clock
	reporter  ports.Reporter

	mu      sync.RWMutex
	lists   map[string][]any
	scalars map[string]any

	seqMu       sync.Mutex
	sequence    int
	lastQueried int
}

// Option configures a RenderContext.
type Option func(*RenderContext)

// WithID fixes the session ID instead of generating one.
func WithID(id string) Option {
	return func(rc *RenderContext) {
		rc.id = id
	}
}

// WithIDGenerator sets the function used to generate the session ID.
func WithIDGenerator(gen func() string) Option {
	return func(rc *RenderContext) {
		if gen != nil && rc.id == "" {
			rc.id = gen()
		}
	}
}

// WithClock sets the clock used for the creation time and age.
func WithClock(clock ports.Clock) Option {
	return func(rc *RenderContext) {
		rc.clock = clock
	}
}

// WithReporter sets the sink for soft faults.
func WithReporter(r ports.Reporter) Option {
	return func(rc *RenderContext) {
		rc.reporter = r
	}
}

// New creates an empty RenderContext with a fresh ID and the current time as its
// creation time.
func New(opts ...Option) *RenderContext {
	rc := &RenderContext{
		clock:    ports.SystemClock{},
		reporter: ports.NopReporter{},
		lists:    make(map[string][]any),
		scalars:  make(map[string]any),
		sequence: 1,
	}
	for _, opt := range opts {
		opt(rc)
	}
	if rc.id == "" {
		rc.id = uuid.NewString()
	}
	rc.createdAt = rc.clock.Now()
	return rc
}

// ID returns the session identifier.
func (rc *RenderContext) ID() string {
	return rc.id
}

// CreatedAt returns the creation time.
func (rc *RenderContext) CreatedAt() time.Time {
	return rc.createdAt
}

// Age returns the time elapsed since creation, measured now.
func (rc *RenderContext) Age() time.Duration {
	return rc.clock.Now().Sub(rc.createdAt)
}

// AgeSeconds returns the age in whole seconds.
func (rc *RenderContext) AgeSeconds() int64 {
	return int64(rc.Age() / time.Second)
}

// DeclareList creates the list name, discarding any list previously stored under it.
func (rc *RenderContext) DeclareList(name string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.lists[name] = make([]any, 0)
}

// ensureListLocked returns the list name, creating it empty if needed.
// Caller must hold the write lock.
func (rc *RenderContext) ensureListLocked(name string) []any {
	list, ok := rc.lists[name]
	if !ok {
		list = make([]any, 0)
		rc.lists[name] = list
	}
	return list
}

// AppendListValue appends value to the list name. A list that was never declared
// comes into existence on first use.
func (rc *RenderContext) AppendListValue(name string, value any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.lists[name] = append(rc.ensureListLocked(name), value)
}

// SetListValueAt replaces the element at index and returns the previous one.
// The list must exist and index must be within bounds; unlike ListValueAt this is
// checked as a precondition, not reported as a soft fault.
func (rc *RenderContext) SetListValueAt(name string, index int, value any) (any, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	list, ok := rc.lists[name]
	if !ok {
		return nil, domain.Precondition("SetListValueAt", "no list with name %q", name)
	}
	if index < 0 || index >= len(list) {
		return nil, domain.Precondition("SetListValueAt", "index %d out of range for list %q of length %d", index, name, len(list))
	}
	prev := list[index]
	list[index] = value
	return prev, nil
}

// ListValueAt returns the element at index of the list name. The name is trimmed and
// must not be blank. A missing list or an index out of range is reported and
// yields a diagnostic value, so the render pass can continue.
func (rc *RenderContext) ListValueAt(name string, index int) (domain.Value, error) {
	if strings.TrimSpace(name) == "" {
		return domain.Value{}, domain.Precondition("ListValueAt", "list name is empty or consists of whitespace only")
	}
	name = strings.TrimSpace(name)

	rc.mu.RLock()
	list, ok := rc.lists[name]
	var (
		length int
		value  any
	)
	if ok {
		length = len(list)
		if index >= 0 && index < length {
			value = list[index]
		}
	}
	rc.mu.RUnlock()

	switch {
	case !ok:
		rc.reporter.Report(domain.FaultMissingList,
			fmt.Sprintf("The list %s has not been initialized; declare it before referencing it.", name),
			"list", name,
		)
		return domain.Diagnostic("no list with name " + name), nil
	case index < 0 || index >= length:
		rc.reporter.Report(domain.FaultIndexOutOfRange,
			fmt.Sprintf("Index %d invalid for list %s.size()=%d", index, name, length),
			"list", name, "index", index, "length", length,
		)
		return domain.Diagnostic("IndexOutOfBounds"), nil
	}
	return domain.Found(value), nil
}

// ListLength returns the number of elements in the list name, or -1 if there is no
// such list.
func (rc *RenderContext) ListLength(name string) int {
	rc.mu.RLock()
	list, ok := rc.lists[name]
	rc.mu.RUnlock()

	if !ok {
		rc.reporter.Report(domain.FaultMissingList,
			fmt.Sprintf("Cannot retrieve length for list %s, no such list was found.", name),
			"list", name,
		)
		return -1
	}
	return len(list)
}

// AppendAll appends every element of the source list to the target list, in order.
//
// A missing source is benign: it is reported as a warning and nothing is copied.
// A missing target means the caller skipped its declaration and is a precondition
// violation.
func (rc *RenderContext) AppendAll(sourceName, targetName string) error {
	if strings.TrimSpace(sourceName) == "" {
		return domain.Precondition("AppendAll", "source list name cannot be empty")
	}
	if strings.TrimSpace(targetName) == "" {
		return domain.Precondition("AppendAll", "target list name cannot be empty")
	}

	rc.mu.Lock()
	source, sourceOK := rc.lists[sourceName]
	target, targetOK := rc.lists[targetName]
	if !sourceOK {
		rc.mu.Unlock()
		rc.reporter.Report(domain.FaultMissingSource,
			fmt.Sprintf("No source list %s found; no elements will be added to %s.", sourceName, targetName),
			"source", sourceName, "target", targetName,
		)
		return nil
	}
	if !targetOK {
		rc.mu.Unlock()
		return domain.Precondition("AppendAll", "no target list with name %q", targetName)
	}
	// source is read in full before target grows, so a self-append copies once.
	items := make([]any, len(source))
	copy(items, source)
	rc.lists[targetName] = append(target, items...)
	rc.mu.Unlock()
	return nil
}

// DeclareScalar makes sure name exists, initializing it to the empty string.
// An existing value is left alone.
func (rc *RenderContext) DeclareScalar(name string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if _, ok := rc.scalars[name]; !ok {
		rc.scalars[name] = ""
	}
}

// SetScalarValue stores value under name.
func (rc *RenderContext) SetScalarValue(name string, value any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.scalars[name] = value
}

// ScalarValue returns the value stored under name. A name that was never set, or was
// set to nil, is reported and yields a diagnostic value.
func (rc *RenderContext) ScalarValue(name string) domain.Value {
	rc.mu.RLock()
	value := rc.scalars[name]
	rc.mu.RUnlock()

	if value == nil {
		rc.reporter.Report(domain.FaultMissingScalar,
			"No variable exists for variableName "+name,
			"variable", name,
		)
		return domain.Diagnostic("No variable exists for variableName " + name)
	}
	return domain.Found(value)
}

// CurrentSequence returns the sequence counter and records the returned value as the
// last queried sequence.
func (rc *RenderContext) CurrentSequence() int {
	rc.seqMu.Lock()
	defer rc.seqMu.Unlock()
	rc.lastQueried = rc.sequence
	return rc.lastQueried
}

// LastQueriedSequence returns the value most recently returned by CurrentSequence,
// or 0 if it was never called.
func (rc *RenderContext) LastQueriedSequence() int {
	rc.seqMu.Lock()
	defer rc.seqMu.Unlock()
	return rc.lastQueried
}

// IncrementSequence advances the sequence counter by one and returns the new value.
func (rc *RenderContext) IncrementSequence() int {
	rc.seqMu.Lock()
	defer rc.seqMu.Unlock()
	rc.sequence++
	return rc.sequence
}

// Snapshot copies the session for inspection. It does not count as a sequence query.
func (rc *RenderContext) Snapshot() *domain.Snapshot {
	snap := &domain.Snapshot{
		ID:         rc.id,
		CreatedAt:  rc.createdAt,
		AgeSeconds: rc.AgeSeconds(),
	}

	rc.seqMu.Lock()
	snap.Sequence = rc.sequence
	snap.LastQueriedSequence = rc.lastQueried
	rc.seqMu.Unlock()

	rc.mu.RLock()
	defer rc.mu.RUnlock()
	snap.Lists = make(map[string][]any, len(rc.lists))
	for name, list := range rc.lists {
		cp := make([]any, len(list))
		copy(cp, list)
		snap.Lists[name] = cp
	}
	snap.Scalars = make(map[string]any, len(rc.scalars))
	for name, v := range rc.scalars {
		snap.Scalars[name] = v
	}
	return snap
}

func (rc *RenderContext) String() string {
	return fmt.Sprintf("RenderContext{createdAt=%s, id='%s'}", rc.createdAt.Format(time.RFC3339), rc.id)
}
