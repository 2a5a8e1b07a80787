package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpAdapter "github.com/georgfedermann/hit2assext/pkg/adapters/http"
	"github.com/georgfedermann/hit2assext/pkg/adapters/memory"
	"github.com/georgfedermann/hit2assext/pkg/domain"
	"github.com/georgfedermann/hit2assext/pkg/observability"
	"github.com/georgfedermann/hit2assext/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct{ now time.Time }

func (c *manualClock) Now() time.Time { return c.now }

type fixture struct {
	clock   *manualClock
	mgr     *session.Manager
	archive *memory.Store
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &manualClock{now: time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)}
	archive := memory.NewStore()
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	mgr := session.NewManager(
		session.WithContextOptions(session.WithClock(clock)),
		session.WithStaleAfter(20*time.Second),
		session.WithSink(archive),
		session.WithHooks(metrics.Hooks()),
	)
	return &fixture{
		clock:   clock,
		mgr:     mgr,
		archive: archive,
		handler: httpAdapter.NewHandler(mgr, httpAdapter.WithArchive(archive), httpAdapter.WithGatherer(reg)),
	}
}

func (f *fixture) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestListSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mgr.Create(ctx)
	f.clock.now = f.clock.now.Add(3 * time.Second)
	b := f.mgr.Create(ctx)

	w := f.do(t, http.MethodGet, "/sessions")
	require.Equal(t, http.StatusOK, w.Code)

	var got []httpAdapter.SessionSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, a.ID(), got[0].ID)
	assert.Equal(t, int64(3), got[0].AgeSeconds)
	assert.Equal(t, b.ID(), got[1].ID)
	assert.Equal(t, int64(0), got[1].AgeSeconds)
}

func TestGetSession_LiveAndArchived(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rc := f.mgr.Create(ctx)
	rc.AppendListValue("rows", "r1")
	rc.SetScalarValue("title", "Invoice")

	w := f.do(t, http.MethodGet, "/sessions/"+rc.ID())
	require.Equal(t, http.StatusOK, w.Code)
	var live domain.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &live))
	assert.Equal(t, rc.ID(), live.ID)
	assert.Equal(t, []any{"r1"}, live.Lists["rows"])

	w = f.do(t, http.MethodDelete, "/sessions/"+rc.ID())
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/sessions/"+rc.ID())
	require.Equal(t, http.StatusOK, w.Code, "removed sessions are served from the archive")
	var archived domain.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &archived))
	assert.Equal(t, "Invoice", archived.Scalars["title"])
}

func TestGetSession_NotFound(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/sessions/nope").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/sessions/nope").Code)
}

func TestSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stale := f.mgr.Create(ctx)
	f.clock.now = f.clock.now.Add(25 * time.Second)
	fresh := f.mgr.Create(ctx)

	w := f.do(t, http.MethodPost, "/sweep")
	require.Equal(t, http.StatusOK, w.Code)

	var resp httpAdapter.SweepResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{stale.ID()}, resp.Reaped)
	assert.Empty(t, resp.Error)

	_, err := f.mgr.Get(fresh.ID())
	assert.NoError(t, err)

	w = f.do(t, http.MethodPost, "/sweep")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{}, resp.Reaped)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.mgr.Create(context.Background())

	w := f.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hit2assext_sessions_created_total 1")
	assert.Contains(t, w.Body.String(), "hit2assext_sessions_active 1")
}

func TestNoMetricsWithoutGatherer(t *testing.T) {
	handler := httpAdapter.NewHandler(session.NewManager())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
