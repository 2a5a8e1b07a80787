package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/georgfedermann/hit2assext/pkg/domain"
	"github.com/georgfedermann/hit2assext/pkg/observability"
	"github.com/georgfedermann/hit2assext/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

func TestMetrics_PoolHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	clock := &stepClock{now: time.Unix(1_700_000_000, 0)}

	mgr := session.NewManager(
		session.WithHooks(m.Hooks()),
		session.WithStaleAfter(20*time.Second),
		session.WithContextOptions(session.WithClock(clock)),
	)
	ctx := context.Background()

	a := mgr.Create(ctx)
	mgr.Create(ctx)
	mgr.Create(ctx)
	require.NoError(t, mgr.Remove(ctx, a.ID()))

	clock.now = clock.now.Add(25 * time.Second)
	reaped, err := mgr.Sweep(ctx)
	require.NoError(t, err)
	require.Len(t, reaped, 2)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.SessionsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsRemoved))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionsReaped))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SessionsActive))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ReapedAge))
}

func TestMetrics_Reporter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)

	var forwarded []domain.FaultKind
	next := &forwardingReporter{seen: &forwarded}
	rc := session.New(session.WithReporter(m.Reporter(next)))

	_, err := rc.ListValueAt("missing", 0)
	require.NoError(t, err)
	rc.ScalarValue("missing")
	rc.ScalarValue("missing")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SoftFaults.WithLabelValues(string(domain.FaultMissingList))))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SoftFaults.WithLabelValues(string(domain.FaultMissingScalar))))
	assert.Len(t, forwarded, 3)
}

type forwardingReporter struct{ seen *[]domain.FaultKind }

func (f *forwardingReporter) Report(kind domain.FaultKind, msg string, args ...any) {
	*f.seen = append(*f.seen, kind)
}
