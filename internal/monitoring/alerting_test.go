package monitoring

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu       sync.Mutex
	fired    []*Alert
	resolved []*Alert
}

func (r *recordingNotifier) SendAlert(_ context.Context, alert *Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, alert)
	return nil
}

func (r *recordingNotifier) ResolveAlert(_ context.Context, alert *Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved = append(r.resolved, alert)
	return nil
}

func (r *recordingNotifier) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fired), len(r.resolved)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestAlertManagerLifecycle(t *testing.T) {
	am := NewAlertManager(NewLogger(slog.LevelError), 80)
	notifier := &recordingNotifier{}
	am.AddNotifier(notifier)
	ctx := context.Background()

	// Below threshold: nothing fires.
	am.EvaluateDriver(ctx, "acme", "op-1", "Ana", 45, "medium")
	assert.Empty(t, am.GetActiveAlerts())

	// Crossing the threshold fires once.
	am.EvaluateDriver(ctx, "acme", "op-1", "Ana", 85, "critical")
	waitFor(t, func() bool { fired, _ := notifier.counts(); return fired == 1 })

	active := am.GetActiveAlerts()
	require.Len(t, active, 1)
	alert := active["acme:op-1"]
	require.NotNil(t, alert)
	assert.Equal(t, 85, alert.Score)
	assert.Equal(t, SeverityCritical, alert.Severity)

	// Still critical: score updates, no second notification.
	am.EvaluateDriver(ctx, "acme", "op-1", "Ana", 90, "critical")
	fired, _ := notifier.counts()
	assert.Equal(t, 1, fired)
	assert.Equal(t, 90, am.GetActiveAlerts()["acme:op-1"].Score)

	// Dropping below resolves.
	am.EvaluateDriver(ctx, "acme", "op-1", "Ana", 55, "medium")
	waitFor(t, func() bool { _, resolved := notifier.counts(); return resolved == 1 })
	assert.Empty(t, am.GetActiveAlerts())

	all := am.GetAlerts()
	require.Len(t, all, 1)
	assert.Equal(t, StatusResolved, all["acme:op-1"].Status)
	assert.NotNil(t, all["acme:op-1"].ResolvedAt)
}

func TestAlertManagerPerDriverIsolation(t *testing.T) {
	am := NewAlertManager(NewLogger(slog.LevelError), 80)
	ctx := context.Background()

	am.EvaluateDriver(ctx, "acme", "op-1", "Ana", 85, "critical")
	am.EvaluateDriver(ctx, "acme", "op-2", "Bram", 30, "low")
	am.EvaluateDriver(ctx, "globex", "op-1", "Cleo", 95, "critical")

	active := am.GetActiveAlerts()
	assert.Len(t, active, 2)
	assert.Contains(t, active, "acme:op-1")
	assert.Contains(t, active, "globex:op-1")
}

func TestAlertManagerDefaultThreshold(t *testing.T) {
	am := NewAlertManager(NewLogger(slog.LevelError), 0)
	ctx := context.Background()

	am.EvaluateDriver(ctx, "acme", "op-1", "", 79, "high")
	assert.Empty(t, am.GetActiveAlerts())

	am.EvaluateDriver(ctx, "acme", "op-1", "", 80, "critical")
	assert.Len(t, am.GetActiveAlerts(), 1)
}
