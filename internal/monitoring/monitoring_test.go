package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiagents-directory/directory-cli/internal/config"
	"github.com/aiagents-directory/directory-cli/internal/model"
	"github.com/aiagents-directory/directory-cli/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "monitoring.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seed(t *testing.T, st store.Store, key string, status model.Status) {
	t.Helper()
	ctx := context.Background()
	sub := &model.Submission{
		ID:           "sub-" + key,
		IdentityKey:  key,
		RawURL:       "https://" + key,
		CanonicalURL: "https://" + key,
		Status:       model.StatusDiscovered,
	}
	created, err := st.CreateSubmission(ctx, sub)
	require.NoError(t, err)
	require.True(t, created)
	if status == model.StatusDiscovered {
		return
	}
	require.NoError(t, st.Transition(ctx, sub.ID, model.StatusDiscovered, model.StatusEnriching, ""))
	if status == model.StatusEnriching {
		return
	}
	if status == model.StatusDiscarded {
		require.NoError(t, st.Transition(ctx, sub.ID, model.StatusEnriching, model.StatusDiscarded, "junk"))
		return
	}
	if status == model.StatusEnrichmentFailed {
		require.NoError(t, st.Transition(ctx, sub.ID, model.StatusEnriching, model.StatusEnrichmentFailed, "timeout"))
		return
	}
	require.NoError(t, st.Transition(ctx, sub.ID, model.StatusEnriching, model.StatusEnriched, ""))
	if status == model.StatusEnriched {
		return
	}
	require.NoError(t, st.Transition(ctx, sub.ID, model.StatusEnriched, model.StatusReviewing, ""))
	require.NoError(t, st.Transition(ctx, sub.ID, model.StatusReviewing, status, ""))
}

func TestCollector_Snapshot(t *testing.T) {
	st := newTestStore(t)
	seed(t, st, "a.example.com", model.StatusDiscovered)
	seed(t, st, "b.example.com", model.StatusDiscovered)
	seed(t, st, "c.example.com", model.StatusEnriching)
	seed(t, st, "d.example.com", model.StatusEnriched)
	seed(t, st, "e.example.com", model.StatusEnrichmentFailed)
	seed(t, st, "f.example.com", model.StatusNeedsManual)
	seed(t, st, "g.example.com", model.StatusDiscarded)

	snap, err := NewCollector(st).Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Backlog) // 2 discovered + 1 enriched
	assert.Equal(t, 1, snap.InFlight)
	assert.Equal(t, 1, snap.SidingDepth)
	assert.Equal(t, 1, snap.ManualQueue)
	assert.Equal(t, 1, snap.Discarded)
	assert.InDelta(t, 1.0, snap.DiscardRate, 1e-9)
	assert.False(t, snap.CollectedAt.IsZero())
}

func TestCollector_Window(t *testing.T) {
	st := newTestStore(t)
	seed(t, st, "a.example.com", model.StatusDiscovered)
	seed(t, st, "b.example.com", model.StatusDiscarded)

	snap, err := NewCollector(st).CollectWindow(context.Background(), time.Hour)
	require.NoError(t, err)
	require.NotNil(t, snap.Activity)
	assert.Equal(t, 2, snap.Activity.Created)
	assert.Equal(t, map[string]int{"junk": 1}, snap.Activity.DiscardReasons)
}

func TestCollector_EmptyStore(t *testing.T) {
	st := newTestStore(t)

	snap, err := NewCollector(st).Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Backlog)
	assert.Equal(t, 0.0, snap.DiscardRate)
}

func TestAlerter_Evaluate(t *testing.T) {
	cfg := config.MonitoringConfig{
		ManualQueueThreshold: 5,
		SidingThreshold:      10,
		DiscardRateThreshold: 0.5,
	}
	a := NewAlerter(cfg)

	t.Run("all under thresholds", func(t *testing.T) {
		alerts := a.Evaluate(&MetricsSnapshot{ManualQueue: 5, SidingDepth: 10})
		assert.Empty(t, alerts)
	})

	t.Run("manual queue over", func(t *testing.T) {
		alerts := a.Evaluate(&MetricsSnapshot{ManualQueue: 6})
		require.Len(t, alerts, 1)
		assert.Equal(t, AlertManualQueueDepth, alerts[0].Type)
	})

	t.Run("siding over", func(t *testing.T) {
		alerts := a.Evaluate(&MetricsSnapshot{SidingDepth: 11})
		require.Len(t, alerts, 1)
		assert.Equal(t, AlertSidingDepth, alerts[0].Type)
		assert.Equal(t, "high", alerts[0].Severity)
	})

	t.Run("discard rate needs volume", func(t *testing.T) {
		// 9 of 10 discarded: rate is over threshold but below the
		// 20-finished floor, so no alert.
		alerts := a.Evaluate(&MetricsSnapshot{Published: 1, Discarded: 9, DiscardRate: 0.9})
		assert.Empty(t, alerts)

		alerts = a.Evaluate(&MetricsSnapshot{Published: 2, Discarded: 18, DiscardRate: 0.9})
		require.Len(t, alerts, 1)
		assert.Equal(t, AlertDiscardRate, alerts[0].Type)
	})

	t.Run("disabled thresholds never fire", func(t *testing.T) {
		quiet := NewAlerter(config.MonitoringConfig{})
		alerts := quiet.Evaluate(&MetricsSnapshot{ManualQueue: 1000, SidingDepth: 1000, Discarded: 1000, DiscardRate: 1})
		assert.Empty(t, alerts)
	})
}

func TestAlerter_SendAlerts(t *testing.T) {
	var received []Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var a Alert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&a))
		received = append(received, a)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertSidingDepth, Severity: "high", Message: "sidings backed up"},
		{Type: AlertManualQueueDepth, Severity: "medium", Message: "manual queue deep"},
	})
	assert.Equal(t, 2, sent)
	require.Len(t, received, 2)
	assert.Equal(t, AlertSidingDepth, received[0].Type)
}

func TestAlerter_SendAlerts_NoWebhook(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertSidingDepth}})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertSidingDepth}})
	assert.Equal(t, 0, sent)
}
