// Package monitoring snapshots pipeline health and raises webhook
// alerts when queues back up or the discard rate spikes.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/aiagents-directory/directory-cli/internal/model"
	"github.com/aiagents-directory/directory-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of pipeline health.
type MetricsSnapshot struct {
	StatusCounts map[model.Status]int `json:"status_counts"`

	// Derived queue depths.
	Backlog     int `json:"backlog"`      // discovered + enriched, waiting for a worker
	InFlight    int `json:"in_flight"`    // enriching + reviewing
	SidingDepth int `json:"siding_depth"` // enrichment_failed + review_failed
	ManualQueue int `json:"manual_queue"` // needs_manual_review

	// Terminal outcomes and their ratio.
	Published   int     `json:"published"`
	Discarded   int     `json:"discarded"`
	DiscardRate float64 `json:"discard_rate"`

	// Throughput within the lookback window, when one was requested.
	Activity *store.ActivityStats `json:"activity,omitempty"`

	CollectedAt time.Time `json:"collected_at"`
}

// Collector gathers metrics from the store.
type Collector struct {
	store store.Store
}

func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot of pipeline metrics.
func (c *Collector) Collect(ctx context.Context) (*MetricsSnapshot, error) {
	counts, err := c.store.CountByStatus(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count by status")
	}

	snap := &MetricsSnapshot{
		StatusCounts: counts,
		Backlog:      counts[model.StatusDiscovered] + counts[model.StatusEnriched],
		InFlight:     counts[model.StatusEnriching] + counts[model.StatusReviewing],
		SidingDepth:  counts[model.StatusEnrichmentFailed] + counts[model.StatusReviewFailed],
		ManualQueue:  counts[model.StatusNeedsManual],
		Published:    counts[model.StatusPublished],
		Discarded:    counts[model.StatusDiscarded],
		CollectedAt:  time.Now().UTC(),
	}
	if finished := snap.Published + snap.Discarded; finished > 0 {
		snap.DiscardRate = float64(snap.Discarded) / float64(finished)
	}
	return snap, nil
}

// CollectWindow gathers a snapshot plus throughput stats for the last
// lookback duration.
func (c *Collector) CollectWindow(ctx context.Context, lookback time.Duration) (*MetricsSnapshot, error) {
	snap, err := c.Collect(ctx)
	if err != nil {
		return nil, err
	}
	activity, err := c.store.Activity(ctx, time.Now().UTC().Add(-lookback))
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: activity window")
	}
	snap.Activity = activity
	return snap, nil
}
