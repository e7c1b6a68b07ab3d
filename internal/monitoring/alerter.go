package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aiagents-directory/directory-cli/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertManualQueueDepth AlertType = "manual_queue_depth"
	AlertSidingDepth      AlertType = "siding_depth"
	AlertDiscardRate      AlertType = "discard_rate"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if a.cfg.ManualQueueThreshold > 0 && snap.ManualQueue > a.cfg.ManualQueueThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertManualQueueDepth,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%d submissions waiting for manual review (threshold %d)",
				snap.ManualQueue, a.cfg.ManualQueueThreshold,
			),
			Details: map[string]any{
				"manual_queue": snap.ManualQueue,
				"threshold":    a.cfg.ManualQueueThreshold,
			},
			Timestamp: now,
		})
	}

	if a.cfg.SidingThreshold > 0 && snap.SidingDepth > a.cfg.SidingThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertSidingDepth,
			Severity: "high",
			Message: fmt.Sprintf(
				"%d submissions parked in failure sidings (threshold %d)",
				snap.SidingDepth, a.cfg.SidingThreshold,
			),
			Details: map[string]any{
				"siding_depth": snap.SidingDepth,
				"threshold":    a.cfg.SidingThreshold,
			},
			Timestamp: now,
		})
	}

	// A high discard rate usually means sourcing queries are pulling in
	// junk; only meaningful once enough submissions have finished.
	finished := snap.Published + snap.Discarded
	if a.cfg.DiscardRateThreshold > 0 && finished >= 20 && snap.DiscardRate > a.cfg.DiscardRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertDiscardRate,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Discard rate %.1f%% exceeds threshold %.1f%% (%d discarded / %d finished)",
				snap.DiscardRate*100, a.cfg.DiscardRateThreshold*100,
				snap.Discarded, finished,
			),
			Details: map[string]any{
				"discard_rate": snap.DiscardRate,
				"threshold":    a.cfg.DiscardRateThreshold,
				"discarded":    snap.Discarded,
				"finished":     finished,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
