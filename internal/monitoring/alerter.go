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

	"github.com/sells-group/lead-enricher/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertStageDegradedRate AlertType = "stage_degraded_rate"
	AlertCostOverrun       AlertType = "cost_overrun"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a Snapshot against configured thresholds
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
// A stage is only judged once it has at least MinInvocations results.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	threshold := a.cfg.DegradedRateThreshold
	for _, st := range snap.Stages {
		if threshold <= 0 || st.Total < a.cfg.MinInvocations || st.Total == 0 {
			continue
		}
		if st.DegradedRate <= threshold {
			continue
		}
		details := map[string]any{
			"stage":         string(st.Stage),
			"degraded_rate": st.DegradedRate,
			"threshold":     threshold,
			"degraded":      st.Degraded,
			"total":         st.Total,
		}
		if len(st.TopReasons) > 0 {
			details["top_reason"] = st.TopReasons[0].Reason
		}
		alerts = append(alerts, Alert{
			Type:     AlertStageDegradedRate,
			Severity: severity(st.DegradedRate),
			Message: fmt.Sprintf(
				"Stage %s degraded %.1f%% of the time, threshold %.1f%% (%d of %d in last %dh)",
				st.Stage, st.DegradedRate*100, threshold*100,
				st.Degraded, st.Total, snap.LookbackHours,
			),
			Details:   details,
			Timestamp: now,
		})
	}

	if a.cfg.CostThresholdUSD > 0 && snap.CostUSD > a.cfg.CostThresholdUSD {
		alerts = append(alerts, Alert{
			Type:     AlertCostOverrun,
			Severity: "high",
			Message: fmt.Sprintf(
				"Provider cost $%.2f exceeds threshold $%.2f in last %dh",
				snap.CostUSD, a.cfg.CostThresholdUSD, snap.LookbackHours,
			),
			Details: map[string]any{
				"cost_usd":      snap.CostUSD,
				"threshold_usd": a.cfg.CostThresholdUSD,
				"runs":          snap.Runs,
			},
			Timestamp: now,
		})
	}

	return alerts
}

func severity(rate float64) string {
	if rate >= 0.9 {
		return "critical"
	}
	return "high"
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
