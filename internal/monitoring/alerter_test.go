package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-enricher/internal/config"
	"github.com/sells-group/lead-enricher/internal/model"
)

func testMonitoringConfig() config.MonitoringConfig {
	return config.MonitoringConfig{
		DegradedRateThreshold: 0.5,
		MinInvocations:        5,
		CostThresholdUSD:      10,
		LookbackWindowHours:   24,
	}
}

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(testMonitoringConfig())
	snap := &Snapshot{
		Runs:          20,
		CostUSD:       2,
		LookbackHours: 24,
		Stages: []StageStats{
			{Stage: model.StageProfile, Total: 20, OK: 19, Degraded: 1, DegradedRate: 0.05},
		},
	}
	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_StageDegradedRate(t *testing.T) {
	a := NewAlerter(testMonitoringConfig())
	snap := &Snapshot{
		LookbackHours: 24,
		Stages: []StageStats{
			{Stage: model.StageProfile, Total: 10, OK: 10},
			{
				Stage: model.StageWebsite, Total: 10, Degraded: 8, DegradedRate: 0.8,
				TopReasons: []ReasonCount{{Reason: "no external url", Count: 6}},
			},
		},
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertStageDegradedRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "website")
	assert.Contains(t, alerts[0].Message, "80.0%")
	assert.Equal(t, "no external url", alerts[0].Details["top_reason"])
}

func TestAlerter_Evaluate_Critical(t *testing.T) {
	a := NewAlerter(testMonitoringConfig())
	snap := &Snapshot{Stages: []StageStats{
		{Stage: model.StageReels, Total: 5, Degraded: 5, DegradedRate: 1},
	}}
	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, "critical", alerts[0].Severity)
}

func TestAlerter_Evaluate_BelowMinInvocations(t *testing.T) {
	a := NewAlerter(testMonitoringConfig())
	snap := &Snapshot{Stages: []StageStats{
		{Stage: model.StageReels, Total: 4, Degraded: 4, DegradedRate: 1},
	}}
	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_ThresholdDisabled(t *testing.T) {
	cfg := testMonitoringConfig()
	cfg.DegradedRateThreshold = 0
	a := NewAlerter(cfg)
	snap := &Snapshot{Stages: []StageStats{
		{Stage: model.StageReels, Total: 50, Degraded: 50, DegradedRate: 1},
	}}
	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_CostOverrun(t *testing.T) {
	a := NewAlerter(testMonitoringConfig())
	snap := &Snapshot{Runs: 400, CostUSD: 12.5, LookbackHours: 24}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertCostOverrun, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "$12.50")
	assert.Equal(t, 400, alerts[0].Details["runs"])
}

func TestAlerter_Evaluate_CostDisabled(t *testing.T) {
	cfg := testMonitoringConfig()
	cfg.CostThresholdUSD = 0
	a := NewAlerter(cfg)
	assert.Empty(t, a.Evaluate(&Snapshot{CostUSD: 1000}))
}

func TestAlerter_SendAlerts(t *testing.T) {
	var received atomic.Int32
	var got Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testMonitoringConfig()
	cfg.WebhookURL = srv.URL
	a := NewAlerter(cfg)

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertCostOverrun, Severity: "high", Message: "over"}})
	assert.Equal(t, 1, sent)
	assert.Equal(t, int32(1), received.Load())
	assert.Equal(t, AlertCostOverrun, got.Type)
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := testMonitoringConfig()
	cfg.WebhookURL = srv.URL
	a := NewAlerter(cfg)

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertCostOverrun}, {Type: AlertStageDegradedRate}})
	assert.Zero(t, sent)
}

func TestAlerter_SendAlerts_NoWebhook(t *testing.T) {
	a := NewAlerter(testMonitoringConfig())
	assert.Zero(t, a.SendAlerts(context.Background(), []Alert{{Type: AlertCostOverrun}}))
}
