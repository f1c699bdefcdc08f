package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-enricher/internal/config"
	"github.com/sells-group/lead-enricher/internal/model"
)

func TestChecker_RunStopsOnCancel(t *testing.T) {
	cfg := config.MonitoringConfig{CheckIntervalSecs: 1, LookbackWindowHours: 24}
	checker := NewChecker(NewCollector(&fakeRuns{}), NewAlerter(cfg), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Checker.Run did not stop after context cancellation")
	}
}

func TestChecker_DefaultInterval(t *testing.T) {
	checker := NewChecker(NewCollector(&fakeRuns{}), NewAlerter(config.MonitoringConfig{}), config.MonitoringConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	checker.Run(ctx)
}

func TestChecker_CheckSendsAlerts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	var runs []model.Run
	for i := 0; i < 5; i++ {
		runs = append(runs, model.Run{
			ID:        "r",
			Report:    &model.RunReport{Stages: []model.StageReport{degradedStage(model.StageReels, "job TIMED_OUT")}},
			CreatedAt: time.Now().UTC().Add(-time.Minute),
		})
	}

	cfg := config.MonitoringConfig{
		WebhookURL:            srv.URL,
		LookbackWindowHours:   1,
		DegradedRateThreshold: 0.5,
		MinInvocations:        5,
	}
	checker := NewChecker(NewCollector(&fakeRuns{runs: runs}), NewAlerter(cfg), cfg)

	alerts := checker.Check(context.Background())
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertStageDegradedRate, alerts[0].Type)
	assert.Equal(t, int32(1), hits.Load())
}

func TestChecker_CheckCollectError(t *testing.T) {
	cfg := config.MonitoringConfig{LookbackWindowHours: 1}
	checker := NewChecker(NewCollector(&fakeRuns{err: eris.New("db down")}), NewAlerter(cfg), cfg)
	assert.Nil(t, checker.Check(context.Background()))
}

func degradedReelsRuns(n int) []model.Run {
	var runs []model.Run
	for i := 0; i < n; i++ {
		runs = append(runs, model.Run{
			ID:        "r",
			Report:    &model.RunReport{Stages: []model.StageReport{degradedStage(model.StageReels, "job TIMED_OUT")}},
			CreatedAt: time.Now().UTC().Add(-time.Minute),
		})
	}
	return runs
}

func TestChecker_RepeatedConditionSentOncePerWindow(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := config.MonitoringConfig{
		WebhookURL:            srv.URL,
		LookbackWindowHours:   1,
		DegradedRateThreshold: 0.5,
		MinInvocations:        5,
	}
	runs := &fakeRuns{runs: degradedReelsRuns(5)}
	checker := NewChecker(NewCollector(runs), NewAlerter(cfg), cfg)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	checker.now = func() time.Time { return now }

	require.Len(t, checker.Check(context.Background()), 1)
	require.Len(t, checker.Check(context.Background()), 1)
	assert.Equal(t, int32(1), hits.Load())

	now = now.Add(61 * time.Minute)
	checker.Check(context.Background())
	assert.Equal(t, int32(2), hits.Load())

	// Clearing the condition resets suppression.
	runs.runs = nil
	assert.Empty(t, checker.Check(context.Background()))
	runs.runs = degradedReelsRuns(5)
	checker.Check(context.Background())
	assert.Equal(t, int32(3), hits.Load())
}

func TestChecker_RunChecksImmediately(t *testing.T) {
	runs := &fakeRuns{}
	cfg := config.MonitoringConfig{CheckIntervalSecs: 3600, LookbackWindowHours: 24}
	checker := NewChecker(NewCollector(runs), NewAlerter(cfg), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return runs.calls.Load() > 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
