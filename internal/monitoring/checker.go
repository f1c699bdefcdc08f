package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lead-enricher/internal/config"
)

// Checker evaluates stage health on an interval inside a long-running
// process. A condition that stays triggered is re-sent at most once per
// lookback window.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig
	now       func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewChecker creates a background alert checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
		lastSent:  make(map[string]time.Time),
	}
}

func (c *Checker) interval() time.Duration {
	if c.cfg.CheckIntervalSecs <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.cfg.CheckIntervalSecs) * time.Second
}

func (c *Checker) renotifyAfter() time.Duration {
	hours := c.cfg.LookbackWindowHours
	if hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

// Run checks once immediately, then on every tick until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting stage health checker",
		zap.Duration("interval", c.interval()),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours),
	)

	ticker := time.NewTicker(c.interval())
	defer ticker.Stop()

	for {
		if ctx.Err() == nil {
			c.Check(ctx)
		}
		select {
		case <-ctx.Done():
			log.Info("stage health checker stopped")
			return
		case <-ticker.C:
		}
	}
}

// Check collects one snapshot and returns every triggered alert. Only alerts
// not already sent within the lookback window go to the webhook.
func (c *Checker) Check(ctx context.Context) []Alert {
	log := zap.L().With(zap.String("component", "monitoring.checker"))

	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		log.Error("monitoring: failed to collect stage stats", zap.Error(err))
		return nil
	}

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		log.Debug("monitoring: stages healthy", zap.Int("runs", snap.Runs))
		c.forgetAll()
		return nil
	}

	fresh := c.unsent(alerts)
	sent := 0
	if len(fresh) > 0 {
		sent = c.alerter.SendAlerts(ctx, fresh)
	}
	log.Info("monitoring: stage health check complete",
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_new", len(fresh)),
		zap.Int("alerts_sent", sent),
	)
	return alerts
}

// unsent filters alerts already sent within the re-notify window and marks
// the rest as sent. Conditions that cleared are forgotten.
func (c *Checker) unsent(alerts []Alert) []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	active := make(map[string]bool, len(alerts))
	var fresh []Alert
	for _, a := range alerts {
		key := alertKey(a)
		active[key] = true
		if last, ok := c.lastSent[key]; ok && now.Sub(last) < c.renotifyAfter() {
			continue
		}
		c.lastSent[key] = now
		fresh = append(fresh, a)
	}
	for key := range c.lastSent {
		if !active[key] {
			delete(c.lastSent, key)
		}
	}
	return fresh
}

func (c *Checker) forgetAll() {
	c.mu.Lock()
	clear(c.lastSent)
	c.mu.Unlock()
}

func alertKey(a Alert) string {
	return fmt.Sprintf("%s/%v", a.Type, a.Details["stage"])
}
