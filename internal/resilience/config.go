package resilience

import (
	"time"
)

// Policy bundles the retry and breaker settings applied to provider calls.
type Policy struct {
	Retry    RetryConfig
	Breakers *ServiceBreakers
}

// NewPolicy builds a Policy from plain config values. Zero values fall back
// to the defaults.
func NewPolicy(maxAttempts, initialBackoffMs, maxBackoffMs, failureThreshold, resetTimeoutSecs int) Policy {
	retry := DefaultRetryConfig()
	if maxAttempts > 0 {
		retry.MaxAttempts = maxAttempts
	}
	if initialBackoffMs > 0 {
		retry.InitialBackoff = time.Duration(initialBackoffMs) * time.Millisecond
	}
	if maxBackoffMs > 0 {
		retry.MaxBackoff = time.Duration(maxBackoffMs) * time.Millisecond
	}

	breaker := DefaultCircuitBreakerConfig()
	if failureThreshold > 0 {
		breaker.FailureThreshold = failureThreshold
	}
	if resetTimeoutSecs > 0 {
		breaker.ResetTimeout = time.Duration(resetTimeoutSecs) * time.Second
	}

	return Policy{Retry: retry, Breakers: NewServiceBreakers(breaker)}
}

// ForOperation returns the retry config with provider/operation logging attached.
func (p Policy) ForOperation(provider, operation string) RetryConfig {
	cfg := p.Retry
	cfg.OnRetry = RetryLogger(provider, operation)
	return cfg
}
