package config

import "time"

type HTTP struct{}

var _ HTTPConfig = HTTP{}

func (HTTP) GetHTTPTimeout() time.Duration {
	return GetEnvDuration("HTTP_TIMEOUT", 30*time.Second)
}

// GetBreakerTimeout is how long the circuit stays open before a probe.
func (HTTP) GetBreakerTimeout() time.Duration {
	return GetEnvDuration("BREAKER_TIMEOUT", 30*time.Second)
}

func (HTTP) GetBreakerFailureRatio() float64 {
	return GetEnvFloat("BREAKER_FAILURE_RATIO", 0.5)
}

func (HTTP) GetBreakerMinRequests() uint32 {
	n := GetEnvInt("BREAKER_MIN_REQUESTS", 5)
	if n < 0 {
		return 0
	}
	return uint32(n)
}
