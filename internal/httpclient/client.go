package httpclient

import (
	"net"
	"net/http"
	"time"

	"github.com/jrsteele09/go-session-client/internal/config"
)

type Config struct {
	Timeout         time.Duration
	MaxConnsPerHost int
	Breaker         BreakerConfig
}

func DefaultConfig(name string) Config {
	return Config{
		Timeout:         30 * time.Second,
		MaxConnsPerHost: 16,
		Breaker:         DefaultBreakerConfig(name),
	}
}

// ConfigFrom builds the client config from the environment config.
func ConfigFrom(name string, cfg config.HTTPConfig) Config {
	c := DefaultConfig(name)
	c.Timeout = cfg.GetHTTPTimeout()
	c.Breaker = BreakerConfigFrom(name, cfg)
	return c
}

// NewTransport returns a pooled transport wrapped in a circuit breaker.
func NewTransport(cfg Config) *BreakerTransport {
	pooled := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return NewBreakerTransport(pooled, cfg.Breaker)
}

// New returns a client whose transport is wrapped in a circuit breaker.
func New(cfg Config) *http.Client {
	return &http.Client{
		Transport: NewTransport(cfg),
		Timeout:   cfg.Timeout,
	}
}
