package httpclient

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jrsteele09/go-session-client/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned when the breaker rejects a request without sending it.
var ErrCircuitOpen = gobreaker.ErrOpenState

// BreakerConfig tunes the circuit breaker guarding the backend.
type BreakerConfig struct {
	// Name labels the breaker in logs and metrics.
	Name string
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval clears the closed-state counts; 0 never clears them.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing.
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32
}

func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// BreakerConfigFrom reads the breaker settings from the environment config.
func BreakerConfigFrom(name string, cfg config.HTTPConfig) BreakerConfig {
	c := DefaultBreakerConfig(name)
	c.Timeout = cfg.GetBreakerTimeout()
	c.FailureRatio = cfg.GetBreakerFailureRatio()
	c.MinRequests = cfg.GetBreakerMinRequests()
	return c
}

var (
	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_client_requests_total",
			Help: "Backend requests by breaker name and status code",
		},
		[]string{"name", "code"},
	)
)

func init() {
	prometheus.MustRegister(breakerState)
	prometheus.MustRegister(requestsTotal)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// serverError marks a 5xx response as a breaker failure while the response
// itself still reaches the caller.
type serverError struct {
	status int
}

func (e *serverError) Error() string {
	return "server error " + strconv.Itoa(e.status)
}

// BreakerTransport is an http.RoundTripper that counts transport errors and
// 5xx responses against a circuit breaker. 4xx responses are the caller's
// problem and never trip it.
type BreakerTransport struct {
	base    http.RoundTripper
	breaker *gobreaker.CircuitBreaker[*http.Response]
	name    string
}

var _ http.RoundTripper = (*BreakerTransport)(nil)

func NewBreakerTransport(base http.RoundTripper, cfg BreakerConfig) *BreakerTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			breakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}
	breakerState.WithLabelValues(cfg.Name).Set(0)

	return &BreakerTransport{
		base:    base,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](settings),
		name:    cfg.Name,
	}
}

func (t *BreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.breaker.Execute(func() (*http.Response, error) {
		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, &serverError{status: resp.StatusCode}
		}
		return resp, nil
	})

	if se, ok := err.(*serverError); ok {
		requestsTotal.WithLabelValues(t.name, strconv.Itoa(se.status)).Inc()
		return resp, nil
	}
	if err != nil {
		requestsTotal.WithLabelValues(t.name, "error").Inc()
		return nil, err
	}
	requestsTotal.WithLabelValues(t.name, strconv.Itoa(resp.StatusCode)).Inc()
	return resp, nil
}

func (t *BreakerTransport) State() gobreaker.State {
	return t.breaker.State()
}
