package refresh

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/session"
	"github.com/jrsteele09/go-session-client/token"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// DefaultTimeout bounds a single refresh network call.
const DefaultTimeout = 15 * time.Second

const (
	outcomeSuccess        = "success"
	outcomeRejected       = "rejected"
	outcomeNetworkFailure = "network_failure"
	outcomeNoRefreshToken = "no_refresh_token"
	outcomeSessionGone    = "session_gone"
)

var (
	refreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_refresh_total",
			Help: "Refresh network flights by outcome",
		},
		[]string{"outcome"},
	)

	refreshWaiters = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "session_refresh_waiters",
			Help: "Callers currently blocked on an in-flight refresh",
		},
	)
)

func init() {
	prometheus.MustRegister(refreshTotal)
	prometheus.MustRegister(refreshWaiters)
}

// Result is what the backend returns for a successful refresh. RefreshToken
// is empty when the backend does not rotate it.
type Result struct {
	AccessToken  string
	RefreshToken string
}

// Refresher exchanges a refresh token for a new access token. Errors should
// wrap ErrRefreshRejected when the backend answered and said no, anything
// else is treated as ErrRefreshNetworkFailure.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*Result, error)
}

// call is one refresh flight. Every caller that arrives while it is in
// flight waits on done and reads the same token/err.
type call struct {
	done  chan struct{}
	token string
	err   error
}

// Coordinator guarantees at most one refresh flight at a time and fans its
// outcome out to every caller that asked for a token meanwhile. A failed
// flight ends the session.
type Coordinator struct {
	store     *session.Store
	refresher Refresher
	evaluator *token.Evaluator
	timeout   time.Duration

	mu       sync.Mutex
	inflight *call
	flights  sync.WaitGroup
	waiting  atomic.Int32
}

var _ oauth2.TokenSource = (*Coordinator)(nil)

type Option func(*Coordinator)

func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.timeout = d
	}
}

// New builds a Coordinator. The store's evaluator decides expiry.
func New(store *session.Store, refresher Refresher, options ...Option) *Coordinator {
	c := &Coordinator{
		store:     store,
		refresher: refresher,
		evaluator: store.Evaluator(),
	}
	for _, opt := range options {
		opt(c)
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	return c
}

// ValidToken returns an access token that is believed valid. An expired
// token is refreshed first; a token expiring soon is returned as-is while a
// background refresh starts.
func (c *Coordinator) ValidToken(ctx context.Context) (string, error) {
	tok, ok := c.store.AccessToken(ctx)
	if !ok {
		return "", apperrors.ErrNoValidToken
	}

	if c.evaluator.Expired(tok) {
		log.Debug().Msg("access token expired, refreshing")
		return c.renew(ctx, tok, apperrors.ErrNoValidToken)
	}

	if c.evaluator.ExpiringSoon(tok) {
		log.Debug().Dur("remaining", c.evaluator.Remaining(tok)).Msg("access token expiring soon, refreshing in background")
		c.acquire(context.Background())
	}
	return tok, nil
}

// Refresh joins the in-flight refresh or starts one, and waits for it. A
// caller whose context ends stops waiting; the flight itself carries on.
func (c *Coordinator) Refresh(ctx context.Context) (string, error) {
	return c.wait(ctx, c.acquire(ctx))
}

// RefreshRejected handles a 401 for a request sent with rejected. When the
// stored token has already moved on and is still valid, that token is
// returned without another network call. A session that is already gone
// fails without starting a flight.
func (c *Coordinator) RefreshRejected(ctx context.Context, rejected string) (string, error) {
	return c.renew(ctx, rejected, apperrors.Join(apperrors.ErrAuthenticationFailed, apperrors.ErrNoValidToken))
}

// renew replaces stale, a token the caller read earlier and found unusable.
// The stored token is re-read under mu so a flight that finished after the
// caller's read is reused instead of followed by a second one. missing is
// returned when the session has gone meanwhile.
func (c *Coordinator) renew(ctx context.Context, stale string, missing error) (string, error) {
	c.mu.Lock()
	if c.inflight == nil {
		// A finished flight stores its token before releasing inflight, so
		// the check cannot miss a refresh that just completed.
		tok, ok := c.store.AccessToken(ctx)
		if !ok {
			c.mu.Unlock()
			return "", missing
		}
		if tok != stale && !c.evaluator.Expired(tok) {
			c.mu.Unlock()
			log.Debug().Msg("token already refreshed by another caller")
			return tok, nil
		}
	}
	cl := c.acquireLocked(ctx)
	c.mu.Unlock()

	return c.wait(ctx, cl)
}

// Token implements oauth2.TokenSource.
func (c *Coordinator) Token() (*oauth2.Token, error) {
	tok, err := c.ValidToken(context.Background())
	if err != nil {
		return nil, err
	}
	t := &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}
	if exp, err := token.DecodeExpiry(tok); err == nil {
		t.Expiry = exp
	}
	return t, nil
}

// Wait blocks until no refresh flight is running.
func (c *Coordinator) Wait() {
	c.flights.Wait()
}

// InFlight reports whether a refresh network call is outstanding.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight != nil
}

// Waiting is the number of callers blocked in Refresh.
func (c *Coordinator) Waiting() int {
	return int(c.waiting.Load())
}

func (c *Coordinator) acquire(ctx context.Context) *call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acquireLocked(ctx)
}

func (c *Coordinator) acquireLocked(ctx context.Context) *call {
	if c.inflight != nil {
		log.Debug().Msg("joining in-flight refresh")
		return c.inflight
	}

	cl := &call{done: make(chan struct{})}
	c.inflight = cl
	c.flights.Add(1)
	go c.run(context.WithoutCancel(ctx), cl)
	return cl
}

func (c *Coordinator) wait(ctx context.Context, cl *call) (string, error) {
	refreshWaiters.Inc()
	c.waiting.Add(1)
	defer func() {
		refreshWaiters.Dec()
		c.waiting.Add(-1)
	}()

	select {
	case <-cl.done:
		return cl.token, cl.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Coordinator) run(ctx context.Context, cl *call) {
	defer c.flights.Done()

	started := time.Now()
	tok, err := c.refresh(ctx)
	if err != nil {
		err = c.fail(ctx, err)
	} else {
		refreshTotal.WithLabelValues(outcomeSuccess).Inc()
		log.Info().Dur("took", time.Since(started)).Msg("access token refreshed")
	}

	c.mu.Lock()
	cl.token, cl.err = tok, err
	c.inflight = nil
	c.mu.Unlock()
	close(cl.done)
}

func (c *Coordinator) refresh(parent context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	refreshToken, ok := c.store.RefreshToken(ctx)
	if !ok {
		return "", apperrors.ErrNoRefreshToken
	}

	res, err := c.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrRefreshRejected) && !apperrors.Is(err, apperrors.ErrRefreshNetworkFailure) {
			err = apperrors.Join(apperrors.ErrRefreshNetworkFailure, err)
		}
		return "", err
	}
	if res == nil || res.AccessToken == "" {
		return "", apperrors.Wrapf(apperrors.ErrRefreshRejected, "empty access token")
	}

	if err := c.store.UpdateTokens(ctx, res.AccessToken, res.RefreshToken); err != nil {
		return "", err
	}
	return res.AccessToken, nil
}

// fail ends the session for an unrecoverable refresh error and returns the
// error handed to every waiter.
func (c *Coordinator) fail(ctx context.Context, err error) error {
	switch {
	case apperrors.Is(err, apperrors.ErrSessionNotFound):
		// Logged out while the flight was running; the session is already gone.
		refreshTotal.WithLabelValues(outcomeSessionGone).Inc()
		log.Info().Msg("session cleared during refresh, discarding new token")
		return apperrors.Join(apperrors.ErrAuthenticationFailed, err)
	case apperrors.Is(err, apperrors.ErrNoRefreshToken):
		refreshTotal.WithLabelValues(outcomeNoRefreshToken).Inc()
	case apperrors.Is(err, apperrors.ErrRefreshRejected):
		refreshTotal.WithLabelValues(outcomeRejected).Inc()
	default:
		refreshTotal.WithLabelValues(outcomeNetworkFailure).Inc()
	}

	log.Warn().Err(err).Msg("token refresh failed, ending session")
	if clearErr := c.store.ClearSession(ctx); clearErr != nil {
		log.Err(clearErr).Msg("failed to clear session after refresh failure")
	}
	return apperrors.Join(apperrors.ErrAuthenticationFailed, err)
}
