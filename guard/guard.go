package guard

import (
	"context"
	"time"

	"github.com/jrsteele09/go-session-client/session"
	"github.com/rs/zerolog/log"
)

// DefaultWatchInterval is how often a Watcher checks the stored token.
const DefaultWatchInterval = 30 * time.Second

// TokenSource yields a valid access token, refreshing or ending the session
// as needed. refresh.Coordinator implements it.
type TokenSource interface {
	ValidToken(ctx context.Context) (string, error)
}

// Guard evaluates route access against the stored session.
type Guard struct {
	store  *session.Store
	tokens TokenSource
}

func New(store *session.Store, tokens TokenSource) *Guard {
	return &Guard{store: store, tokens: tokens}
}

// Check loads the session and authorizes kind. An expired access token is
// first handed to the token source so a refresh can rescue the session.
func (g *Guard) Check(ctx context.Context, kind RouteKind) Decision {
	sess, err := g.store.Load(ctx)
	if err != nil {
		log.Err(err).Msg("failed to load session for route check")
		return RedirectTo(session.RouteLogin)
	}

	evaluator := g.store.Evaluator()
	if sess.HasAccessToken() && evaluator.Expired(sess.AccessToken) && g.tokens != nil {
		if _, err := g.tokens.ValidToken(ctx); err != nil {
			log.Info().Err(err).Msg("session could not be renewed")
		}
		if sess, err = g.store.Load(ctx); err != nil {
			log.Err(err).Msg("failed to reload session for route check")
			return RedirectTo(session.RouteLogin)
		}
	}

	d := Authorize(kind, sess, evaluator.Now())
	log.Debug().Str("route", kind.String()).Str("decision", d.String()).Msg("route check")
	return d
}

// Watcher periodically checks the stored token and drives a refresh, or a
// forced logout, once it is expiring.
type Watcher struct {
	store    *session.Store
	tokens   TokenSource
	interval time.Duration
}

func NewWatcher(store *session.Store, tokens TokenSource, interval time.Duration) *Watcher {
	return &Watcher{store: store, tokens: tokens, interval: interval}
}

// Run ticks until ctx ends. A non-positive interval disables the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	if w.interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick performs a single check. It reports whether the token source was asked
// for a token.
func (w *Watcher) Tick(ctx context.Context) bool {
	tok, ok := w.store.AccessToken(ctx)
	if !ok || !w.store.Evaluator().ExpiringSoon(tok) {
		return false
	}
	if _, err := w.tokens.ValidToken(ctx); err != nil {
		log.Info().Err(err).Msg("watcher could not renew session")
	}
	return true
}
