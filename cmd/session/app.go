package main

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-session-client/admin"
	"github.com/jrsteele09/go-session-client/auth"
	"github.com/jrsteele09/go-session-client/authapi"
	"github.com/jrsteele09/go-session-client/authclient"
	"github.com/jrsteele09/go-session-client/guard"
	"github.com/jrsteele09/go-session-client/internal/config"
	"github.com/jrsteele09/go-session-client/internal/httpclient"
	"github.com/jrsteele09/go-session-client/session"
	"github.com/jrsteele09/go-session-client/session/filestore"
	"github.com/jrsteele09/go-session-client/session/memstore"
	"github.com/jrsteele09/go-session-client/session/redisstore"
	"github.com/jrsteele09/go-session-client/token"
	"github.com/jrsteele09/go-session-client/token/refresh"
	"github.com/rs/zerolog/log"
)

// app holds the wired session components for one CLI invocation.
type app struct {
	cfg         config.Config
	store       *session.Store
	coordinator *refresh.Coordinator
	guard       *guard.Guard
	watcher     *guard.Watcher
	auth        *auth.Service
	admin       *admin.Client
	closers     []func() error
}

// logNavigator stands in for a browser: a hard redirect is reported, the
// process does not move anywhere.
type logNavigator struct{}

func (logNavigator) Navigate(route string) {
	log.Warn().Str("route", route).Msg("redirect")
}

func newApp(ctx context.Context, cfg config.Config, navigator session.Navigator) (*app, error) {
	a := &app{cfg: cfg}

	storage, err := a.openStorage(ctx)
	if err != nil {
		return nil, err
	}

	evaluator := token.NewEvaluator(token.WithWindow(cfg.GetExpiryWindow()))
	a.store = session.NewStore(storage, session.WithNavigator(navigator), session.WithEvaluator(evaluator))

	transport := httpclient.NewTransport(httpclient.ConfigFrom("backend", cfg))
	authHTTP := httpclient.ConfigFrom("auth", cfg)
	authHTTP.Timeout = cfg.GetRefreshTimeout()
	authAPI := authapi.New(cfg.GetAPIBaseURL(), httpclient.New(authHTTP))

	a.coordinator = refresh.New(a.store, authAPI, refresh.WithTimeout(cfg.GetRefreshTimeout()))
	a.guard = guard.New(a.store, a.coordinator)
	a.watcher = guard.NewWatcher(a.store, a.coordinator, cfg.GetWatchInterval())
	a.auth = auth.NewService(authAPI, a.store)
	a.admin = admin.New(cfg.GetAPIBaseURL(), authclient.NewHTTPClient(a.coordinator, transport, cfg.GetHTTPTimeout()))
	return a, nil
}

func (a *app) openStorage(ctx context.Context) (session.Storage, error) {
	switch kind := a.cfg.GetSessionStore(); kind {
	case config.StoreMemory:
		return memstore.New(), nil

	case config.StoreRedis:
		client, err := redisstore.Connect(ctx, a.cfg.GetRedisAddr(), a.cfg.GetRedisPassword(), a.cfg.GetRedisDB())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		log.Debug().Str("addr", a.cfg.GetRedisAddr()).Str("key", a.cfg.GetRedisKey()).Msg("using redis session store")
		return redisstore.New(client, a.cfg.GetRedisKey(), redisstore.WithTTL(a.cfg.GetRedisTTL())), nil

	case config.StoreFile:
		store := filestore.New(a.cfg.GetSessionFile(), filestore.WithPassphrase(a.cfg.GetSessionPassphrase()))
		log.Debug().Str("path", store.Path()).Bool("encrypted", store.Encrypted()).Msg("using file session store")
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported session store %q", kind)
	}
}

// Close waits for any background refresh and releases storage connections.
func (a *app) Close() error {
	a.coordinator.Wait()
	var firstErr error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
