package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/session"
	"github.com/jrsteele09/go-session-client/session/memstore"
	"github.com/jrsteele09/go-session-client/token"
	"github.com/jrsteele09/go-session-client/users"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type recordingNavigator struct {
	routes []string
}

func (n *recordingNavigator) Navigate(route string) {
	n.routes = append(n.routes, route)
}

type failingStorage struct{}

func (failingStorage) Load(context.Context) (session.Record, error) { return nil, errors.New("disk gone") }
func (failingStorage) Save(context.Context, session.Record) error { return errors.New("disk gone") }
func (failingStorage) Clear(context.Context) error { return errors.New("disk gone") }

func accessToken(t *testing.T, exp time.Time) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)
	return raw
}

func newStore(t *testing.T) (*session.Store, *memstore.Store, *recordingNavigator) {
	t.Helper()
	storage := memstore.New()
	nav := &recordingNavigator{}
	evaluator := token.NewEvaluator(token.WithNowFunc(func() time.Time { return testNow }))
	return session.NewStore(storage, session.WithNavigator(nav), session.WithEvaluator(evaluator)), storage, nav
}

func TestSetSessionWritesAllKeys(t *testing.T) {
	ctx := context.Background()
	store, storage, _ := newStore(t)
	tok := accessToken(t, testNow.Add(time.Hour))

	require.NoError(t, store.SetSession(ctx, session.Session{
		AccessToken:  tok,
		RefreshToken: "r1",
		User:         &users.Profile{Email: "p@example.com", Role: users.RoleProvider},
	}))

	record, err := storage.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, tok, record[session.KeyAccessToken])
	require.Equal(t, "r1", record[session.KeyRefreshToken])
	require.JSONEq(t, `{"email":"p@example.com","role":"PROVIDER"}`, record[session.KeyUser])

	got, ok := store.AccessToken(ctx)
	require.True(t, ok)
	require.Equal(t, tok, got)
	user, ok := store.User(ctx)
	require.True(t, ok)
	require.Equal(t, users.RoleProvider, user.Role)
}

func TestSetSessionDropsAbsentFields(t *testing.T) {
	ctx := context.Background()
	store, storage, _ := newStore(t)

	require.NoError(t, store.SetSession(ctx, session.Session{AccessToken: "a", RefreshToken: "r", User: &users.Profile{}}))
	require.NoError(t, store.SetSession(ctx, session.Session{AccessToken: "b"}))

	record, err := storage.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, session.Record{session.KeyAccessToken: "b"}, record)

	_, ok := store.RefreshToken(ctx)
	require.False(t, ok)
}

func TestSetSessionRequiresAccessToken(t *testing.T) {
	store, _, _ := newStore(t)
	err := store.SetSession(context.Background(), session.Session{RefreshToken: "r"})
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}

func TestFieldsMeaninglessWithoutAccessToken(t *testing.T) {
	ctx := context.Background()
	store, storage, _ := newStore(t)
	require.NoError(t, storage.Save(ctx, session.Record{
		session.KeyRefreshToken: "r1",
		session.KeyUser:         `{"role":"ADMIN"}`,
	}))

	_, ok := store.RefreshToken(ctx)
	require.False(t, ok)
	_, ok = store.User(ctx)
	require.False(t, ok)
	require.False(t, store.IsAuthenticated(ctx))
	require.False(t, store.HasAuthorizedRole(ctx))
}

func TestIsAuthenticated(t *testing.T) {
	ctx := context.Background()
	store, _, nav := newStore(t)
	require.False(t, store.IsAuthenticated(ctx))

	require.NoError(t, store.SetSession(ctx, session.Session{AccessToken: accessToken(t, testNow.Add(-10*time.Second))}))
	require.False(t, store.IsAuthenticated(ctx))

	require.NoError(t, store.SetSession(ctx, session.Session{AccessToken: "not-a-jwt"}))
	require.False(t, store.IsAuthenticated(ctx))

	require.NoError(t, store.SetSession(ctx, session.Session{AccessToken: accessToken(t, testNow.Add(time.Hour))}))
	require.True(t, store.IsAuthenticated(ctx))

	require.Empty(t, nav.routes, "checking authentication must not navigate")
}

func TestHasAuthorizedRole(t *testing.T) {
	ctx := context.Background()
	tok := accessToken(t, testNow.Add(time.Hour))

	for role, want := range map[users.Role]bool{
		users.RoleAdmin:    true,
		users.RoleProvider: true,
		users.RoleUser:     false,
		"":                 false,
	} {
		store, _, _ := newStore(t)
		require.NoError(t, store.SetSession(ctx, session.Session{AccessToken: tok, User: &users.Profile{Role: role}}))
		require.Equal(t, want, store.HasAuthorizedRole(ctx), role)
	}
}

func TestUpdateTokensKeepsProfile(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newStore(t)
	require.NoError(t, store.SetSession(ctx, session.Session{
		AccessToken:  "old",
		RefreshToken: "r1",
		User:         &users.Profile{Email: "a@example.com", Role: users.RoleAdmin},
	}))

	require.NoError(t, store.UpdateTokens(ctx, "new", ""))
	sess, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "new", sess.AccessToken)
	require.Equal(t, "r1", sess.RefreshToken)
	require.Equal(t, "a@example.com", sess.User.Email)

	require.NoError(t, store.UpdateTokens(ctx, "newer", "r2"))
	sess, err = store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "r2", sess.RefreshToken)
}

func TestUpdateTokensDoesNotReviveClearedSession(t *testing.T) {
	ctx := context.Background()
	store, storage, _ := newStore(t)

	err := store.UpdateTokens(ctx, "new", "r2")
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	record, err := storage.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, record)
}

func TestClearSessionNavigatesToLogin(t *testing.T) {
	ctx := context.Background()
	store, storage, nav := newStore(t)
	require.NoError(t, store.SetSession(ctx, session.Session{AccessToken: "a", RefreshToken: "r", User: &users.Profile{}}))

	require.NoError(t, store.Logout(ctx))

	record, err := storage.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, record)
	require.Equal(t, []string{session.RouteLogin}, nav.routes)
}

func TestClearSessionNavigatesEvenOnStorageError(t *testing.T) {
	nav := &recordingNavigator{}
	store := session.NewStore(failingStorage{}, session.WithNavigator(nav))

	err := store.ClearSession(context.Background())
	require.ErrorContains(t, err, "disk gone")
	require.Equal(t, []string{session.RouteLogin}, nav.routes)

	require.False(t, store.IsAuthenticated(context.Background()))
	_, err = store.Load(context.Background())
	require.Error(t, err)
}

func TestCorruptUserIsIgnored(t *testing.T) {
	ctx := context.Background()
	store, storage, _ := newStore(t)
	require.NoError(t, storage.Save(ctx, session.Record{
		session.KeyAccessToken: accessToken(t, testNow.Add(time.Hour)),
		session.KeyUser:        "{broken",
	}))

	sess, err := store.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, sess.User)
	require.True(t, store.IsAuthenticated(ctx))
	require.False(t, store.HasAuthorizedRole(ctx))
}

func TestNavigatorFunc(t *testing.T) {
	var got string
	session.NavigatorFunc(func(route string) { got = route }).Navigate("/x")
	require.Equal(t, "/x", got)
}

func TestStoredProfileKeepsExtraFields(t *testing.T) {
	ctx := context.Background()
	store, storage, _ := newStore(t)

	require.NoError(t, store.SetSession(ctx, session.Session{
		AccessToken: "a",
		User: &users.Profile{
			Email: "p@example.com",
			Extra: map[string]json.RawMessage{"companyName": json.RawMessage(`"Acme"`)},
		},
	}))

	record, err := storage.Load(ctx)
	require.NoError(t, err)
	require.JSONEq(t, `{"email":"p@example.com","companyName":"Acme"}`, record[session.KeyUser])

	user, ok := store.User(ctx)
	require.True(t, ok)
	require.JSONEq(t, `"Acme"`, string(user.Extra["companyName"]))
}
