package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-session-client/authapi"
	"github.com/jrsteele09/go-session-client/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNavigator struct {
	mu     sync.Mutex
	routes []string
}

func (n *recordingNavigator) Navigate(route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, route)
}

func (n *recordingNavigator) visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.routes...)
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("test"))
	require.NoError(t, err)
	return raw
}

func newTestCLI(t *testing.T) (*cli, *bytes.Buffer, *recordingNavigator) {
	t.Helper()
	access := signed(t, time.Now().Add(time.Hour))

	mux := http.NewServeMux()
	mux.HandleFunc(authapi.LoginPath, func(w http.ResponseWriter, r *http.Request) {
		var req authapi.LoginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"Invalid credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"id": "u1", "email": req.Email, "name": "Ada", "role": "admin",
				"accessToken": access, "refreshToken": "r1",
			},
		})
	})
	mux.HandleFunc("/api/v1/users/all", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+access {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":[{"id":"u1","email":"ada@example.com","name":"Ada","role":"ADMIN","status":"ACTIVE"}]}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	t.Setenv("SESSION_STORE", "memory")
	t.Setenv("API_BASE_URL", server.URL)

	nav := &recordingNavigator{}
	a, err := newApp(context.Background(), config.New(), nav)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })

	out := &bytes.Buffer{}
	return &cli{app: a, in: strings.NewReader("secret\n"), out: out}, out, nav
}

func TestLoginStatusAndLogout(t *testing.T) {
	c, out, nav := newTestCLI(t)
	ctx := context.Background()

	require.NoError(t, c.run(ctx, []string{"check", "admin"}))
	require.Equal(t, "redirect /login\n", out.String())
	out.Reset()

	require.NoError(t, c.run(ctx, []string{"login", "-email", "ada@example.com"}))
	require.Equal(t, "logged in, landing route /admin/specialists\n", out.String())
	out.Reset()

	require.NoError(t, c.run(ctx, []string{"check", "admin"}))
	require.Equal(t, "permit\n", out.String())
	out.Reset()

	require.NoError(t, c.run(ctx, []string{"status"}))
	require.Regexp(t, `(?m)^authenticated\s+true$`, out.String())
	require.Regexp(t, `(?m)^role\s+ADMIN$`, out.String())
	out.Reset()

	require.NoError(t, c.run(ctx, []string{"users", "list"}))
	require.Contains(t, out.String(), "ada@example.com")
	out.Reset()

	require.NoError(t, c.run(ctx, []string{"logout"}))
	require.Equal(t, []string{"/login"}, nav.visited())

	require.NoError(t, c.run(ctx, []string{"check", "protected"}))
	require.Equal(t, "redirect /login\n", out.String())
}

func TestLoginRejected(t *testing.T) {
	c, _, _ := newTestCLI(t)
	c.in = strings.NewReader("wrong\n")

	require.Error(t, c.run(context.Background(), []string{"login", "-email", "ada@example.com"}))
	require.False(t, c.app.store.IsAuthenticated(context.Background()))
}

func TestUsage(t *testing.T) {
	c, _, _ := newTestCLI(t)

	require.ErrorIs(t, c.run(context.Background(), nil), errUsage)
	require.ErrorIs(t, c.run(context.Background(), []string{"frobnicate"}), errUsage)
	require.Error(t, c.run(context.Background(), []string{"check", "nowhere"}))
}
