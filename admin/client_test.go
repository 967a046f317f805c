package admin_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jrsteele09/go-session-client/admin"
	apperrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	method string
	path   string
	query  string
	body   string
}

// backend answers every request with status and body and records it.
func backend(t *testing.T, status int, body string) (*admin.Client, func() []call) {
	t.Helper()
	var mu sync.Mutex
	var calls []call
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		mu.Lock()
		calls = append(calls, call{method: r.Method, path: r.URL.EscapedPath(), query: r.URL.RawQuery, body: string(raw)})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return admin.New(server.URL+"/", server.Client()), func() []call {
		mu.Lock()
		defer mu.Unlock()
		return append([]call(nil), calls...)
	}
}

func TestListUsers(t *testing.T) {
	client, calls := backend(t, http.StatusOK, `{"success":true,"data":[
		{"id":"u1","email":"a@example.com","name":"Ann","role":"ADMIN","status":"ACTIVE"},
		{"id":"u2","email":"b@example.com","role":"USER","status":"BLOCKED","phoneNumber":"+1"}
	]}`)

	got, err := client.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, users.RoleAdmin, got[0].Role)
	require.Equal(t, users.StatusBlocked, got[1].Status)
	require.Equal(t, []call{{method: http.MethodGet, path: "/api/v1/users/all"}}, calls())
}

func TestCreateUser(t *testing.T) {
	client, calls := backend(t, http.StatusCreated, `{"success":true,"data":{"id":"u3","email":"c@example.com","role":"USER"}}`)

	user, err := client.CreateUser(context.Background(), admin.CreateUserRequest{Email: "c@example.com", Password: "secret1", Name: "Cy"})
	require.NoError(t, err)
	require.Equal(t, "u3", user.ID)
	require.Len(t, calls(), 1)
	require.Equal(t, http.MethodPost, calls()[0].method)
	require.Equal(t, "/api/v1/users", calls()[0].path)
	require.JSONEq(t, `{"email":"c@example.com","password":"secret1","name":"Cy"}`, calls()[0].body)

	_, err = client.CreateUser(context.Background(), admin.CreateUserRequest{Email: "bad"})
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	require.Len(t, calls(), 1)
}

func TestAssignRoles(t *testing.T) {
	client, calls := backend(t, http.StatusOK, `{"success":true,"message":"done"}`)

	require.NoError(t, client.AssignAdmin(context.Background(), "a@example.com"))
	require.NoError(t, client.AssignProvider(context.Background(), "p@example.com"))
	require.ErrorIs(t, client.AssignAdmin(context.Background(), ""), apperrors.ErrInvalidRequest)

	require.Equal(t, []call{
		{method: http.MethodPost, path: "/api/v1/users/create-admin", body: `{"email":"a@example.com"}`},
		{method: http.MethodPost, path: "/api/v1/providers/create-provider", body: `{"email":"p@example.com"}`},
	}, calls())
}

func TestChangeStatus(t *testing.T) {
	client, calls := backend(t, http.StatusOK, `{"success":true}`)

	require.NoError(t, client.ChangeStatus(context.Background(), "u/1", users.StatusBlocked))
	require.ErrorIs(t, client.ChangeStatus(context.Background(), "u1", "FROZEN"), apperrors.ErrInvalidRequest)
	require.ErrorIs(t, client.ChangeStatus(context.Background(), "", users.StatusActive), apperrors.ErrInvalidRequest)

	require.Equal(t, []call{
		{method: http.MethodPatch, path: "/api/v1/users/u%2F1/status", body: `{"status":"BLOCKED"}`},
	}, calls())
}

func TestListSpecialists(t *testing.T) {
	client, calls := backend(t, http.StatusOK, `{
		"success": true,
		"meta": {"page":2,"limit":5,"total":11,"totalPage":3},
		"data": [{"id":"s1","title":"Incorporation","is_draft":true,"verification_status":"pending","base_price":"100.00"}]
	}`)

	draft := true
	page, err := client.ListSpecialists(context.Background(), admin.SpecialistQuery{
		Page:               2,
		Limit:              5,
		SearchTerm:         " tax ",
		IsDraft:            &draft,
		VerificationStatus: admin.VerificationPending,
	})
	require.NoError(t, err)
	require.Len(t, page.Specialists, 1)
	require.Equal(t, "Incorporation", page.Specialists[0].Title)
	require.Equal(t, admin.VerificationPending, page.Specialists[0].VerificationStatus)
	require.Equal(t, 3, page.Meta.TotalPage)

	require.Len(t, calls(), 1)
	require.Equal(t, "/api/v1/specialists/admin/all", calls()[0].path)
	require.Equal(t, "is_draft=true&limit=5&page=2&searchTerm=tax&verification_status=pending", calls()[0].query)
}

func TestSpecialistActions(t *testing.T) {
	client, calls := backend(t, http.StatusOK, `{"success":true,"data":{"id":"s1","is_draft":false,"verification_status":"approved"}}`)
	ctx := context.Background()

	_, err := client.GetSpecialist(ctx, "s1")
	require.NoError(t, err)
	_, err = client.PublishSpecialist(ctx, "s1")
	require.NoError(t, err)
	_, err = client.ApproveSpecialist(ctx, "s1")
	require.NoError(t, err)
	_, err = client.RejectSpecialist(ctx, "s1", " missing documents ")
	require.NoError(t, err)
	require.NoError(t, client.DeleteSpecialist(ctx, "s1"))

	require.Equal(t, []call{
		{method: http.MethodGet, path: "/api/v1/specialists/s1"},
		{method: http.MethodPatch, path: "/api/v1/specialists/s1/publish", body: `{"is_draft":false}`},
		{method: http.MethodPatch, path: "/api/v1/specialists/s1/approve"},
		{method: http.MethodPatch, path: "/api/v1/specialists/s1/reject", body: `{"reason":"missing documents"}`},
		{method: http.MethodDelete, path: "/api/v1/specialists/s1"},
	}, calls())

	_, err = client.RejectSpecialist(ctx, "s1", "  ")
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	_, err = client.GetSpecialist(ctx, "")
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	require.Len(t, calls(), 5)
}

func TestBackendRefusal(t *testing.T) {
	client, _ := backend(t, http.StatusBadRequest, `{"success":false,"message":"User already exists"}`)

	err := client.AssignAdmin(context.Background(), "a@example.com")
	require.ErrorIs(t, err, apperrors.ErrRequestFailed)
	var remote *apperrors.RemoteError
	require.ErrorAs(t, err, &remote)
	require.Equal(t, http.StatusBadRequest, remote.Status)
	require.Equal(t, "User already exists", remote.Message)
}

func TestUnauthorizedAfterRetry(t *testing.T) {
	client, _ := backend(t, http.StatusUnauthorized, `{"success":false,"message":"jwt expired"}`)

	_, err := client.ListUsers(context.Background())
	require.ErrorIs(t, err, apperrors.ErrAuthenticationFailed)
}

func TestNonJSONResponse(t *testing.T) {
	client, _ := backend(t, http.StatusBadGateway, `upstream down`)

	_, err := client.ListUsers(context.Background())
	require.ErrorIs(t, err, apperrors.ErrRequestFailed)
}
