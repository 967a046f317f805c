package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/internal/validation"
	"github.com/jrsteele09/go-session-client/token/refresh"
	"github.com/rs/zerolog/log"
)

// Client talks to the unauthenticated auth endpoints of the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ refresh.Refresher = (*Client)(nil)

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Login exchanges credentials for a session. A {success:false} answer is
// returned as ErrLoginRejected carrying the backend message.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginData, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validation.Validate(req); err != nil {
		return nil, err
	}

	resp, err := c.post(ctx, LoginPath, req)
	if err != nil {
		return nil, apperrors.Join(apperrors.ErrRequestFailed, err)
	}
	env, err := ReadEnvelope[*LoginData](resp)
	if err != nil {
		return nil, err
	}

	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "Login failed"
		}
		return nil, &apperrors.RemoteError{Kind: apperrors.ErrLoginRejected, Status: resp.StatusCode, Message: msg}
	}
	if env.Data == nil || env.Data.AccessToken == "" {
		return nil, apperrors.Wrapf(apperrors.ErrLoginRejected, "[Client Login] response has no access token")
	}

	log.Info().Str("email", req.Email).Str("role", string(env.Data.Role)).Msg("login accepted")
	return env.Data, nil
}

// Refresh implements refresh.Refresher.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*refresh.Result, error) {
	resp, err := c.post(ctx, RefreshPath, RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, apperrors.Join(apperrors.ErrRefreshNetworkFailure, err)
	}
	env, err := ReadEnvelope[*RefreshData](resp)
	if err != nil {
		return nil, apperrors.Join(apperrors.ErrRefreshNetworkFailure, err)
	}

	if !env.Success {
		return nil, &apperrors.RemoteError{Kind: apperrors.ErrRefreshRejected, Status: resp.StatusCode, Message: env.Message}
	}
	if env.Data == nil || env.Data.AccessToken == "" {
		return nil, apperrors.Wrapf(apperrors.ErrRefreshRejected, "[Client Refresh] response has no access token")
	}
	return &refresh.Result{
		AccessToken:  env.Data.AccessToken,
		RefreshToken: env.Data.RefreshToken,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	return c.httpClient.Do(req)
}
