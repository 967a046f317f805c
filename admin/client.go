package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-session-client/authapi"
	apperrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/rs/zerolog/log"
)

// Client calls the authenticated admin endpoints. The http.Client is
// expected to carry the bearer token, see authclient.NewHTTPClient.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// do sends body as JSON and decodes the envelope's data into a T. A
// {success:false} answer becomes a RemoteError; a 401 that survived the
// transport's retry is ErrAuthenticationFailed.
func do[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) (*authapi.Envelope[T], error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, apperrors.Wrapf(err, "[admin %s %s] encode body", method, path)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[admin %s %s] build request", method, path)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrAuthenticationFailed) || apperrors.Is(err, apperrors.ErrNoValidToken) {
			return nil, err
		}
		return nil, apperrors.Join(apperrors.ErrRequestFailed, err)
	}
	status := resp.StatusCode

	env, err := authapi.ReadEnvelope[T](resp)
	if err != nil {
		if status == http.StatusUnauthorized {
			return nil, apperrors.Join(apperrors.ErrAuthenticationFailed, err)
		}
		return nil, err
	}
	if !env.Success {
		kind := apperrors.ErrRequestFailed
		if status == http.StatusUnauthorized {
			kind = apperrors.ErrAuthenticationFailed
		}
		log.Debug().Str("method", method).Str("path", path).Int("status", status).Str("message", env.Message).Msg("backend refused request")
		return nil, &apperrors.RemoteError{Kind: kind, Status: status, Message: env.Message}
	}
	return env, nil
}
