package authclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const RequestIDHeader = "X-Request-ID"

// TokenProvider supplies bearer tokens. refresh.Coordinator implements it.
type TokenProvider interface {
	ValidToken(ctx context.Context) (string, error)
	RefreshRejected(ctx context.Context, rejected string) (string, error)
}

// Transport attaches the session's bearer token to every request. A 401
// triggers one refresh and one retry of the same request; the retry's
// response is returned whatever its status.
type Transport struct {
	Provider TokenProvider
	Base     http.RoundTripper
}

var _ http.RoundTripper = (*Transport)(nil)

// NewHTTPClient returns a client that authenticates through provider.
func NewHTTPClient(provider TokenProvider, base http.RoundTripper, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &Transport{Provider: provider, Base: base},
		Timeout:   timeout,
	}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	getBody, err := replayableBody(req)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[Transport RoundTrip] read request body")
	}

	tok, err := t.Provider.ValidToken(ctx)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[Transport RoundTrip] %s %s", req.Method, req.URL.Path)
	}

	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	first, err := authorize(req, tok, requestID, getBody)
	if err != nil {
		return nil, err
	}
	resp, err := t.base().RoundTrip(first)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	log.Debug().Str("request_id", requestID).Str("path", req.URL.Path).Msg("request unauthorized, refreshing token")
	discard(resp)

	renewed, err := t.Provider.RefreshRejected(ctx, tok)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrAuthenticationFailed) {
			err = apperrors.Join(apperrors.ErrAuthenticationFailed, err)
		}
		return nil, err
	}

	retry, err := authorize(req, renewed, requestID, getBody)
	if err != nil {
		return nil, err
	}
	return t.base().RoundTrip(retry)
}

// authorize clones req with a fresh body and the bearer header set.
func authorize(req *http.Request, tok, requestID string, getBody func() (io.ReadCloser, error)) (*http.Request, error) {
	out := req.Clone(req.Context())
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, apperrors.Wrapf(err, "[Transport authorize] rewind request body")
		}
		out.Body = body
		out.GetBody = getBody
	}
	(&oauth2.Token{AccessToken: tok, TokenType: "Bearer"}).SetAuthHeader(out)
	out.Header.Set(RequestIDHeader, requestID)
	return out, nil
}

// replayableBody returns a factory for the request body so it can be sent
// twice. The original body is consumed and closed.
func replayableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		_ = req.Body.Close()
		return req.GetBody, nil
	}

	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, err
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}, nil
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
