package errors_test

import (
	stderrors "errors"
	"net/http"
	"testing"

	apperrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestWrapf(t *testing.T) {
	require.NoError(t, apperrors.Wrapf(nil, "ignored"))

	err := apperrors.Wrapf(apperrors.ErrNoRefreshToken, "[Coordinator %s]", "run")
	require.EqualError(t, err, "[Coordinator run]: no refresh token available")
	require.True(t, apperrors.Is(err, apperrors.ErrNoRefreshToken))
}

func TestJoin(t *testing.T) {
	cause := stderrors.New("dial tcp: refused")
	err := apperrors.Join(apperrors.ErrRefreshNetworkFailure, cause)
	require.True(t, apperrors.Is(err, apperrors.ErrRefreshNetworkFailure))
	require.True(t, apperrors.Is(err, cause))

	require.Equal(t, apperrors.ErrRefreshRejected, apperrors.Join(apperrors.ErrRefreshRejected, nil))
}

func TestRemoteError(t *testing.T) {
	err := error(&apperrors.RemoteError{Kind: apperrors.ErrLoginRejected, Status: http.StatusUnauthorized, Message: "Invalid credentials"})
	require.EqualError(t, err, "login rejected (status 401): Invalid credentials")
	require.True(t, apperrors.Is(err, apperrors.ErrLoginRejected))

	var remote *apperrors.RemoteError
	require.True(t, apperrors.As(err, &remote))
	require.Equal(t, "Invalid credentials", remote.Message)

	bare := &apperrors.RemoteError{Kind: apperrors.ErrRequestFailed, Status: http.StatusBadGateway}
	require.EqualError(t, bare, "request failed (status 502)")
}
