package authapi

import (
	"encoding/json"
	"io"
	"net/http"

	apperrors "github.com/jrsteele09/go-session-client/internal/errors"
)

const maxBodyBytes = 1 << 20

// Envelope is the response wrapper every backend endpoint uses.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
	Meta    *Meta  `json:"meta,omitempty"`
}

// Meta is the pagination block returned by list endpoints.
type Meta struct {
	Page      int `json:"page"`
	Limit     int `json:"limit"`
	Total     int `json:"total"`
	TotalPage int `json:"totalPage"`
}

// ReadEnvelope decodes the body of resp and closes it. A body that is not a
// JSON envelope is reported as ErrRequestFailed with the HTTP status.
func ReadEnvelope[T any](resp *http.Response) (*Envelope[T], error) {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, apperrors.Join(apperrors.ErrRequestFailed, err)
	}

	var env Envelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &apperrors.RemoteError{
			Kind:    apperrors.ErrRequestFailed,
			Status:  resp.StatusCode,
			Message: snippet(body),
		}
	}
	return &env, nil
}

func snippet(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
