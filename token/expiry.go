package token

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-session-client/internal/errors"
)

// DefaultExpiryWindow is how long before exp a token is treated as expiring soon.
const DefaultExpiryWindow = 5 * time.Minute

var parser = jwt.NewParser()

// DecodeExpiry reads the exp claim from the payload segment of a
// three-segment token. Neither the header nor the signature is inspected;
// the backend is the only verifier. Any structural problem is reported as
// ErrMalformedToken.
func DecodeExpiry(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, apperrors.Wrapf(apperrors.ErrMalformedToken, "empty token")
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return time.Time{}, apperrors.Wrapf(apperrors.ErrMalformedToken, "expected 3 segments, got %d", len(parts))
	}

	payload, err := parser.DecodeSegment(parts[1])
	if err != nil {
		return time.Time{}, apperrors.Join(apperrors.ErrMalformedToken, err)
	}
	claims := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return time.Time{}, apperrors.Join(apperrors.ErrMalformedToken, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, apperrors.Join(apperrors.ErrMalformedToken, err)
	}
	if exp == nil {
		return time.Time{}, apperrors.Wrapf(apperrors.ErrMalformedToken, "missing exp claim")
	}
	if exp.Unix() <= 0 {
		return time.Time{}, apperrors.Wrapf(apperrors.ErrMalformedToken, "non-positive exp claim")
	}
	return exp.Time, nil
}

// IsExpired is true when the token cannot be decoded or now >= exp.
func IsExpired(raw string, now time.Time) bool {
	exp, err := DecodeExpiry(raw)
	if err != nil {
		return true
	}
	return !now.Before(exp)
}

// IsExpiringSoon is true when the token cannot be decoded or now >= exp-window.
func IsExpiringSoon(raw string, now time.Time, window time.Duration) bool {
	exp, err := DecodeExpiry(raw)
	if err != nil {
		return true
	}
	return !now.Before(exp.Add(-window))
}

// Evaluator binds the classification functions to a clock and a window.
type Evaluator struct {
	window  time.Duration
	nowFunc func() time.Time
}

type EvaluatorOption func(*Evaluator)

func WithWindow(window time.Duration) EvaluatorOption {
	return func(e *Evaluator) {
		e.window = window
	}
}

func WithNowFunc(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) {
		e.nowFunc = now
	}
}

func NewEvaluator(options ...EvaluatorOption) *Evaluator {
	e := &Evaluator{window: DefaultExpiryWindow}
	for _, opt := range options {
		opt(e)
	}
	if e.nowFunc == nil {
		e.nowFunc = time.Now
	}
	if e.window < 0 {
		e.window = 0
	}
	return e
}

func (e *Evaluator) Now() time.Time {
	return e.nowFunc()
}

func (e *Evaluator) Window() time.Duration {
	return e.window
}

func (e *Evaluator) Expired(raw string) bool {
	return IsExpired(raw, e.nowFunc())
}

func (e *Evaluator) ExpiringSoon(raw string) bool {
	return IsExpiringSoon(raw, e.nowFunc(), e.window)
}

// Remaining returns the time left before exp, zero for expired or
// undecodable tokens.
func (e *Evaluator) Remaining(raw string) time.Duration {
	exp, err := DecodeExpiry(raw)
	if err != nil {
		return 0
	}
	if d := exp.Sub(e.nowFunc()); d > 0 {
		return d
	}
	return 0
}
