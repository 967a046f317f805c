package session

import (
	"context"
	"sync"

	apperrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/token"
	"github.com/jrsteele09/go-session-client/users"
	"github.com/rs/zerolog/log"
)

// Store is the single source of truth for the session fields. SetSession,
// UpdateTokens and ClearSession are the only mutation points.
type Store struct {
	storage   Storage
	navigator Navigator
	evaluator *token.Evaluator
	mu        sync.Mutex // serialises read-modify-write against Storage
}

type StoreOption func(*Store)

func WithNavigator(n Navigator) StoreOption {
	return func(s *Store) {
		s.navigator = n
	}
}

func WithEvaluator(e *token.Evaluator) StoreOption {
	return func(s *Store) {
		s.evaluator = e
	}
}

func NewStore(storage Storage, options ...StoreOption) *Store {
	s := &Store{storage: storage}
	for _, opt := range options {
		opt(s)
	}
	if s.evaluator == nil {
		s.evaluator = token.NewEvaluator()
	}
	if s.navigator == nil {
		s.navigator = NavigatorFunc(func(route string) {
			log.Info().Str("route", route).Msg("navigation requested with no navigator configured")
		})
	}
	return s
}

func (s *Store) Evaluator() *token.Evaluator {
	return s.evaluator
}

// Load returns the current session snapshot.
func (s *Store) Load(ctx context.Context) (Session, error) {
	record, err := s.storage.Load(ctx)
	if err != nil {
		return Session{}, apperrors.Wrapf(err, "[Store Load] storage")
	}
	sess, ok := Decode(record)
	if !ok {
		log.Warn().Msg("stored user profile is corrupt, ignoring it")
	}
	return sess, nil
}

func (s *Store) load(ctx context.Context) Session {
	sess, err := s.Load(ctx)
	if err != nil {
		log.Err(err).Msg("failed to read session")
		return Session{}
	}
	return sess
}

func (s *Store) AccessToken(ctx context.Context) (string, bool) {
	sess := s.load(ctx)
	return sess.AccessToken, sess.AccessToken != ""
}

// RefreshToken is only meaningful while an access token is present.
func (s *Store) RefreshToken(ctx context.Context) (string, bool) {
	sess := s.load(ctx)
	if !sess.HasAccessToken() {
		return "", false
	}
	return sess.RefreshToken, sess.RefreshToken != ""
}

func (s *Store) User(ctx context.Context) (*users.Profile, bool) {
	sess := s.load(ctx)
	if !sess.HasAccessToken() || sess.User == nil {
		return nil, false
	}
	return sess.User, true
}

// SetSession overwrites all three fields in one storage write.
func (s *Store) SetSession(ctx context.Context, sess Session) error {
	if sess.AccessToken == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "[Store SetSession] access token is required")
	}
	record, err := Encode(sess)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Save(ctx, record); err != nil {
		return apperrors.Wrapf(err, "[Store SetSession] storage")
	}
	return nil
}

// UpdateTokens replaces the access token, and the refresh token when a
// rotated one is supplied, keeping the stored profile. It refuses to revive
// a session that was cleared in the meantime.
func (s *Store) UpdateTokens(ctx context.Context, accessToken, rotatedRefreshToken string) error {
	if accessToken == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "[Store UpdateTokens] access token is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if !current.HasAccessToken() && current.RefreshToken == "" {
		return apperrors.Wrapf(apperrors.ErrSessionNotFound, "[Store UpdateTokens]")
	}

	current.AccessToken = accessToken
	if rotatedRefreshToken != "" {
		current.RefreshToken = rotatedRefreshToken
	}
	record, err := Encode(current)
	if err != nil {
		return err
	}
	if err := s.storage.Save(ctx, record); err != nil {
		return apperrors.Wrapf(err, "[Store UpdateTokens] storage")
	}
	return nil
}

// ClearSession removes every session key and then performs the hard
// redirect to the login route. The redirect happens even when storage fails.
func (s *Store) ClearSession(ctx context.Context) error {
	s.mu.Lock()
	err := s.storage.Clear(ctx)
	s.mu.Unlock()

	if err != nil {
		log.Err(err).Msg("failed to clear session storage")
		err = apperrors.Wrapf(err, "[Store ClearSession] storage")
	}
	s.navigator.Navigate(RouteLogin)
	return err
}

// Logout is the explicit user-initiated form of ClearSession.
func (s *Store) Logout(ctx context.Context) error {
	log.Info().Msg("logging out")
	return s.ClearSession(ctx)
}

// IsAuthenticated is true when an access token is present and its exp has
// not passed. It never mutates the session.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	tok, ok := s.AccessToken(ctx)
	return ok && !s.evaluator.Expired(tok)
}

func (s *Store) HasAuthorizedRole(ctx context.Context) bool {
	user, ok := s.User(ctx)
	return ok && user.HasAuthorizedRole()
}
