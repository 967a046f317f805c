package auth

import (
	"context"
	"time"

	"github.com/jrsteele09/go-session-client/authapi"
	apperrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/guard"
	"github.com/jrsteele09/go-session-client/session"
	"github.com/jrsteele09/go-session-client/token"
	"github.com/jrsteele09/go-session-client/users"
	"github.com/rs/zerolog/log"
)

// Authenticator performs the credential exchange. authapi.Client implements it.
type Authenticator interface {
	Login(ctx context.Context, req authapi.LoginRequest) (*authapi.LoginData, error)
}

// Service starts and ends sessions.
type Service struct {
	api   Authenticator
	store *session.Store
}

func NewService(api Authenticator, store *session.Store) *Service {
	return &Service{api: api, store: store}
}

// Login exchanges credentials for tokens, persists the session and returns
// the landing route for the account's role.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	data, err := s.api.Login(ctx, authapi.LoginRequest{Email: email, Password: password})
	if err != nil {
		return "", err
	}

	user := data.User()
	err = s.store.SetSession(ctx, session.Session{
		AccessToken:  data.AccessToken,
		RefreshToken: data.RefreshToken,
		User:         user,
	})
	if err != nil {
		return "", apperrors.Wrapf(err, "[Service Login] persist session")
	}

	landing := guard.LandingRoute(user.Role)
	log.Info().Str("email", user.Email).Str("role", user.Role.String()).Str("landing", landing).Msg("session started")
	return landing, nil
}

// Logout ends the session and redirects to the login route.
func (s *Service) Logout(ctx context.Context) error {
	return s.store.Logout(ctx)
}

// Status is a read-only view of the stored session.
type Status struct {
	Authenticated   bool
	AuthorizedRole  bool
	User            *users.Profile
	HasRefreshToken bool
	ExpiresAt       time.Time
	Remaining       time.Duration
	ExpiringSoon    bool
}

// Status reports the stored session without refreshing or clearing it.
func (s *Service) Status(ctx context.Context) (Status, error) {
	sess, err := s.store.Load(ctx)
	if err != nil {
		return Status{}, err
	}
	if !sess.HasAccessToken() {
		return Status{}, nil
	}

	evaluator := s.store.Evaluator()
	st := Status{
		Authenticated:   !evaluator.Expired(sess.AccessToken),
		AuthorizedRole:  sess.User.HasAuthorizedRole(),
		User:            sess.User,
		HasRefreshToken: sess.RefreshToken != "",
		Remaining:       evaluator.Remaining(sess.AccessToken),
		ExpiringSoon:    evaluator.ExpiringSoon(sess.AccessToken),
	}
	if exp, err := token.DecodeExpiry(sess.AccessToken); err == nil {
		st.ExpiresAt = exp
	}
	return st, nil
}
