package admin

import (
	"context"
	"net/http"
	"net/url"

	apperrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/internal/validation"
	"github.com/jrsteele09/go-session-client/users"
)

type CreateUserRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	Name        string `json:"name" validate:"required"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type statusRequest struct {
	Status users.Status `json:"status"`
}

func (c *Client) ListUsers(ctx context.Context) ([]users.Profile, error) {
	env, err := do[[]users.Profile](ctx, c, http.MethodGet, "/api/v1/users/all", nil, nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (*users.Profile, error) {
	if err := validation.Validate(req); err != nil {
		return nil, err
	}
	env, err := do[*users.Profile](ctx, c, http.MethodPost, "/api/v1/users", nil, req)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// AssignAdmin promotes the account with the given email to ADMIN.
func (c *Client) AssignAdmin(ctx context.Context, email string) error {
	return c.assign(ctx, "/api/v1/users/create-admin", email)
}

// AssignProvider promotes the account with the given email to PROVIDER.
func (c *Client) AssignProvider(ctx context.Context, email string) error {
	return c.assign(ctx, "/api/v1/providers/create-provider", email)
}

func (c *Client) assign(ctx context.Context, path, email string) error {
	req := emailRequest{Email: email}
	if err := validation.Validate(req); err != nil {
		return err
	}
	_, err := do[any](ctx, c, http.MethodPost, path, nil, req)
	return err
}

func (c *Client) ChangeStatus(ctx context.Context, userID string, status users.Status) error {
	if userID == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "[Client ChangeStatus] user id is required")
	}
	if err := users.ValidateStatus(status); err != nil {
		return apperrors.Join(apperrors.ErrInvalidRequest, err)
	}
	_, err := do[any](ctx, c, http.MethodPatch, "/api/v1/users/"+url.PathEscape(userID)+"/status", nil, statusRequest{Status: status})
	return err
}
