package admin

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-session-client/authapi"
	apperrors "github.com/jrsteele09/go-session-client/internal/errors"
)

const specialistsPath = "/api/v1/specialists"

type VerificationStatus string

const (
	VerificationPending     VerificationStatus = "pending"
	VerificationUnderReview VerificationStatus = "under_review"
	VerificationApproved    VerificationStatus = "approved"
	VerificationRejected    VerificationStatus = "rejected"
)

type Offering struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Media struct {
	ID           string `json:"id"`
	FileName     string `json:"file_name"`
	FileURL      string `json:"file_url"`
	MimeType     string `json:"mime_type"`
	MediaType    string `json:"media_type"`
	DisplayOrder int    `json:"display_order"`
}

// Specialist is a service listing offered by a provider.
type Specialist struct {
	ID                  string             `json:"id"`
	Title               string             `json:"title"`
	Slug                string             `json:"slug"`
	Description         string             `json:"description"`
	BasePrice           string             `json:"base_price"`
	PlatformFee         string             `json:"platform_fee"`
	FinalPrice          string             `json:"final_price"`
	DurationDays        int                `json:"duration_days"`
	ServiceCategory     string             `json:"service_category"`
	AdditionalOfferings []Offering         `json:"additional_offerings,omitempty"`
	IsDraft             bool               `json:"is_draft"`
	VerificationStatus  VerificationStatus `json:"verification_status"`
	IsVerified          bool               `json:"is_verified"`
	ProviderID          string             `json:"provider_id"`
	Media               []Media            `json:"media,omitempty"`
	CreatedAt           string             `json:"created_at"`
	UpdatedAt           string             `json:"updated_at"`
}

// SpecialistQuery filters the admin listing. Zero values are omitted.
type SpecialistQuery struct {
	Page               int
	Limit              int
	SearchTerm         string
	IsDraft            *bool
	VerificationStatus VerificationStatus
}

func (q SpecialistQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if s := strings.TrimSpace(q.SearchTerm); s != "" {
		v.Set("searchTerm", s)
	}
	if q.IsDraft != nil {
		v.Set("is_draft", strconv.FormatBool(*q.IsDraft))
	}
	if q.VerificationStatus != "" {
		v.Set("verification_status", string(q.VerificationStatus))
	}
	return v
}

type SpecialistPage struct {
	Specialists []Specialist
	Meta        authapi.Meta
}

func (c *Client) ListSpecialists(ctx context.Context, q SpecialistQuery) (*SpecialistPage, error) {
	env, err := do[[]Specialist](ctx, c, http.MethodGet, specialistsPath+"/admin/all", q.values(), nil)
	if err != nil {
		return nil, err
	}
	page := &SpecialistPage{Specialists: env.Data}
	if env.Meta != nil {
		page.Meta = *env.Meta
	}
	return page, nil
}

func (c *Client) GetSpecialist(ctx context.Context, id string) (*Specialist, error) {
	path, err := specialistPath(id, "")
	if err != nil {
		return nil, err
	}
	env, err := do[*Specialist](ctx, c, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) PublishSpecialist(ctx context.Context, id string) (*Specialist, error) {
	return c.patchSpecialist(ctx, id, "/publish", map[string]bool{"is_draft": false})
}

func (c *Client) ApproveSpecialist(ctx context.Context, id string) (*Specialist, error) {
	return c.patchSpecialist(ctx, id, "/approve", nil)
}

func (c *Client) RejectSpecialist(ctx context.Context, id, reason string) (*Specialist, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "[Client RejectSpecialist] reason is required")
	}
	return c.patchSpecialist(ctx, id, "/reject", map[string]string{"reason": reason})
}

func (c *Client) DeleteSpecialist(ctx context.Context, id string) error {
	path, err := specialistPath(id, "")
	if err != nil {
		return err
	}
	_, err = do[any](ctx, c, http.MethodDelete, path, nil, nil)
	return err
}

func (c *Client) patchSpecialist(ctx context.Context, id, action string, body any) (*Specialist, error) {
	path, err := specialistPath(id, action)
	if err != nil {
		return nil, err
	}
	env, err := do[*Specialist](ctx, c, http.MethodPatch, path, nil, body)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func specialistPath(id, action string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", apperrors.Wrapf(apperrors.ErrInvalidRequest, "specialist id is required")
	}
	return specialistsPath + "/" + url.PathEscape(id) + action, nil
}
