package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jrsteele09/go-session-client/users"
)

// Storage keys. Their presence or absence is the only externally visible
// session state.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

// Routes the session lifecycle navigates to.
const (
	RouteLogin           = "/login"
	RoutePendingApproval = "/pending-approval"
)

// Session is a snapshot of the three persisted fields. An empty AccessToken
// means unauthenticated, whatever the other fields hold.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *users.Profile
}

func (s Session) HasAccessToken() bool {
	return s.AccessToken != ""
}

// Record is the raw key/value form of a Session as held by a Storage.
type Record map[string]string

// Storage persists a Record. Save replaces the whole record in one step so a
// concurrent Load never sees a mix of old and new keys.
type Storage interface {
	Load(ctx context.Context) (Record, error)
	Save(ctx context.Context, record Record) error
	Clear(ctx context.Context) error
}

// Navigator performs the hard redirect that ends a session.
type Navigator interface {
	Navigate(route string)
}

type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) {
	f(route)
}

// Encode converts a Session into its storage Record. Absent fields are left
// out of the record.
func Encode(s Session) (Record, error) {
	record := Record{}
	if s.AccessToken != "" {
		record[KeyAccessToken] = s.AccessToken
	}
	if s.RefreshToken != "" {
		record[KeyRefreshToken] = s.RefreshToken
	}
	if s.User != nil {
		b, err := json.Marshal(s.User)
		if err != nil {
			return nil, fmt.Errorf("[session Encode] marshal user: %w", err)
		}
		record[KeyUser] = string(b)
	}
	return record, nil
}

// Decode converts a Record back into a Session. A corrupt user value is
// dropped rather than failing the whole session.
func Decode(record Record) (Session, bool) {
	s := Session{
		AccessToken:  record[KeyAccessToken],
		RefreshToken: record[KeyRefreshToken],
	}
	userCorrupt := false
	if raw := record[KeyUser]; raw != "" {
		var p users.Profile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			userCorrupt = true
		} else {
			s.User = &p
		}
	}
	return s, !userCorrupt
}
