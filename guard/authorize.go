package guard

import (
	"fmt"
	"strings"
	"time"

	"github.com/jrsteele09/go-session-client/session"
	"github.com/jrsteele09/go-session-client/token"
	"github.com/jrsteele09/go-session-client/users"
)

const (
	RouteAdminHome    = "/admin/specialists"
	RouteProviderHome = "/specialists"
)

// RouteKind groups routes that share one access rule.
type RouteKind int

const (
	// Protected needs a live session and an ADMIN or PROVIDER role.
	Protected RouteKind = iota
	// AdminOnly is Protected, and providers are sent to their own home.
	AdminOnly
	// Login is only shown to visitors without a live session.
	Login
	// PendingApproval is for signed-in accounts that have no usable role yet.
	PendingApproval
)

var routeKindNames = map[RouteKind]string{
	Protected:       "protected",
	AdminOnly:       "admin",
	Login:           "login",
	PendingApproval: "pending-approval",
}

func (k RouteKind) String() string {
	if name, ok := routeKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("RouteKind(%d)", int(k))
}

func ParseRouteKind(s string) (RouteKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for kind, name := range routeKindNames {
		if name == s {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown route kind %q", s)
}

// Decision is either a permit or a redirect target, never both.
type Decision struct {
	Permit   bool
	Redirect string
}

func Permit() Decision {
	return Decision{Permit: true}
}

func RedirectTo(route string) Decision {
	return Decision{Redirect: route}
}

func (d Decision) String() string {
	if d.Permit {
		return "permit"
	}
	return "redirect " + d.Redirect
}

// LandingRoute is where an account goes after login, by role.
func LandingRoute(role users.Role) string {
	switch role {
	case users.RoleAdmin:
		return RouteAdminHome
	case users.RoleProvider:
		return RouteProviderHome
	default:
		return session.RoutePendingApproval
	}
}

// Authorize decides whether s may enter a route of the given kind at now.
// It has no side effects.
func Authorize(kind RouteKind, s session.Session, now time.Time) Decision {
	authenticated := s.HasAccessToken() && !token.IsExpired(s.AccessToken, now)
	var role users.Role
	if s.User != nil {
		role = s.User.Role
	}

	switch kind {
	case Login:
		if authenticated {
			return RedirectTo(LandingRoute(role))
		}
		return Permit()

	case PendingApproval:
		if !authenticated {
			return RedirectTo(session.RouteLogin)
		}
		if role.IsAuthorized() {
			return RedirectTo(LandingRoute(role))
		}
		return Permit()

	case AdminOnly:
		if !authenticated {
			return RedirectTo(session.RouteLogin)
		}
		if role == users.RoleProvider {
			return RedirectTo(RouteProviderHome)
		}
		if !role.IsAuthorized() {
			return RedirectTo(session.RoutePendingApproval)
		}
		return Permit()

	default:
		if !authenticated {
			return RedirectTo(session.RouteLogin)
		}
		if !role.IsAuthorized() {
			return RedirectTo(session.RoutePendingApproval)
		}
		return Permit()
	}
}
