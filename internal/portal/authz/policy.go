// Package authz decides, per request path and session role, whether a
// request may proceed, must sign in first, or is rejected.
package authz

import (
	"net/url"
	"slices"
	"strings"

	"github.com/aussiebroadwan/portal/internal/portal/domain"
	"github.com/aussiebroadwan/portal/internal/portal/session"
	"github.com/aussiebroadwan/portal/pkg/authsdk"
)

// Group is one protected path prefix. Paths are matched after the locale
// segment has been stripped.
type Group struct {
	Name   string
	Prefix string

	// API groups answer denials with a JSON 403 instead of a redirect.
	API bool

	Roles domain.RoleSet

	// Public paths inside the group that need no session. Exact match.
	Public []string

	// SessionOnly paths need a session but no particular role. Exact match.
	SessionOnly []string

	// Redirects are applied before any session or role check.
	Redirects map[string]string
}

// Policy is an ordered, read-only route table. The first group whose prefix
// matches decides; there is no longest-prefix logic.
type Policy struct {
	// Public routes skip every check. A route matches exactly or as a prefix
	// followed by "?".
	Public []string

	Groups []Group
}

var organizationRoles = domain.RoleSet{
	domain.RoleOrganization,
	domain.RoleOrganizationAdmin,
	domain.RoleOrganizationDriver,
}

// DefaultPolicy returns the gateway's route table.
func DefaultPolicy() *Policy {
	return &Policy{
		Public: []string{
			"/api/user/reset/password",
			"/api/user/reset/password/confirm",
			"/api/user/available/trips",
			"/api/organizations/register",
			"/api/organizations/verify-invitation",
		},
		Groups: []Group{
			{
				Name:   "users",
				Prefix: "/users",
				Roles:  domain.RoleSet{domain.RoleCustomer},
			},
			{
				Name:   "organizations",
				Prefix: "/organizations",
				Roles:  organizationRoles,
				Public: []string{
					"/organizations/register",
					"/organizations/verify-invitation",
					"/organizations/verification-pending",
				},
				Redirects: map[string]string{
					"/organizations/dashboard": "/organizations/profile",
				},
			},
			{
				Name:        "drivers",
				Prefix:      "/drivers",
				Roles:       domain.RoleSet{domain.RoleDriver},
				Public:      []string{"/drivers/join"},
				SessionOnly: []string{"/drivers/register", "/drivers/status"},
			},
			{
				Name:   "api_user",
				Prefix: "/api/user/",
				API:    true,
				Roles:  domain.RoleSet{domain.RoleCustomer},
			},
			{
				Name:   "api_driver",
				Prefix: "/api/driver/",
				API:    true,
				Roles:  domain.RoleSet{domain.RoleDriver},
			},
			{
				Name:   "api_organizations",
				Prefix: "/api/organizations/",
				API:    true,
				Roles:  append(slices.Clone(organizationRoles), domain.RoleAdmin),
				Public: []string{
					"/api/organizations/register",
					"/api/organizations/verify-invitation",
				},
			},
		},
	}
}

type Outcome int

const (
	// Allow passes the request on unchanged.
	Allow Outcome = iota
	// Redirect sends the caller to Decision.Location.
	Redirect
	// SignIn sends a page request to the sign-in page.
	SignIn
	// Reject answers an API request with Decision.Err.
	Reject
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	case SignIn:
		return "signin"
	case Reject:
		return "reject"
	default:
		return "unknown"
	}
}

// Decision is the result of evaluating a path against a Policy.
type Decision struct {
	Outcome Outcome

	// Reason is a short machine label, e.g. "public", "role", "no_session".
	Reason string

	// Group is the matching group's name, "" when none matched.
	Group string
	API   bool

	// Location is the redirect target for Redirect.
	Location string

	// Err is the error to write for Reject.
	Err *authsdk.Error
}

// Decide evaluates path (locale already stripped) and its raw query for sess.
// sess may be nil. An expired session counts as no session.
func (p *Policy) Decide(path, rawQuery string, sess *session.Session) Decision {
	if p.isPublic(path, rawQuery) {
		return Decision{Outcome: Allow, Reason: "public"}
	}

	for _, g := range p.Groups {
		if !strings.HasPrefix(path, g.Prefix) {
			continue
		}

		if target, ok := g.Redirects[path]; ok {
			return Decision{Outcome: Redirect, Reason: "redirect", Group: g.Name, API: g.API, Location: target}
		}
		if slices.Contains(g.Public, path) {
			return Decision{Outcome: Allow, Reason: "public_exception", Group: g.Name, API: g.API}
		}
		if !sess.Authenticated() {
			return g.deny("no_session", authsdk.ErrUnauthorized)
		}
		if slices.Contains(g.SessionOnly, path) {
			return Decision{Outcome: Allow, Reason: "session", Group: g.Name, API: g.API}
		}
		if !g.Roles.Contains(sess.Role) {
			return g.deny("role", authsdk.ErrForbidden)
		}
		return Decision{Outcome: Allow, Reason: "role", Group: g.Name, API: g.API}
	}

	return Decision{Outcome: Allow, Reason: "unmatched"}
}

func (g Group) deny(reason string, err *authsdk.Error) Decision {
	if g.API {
		return Decision{Outcome: Reject, Reason: reason, Group: g.Name, API: true, Err: err}
	}
	return Decision{Outcome: SignIn, Reason: reason, Group: g.Name}
}

func (p *Policy) isPublic(path, rawQuery string) bool {
	full := path + "?" + rawQuery
	for _, route := range p.Public {
		if path == route || strings.HasPrefix(full, route+"?") {
			return true
		}
	}
	return false
}

// SignInURL builds the sign-in redirect carrying callback as callbackUrl.
func SignInURL(signInPath, callback string) string {
	return signInPath + "?callbackUrl=" + url.QueryEscape(callback)
}

// SafeCallback returns raw when it is a same-origin relative path, otherwise
// fallback.
func SafeCallback(raw, fallback string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return fallback
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return fallback
	}
	if strings.ContainsAny(raw, "\r\n") {
		return fallback
	}
	return raw
}
