package auth

import (
	"github.com/tableflow/order-service/internal/domain"
)

const (
	LoginRoute          = "/login"
	DefaultLandingRoute = "/"
	AccessDeniedMessage = "Access Denied"
)

// DecisionKind is the outcome of an access evaluation.
type DecisionKind string

const (
	DecisionAllow           DecisionKind = "allow"
	DecisionRedirectToLogin DecisionKind = "redirect_to_login"
	DecisionDeny            DecisionKind = "deny"
)

// Viewer is the caller's authentication and role snapshot at decision time.
type Viewer struct {
	Authenticated bool         `json:"authenticated"`
	Role          *domain.Role `json:"role,omitempty"`
}

// AnonymousViewer is a viewer without a session.
func AnonymousViewer() Viewer {
	return Viewer{}
}

// AuthenticatedViewer is a signed-in viewer holding role.
func AuthenticatedViewer(role domain.Role) Viewer {
	return Viewer{Authenticated: true, Role: &role}
}

// SessionState is what the authentication side reports. No decision is made
// while Loading is set.
type SessionState struct {
	Loading bool   `json:"loading"`
	Viewer  Viewer `json:"viewer"`
}

// RouteRequirement is declared statically per route. An empty AllowedRoles set
// admits any authenticated role.
type RouteRequirement struct {
	Public       bool
	AllowedRoles domain.RoleSet
}

// PublicRoute admits everyone.
func PublicRoute() RouteRequirement {
	return RouteRequirement{Public: true}
}

// AuthenticatedRoute admits any signed-in viewer.
func AuthenticatedRoute() RouteRequirement {
	return RouteRequirement{}
}

// RolesRoute admits signed-in viewers holding one of roles.
func RolesRoute(roles ...domain.Role) RouteRequirement {
	return RouteRequirement{AllowedRoles: domain.NewRoleSet(roles...)}
}

// Decision tells the caller what to render. RedirectToLogin carries the
// requested location in ReturnTo; DenyWithMessage is shown once and then
// redirected to RedirectTo.
type Decision struct {
	Kind       DecisionKind `json:"kind"`
	RedirectTo string       `json:"redirect_to,omitempty"`
	ReturnTo   string       `json:"return_to,omitempty"`
	Message    string       `json:"message,omitempty"`
}

// Evaluate decides access for a resolved viewer. It is total and side-effect free.
func Evaluate(viewer Viewer, requirement RouteRequirement, location string) Decision {
	if requirement.Public {
		return Decision{Kind: DecisionAllow}
	}
	if !viewer.Authenticated {
		return Decision{Kind: DecisionRedirectToLogin, RedirectTo: LoginRoute, ReturnTo: location}
	}
	if !requirement.AllowedRoles.Empty() {
		// A missing role is treated exactly like a mismatch.
		if viewer.Role == nil || !requirement.AllowedRoles.Contains(*viewer.Role) {
			return Decision{Kind: DecisionDeny, RedirectTo: DefaultLandingRoute, Message: AccessDeniedMessage}
		}
	}
	return Decision{Kind: DecisionAllow}
}

// Resolve evaluates state once it has finished loading. ok is false while
// the session is still loading.
func Resolve(state SessionState, requirement RouteRequirement, location string) (Decision, bool) {
	if state.Loading {
		return Decision{}, false
	}
	return Evaluate(state.Viewer, requirement, location), true
}

// Watch re-evaluates the requirement every time the session keyed by key
// changes and reports resolved decisions to onDecision. The initial state is
// evaluated immediately. Call the returned func to stop watching.
func Watch(hub *SessionHub, key string, initial SessionState, requirement RouteRequirement, location string, onDecision func(Decision)) func() {
	report := func(state SessionState) {
		if decision, ok := Resolve(state, requirement, location); ok {
			onDecision(decision)
		}
	}
	unsubscribe := hub.Subscribe(key, report)
	report(initial)
	return unsubscribe
}
