package auth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tableflow/order-service/internal/domain"
	"github.com/tableflow/order-service/internal/observability"
	"github.com/tableflow/order-service/internal/repository"
	apperrors "github.com/tableflow/order-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	User      *domain.User
	SessionID string
	ExpiresAt time.Time
}

// Viewer derives the access snapshot of the principal.
func (p *Principal) Viewer() Viewer {
	if p == nil || p.User == nil {
		return AnonymousViewer()
	}
	if !p.User.Role.Valid() {
		return Viewer{Authenticated: true}
	}
	return AuthenticatedViewer(p.User.Role)
}

// AuthMiddleware resolves bearer tokens into principals. It never rejects a
// request on its own; route gates decide what an anonymous caller may see.
type AuthMiddleware struct {
	tokens  *TokenManager
	users   repository.UserRepository
	revoked RevocationStore
	logger  *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository, revoked RevocationStore, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, revoked: revoked, logger: logger}
}

// Identify attaches the principal for a valid, unrevoked bearer token.
func (m *AuthMiddleware) Identify(c *fiber.Ctx) error {
	token := bearerToken(c)
	if token == "" {
		return c.Next()
	}

	claims, err := m.tokens.ParseToken(token)
	if err != nil {
		m.logger.Debug("bearer token rejected", zap.Error(err))
		return c.Next()
	}

	if m.revoked != nil {
		// A session that cannot be checked is not trusted.
		revoked, err := m.revoked.IsRevoked(c.UserContext(), claims.ID)
		if err != nil {
			m.logger.Warn("revocation lookup failed; treating caller as anonymous",
				zap.String("session_id", claims.ID), zap.Error(err))
			return c.Next()
		}
		if revoked {
			return c.Next()
		}
	}

	user, err := m.users.GetByID(c.UserContext(), claims.UserID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return c.Next()
		}
		return apperrors.NewUnavailable("user lookup failed", err)
	}
	if !user.Active() {
		return c.Next()
	}

	principal := &Principal{User: user, SessionID: claims.ID}
	if claims.ExpiresAt != nil {
		principal.ExpiresAt = claims.ExpiresAt.Time
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	// EventSource cannot set headers, so the watch stream passes the token in the query.
	return c.Query("access_token")
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// ViewerFromContext returns the caller's viewer, anonymous when unauthenticated.
func ViewerFromContext(c *fiber.Ctx) Viewer {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		return AnonymousViewer()
	}
	return principal.Viewer()
}

// Gatekeeper turns route requirements into fiber handlers.
type Gatekeeper struct {
	metrics *observability.Metrics
}

// NewGatekeeper builds a gatekeeper; metrics may be nil.
func NewGatekeeper(metrics *observability.Metrics) *Gatekeeper {
	return &Gatekeeper{metrics: metrics}
}

// Require enforces requirement with the same rules as the UI route gate.
func (g *Gatekeeper) Require(requirement RouteRequirement) fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision := Evaluate(ViewerFromContext(c), requirement, c.OriginalURL())
		g.metrics.RecordDecision(c.Route().Path, string(decision.Kind))

		switch decision.Kind {
		case DecisionRedirectToLogin:
			return apperrors.NewDomainError(apperrors.CodeUnauthorized, "authentication required", fiber.StatusUnauthorized, map[string]any{
				"redirect_to": decision.RedirectTo,
				"return_to":   decision.ReturnTo,
			})
		case DecisionDeny:
			return apperrors.NewDomainError(apperrors.CodeForbidden, decision.Message, fiber.StatusForbidden, map[string]any{
				"redirect_to": decision.RedirectTo,
			})
		default:
			return c.Next()
		}
	}
}

// RequireRoles is shorthand for Require(RolesRoute(roles...)).
func (g *Gatekeeper) RequireRoles(roles ...domain.Role) fiber.Handler {
	return g.Require(RolesRoute(roles...))
}

// RequireAuthenticated is shorthand for Require(AuthenticatedRoute()).
func (g *Gatekeeper) RequireAuthenticated() fiber.Handler {
	return g.Require(AuthenticatedRoute())
}
