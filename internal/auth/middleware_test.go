package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/tableflow/order-service/internal/domain"
	"github.com/tableflow/order-service/internal/mocks"
	"github.com/tableflow/order-service/internal/observability"
	apperrors "github.com/tableflow/order-service/pkg/util"
)

type staticRevocations map[string]bool

func (s staticRevocations) Revoke(context.Context, string, time.Duration) error { return nil }

func (s staticRevocations) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	return s[sessionID], nil
}

type failingRevocations struct{}

func (failingRevocations) Revoke(context.Context, string, time.Duration) error { return nil }

func (failingRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

type errorBody struct {
	Code    string         `json:"code"`
	Details map[string]any `json:"details"`
}

func testErrorHandler(c *fiber.Ctx, err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return c.Status(domainErr.HTTPStatus).JSON(errorBody{Code: domainErr.Code, Details: domainErr.Details})
	}
	return c.SendStatus(fiber.StatusInternalServerError)
}

type gateFixture struct {
	app     *fiber.App
	tokens  *TokenManager
	users   *mocks.MockUserRepository
	revoked staticRevocations
	metrics *observability.Metrics
}

func newGateFixture(t *testing.T, requirement RouteRequirement) *gateFixture {
	f := &gateFixture{
		tokens:  NewTokenManager("secret", 10),
		users:   mocks.NewMockUserRepository(gomock.NewController(t)),
		revoked: staticRevocations{},
		metrics: observability.NewMetrics(),
	}
	mw := NewAuthMiddleware(f.tokens, f.users, f.revoked, zap.NewNop())
	gate := NewGatekeeper(f.metrics)

	f.app = fiber.New(fiber.Config{ErrorHandler: testErrorHandler})
	f.app.Use(mw.Identify)
	f.app.Get("/api/orders", gate.Require(requirement), func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		require.True(t, ok)
		return c.SendString(principal.User.ID)
	})
	return f
}

func (f *gateFixture) call(t *testing.T, token string) (int, errorBody) {
	t.Helper()
	req := httptest.NewRequest("GET", "/api/orders?status=pending", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body errorBody
	if resp.StatusCode >= 400 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp.StatusCode, body
}

func (f *gateFixture) token(t *testing.T, user *domain.User) IssuedToken {
	t.Helper()
	issued, err := f.tokens.GenerateToken(user.ID, user.Role)
	require.NoError(t, err)
	return issued
}

func TestGatekeeperRedirectsAnonymous(t *testing.T) {
	f := newGateFixture(t, AuthenticatedRoute())

	status, body := f.call(t, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body.Code)
	assert.Equal(t, "/login", body.Details["redirect_to"])
	assert.Equal(t, "/api/orders?status=pending", body.Details["return_to"])
}

func TestGatekeeperAllowsMatchingRole(t *testing.T) {
	f := newGateFixture(t, RolesRoute(domain.RoleManager))
	user := &domain.User{ID: "u-1", Role: domain.RoleManager, Status: domain.UserStatusActive}
	f.users.EXPECT().GetByID(gomock.Any(), "u-1").Return(user, nil)

	status, _ := f.call(t, f.token(t, user).Token)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, int64(1), f.metrics.Snapshot()["decisions"]["/api/orders|allow"])
}

func TestGatekeeperDeniesOtherRoles(t *testing.T) {
	f := newGateFixture(t, RolesRoute(domain.RoleManager))
	user := &domain.User{ID: "u-2", Role: domain.RoleCustomer, Status: domain.UserStatusActive}
	f.users.EXPECT().GetByID(gomock.Any(), "u-2").Return(user, nil)

	status, body := f.call(t, f.token(t, user).Token)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body.Code)
	assert.Equal(t, "/", body.Details["redirect_to"])
}

func TestIdentifyTreatsRevokedAndUnknownAsAnonymous(t *testing.T) {
	f := newGateFixture(t, AuthenticatedRoute())
	user := &domain.User{ID: "u-3", Role: domain.RoleSeller, Status: domain.UserStatusActive}

	revoked := f.token(t, user)
	f.revoked[revoked.SessionID] = true
	status, _ := f.call(t, revoked.Token)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	f.users.EXPECT().GetByID(gomock.Any(), "u-3").Return(nil, pgx.ErrNoRows)
	status, _ = f.call(t, f.token(t, user).Token)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = f.call(t, "not-a-jwt")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestIdentifyIgnoresSuspendedAccounts(t *testing.T) {
	f := newGateFixture(t, AuthenticatedRoute())
	user := &domain.User{ID: "u-4", Role: domain.RoleSeller, Status: domain.UserStatusSuspended}
	f.users.EXPECT().GetByID(gomock.Any(), "u-4").Return(user, nil)

	status, _ := f.call(t, f.token(t, user).Token)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestIdentifyFailsClosedWhenRevocationsUnavailable(t *testing.T) {
	tokens := NewTokenManager("secret", 10)
	users := mocks.NewMockUserRepository(gomock.NewController(t))
	mw := NewAuthMiddleware(tokens, users, failingRevocations{}, zap.NewNop())

	app := fiber.New(fiber.Config{ErrorHandler: testErrorHandler})
	app.Use(mw.Identify)
	app.Get("/api/orders", NewGatekeeper(observability.NewMetrics()).Require(AuthenticatedRoute()), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	issued, err := tokens.GenerateToken("u-5", domain.RoleManager)
	require.NoError(t, err)
	req := httptest.NewRequest("GET", "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer "+issued.Token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
