package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tableflow/order-service/internal/api/dto"
	"github.com/tableflow/order-service/internal/service"
	apperrors "github.com/tableflow/order-service/pkg/util"
)

// AuthHandler exposes sign-up, sign-in and password flows.
type AuthHandler struct {
	auth         *service.AuthService
	exposeTokens bool
}

// NewAuthHandler constructs handler. exposeTokens echoes reset tokens in the
// response body and is meant for local development only.
func NewAuthHandler(authService *service.AuthService, exposeTokens bool) *AuthHandler {
	return &AuthHandler{auth: authService, exposeTokens: exposeTokens}
}

// SignUp handles POST /auth/signup.
func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	if req.Role == "" {
		return apperrors.NewValidationError("role is required", nil)
	}

	result, err := h.auth.SignUp(c.UserContext(), service.SignUpInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}

	data := fiber.Map{
		"outcome": result.Outcome,
		"user":    dto.NewUserResponse(result.User),
	}
	if result.Session != nil {
		data["auth"] = dto.AuthResponse{Token: result.Session.Token, ExpiresAt: result.Session.ExpiresAt}
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": data})
}

// Verify handles POST /auth/verify.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var req dto.VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	if req.Token == "" {
		return apperrors.NewValidationError("token is required", nil)
	}
	user, err := h.auth.Verify(c.UserContext(), req.Token)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"user": dto.NewUserResponse(user)}})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	result, err := h.auth.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": dto.NewUserResponse(result.User),
			"auth": dto.AuthResponse{Token: result.Session.Token, ExpiresAt: result.Session.ExpiresAt},
		},
	})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	if err := h.auth.SignOut(c.UserContext(), principal); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// RequestPasswordReset handles POST /auth/password/reset/request. The response
// never reveals whether the email is registered.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	if req.Email == "" {
		return apperrors.NewValidationError("email is required", nil)
	}

	token, err := h.auth.RequestPasswordReset(c.UserContext(), req.Email)
	if err != nil {
		return err
	}
	resp := dto.PasswordResetAccepted{Status: "accepted"}
	if h.exposeTokens && token != nil {
		resp.Token = token.Token
		resp.ExpiresAt = token.ExpiresAt.Format(time.RFC3339)
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": resp})
}

// ConfirmPasswordReset handles POST /auth/password/reset/confirm.
func (h *AuthHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	if req.Token == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("token and new_password required", nil)
	}
	if err := h.auth.ConfirmPasswordReset(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ChangePassword handles POST /auth/password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.PasswordChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("current_password and new_password required", nil)
	}
	if err := h.auth.ChangePassword(c.UserContext(), principal.User.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Me handles GET /api/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user":       dto.NewUserResponse(principal.User),
			"expires_at": principal.ExpiresAt,
		},
	})
}

// CreateUser handles POST /api/users (admin only).
func (h *AuthHandler) CreateUser(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	user, err := h.auth.CreateUser(c.UserContext(), service.SignUpInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}
