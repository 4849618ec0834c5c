package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tableflow/order-service/internal/auth"
	"github.com/tableflow/order-service/internal/config"
	"github.com/tableflow/order-service/internal/domain"
	"github.com/tableflow/order-service/internal/events"
	"github.com/tableflow/order-service/internal/repository"
	apperrors "github.com/tableflow/order-service/pkg/util"
)

const minPasswordLength = 8

// SignUpOutcome tells the caller which path sign-up took.
type SignUpOutcome string

const (
	SignedUpWithSession  SignUpOutcome = "signed_up_with_session"
	AwaitingVerification SignUpOutcome = "awaiting_verification"
)

// SignUpInput is the registration form. Role is required.
type SignUpInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     string
}

// Session is an issued bearer token.
type Session struct {
	Token     string
	SessionID string
	ExpiresAt time.Time
}

// SignUpResult reports the created account and, when no verification is
// required, the session opened for it.
type SignUpResult struct {
	Outcome SignUpOutcome
	User    *domain.User
	Session *Session
}

// SignInResult is a successful sign-in.
type SignInResult struct {
	User    *domain.User
	Session Session
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users         repository.UserRepository
	resets        repository.PasswordResetRepository
	verifications auth.VerificationStore
	revocations   auth.RevocationStore
	sessions      auth.SessionPublisher
	dispatcher    events.Dispatcher
	tokenMgr      *auth.TokenManager
	logger        *zap.Logger

	bcryptCost          int
	resetTTL            time.Duration
	verificationTTL     time.Duration
	requireVerification bool
	now                 func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	Verifications     auth.VerificationStore
	Revocations       auth.RevocationStore
	Sessions          auth.SessionPublisher
	Dispatcher        events.Dispatcher
	Logger            *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:               deps.UserRepo,
		resets:              deps.PasswordResetRepo,
		verifications:       deps.Verifications,
		revocations:         deps.Revocations,
		sessions:            deps.Sessions,
		dispatcher:          deps.Dispatcher,
		tokenMgr:            auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		logger:              logger,
		bcryptCost:          cfg.Auth.BcryptCost,
		resetTTL:            time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
		verificationTTL:     time.Duration(cfg.Auth.VerificationTTLMinutes) * time.Minute,
		requireVerification: cfg.Auth.RequireVerification,
		now:                 time.Now,
	}
}

// SignUp registers a customer account. Staff accounts are created by an
// administrator through CreateUser.
func (s *AuthService) SignUp(ctx context.Context, input SignUpInput) (*SignUpResult, error) {
	role, err := domain.ParseRole(input.Role)
	if err != nil {
		return nil, apperrors.NewValidationError("role is required", map[string]any{"role": input.Role})
	}
	if role != domain.RoleCustomer {
		return nil, apperrors.NewForbidden("staff accounts are created by an administrator")
	}

	status := domain.UserStatusActive
	if s.requireVerification {
		status = domain.UserStatusPendingVerification
	}
	user, err := s.createUser(ctx, input, role, status)
	if err != nil {
		return nil, err
	}

	if s.requireVerification {
		token := uuid.NewString()
		if err := s.verifications.Save(ctx, token, user.ID, s.verificationTTL); err != nil {
			return nil, apperrors.NewUnavailable("could not issue verification token", err)
		}
		s.publish(ctx, events.NewEvent(events.EventAccountVerificationRequested, user.ID, actorOf(user), events.AccountTokenPayload{
			Name:      user.Name,
			Email:     user.Email,
			Token:     token,
			ExpiresAt: s.now().Add(s.verificationTTL),
		}))
		return &SignUpResult{Outcome: AwaitingVerification, User: user}, nil
	}

	session, err := s.openSession(user)
	if err != nil {
		return nil, err
	}
	// Sign-up announces itself once; no signed_in event follows for this session.
	s.publishSessionEvent(ctx, events.EventSessionSignedUp, user, session.SessionID)
	return &SignUpResult{Outcome: SignedUpWithSession, User: user, Session: &session}, nil
}

// CreateUser provisions an account of any role; callers gate it to admins.
func (s *AuthService) CreateUser(ctx context.Context, input SignUpInput) (*domain.User, error) {
	role, err := domain.ParseRole(input.Role)
	if err != nil {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}
	return s.createUser(ctx, input, role, domain.UserStatusActive)
}

func (s *AuthService) createUser(ctx context.Context, input SignUpInput, role domain.Role, status domain.UserStatus) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := validateCredentials(name, email, input.Password); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !apperrors.IsNotFound(err) {
		return nil, apperrors.NewUnavailable("could not check email", err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(input.Phone),
		PasswordHash: hash,
		Role:         role,
		Status:       status,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.NewUnavailable("could not create account", err)
	}
	return user, nil
}

// Verify activates an account awaiting verification.
func (s *AuthService) Verify(ctx context.Context, token string) (*domain.User, error) {
	userID, err := s.verifications.Consume(ctx, strings.TrimSpace(token))
	if errors.Is(err, auth.ErrVerificationNotFound) {
		return nil, apperrors.NewValidationError("verification token is invalid or expired", nil)
	}
	if err != nil {
		return nil, apperrors.NewUnavailable("could not verify account", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if user.Status == domain.UserStatusPendingVerification {
		user.Status = domain.UserStatusActive
		if err := s.users.Update(ctx, user); err != nil {
			return nil, apperrors.NewUnavailable("could not activate account", err)
		}
	}
	return user, nil
}

// SignIn authenticates an account and opens a new session.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.NewUnavailable("could not sign in", err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	switch user.Status {
	case domain.UserStatusPendingVerification:
		return nil, apperrors.NewForbidden("account is awaiting verification")
	case domain.UserStatusSuspended:
		return nil, apperrors.NewForbidden("account is suspended")
	}

	session, err := s.openSession(user)
	if err != nil {
		return nil, err
	}
	s.publishSessionEvent(ctx, events.EventSessionSignedIn, user, session.SessionID)
	return &SignInResult{User: user, Session: session}, nil
}

// SignOut revokes the principal's session and tells watchers it ended.
func (s *AuthService) SignOut(ctx context.Context, principal *auth.Principal) error {
	if principal == nil || principal.SessionID == "" {
		return nil
	}
	ttl := principal.ExpiresAt.Sub(s.now())
	if s.revocations != nil && ttl > 0 {
		if err := s.revocations.Revoke(ctx, principal.SessionID, ttl); err != nil {
			return apperrors.NewUnavailable("could not sign out", err)
		}
	}
	if s.sessions != nil {
		s.sessions.PublishSession(ctx, principal.SessionID, auth.SessionState{Viewer: auth.AnonymousViewer()})
	}
	if principal.User != nil {
		s.publishSessionEvent(ctx, events.EventSessionSignedOut, principal.User, principal.SessionID)
	}
	return nil
}

// RequestPasswordReset persists a reset token for the account. Unknown emails
// succeed silently and return nil.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*repository.PasswordResetToken, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, apperrors.NewUnavailable("could not request reset", err)
	}

	token := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, apperrors.NewUnavailable("could not request reset", err)
	}
	s.publish(ctx, events.NewEvent(events.EventPasswordResetRequested, user.ID, actorOf(user), events.AccountTokenPayload{
		Name:      user.Name,
		Email:     user.Email,
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
	}))
	return token, nil
}

// ConfirmPasswordReset validates the reset token and updates password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	if err := validateNewPassword(newPassword); err != nil {
		return err
	}
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewValidationError("token expired or used", nil)
		}
		return apperrors.NewUnavailable("could not reset password", err)
	}
	if !token.Usable(s.now()) {
		return apperrors.NewValidationError("token expired or used", nil)
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return apperrors.MapError(err)
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.resets.Claim(ctx, token.ID); err != nil {
		if errors.Is(err, repository.ErrResetTokenClaimed) {
			return apperrors.NewValidationError("token expired or used", nil)
		}
		return apperrors.NewUnavailable("could not reset password", err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.NewUnavailable("could not reset password", err)
	}
	return nil
}

// ChangePassword verifies current password before updating to new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if err := validateNewPassword(newPassword); err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) openSession(user *domain.User) (Session, error) {
	issued, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return Session{}, apperrors.NewInternalError(err)
	}
	return Session{Token: issued.Token, SessionID: issued.SessionID, ExpiresAt: issued.ExpiresAt}, nil
}

func (s *AuthService) publishSessionEvent(ctx context.Context, eventType events.EventType, user *domain.User, sessionID string) {
	s.publish(ctx, events.NewEvent(eventType, user.ID, actorOf(user), events.SessionPayload{
		SessionID: sessionID,
		Role:      user.Role,
		Name:      user.Name,
	}))
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func actorOf(user *domain.User) events.Actor {
	return events.Actor{UserID: user.ID, Role: user.Role}
}

func validateCredentials(name, email, password string) error {
	details := map[string]any{}
	if name == "" {
		details["name"] = "required"
	}
	if _, err := mail.ParseAddress(email); err != nil {
		details["email"] = "invalid"
	}
	if len(password) < minPasswordLength {
		details["password"] = "too short"
	} else if len(password) > auth.MaxPasswordBytes {
		details["password"] = "too long"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid account details", details)
	}
	return nil
}

func validateNewPassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.NewValidationError("password too short", map[string]any{"min_length": minPasswordLength})
	}
	if len(password) > auth.MaxPasswordBytes {
		return apperrors.NewValidationError("password too long", map[string]any{"max_length": auth.MaxPasswordBytes})
	}
	return nil
}
