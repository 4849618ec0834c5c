package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tableflow/order-service/internal/domain"
)

const tokenIssuer = "tableflow"

var (
	ErrTokenInvalid   = errors.New("invalid access token")
	ErrTokenNoSession = errors.New("access token carries no session")
)

// TokenManager signs session tokens. Each token opens its own session id (jti),
// which is what revocation and the session hub key on.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{
		secret: []byte(secret),
		ttl:    time.Duration(ttlMinutes) * time.Minute,
		now:    time.Now,
	}
}

// Claims is the signed payload. RegisteredClaims.ID carries the session id.
type Claims struct {
	UserID string      `json:"uid"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type IssuedToken struct {
	Token     string
	SessionID string
	ExpiresAt time.Time
}

func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// GenerateToken signs a token for the user under a fresh session id.
func (tm *TokenManager) GenerateToken(userID string, role domain.Role) (IssuedToken, error) {
	if !role.Valid() {
		return IssuedToken{}, fmt.Errorf("%w: %q", domain.ErrUnknownRole, role)
	}
	now := tm.now()
	issued := IssuedToken{SessionID: uuid.NewString(), ExpiresAt: now.Add(tm.ttl)}
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        issued.SessionID,
			Issuer:    tokenIssuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(issued.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return IssuedToken{}, err
	}
	issued.Token = signed
	return issued, nil
}

// ParseToken verifies signature, issuer and expiry, then checks the claims
// name a session and a known role.
func (tm *TokenManager) ParseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return tm.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.ID == "" || claims.UserID == "" {
		return nil, ErrTokenNoSession
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, domain.ErrUnknownRole)
	}
	return claims, nil
}
