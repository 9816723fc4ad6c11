package controlapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Common errors for token operations.
var (
	ErrInvalidToken        = errors.New("controlapi: invalid token")
	ErrExpiredToken        = errors.New("controlapi: token has expired")
	ErrInvalidSecretLength = errors.New("controlapi: JWT secret must be at least 32 characters")
)

// Role is the operator permission level carried in a token's claims.
type Role string

const (
	// RoleOperator can read introspection state but not mutate it.
	RoleOperator Role = "operator"
	// RoleAdmin can additionally force-disconnect connections.
	RoleAdmin Role = "admin"
)

// Claims are the JWT claims issued for the control API. Unlike the
// teacher's user-account claims, there is no username/group/password
// state here: the daemon has no user store, only an operator role baked
// into the token at issuance time (typically by someipctl).
type Claims struct {
	jwt.RegisteredClaims
	Role Role `json:"role"`
}

// IsAdmin returns true if the token grants the admin role.
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// TokenConfig configures TokenService.
type TokenConfig struct {
	// Secret is the HMAC signing key. Must be at least 32 characters.
	Secret string
	// Issuer is the token issuer claim. Default: "someipd".
	Issuer string
	// TokenDuration is the lifetime of issued tokens. Default: 1h.
	TokenDuration time.Duration
}

// TokenService issues and validates bearer tokens for the control API.
type TokenService struct {
	config TokenConfig
}

// NewTokenService constructs a TokenService, applying defaults.
func NewTokenService(config TokenConfig) (*TokenService, error) {
	if len(config.Secret) < 32 {
		return nil, ErrInvalidSecretLength
	}
	if config.Issuer == "" {
		config.Issuer = "someipd"
	}
	if config.TokenDuration == 0 {
		config.TokenDuration = time.Hour
	}
	return &TokenService{config: config}, nil
}

// GenerateToken issues a signed token for the given role.
func (s *TokenService) GenerateToken(role Role) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenDuration)),
		},
		Role: role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", fmt.Errorf("controlapi: failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken validates a bearer token and returns its claims.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
