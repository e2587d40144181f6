package jwt

import (
	"errors"
	"fmt"
	"time"

	"marketplace/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrInvalidRole  = errors.New("invalid role claim")
)

// SessionClaims is the auth_token payload: {id, role, email, username, exp, iat}.
type SessionClaims struct {
	UserID   string      `json:"id"`
	Role     models.Role `json:"role"`
	Email    string      `json:"email"`
	Username string      `json:"username"`
	jwt.RegisteredClaims
}

// NewToken issues an HS256 session token for user.
func NewToken(user models.User, secret string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := SessionClaims{
		UserID:   user.ID.String(),
		Role:     user.Role,
		Email:    user.Email,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secret))
}

// ParseToken verifies the signature and expiry of tokenStr and returns its claims.
func ParseToken(tokenStr, secret string) (models.Claims, error) {
	const op = "jwt.ParseToken"

	var claims SessionClaims

	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Claims{}, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}
		return models.Claims{}, fmt.Errorf("%s: %w: %v", op, ErrInvalidToken, err)
	}

	if !claims.Role.Valid() {
		return models.Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidRole)
	}

	if claims.UserID == "" {
		return models.Claims{}, fmt.Errorf("%s: %w: missing id", op, ErrInvalidToken)
	}

	return models.Claims{
		ID:       claims.UserID,
		Role:     claims.Role,
		Email:    claims.Email,
		Username: claims.Username,
	}, nil
}
