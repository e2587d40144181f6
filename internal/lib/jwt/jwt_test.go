package jwt

import (
	"testing"
	"time"

	"marketplace/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func testUser() models.User {
	return models.User{
		ID:       uuid.New(),
		Role:     models.RoleBrand,
		Email:    "acme@example.com",
		Username: "acme",
	}
}

func TestNewTokenRoundTrip(t *testing.T) {
	u := testUser()

	tok, err := NewToken(u, secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(tok, secret)
	require.NoError(t, err)

	assert.Equal(t, u.ID.String(), claims.ID)
	assert.Equal(t, models.RoleBrand, claims.Role)
	assert.Equal(t, u.Email, claims.Email)
	assert.Equal(t, u.Username, claims.Username)
}

func TestParseTokenRejects(t *testing.T) {
	u := testUser()

	t.Run("wrong secret", func(t *testing.T) {
		tok, err := NewToken(u, secret, time.Hour)
		require.NoError(t, err)

		_, err = ParseToken(tok, "other")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		tok, err := NewToken(u, secret, -time.Minute)
		require.NoError(t, err)

		_, err = ParseToken(tok, secret)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("unknown role", func(t *testing.T) {
		bad := u
		bad.Role = "admin"
		tok, err := NewToken(bad, secret, time.Hour)
		require.NoError(t, err)

		_, err = ParseToken(tok, secret)
		assert.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("none algorithm", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{
			UserID: u.ID.String(),
			Role:   u.Role,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = ParseToken(raw, secret)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseToken("not-a-token", secret)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
