package auth

import (
	"testing"
	"time"

	"github.com/fjod/farmfresh/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	m := NewTokenManager("secret")

	token, err := m.Issue("user-1", domain.RoleAdmin, "sid-1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.Equal(t, "sid-1", claims.SessionID)
}

func TestParse_Expired(t *testing.T) {
	m := NewTokenManager("secret")

	token, err := m.Issue("user-1", domain.RoleUser, "sid-1", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_WrongSecret(t *testing.T) {
	token, err := NewTokenManager("one").Issue("user-1", domain.RoleUser, "sid-1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = NewTokenManager("two").Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		SessionID: "sid-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenManager("secret").Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_MissingSession(t *testing.T) {
	m := NewTokenManager("secret")

	token, err := m.Issue("user-1", domain.RoleUser, "", time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_Garbage(t *testing.T) {
	_, err := NewTokenManager("secret").Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
