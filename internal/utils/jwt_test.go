package utils

import (
	"testing"

	"kobo/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := GenerateToken(&models.UserClaims{
		UserID: 7,
		Email:  "ada@example.com",
		Role:   models.RoleAdmin,
	})
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.True(t, claims.IsAdmin())
	assert.Equal(t, "kobo-api", claims.Issuer)
}

func TestParseToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := ParseToken("not.a.token")
		assert.Error(t, err)
	})

	t.Run("rejects a token signed with another secret", func(t *testing.T) {
		token, err := GenerateToken(&models.UserClaims{UserID: 1})
		require.NoError(t, err)

		t.Setenv("JWT_SECRET", "different-secret")
		_, err = ParseToken(token)
		assert.Error(t, err)
	})
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := GenerateToken(&models.UserClaims{UserID: 1})
	assert.Error(t, err)
}
