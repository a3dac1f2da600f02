package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 60)

	t.Run("user token carries no role", func(t *testing.T) {
		token, exp, err := tm.GenerateToken("user-1", domain.SubjectTypeUser, nil)
		require.NoError(t, err)
		assert.False(t, exp.IsZero())

		claims, err := tm.ParseToken(token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.SubjectID)
		assert.Equal(t, domain.SubjectTypeUser, claims.Subject)
		assert.Nil(t, claims.Role)
	})

	t.Run("operator token carries the role", func(t *testing.T) {
		role := domain.RoleDepartmentHead
		token, _, err := tm.GenerateToken("op-1", domain.SubjectTypeOperator, &role)
		require.NoError(t, err)

		claims, err := tm.ParseToken(token)
		require.NoError(t, err)
		assert.Equal(t, domain.SubjectTypeOperator, claims.Subject)
		require.NotNil(t, claims.Role)
		assert.Equal(t, domain.RoleDepartmentHead, *claims.Role)
	})
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret-a", 60).GenerateToken("user-1", domain.SubjectTypeUser, nil)
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", 60).ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	_, err := NewTokenManager("secret", 60).ParseToken("not-a-jwt")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	assert.NoError(t, ComparePassword(hash, "s3cret"))
	assert.Error(t, ComparePassword(hash, "wrong"))
}
