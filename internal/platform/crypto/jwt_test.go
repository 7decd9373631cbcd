package crypto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	token, jti, err := GenerateToken("s3cret", "ops", RoleAdmin, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Len(t, jti, 32)

	claims, err := ParseToken("s3cret", token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Sub)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, jti, claims.ID)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, _, err := GenerateToken("s3cret", "ops", RoleAdmin, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken("other", token)
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	token, _, err := GenerateToken("s3cret", "ops", RoleAdmin, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken("s3cret", token)
	assert.Error(t, err)
}

func TestEmptySecretRejected(t *testing.T) {
	_, _, err := GenerateToken("", "ops", RoleAdmin, time.Hour)
	assert.ErrorIs(t, err, ErrEmptySecret)

	_, err = ParseToken("", "anything")
	assert.ErrorIs(t, err, ErrEmptySecret)
}
