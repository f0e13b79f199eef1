package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	token, err := GenerateToken("user-1", "Ada", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := Parse(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "Ada", claims.Name)
	assert.Equal(t, "stackup", claims.Issuer)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken("user-1", "", "secret", time.Hour)
	require.NoError(t, err)

	_, err = Parse(token, "other")
	assert.ErrorIs(t, err, jwtlib.ErrTokenSignatureInvalid)
}

func TestParseRejectsExpired(t *testing.T) {
	token, err := GenerateToken("user-1", "", "secret", -time.Minute)
	require.NoError(t, err)

	_, err = Parse(token, "secret")
	assert.ErrorIs(t, err, jwtlib.ErrTokenExpired)
}

func TestParseRequiresUserID(t *testing.T) {
	token, err := GenerateToken("", "", "secret", time.Hour)
	require.NoError(t, err)

	_, err = Parse(token, "secret")
	assert.ErrorIs(t, err, ErrMissingSubject)
}
