package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("secret", "vidassist")

	token, err := m.GenerateToken("owner-1", "a@example.com", "pro", time.Minute)
	require.NoError(t, err)

	claims, err := m.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", claims.OwnerID())
	assert.Equal(t, "pro", claims.Plan)
	assert.NotEmpty(t, claims.ID)
}

func TestJWTManager_Expired(t *testing.T) {
	m := NewJWTManager("secret", "vidassist")

	token, err := m.GenerateToken("owner-1", "", "", -time.Minute)
	require.NoError(t, err)

	_, err = m.ParseToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTManager_WrongSecretOrIssuer(t *testing.T) {
	token, err := NewJWTManager("secret", "vidassist").GenerateToken("owner-1", "", "", time.Minute)
	require.NoError(t, err)

	_, err = NewJWTManager("other", "vidassist").ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewJWTManager("secret", "someone-else").ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_SecretRotation(t *testing.T) {
	token, err := NewJWTManager("old", "vidassist").GenerateToken("owner-1", "", "", time.Minute)
	require.NoError(t, err)

	rotated := NewJWTManager("new", "vidassist", WithPreviousSecrets("", "old"))
	claims, err := rotated.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", claims.OwnerID())

	_, err = NewJWTManager("new", "vidassist").ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_Audience(t *testing.T) {
	m := NewJWTManager("secret", "vidassist", WithAudience("vidassist-web"))
	token, err := m.GenerateToken("owner-1", "", "", time.Minute)
	require.NoError(t, err)

	_, err = m.ParseToken(token)
	require.NoError(t, err)

	_, err = NewJWTManager("secret", "vidassist", WithAudience("admin")).ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_Leeway(t *testing.T) {
	token, err := NewJWTManager("secret", "").GenerateToken("owner-1", "", "", -2*time.Second)
	require.NoError(t, err)

	_, err = NewJWTManager("secret", "").ParseToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = NewJWTManager("secret", "", WithLeeway(time.Minute)).ParseToken(token)
	assert.NoError(t, err)
}
