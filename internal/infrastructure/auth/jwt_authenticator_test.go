package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidassist-api/internal/application/errclass"
	redisstore "vidassist-api/internal/infrastructure/persistence/redis"
	apperrors "vidassist-api/pkg/errors"
	"vidassist-api/pkg/utils"
)

func setup(t *testing.T) (*JWTAuthenticator, *utils.JWTManager, *redisstore.TokenRevocations, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisstore.NewClientFromRedis(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	revocations := redisstore.NewTokenRevocations(client)
	jwt := utils.NewJWTManager("secret", "vidassist")
	return NewJWTAuthenticator(jwt, revocations), jwt, revocations, mr
}

func TestCurrentUser_Valid(t *testing.T) {
	a, jwt, _, _ := setup(t)
	token, err := jwt.GenerateToken("U1", "u1@example.com", "pro", time.Minute)
	require.NoError(t, err)

	id, err := a.CurrentUser(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "U1", id.OwnerID)
	assert.Equal(t, "pro", id.Plan)
}

func TestCurrentUser_InvalidOrRevoked(t *testing.T) {
	a, jwt, revocations, _ := setup(t)
	ctx := context.Background()

	_, err := a.CurrentUser(ctx, "not-a-token")
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))

	_, err = a.CurrentUser(ctx, "")
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))

	token, err := jwt.GenerateToken("U1", "", "", time.Minute)
	require.NoError(t, err)
	claims, err := jwt.ParseToken(token)
	require.NoError(t, err)
	require.NoError(t, revocations.Revoke(ctx, claims.ID, time.Minute))

	_, err = a.CurrentUser(ctx, token)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))
}

func TestCurrentUser_RevocationStoreDown(t *testing.T) {
	a, jwt, _, mr := setup(t)
	token, err := jwt.GenerateToken("U1", "", "", time.Minute)
	require.NoError(t, err)

	mr.Close()
	_, err = a.CurrentUser(context.Background(), token)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthTransient))

	classified := errclass.Classify(err)
	assert.Equal(t, http.StatusServiceUnavailable, classified.HTTPStatus)
	assert.Equal(t, errclass.MsgAuthUnavailable, classified.UserMessage)
}
