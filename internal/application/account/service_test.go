package account

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"ebook-studio-api/internal/config"
	"ebook-studio-api/internal/domain/entity"
	"ebook-studio-api/internal/infrastructure/persistence/redis"
	apperrors "ebook-studio-api/pkg/errors"
	"ebook-studio-api/pkg/utils"
)

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	client := redis.NewClientFromRedis(rdb)

	cfg := &config.AuthConfig{
		RootAccount: "admin-automation@ebook.com",
		SessionTTL:  time.Hour,
		BcryptCost:  bcrypt.MinCost,
		SeedUsers: []config.SeedUser{
			{Email: "admin-automation@ebook.com", Name: "Admin", Password: "password123", Role: "admin"},
			{Email: "user-automation@ebook.com", Name: "User", Password: "password123", Role: "user"},
		},
	}
	svc := NewService(redis.NewUserStore(client), redis.NewSessionStore(client), utils.NewJWTManager("secret", "ebook-studio"), cfg)
	require.NoError(t, svc.SeedUsers(context.Background()))
	return svc, mr
}

func TestSeedUsersIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.SeedUsers(ctx))

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestLoginLogout(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, "admin-automation@ebook.com", "wrong")
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
	_, err = svc.Login(ctx, "ghost@ebook.com", "password123")
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))

	session, err := svc.Login(ctx, "Admin-Automation@ebook.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, entity.UserRoleAdmin, session.User.Role)

	current, err := svc.CurrentSession(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, current.ID)

	require.NoError(t, svc.Logout(ctx, session.Token))
	_, err = svc.CurrentSession(ctx, session.Token)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))

	_, err = svc.CurrentSession(ctx, "garbage")
	assert.Equal(t, apperrors.CodeTokenInvalid, apperrors.CodeOf(err))
	_, err = svc.CurrentSession(ctx, "")
	assert.Equal(t, apperrors.CodeTokenMissing, apperrors.CodeOf(err))
}

func TestSessionExpiresWithRedisKey(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	session, err := svc.Login(ctx, "user-automation@ebook.com", "password123")
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)
	_, err = svc.CurrentSession(ctx, session.Token)
	assert.Error(t, err)
}

func TestAddUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	summary, err := svc.AddUser(ctx, AddUserInput{Email: "new@ebook.com", Name: "New", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, entity.UserRoleUser, summary.Role)

	_, err = svc.AddUser(ctx, AddUserInput{Email: "NEW@ebook.com", Password: "secret1"})
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))

	_, err = svc.AddUser(ctx, AddUserInput{Email: "not-an-email", Password: "secret1"})
	assert.Equal(t, apperrors.CodeValidationFailed, apperrors.CodeOf(err))
	_, err = svc.AddUser(ctx, AddUserInput{Email: "short@ebook.com", Password: "123"})
	assert.Equal(t, apperrors.CodeValidationFailed, apperrors.CodeOf(err))
	_, err = svc.AddUser(ctx, AddUserInput{Email: "role@ebook.com", Password: "secret1", Role: "owner"})
	assert.Equal(t, apperrors.CodeValidationFailed, apperrors.CodeOf(err))

	session, err := svc.Login(ctx, "new@ebook.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "new@ebook.com", session.User.Email)
}

func TestDeleteUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := svc.DeleteUser(ctx, "admin-automation@ebook.com")
	assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))

	require.NoError(t, svc.DeleteUser(ctx, "user-automation@ebook.com"))
	err = svc.DeleteUser(ctx, "user-automation@ebook.com")
	assert.Equal(t, apperrors.CodeUserNotFound, apperrors.CodeOf(err))

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "admin-automation@ebook.com", users[0].Email)
}
