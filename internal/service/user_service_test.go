package service

import (
	"context"
	"testing"
	"time"

	"stockroom/internal/model"
	"stockroom/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCreateUserAndLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo)

	created, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "s3cret99",
		Role:     model.RoleStaff,
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", created.Username)
	assert.Equal(t, model.RoleStaff, created.Role)

	// Password must be stored hashed.
	stored, err := repo.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret99", stored.Password)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("s3cret99")))

	tokens, err := svc.Login(context.Background(), LoginUserRequest{Email: "alice@example.com", Password: "s3cret99"})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.Token)
	assert.NotEmpty(t, tokens.RefreshToken)

	_, err = svc.Login(context.Background(), LoginUserRequest{Email: "alice@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestCreateUserValidation(t *testing.T) {
	repo := newFakeUserRepo()
	repo.add(model.User{Username: "alice", Email: "alice@example.com", Role: model.RoleStaff})
	svc := NewUserService(repo)

	cases := []struct {
		name string
		req  CreateUserRequest
	}{
		{"bad role", CreateUserRequest{Username: "bob", Email: "bob@example.com", Password: "pw123456", Role: "root"}},
		{"bad email", CreateUserRequest{Username: "bob", Email: "not-an-email", Password: "pw123456", Role: model.RoleStaff}},
		{"duplicate username", CreateUserRequest{Username: "alice", Email: "other@example.com", Password: "pw123456", Role: model.RoleStaff}},
		{"duplicate email", CreateUserRequest{Username: "bob", Email: "alice@example.com", Password: "pw123456", Role: model.RoleStaff}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateUser(context.Background(), tc.req)
			require.Error(t, err)
			assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
		})
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo)

	_, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Username: "alice", Email: "alice@example.com", Password: "s3cret99", Role: model.RoleStaff,
	})
	require.NoError(t, err)

	tokens, err := svc.Login(context.Background(), LoginUserRequest{Email: "alice@example.com", Password: "s3cret99"})
	require.NoError(t, err)

	rotated, err := svc.Refresh(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	// The old token is single-use.
	_, err = svc.Refresh(context.Background(), tokens.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestRefreshRejectsExpiredToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo)

	user := repo.add(model.User{Username: "alice", Email: "alice@example.com", Role: model.RoleStaff})
	require.NoError(t, repo.SaveRefreshToken(context.Background(), &model.RefreshToken{
		UserID:    user.ID,
		Token:     "stale",
		ExpiresAt: time.Now().Add(-time.Hour),
	}))

	_, err := svc.Refresh(context.Background(), "stale")
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	// Expired tokens are purged on use.
	_, err = repo.GetRefreshToken(context.Background(), "stale")
	require.Error(t, err)
}

func TestLogoutDeletesRefreshToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo)

	_, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Username: "alice", Email: "alice@example.com", Password: "s3cret99", Role: model.RoleStaff,
	})
	require.NoError(t, err)

	tokens, err := svc.Login(context.Background(), LoginUserRequest{Email: "alice@example.com", Password: "s3cret99"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), tokens.RefreshToken))

	_, err = svc.Refresh(context.Background(), tokens.RefreshToken)
	require.Error(t, err)
}
