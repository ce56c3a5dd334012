package auth

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexivault/vocab-web-app/api-service/internal/config"
	"github.com/lexivault/vocab-web-app/api-service/internal/models"
	"github.com/lexivault/vocab-web-app/api-service/internal/repository"
	"github.com/lexivault/vocab-web-app/api-service/internal/session"
)

func newTestService(t *testing.T) (UserService, *session.MemoryStore) {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{}
	cfg.Session.Window = 24 * time.Hour

	sessions := session.NewMemoryStore(cfg.Session.Window, log)
	users := repository.NewMemoryUserRepository()

	return NewUserService(cfg, users, sessions, log), sessions
}

func TestRegisterUser_EstablishesSession(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()

	resp, err := svc.RegisterUser(ctx, &models.RegistrationRequest{
		Username: "alice",
		Password: "correct-horse",
	}, "test-agent", "127.0.0.1")
	require.NoError(t, err)
	require.NotNil(t, resp.User)

	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice", resp.User.Username)
	assert.False(t, resp.User.IsAdmin)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), resp.ExpiresAt, time.Minute)

	sess, err := sessions.GetSession(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.UserID, sess.UserID)
}

func TestRegisterUser_RejectsDuplicateUsername(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RegisterUser(ctx, &models.RegistrationRequest{
		Username: "alice",
		Password: "correct-horse",
	}, "", "")
	require.NoError(t, err)

	_, err = svc.RegisterUser(ctx, &models.RegistrationRequest{
		Username: "alice",
		Password: "another-password",
	}, "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already")
}

func TestRegisterUser_ValidatesInput(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.RegisterUser(context.Background(), &models.RegistrationRequest{
		Username: "al",
		Password: "short",
	}, "", "")
	require.Error(t, err)

	var validationErrs models.ValidationErrors
	require.True(t, errors.As(err, &validationErrs))
	assert.Len(t, validationErrs, 2)
}

func TestLoginUser_WrongPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RegisterUser(ctx, &models.RegistrationRequest{
		Username: "alice",
		Password: "correct-horse",
	}, "", "")
	require.NoError(t, err)

	_, err = svc.LoginUser(ctx, &models.LoginRequest{
		Username: "alice",
		Password: "wrong-horse",
	}, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUser_UnknownUserLooksLikeWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.LoginUser(context.Background(), &models.LoginRequest{
		Username: "nobody",
		Password: "whatever-123",
	}, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUser_MintsFreshToken(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()

	registered, err := svc.RegisterUser(ctx, &models.RegistrationRequest{
		Username: "alice",
		Password: "correct-horse",
	}, "", "")
	require.NoError(t, err)

	loggedIn, err := svc.LoginUser(ctx, &models.LoginRequest{
		Username: "alice",
		Password: "correct-horse",
	}, "", "")
	require.NoError(t, err)

	assert.NotEqual(t, registered.Token, loggedIn.Token)

	count, err := sessions.GetUserSessionCount(ctx, registered.User.UserID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestLogoutUser_DeletesSession(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()

	resp, err := svc.RegisterUser(ctx, &models.RegistrationRequest{
		Username: "alice",
		Password: "correct-horse",
	}, "", "")
	require.NoError(t, err)

	_, err = svc.LogoutUser(ctx, resp.Token)
	require.NoError(t, err)

	_, err = sessions.GetSession(ctx, resp.Token)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestLogoutEverywhere_DeletesAllSessions(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()

	registered, err := svc.RegisterUser(ctx, &models.RegistrationRequest{
		Username: "alice",
		Password: "correct-horse",
	}, "", "")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, loginErr := svc.LoginUser(ctx, &models.LoginRequest{
			Username: "alice",
			Password: "correct-horse",
		}, "", "")
		require.NoError(t, loginErr)
	}

	_, err = svc.LogoutEverywhere(ctx, registered.User.UserID)
	require.NoError(t, err)

	count, err := sessions.GetUserSessionCount(ctx, registered.User.UserID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
