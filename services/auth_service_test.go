package services

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"group-chat/auth"
	apperrors "group-chat/errors"
	"group-chat/repositories"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := repositories.NewUserRepository(db)
	tokens := auth.NewTokenManager([]byte("test-secret"), time.Hour)
	return NewAuthService(users, tokens, slog.Default())
}

func Test_Signup_Returns_Usable_Token(t *testing.T) {
	req := require.New(t)
	service := newAuthService(t)

	token, user, err := service.Signup("alice", "alice@example.com", "open sesame")
	req.NoError(err)
	req.NotEmpty(token)
	req.NotEmpty(user.ID)
	req.Equal("alice", user.Username)

	tokens := auth.NewTokenManager([]byte("test-secret"), time.Hour)
	claims, err := tokens.Validate(token)
	req.NoError(err)
	req.Equal(user.ID, claims.UserID)
}

func Test_Signup_Duplicate_Email(t *testing.T) {
	req := require.New(t)
	service := newAuthService(t)

	_, _, err := service.Signup("alice", "alice@example.com", "open sesame")
	req.NoError(err)

	_, _, err = service.Signup("impostor", "alice@example.com", "other")
	req.ErrorIs(err, apperrors.ErrUserAlreadyExists)
}

func Test_Login_Success(t *testing.T) {
	req := require.New(t)
	service := newAuthService(t)

	_, created, err := service.Signup("alice", "alice@example.com", "open sesame")
	req.NoError(err)

	token, user, err := service.Login("alice@example.com", "open sesame")
	req.NoError(err)
	req.NotEmpty(token)
	req.Equal(created.ID, user.ID)
}

func Test_Login_Wrong_Password(t *testing.T) {
	req := require.New(t)
	service := newAuthService(t)

	_, _, err := service.Signup("alice", "alice@example.com", "open sesame")
	req.NoError(err)

	_, _, err = service.Login("alice@example.com", "wrong")
	req.ErrorIs(err, apperrors.ErrInvalidCredentials)
}

func Test_Login_Unknown_Email_Looks_Like_Wrong_Password(t *testing.T) {
	req := require.New(t)
	service := newAuthService(t)

	_, _, err := service.Login("ghost@example.com", "anything")
	req.ErrorIs(err, apperrors.ErrInvalidCredentials)
}
