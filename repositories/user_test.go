package repositories

import (
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "group-chat/errors"
)

func Test_CreateUser_And_Get(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db)

	created, err := repository.CreateUser("alice", "alice@example.com", "hash")
	req.NoError(err)
	req.NotEmpty(created.ID)

	fetched, err := repository.GetUserByEmail("alice@example.com")
	req.NoError(err)
	req.Equal(created.ID, fetched.ID)
	req.Equal("alice", fetched.Username)
	req.Equal("hash", fetched.PasswordHash)
}

func Test_CreateUser_Duplicate_Email(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db)

	_, err := repository.CreateUser("alice", "alice@example.com", "hash")
	req.NoError(err)

	_, err = repository.CreateUser("impostor", "alice@example.com", "other")
	req.ErrorIs(err, apperrors.ErrUserAlreadyExists)
}

func Test_GetUserByEmail_Unknown(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db)

	_, err := repository.GetUserByEmail("ghost@example.com")
	req.ErrorIs(err, apperrors.ErrNotFound)
}
