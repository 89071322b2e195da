package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_Generate_And_Validate(t *testing.T) {
	req := require.New(t)
	tokens := NewTokenManager([]byte("test-secret"), time.Hour)

	token, err := tokens.Generate("user-1", "alice")
	req.NoError(err)
	req.NotEmpty(token)

	claims, err := tokens.Validate(token)
	req.NoError(err)
	req.Equal("user-1", claims.UserID)
	req.Equal("alice", claims.Username)
	req.Equal("group-chat", claims.Issuer)
}

func Test_Validate_Wrong_Secret(t *testing.T) {
	req := require.New(t)
	tokens := NewTokenManager([]byte("test-secret"), time.Hour)
	others := NewTokenManager([]byte("other-secret"), time.Hour)

	token, err := tokens.Generate("user-1", "alice")
	req.NoError(err)

	_, err = others.Validate(token)
	req.Error(err)
}

func Test_Validate_Expired_Token(t *testing.T) {
	req := require.New(t)
	tokens := NewTokenManager([]byte("test-secret"), -time.Minute)

	token, err := tokens.Generate("user-1", "alice")
	req.NoError(err)

	_, err = tokens.Validate(token)
	req.Error(err)
}

func Test_Validate_Garbage(t *testing.T) {
	req := require.New(t)
	tokens := NewTokenManager([]byte("test-secret"), time.Hour)

	_, err := tokens.Validate("not.a.token")
	req.Error(err)
}
