package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Hash_And_Compare(t *testing.T) {
	req := require.New(t)

	hash, err := HashPassword("correct horse battery staple")
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	ok, err := ComparePassword("correct horse battery staple", hash)
	req.NoError(err)
	req.True(ok)

	ok, err = ComparePassword("wrong password", hash)
	req.NoError(err)
	req.False(ok)
}

func Test_Hashes_Are_Salted(t *testing.T) {
	req := require.New(t)

	h1, err := HashPassword("same password")
	req.NoError(err)
	h2, err := HashPassword("same password")
	req.NoError(err)
	req.NotEqual(h1, h2)
}

func Test_Compare_Malformed_Hash(t *testing.T) {
	req := require.New(t)

	_, err := ComparePassword("anything", "not-an-encoded-hash")
	req.Error(err)
}
