package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.True(t, strings.HasPrefix(hash, "$2"))

	assert.True(t, h.Verify("secret1", hash))
	assert.False(t, h.Verify("secret2", hash))
}

func TestVerify_NuncaFallaConEntradasRaras(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	assert.False(t, h.Verify("x", ""))
	assert.False(t, h.Verify("x", "no-es-un-hash"))

	sentinel, err := NewOAuthSentinel()
	require.NoError(t, err)
	assert.False(t, h.Verify(sentinel, sentinel))
	assert.False(t, h.Verify("", sentinel))
}

func TestOAuthSentinel(t *testing.T) {
	a, err := NewOAuthSentinel()
	require.NoError(t, err)
	b, err := NewOAuthSentinel()
	require.NoError(t, err)

	assert.True(t, IsOAuthSentinel(a))
	assert.NotEqual(t, a, b)

	hash, err := NewBcryptHasher(bcrypt.MinCost).Hash("secret1")
	require.NoError(t, err)
	assert.False(t, IsOAuthSentinel(hash))
}

func TestNewBcryptHasher_CostePorDefecto(t *testing.T) {
	assert.Equal(t, DefaultCost, NewBcryptHasher(0).cost)
	assert.Equal(t, bcrypt.MinCost, NewBcryptHasher(bcrypt.MinCost).cost)
}
