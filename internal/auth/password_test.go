package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndCompare(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.True(t, hasher.Compare(hash, "hunter2"))
	assert.False(t, hasher.Compare(hash, "hunter3"))
}

func TestBcryptHasher_DummyHashNeverMatches(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	assert.False(t, hasher.Compare(DummyHash, "anything"))
	assert.False(t, hasher.Compare(DummyHash, ""))
}
