package crypt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
	"uk.co.dudmesh.aura/internal/model"
)

func TestHashers(t *testing.T) {
	assert := assert.New(t)

	t.Run("Plain", func(t *testing.T) {
		hasher, err := NewHasher(HasherPlain)
		assert.Nil(err)
		stored, err := hasher.Hash("password123")
		assert.Nil(err)
		assert.Equal("password123", stored)
		assert.True(hasher.Verify(stored, "password123"))
		assert.False(hasher.Verify(stored, "Password123"))
	})

	t.Run("Bcrypt", func(t *testing.T) {
		hasher := Bcrypt{Cost: bcrypt.MinCost}
		stored, err := hasher.Hash("password123")
		assert.Nil(err)
		assert.NotEqual("password123", stored)
		assert.True(hasher.Verify(stored, "password123"))
		assert.False(hasher.Verify(stored, "password124"))
		assert.False(hasher.Verify("not base64 !", "password123"))

		_, err = hasher.Hash(strings.Repeat("a", MaxBcryptPassword+1))
		assert.Equal(model.ErrorPasswordTooLong, err)
		stored, err = hasher.Hash(strings.Repeat("a", MaxBcryptPassword))
		assert.Nil(err)
		assert.True(hasher.Verify(stored, strings.Repeat("a", MaxBcryptPassword)))
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := NewHasher("md5")
		assert.NotNil(err)
	})
}
