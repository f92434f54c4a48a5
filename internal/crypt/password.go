package crypt

import (
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"uk.co.dudmesh.aura/internal/model"
)

const (
	HasherPlain  = "plain"
	HasherBcrypt = "bcrypt"
)

// Hasher turns a password into its stored form and checks candidates against
// it.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(stored, password string) bool
}

func NewHasher(name string) (Hasher, error) {
	switch name {
	case "", HasherPlain:
		return Plain{}, nil
	case HasherBcrypt:
		return Bcrypt{Cost: bcrypt.DefaultCost}, nil
	default:
		return nil, fmt.Errorf("unknown password hasher: %s", name)
	}
}

// Plain stores passwords as given and compares them exactly, case-sensitive.
type Plain struct{}

func (Plain) Hash(password string) (string, error) {
	return password, nil
}

func (Plain) Verify(stored, password string) bool {
	return stored == password
}

// MaxBcryptPassword is the longest password bcrypt hashes without truncation.
const MaxBcryptPassword = 72

type Bcrypt struct {
	Cost int
}

func (b Bcrypt) Hash(password string) (string, error) {
	if len(password) > MaxBcryptPassword {
		return "", model.ErrorPasswordTooLong
	}
	passwordBytes, err := bcrypt.GenerateFromPassword([]byte(password), b.Cost)
	if err != nil {
		return "", fmt.Errorf("generating encoded password: %w", err)
	}
	return base64.StdEncoding.EncodeToString(passwordBytes), nil
}

func (b Bcrypt) Verify(stored, password string) bool {
	hash, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
