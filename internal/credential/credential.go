// Package credential decides how account passwords are stored and compared.
package credential

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher turns a submitted password into its stored form and checks a
// submitted password against a stored value.
type Hasher interface {
	Hash(password string) (string, error)
	Matches(stored, password string) bool
}

// New returns the Hasher for the configured mode ("plain" or "bcrypt").
func New(mode string) (Hasher, error) {
	switch mode {
	case "", "plain":
		return Plain{}, nil
	case "bcrypt":
		return Bcrypt{Cost: bcrypt.DefaultCost}, nil
	default:
		return nil, fmt.Errorf("unknown password mode %q", mode)
	}
}

// Plain stores passwords as given and compares them byte for byte.
type Plain struct{}

func (Plain) Hash(password string) (string, error) { return password, nil }

func (Plain) Matches(stored, password string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

// Bcrypt stores salted bcrypt hashes.
type Bcrypt struct {
	Cost int
}

func (b Bcrypt) Hash(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (Bcrypt) Matches(stored, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}
