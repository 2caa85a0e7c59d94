package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/codecrafthub/user-service/internal/core/port"
)

// DefaultBcryptCost is the work factor applied when none is configured.
const DefaultBcryptCost = 12

// BcryptHasher hashes passwords with bcrypt. The salt is generated per hash
// and embedded in the encoded output.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher builds a hasher with the given cost, clamped to the range
// bcrypt accepts.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns the bcrypt encoding of the password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}

	encoded, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	return string(encoded), nil
}

// Verify reports whether the password matches the stored encoding. A mismatch
// is not an error; only malformed encodings produce one.
func (h *BcryptHasher) Verify(password string, encoded string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("verify password: %w", err)
}

// Cost reports the configured work factor.
func (h *BcryptHasher) Cost() int {
	return h.cost
}

var _ port.PasswordHasher = (*BcryptHasher)(nil)
