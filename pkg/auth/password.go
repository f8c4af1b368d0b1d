package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultHashCost matches the adaptive cost factor the platform has always
// used for stored credentials.
const DefaultHashCost = 10

// Hasher hashes and verifies user secrets with bcrypt
type Hasher struct {
	cost int
}

// NewHasher creates a hasher with the given bcrypt cost.
// Costs outside bcrypt's supported range fall back to DefaultHashCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultHashCost
	}
	return &Hasher{cost: cost}
}

// Hash derives a salted one-way hash from a plaintext secret.
// The plaintext is never stored or logged.
func (h *Hasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Compare checks a plaintext secret against a stored hash in constant time
func (h *Hasher) Compare(hashed, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}
