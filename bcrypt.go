package auth

import (
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPasswordCost is the minimum bcrypt cost accepted for stored hashes.
const DefaultPasswordCost = 10

// BcryptHasher implements PasswordAuthenticator with a fixed cost.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher. Costs below DefaultPasswordCost are raised.
func NewBcryptHasher(cost int) BcryptHasher {
	if cost < DefaultPasswordCost {
		cost = DefaultPasswordCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return BcryptHasher{cost: cost}
}

// Cost returns the configured work factor.
func (b BcryptHasher) Cost() int {
	if b.cost == 0 {
		return DefaultPasswordCost
	}
	return b.cost
}

// HashPassword will generate a password hash
func (b BcryptHasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), b.Cost())
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func (b BcryptHasher) ComparePasswordAndHash(password, hash string) error {
	return ComparePasswordAndHash(password, hash)
}

// HashPassword hashes with DefaultPasswordCost.
func HashPassword(password string) (string, error) {
	return NewBcryptHasher(DefaultPasswordCost).HashPassword(password)
}

// ComparePasswordAndHash returns ErrInvalidCredentials on mismatch and the
// bcrypt error for malformed hashes.
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return withReason(ErrInvalidCredentials, "password_mismatch")
		}
		return err
	}
	return nil
}

// RandomPasswordHash is a hash no password will ever match
func RandomPasswordHash() string {
	h, err := HashPassword(uuid.NewString())
	if err != nil {
		return RandomPasswordHash()
	}
	return h
}
