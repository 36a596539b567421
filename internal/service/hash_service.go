package service

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// BcryptHashService implements ports.HashService using bcrypt.
type BcryptHashService struct {
	cost int
}

// NewBcryptHashService creates a hash service with the default bcrypt cost.
func NewBcryptHashService() *BcryptHashService {
	return &BcryptHashService{cost: bcrypt.DefaultCost}
}

// Hash generates a bcrypt hash of the password.
func (s *BcryptHashService) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(digest), nil
}

// Verify checks whether password matches the stored hash. A mismatch is a
// clean (false, nil); anything else means the hash itself is unusable.
func (s *BcryptHashService) Verify(password string, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("verifying password: %w", err)
}
