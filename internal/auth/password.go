package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	minimumPasswordLength = 8
	maximumPasswordLength = 72

	errorMessageHashPassword = "auth: hash password"
)

var (
	// ErrPasswordTooShort indicates the password has fewer than eight characters.
	ErrPasswordTooShort = errors.New("auth: password too short")
	// ErrPasswordTooLong indicates the password exceeds what bcrypt accepts.
	ErrPasswordTooLong = errors.New("auth: password too long")
	// ErrPasswordMismatch indicates the password does not match the stored hash.
	ErrPasswordMismatch = errors.New("auth: password mismatch")
)

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if len(password) < minimumPasswordLength {
		return "", ErrPasswordTooShort
	}
	if len(password) > maximumPasswordLength {
		return "", ErrPasswordTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errorMessageHashPassword, err)
	}
	return string(hashed), nil
}

// CheckPassword compares password with hash. A malformed or empty hash never matches.
func CheckPassword(hash string, password string) error {
	if hash == "" {
		return ErrPasswordMismatch
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordMismatch, err)
	}
	return nil
}
