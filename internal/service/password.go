package service

import (
	"errors"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters long")
	ErrPasswordUpper    = errors.New("password must contain at least one uppercase letter")
	ErrPasswordLower    = errors.New("password must contain at least one lowercase letter")
	ErrPasswordDigit    = errors.New("password must contain at least one number")
)

const minPasswordLength = 8

// BcryptHasher hashes passwords with bcrypt.
type BcryptHasher struct {
	Cost int
}

var _ PasswordHasher = BcryptHasher{}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (BcryptHasher) Compare(hash, password string) bool {
	if hash == "" || password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePasswordStrength checks length and character classes.
func ValidatePasswordStrength(password string) error {
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case !upper:
		return ErrPasswordUpper
	case !lower:
		return ErrPasswordLower
	case !digit:
		return ErrPasswordDigit
	}
	return nil
}
