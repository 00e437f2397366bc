package password

import (
	"crypto/rand"
	"errors"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the default bcrypt cost
	DefaultCost = 12

	// TemporaryLength is the length of generated temporary passwords
	TemporaryLength = 16
)

// Hash hashes a password using bcrypt
func Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify compares a password with a hash
func Verify(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// ValidatePassword checks if password meets requirements
func ValidatePassword(password string) error {
	// Minimum 8 characters
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

const temporaryCharset = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789!@#$%"

// GenerateTemporary generates a strong random password for passwordless
// (admin-referral) registrations. The plain value is delivered to the user
// by email only and never returned in an API response.
func GenerateTemporary() (string, error) {
	max := big.NewInt(int64(len(temporaryCharset)))
	buf := make([]byte, TemporaryLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = temporaryCharset[n.Int64()]
	}
	return string(buf), nil
}
