// Package auth verifies credentials against the remote users collection and
// issues the signed session tokens the CLI keeps between runs.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword reports whether password matches hash. Besides bcrypt it
// accepts the unsalted SHA-256 hex digests found in older users collections.
func CheckPassword(hash, password string) bool {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return false
	}
	if isBcrypt(hash) {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}
	sum := sha256.Sum256([]byte(password))
	want := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(hash)), []byte(want)) == 1
}

// IsLegacyHash reports whether hash predates bcrypt.
func IsLegacyHash(hash string) bool {
	return !isBcrypt(strings.TrimSpace(hash))
}

func isBcrypt(hash string) bool {
	_, err := bcrypt.Cost([]byte(hash))
	return err == nil
}
