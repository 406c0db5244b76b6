package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf16"

	"golang.org/x/crypto/scrypt"
)

// MinPasswordLength is the minimum length of a new password, counted in
// UTF-16 code units like the earlier dashboard did.
const MinPasswordLength = 8

// scrypt parameters. They match Node's crypto.scryptSync defaults so secrets
// written by the earlier dashboard keep verifying.
const (
	secretTag = "scrypt"
	saltBytes = 16
	keyLen    = 64
	scryptN   = 16384
	scryptR   = 8
	scryptP   = 1
)

// dummySecret is verified against when no real secret exists, so a missing
// or inactive user costs one full derivation like a wrong password does.
var dummySecret = secretTag + ":" + strings.Repeat("0", saltBytes*2) + ":" + strings.Repeat("0", keyLen*2)

// HashPassword derives an encoded secret of the form
// "scrypt:<hex salt>:<hex key>" using a fresh random salt.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	saltHex := hex.EncodeToString(salt)

	key, err := derive(password, saltHex)
	if err != nil {
		return "", err
	}
	return secretTag + ":" + saltHex + ":" + hex.EncodeToString(key), nil
}

// VerifyPassword reports whether password matches the encoded secret. Unknown
// tags and malformed layouts never match.
func VerifyPassword(password, encoded string) bool {
	parts := strings.Split(encoded, ":")
	if len(parts) != 3 || parts[0] != secretTag {
		return false
	}
	saltHex, expected := parts[1], parts[2]

	key, err := derive(password, saltHex)
	if err != nil {
		return false
	}
	actual := hex.EncodeToString(key)
	if len(actual) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(actual), []byte(expected)) == 1
}

// derive runs scrypt with the hex salt string itself as the salt bytes.
func derive(password, saltHex string) ([]byte, error) {
	key, err := scrypt.Key([]byte(password), []byte(saltHex), scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

func validateNewPassword(field, password string) error {
	if len(utf16.Encode([]rune(password))) < MinPasswordLength {
		return invalid(field, "must be at least %d characters", MinPasswordLength)
	}
	return nil
}
