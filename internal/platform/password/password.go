// Package password wraps argon2id hashing so every password mutation in
// the codebase goes through the same salted, computationally expensive
// one-way function.
package password

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/alexedwards/argon2id"
)

// Hash derives a salted argon2id hash from the plaintext. A fresh salt is
// generated on every call, so re-hashing the same password yields a new hash.
func Hash(plain string) (string, error) {
	return argon2id.CreateHash(plain, argon2id.DefaultParams)
}

// Verify recomputes the hash with the stored salt and compares in constant
// time. A mismatch returns (false, nil), never an error.
func Verify(plain, hash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(plain, hash)
}

// Random returns an unguessable password for accounts created through
// federated login, where the user never chooses one.
func Random() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
