package util

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"os"
	"sync"

	"golang.org/x/crypto/argon2"
)

var (
	jwtSecretValue = getEnv("JWTSECRET", "")
	jwtSecret      = jwtSecretValue
	jwtSecretByte  = []byte(jwtSecretValue)
	jwtMutex       sync.RWMutex
)

// Argon2id parameters. Changing these invalidates stored hashes, so hashes
// carry the "argon2id$" prefix to allow a future parameter upgrade path.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

func getEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	return value
}

// GenerateSalt returns a new random hex-encoded salt for password hashing.
func GenerateSalt() (string, error) {
	buf := make([]byte, saltLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashPasswordArgon2 hashes a plaintext password with Argon2id using the
// provided hex-encoded salt.
func HashPasswordArgon2(password, salt string) (string, error) {
	saltByte, err := hex.DecodeString(salt)
	if err != nil {
		return "", fmt.Errorf("invalid salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), saltByte, argonTime, argonMemory, argonThreads, argonKeyLen)
	return "argon2id$" + hex.EncodeToString(key), nil
}

// VerifyPassword reports whether the plaintext password matches the stored
// hash for the given salt. Comparison is constant-time.
func VerifyPassword(password, hashed, salt string) (bool, error) {
	computed, err := HashPasswordArgon2(password, salt)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hashed)) == 1, nil
}

// SetJWTSecret allows tests or runtime code to update the JWT secret used
// for token signing. This function is thread-safe and can be called
// concurrently. Tests using this should avoid parallel execution if they
// need deterministic secret values.
func SetJWTSecret(secret string) {
	jwtMutex.Lock()
	defer jwtMutex.Unlock()
	jwtSecret = secret
	jwtSecretByte = []byte(secret)
}

// GetJWTSecretByte returns a copy of the current JWT secret bytes in a thread-safe manner.
func GetJWTSecretByte() []byte {
	jwtMutex.RLock()
	defer jwtMutex.RUnlock()
	return append([]byte(nil), jwtSecretByte...)
}
