package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// PasswordVerifier checks client password digests against stored bcrypt
// hashes. A successful check is remembered per user id so repeated logins
// skip the bcrypt cost. Only a SHA-256 fingerprint of the verified digest
// is retained, never the digest itself.
type PasswordVerifier struct {
	mu    sync.RWMutex
	cache map[int32][sha256.Size]byte
}

// NewPasswordVerifier creates an empty verifier.
func NewPasswordVerifier() *PasswordVerifier {
	return &PasswordVerifier{cache: make(map[int32][sha256.Size]byte)}
}

// Verify reports whether passwordMD5 matches the stored bcrypt hash for the
// given user. A cached fingerprint short-circuits the bcrypt comparison.
func (v *PasswordVerifier) Verify(userID int32, passwordMD5, bcryptHash string) (bool, error) {
	fp := sha256.Sum256([]byte(passwordMD5))

	v.mu.RLock()
	cached, ok := v.cache[userID]
	v.mu.RUnlock()
	if ok && cached == fp {
		return true, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(bcryptHash), []byte(passwordMD5))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("comparing password for user %d: %w", userID, err)
	}

	v.mu.Lock()
	v.cache[userID] = fp
	v.mu.Unlock()
	return true, nil
}

// Invalidate drops the cached fingerprint for a user, forcing the next
// Verify through bcrypt. Called when the user changes their password.
func (v *PasswordVerifier) Invalidate(userID int32) {
	v.mu.Lock()
	delete(v.cache, userID)
	v.mu.Unlock()
}
