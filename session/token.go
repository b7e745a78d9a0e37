package session

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

const tokenSuffixBytes = 16

// newSessionID returns an opaque, cryptographically random session token.
// A UUIDv4 alone carries 122 random bits; the hex suffix widens that so the
// token is never guessable even under a weakened UUID source. Collisions are
// accepted as negligible, so no uniqueness check is performed on write.
func newSessionID() (string, error) {
	var suffix [tokenSuffixBytes]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		return "", err
	}
	return uuid.NewString() + "-" + hex.EncodeToString(suffix[:]), nil
}
