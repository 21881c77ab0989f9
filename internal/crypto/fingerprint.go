package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"hubspace/internal/domain"
)

// Fingerprint returns a short hex fingerprint of a username.
//
// Usernames are e-mail addresses, so they are trimmed and lower-cased before
// hashing with SHA-256. The digest is truncated to 10 bytes (20 hex chars).
func Fingerprint(username domain.Username) domain.Fingerprint {
	norm := strings.ToLower(strings.TrimSpace(username.String()))
	sum := sha256.Sum256([]byte(norm))
	return domain.Fingerprint(hex.EncodeToString(sum[:10]))
}
