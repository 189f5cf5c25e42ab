// Package credential verifies passwords against stored hashes of unknown
// encoding and produces new hashes.
//
// Three encodings coexist in the user table because the records were written
// at different points of the system's history. There is no stored type tag:
// the encoding is recognised by the shape of the stored value, in a fixed
// order. The order and the shape rules must not change, since they encode
// the actual migration history of the data.
package credential

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

// Kind tags the recognised encoding of a stored credential.
type Kind int

const (
	// Adaptive is a bcrypt hash, the current encoding. All new and changed
	// passwords are written in this form.
	Adaptive Kind = iota
	// LegacyDigest is an unsalted single-round SHA-256 digest, hex-encoded.
	LegacyDigest
	// PlainFallback is a plaintext value kept only for pre-migration rows.
	// Never produced for new credentials.
	PlainFallback
)

// bcryptShape matches the modular-crypt form: prefix class, two-digit cost,
// then 53 characters of salt+digest.
var bcryptShape = regexp.MustCompile(`^\$2[aby]\$\d{2}\$[./A-Za-z0-9]{53}$`)

var hexDigestShape = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// Classify reports the encoding of a stored credential. First match wins:
// adaptive shape, then 64-hex legacy digest, then plaintext fallback. A
// plaintext password that happens to be 64 hex characters is classified as
// a legacy digest; this ambiguity is accepted.
func Classify(stored string) Kind {
	switch {
	case bcryptShape.MatchString(stored):
		return Adaptive
	case hexDigestShape.MatchString(stored):
		return LegacyDigest
	default:
		return PlainFallback
	}
}

// Verify reports whether plain matches the stored credential. It never
// returns an error: malformed input simply does not match.
func Verify(plain, stored string) bool {
	switch Classify(stored) {
	case Adaptive:
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain)) == nil
	case LegacyDigest:
		sum := sha256.Sum256([]byte(plain))
		digest := hex.EncodeToString(sum[:])
		// stored may use either hex case
		return subtle.ConstantTimeCompare([]byte(digest), []byte(normalizeHex(stored))) == 1
	default:
		return subtle.ConstantTimeCompare([]byte(plain), []byte(stored)) == 1
	}
}

// Hash encodes a new password with the adaptive algorithm. This is the only
// encoder: legacy forms are accepted on verification indefinitely but never
// written.
func Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func normalizeHex(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'F' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
