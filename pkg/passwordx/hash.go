package passwordx

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used for all new hashes.
const DefaultCost = 12

const (
	saltedScheme = "sha256"
	saltLength   = 16
)

// Kind identifies which of the three stored hash formats a record carries.
type Kind int

const (
	// KindBcrypt is the preferred adaptive format ($2a$/$2b$/$2y$ prefix).
	KindBcrypt Kind = iota
	// KindSaltedSHA256 is the "sha256$<salt>$<digest>" fallback format.
	KindSaltedSHA256
	// KindLegacySHA256 is a bare unsalted digest from before the hashing
	// upgrade. Accepted on verify only; never produced for new hashes.
	KindLegacySHA256
)

// Hash is a stored password hash parsed into its format components.
// Parsing happens once at load time so Verify never re-inspects prefixes.
type Hash struct {
	Kind Kind

	encoded string // full encoded form, needed for bcrypt comparison
	salt    []byte // salted fallback only
	digest  []byte // salted and legacy formats
}

// ParseHash classifies an encoded hash string. Anything that is neither a
// bcrypt hash nor a well-formed salted record is treated as a legacy unsalted
// digest; a malformed legacy digest simply never verifies.
func ParseHash(encoded string) Hash {
	if strings.HasPrefix(encoded, "$2") {
		return Hash{Kind: KindBcrypt, encoded: encoded}
	}

	if rest, ok := strings.CutPrefix(encoded, saltedScheme+"$"); ok {
		if salt, digest, ok := strings.Cut(rest, "$"); ok {
			saltBytes, errSalt := hex.DecodeString(salt)
			digestBytes, errDigest := hex.DecodeString(digest)
			if errSalt == nil && errDigest == nil {
				return Hash{
					Kind:    KindSaltedSHA256,
					encoded: encoded,
					salt:    saltBytes,
					digest:  digestBytes,
				}
			}
		}
		// Carries the scheme tag but is structurally broken: fall through to
		// the legacy path, where the hex decode below will fail it closed.
	}

	digest, err := hex.DecodeString(encoded)
	if err != nil {
		digest = nil
	}
	return Hash{Kind: KindLegacySHA256, encoded: encoded, digest: digest}
}

// Verify reports whether password matches the stored hash. It never returns
// an error: malformed stored material compares as a mismatch.
func (h Hash) Verify(password string) bool {
	switch h.Kind {
	case KindBcrypt:
		return bcrypt.CompareHashAndPassword([]byte(h.encoded), []byte(password)) == nil

	case KindSaltedSHA256:
		if len(h.digest) == 0 {
			return false
		}
		sum := sha256.Sum256(append(append([]byte{}, h.salt...), password...))
		return subtle.ConstantTimeCompare(sum[:], h.digest) == 1

	default:
		if len(h.digest) == 0 {
			return false
		}
		sum := sha256.Sum256([]byte(password))
		return subtle.ConstantTimeCompare(sum[:], h.digest) == 1
	}
}

// Hasher produces and verifies password hashes.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher at the default cost.
func NewHasher() *Hasher {
	return &Hasher{Cost: DefaultCost}
}

// Hash generates a new bcrypt hash for the given plaintext.
func (h *Hasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost < bcrypt.MinCost {
		cost = DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("passwordx: bcrypt hash failed: %w", err)
	}
	return string(hashed), nil
}

// HashSalted produces a hash in the salted fallback format
// "sha256$<salt_hex>$<digest_hex>". New hashes should use Hash; this exists
// for runtimes without bcrypt and for exercising the verify dispatch.
func HashSalted(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("passwordx: salt generation failed: %w", err)
	}
	sum := sha256.Sum256(append(append([]byte{}, salt...), password...))
	return fmt.Sprintf("%s$%s$%s",
		saltedScheme,
		hex.EncodeToString(salt),
		hex.EncodeToString(sum[:]),
	), nil
}

// Verify checks plaintext against a stored hash of any supported format.
func (h *Hasher) Verify(password, encoded string) bool {
	return ParseHash(encoded).Verify(password)
}

// Generate returns a random password suitable for bootstrap accounts and
// administrative resets.
func Generate() (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*"
	const length = 16
	password := make([]byte, length)
	for i := range password {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("passwordx: failed to generate random password: %w", err)
		}
		password[i] = charset[n.Int64()]
	}
	return string(password), nil
}
