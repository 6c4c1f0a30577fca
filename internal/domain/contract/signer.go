package contract

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/sha3"
)

// HashContent derives the contract content hash from the loan terms.
func HashContent(loanID string, principal decimal.Decimal, startDate, dueDate time.Time) []byte {
	input := fmt.Sprintf("%s:%s:%s:%s",
		strings.TrimSpace(loanID),
		principal.StringFixed(2),
		startDate.UTC().Format(time.RFC3339),
		dueDate.UTC().Format(time.RFC3339),
	)
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(input))
	return h.Sum(nil)
}

// RegenerateHash re-issues the content hash after a cryptographic
// counter-signature is applied.
func RegenerateHash(contentHash, signature []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(contentHash)
	_, _ = h.Write(signature)
	return h.Sum(nil)
}

// Signer produces the certificate-backed counter-signature over a contract
// content hash.
type Signer interface {
	Sign(contentHash []byte) ([]byte, error)
}

type Ed25519Signer struct {
	key ed25519.PrivateKey
}

// NewEd25519SignerFromHex builds a signer from a hex-encoded 32-byte seed.
// An empty seed yields a nil signer, which the service reports as
// ErrCryptoUnavailable.
func NewEd25519SignerFromHex(seedHex string) (*Ed25519Signer, error) {
	seedHex = strings.TrimSpace(seedHex)
	if seedHex == "" {
		return nil, nil
	}
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("decode signing key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("signing key must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &Ed25519Signer{key: ed25519.NewKeyFromSeed(seed)}, nil
}

func (s *Ed25519Signer) Sign(contentHash []byte) ([]byte, error) {
	return ed25519.Sign(s.key, contentHash), nil
}

func (s *Ed25519Signer) PublicKey() ed25519.PublicKey {
	return s.key.Public().(ed25519.PublicKey)
}
