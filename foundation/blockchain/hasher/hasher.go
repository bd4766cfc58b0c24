// Package hasher provides the one-way digest used to identify blocks, build
// merkle roots and derive identity proof challenges.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/zeebo/blake3"
)

// Set of errors returned when a hasher is configured with unknown values.
var (
	ErrUnknownStrategy = errors.New("unknown hash strategy")
	ErrUnknownEncoding = errors.New("unknown field encoding")
)

// Strategy names the digest algorithm a Hasher uses.
type Strategy string

// Set of supported strategies. All of them produce 32 byte digests.
const (
	SHA256    Strategy = "sha256"
	Keccak256 Strategy = "keccak256"
	BLAKE3    Strategy = "blake3"
)

// DigestLength is the length of a hex encoded digest.
const DigestLength = 64

var strategies = map[Strategy]func() hash.Hash{
	SHA256:    sha256.New,
	Keccak256: func() hash.Hash { return crypto.NewKeccakState() },
	BLAKE3:    func() hash.Hash { return blake3.New() },
}

// =============================================================================

// Hasher wraps a digest algorithm. The zero value uses sha256.
type Hasher struct {
	strategy Strategy
	newHash  func() hash.Hash
}

// New constructs a Hasher for the named strategy.
func New(strategy Strategy) (Hasher, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return Hasher{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}

	h := Hasher{
		strategy: strategy,
		newHash:  fn,
	}

	return h, nil
}

// Default returns the sha256 Hasher.
func Default() Hasher {
	return Hasher{
		strategy: SHA256,
		newHash:  sha256.New,
	}
}

// Strategy returns the name of the digest algorithm.
func (h Hasher) Strategy() Strategy {
	if h.newHash == nil {
		return SHA256
	}
	return h.strategy
}

// Sum returns the raw digest of the data.
func (h Hasher) Sum(data []byte) []byte {
	newHash := h.newHash
	if newHash == nil {
		newHash = sha256.New
	}

	d := newHash()
	d.Write(data)
	return d.Sum(nil)
}

// Digest returns the lowercase hex encoded digest of the data.
func (h Hasher) Digest(data []byte) string {
	return hex.EncodeToString(h.Sum(data))
}

// DigestString returns the lowercase hex encoded digest of the string.
func (h Hasher) DigestString(s string) string {
	return h.Digest([]byte(s))
}

// Fields encodes the fields in order with the specified encoding and returns
// the hex encoded digest of the result.
func (h Hasher) Fields(enc Encoding, fields ...Field) string {
	return h.Digest(enc.Encode(fields...))
}

// Strategies returns the names of all supported strategies.
func Strategies() []Strategy {
	return []Strategy{SHA256, Keccak256, BLAKE3}
}
