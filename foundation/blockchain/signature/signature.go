// Package signature provides helper functions for handling the blockchain
// signature needs. Blocks are signed through a pluggable Scheme and the keys
// used for signing come from a KeySource.
package signature

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/crypto"
)

// Set of errors returned by the signature package.
var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrUnknownScheme    = errors.New("unknown signature scheme")
)

// stampPrefix is embedded into every signed message. This will make it
// clear that the signature comes from the Kripto ledger and can't be
// replayed as a signature over some other kind of data.
const stampPrefix = "\x19Kripto Signed Block:\n"

// =============================================================================

// PrivateKey represents the behavior of a key that can sign messages.
type PrivateKey interface {
	Sign(message []byte) ([]byte, error)
	PublicKey() []byte
}

// Scheme represents a signature algorithm.
type Scheme interface {
	Name() string
	GenerateKey() (PrivateKey, error)
	Verify(publicKey []byte, message []byte, sig []byte) error
}

// ParseScheme returns the scheme for the specified name.
func ParseScheme(name string) (Scheme, error) {
	switch name {
	case ECDSA{}.Name():
		return ECDSA{}, nil
	case Schnorr{}.Name():
		return Schnorr{}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, name)
}

// =============================================================================

// Stamp returns a hash of 32 bytes that represents this message with the
// Kripto stamp embedded into the final hash.
func Stamp(message []byte) []byte {

	// Hash the message into a 32 byte array. This will provide a data
	// length consistency with all messages.
	msgHash := crypto.Keccak256(message)

	// Hash the stamp and msgHash together in a final 32 byte array
	// that represents the message.
	stamp := []byte(stampPrefix + strconv.Itoa(len(msgHash)))

	return crypto.Keccak256(stamp, msgHash)
}
