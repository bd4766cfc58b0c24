package signature

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// KeySource provides the private key used to sign the next block.
type KeySource interface {
	Scheme() Scheme
	Next() (PrivateKey, error)
}

// =============================================================================

type ephemeral struct {
	scheme Scheme
}

// Ephemeral returns a key source that generates a brand new key pair for
// every block. There is no chain wide identity, historical blocks can only be
// verified with the public key stored on each block.
func Ephemeral(scheme Scheme) KeySource {
	return ephemeral{scheme: scheme}
}

func (e ephemeral) Scheme() Scheme {
	return e.scheme
}

func (e ephemeral) Next() (PrivateKey, error) {
	return e.scheme.GenerateKey()
}

// =============================================================================

type persistent struct {
	scheme Scheme
	key    PrivateKey
}

// Persistent returns a key source that signs every block with the same key.
func Persistent(scheme Scheme, key PrivateKey) KeySource {
	return persistent{scheme: scheme, key: key}
}

func (p persistent) Scheme() Scheme {
	return p.scheme
}

func (p persistent) Next() (PrivateKey, error) {
	return p.key, nil
}

// =============================================================================

// LoadKey reads a hex encoded secp256k1 key file and returns it as a private
// key for the specified scheme.
func LoadKey(scheme Scheme, path string) (PrivateKey, error) {
	pk, err := crypto.LoadECDSA(path)
	if err != nil {
		return nil, fmt.Errorf("load key %s: %w", path, err)
	}

	switch scheme.(type) {
	case ECDSA:
		return NewECDSAKey(pk), nil
	case Schnorr:
		return NewSchnorrKey(crypto.FromECDSA(pk))
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme.Name())
}

// GenerateKeyFile creates a new secp256k1 key and writes it hex encoded to
// the specified path. Keys written here can be used by every scheme.
func GenerateKeyFile(path string) (string, error) {
	pk, err := crypto.GenerateKey()
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}

	if err := crypto.SaveECDSA(path, pk); err != nil {
		return "", fmt.Errorf("save key %s: %w", path, err)
	}

	return NewECDSAKey(pk).Address(), nil
}
