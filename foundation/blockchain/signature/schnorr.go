package signature

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
)

// Schnorr signs with Schnorr signatures over secp256k1.
type Schnorr struct{}

// Name returns the name of the scheme.
func (Schnorr) Name() string {
	return "schnorr"
}

// GenerateKey constructs a new random private key.
func (Schnorr) GenerateKey() (PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate schnorr key: %w", err)
	}

	return SchnorrKey{key: key}, nil
}

// Verify checks a Schnorr signature over the stamped message against the
// compressed public key.
func (Schnorr) Verify(publicKey []byte, message []byte, sig []byte) error {
	pubKey, err := secp256k1.ParsePubKey(publicKey)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	s, err := schnorr.ParseSignature(sig)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	if !s.Verify(Stamp(message), pubKey) {
		return ErrInvalidSignature
	}

	return nil
}

// =============================================================================

// SchnorrKey is a secp256k1 private key used for Schnorr signing.
type SchnorrKey struct {
	key *secp256k1.PrivateKey
}

// NewSchnorrKey constructs a key from a 32 byte secret.
func NewSchnorrKey(secret []byte) (SchnorrKey, error) {
	if len(secret) != 32 {
		return SchnorrKey{}, fmt.Errorf("private key must be 32 bytes, got %d", len(secret))
	}

	return SchnorrKey{key: secp256k1.PrivKeyFromBytes(secret)}, nil
}

// Sign produces a 64 byte Schnorr signature over the stamped message.
func (k SchnorrKey) Sign(message []byte) ([]byte, error) {
	sig, err := schnorr.Sign(k.key, Stamp(message))
	if err != nil {
		return nil, fmt.Errorf("schnorr sign: %w", err)
	}

	return sig.Serialize(), nil
}

// PublicKey returns the 33 byte compressed public key.
func (k SchnorrKey) PublicKey() []byte {
	return k.key.PubKey().SerializeCompressed()
}
