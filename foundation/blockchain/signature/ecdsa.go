package signature

import (
	"bytes"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// ECDSA signs with secp256k1 recoverable signatures.
type ECDSA struct{}

// Name returns the name of the scheme.
func (ECDSA) Name() string {
	return "ecdsa"
}

// GenerateKey constructs a new random private key.
func (ECDSA) GenerateKey() (PrivateKey, error) {
	pk, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate ecdsa key: %w", err)
	}

	return NewECDSAKey(pk), nil
}

// Verify checks the signature was produced over the message by the private
// key paired with the compressed public key.
func (ECDSA) Verify(publicKey []byte, message []byte, sig []byte) error {
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("%w: length %d, exp %d", ErrInvalidSignature, len(sig), crypto.SignatureLength)
	}

	data := Stamp(message)

	// Check the signature values against the public key.
	rs := sig[:crypto.RecoveryIDOffset]
	if !crypto.VerifySignature(publicKey, data, rs) {
		return ErrInvalidSignature
	}

	// Extract the public key from the data and the signature and make sure
	// it's the key that was recorded.
	recovered, err := crypto.SigToPub(data, sig)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	if !bytes.Equal(crypto.CompressPubkey(recovered), publicKey) {
		return fmt.Errorf("%w: recovered public key mismatch", ErrInvalidSignature)
	}

	return nil
}

// =============================================================================

// ECDSAKey is a secp256k1 private key.
type ECDSAKey struct {
	key *ecdsa.PrivateKey
}

// NewECDSAKey wraps an existing private key.
func NewECDSAKey(pk *ecdsa.PrivateKey) ECDSAKey {
	return ECDSAKey{key: pk}
}

// Sign uses the private key to sign the stamped message. The result is the
// 65 byte [R|S|V] signature.
func (k ECDSAKey) Sign(message []byte) ([]byte, error) {

	// Prepare the data for signing.
	data := Stamp(message)

	// Sign the hash with the private key to produce a signature.
	sig, err := crypto.Sign(data, k.key)
	if err != nil {
		return nil, fmt.Errorf("ecdsa sign: %w", err)
	}

	// Check the public key extracted from the data and signature.
	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return nil, fmt.Errorf("ecdsa sign: %w", err)
	}

	rs := sig[:crypto.RecoveryIDOffset]
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), data, rs) {
		return nil, ErrInvalidSignature
	}

	return sig, nil
}

// PublicKey returns the 33 byte compressed public key.
func (k ECDSAKey) PublicKey() []byte {
	return crypto.CompressPubkey(&k.key.PublicKey)
}

// Address returns the account address for the key.
func (k ECDSAKey) Address() string {
	return crypto.PubkeyToAddress(k.key.PublicKey).String()
}
