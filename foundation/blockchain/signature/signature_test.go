package signature_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/csbeno10/Kripto/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	from     = "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"
	message  = "0000a3c1f6d54be49c1f0c1b1e0e8a3b1d73fbb3df9e2af0f0de36b9b6f8c0a1"
)

// =============================================================================

func Test_Signing(t *testing.T) {
	for _, scheme := range []signature.Scheme{signature.ECDSA{}, signature.Schnorr{}} {
		t.Run(scheme.Name(), func(t *testing.T) {
			pk, err := scheme.GenerateKey()
			if err != nil {
				t.Fatalf("Should be able to generate a private key: %s", err)
			}

			sig, err := pk.Sign([]byte(message))
			if err != nil {
				t.Fatalf("Should be able to sign data: %s", err)
			}

			if err := scheme.Verify(pk.PublicKey(), []byte(message), sig); err != nil {
				t.Fatalf("Should be able to verify the signature: %s", err)
			}

			if err := scheme.Verify(pk.PublicKey(), []byte(message+"0"), sig); !errors.Is(err, signature.ErrInvalidSignature) {
				t.Fatalf("Should not verify a different message: %v", err)
			}

			other, err := scheme.GenerateKey()
			if err != nil {
				t.Fatalf("Should be able to generate a private key: %s", err)
			}

			if err := scheme.Verify(other.PublicKey(), []byte(message), sig); !errors.Is(err, signature.ErrInvalidSignature) {
				t.Fatalf("Should not verify against a different public key: %v", err)
			}

			tampered := bytes.Clone(sig)
			tampered[10] ^= 0xff
			if err := scheme.Verify(pk.PublicKey(), []byte(message), tampered); !errors.Is(err, signature.ErrInvalidSignature) {
				t.Fatalf("Should not verify a tampered signature: %v", err)
			}
		})
	}
}

func Test_KnownKey(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to load a private key: %s", err)
	}

	key := signature.NewECDSAKey(pk)
	if addr := key.Address(); addr != from {
		t.Logf("got: %s", addr)
		t.Logf("exp: %s", from)
		t.Fatalf("Should get back the right address.")
	}

	if len(key.PublicKey()) != 33 {
		t.Fatalf("Should get back a compressed public key, got %d bytes.", len(key.PublicKey()))
	}
}

func Test_SignConsistency(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to load a private key: %s", err)
	}
	key := signature.NewECDSAKey(pk)

	sig1, err := key.Sign([]byte(message))
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	sig2, err := key.Sign([]byte(message))
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	if !bytes.Equal(sig1, sig2) {
		t.Errorf("Got: %x", sig1)
		t.Errorf("Got: %x", sig2)
		t.Fatalf("Should get the same deterministic signature.")
	}
}

func Test_Stamp(t *testing.T) {
	s1 := signature.Stamp([]byte("Bill"))
	s2 := signature.Stamp([]byte("Bill"))
	s3 := signature.Stamp([]byte("Jill"))

	if len(s1) != 32 {
		t.Fatalf("Should get a 32 byte stamp, got %d.", len(s1))
	}

	if !bytes.Equal(s1, s2) {
		t.Fatalf("Should get back the same stamp twice.")
	}

	if bytes.Equal(s1, s3) {
		t.Fatalf("Should get back different stamps for different messages.")
	}

	if bytes.Equal(s1, crypto.Keccak256([]byte("Bill"))) {
		t.Fatalf("Should not get back the plain message hash.")
	}
}

func Test_KeySources(t *testing.T) {
	eph := signature.Ephemeral(signature.ECDSA{})

	k1, err := eph.Next()
	if err != nil {
		t.Fatalf("Should be able to get a key: %s", err)
	}
	k2, err := eph.Next()
	if err != nil {
		t.Fatalf("Should be able to get a key: %s", err)
	}
	if bytes.Equal(k1.PublicKey(), k2.PublicKey()) {
		t.Fatalf("Should get a fresh key pair from an ephemeral source.")
	}

	per := signature.Persistent(signature.ECDSA{}, k1)
	for range 3 {
		k, err := per.Next()
		if err != nil {
			t.Fatalf("Should be able to get a key: %s", err)
		}
		if !bytes.Equal(k.PublicKey(), k1.PublicKey()) {
			t.Fatalf("Should get the same key from a persistent source.")
		}
	}

	if per.Scheme().Name() != "ecdsa" {
		t.Fatalf("Should report the scheme, got %s.", per.Scheme().Name())
	}
}

func Test_KeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "miner.ecdsa")

	addr, err := signature.GenerateKeyFile(path)
	if err != nil {
		t.Fatalf("Should be able to generate a key file: %s", err)
	}

	for _, scheme := range []signature.Scheme{signature.ECDSA{}, signature.Schnorr{}} {
		key, err := signature.LoadKey(scheme, path)
		if err != nil {
			t.Fatalf("Should be able to load the key file for %s: %s", scheme.Name(), err)
		}

		sig, err := key.Sign([]byte(message))
		if err != nil {
			t.Fatalf("Should be able to sign with %s: %s", scheme.Name(), err)
		}

		if err := scheme.Verify(key.PublicKey(), []byte(message), sig); err != nil {
			t.Fatalf("Should be able to verify with %s: %s", scheme.Name(), err)
		}

		if ek, ok := key.(signature.ECDSAKey); ok && ek.Address() != addr {
			t.Fatalf("Should load the key that was saved, got %s exp %s.", ek.Address(), addr)
		}
	}
}

func Test_ParseScheme(t *testing.T) {
	for _, name := range []string{"ecdsa", "schnorr"} {
		scheme, err := signature.ParseScheme(name)
		if err != nil {
			t.Fatalf("Should be able to parse %s: %s", name, err)
		}
		if scheme.Name() != name {
			t.Fatalf("Should get back the %s scheme, got %s.", name, scheme.Name())
		}
	}

	if _, err := signature.ParseScheme("rsa"); !errors.Is(err, signature.ErrUnknownScheme) {
		t.Fatalf("Should reject an unknown scheme: %v", err)
	}
}
