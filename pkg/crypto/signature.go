package crypto

import (
	"fmt"

	"github.com/Klingon-tech/verimint/pkg/types"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
)

// PublicKeySize is the length of an x-only public key.
const PublicKeySize = 32

// Signer signs messages with a private key using Schnorr/secp256k1.
type Signer interface {
	// Sign produces a Schnorr signature over a 32-byte hash.
	Sign(hash []byte) ([]byte, error)
	// PublicKey returns the 32-byte x-only public key.
	PublicKey() []byte
	// Address returns the account address controlled by this key.
	Address() types.Address
}

// Verifier verifies Schnorr/secp256k1 signatures.
type Verifier interface {
	// Verify checks a Schnorr signature against a hash and x-only public key.
	Verify(hash, signature, publicKey []byte) bool
}

// PrivateKey wraps a secp256k1 private key for Schnorr signing.
// Keys are normalized so their public point has an even Y coordinate,
// which makes the 32-byte X coordinate a lossless public key.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: evenY(key)}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte secret.
// A secret whose point has odd Y is negated, so the returned key may
// serialize differently from b while controlling the same address.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	key := secp256k1.PrivKeyFromBytes(b)
	if key.Key.IsZero() {
		return nil, fmt.Errorf("private key is zero or out of range")
	}
	return &PrivateKey{key: evenY(key)}, nil
}

func evenY(key *secp256k1.PrivateKey) *secp256k1.PrivateKey {
	if key.PubKey().SerializeCompressed()[0] != secp256k1.PubKeyFormatCompressedOdd {
		return key
	}
	var s secp256k1.ModNScalar
	s.Set(&key.Key)
	s.Negate()
	return secp256k1.NewPrivateKey(&s)
}

// Sign produces a Schnorr signature over a 32-byte hash.
func (pk *PrivateKey) Sign(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	sig, err := schnorr.Sign(pk.key, hash)
	if err != nil {
		return nil, fmt.Errorf("schnorr sign: %w", err)
	}
	return sig.Serialize(), nil
}

// PublicKey returns the 32-byte x-only public key.
func (pk *PrivateKey) PublicKey() []byte {
	return pk.key.PubKey().SerializeCompressed()[1:]
}

// Address returns the account address for this key (its x-only public key).
func (pk *PrivateKey) Address() types.Address {
	var a types.Address
	copy(a[:], pk.PublicKey())
	return a
}

// Serialize returns the 32-byte private key scalar.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// Zero securely zeroes the private key memory.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// IsOnCurve reports whether b is the X coordinate of a secp256k1 point,
// i.e. whether some private key could control it as an address.
func IsOnCurve(b []byte) bool {
	if len(b) != PublicKeySize {
		return false
	}
	_, err := parseXOnly(b)
	return err == nil
}

func parseXOnly(b []byte) (*secp256k1.PublicKey, error) {
	if len(b) != PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes, got %d", PublicKeySize, len(b))
	}
	var buf [PublicKeySize + 1]byte
	buf[0] = secp256k1.PubKeyFormatCompressedEven
	copy(buf[1:], b)
	return secp256k1.ParsePubKey(buf[:])
}

// VerifySignature checks a Schnorr signature against a 32-byte hash
// and an x-only public key. Returns false on any error.
func VerifySignature(hash, signature, publicKey []byte) bool {
	if len(hash) != 32 {
		return false
	}
	pubKey, err := parseXOnly(publicKey)
	if err != nil {
		return false
	}
	sig, err := schnorr.ParseSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(hash, pubKey)
}

// SchnorrVerifier implements the Verifier interface.
type SchnorrVerifier struct{}

// Verify checks a Schnorr signature against a hash and x-only public key.
func (v SchnorrVerifier) Verify(hash, signature, publicKey []byte) bool {
	return VerifySignature(hash, signature, publicKey)
}
