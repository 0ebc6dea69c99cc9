// Package cryptoutil wraps the ed25519 and SHA-256 primitives the ledger
// and overlay packages consume. Mirrors the shape of the teacher's
// internal/crypto/algorithms/ed25519 provider, narrowed to Stellar's
// single supported key type (spec.md §1: "Cryptography primitives" is an
// external collaborator; this package is the concrete implementation
// handed to the core).
package cryptoutil

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"errors"
)

// PublicKeySize and SignatureSize mirror the ed25519 stdlib constants,
// named here so callers don't need to import crypto/ed25519 directly.
const (
	PublicKeySize  = ed25519.PublicKeySize
	PrivateKeySize = ed25519.PrivateKeySize
	SignatureSize  = ed25519.SignatureSize
	SeedSize       = ed25519.SeedSize
)

// ErrInvalidKeyLength is returned when a raw key byte slice has the wrong size.
var ErrInvalidKeyLength = errors.New("cryptoutil: invalid key length")

// KeyPair holds an ed25519 key pair used for handshake nonce signing and
// signer identity.
type KeyPair struct {
	Public  [PublicKeySize]byte
	private ed25519.PrivateKey
}

// GenerateKeyPair creates a fresh random ed25519 key pair using a secure
// random source.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, err
	}
	var kp KeyPair
	copy(kp.Public[:], pub)
	kp.private = priv
	return kp, nil
}

// KeyPairFromSeed derives a key pair deterministically from a 32-byte seed.
func KeyPairFromSeed(seed [SeedSize]byte) KeyPair {
	priv := ed25519.NewKeyFromSeed(seed[:])
	var kp KeyPair
	copy(kp.Public[:], priv.Public().(ed25519.PublicKey))
	kp.private = priv
	return kp
}

// Sign signs message with the key pair's private key.
func (kp KeyPair) Sign(message []byte) [SignatureSize]byte {
	var sig [SignatureSize]byte
	copy(sig[:], ed25519.Sign(kp.private, message))
	return sig
}

// Verify checks a signature against a raw 32-byte public key.
func Verify(pubKey [PublicKeySize]byte, message []byte, signature [SignatureSize]byte) bool {
	return ed25519.Verify(ed25519.PublicKey(pubKey[:]), message, signature[:])
}

// SHA256 returns the SHA-256 digest of data, used both for LedgerKey
// hashing and for the SCP_QUORUMSET hash-on-receipt step (spec.md §4.6.3).
func SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// RandomNonce returns a fresh 32-byte random nonce for the handshake
// (spec.md §4.6.2).
func RandomNonce() ([32]byte, error) {
	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nonce, err
	}
	return nonce, nil
}
