package cose

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"fmt"

	"github.com/pion/dtls/v3/pkg/crypto/ccm"
	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize returns the key length in bytes of an AEAD algorithm, or zero if alg has no native
// implementation.
func KeySize(alg Algorithm) int {
	switch alg {
	case AlgA128GCM, AlgAESCCM16_64_128, AlgAESCCM16_128_128:
		return 16
	case AlgA192GCM:
		return 24
	case AlgA256GCM, AlgChaCha20Poly1305:
		return 32
	}
	return 0
}

// NewAEAD returns a native implementation of the AEAD algorithm alg keyed with key.
func NewAEAD(alg Algorithm, key []byte) (cipher.AEAD, error) {
	size := KeySize(alg)
	if size == 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedAlgorithm, alg)
	}
	if len(key) != size {
		return nil, fmt.Errorf("%w: algorithm %d requires a %d-byte key", ErrInvalidKey, alg, size)
	}
	if alg == AlgChaCha20Poly1305 {
		return chacha20poly1305.New(key)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	switch alg {
	case AlgAESCCM16_64_128:
		return ccm.NewCCM(block, aesCCMShortTagSize, aesCCMNonceSize)
	case AlgAESCCM16_128_128:
		return ccm.NewCCM(block, aesCCMLongTagSize, aesCCMNonceSize)
	}
	return cipher.NewGCM(block)
}

// NativeSigner implements Signer using Ed25519.
type NativeSigner struct {
	key ed25519.PrivateKey
}

// NewNativeSigner returns an Ed25519 Signer for the 32-byte seed.
func NewNativeSigner(seed []byte) (*NativeSigner, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, ErrInvalidKey
	}
	return &NativeSigner{key: ed25519.NewKeyFromSeed(seed)}, nil
}

func (n *NativeSigner) Algorithm() Algorithm {
	return AlgEdDSA
}

func (n *NativeSigner) Sign(toBeSigned []byte) ([]byte, error) {
	return ed25519.Sign(n.key, toBeSigned), nil
}

// Public returns the matching Verifier.
func (n *NativeSigner) Public() *NativeVerifier {
	return &NativeVerifier{key: n.key.Public().(ed25519.PublicKey)}
}

// NativeVerifier implements Verifier using Ed25519.
type NativeVerifier struct {
	key ed25519.PublicKey
}

// NewNativeVerifier returns an Ed25519 Verifier for a 32-byte public key.
func NewNativeVerifier(publicKey []byte) (*NativeVerifier, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return nil, ErrInvalidKey
	}
	key := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(key, publicKey)
	return &NativeVerifier{key: key}, nil
}

func (n *NativeVerifier) Algorithm() Algorithm {
	return AlgEdDSA
}

func (n *NativeVerifier) Verify(toBeSigned, signature []byte) error {
	if !ed25519.Verify(n.key, toBeSigned, signature) {
		return ErrAuthenticationFailed
	}
	return nil
}
