package cose

import (
	"crypto/cipher"

	"github.com/oscore-edhoc/wire/pkg/protocol"
)

// Algorithm is a COSE algorithm identifier.
type Algorithm int64

const (
	AlgEdDSA            Algorithm = -8
	AlgA128GCM          Algorithm = 1
	AlgA192GCM          Algorithm = 2
	AlgA256GCM          Algorithm = 3
	AlgAESCCM16_64_128  Algorithm = 10 // OSCORE default AEAD.
	AlgChaCha20Poly1305 Algorithm = 24
	AlgAESCCM16_128_128 Algorithm = 30
)

const (
	aesCCMNonceSize    = 13
	aesCCMShortTagSize = 8
	aesCCMLongTagSize  = 16
)

var (
	// ErrUnsupportedAlgorithm indicates an algorithm without a native implementation.
	ErrUnsupportedAlgorithm = protocol.NewError(protocol.KindPolicyViolation, "cose: unsupported algorithm")
	// ErrInvalidKey indicates a key of the wrong length or format for its algorithm.
	ErrInvalidKey = protocol.NewError(protocol.KindPolicyViolation, "cose: invalid key")
	// ErrAuthenticationFailed indicates a ciphertext or signature that doesn't verify.
	ErrAuthenticationFailed = protocol.NewError(protocol.KindPolicyViolation, "cose: authentication failed")
)

// Signer produces a signature over a Sig_structure.
type Signer interface {
	Algorithm() Algorithm
	Sign(toBeSigned []byte) ([]byte, error)
}

// Verifier checks a signature over a Sig_structure.
type Verifier interface {
	Algorithm() Algorithm
	Verify(toBeSigned, signature []byte) error
}

// Seal0 builds the Enc_structure for protected and externalAAD in scratch, then seals plaintext
// with aead and appends the ciphertext to dst.
func Seal0(aead cipher.AEAD, dst, nonce, protected, externalAAD, plaintext, scratch []byte) ([]byte, error) {
	s := NewEncStructure(protected, externalAAD)
	n, err := s.Encode(scratch)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, ErrInvalidKey
	}
	return aead.Seal(dst, nonce, plaintext, scratch[:n]), nil
}

// Open0 is the inverse of Seal0.
func Open0(aead cipher.AEAD, dst, nonce, protected, externalAAD, ciphertext, scratch []byte) ([]byte, error) {
	s := NewEncStructure(protected, externalAAD)
	n, err := s.Encode(scratch)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, ErrInvalidKey
	}
	plaintext, err := aead.Open(dst, nonce, ciphertext, scratch[:n])
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

// Sign1 builds the Sig_structure in scratch and signs it.
func Sign1(signer Signer, protected, externalAAD, payload, scratch []byte) ([]byte, error) {
	s := NewSigStructure(protected, externalAAD, payload)
	n, err := s.Encode(scratch)
	if err != nil {
		return nil, err
	}
	return signer.Sign(scratch[:n])
}

// Verify1 builds the Sig_structure in scratch and verifies signature over it.
func Verify1(verifier Verifier, protected, externalAAD, payload, signature, scratch []byte) error {
	s := NewSigStructure(protected, externalAAD, payload)
	n, err := s.Encode(scratch)
	if err != nil {
		return err
	}
	return verifier.Verify(scratch[:n], signature)
}
