package oscore

import (
	"crypto/cipher"

	"github.com/oscore-edhoc/wire/pkg/cose"
)

// maxNonceLen bounds the nonce of every supported AEAD.
const maxNonceLen = 16

// Context holds the parts of an OSCORE security context needed to protect and verify requests.
type Context struct {
	AEAD     cipher.AEAD
	Alg      cose.Algorithm
	CommonIV []byte
}

// NewContext returns a Context using the native implementation of alg.
func NewContext(alg cose.Algorithm, key, commonIV []byte) (*Context, error) {
	aead, err := cose.NewAEAD(alg, key)
	if err != nil {
		return nil, err
	}
	if len(commonIV) != aead.NonceSize() {
		return nil, ErrCommonIVLength
	}
	return &Context{AEAD: aead, Alg: alg, CommonIV: commonIV}, nil
}

// prepare writes the nonce for (kid, piv) into nonce and the request's aad_array into scratch. It
// returns the nonce, the encoded aad_array and the unused remainder of scratch.
func (c *Context) prepare(nonce *[maxNonceLen]byte, kid, piv, scratch []byte) ([]byte, []byte, []byte, error) {
	if len(c.CommonIV) > maxNonceLen {
		return nil, nil, nil, ErrCommonIVLength
	}
	n, err := Nonce(c.CommonIV, kid, piv, nonce[:])
	if err != nil {
		return nil, nil, nil, err
	}
	aad := NewExternalAAD(c.Alg, kid, piv)
	k, err := aad.Encode(scratch)
	if err != nil {
		return nil, nil, nil, err
	}
	return nonce[:n], scratch[:k], scratch[k:], nil
}

// SealRequest encrypts the plaintext of a request sent with sender ID kid and Partial IV piv and
// appends the ciphertext to dst. scratch must hold the aad_array and the Enc_structure.
func (c *Context) SealRequest(dst, kid, piv, plaintext, scratch []byte) ([]byte, error) {
	var nonce [maxNonceLen]byte
	iv, aad, rest, err := c.prepare(&nonce, kid, piv, scratch)
	if err != nil {
		return nil, err
	}
	return cose.Seal0(c.AEAD, dst, iv, []byte{}, aad, plaintext, rest)
}

// OpenRequest is the inverse of SealRequest. kid and piv come from the request's decoded option.
func (c *Context) OpenRequest(dst, kid, piv, ciphertext, scratch []byte) ([]byte, error) {
	var nonce [maxNonceLen]byte
	iv, aad, rest, err := c.prepare(&nonce, kid, piv, scratch)
	if err != nil {
		return nil, err
	}
	return cose.Open0(c.AEAD, dst, iv, []byte{}, aad, ciphertext, rest)
}
