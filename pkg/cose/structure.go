// Package cose builds the canonical COSE structures (RFC 9052 Sections 4.4 and 5.3) that are
// authenticated by AEAD algorithms and signature schemes, and defines the cryptographic
// capabilities that consume them.
//
// The structures are encoded deterministically into caller-provided buffers: identical inputs
// always produce identical bytes, and an undersized buffer is detected before anything is written.
package cose

import (
	"github.com/oscore-edhoc/wire/pkg/cbor"
	"github.com/oscore-edhoc/wire/pkg/protocol"
)

// Context strings distinguish structures built for different purposes.
const (
	ContextEncrypt0   = "Encrypt0"
	ContextSignature1 = "Signature1"
)

// ErrBufferTooSmall indicates the output buffer can't hold the encoded structure.
var ErrBufferTooSmall = protocol.NewError(protocol.KindBufferTooSmall, "cose: output buffer too small")

// EncStructure is the associated data of a COSE_Encrypt0 object:
//
//	Enc_structure = [ context : tstr, protected : bstr, external_aad : bstr ]
type EncStructure struct {
	Context     string
	Protected   []byte // Encoded protected header bucket.
	ExternalAAD []byte
}

// NewEncStructure returns an Encrypt0 structure.
func NewEncStructure(protected, externalAAD []byte) EncStructure {
	return EncStructure{Context: ContextEncrypt0, Protected: protected, ExternalAAD: externalAAD}
}

// EncodedLen returns the number of bytes Encode writes.
func (s *EncStructure) EncodedLen() int {
	return cbor.ArrayHeaderSize(3) +
		cbor.TstrSize(len(s.Context)) +
		cbor.BstrSize(len(s.Protected)) +
		cbor.BstrSize(len(s.ExternalAAD))
}

// Encode writes s to out and returns the number of bytes written.
func (s *EncStructure) Encode(out []byte) (int, error) {
	size := s.EncodedLen()
	if len(out) < size {
		return 0, ErrBufferTooSmall
	}
	enc := cbor.NewEncoder(out[:size])
	if err := enc.Array(3); err != nil {
		return 0, err
	}
	if err := enc.Tstr(s.Context); err != nil {
		return 0, err
	}
	if err := enc.Bstr(s.Protected); err != nil {
		return 0, err
	}
	if err := enc.Bstr(s.ExternalAAD); err != nil {
		return 0, err
	}
	return enc.Len(), nil
}

// SigStructure is the to-be-signed data of a COSE_Sign1 object:
//
//	Sig_structure = [ context : tstr, body_protected : bstr, external_aad : bstr, payload : bstr ]
type SigStructure struct {
	Context     string
	Protected   []byte
	ExternalAAD []byte
	Payload     []byte
}

// NewSigStructure returns a Signature1 structure.
func NewSigStructure(protected, externalAAD, payload []byte) SigStructure {
	return SigStructure{Context: ContextSignature1, Protected: protected, ExternalAAD: externalAAD, Payload: payload}
}

// EncodedLen returns the number of bytes Encode writes.
func (s *SigStructure) EncodedLen() int {
	return cbor.ArrayHeaderSize(4) +
		cbor.TstrSize(len(s.Context)) +
		cbor.BstrSize(len(s.Protected)) +
		cbor.BstrSize(len(s.ExternalAAD)) +
		cbor.BstrSize(len(s.Payload))
}

// Encode writes s to out and returns the number of bytes written.
func (s *SigStructure) Encode(out []byte) (int, error) {
	size := s.EncodedLen()
	if len(out) < size {
		return 0, ErrBufferTooSmall
	}
	enc := cbor.NewEncoder(out[:size])
	if err := enc.Array(4); err != nil {
		return 0, err
	}
	if err := enc.Tstr(s.Context); err != nil {
		return 0, err
	}
	if err := enc.Bstr(s.Protected); err != nil {
		return 0, err
	}
	if err := enc.Bstr(s.ExternalAAD); err != nil {
		return 0, err
	}
	if err := enc.Bstr(s.Payload); err != nil {
		return 0, err
	}
	return enc.Len(), nil
}
