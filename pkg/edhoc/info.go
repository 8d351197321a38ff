// Package edhoc implements the parts of the EDHOC key exchange wire format consumed by the
// object-security layer: the info structure fed to EDHOC-KDF, the KDF itself, and the codec for
// message_1.
package edhoc

import (
	"hash"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/oscore-edhoc/wire/pkg/cbor"
	"github.com/oscore-edhoc/wire/pkg/protocol"
)

var (
	// ErrBufferTooSmall indicates an output buffer can't hold the encoded item.
	ErrBufferTooSmall = protocol.NewError(protocol.KindBufferTooSmall, "edhoc: output buffer too small")
	// ErrLengthMismatch indicates an Info whose Length doesn't match the requested output.
	ErrLengthMismatch = protocol.NewError(protocol.KindPolicyViolation, "edhoc: info length doesn't match output length")
)

// Info is the input to EDHOC-KDF:
//
//	info = [ transcript_hash : bstr, label : tstr, context : bstr, length : uint ]
type Info struct {
	TranscriptHash []byte
	Label          string
	Context        []byte
	Length         uint32
}

// EncodedLen returns the number of bytes Encode writes.
func (i *Info) EncodedLen() int {
	return cbor.ArrayHeaderSize(4) +
		cbor.BstrSize(len(i.TranscriptHash)) +
		cbor.TstrSize(len(i.Label)) +
		cbor.BstrSize(len(i.Context)) +
		cbor.UintSize(uint64(i.Length))
}

// Encode writes i to out and returns the number of bytes written.
func (i *Info) Encode(out []byte) (int, error) {
	size := i.EncodedLen()
	if len(out) < size {
		return 0, ErrBufferTooSmall
	}
	enc := cbor.NewEncoder(out[:size])
	if err := enc.Array(4); err != nil {
		return 0, err
	}
	if err := enc.Bstr(i.TranscriptHash); err != nil {
		return 0, err
	}
	if err := enc.Tstr(i.Label); err != nil {
		return 0, err
	}
	if err := enc.Bstr(i.Context); err != nil {
		return 0, err
	}
	if err := enc.Uint(uint64(i.Length)); err != nil {
		return 0, err
	}
	return enc.Len(), nil
}

// KDF fills out with EDHOC-KDF(prk, info), which is HKDF-Expand using the encoded info structure.
// The encoded info is built in scratch. info.Length must equal len(out).
func KDF(h func() hash.Hash, prk []byte, info Info, scratch, out []byte) error {
	if int(info.Length) != len(out) {
		return ErrLengthMismatch
	}
	n, err := info.Encode(scratch)
	if err != nil {
		return err
	}
	if _, err := io.ReadFull(hkdf.Expand(h, prk, scratch[:n]), out); err != nil {
		return protocol.NewError(protocol.KindPolicyViolation, "edhoc: "+err.Error())
	}
	return nil
}
