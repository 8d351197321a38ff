// Package oscore assembles the OSCORE (RFC 8613) building blocks that sit between the option codec
// and the AEAD: the external AAD, the nonce, the replay window and the sender/recipient plumbing
// around the option.
package oscore

import (
	"github.com/oscore-edhoc/wire/pkg/cbor"
	"github.com/oscore-edhoc/wire/pkg/cose"
	"github.com/oscore-edhoc/wire/pkg/protocol"
)

// Version is the only defined OSCORE version.
const Version = 1

var (
	// ErrBufferTooSmall indicates an output buffer can't hold the encoded item.
	ErrBufferTooSmall = protocol.NewError(protocol.KindBufferTooSmall, "oscore: output buffer too small")
)

// ExternalAAD is the aad_array authenticated alongside every OSCORE message:
//
//	aad_array = [ oscore_version : uint, algorithms : [ alg_aead : int ],
//	              request_kid : bstr, request_piv : bstr, options : bstr ]
type ExternalAAD struct {
	Version    uint64
	AlgAEAD    cose.Algorithm
	RequestKID []byte
	RequestPIV []byte
	// Options holds the Class I options. Always empty for plain CoAP.
	Options []byte
}

// NewExternalAAD returns the ExternalAAD for a request with the given key ID and Partial IV.
func NewExternalAAD(alg cose.Algorithm, requestKID, requestPIV []byte) ExternalAAD {
	return ExternalAAD{Version: Version, AlgAEAD: alg, RequestKID: requestKID, RequestPIV: requestPIV}
}

// EncodedLen returns the number of bytes Encode writes.
func (a *ExternalAAD) EncodedLen() int {
	return cbor.ArrayHeaderSize(5) +
		cbor.UintSize(a.Version) +
		cbor.ArrayHeaderSize(1) + cbor.IntSize(int64(a.AlgAEAD)) +
		cbor.BstrSize(len(a.RequestKID)) +
		cbor.BstrSize(len(a.RequestPIV)) +
		cbor.BstrSize(len(a.Options))
}

// Encode writes the aad_array to out and returns the number of bytes written.
func (a *ExternalAAD) Encode(out []byte) (int, error) {
	size := a.EncodedLen()
	if len(out) < size {
		return 0, ErrBufferTooSmall
	}
	enc := cbor.NewEncoder(out[:size])
	if err := enc.Array(5); err != nil {
		return 0, err
	}
	if err := enc.Uint(a.Version); err != nil {
		return 0, err
	}
	if err := enc.Array(1); err != nil {
		return 0, err
	}
	if err := enc.Int(int64(a.AlgAEAD)); err != nil {
		return 0, err
	}
	if err := enc.Bstr(a.RequestKID); err != nil {
		return 0, err
	}
	if err := enc.Bstr(a.RequestPIV); err != nil {
		return 0, err
	}
	if err := enc.Bstr(a.Options); err != nil {
		return 0, err
	}
	return enc.Len(), nil
}
