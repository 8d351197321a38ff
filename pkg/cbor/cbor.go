// Package cbor implements the CBOR (RFC 8949) primitives used by the EDHOC and OSCORE wire formats:
// unsigned and negative integers, byte strings, text strings and definite-length arrays.
//
// The package is designed for bounded, caller-sized buffers. Decoding never reads past the end of
// the input slice and returns sub-slices of it rather than copies. Encoding never writes past the
// end of the output slice; each item is either written completely or not at all. Array headers are
// checked against a static upper bound supplied by the caller.
//
// Indefinite-length items, maps, tags and floating point values are not part of either protocol's
// canonical encoding and are rejected as malformed.
package cbor

import (
	"github.com/oscore-edhoc/wire/pkg/protocol"
)

// MajorType is the 3-bit major type of a CBOR data item.
type MajorType uint8

const (
	MajorUint  MajorType = 0
	MajorNint  MajorType = 1
	MajorBstr  MajorType = 2
	MajorTstr  MajorType = 3
	MajorArray MajorType = 4
	MajorMap   MajorType = 5
	MajorTag   MajorType = 6
	MajorOther MajorType = 7
)

const (
	infoUint8      = 24
	infoUint16     = 25
	infoUint32     = 26
	infoUint64     = 27
	infoIndefinite = 31
)

var (
	// ErrTruncated indicates an item's header or payload extends past the end of the input.
	ErrTruncated = protocol.NewError(protocol.KindMalformedInput, "cbor: truncated item")
	// ErrWrongType indicates an item has a different major type than the schema requires.
	ErrWrongType = protocol.NewError(protocol.KindMalformedInput, "cbor: unexpected major type")
	// ErrReservedInfo indicates an item uses a reserved or indefinite-length additional info value.
	ErrReservedInfo = protocol.NewError(protocol.KindMalformedInput, "cbor: reserved or indefinite length encoding")
	// ErrIntegerOverflow indicates an integer that doesn't fit the requested Go type.
	ErrIntegerOverflow = protocol.NewError(protocol.KindMalformedInput, "cbor: integer out of range")
	// ErrTooManyElements indicates an array whose cardinality exceeds the caller's static bound.
	ErrTooManyElements = protocol.NewError(protocol.KindMalformedInput, "cbor: array exceeds static bound")
	// ErrBufferTooSmall indicates the output buffer can't hold the encoded item.
	ErrBufferTooSmall = protocol.NewError(protocol.KindBufferTooSmall, "cbor: output buffer too small")
)

func (m MajorType) String() string {
	switch m {
	case MajorUint:
		return "uint"
	case MajorNint:
		return "nint"
	case MajorBstr:
		return "bstr"
	case MajorTstr:
		return "tstr"
	case MajorArray:
		return "array"
	case MajorMap:
		return "map"
	case MajorTag:
		return "tag"
	}
	return "simple"
}
