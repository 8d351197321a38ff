// Package option encodes and decodes the value of the OSCORE CoAP option (RFC 8613 Section 6.1).
//
// The option value starts with a flag byte
//
//	 0 1 2 3 4 5 6 7
//	+-+-+-+-+-+-+-+-+
//	|0 0 0|h|k|  n  |
//	+-+-+-+-+-+-+-+-+
//
// followed by n bytes of Partial IV, then (if h is set) a length byte and that many bytes of
// kid context, then (if k is set) the kid, which runs to the end of the value.
//
// The value arrives from an untrusted peer, so Decode is strictly syntactic and bounds checked.
// Decoded fields alias the input buffer and remain valid only as long as that buffer does.
package option

import (
	"github.com/oscore-edhoc/wire/pkg/protocol"
)

const (
	// MaxPIVLen is the longest Partial IV the option can carry. Flag values of n above this are
	// reserved.
	MaxPIVLen = 5
	// MaxKIDContextLen is the longest kid context that fits behind the one-byte length prefix.
	MaxKIDContextLen = 255

	flagH = 0x10
	flagK = 0x08
	maskN = 0x07
)

var (
	// ErrEmptyValue indicates the option value has no flag byte.
	ErrEmptyValue = protocol.NewError(protocol.KindMalformedInput, "option: empty value")
	// ErrTruncated indicates a sub-field's declared length exceeds the remaining bytes.
	ErrTruncated = protocol.NewError(protocol.KindMalformedInput, "option: truncated field")
	// ErrInvalidPIVLength indicates a reserved Partial IV length (6 or 7) or a Partial IV longer
	// than MaxPIVLen.
	ErrInvalidPIVLength = protocol.NewError(protocol.KindPolicyViolation, "option: invalid Partial IV length")
	// ErrKIDContextTooLong indicates a kid context that doesn't fit the one-byte length prefix.
	ErrKIDContextTooLong = protocol.NewError(protocol.KindPolicyViolation, "option: kid context longer than 255 bytes")
	// ErrBufferTooSmall indicates the output buffer can't hold the encoded option.
	ErrBufferTooSmall = protocol.NewError(protocol.KindBufferTooSmall, "option: output buffer too small")
)

// CompressedOption is the decoded OSCORE option value.
//
// A field whose flag is unset is nil. A field whose flag is set is non-nil, even if it has zero
// length, so presence can be tested with the flag or with a nil check.
type CompressedOption struct {
	H bool  // kid context present
	K bool  // kid present
	N uint8 // Partial IV length

	PIV        []byte
	KIDContext []byte
	KID        []byte
}

// HasPIV returns true if the option carries a Partial IV.
func (o *CompressedOption) HasPIV() bool {
	return o.N > 0
}

// Decode parses an OSCORE option value. On error the returned CompressedOption is the zero value.
func Decode(value []byte) (CompressedOption, error) {
	var opt CompressedOption
	if len(value) == 0 {
		return opt, ErrEmptyValue
	}
	flags := value[0]
	n := flags & maskN
	if n > MaxPIVLen {
		return opt, ErrInvalidPIVLength
	}
	rest := value[1:]

	var piv []byte
	if n > 0 {
		if len(rest) < int(n) {
			return opt, ErrTruncated
		}
		piv = rest[:n:n]
		rest = rest[n:]
	}

	var kidContext []byte
	h := flags&flagH != 0
	if h {
		if len(rest) < 1 {
			return opt, ErrTruncated
		}
		s := int(rest[0])
		rest = rest[1:]
		if len(rest) < s {
			return opt, ErrTruncated
		}
		kidContext = rest[:s:s]
		rest = rest[s:]
	}

	var kid []byte
	k := flags&flagK != 0
	if k {
		kid = rest[:len(rest):len(rest)]
	}

	opt = CompressedOption{
		H:          h,
		K:          k,
		N:          n,
		PIV:        piv,
		KIDContext: kidContext,
		KID:        kid,
	}
	return opt, nil
}

// EncodedLen returns the number of bytes Encode writes for the given fields.
func EncodedLen(piv, kidContext, kid []byte) int {
	n := 1 + len(piv)
	if kidContext != nil {
		n += 1 + len(kidContext)
	}
	if kid != nil {
		n += len(kid)
	}
	return n
}

// Encode writes an OSCORE option value to out and returns the number of bytes written. A nil
// kidContext or kid is omitted and its flag is cleared; a non-nil one is included even if it is
// empty. Nothing is written if an error is returned.
func Encode(out, piv, kidContext, kid []byte) (int, error) {
	if len(piv) > MaxPIVLen {
		return 0, ErrInvalidPIVLength
	}
	if len(kidContext) > MaxKIDContextLen {
		return 0, ErrKIDContextTooLong
	}
	size := EncodedLen(piv, kidContext, kid)
	if len(out) < size {
		return 0, ErrBufferTooSmall
	}

	flags := byte(len(piv))
	if kidContext != nil {
		flags |= flagH
	}
	if kid != nil {
		flags |= flagK
	}
	out[0] = flags
	n := 1
	n += copy(out[n:], piv)
	if kidContext != nil {
		out[n] = byte(len(kidContext))
		n++
		n += copy(out[n:], kidContext)
	}
	n += copy(out[n:], kid)
	return n, nil
}

// Encode writes o to out. See the package-level Encode.
func (o *CompressedOption) Encode(out []byte) (int, error) {
	var kidContext, kid []byte
	if o.H {
		kidContext = nonNil(o.KIDContext)
	}
	if o.K {
		kid = nonNil(o.KID)
	}
	return Encode(out, o.PIV, kidContext, kid)
}

// EncodedLen returns the number of bytes o.Encode writes.
func (o *CompressedOption) EncodedLen() int {
	var kidContext, kid []byte
	if o.H {
		kidContext = nonNil(o.KIDContext)
	}
	if o.K {
		kid = nonNil(o.KID)
	}
	return EncodedLen(o.PIV, kidContext, kid)
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
