package oscore

import (
	"github.com/oscore-edhoc/wire/pkg/oscore/option"
	"github.com/oscore-edhoc/wire/pkg/protocol"
)

// minNonceLen is the shortest nonce that fits the size byte and a padded Partial IV.
const minNonceLen = 1 + option.MaxPIVLen + 1

var (
	// ErrIDTooLong indicates a sender ID that doesn't fit the nonce of the AEAD algorithm.
	ErrIDTooLong = protocol.NewError(protocol.KindPolicyViolation, "oscore: sender ID too long for nonce")
	// ErrCommonIVLength indicates a Common IV too short to build a nonce from.
	ErrCommonIVLength = protocol.NewError(protocol.KindPolicyViolation, "oscore: common IV too short")
)

// Nonce writes the AEAD nonce for the sender ID id and Partial IV piv to out. The nonce has the same
// length as commonIV:
//
//	size of id (1 byte) || id left-padded to len(commonIV)-6 bytes || piv left-padded to 5 bytes
//
// XORed with commonIV.
func Nonce(commonIV, id, piv, out []byte) (int, error) {
	n := len(commonIV)
	if n < minNonceLen {
		return 0, ErrCommonIVLength
	}
	idLen := n - 1 - option.MaxPIVLen
	if len(id) > idLen {
		return 0, ErrIDTooLong
	}
	if len(piv) > option.MaxPIVLen {
		return 0, option.ErrInvalidPIVLength
	}
	if len(out) < n {
		return 0, ErrBufferTooSmall
	}
	out = out[:n]
	for i := range out {
		out[i] = 0
	}
	out[0] = byte(len(id))
	copy(out[1+idLen-len(id):], id)
	copy(out[n-len(piv):], piv)
	for i := range out {
		out[i] ^= commonIV[i]
	}
	return n, nil
}
