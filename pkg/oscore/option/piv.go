package option

import (
	"github.com/oscore-edhoc/wire/pkg/protocol"
)

// MaxSSN is the largest sequence number representable as a Partial IV.
const MaxSSN = 1<<(8*MaxPIVLen) - 1

// ErrSSNTooLarge indicates a sequence number that can't be carried in a Partial IV.
var ErrSSNTooLarge = protocol.NewError(protocol.KindPolicyViolation, "option: sequence number exceeds 40 bits")

// PIVFromSSN writes the Partial IV for ssn into buf and returns the used prefix. The Partial IV is
// the big-endian encoding of ssn without leading zero bytes, except that zero is encoded as a
// single zero byte.
func PIVFromSSN(ssn uint64, buf *[MaxPIVLen]byte) ([]byte, error) {
	if ssn > MaxSSN {
		return nil, ErrSSNTooLarge
	}
	n := 1
	for v := ssn >> 8; v != 0; v >>= 8 {
		n++
	}
	for i := n - 1; i >= 0; i-- {
		buf[i] = byte(ssn)
		ssn >>= 8
	}
	return buf[:n], nil
}

// SSNFromPIV returns the sequence number encoded by a Partial IV.
func SSNFromPIV(piv []byte) (uint64, error) {
	if len(piv) == 0 || len(piv) > MaxPIVLen {
		return 0, ErrInvalidPIVLength
	}
	var ssn uint64
	for _, b := range piv {
		ssn = ssn<<8 | uint64(b)
	}
	return ssn, nil
}
