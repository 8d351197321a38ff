package oscore

import (
	"errors"

	"github.com/oscore-edhoc/wire/pkg/oscore/option"
	"github.com/oscore-edhoc/wire/pkg/oscore/ssn"
)

// Sender produces the OSCORE option of outbound requests for one security context.
type Sender struct {
	Counter *ssn.Counter
	// IncludeIDContext sends the context's ID context in the kid context field.
	IncludeIDContext bool
}

func (s *Sender) kidContext() []byte {
	if !s.IncludeIDContext {
		return nil
	}
	return s.Counter.IDContext()
}

// NextOption consumes the next sequence number and encodes the request option carrying it into
// out. It returns the number of bytes written and the sequence number used.
//
// The size of out is checked before a sequence number is consumed. A failed checkpoint doesn't
// prevent the option from being written; in that case the returned error wraps
// ssn.ErrCheckpointFailed and the caller decides whether to send.
func (s *Sender) NextOption(out []byte) (int, uint64, error) {
	var pivBuf [option.MaxPIVLen]byte
	piv, err := option.PIVFromSSN(s.Counter.Peek(), &pivBuf)
	if err != nil {
		return 0, 0, ssn.ErrExhausted
	}
	if len(out) < option.EncodedLen(piv, s.kidContext(), s.Counter.SenderID()) {
		return 0, 0, option.ErrBufferTooSmall
	}

	seq, err := s.Counter.Next()
	if err != nil && !errors.Is(err, ssn.ErrCheckpointFailed) {
		return 0, 0, err
	}
	checkpointErr := err
	if piv, err = option.PIVFromSSN(seq, &pivBuf); err != nil {
		return 0, 0, err
	}
	n, err := option.Encode(out, piv, s.kidContext(), s.Counter.SenderID())
	if err != nil {
		return 0, 0, err
	}
	return n, seq, checkpointErr
}
