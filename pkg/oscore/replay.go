package oscore

import (
	"github.com/oscore-edhoc/wire/pkg/protocol"
)

// ReplayWindowSize is the number of sequence numbers below the highest one seen that are still
// accepted out of order.
const ReplayWindowSize = 32

var (
	// ErrReplay indicates a sequence number that was already accepted.
	ErrReplay = protocol.NewError(protocol.KindPolicyViolation, "oscore: replayed sequence number")
	// ErrStale indicates a sequence number too old for the replay window to vouch for.
	ErrStale = protocol.NewError(protocol.KindPolicyViolation, "oscore: sequence number outside replay window")
)

// slideWindow takes the highest accepted sequence number, the window of sequence numbers below it
// (bit i set if highest-i-1 was accepted) and a received sequence number. It returns the updated
// state and nil if seq has not been accepted before. On error the state is returned unchanged.
func slideWindow(highest uint64, window uint32, seq uint64) (uint64, uint32, error) {
	if seq == highest {
		return highest, window, ErrReplay
	}
	if seq < highest {
		age := highest - seq
		if age > ReplayWindowSize {
			return highest, window, ErrStale
		}
		if window>>(age-1)&1 == 1 {
			return highest, window, ErrReplay
		}
		return highest, window | 1<<(age-1), nil
	}

	shift := seq - highest
	if shift > ReplayWindowSize {
		return seq, 0, nil
	}
	// The previous highest value moves into the window.
	window = window<<shift | 1<<(shift-1)
	return seq, window, nil
}

// ReplayWindow tracks which sequence numbers a recipient has accepted. The zero value accepts any
// first sequence number.
type ReplayWindow struct {
	highest uint64
	window  uint32
	used    bool
}

// Check returns nil if seq would be accepted, without recording it. Use it before decrypting.
func (w *ReplayWindow) Check(seq uint64) error {
	if !w.used {
		return nil
	}
	_, _, err := slideWindow(w.highest, w.window, seq)
	return err
}

// Accept records seq. Call it only after the message carrying seq has been verified.
func (w *ReplayWindow) Accept(seq uint64) error {
	if !w.used {
		w.used = true
		w.highest = seq
		return nil
	}
	highest, window, err := slideWindow(w.highest, w.window, seq)
	if err != nil {
		return err
	}
	w.highest, w.window = highest, window
	return nil
}

// Highest returns the largest accepted sequence number and whether any has been accepted.
func (w *ReplayWindow) Highest() (uint64, bool) {
	return w.highest, w.used
}
