package edhoc

import (
	"github.com/oscore-edhoc/wire/pkg/cbor"
	"github.com/oscore-edhoc/wire/pkg/protocol"
)

// Static bounds on repeated fields of message_1.
const (
	MaxSuites   = 3
	MaxEADItems = 3
)

var (
	// ErrInvalidSuites indicates a SUITES_I array with fewer than two entries.
	ErrInvalidSuites = protocol.NewError(protocol.KindMalformedInput, "edhoc: SUITES_I array needs at least two suites")
	// ErrNoSuites indicates a Message1 with no cipher suites to encode.
	ErrNoSuites = protocol.NewError(protocol.KindPolicyViolation, "edhoc: no cipher suites")
)

// ConnectionID is a bstr_identifier: either a byte string or an integer.
type ConnectionID struct {
	IsBytes bool
	Bytes   []byte
	Int     int64
}

func (c *ConnectionID) encodedLen() int {
	if c.IsBytes {
		return cbor.BstrSize(len(c.Bytes))
	}
	return cbor.IntSize(c.Int)
}

func (c *ConnectionID) encode(enc *cbor.Encoder) error {
	if c.IsBytes {
		return enc.Bstr(c.Bytes)
	}
	return enc.Int(c.Int)
}

func decodeConnectionID(dec *cbor.Decoder) (ConnectionID, error) {
	major, err := dec.Peek()
	if err != nil {
		return ConnectionID{}, err
	}
	if major == cbor.MajorBstr {
		b, err := dec.Bstr()
		return ConnectionID{IsBytes: true, Bytes: b}, err
	}
	v, err := dec.Int()
	return ConnectionID{Int: v}, err
}

// EADItem is an external authorization data item. Value is nil if the item has no value.
type EADItem struct {
	Label int64
	Value []byte
}

// Message1 is the first EDHOC message:
//
//	message_1 = ( METHOD : int, SUITES_I : [ 2* suite ] / suite, G_X : bstr,
//	              C_I : bstr_identifier, ? EAD_1 : 1* ( ead_label : int, ? ead_value : bstr ) )
//
// Byte string fields alias the buffer passed to DecodeMessage1.
type Message1 struct {
	Method    int64
	Suites    [MaxSuites]int64
	NumSuites int
	GX        []byte
	CI        ConnectionID
	EAD       [MaxEADItems]EADItem
	NumEAD    int
}

// SuitesI returns the initiator's cipher suites in order of preference.
func (m *Message1) SuitesI() []int64 {
	return m.Suites[:m.NumSuites]
}

// SelectedSuite returns the suite the initiator selected, which is the last one listed.
func (m *Message1) SelectedSuite() int64 {
	if m.NumSuites == 0 {
		return 0
	}
	return m.Suites[m.NumSuites-1]
}

// EADItems returns the external authorization data items.
func (m *Message1) EADItems() []EADItem {
	return m.EAD[:m.NumEAD]
}

// DecodeMessage1 parses message_1. The whole of b must be consumed.
func DecodeMessage1(b []byte) (Message1, error) {
	var m Message1
	dec := cbor.NewDecoder(b)

	method, err := dec.Int()
	if err != nil {
		return Message1{}, err
	}
	m.Method = method

	major, err := dec.Peek()
	if err != nil {
		return Message1{}, err
	}
	if major == cbor.MajorArray {
		count, err := dec.Array(MaxSuites)
		if err != nil {
			return Message1{}, err
		}
		if count < 2 {
			return Message1{}, ErrInvalidSuites
		}
		for i := 0; i < count; i++ {
			if m.Suites[i], err = dec.Int(); err != nil {
				return Message1{}, err
			}
		}
		m.NumSuites = count
	} else {
		if m.Suites[0], err = dec.Int(); err != nil {
			return Message1{}, err
		}
		m.NumSuites = 1
	}

	if m.GX, err = dec.Bstr(); err != nil {
		return Message1{}, err
	}
	if m.CI, err = decodeConnectionID(dec); err != nil {
		return Message1{}, err
	}

	for !dec.Done() {
		if m.NumEAD == MaxEADItems {
			return Message1{}, cbor.ErrTooManyElements
		}
		item := &m.EAD[m.NumEAD]
		if item.Label, err = dec.Int(); err != nil {
			return Message1{}, err
		}
		if major, err := dec.Peek(); err == nil && major == cbor.MajorBstr {
			if item.Value, err = dec.Bstr(); err != nil {
				return Message1{}, err
			}
		}
		m.NumEAD++
	}
	return m, nil
}

// EncodedLen returns the number of bytes Encode writes.
func (m *Message1) EncodedLen() int {
	n := cbor.IntSize(m.Method)
	if m.NumSuites > 1 {
		n += cbor.ArrayHeaderSize(m.NumSuites)
	}
	for _, s := range m.SuitesI() {
		n += cbor.IntSize(s)
	}
	n += cbor.BstrSize(len(m.GX))
	n += m.CI.encodedLen()
	for _, item := range m.EADItems() {
		n += cbor.IntSize(item.Label)
		if item.Value != nil {
			n += cbor.BstrSize(len(item.Value))
		}
	}
	return n
}

// Encode writes m to out and returns the number of bytes written. A single suite is encoded as an
// integer, several as an array.
func (m *Message1) Encode(out []byte) (int, error) {
	if m.NumSuites < 1 || m.NumSuites > MaxSuites {
		return 0, ErrNoSuites
	}
	if m.NumEAD < 0 || m.NumEAD > MaxEADItems {
		return 0, cbor.ErrTooManyElements
	}
	size := m.EncodedLen()
	if len(out) < size {
		return 0, ErrBufferTooSmall
	}
	enc := cbor.NewEncoder(out[:size])
	if err := enc.Int(m.Method); err != nil {
		return 0, err
	}
	if m.NumSuites > 1 {
		if err := enc.Array(m.NumSuites); err != nil {
			return 0, err
		}
	}
	for _, s := range m.SuitesI() {
		if err := enc.Int(s); err != nil {
			return 0, err
		}
	}
	if err := enc.Bstr(m.GX); err != nil {
		return 0, err
	}
	if err := m.CI.encode(enc); err != nil {
		return 0, err
	}
	for _, item := range m.EADItems() {
		if err := enc.Int(item.Label); err != nil {
			return 0, err
		}
		if item.Value != nil {
			if err := enc.Bstr(item.Value); err != nil {
				return 0, err
			}
		}
	}
	return enc.Len(), nil
}
