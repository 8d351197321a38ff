package cbor

import (
	"encoding/binary"
	"math"
)

// HeadSize returns the number of bytes needed to encode an item header with argument arg.
func HeadSize(arg uint64) int {
	switch {
	case arg < infoUint8:
		return 1
	case arg <= math.MaxUint8:
		return 2
	case arg <= math.MaxUint16:
		return 3
	case arg <= math.MaxUint32:
		return 5
	}
	return 9
}

// UintSize returns the encoded size of the unsigned integer v.
func UintSize(v uint64) int {
	return HeadSize(v)
}

// IntSize returns the encoded size of the integer v.
func IntSize(v int64) int {
	if v < 0 {
		return HeadSize(uint64(-(v + 1)))
	}
	return HeadSize(uint64(v))
}

// BstrSize returns the encoded size of a byte string of length n.
func BstrSize(n int) int {
	return HeadSize(uint64(n)) + n
}

// TstrSize returns the encoded size of a text string of length n.
func TstrSize(n int) int {
	return HeadSize(uint64(n)) + n
}

// ArrayHeaderSize returns the encoded size of the header of an array with n elements.
func ArrayHeaderSize(n int) int {
	return HeadSize(uint64(n))
}

func putHead(out []byte, major MajorType, arg uint64) int {
	m := byte(major) << 5
	switch HeadSize(arg) {
	case 1:
		out[0] = m | byte(arg)
		return 1
	case 2:
		out[0] = m | infoUint8
		out[1] = byte(arg)
		return 2
	case 3:
		out[0] = m | infoUint16
		binary.BigEndian.PutUint16(out[1:], uint16(arg))
		return 3
	case 5:
		out[0] = m | infoUint32
		binary.BigEndian.PutUint32(out[1:], uint32(arg))
		return 5
	}
	out[0] = m | infoUint64
	binary.BigEndian.PutUint64(out[1:], arg)
	return 9
}

func encodeHead(out []byte, major MajorType, arg uint64) (int, error) {
	if len(out) < HeadSize(arg) {
		return 0, ErrBufferTooSmall
	}
	return putHead(out, major, arg), nil
}

// EncodeUint writes v to out using the shortest encoding and returns the number of bytes written.
func EncodeUint(out []byte, v uint64) (int, error) {
	return encodeHead(out, MajorUint, v)
}

// EncodeInt writes v to out as an unsigned or negative integer.
func EncodeInt(out []byte, v int64) (int, error) {
	if v < 0 {
		return encodeHead(out, MajorNint, uint64(-(v + 1)))
	}
	return encodeHead(out, MajorUint, uint64(v))
}

func encodeString(out []byte, major MajorType, value []byte) (int, error) {
	if len(out) < BstrSize(len(value)) {
		return 0, ErrBufferTooSmall
	}
	n := putHead(out, major, uint64(len(value)))
	n += copy(out[n:], value)
	return n, nil
}

// EncodeBstr writes value to out as a byte string.
func EncodeBstr(out []byte, value []byte) (int, error) {
	return encodeString(out, MajorBstr, value)
}

// EncodeTstr writes value to out as a text string.
func EncodeTstr(out []byte, value string) (int, error) {
	if len(out) < TstrSize(len(value)) {
		return 0, ErrBufferTooSmall
	}
	n := putHead(out, MajorTstr, uint64(len(value)))
	n += copy(out[n:], value)
	return n, nil
}

// EncodeArrayHeader writes the header of an array with count elements.
func EncodeArrayHeader(out []byte, count int) (int, error) {
	return encodeHead(out, MajorArray, uint64(count))
}

// An Encoder writes a sequence of CBOR items into a fixed-capacity buffer. A failed write leaves
// the buffer and the Encoder's position unchanged.
type Encoder struct {
	buf []byte
	n   int
}

// NewEncoder returns an Encoder that writes into out. The capacity of the Encoder is len(out).
func NewEncoder(out []byte) *Encoder {
	return &Encoder{buf: out}
}

func (e *Encoder) advance(n int, err error) error {
	if err != nil {
		return err
	}
	e.n += n
	return nil
}

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int {
	return e.n
}

// Bytes returns the bytes written so far. The slice aliases the Encoder's buffer.
func (e *Encoder) Bytes() []byte {
	return e.buf[:e.n]
}

// Uint writes an unsigned integer.
func (e *Encoder) Uint(v uint64) error {
	return e.advance(EncodeUint(e.buf[e.n:], v))
}

// Int writes an unsigned or negative integer.
func (e *Encoder) Int(v int64) error {
	return e.advance(EncodeInt(e.buf[e.n:], v))
}

// Bstr writes a byte string.
func (e *Encoder) Bstr(value []byte) error {
	return e.advance(EncodeBstr(e.buf[e.n:], value))
}

// Tstr writes a text string.
func (e *Encoder) Tstr(value string) error {
	return e.advance(EncodeTstr(e.buf[e.n:], value))
}

// Array writes the header of an array with count elements.
func (e *Encoder) Array(count int) error {
	return e.advance(EncodeArrayHeader(e.buf[e.n:], count))
}
