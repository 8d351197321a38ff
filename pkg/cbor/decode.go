package cbor

import (
	"math"
)

// decodeHead parses the initial byte and argument of the item at the start of b.
func decodeHead(b []byte) (major MajorType, arg uint64, n int, err error) {
	if len(b) == 0 {
		return 0, 0, 0, ErrTruncated
	}
	major = MajorType(b[0] >> 5)
	info := b[0] & 0x1f
	if info < infoUint8 {
		return major, uint64(info), 1, nil
	}
	if info > infoUint64 {
		// 28..30 are reserved, 31 is indefinite length.
		return 0, 0, 0, ErrReservedInfo
	}
	size := 1 << (info - infoUint8)
	if len(b)-1 < size {
		return 0, 0, 0, ErrTruncated
	}
	for _, c := range b[1 : 1+size] {
		arg = arg<<8 | uint64(c)
	}
	return major, arg, 1 + size, nil
}

// PeekMajor returns the major type of the item at the start of b without consuming it.
func PeekMajor(b []byte) (MajorType, error) {
	major, _, _, err := decodeHead(b)
	return major, err
}

// DecodeUint decodes an unsigned integer from the start of b and returns the value and the number
// of bytes consumed.
func DecodeUint(b []byte) (v uint64, n int, err error) {
	major, arg, n, err := decodeHead(b)
	if err != nil {
		return 0, 0, err
	}
	if major != MajorUint {
		return 0, 0, ErrWrongType
	}
	return arg, n, nil
}

// DecodeInt decodes an unsigned or negative integer from the start of b.
func DecodeInt(b []byte) (v int64, n int, err error) {
	major, arg, n, err := decodeHead(b)
	if err != nil {
		return 0, 0, err
	}
	if major != MajorUint && major != MajorNint {
		return 0, 0, ErrWrongType
	}
	if arg > math.MaxInt64 {
		return 0, 0, ErrIntegerOverflow
	}
	if major == MajorNint {
		return -1 - int64(arg), n, nil
	}
	return int64(arg), n, nil
}

func decodeString(b []byte, want MajorType) ([]byte, int, error) {
	major, arg, n, err := decodeHead(b)
	if err != nil {
		return nil, 0, err
	}
	if major != want {
		return nil, 0, ErrWrongType
	}
	if arg > uint64(len(b)-n) {
		return nil, 0, ErrTruncated
	}
	end := n + int(arg)
	return b[n:end:end], end, nil
}

// DecodeBstr decodes a byte string from the start of b. The returned slice aliases b; it is
// non-nil even when the string is empty.
func DecodeBstr(b []byte) (value []byte, n int, err error) {
	return decodeString(b, MajorBstr)
}

// DecodeTstr decodes a text string from the start of b. The returned slice aliases b. UTF-8
// validity is not checked.
func DecodeTstr(b []byte) (value []byte, n int, err error) {
	return decodeString(b, MajorTstr)
}

// DecodeArrayHeader decodes a definite-length array header from the start of b. The array may
// contain at most max elements.
func DecodeArrayHeader(b []byte, max int) (count int, n int, err error) {
	major, arg, n, err := decodeHead(b)
	if err != nil {
		return 0, 0, err
	}
	if major != MajorArray {
		return 0, 0, ErrWrongType
	}
	if max < 0 || arg > uint64(max) {
		return 0, 0, ErrTooManyElements
	}
	return int(arg), n, nil
}

// A Decoder reads a sequence of CBOR items from a borrowed buffer. A failed read leaves the
// Decoder's position unchanged.
type Decoder struct {
	buf []byte
	off int
}

// NewDecoder returns a Decoder that reads from b.
func NewDecoder(b []byte) *Decoder {
	return &Decoder{buf: b}
}

func (d *Decoder) rest() []byte {
	return d.buf[d.off:]
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.off
}

// Offset returns the number of bytes read so far.
func (d *Decoder) Offset() int {
	return d.off
}

// Done returns true if every byte has been consumed.
func (d *Decoder) Done() bool {
	return d.off == len(d.buf)
}

// Peek returns the major type of the next item.
func (d *Decoder) Peek() (MajorType, error) {
	return PeekMajor(d.rest())
}

// Uint reads an unsigned integer.
func (d *Decoder) Uint() (uint64, error) {
	v, n, err := DecodeUint(d.rest())
	if err != nil {
		return 0, err
	}
	d.off += n
	return v, nil
}

// Int reads an unsigned or negative integer.
func (d *Decoder) Int() (int64, error) {
	v, n, err := DecodeInt(d.rest())
	if err != nil {
		return 0, err
	}
	d.off += n
	return v, nil
}

// Bstr reads a byte string.
func (d *Decoder) Bstr() ([]byte, error) {
	v, n, err := DecodeBstr(d.rest())
	if err != nil {
		return nil, err
	}
	d.off += n
	return v, nil
}

// Tstr reads a text string.
func (d *Decoder) Tstr() ([]byte, error) {
	v, n, err := DecodeTstr(d.rest())
	if err != nil {
		return nil, err
	}
	d.off += n
	return v, nil
}

// Array reads an array header of at most max elements.
func (d *Decoder) Array(max int) (int, error) {
	count, n, err := DecodeArrayHeader(d.rest(), max)
	if err != nil {
		return 0, err
	}
	d.off += n
	return count, nil
}
