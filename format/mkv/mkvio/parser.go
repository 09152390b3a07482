package mkvio

import (
	"io"

	"github.com/cockroachdb/errors"
)

var (
	ErrParse         = errors.New("mkvio: parse error")
	ErrUnexpectedEOF = errors.New("mkvio: unexpected EOF")
	ErrTooLarge      = errors.New("mkvio: element payload too large")
)

// MaxDataSize bounds the payload read into memory for a single non-master element.
const MaxDataSize = 64 << 20

// ReadElementHeader parses an EBML element header starting at the stream's
// current position.
func ReadElementHeader(s *Stream) (Element, error) {
	var el Element

	el.Pos = s.Tell()
	id, err := readID(s)
	if err != nil {
		return el, err
	}
	size, err := readSize(s)
	if err != nil {
		return el, err
	}

	el.ElementRegister = GetElementRegister(id)
	el.DataPos = s.Tell()
	el.Size = size
	return el, nil
}

// ReadElementAt seeks to pos and parses the element header found there.
func ReadElementAt(s *Stream, pos int64) (Element, error) {
	if _, err := s.Seek(pos, io.SeekStart); err != nil {
		return Element{}, err
	}
	return ReadElementHeader(s)
}

// readID parses a class A to D element id; the length marker is kept as part
// of the id, as in the Matroska id tables.
func readID(s *Stream) (uint32, error) {
	b, err := s.ReadByte()
	if err != nil {
		return 0, err
	}

	var length int
	switch {
	case b&0x80 != 0: // Class A ID (on 1 byte)
		length = 1
	case b&0x40 != 0: // Class B ID (on 2 bytes)
		length = 2
	case b&0x20 != 0: // Class C ID (on 3 bytes)
		length = 3
	case b&0x10 != 0: // Class D ID (on 4 bytes)
		length = 4
	default:
		return 0, errors.Wrapf(ErrParse, "invalid id marker 0x%02x at %d", b, s.Tell()-1)
	}

	bb := [4]byte{b}
	if length > 1 {
		if _, err := io.ReadFull(s, bb[1:length]); err != nil {
			return 0, unexpected(err)
		}
	}
	return uint32(pack(length, bb[:length])), nil
}

// readSize parses a 1 to 8 byte size vint. A value with all data bits set
// means unknown size.
func readSize(s *Stream) (int64, error) {
	b, err := s.ReadByte()
	if err != nil {
		return 0, unexpected(err)
	}
	if b == 0 {
		return 0, errors.Wrapf(ErrParse, "invalid size marker at %d", s.Tell()-1)
	}

	length := 1
	mask := byte(0x80)
	for b&mask == 0 {
		length++
		mask >>= 1
	}

	bb := [8]byte{b & (mask - 1)}
	if length > 1 {
		if _, err := io.ReadFull(s, bb[1:length]); err != nil {
			return 0, unexpected(err)
		}
	}

	v := pack(length, bb[:length])
	if v == 1<<(7*uint(length))-1 {
		return SizeUnknown, nil
	}
	if v > 1<<62 {
		return 0, errors.Wrapf(ErrParse, "element size %d out of range", v)
	}
	return int64(v), nil
}

// ReadVint parses a size-style vint from b (used by lacing and block headers)
// and returns the value and the number of bytes consumed.
func ReadVint(b []byte) (uint64, int, error) {
	if len(b) == 0 || b[0] == 0 {
		return 0, 0, ErrParse
	}
	length := 1
	mask := byte(0x80)
	for b[0]&mask == 0 {
		length++
		mask >>= 1
	}
	if len(b) < length {
		return 0, 0, ErrUnexpectedEOF
	}
	bb := make([]byte, length)
	copy(bb, b[:length])
	bb[0] &= mask - 1
	return pack(length, bb), length, nil
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return ErrUnexpectedEOF
	}
	return err
}
