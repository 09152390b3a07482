// Package mkviotest builds EBML byte trees for tests.
package mkviotest

import (
	"encoding/binary"
	"math"

	"github.com/vdkmedia/mkvdemux/format/mkv/mkvio"
)

// Size encodes n as the shortest size vint that does not collide with the
// unknown-size marker.
func Size(n int) []byte {
	v := uint64(n)
	for l := 1; l <= 8; l++ {
		if v < 1<<(7*uint(l))-1 {
			b := make([]byte, l)
			for i := l - 1; i >= 0; i-- {
				b[i] = byte(v)
				v >>= 8
			}
			b[0] |= 0x80 >> uint(l-1)
			return b
		}
	}
	panic("mkviotest: size out of range")
}

func Concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func Raw(id uint32, payload []byte) []byte {
	return Concat(mkvio.EncodeID(id), Size(len(payload)), payload)
}

func Master(reg mkvio.ElementRegister, children ...[]byte) []byte {
	return Raw(reg.ID, Concat(children...))
}

// UnknownMaster writes a master whose size is the 8 byte unknown marker.
func UnknownMaster(reg mkvio.ElementRegister, children ...[]byte) []byte {
	return Concat(mkvio.EncodeID(reg.ID), []byte{0x01, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, Concat(children...))
}

func Uint(reg mkvio.ElementRegister, v uint64) []byte {
	n := 1
	for n < 8 && v>>(8*uint(n)) != 0 {
		n++
	}
	return UintN(reg, v, n)
}

func UintN(reg mkvio.ElementRegister, v uint64, n int) []byte {
	b := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return Raw(reg.ID, b)
}

func Int(reg mkvio.ElementRegister, v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return Raw(reg.ID, b)
}

func Float(reg mkvio.ElementRegister, v float64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, math.Float64bits(v))
	return Raw(reg.ID, b)
}

func String(reg mkvio.ElementRegister, s string) []byte {
	return Raw(reg.ID, []byte(s))
}

func Binary(reg mkvio.ElementRegister, b []byte) []byte {
	return Raw(reg.ID, b)
}

// Header writes an EBML header for docType.
func Header(docType string) []byte {
	return Master(mkvio.ElementEBML,
		Uint(mkvio.ElementEBMLVersion, 1),
		Uint(mkvio.ElementEBMLReadVersion, 1),
		Uint(mkvio.ElementEBMLMaxIDLength, 4),
		Uint(mkvio.ElementEBMLMaxSizeLength, 8),
		String(mkvio.ElementDocType, docType),
		Uint(mkvio.ElementDocTypeVersion, 4),
		Uint(mkvio.ElementDocTypeReadVersion, 2),
	)
}

func blockPayload(track uint64, timecode int16, flags byte, frame []byte) []byte {
	b := Size(int(track))
	var tc [2]byte
	binary.BigEndian.PutUint16(tc[:], uint16(timecode))
	return Concat(b, tc[:], []byte{flags}, frame)
}

// SimpleBlock writes an unlaced SimpleBlock.
func SimpleBlock(track uint64, timecode int16, key bool, frame []byte) []byte {
	var flags byte
	if key {
		flags |= 0x80
	}
	return Raw(mkvio.ElementSimpleBlock.ID, blockPayload(track, timecode, flags, frame))
}

// XiphLaced writes a SimpleBlock with Xiph lacing.
func XiphLaced(track uint64, timecode int16, frames ...[]byte) []byte {
	head := []byte{byte(len(frames) - 1)}
	for _, f := range frames[:len(frames)-1] {
		n := len(f)
		for n >= 255 {
			head = append(head, 255)
			n -= 255
		}
		head = append(head, byte(n))
	}
	return Raw(mkvio.ElementSimpleBlock.ID, blockPayload(track, timecode, 0x80|0x02, Concat(head, Concat(frames...))))
}

// BlockGroup wraps a Block with optional duration and reference.
func BlockGroup(track uint64, timecode int16, frame []byte, duration uint64, refs ...int64) []byte {
	children := [][]byte{Raw(mkvio.ElementBlock.ID, blockPayload(track, timecode, 0, frame))}
	if duration > 0 {
		children = append(children, Uint(mkvio.ElementBlockDuration, duration))
	}
	for _, r := range refs {
		children = append(children, Int(mkvio.ElementReferenceBlock, r))
	}
	return Master(mkvio.ElementBlockGroup, children...)
}
