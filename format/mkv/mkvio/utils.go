package mkvio

func pack(n int, b []byte) uint64 {
	var v uint64
	for i := 0; i < n; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// EncodeID returns the on-disk bytes of an element id.
func EncodeID(id uint32) []byte {
	switch {
	case id >= 1<<24:
		return unpack(4, uint64(id))
	case id >= 1<<16:
		return unpack(3, uint64(id))
	case id >= 1<<8:
		return unpack(2, uint64(id))
	}
	return unpack(1, uint64(id))
}

func unpack(n int, v uint64) []byte {
	b := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}
