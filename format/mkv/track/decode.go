package track

import (
	"bytes"
	"compress/bzip2"
	"compress/zlib"
	"io"

	"github.com/cockroachdb/errors"
)

var ErrUnsupportedCompression = errors.New("track: unsupported content compression")

// maxInflated bounds the size of one decompressed frame.
const maxInflated = 64 << 20

// Decode undoes the frame-scope content encoding of t on one frame payload.
func (t *Track) Decode(frame []byte) ([]byte, error) {
	if t.Compression == CompressNone || t.EncodingScope&ScopeFrames == 0 {
		return frame, nil
	}
	return t.decode(frame)
}

func (t *Track) decode(b []byte) ([]byte, error) {
	switch t.Compression {
	case CompressHeaderStrip:
		out := make([]byte, 0, len(t.CompressionSettings)+len(b))
		return append(append(out, t.CompressionSettings...), b...), nil
	case CompressZlib:
		zr, err := zlib.NewReader(bytes.NewReader(b))
		if err != nil {
			return nil, errors.Wrap(err, "zlib")
		}
		defer zr.Close()
		return inflate(zr)
	case CompressBzlib:
		return inflate(bzip2.NewReader(bytes.NewReader(b)))
	}
	return nil, errors.Wrapf(ErrUnsupportedCompression, "algorithm %d", t.Compression)
}

func inflate(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, maxInflated+1))
	if err != nil {
		return nil, errors.Wrap(err, "inflate")
	}
	if n > maxInflated {
		return nil, errors.Newf("track: inflated frame exceeds %d bytes", maxInflated)
	}
	return buf.Bytes(), nil
}
