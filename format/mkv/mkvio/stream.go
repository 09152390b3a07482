package mkvio

import (
	"bufio"
	"io"

	"github.com/cockroachdb/errors"
)

var ErrNotSeekable = errors.New("mkvio: stream cannot seek backwards that far")

// RewindWindow is how far a non seekable Stream can seek backwards.
const RewindWindow = 256 << 10

// Stream is the byte cursor every Matroska reader in this module works on.
// Seekable sources (io.ReadSeeker) are buffered and seek freely; any other
// reader keeps a rewind window of recent bytes and can only skip forward past it.
type Stream struct {
	rs   io.ReadSeeker
	br   *bufio.Reader
	r    io.Reader
	pos  int64
	size int64
	fast bool

	// non seekable sources: hist holds the bytes [head-len(hist), head)
	hist []byte
	head int64
}

func NewStream(r io.Reader) *Stream {
	s := &Stream{r: r, size: -1}
	if rs, ok := r.(io.ReadSeeker); ok {
		if cur, err := rs.Seek(0, io.SeekCurrent); err == nil {
			s.rs = rs
			s.pos = cur
			s.fast = true
			if end, err := rs.Seek(0, io.SeekEnd); err == nil {
				s.size = end
			}
			if _, err := rs.Seek(cur, io.SeekStart); err != nil {
				s.rs = nil
			}
		}
	}
	if s.rs != nil {
		s.br = bufio.NewReaderSize(s.rs, 64<<10)
	} else if sz, ok := r.(interface{ Size() int64 }); ok {
		s.size = sz.Size()
	}
	return s
}

// CanSeek reports whether arbitrary backward seeks are possible.
func (s *Stream) CanSeek() bool {
	return s.rs != nil
}

// CanFastSeek reports whether seeking is cheap enough to jump around the file
// for cues, chapters and tags.
func (s *Stream) CanFastSeek() bool {
	return s.rs != nil && s.fast
}

func (s *Stream) SetFastSeek(fast bool) {
	s.fast = fast
}

// Size returns the total stream size or -1 when unknown.
func (s *Stream) Size() int64 {
	return s.size
}

func (s *Stream) Tell() int64 {
	return s.pos
}

func (s *Stream) Read(p []byte) (int, error) {
	if s.rs != nil {
		n, err := s.br.Read(p)
		s.pos += int64(n)
		return n, err
	}

	if s.pos < s.head {
		off := len(s.hist) - int(s.head-s.pos)
		n := copy(p, s.hist[off:])
		s.pos += int64(n)
		return n, nil
	}

	n, err := s.r.Read(p)
	if n > 0 {
		s.remember(p[:n])
		s.pos += int64(n)
	}
	return n, err
}

func (s *Stream) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(s, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (s *Stream) remember(p []byte) {
	s.hist = append(s.hist, p...)
	s.head += int64(len(p))
	if len(s.hist) > 2*RewindWindow {
		keep := s.hist[len(s.hist)-RewindWindow:]
		s.hist = append(s.hist[:0], keep...)
	}
}

func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekCurrent:
		offset += s.pos
	case io.SeekEnd:
		if s.size < 0 {
			return s.pos, errors.Wrap(ErrNotSeekable, "size unknown")
		}
		offset += s.size
	}
	if offset < 0 {
		return s.pos, errors.Newf("mkvio: negative seek offset %d", offset)
	}
	if offset == s.pos {
		return s.pos, nil
	}

	if s.rs != nil {
		if offset > s.pos && offset-s.pos <= int64(s.br.Buffered()) {
			n, err := s.br.Discard(int(offset - s.pos))
			s.pos += int64(n)
			return s.pos, err
		}
		if _, err := s.rs.Seek(offset, io.SeekStart); err != nil {
			return s.pos, errors.Wrapf(err, "seek to %d", offset)
		}
		s.br.Reset(s.rs)
		s.pos = offset
		return s.pos, nil
	}

	if offset < s.head-int64(len(s.hist)) {
		return s.pos, errors.Wrapf(ErrNotSeekable, "seek to %d, window starts at %d", offset, s.head-int64(len(s.hist)))
	}
	if offset <= s.head {
		s.pos = offset
		return s.pos, nil
	}

	s.pos = s.head
	if _, err := io.CopyN(io.Discard, s, offset-s.head); err != nil {
		return s.pos, unexpected(err)
	}
	return s.pos, nil
}

// Peek returns the next n bytes without consuming them.
func (s *Stream) Peek(n int) ([]byte, error) {
	if s.rs != nil {
		return s.br.Peek(n)
	}
	pos := s.pos
	b := make([]byte, n)
	m, err := io.ReadFull(s, b)
	if _, serr := s.Seek(pos, io.SeekStart); serr != nil {
		return nil, serr
	}
	return b[:m], err
}
