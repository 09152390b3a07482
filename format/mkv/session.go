// Package mkv demuxes Matroska and WebM files: it links the segments found
// in one or more files, follows ordered chapters and their navigation
// commands, and sends timed elementary stream frames to an es.Sink.
package mkv

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/at-wat/ebml-go"
	"github.com/cockroachdb/errors"

	"github.com/vdkmedia/mkvdemux/format/mkv/chapcodec"
	"github.com/vdkmedia/mkvdemux/format/mkv/chapter"
	"github.com/vdkmedia/mkvdemux/format/mkv/es"
	"github.com/vdkmedia/mkvdemux/format/mkv/mkvio"
	"github.com/vdkmedia/mkvdemux/format/mkv/segment"
	"github.com/vdkmedia/mkvdemux/format/mkv/vsegment"
)

var (
	ErrNotMatroska = errors.New("mkv: not a matroska stream")
	ErrNoSegment   = errors.New("mkv: no segment found")
)

// Magic is the EBML header id every Matroska file starts with.
var Magic = []byte{0x1a, 0x45, 0xdf, 0xa3}

// Extensions lists the file name extensions of Matroska files.
var Extensions = []string{".mkv", ".mka", ".mks", ".mk3d", ".webm"}

type source struct {
	name   string
	st     *mkvio.Stream
	closer io.Closer
}

// Session is one demux session over the segments of one or more files.
// It is not safe for concurrent use.
type Session struct {
	opts Options
	log  *slog.Logger
	sink es.Sink

	sources  []*source
	segments []*segment.Segment
	vsegs    []*vsegment.VSegment
	cur      *vsegment.VSegment

	interp *chapcodec.Interpreter
	nav    *navIndex
	// depth counts nested chapter jumps made by chapter codecs.
	depth int

	// pts is the playback time of the last block sent.
	pts      time.Duration
	startPTS time.Duration
	lastPCR  time.Duration
	// chapterOffset maps segment-local block times onto the playback timeline.
	chapterOffset time.Duration
	// pending is a block read past the end of the current ordered chapter.
	pending *segment.Block

	titles    []Title
	seekpoint int
}

// Open probes r and starts a session sending to sink.
func Open(r io.Reader, sink es.Sink, opts Options) (*Session, error) {
	s := newSession(sink, opts)
	if err := s.addSource("", r, nil); err != nil {
		return nil, err
	}
	if err := s.start(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenFile opens path and, with PreloadLocalDir, every other Matroska file
// of its directory so that hard-linked segments spread over files join the
// session.
func OpenFile(path string, sink es.Sink, opts Options) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	s := newSession(sink, opts)
	if err := s.addSource(path, f, f); err != nil {
		f.Close()
		return nil, err
	}
	if opts.PreloadLocalDir {
		s.openSiblings(path)
	}
	if err := s.start(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func newSession(sink es.Sink, opts Options) *Session {
	if sink == nil {
		sink = &es.Nop{}
	}
	log := opts.logger()
	s := &Session{
		opts:      opts,
		log:       log,
		sink:      sink,
		seekpoint: -1,
	}
	if opts.ChapterCodec {
		s.interp = chapcodec.New(s, log)
	}
	return s
}

// IsMatroskaName reports whether name carries a Matroska extension.
func IsMatroskaName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func (s *Session) openSiblings(path string) {
	dir := filepath.Dir(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.log.Warn("cannot list directory", "dir", dir, "err", err)
		return
	}
	self, _ := filepath.Abs(path)
	for _, e := range entries {
		if e.IsDir() || !IsMatroskaName(e.Name()) {
			continue
		}
		name := filepath.Join(dir, e.Name())
		if abs, _ := filepath.Abs(name); abs == self {
			continue
		}
		f, err := os.Open(name)
		if err != nil {
			s.log.Debug("cannot open sibling", "file", name, "err", err)
			continue
		}
		if err := s.addSource(name, f, f); err != nil {
			s.log.Debug("sibling is not usable", "file", name, "err", err)
			f.Close()
		}
	}
}

// addSource probes r, checks its EBML DocType and registers its segments.
func (s *Session) addSource(name string, r io.Reader, closer io.Closer) error {
	st := mkvio.NewStream(r)
	magic, err := st.Peek(len(Magic))
	if err != nil || !bytes.Equal(magic, Magic) {
		return ErrNotMatroska
	}
	head, err := mkvio.ReadElementHeader(st)
	if err != nil {
		return errors.Wrap(ErrNotMatroska, err.Error())
	}
	if err := checkDocType(st, head); err != nil {
		return err
	}

	src := &source{name: name, st: st, closer: closer}
	found := 0
	for pos := head.End(); ; {
		el, err := mkvio.ReadElementAt(st, pos)
		if err != nil {
			break
		}
		if el.Is(mkvio.ElementSegment) {
			if s.addSegment(src, el) {
				found++
			}
		}
		if el.Unknown() || !st.CanSeek() {
			break
		}
		pos = el.End()
	}
	if found == 0 {
		return ErrNoSegment
	}
	s.sources = append(s.sources, src)
	return nil
}

type ebmlHeader struct {
	Header struct {
		EBMLVersion        uint64
		EBMLDocType        string
		EBMLDocTypeVersion uint64
	} `ebml:"EBML"`
}

func checkDocType(st *mkvio.Stream, head mkvio.Element) error {
	if head.Unknown() || head.Size > 4096 {
		return errors.Wrap(ErrNotMatroska, "bad EBML header size")
	}
	raw := make([]byte, head.End()-head.Pos)
	if _, err := st.Seek(head.Pos, io.SeekStart); err != nil {
		return err
	}
	if _, err := io.ReadFull(st, raw); err != nil {
		return errors.Wrap(ErrNotMatroska, "short EBML header")
	}
	var h ebmlHeader
	if err := ebml.Unmarshal(bytes.NewReader(raw), &h); err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrap(ErrNotMatroska, err.Error())
	}
	switch h.Header.EBMLDocType {
	case "matroska", "webm":
		return nil
	}
	return errors.Wrapf(ErrNotMatroska, "doc type %q", h.Header.EBMLDocType)
}

func (s *Session) addSegment(src *source, el mkvio.Element) bool {
	seg := segment.New(src.st, el, segment.Options{
		Ordered: s.opts.OrderedChapters,
		Dummy:   s.opts.DummyElements,
		Owner:   len(s.segments),
		Logger:  s.log.With("file", src.name),
	})
	if err := seg.Preload(); err != nil {
		s.log.Warn("cannot preload segment", "file", src.name, "pos", el.Pos, "err", err)
		return false
	}
	if seg.HasUID() {
		for _, o := range s.segments {
			if o.UID == seg.UID {
				s.log.Debug("segment already known", "uid", seg.UID)
				return false
			}
		}
	}
	s.segments = append(s.segments, seg)
	return true
}

// start builds the virtual segments and selects the first one.
func (s *Session) start() error {
	for _, seg := range s.segments {
		if s.vsegmentOf(seg) != nil {
			continue
		}
		s.vsegs = append(s.vsegs, vsegment.New(seg, s.segments, s.log))
	}
	if len(s.vsegs) == 0 {
		return ErrNoSegment
	}
	s.cur = s.vsegs[0]
	s.selectSegment(s.cur, s.cur.SegmentIndex())
	s.publish()
	s.pts = 0
	s.startPTS = 0
	s.updateChapter()
	return nil
}

func (s *Session) vsegmentOf(seg *segment.Segment) *vsegment.VSegment {
	for _, v := range s.vsegs {
		if v.Contains(seg) {
			return v
		}
	}
	return nil
}

// Segments returns every segment of the session in discovery order.
func (s *Session) Segments() []*segment.Segment {
	return s.segments
}

// VSegment returns the active virtual segment.
func (s *Session) VSegment() *vsegment.VSegment {
	return s.cur
}

// selectSegment makes segment i of v the one being read.
func (s *Session) selectSegment(v *vsegment.VSegment, i int) {
	if s.cur != v {
		s.cur.Segment().Unselect()
		s.cur = v
	}
	if old := v.Segment(); v.SegmentIndex() != i {
		old.Unselect()
	}
	v.SetSegment(i)
	s.pending = nil
	seg := v.Segment()
	if !seg.Selected() {
		if err := seg.Select(s.sink, 0); err != nil {
			s.log.Warn("cannot select segment", "err", err)
		}
		if err := seg.LoadCues(); err != nil {
			s.log.Warn("cannot load cues", "err", err)
		}
	}
	s.resetPCR()
}

func (s *Session) resetPCR() {
	s.sink.ResetPCR()
	s.lastPCR = -1
}

// Close releases the sink tracks and closes the files opened by OpenFile.
func (s *Session) Close() error {
	if s.cur != nil {
		s.cur.Segment().Unselect()
	}
	var err error
	for _, src := range s.sources {
		if src.closer != nil {
			if cerr := src.closer.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	}
	s.sources = nil
	return err
}

// chapterHandler adapts the chapter codecs to chapter.Handler for one arena.
type chapterHandler struct {
	s     *Session
	arena *chapter.Arena
}

func (h chapterHandler) Enter(id chapter.ID) bool {
	if h.s.interp == nil {
		return false
	}
	return h.s.interp.Enter(h.arena.Get(id))
}

func (h chapterHandler) Leave(id chapter.ID) bool {
	if h.s.interp == nil {
		return false
	}
	return h.s.interp.Leave(h.arena.Get(id))
}
