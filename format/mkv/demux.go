package mkv

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/vdkmedia/mkvdemux/format/mkv/chapter"
	"github.com/vdkmedia/mkvdemux/format/mkv/es"
	"github.com/vdkmedia/mkvdemux/format/mkv/segment"
)

// Status is the outcome of one Demux step.
type Status int

const (
	// More means Demux should be called again.
	More Status = iota
	EOF
)

func (st Status) String() string {
	if st == EOF {
		return "eof"
	}
	return "more"
}

// Demux performs one step: a chapter transition when playback reached one,
// otherwise one block read and sent to the sink. Corrupt data ends the
// stream quietly; only I/O and sink errors are returned.
func (s *Session) Demux() (Status, error) {
	if s.cur == nil {
		return EOF, ErrNoSegment
	}
	if st, done := s.updateChapter(); done {
		return st, nil
	}

	if b := s.pending; b != nil {
		s.pending = nil
		if err := s.send(b); err != nil {
			return EOF, err
		}
		return More, nil
	}

	b, err := s.cur.Segment().NextBlock()
	switch {
	case err == nil:
	case errors.Is(err, segment.ErrEndOfSegment), errors.Is(err, segment.ErrNoCluster):
		return s.endOfSegment(), nil
	default:
		s.log.Warn("read failed, stopping", "err", err)
		return EOF, err
	}
	if err := s.send(b); err != nil {
		return EOF, err
	}
	return More, nil
}

// updateChapter follows the chapter layout of the current edition. done is
// set when the step is over without reading a block.
func (s *Session) updateChapter() (st Status, done bool) {
	v := s.cur
	ed := v.Edition()
	if ed == nil || len(ed.Chapters) == 0 {
		return More, false
	}
	cur := v.Chapter()

	if v.Ordered() {
		if cur != chapter.None {
			if c := v.Arena().Get(cur); s.pts < c.UserEnd {
				return More, false
			}
		}
		next := ed.FindTimecode(s.pts)
		if next == chapter.None {
			if cur == chapter.None {
				next = ed.Chapters[0]
			} else {
				return EOF, true
			}
		}
		if next == cur {
			return More, false
		}
		s.enterChapter(next, false)
		return More, true
	}

	next := ed.FindTimecode(s.pts)
	if next == cur || next == chapter.None {
		return More, false
	}
	v.SetChapter(next)
	s.seekpoint = s.seekpointOf(next)
	if v.Arena().EnterAndLeave(cur, next, s.handler()) {
		return More, true
	}
	return More, false
}

// endOfSegment moves on once the blocks of the current segment run out.
func (s *Session) endOfSegment() Status {
	v := s.cur
	if v.Ordered() {
		cur := v.Chapter()
		if cur == chapter.None {
			return EOF
		}
		// the chapter ended early; continue with the one after it
		next := v.Edition().FindTimecode(v.Arena().Get(cur).UserEnd)
		if next == chapter.None || next == cur {
			return EOF
		}
		s.enterChapter(next, false)
		return More
	}

	i := v.SegmentIndex() + 1
	if i >= len(v.Segments) {
		return EOF
	}
	s.log.Debug("next linked segment", "index", i, "uid", v.Segments[i].UID)
	s.selectSegment(v, i)
	s.chapterOffset = 0
	return More
}

// enterChapter starts playing chapter id of the current edition: the segment
// holding it is selected, reading resumes at its start and the chapter
// codecs run. Without jump, a chapter that continues the previous one in
// the same segment is entered without seeking. It reports whether a codec
// navigated elsewhere.
func (s *Session) enterChapter(id chapter.ID, jump bool) bool {
	v := s.cur
	c := v.Arena().Get(id)
	if c == nil {
		return false
	}
	prev := v.Chapter()

	offset := time.Duration(0)
	if v.Ordered() {
		offset = v.ChapterOffset(id)
	}
	i := v.ChapterSegment(id)
	if i < 0 {
		i = v.SegmentIndex()
	}
	contiguous := !jump && prev != chapter.None && i == v.SegmentIndex() &&
		offset == s.chapterOffset && v.Arena().Get(prev).UserEnd == c.UserStart
	if !contiguous {
		s.pending = nil
		if i != v.SegmentIndex() {
			s.selectSegment(v, i)
		}
		if err := v.Segment().Seek(c.UserStart, offset, false); err != nil {
			s.log.Warn("cannot seek to chapter", "chapter", c.UID, "err", err)
		}
		s.resetPCR()
		s.startPTS = c.UserStart
	}
	s.chapterOffset = offset
	s.pts = c.UserStart
	v.SetChapter(id)
	s.seekpoint = s.seekpointOf(id)
	s.log.Debug("entering chapter", "uid", c.UID, "start", c.UserStart, "segment", i)
	return v.Arena().EnterAndLeave(prev, id, s.handler())
}

// seekpointOf returns the published seekpoint of id or of its closest
// published ancestor.
func (s *Session) seekpointOf(id chapter.ID) int {
	a := s.cur.Arena()
	for c := a.Get(id); c != nil; c = a.Get(c.Parent) {
		if c.Seekpoint >= 0 {
			return c.Seekpoint
		}
	}
	return -1
}

// pastChapter reports whether pts lies after the end of the ordered chapter
// being played.
func (s *Session) pastChapter(pts time.Duration) bool {
	if !s.cur.Ordered() {
		return false
	}
	c := s.cur.Arena().Get(s.cur.Chapter())
	return c != nil && c.UserEnd > c.UserStart && pts >= c.UserEnd
}

func (s *Session) handler() chapterHandler {
	return chapterHandler{s: s, arena: s.cur.Arena()}
}

// send hands every frame of b to the sink.
func (s *Session) send(b *segment.Block) error {
	t := b.Track
	pts := s.chapterOffset + b.Time
	if !b.Preroll {
		past := s.pastChapter(pts)
		s.pts = pts
		if past {
			// held for the chapter that follows; dropped if entering it seeks
			s.pending = b
			return nil
		}
	}
	if !t.Bound || !s.sink.Enabled(t.Handle) {
		return nil
	}
	if t.SearchKeyframe {
		if !b.KeyFrame {
			return nil
		}
		t.SearchKeyframe = false
	}
	if !b.Preroll && pts >= s.startPTS && pts > s.lastPCR {
		s.sink.SetPCR(pts)
		s.lastPCR = pts
	}

	var dur time.Duration
	if b.Duration > 0 && len(b.Frames) > 0 {
		dur = b.Duration / time.Duration(len(b.Frames))
	}
	video := t.Category() == es.Video
	for i, data := range b.Frames {
		f := es.Frame{
			Data:        data,
			PTS:         es.NoPTS,
			DTS:         es.NoPTS,
			Duration:    dur,
			KeyFrame:    b.KeyFrame && i == 0,
			Discardable: b.Discardable,
			Preroll:     b.Preroll,
		}
		switch {
		case i == 0:
			f.PTS = pts
		case t.DefaultDuration > 0:
			f.PTS = pts + time.Duration(i)*t.DefaultDuration
		}
		if !video {
			f.DTS = f.PTS
		}
		if f.PTS != es.NoPTS {
			t.LastPTS = f.PTS
		}
		if err := s.sink.Send(t.Handle, f); err != nil {
			return errors.Wrapf(err, "send track %d", t.Number)
		}
	}
	return nil
}
