package mkv

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/vdkmedia/mkvdemux/format/mkv/chapcodec"
	"github.com/vdkmedia/mkvdemux/format/mkv/chapter"
)

var ErrUnsupportedQuery = errors.New("mkv: unsupported control query")

// Query selects a Control request.
type Query int

const (
	GetPosition Query = iota // float64 fraction
	SetPosition              // float64 fraction
	GetTime                  // int64 µs
	SetTime                  // int64 µs
	GetLength                // int64 µs
	GetMeta                  // Meta
	GetTitleInfo             // []Title
	SetTitle                 // int
	SetSeekpoint             // int
	GetTitle                 // int
	GetSeekpoint             // int
	CanSeek                  // bool
)

var queryNames = map[Query]string{
	GetPosition:  "GET_POSITION",
	SetPosition:  "SET_POSITION",
	GetTime:      "GET_TIME",
	SetTime:      "SET_TIME",
	GetLength:    "GET_LENGTH",
	GetMeta:      "GET_META",
	GetTitleInfo: "GET_TITLE_INFO",
	SetTitle:     "SET_TITLE",
	SetSeekpoint: "SET_SEEKPOINT",
	GetTitle:     "GET_TITLE",
	GetSeekpoint: "GET_SEEKPOINT",
	CanSeek:      "CAN_SEEK",
}

func (q Query) String() string {
	if name, ok := queryNames[q]; ok {
		return name
	}
	return fmt.Sprintf("Query(%d)", int(q))
}

// Title is one edition of the current virtual segment.
type Title struct {
	Name       string
	Duration   time.Duration
	Hidden     bool
	Seekpoints []chapter.Seekpoint
}

// Meta is the metadata of the current virtual segment.
type Meta struct {
	Title      string
	MuxingApp  string
	WritingApp string
	Date       time.Time
	Duration   time.Duration
	// Tags merges the global SimpleTags of every linked segment; the first
	// segment wins on duplicates.
	Tags map[string]string
}

// Control answers a player query. Setters take their value in args and
// return nil.
func (s *Session) Control(q Query, args ...any) (any, error) {
	switch q {
	case GetPosition:
		return s.Position(), nil
	case GetTime:
		return s.Time().Microseconds(), nil
	case GetLength:
		return s.Length().Microseconds(), nil
	case GetMeta:
		return s.Meta(), nil
	case GetTitleInfo:
		return s.Titles(), nil
	case GetTitle:
		return s.cur.EditionIndex(), nil
	case GetSeekpoint:
		return s.seekpoint, nil
	case CanSeek:
		return s.CanSeek(), nil
	}

	if len(args) != 1 {
		return nil, errors.Wrapf(ErrUnsupportedQuery, "%s needs one argument", q)
	}
	switch q {
	case SetPosition:
		f, ok := args[0].(float64)
		if !ok {
			return nil, errors.Newf("mkv: %s wants float64, got %T", q, args[0])
		}
		return nil, s.SetPosition(f)
	case SetTime:
		us, ok := args[0].(int64)
		if !ok {
			return nil, errors.Newf("mkv: %s wants int64, got %T", q, args[0])
		}
		return nil, s.Seek(time.Duration(us) * time.Microsecond)
	case SetTitle, SetSeekpoint:
		i, ok := args[0].(int)
		if !ok {
			return nil, errors.Newf("mkv: %s wants int, got %T", q, args[0])
		}
		if q == SetTitle {
			return nil, s.SetTitle(i)
		}
		return nil, s.SetSeekpoint(i)
	}
	return nil, errors.Wrap(ErrUnsupportedQuery, q.String())
}

// Time returns the playback time of the last block sent.
func (s *Session) Time() time.Duration {
	if s.pts < 0 {
		return 0
	}
	return s.pts
}

func (s *Session) Length() time.Duration {
	if s.cur == nil {
		return 0
	}
	return s.cur.Duration()
}

// Position is Time as a fraction of Length, 0 when the length is unknown.
func (s *Session) Position() float64 {
	l := s.Length()
	if l <= 0 {
		return 0
	}
	p := float64(s.Time()) / float64(l)
	if p > 1 {
		p = 1
	}
	return p
}

func (s *Session) CanSeek() bool {
	return s.cur != nil && s.cur.Segment().Stream().CanSeek()
}

// SetPosition seeks to a fraction of Length.
func (s *Session) SetPosition(f float64) error {
	if f < 0 || f > 1 {
		return errors.Newf("mkv: position %v out of range", f)
	}
	return s.Seek(time.Duration(f * float64(s.Length())))
}

// Seek moves playback to t on the timeline of the current edition. The
// segment holding t is selected first; in an ordered edition t is mapped
// through the chapter containing it.
func (s *Session) Seek(t time.Duration) error {
	v := s.cur
	if v == nil {
		return ErrNoSegment
	}
	if t < 0 {
		t = 0
	}
	if l := v.Duration(); l > 0 && t >= l {
		t = l - 1
	}

	i := v.SegmentFor(t)
	offset := time.Duration(0)
	ordered := v.Ordered()
	var id chapter.ID = chapter.None
	if ordered {
		ed := v.Edition()
		if id = ed.FindTimecode(t); id == chapter.None {
			if len(ed.Chapters) == 0 {
				return errors.Newf("mkv: no chapter at %v", t)
			}
			id = ed.Chapters[0]
			t = v.Arena().Get(id).UserStart
		}
		offset = v.ChapterOffset(id)
		if ci := v.ChapterSegment(id); ci >= 0 {
			i = ci
		}
	}
	if i != v.SegmentIndex() {
		s.selectSegment(v, i)
	}

	s.log.Debug("seek", "time", t, "segment", i, "offset", offset)
	err := v.Segment().Seek(t, offset, s.opts.SeekByPercent)
	s.pending = nil
	s.resetPCR()
	s.chapterOffset = offset
	s.pts = t
	s.startPTS = t
	if ordered {
		v.SetChapter(id)
		s.seekpoint = s.seekpointOf(id)
	}
	if err != nil {
		return errors.Wrapf(err, "seek to %v", t)
	}
	return nil
}

// publish rebuilds the title list from the editions of the current
// virtual segment.
func (s *Session) publish() {
	s.titles = s.titles[:0]
	for i, ed := range s.cur.Editions {
		name := ed.MainName()
		if name == "" {
			if len(s.cur.Editions) > 1 {
				name = fmt.Sprintf("Edition %d", i+1)
			} else if c := ed.Chapter(firstOf(ed)); c != nil {
				name = chapcodec.CodecName(c)
			}
		}
		dur := ed.Duration()
		if !ed.Ordered {
			dur = s.cur.Duration()
		}
		s.titles = append(s.titles, Title{
			Name:       name,
			Duration:   dur,
			Hidden:     ed.Hidden,
			Seekpoints: ed.Publish(),
		})
	}
}

func firstOf(ed *chapter.Edition) chapter.ID {
	if len(ed.Chapters) == 0 {
		return chapter.None
	}
	return ed.Chapters[0]
}

// Titles returns one title per edition with a seekpoint per displayed chapter.
func (s *Session) Titles() []Title {
	return s.titles
}

// SetTitle switches to edition i and plays it from its start.
func (s *Session) SetTitle(i int) error {
	if !s.cur.SetEdition(i) {
		return errors.Newf("mkv: no title %d", i)
	}
	s.seekpoint = -1
	if s.cur.Ordered() {
		// the first chapter is entered by the next step
		s.pts = 0
		return nil
	}
	return s.Seek(0)
}

// SetSeekpoint seeks to the start of seekpoint i of the current title.
func (s *Session) SetSeekpoint(i int) error {
	t := s.cur.EditionIndex()
	if t < 0 || t >= len(s.titles) || i < 0 || i >= len(s.titles[t].Seekpoints) {
		return errors.Newf("mkv: no seekpoint %d", i)
	}
	sp := s.titles[t].Seekpoints[i]
	if err := s.Seek(sp.Time); err != nil {
		return err
	}
	s.seekpoint = i
	return nil
}

// Meta gathers Info and Tags of the current virtual segment.
func (s *Session) Meta() Meta {
	m := Meta{Tags: map[string]string{}}
	if s.cur == nil {
		return m
	}
	m.Duration = s.cur.Duration()
	for _, seg := range s.cur.Segments {
		if m.Title == "" {
			m.Title = seg.Title
		}
		if m.MuxingApp == "" {
			m.MuxingApp = seg.MuxingApp
		}
		if m.WritingApp == "" {
			m.WritingApp = seg.WritingApp
		}
		if m.Date.IsZero() {
			m.Date = seg.Date
		}
		for k, val := range seg.Tags {
			if _, ok := m.Tags[k]; !ok {
				m.Tags[k] = val
			}
		}
	}
	if m.Title == "" {
		m.Title = m.Tags["TITLE"]
	}
	return m
}

var _ chapcodec.Navigator = (*Session)(nil)
