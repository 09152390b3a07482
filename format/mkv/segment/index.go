package segment

import (
	"sort"
	"time"

	"github.com/vdkmedia/mkvdemux/format/mkv/mkvio"
	"github.com/vdkmedia/mkvdemux/format/mkv/timescale"
)

// NoTime marks an index entry whose cluster has not been read yet.
const NoTime time.Duration = -1

type Entry struct {
	Track uint64 // 0 for clusters found while reading
	Block uint64
	Pos   int64
	Time  time.Duration
	Key   bool
}

// Index is a seek table ordered by byte position. Timed entries are also
// ordered by time.
type Index struct {
	entries []Entry
}

func (x *Index) Len() int {
	return len(x.entries)
}

func (x *Index) At(i int) Entry {
	return x.entries[i]
}

func (x *Index) Entries() []Entry {
	return x.entries
}

func (x *Index) lastTime() time.Duration {
	for i := len(x.entries) - 1; i >= 0; i-- {
		if x.entries[i].Time != NoTime {
			return x.entries[i].Time
		}
	}
	return NoTime
}

// Add appends e unless it would break the ordering; it reports whether e
// was kept.
func (x *Index) Add(e Entry) bool {
	if n := len(x.entries); n > 0 && e.Pos < x.entries[n-1].Pos {
		return false
	}
	if e.Time != NoTime {
		if last := x.lastTime(); last != NoTime && e.Time < last {
			return false
		}
	}
	x.entries = append(x.entries, e)
	return true
}

// SetTime fills in the time of the placeholder entry at pos.
func (x *Index) SetTime(pos int64, t time.Duration) {
	n := len(x.entries)
	if n == 0 {
		return
	}
	e := &x.entries[n-1]
	if e.Pos != pos || e.Time != NoTime {
		return
	}
	if last := x.lastTime(); last != NoTime && t < last {
		return
	}
	e.Time = t
}

// Find returns the last timed entry whose time plus offset is at or before t.
func (x *Index) Find(t, offset time.Duration) (Entry, bool) {
	timed := make([]int, 0, len(x.entries))
	for i, e := range x.entries {
		if e.Time != NoTime {
			timed = append(timed, i)
		}
	}
	i := sort.Search(len(timed), func(i int) bool {
		return x.entries[timed[i]].Time+offset > t
	})
	if i == 0 {
		return Entry{}, false
	}
	return x.entries[timed[i-1]], true
}

func (x *Index) Reset() {
	x.entries = x.entries[:0]
}

// HasCues reports whether the index was loaded from a Cues element.
func (s *Segment) HasCues() bool {
	return s.hasCues
}

// LoadCues fills the index from the Cues element when its position is known
// and the stream seeks fast. Without cues the index keeps growing from the
// clusters met while reading.
func (s *Segment) LoadCues() error {
	if s.cuesLoaded {
		return nil
	}
	s.cuesLoaded = true
	if s.cuesPos < 0 {
		s.log.Debug("no cues")
		return nil
	}
	if !s.st.CanFastSeek() {
		s.log.Info("stream cannot seek fast, cues not loaded")
		return nil
	}
	s.loadAt(s.cuesPos, mkvio.ElementCues)
	return nil
}

func (s *Segment) parseCues(c *mkvio.Cursor) error {
	if err := c.Down(); err != nil {
		return err
	}
	defer c.Up()

	var cues []Entry
	for el := c.Get(); el != nil; el = c.Get() {
		if !el.Is(mkvio.ElementCuePoint) {
			continue
		}
		points, err := s.parseCuePoint(c)
		if err != nil {
			s.log.Warn("broken cue point", "pos", el.Pos, "err", err)
			continue
		}
		cues = append(cues, points...)
	}
	sort.SliceStable(cues, func(i, j int) bool {
		return cues[i].Pos < cues[j].Pos
	})

	discovered := s.Index.entries
	s.Index.entries = nil
	for _, e := range cues {
		if !s.Index.Add(e) {
			s.log.Debug("cue out of order", "time", e.Time, "pos", e.Pos)
		}
	}
	s.hasCues = s.Index.Len() > 0
	for _, e := range discovered {
		if n := s.Index.Len(); n == 0 || e.Pos > s.Index.entries[n-1].Pos {
			s.Index.Add(e)
		}
	}
	return c.Err()
}

func (s *Segment) parseCuePoint(c *mkvio.Cursor) (points []Entry, err error) {
	if err = c.Down(); err != nil {
		return nil, err
	}
	defer c.Up()

	var ticks uint64
	for el := c.Get(); el != nil && err == nil; el = c.Get() {
		switch el.ID {
		case mkvio.ElementCueTime.ID:
			ticks, err = c.ReadUint()
		case mkvio.ElementCueTrackPositions.ID:
			var e Entry
			if e, err = s.parseCuePosition(c); err == nil && e.Pos >= 0 {
				points = append(points, e)
			}
		}
	}
	t := timescale.ToDuration(int64(ticks), s.Timescale)
	for i := range points {
		points[i].Time = t
	}
	return points, err
}

func (s *Segment) parseCuePosition(c *mkvio.Cursor) (e Entry, err error) {
	e = Entry{Pos: -1, Block: 1, Key: true}
	if err = c.Down(); err != nil {
		return e, err
	}
	defer c.Up()

	for el := c.Get(); el != nil && err == nil; el = c.Get() {
		switch el.ID {
		case mkvio.ElementCueTrack.ID:
			e.Track, err = c.ReadUint()
		case mkvio.ElementCueClusterPosition.ID:
			var v uint64
			if v, err = c.ReadUint(); err == nil {
				e.Pos = s.el.DataPos + int64(v)
			}
		case mkvio.ElementCueBlockNumber.ID:
			e.Block, err = c.ReadUint()
		}
	}
	return e, err
}
