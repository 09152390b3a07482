// Package vsegment links hard-linked Matroska segments into one playback
// timeline and keeps the current segment, edition and chapter.
package vsegment

import (
	"log/slog"
	"time"

	"github.com/vdkmedia/mkvdemux/format/mkv/chapter"
	"github.com/vdkmedia/mkvdemux/format/mkv/segment"
)

type VSegment struct {
	// Segments is the chain in PrevUID/NextUID order.
	Segments []*segment.Segment
	// Family holds unlinked segments sharing a SegmentFamily with the chain.
	Family []*segment.Segment
	// Editions are the editions of the first segment with the editions of
	// later segments appended by position.
	Editions []*chapter.Edition

	arena   *chapter.Arena
	current int
	edition int
	chapter chapter.ID
	log     *slog.Logger
}

// New builds the virtual segment grown from seed over the known segments.
// Every segment involved is preloaded.
func New(seed *segment.Segment, known []*segment.Segment, log *slog.Logger) *VSegment {
	if log == nil {
		log = slog.Default()
	}
	v := &VSegment{
		arena:   chapter.NewArena(),
		chapter: chapter.None,
		log:     log,
	}

	for _, s := range known {
		if err := s.Preload(); err != nil {
			log.Warn("cannot preload segment", "err", err)
		}
	}
	if err := seed.Preload(); err != nil {
		log.Warn("cannot preload segment", "err", err)
	}

	linked := []*segment.Segment{seed}
	in := map[*segment.Segment]bool{seed: true}
	for changed := true; changed; {
		changed = false
		for _, s := range known {
			if in[s] {
				continue
			}
			for _, l := range linked {
				if l.Links(s) {
					linked = append(linked, s)
					in[s] = true
					changed = true
					break
				}
			}
		}
	}
	v.Segments = chain(linked)

	for _, s := range known {
		if in[s] {
			continue
		}
		for _, l := range v.Segments {
			if l.SharesFamily(s) {
				v.Family = append(v.Family, s)
				break
			}
		}
	}

	v.mergeEditions()
	if first := v.Segments[0]; first.DefaultEdition < len(v.Editions) {
		v.edition = first.DefaultEdition
	}
	return v
}

// chain orders segments so that each one is followed by the segment it
// links to. Segments outside any chain keep their discovery order.
func chain(segs []*segment.Segment) []*segment.Segment {
	out := make([]*segment.Segment, 0, len(segs))
	used := make(map[*segment.Segment]bool, len(segs))

	hasPrev := func(s *segment.Segment) bool {
		for _, o := range segs {
			if o != s && o.Before(s) {
				return true
			}
		}
		return false
	}
	follow := func(s *segment.Segment) {
		for s != nil && !used[s] {
			used[s] = true
			out = append(out, s)
			var next *segment.Segment
			for _, o := range segs {
				if !used[o] && s.Before(o) {
					next = o
					break
				}
			}
			s = next
		}
	}

	for _, s := range segs {
		if !used[s] && !hasPrev(s) {
			follow(s)
		}
	}
	for _, s := range segs {
		follow(s)
	}
	return out
}

func (v *VSegment) mergeEditions() {
	for i, s := range v.Segments {
		for k, ed := range s.Editions {
			switch {
			case i == 0 || k >= len(v.Editions):
				v.Editions = append(v.Editions, ed.Clone(v.arena))
			default:
				if v.Editions[k].UID != ed.UID && ed.UID != 0 {
					v.log.Debug("merging editions by position", "edition", k, "uid", ed.UID)
				}
				v.Editions[k].Append(ed)
			}
		}
	}
	for _, ed := range v.Editions {
		ed.Refresh()
	}
}

func (v *VSegment) Arena() *chapter.Arena {
	return v.arena
}

// Contains reports whether s is on the timeline of v.
func (v *VSegment) Contains(s *segment.Segment) bool {
	return v.IndexOf(s) >= 0
}

func (v *VSegment) IndexOf(s *segment.Segment) int {
	for i, o := range v.Segments {
		if o == s {
			return i
		}
	}
	return -1
}

// Segment returns the current physical segment.
func (v *VSegment) Segment() *segment.Segment {
	return v.Segments[v.current]
}

func (v *VSegment) SegmentIndex() int {
	return v.current
}

func (v *VSegment) SetSegment(i int) bool {
	if i < 0 || i >= len(v.Segments) {
		return false
	}
	v.current = i
	return true
}

// SelectNext moves to the next segment of the chain; false at its end.
func (v *VSegment) SelectNext() bool {
	return v.SetSegment(v.current + 1)
}

// Edition returns the current edition, nil when there is none.
func (v *VSegment) Edition() *chapter.Edition {
	if v.edition < 0 || v.edition >= len(v.Editions) {
		return nil
	}
	return v.Editions[v.edition]
}

func (v *VSegment) EditionIndex() int {
	return v.edition
}

// SetEdition selects edition i and forgets the current chapter.
func (v *VSegment) SetEdition(i int) bool {
	if i < 0 || i >= len(v.Editions) {
		return false
	}
	v.edition = i
	v.chapter = chapter.None
	return true
}

func (v *VSegment) Ordered() bool {
	ed := v.Edition()
	return ed != nil && ed.Ordered
}

// Chapter returns the current chapter of the current edition or chapter.None.
func (v *VSegment) Chapter() chapter.ID {
	return v.chapter
}

func (v *VSegment) SetChapter(id chapter.ID) {
	v.chapter = id
}

// Duration is the length of the ordered edition, or of the whole chain.
func (v *VSegment) Duration() time.Duration {
	if ed := v.Edition(); ed != nil && ed.Ordered {
		return ed.Duration()
	}
	var d time.Duration
	for _, s := range v.Segments {
		d += s.Duration
	}
	return d
}

// SegmentFor returns the index of the segment whose time span holds t.
func (v *VSegment) SegmentFor(t time.Duration) int {
	found := 0
	for i, s := range v.Segments {
		if s.Contains(t) {
			return i
		}
		if s.StartTime <= t {
			found = i
		}
	}
	return found
}

// ChapterSegment returns the chain index of the segment a chapter was read
// from, -1 when it comes from a segment outside the chain.
func (v *VSegment) ChapterSegment(id chapter.ID) int {
	c := v.arena.Get(id)
	if c == nil {
		return -1
	}
	for i, s := range v.Segments {
		if s.Owner() == c.Owner {
			return i
		}
	}
	return -1
}

// ChapterOffset maps the segment-local time of chapter id onto the
// playback timeline.
func (v *VSegment) ChapterOffset(id chapter.ID) time.Duration {
	c := v.arena.Get(id)
	if c == nil {
		return 0
	}
	return c.UserStart - c.Start
}

// FindUID looks up a chapter uid in every edition.
func (v *VSegment) FindUID(uid uint64) (edition int, id chapter.ID) {
	for i, ed := range v.Editions {
		if id := ed.FindUID(uid); id != chapter.None {
			return i, id
		}
	}
	return -1, chapter.None
}

// FindCodec returns the first chapter, in edition order, with a command set
// of codec whose private data satisfies match. Within the subtree of scope
// when scope is not chapter.None.
func (v *VSegment) FindCodec(scope chapter.ID, codec uint64, match func([]byte) bool) (edition int, id chapter.ID) {
	pred := func(c *chapter.Chapter) bool {
		for _, cs := range c.Codecs {
			if cs.Codec == codec && match(cs.Private) {
				return true
			}
		}
		return false
	}
	for i, ed := range v.Editions {
		if scope != chapter.None {
			if !v.inEdition(ed, scope) {
				continue
			}
			if id := v.findUnder(ed, scope, pred); id != chapter.None {
				return i, id
			}
			continue
		}
		if id := ed.Find(pred); id != chapter.None {
			return i, id
		}
	}
	return -1, chapter.None
}

func (v *VSegment) inEdition(ed *chapter.Edition, id chapter.ID) bool {
	path := v.arena.Path(id)
	if len(path) == 0 {
		return false
	}
	for _, top := range ed.Chapters {
		if top == path[0] {
			return true
		}
	}
	return false
}

func (v *VSegment) findUnder(ed *chapter.Edition, scope chapter.ID, pred func(*chapter.Chapter) bool) chapter.ID {
	found := chapter.None
	ed.Walk(func(id chapter.ID, _ int) bool {
		if id != scope && v.arena.IsAncestor(scope, id) && pred(v.arena.Get(id)) {
			found = id
			return false
		}
		return true
	})
	return found
}
