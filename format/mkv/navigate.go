package mkv

import (
	"github.com/vdkmedia/mkvdemux/format/mkv/chapcodec"
	"github.com/vdkmedia/mkvdemux/format/mkv/chapter"
)

// maxJumpDepth bounds chains of chapters whose enter commands jump again.
const maxJumpDepth = 16

type private struct {
	target chapcodec.Target
	codec  uint64
	data   []byte
}

// navIndex maps chapter uids and command set private data to chapters of
// every virtual segment. It is built once, on the first lookup.
type navIndex struct {
	uids     map[uint64]chapcodec.Target
	privates []private
}

func (s *Session) index() *navIndex {
	if s.nav != nil {
		return s.nav
	}
	x := &navIndex{uids: map[uint64]chapcodec.Target{}}
	for vi, v := range s.vsegs {
		a := v.Arena()
		for ei, ed := range v.Editions {
			ed.Walk(func(id chapter.ID, _ int) bool {
				c := a.Get(id)
				t := chapcodec.Target{Segment: vi, Edition: ei, Chapter: id}
				if _, dup := x.uids[c.UID]; c.UID != 0 && !dup {
					x.uids[c.UID] = t
				}
				for _, cs := range c.Codecs {
					if len(cs.Private) > 0 {
						x.privates = append(x.privates, private{target: t, codec: cs.Codec, data: cs.Private})
					}
				}
				return true
			})
		}
	}
	s.nav = x
	return x
}

func (s *Session) FindPrivate(codec uint64, match func(private []byte) bool) (chapcodec.Target, bool) {
	for _, p := range s.index().privates {
		if p.codec == codec && match(p.data) {
			return p.target, true
		}
	}
	return chapcodec.Target{}, false
}

func (s *Session) FindPrivateIn(scope chapcodec.Target, codec uint64, match func(private []byte) bool) (chapcodec.Target, bool) {
	if scope.Segment < 0 || scope.Segment >= len(s.vsegs) {
		return chapcodec.Target{}, false
	}
	ed, id := s.vsegs[scope.Segment].FindCodec(scope.Chapter, codec, match)
	if id == chapter.None {
		return chapcodec.Target{}, false
	}
	return chapcodec.Target{Segment: scope.Segment, Edition: ed, Chapter: id}, true
}

func (s *Session) FindUID(uid uint64) (chapcodec.Target, bool) {
	t, ok := s.index().uids[uid]
	return t, ok
}

// Current returns the chapter being played, false when there is none.
func (s *Session) Current() (chapcodec.Target, bool) {
	if s.cur == nil || s.cur.Chapter() == chapter.None {
		return chapcodec.Target{}, false
	}
	for i, v := range s.vsegs {
		if v == s.cur {
			return chapcodec.Target{Segment: i, Edition: s.cur.EditionIndex(), Chapter: s.cur.Chapter()}, true
		}
	}
	return chapcodec.Target{}, false
}

// JumpTo plays chapter t from its start, switching virtual segment and
// edition when t lives elsewhere.
func (s *Session) JumpTo(t chapcodec.Target) {
	if t.Segment < 0 || t.Segment >= len(s.vsegs) {
		s.log.Info("jump to unknown virtual segment", "segment", t.Segment)
		return
	}
	if s.depth >= maxJumpDepth {
		s.log.Warn("chapter jumps nested too deep, ignoring", "depth", s.depth)
		return
	}
	s.depth++
	defer func() { s.depth-- }()

	v := s.vsegs[t.Segment]
	if v != s.cur {
		s.selectSegment(v, v.SegmentIndex())
		s.publish()
	}
	if t.Edition != v.EditionIndex() && !v.SetEdition(t.Edition) {
		s.log.Info("jump to unknown edition", "edition", t.Edition)
		return
	}
	s.log.Debug("chapter jump", "segment", t.Segment, "edition", t.Edition, "chapter", t.Chapter)
	s.enterChapter(t.Chapter, true)
}
