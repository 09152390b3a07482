package segment

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/vdkmedia/mkvdemux/format/mkv/es"
	"github.com/vdkmedia/mkvdemux/format/mkv/mkvio"
)

// Seek moves the read position so that the next blocks lead up to target,
// where target is on the playback timeline and offset maps segment-local
// times onto it. Cues or clusters already met give a precise start; without
// them the position is estimated from the byte size and the duration, or
// always so when byPercent is set. Video tracks then wait for a keyframe
// and blocks before target come out as preroll.
func (s *Segment) Seek(target, offset time.Duration, byPercent bool) error {
	if s.firstCluster < 0 {
		return ErrNoCluster
	}
	local := target - offset
	if local < 0 {
		local = 0
	}

	pos, exact := s.seekPosition(local, byPercent)
	if !s.st.CanSeek() && pos < s.st.Tell()-mkvio.RewindWindow {
		return errors.Wrapf(mkvio.ErrNotSeekable, "seek to %d", pos)
	}
	s.inCluster = false
	s.cluster = Cluster{}
	if exact {
		s.c.Rehome(pos)
	} else if !s.c.SyncTo(pos, mkvio.ElementCluster.ID, resyncLimit) {
		s.log.Info("no cluster after estimated position", "pos", pos)
		pos = s.firstCluster
		if e, ok := s.Index.Find(local, 0); ok {
			pos = e.Pos
		}
		s.c.Rehome(pos)
	} else {
		pos = s.st.Tell() - int64(len(mkvio.EncodeID(mkvio.ElementCluster.ID)))
	}

	video := map[uint64]bool{}
	for _, t := range s.Tracks {
		t.SearchKeyframe = false
		if t.Category() == es.Video && t.Bound {
			video[t.Number] = true
		}
	}
	if len(video) > 0 && s.st.CanSeek() {
		start, err := s.alignKeyframes(pos, local, video)
		if err != nil {
			return errors.Wrap(err, "seek")
		}
		s.inCluster = false
		s.cluster = Cluster{}
		s.c.Rehome(start)
	}
	for _, t := range s.Tracks {
		if video[t.Number] {
			t.SearchKeyframe = true
		}
	}
	s.preroll = local
	return nil
}

// seekPosition picks where reading resumes. exact positions are cluster
// starts; estimates need a scan for the next cluster.
func (s *Segment) seekPosition(t time.Duration, byPercent bool) (int64, bool) {
	base, baseTime := s.firstCluster, s.StartTime
	if !byPercent {
		if e, ok := s.Index.Find(t, 0); ok {
			if s.hasCues || t <= s.Index.lastTime() {
				return e.Pos, true
			}
			base, baseTime = e.Pos, e.Time
		}
	}
	if t <= baseTime {
		return base, true
	}

	end := s.End()
	total := s.StartTime + s.Duration
	if s.Duration <= 0 || end <= base || total <= baseTime {
		return base, true
	}
	frac := float64(t-baseTime) / float64(total-baseTime)
	if frac > 1 {
		frac = 1
	}
	pos := base + int64(frac*float64(end-base))
	if pos >= end {
		pos = end - 1
	}
	return pos, false
}

// alignKeyframes reads ahead from pos and returns the start of the earliest
// cluster holding the last keyframe at or before t of some video track.
func (s *Segment) alignKeyframes(pos int64, t time.Duration, video map[uint64]bool) (int64, error) {
	keyAt := map[uint64]int64{}
	done := map[uint64]bool{}
	s.preroll = -1
	for len(done) < len(video) {
		b, err := s.NextBlock()
		if errors.Is(err, ErrEndOfSegment) {
			break
		}
		if err != nil {
			return pos, err
		}
		n := b.Track.Number
		if !video[n] || done[n] {
			continue
		}
		if b.Time > t {
			done[n] = true
			continue
		}
		if b.KeyFrame {
			keyAt[n] = b.Cluster
		}
	}

	start := int64(-1)
	for _, p := range keyAt {
		if start < 0 || p < start {
			start = p
		}
	}
	if start < pos {
		start = pos
	}
	return start, nil
}

// Select binds every track to sink and rewinds to the first cluster. A track
// with an unknown or broken codec is still added, undecodable.
func (s *Segment) Select(sink es.Sink, start time.Duration) error {
	if err := s.Preload(); err != nil {
		return err
	}
	for _, t := range s.Tracks {
		if t.Bound {
			continue
		}
		d, err := t.Descriptor()
		if err != nil {
			s.log.Warn("track codec", "track", t.Number, "codec", t.CodecID, "err", err)
		}
		h, err := sink.AddTrack(d)
		if err != nil {
			s.log.Warn("sink refused track", "track", t.Number, "err", err)
			continue
		}
		t.Handle, t.Bound = h, true
		t.SearchKeyframe = false
		t.LastPTS = es.NoPTS
	}
	s.sink = sink
	s.preroll = -1
	if start > s.StartTime {
		s.preroll = start
	}
	s.Rewind()
	return nil
}

// Unselect releases the sink handles. Calling it twice is harmless.
func (s *Segment) Unselect() {
	for _, t := range s.Tracks {
		if !t.Bound {
			continue
		}
		if s.sink != nil {
			s.sink.RemoveTrack(t.Handle)
		}
		t.Handle, t.Bound = 0, false
	}
	s.sink = nil
}

// Selected reports whether the segment is bound to a sink.
func (s *Segment) Selected() bool {
	return s.sink != nil
}
