package segment

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/vdkmedia/mkvdemux/format/mkv/chapter"
	"github.com/vdkmedia/mkvdemux/format/mkv/mkvio"
	"github.com/vdkmedia/mkvdemux/format/mkv/timescale"
	"github.com/vdkmedia/mkvdemux/format/mkv/track"
)

// Preload reads the segment children up to the first cluster, then the
// chapters and tags announced by the SeekHead when the stream seeks fast.
// Broken Info or Tracks degrade the segment but are not returned as errors;
// only a failure to read the segment at all is.
func (s *Segment) Preload() error {
	if s.preloaded {
		return nil
	}
	s.preloaded = true

	c := s.c
	c.Reset()
	for el := c.Get(); el != nil; el = c.Get() {
		switch el.ID {
		case mkvio.ElementInfo.ID:
			if err := s.parseInfo(c); err != nil {
				s.log.Warn("broken segment info", "err", err)
			}
		case mkvio.ElementTracks.ID:
			if err := s.parseTracks(c); err != nil {
				s.log.Warn("broken track list", "err", err)
			}
		case mkvio.ElementSeekHead.ID:
			s.seekHeads[el.Pos] = true
			if err := s.parseSeekHead(c); err != nil {
				s.log.Warn("broken seek head", "err", err)
			}
		case mkvio.ElementChapters.ID:
			s.chaptersPos = el.Pos
			if err := s.parseChapters(c); err != nil {
				s.log.Warn("broken chapters", "err", err)
			}
		case mkvio.ElementTags.ID:
			s.tagsPos = el.Pos
			if err := s.parseTags(c, *el); err != nil {
				s.log.Warn("broken tags", "err", err)
			}
		case mkvio.ElementCues.ID:
			s.cuesPos = el.Pos
		case mkvio.ElementCluster.ID:
			s.firstCluster = el.Pos
			s.readStartTime(c)
		default:
			s.log.Debug("skipping segment child", "name", el.Name, "pos", el.Pos)
		}
		if s.firstCluster >= 0 {
			break
		}
	}
	readErr := c.Err()

	if s.rawDuration > 0 {
		s.Duration = timescale.Float(s.rawDuration, s.Timescale)
	}

	if s.st.CanFastSeek() {
		if !s.chaptersRead && s.chaptersPos >= 0 {
			s.loadAt(s.chaptersPos, mkvio.ElementChapters)
		}
		if !s.tagsRead && s.tagsPos >= 0 {
			s.loadAt(s.tagsPos, mkvio.ElementTags)
		}
	}

	if s.firstCluster < 0 {
		s.log.Warn("segment without cluster")
		if readErr != nil && len(s.Tracks) == 0 {
			return errors.Wrap(readErr, "preload")
		}
		return nil
	}
	s.Rewind()
	return nil
}

func (s *Segment) readStartTime(c *mkvio.Cursor) {
	if err := c.Down(); err != nil {
		return
	}
	defer c.Up()
	for el := c.Get(); el != nil; el = c.Get() {
		if !el.Is(mkvio.ElementTimecode) {
			continue
		}
		v, err := c.ReadUint()
		if err == nil {
			s.StartTime = timescale.ToDuration(int64(v), s.Timescale)
		}
		return
	}
}

// loadAt reads the element announced by the SeekHead at pos if it carries
// the expected id.
func (s *Segment) loadAt(pos int64, reg mkvio.ElementRegister) {
	c := s.side
	c.Rehome(pos)
	el := c.Get()
	if el == nil || !el.Is(reg) {
		s.log.Warn("seek head entry does not point at its element", "name", reg.Name, "pos", pos)
		return
	}
	var err error
	switch el.ID {
	case mkvio.ElementChapters.ID:
		err = s.parseChapters(c)
	case mkvio.ElementTags.ID:
		err = s.parseTags(c, *el)
	case mkvio.ElementSeekHead.ID:
		err = s.parseSeekHead(c)
	case mkvio.ElementCues.ID:
		err = s.parseCues(c)
	}
	if err != nil {
		s.log.Warn("cannot load element", "name", reg.Name, "pos", pos, "err", err)
	}
}

func readUID(c *mkvio.Cursor) (uuid.UUID, error) {
	b, err := c.ReadData()
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.FromBytes(b)
}

func (s *Segment) parseInfo(c *mkvio.Cursor) (err error) {
	if err = c.Down(); err != nil {
		return err
	}
	defer c.Up()

	for el := c.Get(); el != nil && err == nil; el = c.Get() {
		switch el.ID {
		case mkvio.ElementTimecodeScale.ID:
			var v uint64
			if v, err = c.ReadUint(); err == nil && v > 0 {
				s.Timescale = v
			}
		case mkvio.ElementDuration.ID:
			s.rawDuration, err = c.ReadFloat()
		case mkvio.ElementSegmentUID.ID:
			s.UID, err = readUID(c)
		case mkvio.ElementPrevUID.ID:
			s.PrevUID, err = readUID(c)
		case mkvio.ElementNextUID.ID:
			s.NextUID, err = readUID(c)
		case mkvio.ElementSegmentFamily.ID:
			var id uuid.UUID
			if id, err = readUID(c); err == nil {
				s.Families = append(s.Families, id)
			}
		case mkvio.ElementTitle.ID:
			s.Title, err = c.ReadString()
		case mkvio.ElementMuxingApp.ID:
			s.MuxingApp, err = c.ReadString()
		case mkvio.ElementWritingApp.ID:
			s.WritingApp, err = c.ReadString()
		case mkvio.ElementDateUTC.ID:
			s.Date, err = c.ReadDate()
		case mkvio.ElementSegmentFilename.ID:
			s.Filename, err = c.ReadString()
		case mkvio.ElementPrevFilename.ID:
			s.PrevFilename, err = c.ReadString()
		case mkvio.ElementNextFilename.ID:
			s.NextFilename, err = c.ReadString()
		case mkvio.ElementChapterTranslate.ID:
			err = s.parseTranslate(c)
		default:
			s.log.Debug("unknown info element", "name", el.Name)
		}
	}
	return err
}

func (s *Segment) parseTranslate(c *mkvio.Cursor) (err error) {
	if err = c.Down(); err != nil {
		return err
	}
	defer c.Up()

	var tr Translate
	for el := c.Get(); el != nil && err == nil; el = c.Get() {
		switch el.ID {
		case mkvio.ElementChapterTranslateEditionUID.ID:
			var v uint64
			if v, err = c.ReadUint(); err == nil {
				tr.EditionUIDs = append(tr.EditionUIDs, v)
			}
		case mkvio.ElementChapterTranslateCodec.ID:
			tr.Codec, err = c.ReadUint()
		case mkvio.ElementChapterTranslateID.ID:
			tr.ID, err = c.ReadBytes()
		}
	}
	if err == nil {
		s.Translates = append(s.Translates, tr)
	}
	return err
}

// parseTracks keeps every entry that parses; a broken entry is logged and dropped.
func (s *Segment) parseTracks(c *mkvio.Cursor) error {
	if err := c.Down(); err != nil {
		return err
	}
	defer c.Up()

	for el := c.Get(); el != nil; el = c.Get() {
		if !el.Is(mkvio.ElementTrackEntry) {
			continue
		}
		t, err := track.Parse(c)
		if err != nil {
			s.log.Warn("dropping track entry", "pos", el.Pos, "err", err)
			continue
		}
		if s.Track(t.Number) != nil {
			s.log.Warn("duplicate track number", "track", t.Number)
			continue
		}
		if t.Compression == track.CompressLZO || t.Encrypted {
			s.log.Warn("track content cannot be decoded", "track", t.Number)
		}
		s.Tracks = append(s.Tracks, t)
	}
	return c.Err()
}

func (s *Segment) parseSeekHead(c *mkvio.Cursor) (err error) {
	if err = c.Down(); err != nil {
		return err
	}
	defer c.Up()

	var nested []int64
	for el := c.Get(); el != nil && err == nil; el = c.Get() {
		if !el.Is(mkvio.ElementSeek) {
			continue
		}
		var id uint32
		var pos int64 = -1
		if err = c.Down(); err != nil {
			return err
		}
		for e := c.Get(); e != nil && err == nil; e = c.Get() {
			switch e.ID {
			case mkvio.ElementSeekID.ID:
				var b []byte
				if b, err = c.ReadData(); err == nil && len(b) <= 4 {
					id = 0
					for _, x := range b {
						id = id<<8 | uint32(x)
					}
				}
			case mkvio.ElementSeekPosition.ID:
				var v uint64
				if v, err = c.ReadUint(); err == nil {
					pos = s.el.DataPos + int64(v)
				}
			}
		}
		if upErr := c.Up(); err == nil {
			err = upErr
		}
		if pos < 0 {
			continue
		}
		switch id {
		case mkvio.ElementCues.ID:
			s.cuesPos = pos
		case mkvio.ElementChapters.ID:
			s.chaptersPos = pos
		case mkvio.ElementTags.ID:
			s.tagsPos = pos
		case mkvio.ElementSeekHead.ID:
			nested = append(nested, pos)
		}
	}
	if err != nil {
		return err
	}

	if s.st.CanFastSeek() && c == s.c {
		for _, pos := range nested {
			if !s.seekHeads[pos] {
				s.seekHeads[pos] = true
				s.loadAt(pos, mkvio.ElementSeekHead)
			}
		}
	}
	return nil
}

func (s *Segment) parseChapters(c *mkvio.Cursor) error {
	if s.chaptersRead {
		return nil
	}
	s.chaptersRead = true

	editions, err := chapter.Parse(c, s.arena, s.opts.Owner)
	for _, ed := range editions {
		if !s.opts.Ordered {
			ed.Ordered = false
		}
		ed.Refresh()
	}
	s.Editions = append(s.Editions, editions...)
	s.DefaultEdition = 0
	for i, ed := range s.Editions {
		if ed.Default {
			s.DefaultEdition = i
			break
		}
	}
	return err
}
