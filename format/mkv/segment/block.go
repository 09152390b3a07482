package segment

import (
	"bytes"
	"time"

	"github.com/at-wat/ebml-go"
	"github.com/cockroachdb/errors"

	"github.com/vdkmedia/mkvdemux/format/mkv/mkvio"
	"github.com/vdkmedia/mkvdemux/format/mkv/timescale"
	"github.com/vdkmedia/mkvdemux/format/mkv/track"
)

// resyncLimit bounds the scan for the next Cluster after a corrupt element.
const resyncLimit = 32 << 20

// Cluster is the state of the cluster being read.
type Cluster struct {
	Pos      int64
	Timecode uint64
	// Position and PrevSize as written by the muxer, 0 when absent.
	Position uint64
	PrevSize uint64
	Silent   []uint64
}

// Block is one Block or SimpleBlock with its lacing undone and its content
// compression reversed.
type Block struct {
	Track   *track.Track
	Cluster int64
	Pos     int64
	// Time is the segment-local timecode of the first frame.
	Time time.Duration
	// Duration covers every frame of the block, 0 when unknown.
	Duration       time.Duration
	DiscardPadding time.Duration
	Frames         [][]byte
	KeyFrame       bool
	Discardable    bool
	// Preroll is set for blocks before the last seek target.
	Preroll bool
}

// Rewind puts the read position back at the first cluster.
func (s *Segment) Rewind() {
	s.inCluster = false
	s.cluster = Cluster{}
	if s.firstCluster >= 0 {
		s.c.Rehome(s.firstCluster)
	}
}

// CurrentCluster returns the cluster being read.
func (s *Segment) CurrentCluster() Cluster {
	return s.cluster
}

// NextBlock returns the next block of the segment. Blocks of unknown tracks
// and blocks that fail to decode are skipped. It returns ErrEndOfSegment
// once the clusters run out.
func (s *Segment) NextBlock() (*Block, error) {
	if s.firstCluster < 0 {
		return nil, ErrNoCluster
	}
	c := s.c
	for {
		if !s.inCluster {
			el := c.Get()
			if el == nil {
				if err := c.Err(); err != nil && s.resync(err) {
					continue
				}
				return nil, ErrEndOfSegment
			}
			if !el.Is(mkvio.ElementCluster) {
				s.log.Debug("skipping element between clusters", "name", el.Name, "pos", el.Pos)
				continue
			}
			if err := c.Down(); err != nil {
				return nil, err
			}
			s.enterCluster(*el)
			continue
		}

		el := c.Get()
		if el == nil {
			if err := c.Err(); err != nil && s.resync(err) {
				continue
			}
			_ = c.Up()
			s.inCluster = false
			continue
		}

		var (
			b   *Block
			err error
		)
		switch el.ID {
		case mkvio.ElementTimecode.ID:
			s.cluster.Timecode, err = c.ReadUint()
		case mkvio.ElementPosition.ID:
			s.cluster.Position, err = c.ReadUint()
			if err == nil && int64(s.cluster.Position)+s.el.DataPos != s.cluster.Pos {
				s.log.Debug("cluster position mismatch", "written", s.cluster.Position, "pos", s.cluster.Pos)
			}
		case mkvio.ElementPrevSize.ID:
			s.cluster.PrevSize, err = c.ReadUint()
		case mkvio.ElementSilentTracks.ID:
			err = s.parseSilentTracks(c)
		case mkvio.ElementSimpleBlock.ID:
			b, err = s.readSimpleBlock(c, *el)
		case mkvio.ElementBlockGroup.ID:
			b, err = s.readBlockGroup(c, *el)
		default:
			s.log.Debug("skipping cluster child", "name", el.Name, "pos", el.Pos)
		}
		if err != nil {
			if errors.Is(err, mkvio.ErrTooLarge) || errors.Is(err, mkvio.ErrParse) {
				s.log.Warn("dropping element", "name", el.Name, "pos", el.Pos, "err", err)
				continue
			}
			s.log.Warn("segment truncated", "pos", el.Pos, "err", err)
			return nil, ErrEndOfSegment
		}
		if b != nil {
			return b, nil
		}
	}
}

func (s *Segment) enterCluster(el mkvio.Element) {
	s.inCluster = true
	s.cluster = Cluster{Pos: el.Pos}
	if n := s.Index.Len(); n == 0 || el.Pos > s.Index.At(n-1).Pos {
		s.Index.Add(Entry{Pos: el.Pos, Time: NoTime, Key: true})
	}
}

// resync scans forward from the read position for the next cluster.
func (s *Segment) resync(cause error) bool {
	from := s.st.Tell()
	s.log.Warn("corrupt element, looking for next cluster", "pos", from, "err", cause)
	s.inCluster = false
	if !s.c.SyncTo(from, mkvio.ElementCluster.ID, resyncLimit) {
		return false
	}
	return true
}

func (s *Segment) parseSilentTracks(c *mkvio.Cursor) (err error) {
	if err = c.Down(); err != nil {
		return err
	}
	defer c.Up()
	for el := c.Get(); el != nil && err == nil; el = c.Get() {
		if el.Is(mkvio.ElementSilentTrackNumber) {
			var n uint64
			if n, err = c.ReadUint(); err == nil {
				s.cluster.Silent = append(s.cluster.Silent, n)
			}
		}
	}
	return err
}

func (s *Segment) readSimpleBlock(c *mkvio.Cursor, el mkvio.Element) (*Block, error) {
	if _, err := c.ReadData(); err != nil {
		return nil, err
	}
	eb, err := s.unmarshalBlock(c.Keep(), el)
	if err != nil || eb == nil {
		return nil, err
	}
	return s.newBlock(eb, el, eb.Keyframe), nil
}

func (s *Segment) readBlockGroup(c *mkvio.Cursor, group mkvio.Element) (*Block, error) {
	if err := c.Down(); err != nil {
		return nil, err
	}
	defer c.Up()

	var (
		eb       *ebml.Block
		blockEl  mkvio.Element
		refs     int
		duration int64 = -1
		padding  int64
		err      error
	)
	for el := c.Get(); el != nil && err == nil; el = c.Get() {
		switch el.ID {
		case mkvio.ElementBlock.ID:
			if _, err = c.ReadData(); err == nil {
				blockEl = *el
				eb, err = s.unmarshalBlock(c.Keep(), *el)
			}
		case mkvio.ElementBlockDuration.ID:
			var v uint64
			if v, err = c.ReadUint(); err == nil {
				duration = int64(v)
			}
		case mkvio.ElementReferenceBlock.ID:
			_, err = c.ReadInt()
			refs++
		case mkvio.ElementDiscardPadding.ID:
			padding, err = c.ReadInt()
		}
	}
	if err != nil {
		return nil, err
	}
	if eb == nil {
		return nil, nil
	}

	b := s.newBlock(eb, blockEl, refs == 0)
	if b == nil {
		return nil, nil
	}
	b.Pos = group.Pos
	if duration >= 0 {
		b.Duration = timescale.ToDuration(duration, s.Timescale)
	}
	b.DiscardPadding = time.Duration(padding)
	return b, nil
}

func (s *Segment) unmarshalBlock(data []byte, el mkvio.Element) (*ebml.Block, error) {
	eb, err := ebml.UnmarshalBlock(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		s.log.Warn("bad block", "pos", el.Pos, "err", err)
		return nil, nil
	}
	return eb, nil
}

// newBlock converts eb, reversing content compression frame by frame. It
// returns nil for unknown tracks and undecodable frames.
func (s *Segment) newBlock(eb *ebml.Block, el mkvio.Element, key bool) *Block {
	t := s.Track(eb.TrackNumber)
	if t == nil {
		s.log.Debug("block for unknown track", "track", eb.TrackNumber, "pos", el.Pos)
		return nil
	}

	frames := make([][]byte, 0, len(eb.Data))
	for _, f := range eb.Data {
		d, err := t.Decode(f)
		if err != nil {
			s.log.Warn("dropping block", "track", t.Number, "pos", el.Pos, "err", err)
			return nil
		}
		frames = append(frames, d)
	}

	b := &Block{
		Track:       t,
		Cluster:     s.cluster.Pos,
		Pos:         el.Pos,
		Time:        timescale.ToDuration(int64(s.cluster.Timecode)+int64(eb.Timecode), s.Timescale),
		Frames:      frames,
		KeyFrame:    key,
		Discardable: eb.Discardable,
	}
	if t.DefaultDuration > 0 {
		b.Duration = t.DefaultDuration * time.Duration(len(frames))
	}
	if s.preroll >= 0 && b.Time < s.preroll {
		b.Preroll = true
	}
	s.Index.SetTime(s.cluster.Pos, b.Time)
	return b
}
