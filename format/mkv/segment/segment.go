// Package segment reads one Matroska Segment: its Info, Tracks, SeekHead,
// Chapters, Tags and Cues, then the clusters of blocks during playback.
package segment

import (
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/vdkmedia/mkvdemux/format/mkv/chapter"
	"github.com/vdkmedia/mkvdemux/format/mkv/es"
	"github.com/vdkmedia/mkvdemux/format/mkv/mkvio"
	"github.com/vdkmedia/mkvdemux/format/mkv/timescale"
	"github.com/vdkmedia/mkvdemux/format/mkv/track"
)

var (
	ErrEndOfSegment = errors.New("segment: end of segment")
	ErrNoCluster    = errors.New("segment: no cluster found")
)

type Options struct {
	// Ordered keeps ordered editions ordered; when false every edition is
	// laid out on its authored times.
	Ordered bool
	// Dummy surfaces unknown and void elements to the parsers.
	Dummy bool
	// Owner is stamped on every chapter read from this segment.
	Owner  int
	Logger *slog.Logger
}

// Translate is one ChapterTranslate entry.
type Translate struct {
	EditionUIDs []uint64
	Codec       uint64
	ID          []byte
}

type Segment struct {
	UID      uuid.UUID
	PrevUID  uuid.UUID
	NextUID  uuid.UUID
	Families []uuid.UUID

	// Timescale is the duration of one tick in nanoseconds.
	Timescale uint64
	Duration  time.Duration
	// StartTime is the timecode of the first cluster.
	StartTime time.Duration

	Title        string
	MuxingApp    string
	WritingApp   string
	Date         time.Time
	Filename     string
	PrevFilename string
	NextFilename string
	Translates   []Translate

	Tracks         []*track.Track
	Editions       []*chapter.Edition
	DefaultEdition int
	// Tags maps global SimpleTag names to their values.
	Tags map[string]string
	// TrackTags holds SimpleTags that target one track UID.
	TrackTags map[uint64]map[string]string

	Index Index

	st    *mkvio.Stream
	el    mkvio.Element
	c     *mkvio.Cursor
	side  *mkvio.Cursor
	arena *chapter.Arena
	opts  Options
	log   *slog.Logger

	rawDuration float64

	cuesPos     int64
	chaptersPos int64
	tagsPos     int64
	seekHeads   map[int64]bool

	firstCluster int64
	preloaded    bool
	cuesLoaded   bool
	hasCues      bool
	chaptersRead bool
	tagsRead     bool

	inCluster bool
	cluster   Cluster
	// preroll is the segment-local seek target; earlier blocks are marked preroll.
	preroll time.Duration
	sink    es.Sink
}

// New returns the segment whose header el was read from st. Nothing past
// the header is read until Preload.
func New(st *mkvio.Stream, el mkvio.Element, opts Options) *Segment {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Segment{
		Timescale:    timescale.Default,
		Tags:         map[string]string{},
		TrackTags:    map[uint64]map[string]string{},
		st:           st,
		el:           el,
		c:            mkvio.NewCursor(st, el),
		side:         mkvio.NewCursor(st, el),
		arena:        chapter.NewArena(),
		opts:         opts,
		log:          opts.Logger.With("segment", el.Pos),
		cuesPos:      -1,
		chaptersPos:  -1,
		tagsPos:      -1,
		seekHeads:    map[int64]bool{},
		firstCluster: -1,
		preroll:      -1,
	}
	s.c.Dummy = opts.Dummy
	s.side.Dummy = opts.Dummy
	return s
}

func (s *Segment) Stream() *mkvio.Stream {
	return s.st
}

func (s *Segment) Element() mkvio.Element {
	return s.el
}

func (s *Segment) Arena() *chapter.Arena {
	return s.arena
}

func (s *Segment) Owner() int {
	return s.opts.Owner
}

// End returns the offset past the segment payload, the stream size for an
// unknown-size segment, or -1 when neither is known.
func (s *Segment) End() int64 {
	if !s.el.Unknown() {
		return s.el.End()
	}
	return s.st.Size()
}

// FirstCluster returns the offset of the first cluster, -1 if there is none.
func (s *Segment) FirstCluster() int64 {
	return s.firstCluster
}

// Track returns the track with the given number.
func (s *Segment) Track(number uint64) *track.Track {
	for _, t := range s.Tracks {
		if t.Number == number {
			return t
		}
	}
	return nil
}

func (s *Segment) HasUID() bool {
	return s.UID != uuid.Nil
}

// SharesFamily reports whether s and o carry a common SegmentFamily.
func (s *Segment) SharesFamily(o *Segment) bool {
	for _, a := range s.Families {
		for _, b := range o.Families {
			if a == b {
				return true
			}
		}
	}
	return false
}

// Links reports whether s points at o through PrevUID or NextUID, or o
// points back at s.
func (s *Segment) Links(o *Segment) bool {
	if !o.HasUID() || !s.HasUID() {
		return false
	}
	return s.PrevUID == o.UID || s.NextUID == o.UID || o.PrevUID == s.UID || o.NextUID == s.UID
}

// Before reports whether s comes right before o in a hard-linked chain.
func (s *Segment) Before(o *Segment) bool {
	return (s.NextUID != uuid.Nil && s.NextUID == o.UID) || (o.PrevUID != uuid.Nil && o.PrevUID == s.UID)
}

// Edition returns the edition at index i or nil.
func (s *Segment) Edition(i int) *chapter.Edition {
	if i < 0 || i >= len(s.Editions) {
		return nil
	}
	return s.Editions[i]
}

// Contains reports whether the segment-local time t falls in the segment.
func (s *Segment) Contains(t time.Duration) bool {
	if t < s.StartTime {
		return false
	}
	return s.Duration <= 0 || t < s.StartTime+s.Duration
}
