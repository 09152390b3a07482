package segment_test

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdkmedia/mkvdemux/format/mkv/es"
	"github.com/vdkmedia/mkvdemux/format/mkv/es/estest"
	"github.com/vdkmedia/mkvdemux/format/mkv/mkvio"
	. "github.com/vdkmedia/mkvdemux/format/mkv/mkvio/mkviotest"
	"github.com/vdkmedia/mkvdemux/format/mkv/segment"
)

type onlyReader struct{ r io.Reader }

func (o onlyReader) Read(p []byte) (int, error) { return o.r.Read(p) }

func openSegment(t *testing.T, st *mkvio.Stream) *segment.Segment {
	t.Helper()
	head, err := mkvio.ReadElementHeader(st)
	require.NoError(t, err)
	require.True(t, head.Is(mkvio.ElementEBML))
	el, err := mkvio.ReadElementAt(st, head.End())
	require.NoError(t, err)
	require.True(t, el.Is(mkvio.ElementSegment))
	s := segment.New(st, el, segment.Options{Ordered: true})
	require.NoError(t, s.Preload())
	return s
}

func file(children ...[]byte) []byte {
	return Concat(Header("matroska"), Master(mkvio.ElementSegment, children...))
}

func uid(b byte) uuid.UUID {
	return uuid.Must(uuid.FromBytes(UID(b)))
}

func info(durationTicks float64) []byte {
	return Master(mkvio.ElementInfo,
		Uint(mkvio.ElementTimecodeScale, 1000000),
		Float(mkvio.ElementDuration, durationTicks),
		Binary(mkvio.ElementSegmentUID, UID(1)),
	)
}

func TestPreload(t *testing.T) {
	data := file(
		Master(mkvio.ElementInfo,
			Uint(mkvio.ElementTimecodeScale, 1000000),
			Float(mkvio.ElementDuration, 30000),
			Binary(mkvio.ElementSegmentUID, UID(1)),
			Binary(mkvio.ElementNextUID, UID(2)),
			Binary(mkvio.ElementSegmentFamily, UID(9)),
			String(mkvio.ElementTitle, "movie"),
			String(mkvio.ElementMuxingApp, "mux"),
			String(mkvio.ElementWritingApp, "writer"),
			Int(mkvio.ElementDateUTC, int64(time.Hour)),
		),
		Master(mkvio.ElementTracks, VP8Track(1), PCMTrack(2)),
		Master(mkvio.ElementChapters,
			Edition(1, false, false, Chapter(11, 0, -1, "first")),
			Edition(2, false, true, Chapter(21, 0, -1, "second")),
		),
		Cluster(500, SimpleBlock(1, 0, true, Frame(8))),
	)
	s := openSegment(t, mkvio.NewStream(bytes.NewReader(data)))

	assert.EqualValues(t, 1000000, s.Timescale)
	assert.Equal(t, 30*time.Second, s.Duration)
	assert.Equal(t, 500*time.Millisecond, s.StartTime)
	assert.Equal(t, uid(1), s.UID)
	assert.Equal(t, uid(2), s.NextUID)
	assert.Equal(t, uuid.Nil, s.PrevUID)
	assert.Equal(t, []uuid.UUID{uid(9)}, s.Families)
	assert.Equal(t, "movie", s.Title)
	assert.Equal(t, "mux", s.MuxingApp)
	assert.Equal(t, "writer", s.WritingApp)
	assert.Equal(t, mkvio.Epoch.Add(time.Hour), s.Date)
	require.Len(t, s.Tracks, 2)
	assert.EqualValues(t, 320, s.Track(1).Video.PixelWidth)
	assert.Nil(t, s.Track(3))
	require.Len(t, s.Editions, 2)
	assert.Equal(t, 1, s.DefaultEdition)
	assert.Greater(t, s.FirstCluster(), int64(0))
	assert.True(t, s.Contains(10*time.Second))
	assert.False(t, s.Contains(31*time.Second))
}

func seekHeadFile() []byte {
	chapters := Master(mkvio.ElementChapters,
		Edition(1, true, true,
			Chapter(1, int64(10*time.Second), int64(20*time.Second), "one"),
			Chapter(2, int64(50*time.Second), int64(70*time.Second), "two"),
		),
	)
	tags := Master(mkvio.ElementTags,
		Master(mkvio.ElementTag,
			Master(mkvio.ElementTargets, Uint(mkvio.ElementTargetTypeValue, 50)),
			Master(mkvio.ElementSimpleTag,
				String(mkvio.ElementTagName, "ARTIST"),
				String(mkvio.ElementTagString, "someone"),
			),
		),
		Master(mkvio.ElementTag,
			Master(mkvio.ElementTargets, Uint(mkvio.ElementTagTrackUID, 200)),
			Master(mkvio.ElementSimpleTag,
				String(mkvio.ElementTagName, "BPS"),
				String(mkvio.ElementTagString, "1000"),
			),
		),
	)
	seekHead := func(chap, tag int) []byte {
		return Master(mkvio.ElementSeekHead,
			SeekEntry(mkvio.ElementChapters, chap),
			SeekEntry(mkvio.ElementTags, tag),
		)
	}
	parts := [][]byte{
		seekHead(0, 0),
		info(120000),
		Master(mkvio.ElementTracks, VP8Track(1), PCMTrack(2)),
		Cluster(0, SimpleBlock(1, 0, true, Frame(8))),
		chapters,
		tags,
	}
	off := Offsets(parts...)
	parts[0] = seekHead(off[4], off[5])
	return file(parts...)
}

func TestPreloadFollowsSeekHead(t *testing.T) {
	s := openSegment(t, mkvio.NewStream(bytes.NewReader(seekHeadFile())))

	require.Len(t, s.Editions, 1)
	ed := s.Editions[0]
	assert.True(t, ed.Ordered)
	assert.Equal(t, 30*time.Second, ed.Duration())
	assert.Equal(t, "someone", s.Tags["ARTIST"])
	assert.Equal(t, "1000", s.TrackTags[200]["BPS"])
	assert.NotContains(t, s.Tags, "BPS")

	b, err := s.NextBlock()
	require.NoError(t, err, "preload rewinds to the first cluster")
	assert.EqualValues(t, 1, b.Track.Number)
}

func TestPreloadUnorderedOption(t *testing.T) {
	st := mkvio.NewStream(bytes.NewReader(seekHeadFile()))
	head, err := mkvio.ReadElementHeader(st)
	require.NoError(t, err)
	el, err := mkvio.ReadElementAt(st, head.End())
	require.NoError(t, err)
	s := segment.New(st, el, segment.Options{Ordered: false})
	require.NoError(t, s.Preload())

	require.Len(t, s.Editions, 1)
	assert.False(t, s.Editions[0].Ordered)
	assert.Equal(t, 70*time.Second, s.Editions[0].Duration())
}

func TestPreloadForwardOnlySkipsSeekHead(t *testing.T) {
	s := openSegment(t, mkvio.NewStream(onlyReader{bytes.NewReader(seekHeadFile())}))

	assert.Empty(t, s.Editions)
	assert.Empty(t, s.Tags)
	b, err := s.NextBlock()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), b.Time)
}

func TestNextBlock(t *testing.T) {
	data := file(
		info(2000),
		Master(mkvio.ElementTracks, VP8Track(1), PCMTrack(2)),
		Cluster(0,
			SimpleBlock(1, 0, true, Frame(4)),
			BlockGroup(1, 40, Frame(4), 40, -40),
			XiphLaced(2, 10, Frame(3), Frame(5)),
			SimpleBlock(7, 0, true, Frame(2)),
		),
		Cluster(1000, SimpleBlock(1, 0, true, Frame(4))),
	)
	s := openSegment(t, mkvio.NewStream(bytes.NewReader(data)))

	b, err := s.NextBlock()
	require.NoError(t, err)
	assert.EqualValues(t, 1, b.Track.Number)
	assert.True(t, b.KeyFrame)
	assert.Equal(t, time.Duration(0), b.Time)
	assert.Equal(t, [][]byte{Frame(4)}, b.Frames)
	first := b.Cluster

	b, err = s.NextBlock()
	require.NoError(t, err)
	assert.False(t, b.KeyFrame, "referencing block")
	assert.Equal(t, 40*time.Millisecond, b.Time)
	assert.Equal(t, 40*time.Millisecond, b.Duration)

	b, err = s.NextBlock()
	require.NoError(t, err)
	assert.EqualValues(t, 2, b.Track.Number)
	assert.Equal(t, 10*time.Millisecond, b.Time)
	assert.Equal(t, [][]byte{Frame(3), Frame(5)}, b.Frames)

	b, err = s.NextBlock()
	require.NoError(t, err, "unknown track 7 is skipped")
	assert.Equal(t, time.Second, b.Time)
	assert.Greater(t, b.Cluster, first)

	_, err = s.NextBlock()
	assert.ErrorIs(t, err, segment.ErrEndOfSegment)

	require.Equal(t, 2, s.Index.Len())
	assert.Equal(t, time.Duration(0), s.Index.At(0).Time)
	assert.Equal(t, time.Second, s.Index.At(1).Time)
	assert.Equal(t, first, s.Index.At(0).Pos)
}

func TestNextBlockResyncsAfterJunk(t *testing.T) {
	data := file(
		info(2000),
		Master(mkvio.ElementTracks, VP8Track(1)),
		Cluster(0, SimpleBlock(1, 0, true, Frame(4))),
		[]byte{0x00, 0x00, 0x00, 0x00, 0x00},
		Cluster(1000, SimpleBlock(1, 0, true, Frame(4))),
	)
	s := openSegment(t, mkvio.NewStream(bytes.NewReader(data)))

	b, err := s.NextBlock()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), b.Time)

	b, err = s.NextBlock()
	require.NoError(t, err)
	assert.Equal(t, time.Second, b.Time)
}

func TestNextBlockWithoutCluster(t *testing.T) {
	s := openSegment(t, mkvio.NewStream(bytes.NewReader(file(info(0)))))
	_, err := s.NextBlock()
	assert.ErrorIs(t, err, segment.ErrNoCluster)
}

// cuesFile has three clusters ten seconds apart, each opening on a video
// keyframe, and cues for all of them.
func cuesFile() []byte {
	clusters := [][]byte{
		Cluster(0,
			SimpleBlock(1, 0, true, Frame(16)),
			SimpleBlock(2, 0, true, Frame(16)),
			SimpleBlock(1, 5000, false, Frame(16)),
		),
		Cluster(10000,
			SimpleBlock(1, 0, true, Frame(16)),
			SimpleBlock(1, 2000, false, Frame(16)),
		),
		Cluster(20000,
			SimpleBlock(1, 0, true, Frame(16)),
			SimpleBlock(1, 5000, false, Frame(16)),
		),
	}
	cues := func(p0, p1, p2 int) []byte {
		return Master(mkvio.ElementCues,
			CuePoint(0, 1, p0),
			CuePoint(10000, 1, p1),
			CuePoint(20000, 1, p2),
		)
	}
	seekHead := func(pos int) []byte {
		return Master(mkvio.ElementSeekHead, SeekEntry(mkvio.ElementCues, pos))
	}
	parts := [][]byte{
		seekHead(0),
		info(30000),
		Master(mkvio.ElementTracks, VP8Track(1), PCMTrack(2)),
		clusters[0], clusters[1], clusters[2],
		cues(0, 0, 0),
	}
	off := Offsets(parts...)
	parts[0] = seekHead(off[6])
	parts[6] = cues(off[3], off[4], off[5])
	return file(parts...)
}

func TestSeekWithCues(t *testing.T) {
	s := openSegment(t, mkvio.NewStream(bytes.NewReader(cuesFile())))
	rec := estest.NewRecorder()
	require.NoError(t, s.Select(rec, 0))
	require.NoError(t, s.LoadCues())
	assert.True(t, s.HasCues())
	require.Equal(t, 3, s.Index.Len())

	require.NoError(t, s.Seek(15*time.Second, 0, false))
	assert.True(t, s.Track(1).SearchKeyframe)
	assert.False(t, s.Track(2).SearchKeyframe)

	b, err := s.NextBlock()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, b.Time)
	assert.True(t, b.KeyFrame)
	assert.True(t, b.Preroll)

	b, err = s.NextBlock()
	require.NoError(t, err)
	assert.Equal(t, 12*time.Second, b.Time)
	assert.True(t, b.Preroll)

	b, err = s.NextBlock()
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, b.Time)
	assert.False(t, b.Preroll)

	// the same target through a chapter offset
	require.NoError(t, s.Seek(25*time.Second, 10*time.Second, false))
	b, err = s.NextBlock()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, b.Time)

	for i := 1; i < s.Index.Len(); i++ {
		assert.LessOrEqual(t, s.Index.At(i-1).Pos, s.Index.At(i).Pos)
		assert.LessOrEqual(t, s.Index.At(i-1).Time, s.Index.At(i).Time)
	}
}

func TestSeekWithoutFastSeekEstimates(t *testing.T) {
	st := mkvio.NewStream(bytes.NewReader(cuesFile()))
	st.SetFastSeek(false)
	s := openSegment(t, st)
	require.NoError(t, s.Select(estest.NewRecorder(), 0))

	require.NoError(t, s.LoadCues())
	assert.False(t, s.HasCues())
	assert.Equal(t, 0, s.Index.Len())

	require.NoError(t, s.Seek(12*time.Second, 0, false))
	b, err := s.NextBlock()
	require.NoError(t, err)
	assert.Contains(t, []time.Duration{0, 10 * time.Second, 20 * time.Second}, b.Time)
	assert.True(t, b.KeyFrame)
}

func TestSeekByPercentIgnoresCues(t *testing.T) {
	s := openSegment(t, mkvio.NewStream(bytes.NewReader(cuesFile())))
	require.NoError(t, s.LoadCues())
	require.NoError(t, s.Seek(0, 0, true))

	b, err := s.NextBlock()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), b.Time)
}

func TestSelectUnselect(t *testing.T) {
	data := file(
		info(1000),
		Master(mkvio.ElementTracks, VP8Track(1), TrackEntry(3, 1, "V_BOGUS")),
		Cluster(0, SimpleBlock(1, 0, true, Frame(4))),
	)
	s := openSegment(t, mkvio.NewStream(bytes.NewReader(data)))
	rec := estest.NewRecorder()

	require.NoError(t, s.Select(rec, 0))
	require.Len(t, rec.Tracks, 2)
	assert.True(t, s.Selected())
	assert.Equal(t, es.Undefined, rec.Tracks[s.Track(3).Handle].Kind, "undefined codec is still exposed")
	assert.Equal(t, es.VP8, rec.Tracks[s.Track(1).Handle].Kind)

	s.Unselect()
	s.Unselect()
	assert.Len(t, rec.Removed, 2)
	assert.Empty(t, rec.Tracks)
	assert.False(t, s.Track(1).Bound)
	assert.False(t, s.Selected())
}

func TestIndex(t *testing.T) {
	var x segment.Index
	assert.True(t, x.Add(segment.Entry{Pos: 100, Time: 0}))
	assert.True(t, x.Add(segment.Entry{Pos: 200, Time: segment.NoTime}))
	assert.False(t, x.Add(segment.Entry{Pos: 150, Time: time.Second}), "position goes back")

	x.SetTime(200, 2*time.Second)
	assert.Equal(t, 2*time.Second, x.At(1).Time)
	x.SetTime(200, 3*time.Second)
	assert.Equal(t, 2*time.Second, x.At(1).Time, "time is only filled once")

	assert.False(t, x.Add(segment.Entry{Pos: 300, Time: time.Second}), "time goes back")
	assert.True(t, x.Add(segment.Entry{Pos: 300, Time: 4 * time.Second}))

	e, ok := x.Find(3*time.Second, 0)
	require.True(t, ok)
	assert.EqualValues(t, 200, e.Pos)

	e, ok = x.Find(3*time.Second, 2*time.Second)
	require.True(t, ok)
	assert.EqualValues(t, 100, e.Pos)

	_, ok = x.Find(-time.Second, 0)
	assert.False(t, ok)
}
