package vsegment_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdkmedia/mkvdemux/format/mkv/chapcodec"
	"github.com/vdkmedia/mkvdemux/format/mkv/chapter"
	"github.com/vdkmedia/mkvdemux/format/mkv/mkvio"
	. "github.com/vdkmedia/mkvdemux/format/mkv/mkvio/mkviotest"
	"github.com/vdkmedia/mkvdemux/format/mkv/segment"
	"github.com/vdkmedia/mkvdemux/format/mkv/vsegment"
)

type fixture struct {
	uid, prev, next, family byte
	start                   uint64 // first cluster timecode in ms
	ordered                 bool
	chapters                [][]byte
}

func build(t *testing.T, owner int, sp fixture) *segment.Segment {
	t.Helper()
	infos := [][]byte{
		Uint(mkvio.ElementTimecodeScale, 1000000),
		Float(mkvio.ElementDuration, 10000),
		Binary(mkvio.ElementSegmentUID, UID(sp.uid)),
	}
	if sp.prev != 0 {
		infos = append(infos, Binary(mkvio.ElementPrevUID, UID(sp.prev)))
	}
	if sp.next != 0 {
		infos = append(infos, Binary(mkvio.ElementNextUID, UID(sp.next)))
	}
	if sp.family != 0 {
		infos = append(infos, Binary(mkvio.ElementSegmentFamily, UID(sp.family)))
	}
	data := Concat(Header("matroska"), Master(mkvio.ElementSegment,
		Master(mkvio.ElementInfo, infos...),
		Master(mkvio.ElementTracks, VP8Track(1)),
		Master(mkvio.ElementChapters, Edition(5, sp.ordered, true, sp.chapters...)),
		Cluster(sp.start, SimpleBlock(1, 0, true, Frame(4))),
	))

	st := mkvio.NewStream(bytes.NewReader(data))
	head, err := mkvio.ReadElementHeader(st)
	require.NoError(t, err)
	el, err := mkvio.ReadElementAt(st, head.End())
	require.NoError(t, err)
	return segment.New(st, el, segment.Options{Ordered: true, Owner: owner})
}

func TestLinkedChain(t *testing.T) {
	a := build(t, 0, fixture{uid: 1, next: 2, family: 9, chapters: [][]byte{
		Chapter(11, 0, int64(10*time.Second), "a"),
	}})
	b := build(t, 1, fixture{uid: 2, prev: 1, start: 10000, chapters: [][]byte{
		Chapter(21, int64(10*time.Second), int64(20*time.Second), "b"),
	}})
	c := build(t, 2, fixture{uid: 3, family: 9})
	d := build(t, 3, fixture{uid: 4})

	v := vsegment.New(b, []*segment.Segment{b, d, c, a}, nil)

	require.Equal(t, []*segment.Segment{a, b}, v.Segments)
	assert.Equal(t, []*segment.Segment{c}, v.Family)
	assert.False(t, v.Contains(d))

	require.Len(t, v.Editions, 1)
	ed := v.Edition()
	require.NotNil(t, ed)
	require.Len(t, ed.Chapters, 2, "editions of both segments are merged")
	assert.Equal(t, 20*time.Second, v.Duration())

	edIdx, id := v.FindUID(21)
	assert.Equal(t, 0, edIdx)
	require.NotEqual(t, chapter.None, id)
	assert.Equal(t, 1, v.ChapterSegment(id))
	assert.Equal(t, time.Duration(0), v.ChapterOffset(id))
	assert.Equal(t, id, ed.FindTimecode(15*time.Second))

	assert.Equal(t, 0, v.SegmentFor(5*time.Second))
	assert.Equal(t, 1, v.SegmentFor(15*time.Second))
	assert.Equal(t, 1, v.SegmentFor(25*time.Second))

	assert.Equal(t, a, v.Segment())
	assert.True(t, v.SelectNext())
	assert.Equal(t, b, v.Segment())
	assert.False(t, v.SelectNext())
	assert.Equal(t, 1, v.SegmentIndex())
}

func TestOrderedChainOffsets(t *testing.T) {
	a := build(t, 0, fixture{uid: 1, next: 2, ordered: true, chapters: [][]byte{
		Chapter(11, int64(2*time.Second), int64(6*time.Second), "a"),
	}})
	b := build(t, 1, fixture{uid: 2, prev: 1, ordered: true, chapters: [][]byte{
		Chapter(21, 0, int64(5*time.Second), "b"),
	}})

	v := vsegment.New(a, []*segment.Segment{a, b}, nil)
	require.Len(t, v.Segments, 2)
	assert.True(t, v.Ordered())
	assert.Equal(t, 9*time.Second, v.Duration())

	_, first := v.FindUID(11)
	_, second := v.FindUID(21)
	assert.Equal(t, -2*time.Second, v.ChapterOffset(first))
	assert.Equal(t, 4*time.Second, v.ChapterOffset(second))
	assert.Equal(t, 1, v.ChapterSegment(second))
}

func TestEditionSelection(t *testing.T) {
	a := build(t, 0, fixture{uid: 1, chapters: [][]byte{Chapter(11, 0, -1, "a")}})
	v := vsegment.New(a, []*segment.Segment{a}, nil)

	assert.Equal(t, 0, v.EditionIndex())
	v.SetChapter(0)
	assert.False(t, v.SetEdition(3))
	assert.Equal(t, chapter.ID(0), v.Chapter())
	assert.True(t, v.SetEdition(0))
	assert.Equal(t, chapter.None, v.Chapter(), "switching edition forgets the chapter")
}

func TestFindCodec(t *testing.T) {
	dvd := func(private ...byte) []byte {
		return Master(mkvio.ElementChapProcess,
			Uint(mkvio.ElementChapProcessCodecID, chapter.CodecDVD),
			Binary(mkvio.ElementChapProcessPrivate, private),
		)
	}
	a := build(t, 0, fixture{uid: 1, chapters: [][]byte{
		Chapter(11, 0, int64(5*time.Second), "title 1", dvd(chapcodec.LevelTT, 0, 1),
			Chapter(111, 0, int64(5*time.Second), "", dvd(chapcodec.LevelPTT, 0, 1)),
		),
		Chapter(12, int64(5*time.Second), int64(10*time.Second), "title 2", dvd(chapcodec.LevelTT, 0, 2),
			Chapter(121, int64(5*time.Second), int64(10*time.Second), "", dvd(chapcodec.LevelPTT, 0, 1)),
		),
	}})
	v := vsegment.New(a, []*segment.Segment{a}, nil)

	_, title := v.FindCodec(chapter.None, chapter.CodecDVD, chapcodec.MatchNumber(chapcodec.LevelTT, 2))
	require.NotEqual(t, chapter.None, title)
	assert.EqualValues(t, 12, v.Arena().Get(title).UID)

	_, ptt := v.FindCodec(title, chapter.CodecDVD, chapcodec.MatchNumber(chapcodec.LevelPTT, 1))
	require.NotEqual(t, chapter.None, ptt)
	assert.EqualValues(t, 121, v.Arena().Get(ptt).UID, "scoped search stays under the title")

	_, none := v.FindCodec(chapter.None, chapter.CodecDVD, chapcodec.MatchNumber(chapcodec.LevelTT, 7))
	assert.Equal(t, chapter.None, none)
}
