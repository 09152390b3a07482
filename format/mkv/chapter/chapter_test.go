package chapter

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdkmedia/mkvdemux/format/mkv/mkvio"
	b "github.com/vdkmedia/mkvdemux/format/mkv/mkvio/mkviotest"
)

func add(a *Arena, ed *Edition, parent ID, uid uint64, start, end time.Duration) ID {
	id := a.New(Chapter{UID: uid, Start: start, End: end, Enabled: true, Parent: parent})
	if parent == None {
		ed.Chapters = append(ed.Chapters, id)
	} else {
		a.Get(parent).Children = append(a.Get(parent).Children, id)
	}
	return id
}

func checkInvariants(t *testing.T, ed *Edition) {
	t.Helper()
	ed.Walk(func(id ID, _ int) bool {
		c := ed.Chapter(id)
		assert.LessOrEqual(t, c.UserStart, c.UserEnd, "chapter %d", c.UID)
		return true
	})
	if !ed.Ordered {
		return
	}
	var siblings func(ids []ID)
	siblings = func(ids []ID) {
		for k := 0; k+1 < len(ids); k++ {
			assert.Equal(t, ed.Chapter(ids[k]).UserEnd, ed.Chapter(ids[k+1]).UserStart)
		}
		for _, id := range ids {
			siblings(ed.Chapter(id).Children)
		}
	}
	siblings(ed.Chapters)
}

func TestUnorderedFindTimecode(t *testing.T) {
	a := NewArena()
	ed := NewEdition(a)
	c1 := add(a, ed, None, 1, 0, 30*time.Second)
	c2 := add(a, ed, None, 2, 30*time.Second, 60*time.Second)
	c3 := add(a, ed, None, 3, 60*time.Second, NoTime)
	ed.Refresh()
	checkInvariants(t, ed)

	assert.Equal(t, c2, ed.FindTimecode(45*time.Second))
	assert.Equal(t, c1, ed.FindTimecode(0))
	assert.Equal(t, c3, ed.FindTimecode(60*time.Second))
	assert.Equal(t, 60*time.Second, ed.Chapter(c3).UserEnd)
	assert.Len(t, ed.Publish(), 3)
}

func TestUnorderedSortsAndFillsEnds(t *testing.T) {
	a := NewArena()
	ed := NewEdition(a)
	late := add(a, ed, None, 2, 40*time.Second, NoTime)
	early := add(a, ed, None, 1, 10*time.Second, NoTime)
	ed.Refresh()

	assert.Equal(t, []ID{early, late}, ed.Chapters)
	assert.Equal(t, 40*time.Second, ed.Chapter(early).UserEnd, "open chapter ends at next sibling")
	assert.Equal(t, 40*time.Second, ed.Chapter(late).UserEnd)

	// gap before the first chapter is outside the edition
	assert.Equal(t, None, ed.FindTimecode(5*time.Second))
}

func TestOrderedRefresh(t *testing.T) {
	a := NewArena()
	ed := NewEdition(a)
	ed.Ordered = true
	c1 := add(a, ed, None, 1, 10*time.Second, 20*time.Second)
	c2 := add(a, ed, None, 2, 50*time.Second, 70*time.Second)
	ed.Refresh()
	checkInvariants(t, ed)

	assert.Equal(t, time.Duration(0), ed.Chapter(c1).UserStart)
	assert.Equal(t, 10*time.Second, ed.Chapter(c1).UserEnd)
	assert.Equal(t, 10*time.Second, ed.Chapter(c2).UserStart)
	assert.Equal(t, 30*time.Second, ed.Chapter(c2).UserEnd)
	assert.Equal(t, 30*time.Second, ed.Duration())
	assert.Equal(t, c2, ed.FindTimecode(15*time.Second))
}

func TestOrderedNested(t *testing.T) {
	a := NewArena()
	ed := NewEdition(a)
	ed.Ordered = true
	parent := add(a, ed, None, 1, 0, 100*time.Second)
	k1 := add(a, ed, parent, 11, 5*time.Second, 8*time.Second)
	k2 := add(a, ed, parent, 12, 20*time.Second, 24*time.Second)
	tail := add(a, ed, None, 2, 0, 5*time.Second)
	backwards := add(a, ed, None, 3, 9*time.Second, 2*time.Second)
	ed.Refresh()
	checkInvariants(t, ed)

	assert.Equal(t, 3*time.Second, ed.Chapter(k1).UserEnd)
	assert.Equal(t, 7*time.Second, ed.Chapter(k2).UserEnd)
	assert.Equal(t, 7*time.Second, ed.Chapter(parent).UserEnd, "parent spans its children")
	assert.Equal(t, 12*time.Second, ed.Chapter(tail).UserEnd)
	assert.Equal(t, ed.Chapter(backwards).UserStart, ed.Chapter(backwards).UserEnd)
	assert.Equal(t, k2, ed.FindTimecode(4*time.Second))
}

func TestFindTimecodeTotality(t *testing.T) {
	a := NewArena()
	ed := NewEdition(a)
	add(a, ed, None, 1, 0, 10*time.Second)
	add(a, ed, None, 2, 20*time.Second, 30*time.Second)
	ed.Refresh()

	for ts := time.Duration(0); ts < ed.Duration(); ts += 500 * time.Millisecond {
		assert.NotEqual(t, None, ed.FindTimecode(ts), "t=%s", ts)
	}
	assert.Equal(t, None, ed.FindTimecode(ed.Duration()))
}

type recorder struct {
	calls []string
	stop  string
}

func (r *recorder) Enter(id ID) bool {
	s := fmt.Sprintf("enter %d", id)
	r.calls = append(r.calls, s)
	return s == r.stop
}

func (r *recorder) Leave(id ID) bool {
	s := fmt.Sprintf("leave %d", id)
	r.calls = append(r.calls, s)
	return s == r.stop
}

func TestEnterAndLeave(t *testing.T) {
	a := NewArena()
	ed := NewEdition(a)
	root := add(a, ed, None, 1, 0, 0)  // 0
	x := add(a, ed, root, 2, 0, 0)     // 1
	x1 := add(a, ed, x, 3, 0, 0)       // 2
	y := add(a, ed, root, 4, 0, 0)     // 3
	y1 := add(a, ed, y, 5, 0, 0)       // 4
	other := add(a, ed, None, 6, 0, 0) // 5

	r := &recorder{}
	assert.False(t, a.EnterAndLeave(x1, y1, r))
	assert.Equal(t, []string{"leave 2", "leave 1", "enter 3", "enter 4"}, r.calls)

	r = &recorder{}
	a.EnterAndLeave(None, x1, r)
	assert.Equal(t, []string{"enter 0", "enter 1", "enter 2"}, r.calls)

	r = &recorder{}
	a.EnterAndLeave(y1, None, r)
	assert.Equal(t, []string{"leave 4", "leave 3", "leave 0"}, r.calls)

	r = &recorder{}
	a.EnterAndLeave(x1, x, r)
	assert.Equal(t, []string{"leave 2", "enter 1"}, r.calls)

	r = &recorder{stop: "leave 1"}
	assert.True(t, a.EnterAndLeave(x1, other, r))
	assert.Equal(t, []string{"leave 2", "leave 1"}, r.calls)
}

func TestAppendMergesByUID(t *testing.T) {
	a := NewArena()
	first := NewEdition(a)
	p := add(a, first, None, 1, 0, 10*time.Second)
	add(a, first, p, 11, 0, 5*time.Second)

	second := NewEdition(a)
	q := add(a, second, None, 1, 0, 10*time.Second)
	add(a, second, q, 12, 5*time.Second, 10*time.Second)
	add(a, second, None, 2, 10*time.Second, 20*time.Second)

	merged := first.Clone(a)
	merged.Append(second)

	require.Len(t, merged.Chapters, 2)
	top := merged.Chapter(merged.Chapters[0])
	require.Len(t, top.Children, 2)
	assert.EqualValues(t, 12, merged.Chapter(top.Children[1]).UID)
	assert.Equal(t, merged.Chapters[0], merged.Chapter(top.Children[1]).Parent)
	assert.Len(t, first.Chapter(first.Chapters[0]).Children, 1, "source edition untouched")
	assert.NotEqual(t, None, merged.FindUID(2))
}

func TestParse(t *testing.T) {
	data := b.Master(mkvio.ElementChapters,
		b.Master(mkvio.ElementEditionEntry,
			b.Uint(mkvio.ElementEditionUID, 77),
			b.Uint(mkvio.ElementEditionFlagOrdered, 1),
			b.Uint(mkvio.ElementEditionFlagDefault, 1),
			b.Master(mkvio.ElementChapterAtom,
				b.Uint(mkvio.ElementChapterUID, 100),
				b.Uint(mkvio.ElementChapterTimeStart, uint64(10*time.Second)),
				b.Uint(mkvio.ElementChapterTimeEnd, uint64(20*time.Second)),
				b.Master(mkvio.ElementChapterDisplay,
					b.String(mkvio.ElementChapString, "Intro"),
					b.String(mkvio.ElementChapLanguage, "eng"),
				),
				b.Master(mkvio.ElementChapProcess,
					b.Uint(mkvio.ElementChapProcessCodecID, CodecDVD),
					b.Binary(mkvio.ElementChapProcessPrivate, []byte{0x28, 0x00, 0x02}),
					b.Master(mkvio.ElementChapProcessCommand,
						b.Uint(mkvio.ElementChapProcessTime, 1),
						b.Binary(mkvio.ElementChapProcessData, []byte{1, 0x30, 0x02, 0, 0, 0, 2, 0, 0}),
					),
				),
				b.Master(mkvio.ElementChapterAtom,
					b.Uint(mkvio.ElementChapterUID, 101),
					b.Uint(mkvio.ElementChapterFlagHidden, 1),
				),
			),
		),
	)
	s := mkvio.NewStream(bytes.NewReader(data))
	outer := mkvio.NewCursor(s, mkvio.Element{
		ElementRegister: mkvio.ElementSegment,
		DataPos:         0,
		Size:            int64(len(data)),
	})
	require.NotNil(t, outer.Get())

	a := NewArena()
	eds, err := Parse(outer, a, 3)
	require.NoError(t, err)
	require.Len(t, eds, 1)
	assert.Equal(t, 0, outer.Balance())

	ed := eds[0]
	assert.EqualValues(t, 77, ed.UID)
	assert.True(t, ed.Ordered)
	assert.True(t, ed.Default)
	require.Len(t, ed.Chapters, 1)

	ch := ed.Chapter(ed.Chapters[0])
	assert.EqualValues(t, 100, ch.UID)
	assert.Equal(t, "Intro", ch.Name())
	assert.Equal(t, 3, ch.Owner)
	require.Len(t, ch.Codecs, 1)
	assert.EqualValues(t, CodecDVD, ch.Codecs[0].Codec)
	assert.Len(t, ch.Codecs[0].Enter, 1)
	require.Len(t, ch.Children, 1)
	assert.True(t, ed.Chapter(ch.Children[0]).Hidden)
	assert.Equal(t, NoTime, ed.Chapter(ch.Children[0]).End)

	pts := ed.Publish()
	require.Len(t, pts, 1)
	assert.Equal(t, "Intro", pts[0].Name)
}
