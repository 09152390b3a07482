package mkv_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdkmedia/mkvdemux/format/mkv"
	"github.com/vdkmedia/mkvdemux/format/mkv/chapter"
	"github.com/vdkmedia/mkvdemux/format/mkv/es"
	"github.com/vdkmedia/mkvdemux/format/mkv/es/estest"
	"github.com/vdkmedia/mkvdemux/format/mkv/mkvio"
	. "github.com/vdkmedia/mkvdemux/format/mkv/mkvio/mkviotest"
)

// tagged is a frame whose second byte carries the segment-local second it
// was muxed at.
func tagged(sec int) []byte {
	return []byte{0xaa, byte(sec), 0xaa, 0xaa}
}

// movie builds a one segment file with a VP8 track, one keyframe cluster
// per listed second, cues for every cluster and optional chapters.
func movie(uid byte, secs []int, chapters []byte, extra ...[]byte) []byte {
	clusters := make([][]byte, len(secs))
	for i, sec := range secs {
		clusters[i] = Cluster(uint64(sec*1000), SimpleBlock(1, 0, true, tagged(sec)))
	}
	cues := func(pos []int) []byte {
		points := make([][]byte, len(secs))
		for i, sec := range secs {
			p := 0
			if pos != nil {
				p = pos[i]
			}
			points[i] = CuePoint(uint64(sec*1000), 1, p)
		}
		return Master(mkvio.ElementCues, points...)
	}
	seekHead := func(pos int) []byte {
		return Master(mkvio.ElementSeekHead, SeekEntry(mkvio.ElementCues, pos))
	}

	infos := append([][]byte{
		Uint(mkvio.ElementTimecodeScale, 1000000),
		Float(mkvio.ElementDuration, float64((secs[len(secs)-1]+1)*1000)),
		Binary(mkvio.ElementSegmentUID, UID(uid)),
		String(mkvio.ElementTitle, "movie"),
		String(mkvio.ElementMuxingApp, "mux"),
	}, extra...)
	head := [][]byte{
		seekHead(0),
		Master(mkvio.ElementInfo, infos...),
		Master(mkvio.ElementTracks, VP8Track(1)),
	}
	if chapters != nil {
		head = append(head, chapters)
	}
	parts := append(append(head, clusters...), cues(nil))

	off := Offsets(parts...)
	first := len(head)
	parts[0] = seekHead(off[len(parts)-1])
	parts[len(parts)-1] = cues(off[first : first+len(secs)])
	return Concat(Header("matroska"), Master(mkvio.ElementSegment, parts...))
}

func open(t *testing.T, data []byte, rec es.Sink) *mkv.Session {
	t.Helper()
	s, err := mkv.Open(bytes.NewReader(data), rec, mkv.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func drain(t *testing.T, s *mkv.Session) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		st, err := s.Demux()
		require.NoError(t, err)
		if st == mkv.EOF {
			return
		}
	}
	t.Fatal("demux did not reach the end")
}

func seconds(frames []estest.Sent) (local []int, pts []time.Duration) {
	for _, f := range frames {
		local = append(local, int(f.Data[1]))
		pts = append(pts, f.PTS)
	}
	return
}

func TestOpenRejects(t *testing.T) {
	_, err := mkv.Open(bytes.NewReader([]byte("RIFF\x00\x00\x00\x00WAVE")), nil, mkv.DefaultOptions())
	assert.True(t, errors.Is(err, mkv.ErrNotMatroska))

	_, err = mkv.Open(bytes.NewReader(Concat(Header("avi"), Master(mkvio.ElementSegment))), nil, mkv.DefaultOptions())
	assert.True(t, errors.Is(err, mkv.ErrNotMatroska), "wrong doc type")

	_, err = mkv.Open(bytes.NewReader(Header("webm")), nil, mkv.DefaultOptions())
	assert.True(t, errors.Is(err, mkv.ErrNoSegment))
}

func TestDemuxUnordered(t *testing.T) {
	rec := estest.NewRecorder()
	s := open(t, movie(1, []int{0, 1, 2}, nil), rec)
	require.Len(t, rec.Tracks, 1)

	drain(t, s)
	local, pts := seconds(rec.Shown(1))
	assert.Equal(t, []int{0, 1, 2}, local)
	assert.Equal(t, []time.Duration{0, time.Second, 2 * time.Second}, pts)
	for _, f := range rec.Frames {
		assert.Equal(t, es.NoPTS, f.DTS, "video frames carry no dts")
		assert.True(t, f.KeyFrame)
	}
	assert.Equal(t, []time.Duration{0, time.Second, 2 * time.Second}, rec.PCR)
	assert.Equal(t, 2*time.Second, s.Time())
	assert.Equal(t, 3*time.Second, s.Length())
}

func TestTitlesAndSeekpoints(t *testing.T) {
	chapters := Master(mkvio.ElementChapters, Edition(1, false, true,
		Chapter(1, 0, int64(30*time.Second), "one"),
		Chapter(2, int64(30*time.Second), int64(60*time.Second), "two"),
		Chapter(3, int64(60*time.Second), -1, "three"),
	))
	rec := estest.NewRecorder()
	s := open(t, movie(1, []int{0, 30, 60, 119}, chapters), rec)

	v, err := s.Control(mkv.GetTitleInfo)
	require.NoError(t, err)
	titles := v.([]mkv.Title)
	require.Len(t, titles, 1)
	require.Len(t, titles[0].Seekpoints, 3)
	assert.Equal(t, "one", titles[0].Name)
	assert.Equal(t, "two", titles[0].Seekpoints[1].Name)
	assert.Equal(t, 60*time.Second, titles[0].Seekpoints[2].Time)
	assert.Equal(t, 2*time.Minute, titles[0].Duration)

	ed := s.VSegment().Edition()
	assert.EqualValues(t, 2, s.VSegment().Arena().Get(ed.FindTimecode(45*time.Second)).UID)

	seen := []int{}
	for {
		sp, err := s.Control(mkv.GetSeekpoint)
		require.NoError(t, err)
		if n := len(seen); n == 0 || seen[n-1] != sp.(int) {
			seen = append(seen, sp.(int))
		}
		st, err := s.Demux()
		require.NoError(t, err)
		if st == mkv.EOF {
			break
		}
	}
	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestControlSeek(t *testing.T) {
	chapters := Master(mkvio.ElementChapters, Edition(1, false, true,
		Chapter(1, 0, int64(30*time.Second), "one"),
		Chapter(2, int64(30*time.Second), int64(60*time.Second), "two"),
	))
	rec := estest.NewRecorder()
	s := open(t, movie(1, []int{0, 30, 59}, chapters), rec)

	_, err := s.Control(mkv.SetTime, int64(30*time.Second/time.Microsecond))
	require.NoError(t, err)
	v, err := s.Control(mkv.GetTime)
	require.NoError(t, err)
	assert.Equal(t, int64(30000000), v)

	drain(t, s)
	local, _ := seconds(rec.Shown(1))
	assert.Equal(t, []int{30, 59}, local)

	rec.Frames = nil
	_, err = s.Control(mkv.SetSeekpoint, 0)
	require.NoError(t, err)
	drain(t, s)
	local, _ = seconds(rec.Shown(1))
	assert.Equal(t, []int{0, 30, 59}, local)

	_, err = s.Control(mkv.SetPosition, 0.5)
	require.NoError(t, err)
	pos, err := s.Control(mkv.GetPosition)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, pos.(float64), 0.01)

	_, err = s.Control(mkv.SetTitle, 4)
	assert.Error(t, err)
	_, err = s.Control(mkv.SetTime, "soon")
	assert.Error(t, err)
	_, err = s.Control(mkv.Query(99), 1)
	assert.True(t, errors.Is(err, mkv.ErrUnsupportedQuery))
}

func TestOrderedPlayback(t *testing.T) {
	chapters := Master(mkvio.ElementChapters, Edition(1, true, true,
		Chapter(1, int64(2*time.Second), int64(4*time.Second), "late"),
		Chapter(2, 0, int64(2*time.Second), "early"),
	))
	rec := estest.NewRecorder()
	s := open(t, movie(1, []int{0, 1, 2, 3}, chapters), rec)
	assert.Equal(t, 4*time.Second, s.Length())

	drain(t, s)
	local, pts := seconds(rec.Shown(1))
	assert.Equal(t, []int{2, 3, 0, 1}, local)
	assert.Equal(t, []time.Duration{0, time.Second, 2 * time.Second, 3 * time.Second}, pts)
	assert.GreaterOrEqual(t, rec.Resets, 2, "each chapter entry resets the clock")
}

func TestOrderedContiguousChapters(t *testing.T) {
	chapters := Master(mkvio.ElementChapters, Edition(1, true, true,
		Chapter(1, 0, int64(2*time.Second), "first"),
		Chapter(2, int64(2*time.Second), int64(4*time.Second), "second"),
	))
	rec := estest.NewRecorder()
	s := open(t, movie(1, []int{0, 1, 2, 3}, chapters), rec)

	var seekpoints []int
	for i := 0; i < 100; i++ {
		st, err := s.Demux()
		require.NoError(t, err)
		if st == mkv.EOF {
			break
		}
		sp, _ := s.Control(mkv.GetSeekpoint)
		seekpoints = append(seekpoints, sp.(int))
	}
	local, pts := seconds(rec.Shown(1))
	assert.Equal(t, []int{0, 1, 2, 3}, local, "the block opening the second chapter is kept")
	assert.Equal(t, []time.Duration{0, time.Second, 2 * time.Second, 3 * time.Second}, pts)
	assert.Contains(t, seekpoints, 1)
}

func TestOrderedSeekMapsThroughChapter(t *testing.T) {
	chapters := Master(mkvio.ElementChapters, Edition(1, true, true,
		Chapter(1, int64(2*time.Second), int64(4*time.Second), "late"),
		Chapter(2, 0, int64(2*time.Second), "early"),
	))
	rec := estest.NewRecorder()
	s := open(t, movie(1, []int{0, 1, 2, 3}, chapters), rec)

	require.NoError(t, s.Seek(3*time.Second))
	sp, _ := s.Control(mkv.GetSeekpoint)
	assert.Equal(t, 1, sp)
	drain(t, s)
	local, pts := seconds(rec.Shown(1))
	assert.Equal(t, []int{1}, local)
	assert.Equal(t, []time.Duration{3 * time.Second}, pts)
}

func scriptEnter(command string) []byte {
	return Master(mkvio.ElementChapProcess,
		Uint(mkvio.ElementChapProcessCodecID, chapter.CodecScript),
		Master(mkvio.ElementChapProcessCommand,
			Uint(mkvio.ElementChapProcessTime, 1),
			Binary(mkvio.ElementChapProcessData, []byte(command)),
		),
	)
}

func TestChapterCodecJump(t *testing.T) {
	chapters := Master(mkvio.ElementChapters, Edition(1, false, true,
		Chapter(1, 0, int64(30*time.Second), "intro", scriptEnter("GotoAndPlay(3)")),
		Chapter(2, int64(30*time.Second), int64(60*time.Second), "two"),
		Chapter(3, int64(60*time.Second), int64(90*time.Second), "three"),
	))
	rec := estest.NewRecorder()
	s := open(t, movie(1, []int{0, 30, 60}, chapters), rec)

	sp, _ := s.Control(mkv.GetSeekpoint)
	assert.Equal(t, 2, sp, "entering the first chapter jumps to the third")
	drain(t, s)
	local, _ := seconds(rec.Shown(1))
	assert.Equal(t, []int{60}, local)
}

func TestChapterCodecDisabled(t *testing.T) {
	chapters := Master(mkvio.ElementChapters, Edition(1, false, true,
		Chapter(1, 0, int64(30*time.Second), "intro", scriptEnter("GotoAndPlay(3)")),
		Chapter(3, int64(30*time.Second), int64(60*time.Second), "three"),
	))
	opts := mkv.DefaultOptions()
	opts.ChapterCodec = false
	rec := estest.NewRecorder()
	s, err := mkv.Open(bytes.NewReader(movie(1, []int{0, 30}, chapters)), rec, opts)
	require.NoError(t, err)
	defer s.Close()

	drain(t, s)
	local, _ := seconds(rec.Shown(1))
	assert.Equal(t, []int{0, 30}, local)
}

func TestChapterJumpLoopIsBounded(t *testing.T) {
	chapters := Master(mkvio.ElementChapters, Edition(1, false, true,
		Chapter(1, 0, int64(30*time.Second), "loop", scriptEnter("GotoAndPlay(1)")),
	))
	rec := estest.NewRecorder()
	s := open(t, movie(1, []int{0}, chapters), rec)
	drain(t, s)
	assert.Len(t, rec.Shown(1), 1)
}

func TestLinkedFilesInDirectory(t *testing.T) {
	dir := t.TempDir()
	first := movie(1, []int{0, 1}, nil, Binary(mkvio.ElementNextUID, UID(2)))
	second := movie(2, []int{2, 3}, nil, Binary(mkvio.ElementPrevUID, UID(1)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.mkv"), second, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mkv"), first, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	opts := mkv.DefaultOptions()
	opts.PreloadLocalDir = true
	rec := estest.NewRecorder()
	s, err := mkv.OpenFile(filepath.Join(dir, "b.mkv"), rec, opts)
	require.NoError(t, err)
	defer s.Close()

	require.Len(t, s.Segments(), 2)
	require.Len(t, s.VSegment().Segments, 2)
	drain(t, s)
	local, _ := seconds(rec.Shown(1))
	assert.Equal(t, []int{0, 1, 2, 3}, local)
	assert.NotEmpty(t, rec.Removed, "switching segment releases the old tracks")
}

func TestMeta(t *testing.T) {
	s := open(t, movie(1, []int{0}, nil), estest.NewRecorder())
	m := s.Meta()
	assert.Equal(t, "movie", m.Title)
	assert.Equal(t, "mux", m.MuxingApp)
	assert.Equal(t, time.Second, m.Duration)
}

func TestLoadOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mkv.toml")
	require.NoError(t, os.WriteFile(path, []byte("seek-by-percent = true\nuse-chapter-codec = false\n"), 0o644))
	opts, err := mkv.LoadOptions(path)
	require.NoError(t, err)
	assert.True(t, opts.SeekByPercent)
	assert.False(t, opts.ChapterCodec)
	assert.True(t, opts.OrderedChapters)

	opts, err = mkv.LoadOptions(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, mkv.DefaultOptions(), opts)

	require.NoError(t, os.WriteFile(path, []byte("seek-by-percent = ["), 0o644))
	_, err = mkv.LoadOptions(path)
	assert.Error(t, err)
}

var _ io.Closer = (*mkv.Session)(nil)
