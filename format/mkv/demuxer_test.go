package mkv_test

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/deepch/vdk/av"
	"github.com/deepch/vdk/av/avutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdkmedia/mkvdemux/format/mkv"
	"github.com/vdkmedia/mkvdemux/format/mkv/mkvio"
	. "github.com/vdkmedia/mkvdemux/format/mkv/mkvio/mkviotest"
)

func aacFile() []byte {
	aac := TrackEntry(1, 2, "A_AAC",
		Binary(mkvio.ElementCodecPrivate, []byte{0x12, 0x10}),
		Master(mkvio.ElementAudio,
			Float(mkvio.ElementSamplingFrequency, 44100),
			Uint(mkvio.ElementChannels, 2),
		),
	)
	return Concat(Header("matroska"), Master(mkvio.ElementSegment,
		Master(mkvio.ElementInfo,
			Uint(mkvio.ElementTimecodeScale, 1000000),
			Float(mkvio.ElementDuration, 100),
		),
		Master(mkvio.ElementTracks, aac, VP8Track(2)),
		Cluster(0,
			SimpleBlock(1, 0, true, Frame(6)),
			SimpleBlock(2, 0, true, Frame(8)),
			SimpleBlock(1, 23, true, Frame(6)),
		),
		Cluster(46,
			SimpleBlock(1, 0, true, Frame(6)),
		),
	))
}

func TestDemuxerPackets(t *testing.T) {
	d := mkv.NewDemuxer(bytes.NewReader(aacFile()))
	defer d.Close()

	streams, err := d.Streams()
	require.NoError(t, err)
	require.Len(t, streams, 1, "only codecs the av parsers know become streams")
	assert.Equal(t, av.AAC, streams[0].Type())

	var times []time.Duration
	for {
		pkt, err := d.ReadPacket()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, int8(0), pkt.Idx)
		assert.True(t, pkt.IsKeyFrame)
		assert.Len(t, pkt.Data, 6)
		times = append(times, pkt.Time)
	}
	assert.Equal(t, []time.Duration{0, 23 * time.Millisecond, 46 * time.Millisecond}, times)
}

func TestDemuxerSeek(t *testing.T) {
	d := mkv.NewDemuxer(bytes.NewReader(aacFile()))
	_, err := d.Streams()
	require.NoError(t, err)

	require.NoError(t, d.SeekToTime(40*time.Millisecond))
	pkt, err := d.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, 46*time.Millisecond, pkt.Time)
}

func TestDemuxerRejects(t *testing.T) {
	d := mkv.NewDemuxer(bytes.NewReader([]byte("not a matroska file")))
	_, err := d.Streams()
	assert.ErrorIs(t, err, mkv.ErrNotMatroska)
	_, err = d.ReadPacket()
	assert.ErrorIs(t, err, mkv.ErrNotMatroska)
}

func TestHandlerProbe(t *testing.T) {
	var h avutil.RegisterHandler
	mkv.Handler(&h)
	assert.Equal(t, ".mkv", h.Ext)
	assert.True(t, h.Probe(aacFile()[:16]))
	assert.False(t, h.Probe([]byte{0x47, 0x40, 0x00, 0x10}))

	ok, _, err := h.UrlDemuxer("rtsp://camera/stream.mkv")
	assert.False(t, ok)
	assert.NoError(t, err)
	ok, _, err = h.UrlDemuxer("/nonexistent/movie.mkv")
	assert.True(t, ok)
	assert.Error(t, err)
}
