package webrtc

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdkmedia/mkvdemux/format/mkv/es"
)

func TestMimeType(t *testing.T) {
	assert.Equal(t, MimeTypeH264, MimeType(es.H264))
	assert.Equal(t, MimeTypeVP9, MimeType(es.VP9))
	assert.Equal(t, MimeTypeOpus, MimeType(es.Opus))
	assert.Empty(t, MimeType(es.AAC))
}

func TestAddTrack(t *testing.T) {
	m := NewMuxer(nil)
	vp8, err := m.AddTrack(&es.Descriptor{ID: 1, Category: es.Video, Kind: es.VP8})
	require.NoError(t, err)
	vp9, err := m.AddTrack(&es.Descriptor{ID: 2, Category: es.Video, Kind: es.VP9})
	require.NoError(t, err)
	aac, err := m.AddTrack(&es.Descriptor{ID: 3, Category: es.Audio, Kind: es.AAC})
	require.NoError(t, err)
	opus, err := m.AddTrack(&es.Descriptor{ID: 4, Category: es.Audio, Kind: es.Opus})
	require.NoError(t, err)

	assert.True(t, m.Enabled(vp8))
	assert.False(t, m.Enabled(vp9), "one video stream only")
	assert.False(t, m.Enabled(aac))
	assert.True(t, m.Enabled(opus))
	assert.Len(t, m.streams, 2)

	// the same track of a linked segment
	m.RemoveTrack(vp8)
	again, err := m.AddTrack(&es.Descriptor{ID: 1, Category: es.Video, Kind: es.VP8})
	require.NoError(t, err)
	assert.True(t, m.Enabled(again))
	assert.Len(t, m.streams, 2)

	// not connected yet
	assert.NoError(t, m.Send(again, es.Frame{Data: []byte{1}, PTS: 0}))
	require.NoError(t, m.Close())
	assert.True(t, m.Done())
	assert.ErrorIs(t, m.Send(again, es.Frame{Data: []byte{1}}), ErrorClientOffline)
}

func TestWriteHeaderRejects(t *testing.T) {
	_, err := NewMuxer(nil).WriteHeader("")
	assert.ErrorIs(t, err, ErrorNotFound)

	m := NewMuxer(nil)
	_, err = m.AddTrack(&es.Descriptor{ID: 1, Category: es.Audio, Kind: es.Opus})
	require.NoError(t, err)
	_, err = m.WriteHeader("%%%")
	assert.Error(t, err)
	_, err = m.WriteHeader(base64.StdEncoding.EncodeToString([]byte("v=0\r\n")))
	assert.Error(t, err)
	assert.True(t, m.Done())
}

func TestH264Sample(t *testing.T) {
	d := &es.Descriptor{Kind: es.H264}
	avcc := []byte{0, 0, 0, 2, 0x65, 0x88, 0, 0, 0, 1, 0x06}
	assert.Equal(t, []byte{0, 0, 0, 1, 0x65, 0x88, 0, 0, 0, 1, 0x06}, h264Sample(d, es.Frame{Data: avcc, KeyFrame: true}))

	annexb := []byte{0, 0, 0, 1, 0x41, 0x9a, 0x80}
	assert.Equal(t, annexb, h264Sample(d, es.Frame{Data: annexb}))
}

func TestPacing(t *testing.T) {
	m := NewMuxer(nil)
	start := time.Now()
	m.SetPCR(time.Second)
	m.SetPCR(time.Second + 30*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)

	m.ResetPCR()
	start = time.Now()
	m.SetPCR(0)
	assert.Less(t, time.Since(start), 25*time.Millisecond, "a reset restarts the clock")
}
