// Package webrtc plays demuxed elementary streams to a browser over a pion
// peer connection. Muxer is an es.Sink; the clock references sent by the
// demuxer pace the samples in real time.
package webrtc

import (
	"encoding/base64"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/deepch/vdk/codec/h264parser"
	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"

	"github.com/vdkmedia/mkvdemux/format/mkv/es"
)

const (
	// MimeTypeH264 H264 MIME type.
	MimeTypeH264 = "video/h264"
	// MimeTypeOpus Opus MIME type
	MimeTypeOpus = "audio/opus"
	// MimeTypeVP8 VP8 MIME type
	MimeTypeVP8 = "video/vp8"
	// MimeTypeVP9 VP9 MIME type
	MimeTypeVP9 = "video/vp9"
)

var (
	ErrorNotFound          = errors.New("WebRTC Stream Not Found")
	ErrorClientOffline     = errors.New("WebRTC Client Offline")
	ErrorNotTrackAvailable = errors.New("WebRTC Not Track Available")
	ErrorGatherTimeout     = errors.New("WebRTC ICE gathering timed out")
)

var startCode = []byte{0, 0, 0, 1}

// MimeType returns the WebRTC MIME type of k, empty when browsers cannot
// play it.
func MimeType(k es.Kind) string {
	switch k {
	case es.H264:
		return MimeTypeH264
	case es.VP8:
		return MimeTypeVP8
	case es.VP9:
		return MimeTypeVP9
	case es.Opus:
		return MimeTypeOpus
	}
	return ""
}

type Muxer struct {
	mu        sync.Mutex
	log       *slog.Logger
	streams   []*Stream
	handles   map[es.Handle]*Stream
	next      es.Handle
	status    webrtc.ICEConnectionState
	stop      bool
	pc        *webrtc.PeerConnection
	ClientACK *time.Timer
	StreamACK *time.Timer

	// wall clock of the first reference after a reset, and that reference
	clockStart time.Time
	pcrStart   time.Duration
}

// Stream is one local track. Matroska tracks of linked segments with the
// same MIME type share it.
type Stream struct {
	mime  string
	desc  *es.Descriptor
	last  time.Duration
	track *webrtc.TrackLocalStaticSample
}

func NewMuxer(log *slog.Logger) *Muxer {
	if log == nil {
		log = slog.Default()
	}
	return &Muxer{
		log:       log,
		handles:   map[es.Handle]*Stream{},
		ClientACK: time.NewTimer(time.Second * 20),
		StreamACK: time.NewTimer(time.Second * 20),
		pcrStart:  -1,
	}
}

// AddTrack takes the first video and the first audio track browsers can
// play. Later tracks of the same MIME type reuse its stream.
func (element *Muxer) AddTrack(d *es.Descriptor) (es.Handle, error) {
	element.mu.Lock()
	defer element.mu.Unlock()
	element.next++
	h := element.next
	mime := MimeType(d.Kind)
	if mime == "" {
		element.log.Debug("track not playable over webrtc", "track", d.ID, "kind", d.Kind)
		element.handles[h] = nil
		return h, nil
	}
	for _, s := range element.streams {
		if s.mime == mime {
			s.desc = d
			element.handles[h] = s
			return h, nil
		}
		if s.desc.Category == d.Category {
			// one stream per category
			element.handles[h] = nil
			return h, nil
		}
	}
	if element.pc != nil {
		element.log.Info("track added after negotiation, ignoring", "track", d.ID, "kind", d.Kind)
		element.handles[h] = nil
		return h, nil
	}
	s := &Stream{mime: mime, desc: d, last: es.NoPTS}
	element.streams = append(element.streams, s)
	element.handles[h] = s
	return h, nil
}

func (element *Muxer) RemoveTrack(h es.Handle) {
	element.mu.Lock()
	delete(element.handles, h)
	element.mu.Unlock()
}

func (element *Muxer) Enabled(h es.Handle) bool {
	element.mu.Lock()
	defer element.mu.Unlock()
	return element.handles[h] != nil
}

// WriteHeader answers the base64 SDP offer with a track per stream and
// returns the base64 answer once ICE gathering completed.
func (element *Muxer) WriteHeader(sdp64 string) (string, error) {
	var WriteHeaderSuccess bool
	if len(element.streams) == 0 {
		return "", ErrorNotFound
	}
	sdpB, err := base64.StdEncoding.DecodeString(sdp64)
	if err != nil {
		return "", errors.Wrap(err, "decode offer")
	}
	offer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  string(sdpB),
	}
	peerConnection, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return "", err
	}
	element.pc = peerConnection
	defer func() {
		if !WriteHeaderSuccess {
			if err := element.Close(); err != nil {
				element.log.Warn("close peer connection", "err", err)
			}
		}
	}()
	for _, s := range element.streams {
		id := "mkv-" + s.desc.Category.String()
		s.track, err = webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: s.mime}, id, "mkv")
		if err != nil {
			return "", err
		}
		if _, err = peerConnection.AddTrack(s.track); err != nil {
			return "", err
		}
	}
	peerConnection.OnICEConnectionStateChange(func(connectionState webrtc.ICEConnectionState) {
		element.mu.Lock()
		element.status = connectionState
		element.mu.Unlock()
		element.log.Debug("ice state", "state", connectionState.String())
		if connectionState == webrtc.ICEConnectionStateDisconnected {
			element.Close()
		}
	})
	peerConnection.OnDataChannel(func(d *webrtc.DataChannel) {
		d.OnMessage(func(msg webrtc.DataChannelMessage) {
			element.ClientACK.Reset(5 * time.Second)
		})
	})

	if err = peerConnection.SetRemoteDescription(offer); err != nil {
		return "", err
	}
	gatherCompletePromise := webrtc.GatheringCompletePromise(peerConnection)
	answer, err := peerConnection.CreateAnswer(nil)
	if err != nil {
		return "", err
	}
	if err = peerConnection.SetLocalDescription(answer); err != nil {
		return "", err
	}
	waitT := time.NewTimer(time.Second * 10)
	defer waitT.Stop()
	select {
	case <-waitT.C:
		return "", ErrorGatherTimeout
	case <-gatherCompletePromise:
	}
	resp := peerConnection.LocalDescription()
	WriteHeaderSuccess = true
	go element.WaitCloser()
	return base64.StdEncoding.EncodeToString([]byte(resp.SDP)), nil
}

// Connected reports whether the peer finished ICE.
func (element *Muxer) Connected() bool {
	element.mu.Lock()
	defer element.mu.Unlock()
	return element.status == webrtc.ICEConnectionStateConnected
}

// Send writes one frame as a sample. Frames sent before the peer connected
// are dropped.
func (element *Muxer) Send(h es.Handle, f es.Frame) error {
	element.mu.Lock()
	s, stop, status := element.handles[h], element.stop, element.status
	element.mu.Unlock()
	if stop {
		return ErrorClientOffline
	}
	if s == nil || s.track == nil || f.Preroll || status != webrtc.ICEConnectionStateConnected {
		return nil
	}
	element.StreamACK.Reset(10 * time.Second)

	dur := f.Duration
	if dur <= 0 && f.PTS != es.NoPTS && s.last != es.NoPTS && f.PTS > s.last {
		dur = f.PTS - s.last
	}
	if f.PTS != es.NoPTS {
		s.last = f.PTS
	}
	data := f.Data
	if s.mime == MimeTypeH264 {
		data = h264Sample(s.desc, f)
	}
	if err := s.track.WriteSample(media.Sample{Data: data, Duration: dur}); err != nil {
		element.Close()
		return errors.Wrap(err, "write sample")
	}
	return nil
}

// h264Sample turns the length prefixed NAL units of a Matroska block into
// Annex-B, repeating the parameter sets in front of keyframes.
func h264Sample(d *es.Descriptor, f es.Frame) []byte {
	var out []byte
	if codec, ok := d.Codec.(h264parser.CodecData); ok && f.KeyFrame {
		for _, ps := range [][]byte{codec.SPS(), codec.PPS()} {
			out = append(out, startCode...)
			out = append(out, ps...)
		}
	}
	nalus, typ := h264parser.SplitNALUs(f.Data)
	if typ == h264parser.NALU_ANNEXB && out == nil {
		return f.Data
	}
	for _, nalu := range nalus {
		out = append(out, startCode...)
		out = append(out, nalu...)
	}
	return out
}

// SetPCR blocks until the wall clock caught up with t.
func (element *Muxer) SetPCR(t time.Duration) {
	element.mu.Lock()
	if element.pcrStart < 0 {
		element.pcrStart = t
		element.clockStart = time.Now()
	}
	wait := time.Until(element.clockStart.Add(t - element.pcrStart))
	element.mu.Unlock()
	if wait > 0 {
		time.Sleep(wait)
	}
}

// ResetPCR restarts pacing from the next reference.
func (element *Muxer) ResetPCR() {
	element.mu.Lock()
	element.pcrStart = -1
	for _, s := range element.streams {
		s.last = es.NoPTS
	}
	element.mu.Unlock()
}

func (element *Muxer) WaitCloser() {
	waitT := time.NewTimer(time.Second * 10)
	defer waitT.Stop()
	for {
		select {
		case <-waitT.C:
			element.mu.Lock()
			stop := element.stop
			element.mu.Unlock()
			if stop {
				return
			}
			waitT.Reset(time.Second * 10)
		case <-element.StreamACK.C:
			element.log.Info("no samples sent, closing")
			element.Close()
		case <-element.ClientACK.C:
			element.log.Info("client stopped acknowledging, closing")
			element.Close()
		}
	}
}

// Done reports whether the connection was closed.
func (element *Muxer) Done() bool {
	element.mu.Lock()
	defer element.mu.Unlock()
	return element.stop
}

func (element *Muxer) Close() error {
	element.mu.Lock()
	element.stop = true
	pc := element.pc
	element.mu.Unlock()
	if pc != nil {
		return pc.Close()
	}
	return nil
}

var _ es.Sink = (*Muxer)(nil)
