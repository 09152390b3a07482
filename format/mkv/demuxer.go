package mkv

import (
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/deepch/vdk/av"

	"github.com/vdkmedia/mkvdemux/format/mkv/es"
)

// Demuxer adapts a Session to av.Demuxer. Tracks whose codec the vdk
// parsers do not understand are not exposed; preroll frames are dropped.
type Demuxer struct {
	r    io.Reader
	path string
	opts Options

	s       *Session
	streams []*Stream
	handles map[es.Handle]*Stream
	next    es.Handle
	pkts    []av.Packet
	err     error
}

func NewDemuxer(r io.Reader) *Demuxer {
	return NewDemuxerOptions(r, DefaultOptions())
}

func NewDemuxerOptions(r io.Reader, opts Options) *Demuxer {
	return &Demuxer{
		r:       r,
		opts:    opts,
		handles: map[es.Handle]*Stream{},
	}
}

// OpenDemuxer opens a file with OpenFile, so PreloadLocalDir applies.
func OpenDemuxer(path string, opts Options) (*Demuxer, error) {
	d := &Demuxer{path: path, opts: opts, handles: map[es.Handle]*Stream{}}
	if err := d.probe(); err != nil {
		return nil, err
	}
	return d, nil
}

func (self *Demuxer) probe() error {
	if self.s != nil || self.err != nil {
		return self.err
	}
	if self.path != "" {
		self.s, self.err = OpenFile(self.path, (*packetSink)(self), self.opts)
	} else {
		self.s, self.err = Open(self.r, (*packetSink)(self), self.opts)
	}
	return self.err
}

// Session returns the underlying session, nil before the first call to
// Streams or ReadPacket.
func (self *Demuxer) Session() *Session {
	return self.s
}

func (self *Demuxer) Streams() (streams []av.CodecData, err error) {
	if err = self.probe(); err != nil {
		return
	}
	for _, stream := range self.streams {
		streams = append(streams, stream.CodecData)
	}
	if len(streams) == 0 {
		return nil, errors.New("mkv: no stream with a supported codec")
	}
	return
}

func (self *Demuxer) ReadPacket() (pkt av.Packet, err error) {
	if err = self.probe(); err != nil {
		return
	}
	for len(self.pkts) == 0 {
		var st Status
		if st, err = self.s.Demux(); err != nil {
			return
		}
		if st == EOF && len(self.pkts) == 0 {
			err = io.EOF
			return
		}
	}
	pkt = self.pkts[0]
	self.pkts = self.pkts[1:]
	return
}

// SeekToTime seeks the session and drops the packets already queued.
func (self *Demuxer) SeekToTime(t time.Duration) error {
	if err := self.probe(); err != nil {
		return err
	}
	self.pkts = self.pkts[:0]
	return self.s.Seek(t)
}

func (self *Demuxer) Close() error {
	if self.s == nil {
		return nil
	}
	return self.s.Close()
}

// packetSink queues the frames of a session as av packets.
type packetSink Demuxer

func (p *packetSink) AddTrack(d *es.Descriptor) (es.Handle, error) {
	p.next++
	h := p.next
	if d == nil || d.Codec == nil {
		p.handles[h] = nil
		return h, nil
	}
	// a track of a later linked segment takes over the stream of the same number
	for _, stream := range p.streams {
		if stream.Descriptor.ID == d.ID && stream.Type() == d.Codec.Type() {
			stream.Descriptor = d
			p.handles[h] = stream
			return h, nil
		}
	}
	stream := &Stream{CodecData: d.Codec, Descriptor: d, idx: len(p.streams)}
	p.streams = append(p.streams, stream)
	p.handles[h] = stream
	return h, nil
}

func (p *packetSink) RemoveTrack(h es.Handle) {
	delete(p.handles, h)
}

func (p *packetSink) Send(h es.Handle, f es.Frame) error {
	stream := p.handles[h]
	if stream == nil || f.Preroll {
		return nil
	}
	t := f.PTS
	if t == es.NoPTS {
		t = stream.lastTime + stream.lastDuration
	}
	stream.lastTime, stream.lastDuration = t, f.Duration
	p.pkts = append(p.pkts, av.Packet{
		IsKeyFrame: f.KeyFrame,
		Idx:        int8(stream.idx),
		Time:       t,
		Duration:   f.Duration,
		Data:       f.Data,
	})
	return nil
}

func (p *packetSink) SetPCR(time.Duration) {}
func (p *packetSink) ResetPCR()            {}

func (p *packetSink) Enabled(h es.Handle) bool {
	return p.handles[h] != nil
}
