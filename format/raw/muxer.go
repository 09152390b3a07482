// Package raw writes elementary streams to plain files: Annex-B for H.264
// and H.265, ADTS for AAC and the frames as they are for everything else.
package raw

import (
	"bytes"
	"io"

	"github.com/deepch/vdk/av"
	"github.com/deepch/vdk/codec/aacparser"
	"github.com/deepch/vdk/codec/h264parser"
	"github.com/deepch/vdk/codec/h265parser"
)

var startCode = []byte{0, 0, 0, 1}

// Muxer writes the packets of one stream of a set.
type Muxer struct {
	idx   int8
	codec av.CodecData
	w     io.Writer
}

func NewMuxer(w io.Writer) *Muxer {
	return &Muxer{w: w, idx: -1}
}

// WriteHeader picks the last stream of the set whose format Muxer knows,
// writing the parameter sets of video streams up front.
func (element *Muxer) WriteHeader(streams []av.CodecData) (err error) {
	for i, stream := range streams {
		switch stream.Type() {
		case av.H264:
			codec := stream.(h264parser.CodecData)
			_, err = element.w.Write(append(startCode, bytes.Join([][]byte{codec.SPS(), codec.PPS()}, startCode)...))
		case av.H265:
			codec := stream.(h265parser.CodecData)
			_, err = element.w.Write(append(startCode, bytes.Join([][]byte{codec.VPS(), codec.SPS(), codec.PPS()}, startCode)...))
		case av.AAC:
		default:
			continue
		}
		if err != nil {
			return
		}
		element.idx = int8(i)
		element.codec = stream
	}
	return
}

func (element *Muxer) WritePacket(pkt *av.Packet) (err error) {
	if element.codec == nil || pkt.Idx != element.idx {
		return
	}
	switch element.codec.Type() {
	case av.H264, av.H265:
		_, err = element.w.Write(annexB(pkt.Data))
	case av.AAC:
		codec := element.codec.(aacparser.CodecData)
		header := make([]byte, aacparser.ADTSHeaderLength)
		aacparser.FillADTSHeader(header, codec.Config, 1024, len(pkt.Data))
		if _, err = element.w.Write(header); err != nil {
			return
		}
		_, err = element.w.Write(pkt.Data)
	}
	return
}

// annexB turns length prefixed NAL units into start code delimited ones.
func annexB(data []byte) []byte {
	nalus, typ := h264parser.SplitNALUs(data)
	if typ == h264parser.NALU_ANNEXB {
		return data
	}
	out := make([]byte, 0, len(data)+len(nalus)*len(startCode))
	for _, nalu := range nalus {
		out = append(out, startCode...)
		out = append(out, nalu...)
	}
	return out
}
