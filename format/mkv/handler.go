package mkv

import (
	"bytes"
	"io"
	"strings"

	"github.com/deepch/vdk/av"
	"github.com/deepch/vdk/av/avutil"
)

var CodecTypes = []av.CodecType{av.H264, av.H265, av.AAC, av.OPUS}

func Handler(h *avutil.RegisterHandler) {
	h.Ext = ".mkv"

	h.Probe = func(b []byte) bool {
		return bytes.HasPrefix(b, Magic)
	}

	h.ReaderDemuxer = func(r io.Reader) av.Demuxer {
		return NewDemuxer(r)
	}

	h.UrlDemuxer = func(uri string) (ok bool, demuxer av.DemuxCloser, err error) {
		if strings.Contains(uri, "://") || !IsMatroskaName(uri) {
			return
		}
		d, err := OpenDemuxer(uri, DefaultOptions())
		if err != nil {
			return true, nil, err
		}
		return true, d, nil
	}

	h.CodecTypes = CodecTypes
}
