package mkv

import (
	"time"

	"github.com/deepch/vdk/av"

	"github.com/vdkmedia/mkvdemux/format/mkv/es"
)

type Stream struct {
	av.CodecData
	// Descriptor is the track the stream was built from.
	Descriptor *es.Descriptor

	idx int

	lastTime     time.Duration
	lastDuration time.Duration
}
