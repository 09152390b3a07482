// Package es describes the elementary streams a Matroska demuxer hands to an
// output sink: track descriptors, timed frames and the sink contract.
package es

import (
	"math"
	"time"

	"github.com/deepch/vdk/av"
)

type Category int

const (
	UnknownCategory Category = iota
	Video
	Audio
	Subtitle
	Buttons
)

func (c Category) String() string {
	switch c {
	case Video:
		return "video"
	case Audio:
		return "audio"
	case Subtitle:
		return "subtitle"
	case Buttons:
		return "buttons"
	}
	return "unknown"
}

// Descriptor is what a sink needs to set up a decoder for one track.
type Descriptor struct {
	ID       int // track number
	Category Category
	Kind     Kind
	CodecID  string

	// Codec is set for the kinds the vdk codec parsers understand.
	Codec av.CodecData
	Extra []byte
	// Headers holds the split Xiph headers (Vorbis, Theora, Kate).
	Headers [][]byte

	Name     string
	Language string
	Default  bool
	Forced   bool

	Width, Height               int
	DisplayWidth, DisplayHeight int
	FrameRate                   float64

	SampleRate    int
	Channels      int
	BitsPerSample int

	FourCC    string
	FormatTag uint16
	Palette   []uint32
}

// NoPTS marks a frame without a presentation time.
const NoPTS time.Duration = math.MinInt64

type Frame struct {
	Data     []byte
	PTS      time.Duration
	DTS      time.Duration
	Duration time.Duration
	KeyFrame bool
	// Discardable frames may be dropped by a late decoder.
	Discardable bool
	// Preroll frames prime the decoder after a seek and are not displayed.
	Preroll bool
}

type Handle int

// Sink consumes elementary stream frames in presentation order.
type Sink interface {
	AddTrack(d *Descriptor) (Handle, error)
	RemoveTrack(h Handle)
	Send(h Handle, f Frame) error
	// SetPCR advances the presentation clock reference.
	SetPCR(t time.Duration)
	// ResetPCR tells the sink the timeline jumped (seek, segment switch).
	ResetPCR()
	// Enabled reports whether the sink decodes h at all.
	Enabled(h Handle) bool
}

// Nop accepts and drops everything.
type Nop struct {
	next Handle
}

func (n *Nop) AddTrack(*Descriptor) (Handle, error) {
	n.next++
	return n.next, nil
}

func (n *Nop) RemoveTrack(Handle)       {}
func (n *Nop) Send(Handle, Frame) error { return nil }
func (n *Nop) SetPCR(time.Duration)     {}
func (n *Nop) ResetPCR()                {}
func (n *Nop) Enabled(Handle) bool      { return true }
