// Package track holds the Matroska track table: TrackEntry parsing, codec id
// mapping to sink descriptors and reversal of content compression.
package track

import (
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/language"

	"github.com/vdkmedia/mkvdemux/format/mkv/es"
	"github.com/vdkmedia/mkvdemux/format/mkv/mkvio"
)

// Matroska TrackType values.
const (
	TypeVideo    = 0x01
	TypeAudio    = 0x02
	TypeComplex  = 0x03
	TypeLogo     = 0x10
	TypeSubtitle = 0x11
	TypeButtons  = 0x12
	TypeControl  = 0x20
)

type Compression int

const (
	CompressNone Compression = iota
	CompressZlib
	CompressBzlib
	CompressLZO
	CompressHeaderStrip
)

// Encoding scopes.
const (
	ScopeFrames  = 1
	ScopePrivate = 2
	ScopeNext    = 4
)

type Video struct {
	PixelWidth, PixelHeight     int
	DisplayWidth, DisplayHeight int
	Interlaced                  bool
	FrameRate                   float64
}

type Audio struct {
	SamplingFrequency       float64
	OutputSamplingFrequency float64
	Channels                int
	BitDepth                int
}

type Track struct {
	Number    uint64
	UID       uint64
	Type      uint64
	Name      string
	Language  string
	CodecID   string
	CodecName string
	Private   []byte

	Default bool
	Forced  bool
	Enabled bool
	Lacing  bool

	DefaultDuration time.Duration
	CodecDelay      time.Duration
	SeekPreRoll     time.Duration

	Video Video
	Audio Audio

	Compression         Compression
	CompressionSettings []byte
	EncodingScope       uint64
	Encrypted           bool

	// Handle is the sink handle bound by Select; valid while Bound.
	Handle es.Handle
	Bound  bool

	// SearchKeyframe is set on video tracks after a seek until a keyframe shows up.
	SearchKeyframe bool
	// LastPTS is the presentation time of the last frame sent.
	LastPTS time.Duration
}

// Category derives the stream category from TrackType, falling back to the codec id.
func (t *Track) Category() es.Category {
	switch t.Type {
	case TypeVideo:
		return es.Video
	case TypeAudio:
		return es.Audio
	case TypeSubtitle:
		return es.Subtitle
	case TypeButtons:
		return es.Buttons
	}
	return Lookup(t.CodecID).Category()
}

// NormalizedLanguage maps the ISO 639-2 track language to its BCP 47 base.
func (t *Track) NormalizedLanguage() string {
	lang := t.Language
	if lang == "" {
		lang = "eng"
	}
	b, err := language.ParseBase(lang)
	if err != nil {
		return lang
	}
	return b.String()
}

// Parse reads the TrackEntry element c returned last.
func Parse(c *mkvio.Cursor) (*Track, error) {
	t := &Track{
		Enabled:  true,
		Default:  true,
		Lacing:   true,
		Language: "eng",
	}
	if err := c.Down(); err != nil {
		return nil, err
	}
	defer c.Up()

	var err error
	for el := c.Get(); el != nil && err == nil; el = c.Get() {
		switch el.ID {
		case mkvio.ElementTrackNumber.ID:
			t.Number, err = c.ReadUint()
		case mkvio.ElementTrackUID.ID:
			t.UID, err = c.ReadUint()
		case mkvio.ElementTrackType.ID:
			t.Type, err = c.ReadUint()
		case mkvio.ElementFlagEnabled.ID:
			t.Enabled, err = readFlag(c)
		case mkvio.ElementFlagDefault.ID:
			t.Default, err = readFlag(c)
		case mkvio.ElementFlagForced.ID:
			t.Forced, err = readFlag(c)
		case mkvio.ElementFlagLacing.ID:
			t.Lacing, err = readFlag(c)
		case mkvio.ElementName.ID:
			t.Name, err = c.ReadString()
		case mkvio.ElementLanguage.ID:
			t.Language, err = c.ReadString()
		case mkvio.ElementCodecID.ID:
			t.CodecID, err = c.ReadString()
		case mkvio.ElementCodecName.ID:
			t.CodecName, err = c.ReadString()
		case mkvio.ElementCodecPrivate.ID:
			t.Private, err = c.ReadBytes()
		case mkvio.ElementDefaultDuration.ID:
			var v uint64
			v, err = c.ReadUint()
			t.DefaultDuration = time.Duration(v)
		case mkvio.ElementCodecDelay.ID:
			var v uint64
			v, err = c.ReadUint()
			t.CodecDelay = time.Duration(v)
		case mkvio.ElementSeekPreRoll.ID:
			var v uint64
			v, err = c.ReadUint()
			t.SeekPreRoll = time.Duration(v)
		case mkvio.ElementVideo.ID:
			err = t.parseVideo(c)
		case mkvio.ElementAudio.ID:
			err = t.parseAudio(c)
		case mkvio.ElementContentEncodings.ID:
			err = t.parseEncodings(c)
		}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "track %d", t.Number)
	}
	if t.Number == 0 {
		return nil, errors.Wrap(mkvio.ErrParse, "track without number")
	}
	if t.Audio.OutputSamplingFrequency == 0 {
		t.Audio.OutputSamplingFrequency = t.Audio.SamplingFrequency
	}
	if t.Video.DisplayWidth == 0 {
		t.Video.DisplayWidth, t.Video.DisplayHeight = t.Video.PixelWidth, t.Video.PixelHeight
	}
	if t.Video.FrameRate == 0 && t.DefaultDuration > 0 && t.Type == TypeVideo {
		t.Video.FrameRate = float64(time.Second) / float64(t.DefaultDuration)
	}
	return t, nil
}

func readFlag(c *mkvio.Cursor) (bool, error) {
	v, err := c.ReadUint()
	return v != 0, err
}

func readInt(c *mkvio.Cursor) (int, error) {
	v, err := c.ReadUint()
	return int(v), err
}

func (t *Track) parseVideo(c *mkvio.Cursor) (err error) {
	if err = c.Down(); err != nil {
		return err
	}
	defer c.Up()
	for el := c.Get(); el != nil && err == nil; el = c.Get() {
		switch el.ID {
		case mkvio.ElementPixelWidth.ID:
			t.Video.PixelWidth, err = readInt(c)
		case mkvio.ElementPixelHeight.ID:
			t.Video.PixelHeight, err = readInt(c)
		case mkvio.ElementDisplayWidth.ID:
			t.Video.DisplayWidth, err = readInt(c)
		case mkvio.ElementDisplayHeight.ID:
			t.Video.DisplayHeight, err = readInt(c)
		case mkvio.ElementFlagInterlaced.ID:
			var v uint64
			v, err = c.ReadUint()
			t.Video.Interlaced = v == 1
		}
	}
	return err
}

func (t *Track) parseAudio(c *mkvio.Cursor) (err error) {
	if err = c.Down(); err != nil {
		return err
	}
	defer c.Up()
	t.Audio.Channels = 1
	t.Audio.SamplingFrequency = 8000
	for el := c.Get(); el != nil && err == nil; el = c.Get() {
		switch el.ID {
		case mkvio.ElementSamplingFrequency.ID:
			t.Audio.SamplingFrequency, err = c.ReadFloat()
		case mkvio.ElementOutputSamplingFrequency.ID:
			t.Audio.OutputSamplingFrequency, err = c.ReadFloat()
		case mkvio.ElementChannels.ID:
			t.Audio.Channels, err = readInt(c)
		case mkvio.ElementBitDepth.ID:
			t.Audio.BitDepth, err = readInt(c)
		}
	}
	return err
}

// parseEncodings keeps the first ContentEncoding, the only one applied in practice.
func (t *Track) parseEncodings(c *mkvio.Cursor) (err error) {
	if err = c.Down(); err != nil {
		return err
	}
	defer c.Up()
	for el := c.Get(); el != nil && err == nil; el = c.Get() {
		if !el.Is(mkvio.ElementContentEncoding) {
			continue
		}
		err = t.parseEncoding(c)
	}
	return err
}

func (t *Track) parseEncoding(c *mkvio.Cursor) (err error) {
	if err = c.Down(); err != nil {
		return err
	}
	defer c.Up()
	t.EncodingScope = ScopeFrames
	for el := c.Get(); el != nil && err == nil; el = c.Get() {
		switch el.ID {
		case mkvio.ElementContentEncodingScope.ID:
			t.EncodingScope, err = c.ReadUint()
		case mkvio.ElementContentEncryption.ID:
			t.Encrypted = true
		case mkvio.ElementContentCompression.ID:
			err = t.parseCompression(c)
		}
	}
	return err
}

func (t *Track) parseCompression(c *mkvio.Cursor) (err error) {
	if err = c.Down(); err != nil {
		return err
	}
	defer c.Up()
	t.Compression = CompressZlib
	for el := c.Get(); el != nil && err == nil; el = c.Get() {
		switch el.ID {
		case mkvio.ElementContentCompAlgo.ID:
			var v uint64
			v, err = c.ReadUint()
			switch v {
			case 0:
				t.Compression = CompressZlib
			case 1:
				t.Compression = CompressBzlib
			case 2:
				t.Compression = CompressLZO
			case 3:
				t.Compression = CompressHeaderStrip
			}
		case mkvio.ElementContentCompSettings.ID:
			t.CompressionSettings, err = c.ReadBytes()
		}
	}
	return err
}
