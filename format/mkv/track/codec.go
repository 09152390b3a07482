package track

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/deepch/vdk/av"
	"github.com/deepch/vdk/codec"
	"github.com/deepch/vdk/codec/aacparser"
	"github.com/deepch/vdk/codec/h264parser"
	"github.com/deepch/vdk/codec/h265parser"

	"github.com/vdkmedia/mkvdemux/format/mkv/es"
)

var ErrUndefinedCodec = errors.New("track: undefined codec id")

type initFunc func(t *Track, d *es.Descriptor) error

type codecEntry struct {
	kind es.Kind
	init initFunc
}

var exactCodecs = map[string]codecEntry{
	"V_MPEG4/ISO/AVC":  {es.H264, initAVC},
	"V_MPEGH/ISO/HEVC": {es.H265, initHEVC},
	"V_MPEG4/MS/V3":    {es.DIV3, nil},
	"V_MPEG1":          {es.MPEGVideo, nil},
	"V_MPEG2":          {es.MPEGVideo, nil},
	"V_THEORA":         {es.Theora, initXiph},
	"V_VP8":            {es.VP8, nil},
	"V_VP9":            {es.VP9, nil},
	"V_AV1":            {es.AV1, nil},
	"V_MS/VFW/FOURCC":  {es.VFW, initVFW},
	"V_UNCOMPRESSED":   {es.Uncompressed, nil},

	"A_MPEG/L1":        {es.MPEGAudio, nil},
	"A_MPEG/L2":        {es.MPEGAudio, nil},
	"A_MPEG/L3":        {es.MPEGAudio, nil},
	"A_AC3":            {es.AC3, nil},
	"A_EAC3":           {es.EAC3, nil},
	"A_DTS":            {es.DTS, nil},
	"A_TRUEHD":         {es.TrueHD, nil},
	"A_MLP":            {es.MLP, nil},
	"A_FLAC":           {es.FLAC, nil},
	"A_VORBIS":         {es.Vorbis, initXiph},
	"A_OPUS":           {es.Opus, initOpus},
	"A_AAC":            {es.AAC, initAACConfig},
	"A_WAVPACK4":       {es.WavPack, nil},
	"A_TTA1":           {es.TTA, nil},
	"A_MS/ACM":         {es.ACM, initACM},
	"A_PCM/INT/BIG":    {es.PCM, nil},
	"A_PCM/INT/LIT":    {es.PCM, nil},
	"A_PCM/FLOAT/IEEE": {es.PCMFloat, nil},

	"S_TEXT/UTF8":        {es.SubRip, nil},
	"S_TEXT/ASCII":       {es.SubRip, nil},
	"S_TEXT/SSA":         {es.SSA, nil},
	"S_TEXT/ASS":         {es.SSA, nil},
	"S_SSA":              {es.SSA, nil},
	"S_ASS":              {es.SSA, nil},
	"S_TEXT/USF":         {es.USF, nil},
	"S_TEXT/WEBVTT":      {es.WebVTT, nil},
	"D_WEBVTT/SUBTITLES": {es.WebVTT, nil},
	"S_KATE":             {es.Kate, initXiph},
	"S_VOBSUB":           {es.VobSub, initVobSub},
	"S_HDMV/PGS":         {es.PGS, nil},
	"S_DVBSUB":           {es.DVBSub, nil},
	"B_VOBBTN":           {es.VobButtons, nil},
}

type prefixCodec struct {
	prefix string
	codecEntry
}

// prefixCodecs is sorted longest prefix first in init.
var prefixCodecs = []prefixCodec{
	{"V_MPEG4/ISO", codecEntry{es.MPEG4Video, nil}},
	{"V_REAL/", codecEntry{es.RealVideo, nil}},
	{"A_AAC/", codecEntry{es.AAC, initAACProfile}},
	{"A_REAL/", codecEntry{es.RealAudio, nil}},
	{"A_DTS/", codecEntry{es.DTS, nil}},
}

func init() {
	sort.SliceStable(prefixCodecs, func(i, j int) bool {
		return len(prefixCodecs[i].prefix) > len(prefixCodecs[j].prefix)
	})
}

func lookup(id string) (codecEntry, bool) {
	if e, ok := exactCodecs[id]; ok {
		return e, true
	}
	for _, p := range prefixCodecs {
		if strings.HasPrefix(id, p.prefix) {
			return p.codecEntry, true
		}
	}
	return codecEntry{}, false
}

// Lookup maps a Matroska codec id to its stream kind, es.Undefined if unknown.
func Lookup(id string) es.Kind {
	e, _ := lookup(id)
	return e.kind
}

// Descriptor builds the sink descriptor of t. Unknown codec ids still yield
// a descriptor, of kind es.Undefined, together with ErrUndefinedCodec; a
// broken codec private yields the descriptor and the parse error.
func (t *Track) Descriptor() (*es.Descriptor, error) {
	d := &es.Descriptor{
		ID:            int(t.Number),
		Category:      t.Category(),
		CodecID:       t.CodecID,
		Name:          t.Name,
		Language:      t.NormalizedLanguage(),
		Default:       t.Default,
		Forced:        t.Forced,
		Width:         t.Video.PixelWidth,
		Height:        t.Video.PixelHeight,
		DisplayWidth:  t.Video.DisplayWidth,
		DisplayHeight: t.Video.DisplayHeight,
		FrameRate:     t.Video.FrameRate,
		SampleRate:    int(t.Audio.SamplingFrequency),
		Channels:      t.Audio.Channels,
		BitsPerSample: t.Audio.BitDepth,
		Extra:         t.codecPrivate(),
	}

	e, ok := lookup(t.CodecID)
	if !ok {
		d.Kind = es.Undefined
		return d, errors.Wrapf(ErrUndefinedCodec, "%q", t.CodecID)
	}
	d.Kind = e.kind
	if e.init != nil {
		if err := e.init(t, d); err != nil {
			return d, errors.Wrapf(err, "codec %s", t.CodecID)
		}
	}
	if d.Category == es.UnknownCategory {
		d.Category = d.Kind.Category()
	}
	return d, nil
}

// codecPrivate returns CodecPrivate with any private-scope compression undone.
func (t *Track) codecPrivate() []byte {
	if t.EncodingScope&ScopePrivate == 0 || t.Compression == CompressNone {
		return t.Private
	}
	b, err := t.decode(t.Private)
	if err != nil {
		return t.Private
	}
	return b
}

func initAVC(t *Track, d *es.Descriptor) error {
	cd, err := h264parser.NewCodecDataFromAVCDecoderConfRecord(d.Extra)
	if err != nil {
		return err
	}
	d.Codec = cd
	d.Width, d.Height = cd.Width(), cd.Height()
	return nil
}

func initHEVC(t *Track, d *es.Descriptor) error {
	cd, err := h265parser.NewCodecDataFromAVCDecoderConfRecord(d.Extra)
	if err != nil {
		return err
	}
	d.Codec = cd
	d.Width, d.Height = cd.Width(), cd.Height()
	return nil
}

func initAACConfig(t *Track, d *es.Descriptor) error {
	if len(d.Extra) < 2 {
		return initAACProfile(t, d)
	}
	cd, err := aacparser.NewCodecDataFromMPEG4AudioConfigBytes(d.Extra)
	if err != nil {
		return err
	}
	d.Codec = cd
	return nil
}

var aacSampleRates = [...]int{96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050, 16000, 12000, 11025, 8000, 7350}

func aacRateIndex(rate int) int {
	for i, r := range aacSampleRates {
		if r == rate {
			return i
		}
	}
	return 4
}

// initAACProfile synthesizes an AudioSpecificConfig from the profile encoded
// in A_AAC/MPEG{2,4}/<profile> ids, adding the explicit SBR extension for
// the /SBR variants.
func initAACProfile(t *Track, d *es.Descriptor) error {
	profile := strings.TrimPrefix(strings.TrimPrefix(t.CodecID, "A_AAC/MPEG2/"), "A_AAC/MPEG4/")
	var objectType int
	sbr := false
	switch profile {
	case "MAIN":
		objectType = 0
	case "LC":
		objectType = 1
	case "SSR":
		objectType = 2
	case "LC/SBR":
		objectType = 1
		sbr = true
	default:
		objectType = 3
	}

	rate := int(t.Audio.SamplingFrequency)
	idx := aacRateIndex(rate)
	ch := t.Audio.Channels
	asc := []byte{
		byte((objectType+1)<<3 | (idx&0x0e)>>1),
		byte((idx&0x01)<<7 | (ch&0x0f)<<3),
	}
	if sbr {
		out := int(t.Audio.OutputSamplingFrequency)
		if out == 0 || out == rate {
			out = 2 * rate
		}
		asc = append(asc, 0x56, 0xe5, byte(0x80|aacRateIndex(out)<<3))
	}
	d.Extra = asc
	cd, err := aacparser.NewCodecDataFromMPEG4AudioConfigBytes(asc)
	if err != nil {
		return err
	}
	d.Codec = cd
	return nil
}

// initOpus reads the channel count from OpusHead; Opus always decodes at 48kHz.
func initOpus(t *Track, d *es.Descriptor) error {
	ch := t.Audio.Channels
	if len(d.Extra) >= 10 && bytes.HasPrefix(d.Extra, []byte("OpusHead")) {
		ch = int(d.Extra[9])
	}
	layout := av.CH_STEREO
	if ch == 1 {
		layout = av.CH_MONO
	}
	d.Channels = ch
	d.SampleRate = 48000
	d.Codec = codec.NewOpusCodecData(48000, layout)
	return nil
}

// SplitXiph splits Xiph-laced codec private data into its header packets.
func SplitXiph(b []byte) ([][]byte, error) {
	if len(b) < 1 {
		return nil, errors.New("track: empty xiph headers")
	}
	count := int(b[0]) + 1
	sizes := make([]int, count)
	pos := 1
	total := 0
	for i := 0; i < count-1; i++ {
		for {
			if pos >= len(b) {
				return nil, errors.New("track: truncated xiph sizes")
			}
			v := int(b[pos])
			pos++
			sizes[i] += v
			if v != 255 {
				break
			}
		}
		total += sizes[i]
	}
	if pos+total > len(b) {
		return nil, errors.Newf("track: xiph headers need %d bytes, have %d", pos+total, len(b))
	}
	sizes[count-1] = len(b) - pos - total

	headers := make([][]byte, count)
	for i, n := range sizes {
		headers[i] = b[pos : pos+n]
		pos += n
	}
	return headers, nil
}

func initXiph(t *Track, d *es.Descriptor) error {
	headers, err := SplitXiph(d.Extra)
	if err != nil {
		return err
	}
	d.Headers = headers
	return nil
}

var fourccKinds = map[string]es.Kind{
	"H264": es.H264, "h264": es.H264, "avc1": es.H264, "X264": es.H264,
	"XVID": es.MPEG4Video, "xvid": es.MPEG4Video, "DIVX": es.MPEG4Video, "DX50": es.MPEG4Video,
	"FMP4": es.MPEG4Video, "MP4V": es.MPEG4Video,
	"DIV3": es.DIV3, "div3": es.DIV3, "MP43": es.DIV3,
	"MPG2": es.MPEGVideo, "mpg2": es.MPEGVideo,
}

// initVFW parses the BITMAPINFOHEADER of V_MS/VFW/FOURCC tracks.
func initVFW(t *Track, d *es.Descriptor) error {
	if len(d.Extra) < 40 {
		return errors.Newf("track: BITMAPINFOHEADER of %d bytes", len(d.Extra))
	}
	h := d.Extra
	d.Width = int(int32(binary.LittleEndian.Uint32(h[4:8])))
	d.Height = int(int32(binary.LittleEndian.Uint32(h[8:12])))
	if d.Height < 0 {
		d.Height = -d.Height
	}
	d.FourCC = string(h[16:20])
	d.Extra = h[40:]
	if k, ok := fourccKinds[d.FourCC]; ok {
		d.Kind = k
	}
	return nil
}

var formatTagKinds = map[uint16]es.Kind{
	0x0001: es.PCM,
	0x0003: es.PCMFloat,
	0x0050: es.MPEGAudio,
	0x0055: es.MPEGAudio,
	0x00ff: es.AAC,
	0x1610: es.AAC,
	0x2000: es.AC3,
	0x2001: es.DTS,
	0xf1ac: es.FLAC,
}

// initACM parses the WAVEFORMATEX of A_MS/ACM tracks.
func initACM(t *Track, d *es.Descriptor) error {
	if len(d.Extra) < 18 {
		return errors.Newf("track: WAVEFORMATEX of %d bytes", len(d.Extra))
	}
	h := d.Extra
	d.FormatTag = binary.LittleEndian.Uint16(h[0:2])
	d.Channels = int(binary.LittleEndian.Uint16(h[2:4]))
	d.SampleRate = int(binary.LittleEndian.Uint32(h[4:8]))
	d.BitsPerSample = int(binary.LittleEndian.Uint16(h[14:16]))
	cb := int(binary.LittleEndian.Uint16(h[16:18]))
	if 18+cb <= len(h) {
		d.Extra = h[18 : 18+cb]
	} else {
		d.Extra = h[18:]
	}
	if k, ok := formatTagKinds[d.FormatTag]; ok {
		d.Kind = k
	}
	return nil
}

// initVobSub reads "size: WxH" and "palette: ..." from the idx text private.
func initVobSub(t *Track, d *es.Descriptor) error {
	for _, line := range strings.Split(string(d.Extra), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "size:"):
			var w, h int
			if _, err := fmt.Sscanf(strings.TrimSpace(line[5:]), "%dx%d", &w, &h); err == nil {
				d.Width, d.Height = w, h
			}
		case strings.HasPrefix(line, "palette:"):
			for _, v := range strings.Split(line[8:], ",") {
				c, err := strconv.ParseUint(strings.TrimSpace(v), 16, 32)
				if err != nil {
					break
				}
				d.Palette = append(d.Palette, uint32(c))
			}
		}
	}
	return nil
}
