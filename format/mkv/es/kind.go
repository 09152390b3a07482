package es

// Kind is the closed set of stream formats the track table maps codec ids to.
type Kind int

const (
	Undefined Kind = iota

	H264
	H265
	MPEG4Video
	DIV3
	MPEGVideo
	Theora
	VP8
	VP9
	AV1
	VFW
	RealVideo
	Uncompressed

	MPEGAudio
	AAC
	AC3
	EAC3
	DTS
	TrueHD
	MLP
	FLAC
	Vorbis
	Opus
	WavPack
	TTA
	ACM
	PCM
	PCMFloat
	RealAudio

	SubRip
	SSA
	USF
	WebVTT
	Kate
	VobSub
	PGS
	DVBSub

	VobButtons
)

var kindNames = [...]string{
	Undefined:    "undefined",
	H264:         "h264",
	H265:         "hevc",
	MPEG4Video:   "mp4v",
	DIV3:         "div3",
	MPEGVideo:    "mpgv",
	Theora:       "theora",
	VP8:          "vp8",
	VP9:          "vp9",
	AV1:          "av1",
	VFW:          "vfw",
	RealVideo:    "real-video",
	Uncompressed: "raw-video",
	MPEGAudio:    "mpga",
	AAC:          "aac",
	AC3:          "ac3",
	EAC3:         "eac3",
	DTS:          "dts",
	TrueHD:       "truehd",
	MLP:          "mlp",
	FLAC:         "flac",
	Vorbis:       "vorbis",
	Opus:         "opus",
	WavPack:      "wavpack",
	TTA:          "tta",
	ACM:          "acm",
	PCM:          "pcm",
	PCMFloat:     "pcm-float",
	RealAudio:    "real-audio",
	SubRip:       "subrip",
	SSA:          "ssa",
	USF:          "usf",
	WebVTT:       "webvtt",
	Kate:         "kate",
	VobSub:       "vobsub",
	PGS:          "pgs",
	DVBSub:       "dvbsub",
	VobButtons:   "vob-buttons",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "undefined"
}

// Category returns the stream category a kind belongs to.
func (k Kind) Category() Category {
	switch {
	case k >= H264 && k <= Uncompressed:
		return Video
	case k >= MPEGAudio && k <= RealAudio:
		return Audio
	case k >= SubRip && k <= DVBSub:
		return Subtitle
	case k == VobButtons:
		return Buttons
	}
	return UnknownCategory
}
