package mkviotest

import (
	"bytes"

	"github.com/vdkmedia/mkvdemux/format/mkv/mkvio"
)

// UID returns a 16 byte segment uid filled with b.
func UID(b byte) []byte {
	return bytes.Repeat([]byte{b}, 16)
}

func TrackEntry(number, typ uint64, codecID string, children ...[]byte) []byte {
	head := [][]byte{
		Uint(mkvio.ElementTrackNumber, number),
		Uint(mkvio.ElementTrackUID, number*100),
		Uint(mkvio.ElementTrackType, typ),
		String(mkvio.ElementCodecID, codecID),
	}
	return Master(mkvio.ElementTrackEntry, append(head, children...)...)
}

// VP8Track is a 320x240 VP8 video track.
func VP8Track(number uint64) []byte {
	return TrackEntry(number, 1, "V_VP8", Master(mkvio.ElementVideo,
		Uint(mkvio.ElementPixelWidth, 320),
		Uint(mkvio.ElementPixelHeight, 240),
	))
}

// PCMTrack is a 48 kHz stereo 16 bit PCM audio track.
func PCMTrack(number uint64) []byte {
	return TrackEntry(number, 2, "A_PCM/INT/LIT", Master(mkvio.ElementAudio,
		Float(mkvio.ElementSamplingFrequency, 48000),
		Uint(mkvio.ElementChannels, 2),
		Uint(mkvio.ElementBitDepth, 16),
	))
}

func Cluster(timecode uint64, children ...[]byte) []byte {
	return Master(mkvio.ElementCluster, append([][]byte{Uint(mkvio.ElementTimecode, timecode)}, children...)...)
}

// SeekEntry points at pos relative to the segment payload. The position is
// always 4 bytes wide so a SeekHead keeps its size whatever it points at.
func SeekEntry(reg mkvio.ElementRegister, pos int) []byte {
	return Master(mkvio.ElementSeek,
		Binary(mkvio.ElementSeekID, mkvio.EncodeID(reg.ID)),
		UintN(mkvio.ElementSeekPosition, uint64(pos), 4),
	)
}

// CuePoint indexes one track at a cluster position relative to the segment payload.
func CuePoint(time, track uint64, pos int) []byte {
	return Master(mkvio.ElementCuePoint,
		Uint(mkvio.ElementCueTime, time),
		Master(mkvio.ElementCueTrackPositions,
			Uint(mkvio.ElementCueTrack, track),
			UintN(mkvio.ElementCueClusterPosition, uint64(pos), 4),
		),
	)
}

// Offsets returns where each part starts once they are concatenated.
func Offsets(parts ...[]byte) []int {
	out := make([]int, len(parts))
	n := 0
	for i, p := range parts {
		out[i] = n
		n += len(p)
	}
	return out
}

// Chapter writes a ChapterAtom with an English display name.
func Chapter(uid uint64, start, end int64, name string, children ...[]byte) []byte {
	parts := [][]byte{
		Uint(mkvio.ElementChapterUID, uid),
		Uint(mkvio.ElementChapterTimeStart, uint64(start)),
	}
	if end >= 0 {
		parts = append(parts, Uint(mkvio.ElementChapterTimeEnd, uint64(end)))
	}
	if name != "" {
		parts = append(parts, Master(mkvio.ElementChapterDisplay,
			String(mkvio.ElementChapString, name),
			String(mkvio.ElementChapLanguage, "eng"),
		))
	}
	return Master(mkvio.ElementChapterAtom, append(parts, children...)...)
}

func Edition(uid uint64, ordered, def bool, chapters ...[]byte) []byte {
	parts := [][]byte{
		Uint(mkvio.ElementEditionUID, uid),
		Uint(mkvio.ElementEditionFlagOrdered, flag(ordered)),
		Uint(mkvio.ElementEditionFlagDefault, flag(def)),
	}
	return Master(mkvio.ElementEditionEntry, append(parts, chapters...)...)
}

func flag(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// Frame returns n bytes of a value that never forms an element id.
func Frame(n int) []byte {
	return bytes.Repeat([]byte{0xaa}, n)
}
