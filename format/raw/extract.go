package raw

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/deepch/vdk/av"
	"github.com/moby/sys/mountinfo"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/vdkmedia/mkvdemux/format/mkv/es"
)

// DefaultPattern names output files after the track number, language and kind.
const DefaultPattern = "track{track}_{lang}.{ext}"

var listTag = []string{"{track}", "{kind}", "{codec_id}", "{lang}", "{name}", "{ext}"}

// ErrNoTarget is returned by PickDir when none of the candidates is mounted.
var ErrNoTarget = errors.New("raw: no mounted target directory")

// PickDir returns the mounted candidate with the lowest disk usage.
func PickDir(candidates []string) (string, error) {
	var (
		mu = float64(100)
		ui = -1
	)
	for i, dir := range candidates {
		if m, err := mountinfo.Mounted(dir); err == nil && m {
			if d, err := disk.Usage(dir); err == nil {
				if d.UsedPercent < mu {
					ui = i
					mu = d.UsedPercent
				}
			}
		}
	}
	if ui == -1 {
		return "", ErrNoTarget
	}
	return candidates[ui], nil
}

// Output describes one written file.
type Output struct {
	Track  int
	Kind   es.Kind
	Path   string
	Frames int
	Bytes  int64
}

type output struct {
	Output
	f   *os.File
	mux *Muxer
}

// Extractor is an es.Sink writing every track to a file of its own. Tracks
// of linked segments with the same number continue the same file.
type Extractor struct {
	Dir     string
	Pattern string
	// Tracks limits extraction to these track numbers when not empty.
	Tracks []int
	Logger *slog.Logger

	outputs []*output
	handles map[es.Handle]*output
	next    es.Handle
}

func NewExtractor(dir string) *Extractor {
	return &Extractor{
		Dir:     dir,
		Pattern: DefaultPattern,
		Logger:  slog.Default(),
		handles: map[es.Handle]*output{},
	}
}

func (x *Extractor) wanted(id int) bool {
	if len(x.Tracks) == 0 {
		return true
	}
	for _, t := range x.Tracks {
		if t == id {
			return true
		}
	}
	return false
}

// fileName expands the pattern tags for d.
func (x *Extractor) fileName(d *es.Descriptor) string {
	ts := x.Pattern
	for _, s := range listTag {
		switch s {
		case "{track}":
			ts = strings.Replace(ts, "{track}", fmt.Sprintf("%d", d.ID), -1)
		case "{kind}":
			ts = strings.Replace(ts, "{kind}", d.Kind.String(), -1)
		case "{codec_id}":
			ts = strings.Replace(ts, "{codec_id}", sanitize(d.CodecID), -1)
		case "{lang}":
			ts = strings.Replace(ts, "{lang}", sanitize(d.Language), -1)
		case "{name}":
			ts = strings.Replace(ts, "{name}", sanitize(d.Name), -1)
		case "{ext}":
			ts = strings.Replace(ts, "{ext}", extension(d), -1)
		}
	}
	return ts
}

func sanitize(s string) string {
	if s == "" {
		return "und"
	}
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, s)
}

func extension(d *es.Descriptor) string {
	switch d.Kind {
	case es.H264:
		return "h264"
	case es.H265:
		return "h265"
	case es.Undefined:
		return "bin"
	}
	return d.Kind.String()
}

func (x *Extractor) AddTrack(d *es.Descriptor) (es.Handle, error) {
	x.next++
	h := x.next
	if d == nil || !x.wanted(d.ID) {
		x.handles[h] = nil
		return h, nil
	}
	for _, o := range x.outputs {
		if o.Track == d.ID && o.Kind == d.Kind {
			x.handles[h] = o
			return h, nil
		}
	}

	if err := os.MkdirAll(x.Dir, 0755); err != nil {
		return 0, errors.Wrap(err, "raw: target directory")
	}
	path := filepath.Join(x.Dir, x.fileName(d))
	f, err := os.Create(path)
	if err != nil {
		return 0, errors.Wrapf(err, "raw: track %d", d.ID)
	}
	o := &output{Output: Output{Track: d.ID, Kind: d.Kind, Path: path}, f: f}
	if d.Codec != nil {
		mux := NewMuxer(f)
		if err := mux.WriteHeader([]av.CodecData{d.Codec}); err != nil {
			f.Close()
			return 0, errors.Wrapf(err, "raw: track %d header", d.ID)
		}
		if mux.codec != nil {
			o.mux = mux
		}
	}
	x.Logger.Debug("extracting track", "track", d.ID, "kind", d.Kind, "path", path)
	x.outputs = append(x.outputs, o)
	x.handles[h] = o
	return h, nil
}

func (x *Extractor) RemoveTrack(h es.Handle) {
	delete(x.handles, h)
}

// Send appends f to the file of h. Preroll frames were written already
// before the seek that repeats them.
func (x *Extractor) Send(h es.Handle, f es.Frame) (err error) {
	o := x.handles[h]
	if o == nil || f.Preroll {
		return nil
	}
	if o.mux != nil {
		err = o.mux.WritePacket(&av.Packet{Data: f.Data, Time: f.PTS, IsKeyFrame: f.KeyFrame})
	} else {
		_, err = o.f.Write(f.Data)
	}
	if err != nil {
		return errors.Wrapf(err, "raw: write %s", o.Path)
	}
	o.Frames++
	o.Bytes += int64(len(f.Data))
	return nil
}

func (x *Extractor) SetPCR(t time.Duration) {}
func (x *Extractor) ResetPCR()              {}

func (x *Extractor) Enabled(h es.Handle) bool {
	return x.handles[h] != nil
}

// Outputs returns what was written so far.
func (x *Extractor) Outputs() []Output {
	out := make([]Output, len(x.outputs))
	for i, o := range x.outputs {
		out[i] = o.Output
	}
	return out
}

func (x *Extractor) Close() error {
	var err error
	for _, o := range x.outputs {
		if cerr := o.f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

var _ es.Sink = (*Extractor)(nil)
