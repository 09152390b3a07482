// Package estest provides a recording es.Sink for tests.
package estest

import (
	"time"

	"github.com/vdkmedia/mkvdemux/format/mkv/es"
)

type Sent struct {
	Handle es.Handle
	Track  int
	es.Frame
}

// Recorder keeps every call made to it.
type Recorder struct {
	Tracks   map[es.Handle]*es.Descriptor
	Removed  []es.Handle
	Frames   []Sent
	PCR      []time.Duration
	Resets   int
	Disabled map[es.Handle]bool

	next es.Handle
}

func NewRecorder() *Recorder {
	return &Recorder{
		Tracks:   make(map[es.Handle]*es.Descriptor),
		Disabled: make(map[es.Handle]bool),
	}
}

func (r *Recorder) AddTrack(d *es.Descriptor) (es.Handle, error) {
	r.next++
	r.Tracks[r.next] = d
	return r.next, nil
}

func (r *Recorder) RemoveTrack(h es.Handle) {
	delete(r.Tracks, h)
	r.Removed = append(r.Removed, h)
}

func (r *Recorder) Send(h es.Handle, f es.Frame) error {
	s := Sent{Handle: h, Frame: f}
	if d, ok := r.Tracks[h]; ok {
		s.Track = d.ID
	}
	s.Data = append([]byte(nil), f.Data...)
	r.Frames = append(r.Frames, s)
	return nil
}

func (r *Recorder) SetPCR(t time.Duration) { r.PCR = append(r.PCR, t) }
func (r *Recorder) ResetPCR()              { r.Resets++ }

func (r *Recorder) Enabled(h es.Handle) bool {
	return !r.Disabled[h]
}

// Shown returns the frames of track that were not preroll.
func (r *Recorder) Shown(track int) []Sent {
	var out []Sent
	for _, f := range r.Frames {
		if f.Track == track && !f.Preroll {
			out = append(out, f)
		}
	}
	return out
}
