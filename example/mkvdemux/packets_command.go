package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/vdkmedia/mkvdemux/format/mkv"
	"github.com/vdkmedia/mkvdemux/format/mkv/es"
)

// printSink prints one line per frame.
type printSink struct {
	w      io.Writer
	tracks map[es.Handle]*es.Descriptor
	next   es.Handle
	limit  int
	count  int
}

func (p *printSink) AddTrack(d *es.Descriptor) (es.Handle, error) {
	p.next++
	p.tracks[p.next] = d
	fmt.Fprintf(p.w, "track %d: %s %s %s\n", d.ID, d.Category, d.Kind, d.CodecID)
	return p.next, nil
}

func (p *printSink) RemoveTrack(h es.Handle) {
	delete(p.tracks, h)
}

func (p *printSink) Send(h es.Handle, f es.Frame) error {
	if p.limit > 0 && p.count >= p.limit {
		return nil
	}
	p.count++
	pts := "-"
	if f.PTS != es.NoPTS {
		pts = clock(f.PTS)
	}
	var flags string
	if f.KeyFrame {
		flags += "K"
	}
	if f.Preroll {
		flags += "P"
	}
	if f.Discardable {
		flags += "D"
	}
	fmt.Fprintf(p.w, "%d\t%s\t%s\t%d\n", p.tracks[h].ID, pts, flags, len(f.Data))
	return nil
}

func (p *printSink) SetPCR(time.Duration) {}
func (p *printSink) ResetPCR()            {}

func (p *printSink) Enabled(h es.Handle) bool {
	return p.tracks[h] != nil
}

func (p *printSink) done() bool {
	return p.limit > 0 && p.count >= p.limit
}

func newPacketsCommand(ctx *commandContext) *cobra.Command {
	var (
		start time.Duration
		count int
		title int
	)

	cmd := &cobra.Command{
		Use:   "packets <file>",
		Short: "Print the frames sent to the decoders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sink := &printSink{w: cmd.OutOrStdout(), tracks: map[es.Handle]*es.Descriptor{}, limit: count}
			s, err := mkv.OpenFile(args[0], sink, ctx.opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if title > 0 {
				if err := s.SetTitle(title); err != nil {
					return err
				}
			}
			if start > 0 {
				if err := s.Seek(start); err != nil {
					return err
				}
			}
			for !sink.done() {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				st, err := s.Demux()
				if err != nil {
					return err
				}
				if st == mkv.EOF {
					break
				}
			}
			return nil
		},
	}
	cmd.Flags().DurationVarP(&start, "start", "s", 0, "Seek to this time first")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Stop after this many frames")
	cmd.Flags().IntVarP(&title, "title", "t", 0, "Title (edition) to play")
	return cmd
}
