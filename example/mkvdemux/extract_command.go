package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vdkmedia/mkvdemux/format/mkv"
	"github.com/vdkmedia/mkvdemux/format/raw"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var (
		dir     string
		targets []string
		pattern string
		tracks  []int
		title   int
	)

	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Write every track to a file of its own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := dir
			if len(targets) > 0 {
				picked, err := raw.PickDir(targets)
				if err != nil {
					return err
				}
				out = filepath.Join(picked, dir)
			}
			x := raw.NewExtractor(out)
			x.Pattern = pattern
			x.Tracks = tracks
			x.Logger = ctx.log

			s, err := mkv.OpenFile(args[0], x, ctx.opts)
			if err != nil {
				x.Close()
				return err
			}
			if title > 0 {
				if err := s.SetTitle(title); err != nil {
					s.Close()
					x.Close()
					return err
				}
			}
			runErr := run(cmd, s)
			s.Close()
			if err := x.Close(); err != nil && runErr == nil {
				runErr = err
			}
			if runErr != nil {
				return runErr
			}

			var rows [][]string
			for _, o := range x.Outputs() {
				rows = append(rows, []string{
					strconv.Itoa(o.Track),
					o.Kind.String(),
					strconv.Itoa(o.Frames),
					strconv.FormatInt(o.Bytes, 10),
					o.Path,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Track", "Kind", "Frames", "Bytes", "File"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "output", "o", ".", "Output directory")
	cmd.Flags().StringSliceVar(&targets, "target", nil, "Mount points to choose the output disk from, least used wins")
	cmd.Flags().StringVar(&pattern, "pattern", raw.DefaultPattern, "File name pattern: {track} {kind} {codec_id} {lang} {name} {ext}")
	cmd.Flags().IntSliceVar(&tracks, "tracks", nil, "Track numbers to extract, all when empty")
	cmd.Flags().IntVarP(&title, "title", "t", 0, "Title (edition) to play")
	return cmd
}

// run demuxes s to the end or until the command is cancelled.
func run(cmd *cobra.Command, s *mkv.Session) error {
	for {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		st, err := s.Demux()
		if err != nil {
			return err
		}
		if st == mkv.EOF {
			return nil
		}
	}
}
