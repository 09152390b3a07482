package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vdkmedia/mkvdemux/format/mkv"
)

func newInfoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Show segments, tracks and titles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := mkv.OpenFile(args[0], nil, ctx.opts)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			meta := s.Meta()
			rows := [][]string{
				{"Title", meta.Title},
				{"Muxing app", meta.MuxingApp},
				{"Writing app", meta.WritingApp},
				{"Duration", clock(meta.Duration)},
			}
			if !meta.Date.IsZero() {
				rows = append(rows, []string{"Date", meta.Date.UTC().Format("2006-01-02 15:04:05")})
			}
			keys := make([]string, 0, len(meta.Tags))
			for k := range meta.Tags {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				rows = append(rows, []string{k, meta.Tags[k]})
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))

			rows = rows[:0]
			for i, seg := range s.Segments() {
				for _, t := range seg.Tracks {
					rows = append(rows, []string{
						strconv.Itoa(i),
						strconv.FormatUint(t.Number, 10),
						t.Category().String(),
						t.CodecID,
						t.Language,
						t.Name,
						yesNo(t.Default),
					})
				}
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Segment", "Track", "Type", "Codec", "Language", "Name", "Default"},
				rows,
				[]columnAlignment{alignRight, alignRight},
			))

			rows = rows[:0]
			for i, t := range s.Titles() {
				rows = append(rows, []string{
					strconv.Itoa(i),
					t.Name,
					clock(t.Duration),
					strconv.Itoa(len(t.Seekpoints)),
					yesNo(t.Hidden),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Title", "Name", "Duration", "Chapters", "Hidden"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
}
