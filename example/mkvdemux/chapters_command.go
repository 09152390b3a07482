package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/vdkmedia/mkvdemux/format/mkv"
)

func newChaptersCommand(ctx *commandContext) *cobra.Command {
	var title int

	cmd := &cobra.Command{
		Use:   "chapters <file>",
		Short: "List the seekpoints of a title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := mkv.OpenFile(args[0], nil, ctx.opts)
			if err != nil {
				return err
			}
			defer s.Close()

			titles := s.Titles()
			if title < 0 || title >= len(titles) {
				return errors.Newf("title %d out of range, the file has %d", title, len(titles))
			}
			rows := make([][]string, 0, len(titles[title].Seekpoints))
			for i, sp := range titles[title].Seekpoints {
				rows = append(rows, []string{
					strconv.Itoa(i),
					clock(sp.Time),
					strings.Repeat("  ", sp.Level) + sp.Name,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Start", "Name"},
				rows,
				[]columnAlignment{alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&title, "title", "t", 0, "Title (edition) to list")
	return cmd
}
