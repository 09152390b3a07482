package main

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/deepch/vdk/av/avutil"
	"github.com/deepch/vdk/format/ts"
	"github.com/spf13/cobra"

	"github.com/vdkmedia/mkvdemux/format/mkv"
)

func newRemuxCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remux <file> <out.ts>",
		Short: "Copy the H.264 and AAC tracks into an MPEG-TS file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			demuxer, err := mkv.OpenDemuxer(args[0], ctx.opts)
			if err != nil {
				return err
			}
			defer demuxer.Close()

			streams, err := demuxer.Streams()
			if err != nil {
				return err
			}
			if len(streams) == 0 {
				return errors.New("no track can be remuxed")
			}
			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			if err := avutil.CopyFile(ts.NewMuxer(f), demuxer); err != nil {
				f.Close()
				return errors.Wrap(err, "remux")
			}
			ctx.log.Info("remuxed", "streams", len(streams), "out", args[1])
			return f.Close()
		},
	}
}
