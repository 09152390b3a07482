package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/vdkmedia/mkvdemux/format/mkv"
	webrtc "github.com/vdkmedia/mkvdemux/format/webrtcv3"
)

func newWebRTCCommand(ctx *commandContext) *cobra.Command {
	var offerFile string

	cmd := &cobra.Command{
		Use:   "webrtc <file>",
		Short: "Play a file to a browser; reads a base64 SDP offer, prints the answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			offer, err := readOffer(cmd, offerFile)
			if err != nil {
				return err
			}
			muxer := webrtc.NewMuxer(ctx.log)
			s, err := mkv.OpenFile(args[0], muxer, ctx.opts)
			if err != nil {
				return err
			}
			defer s.Close()
			defer muxer.Close()

			answer, err := muxer.WriteHeader(offer)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)

			tick := time.NewTicker(100 * time.Millisecond)
			defer tick.Stop()
			for !muxer.Connected() {
				if muxer.Done() {
					return webrtc.ErrorClientOffline
				}
				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-tick.C:
				}
			}
			ctx.log.Info("peer connected, playing")
			muxer.ResetPCR()
			return run(cmd, s)
		},
	}
	cmd.Flags().StringVar(&offerFile, "offer", "-", "File holding the base64 offer, - for stdin")
	return cmd
}

func readOffer(cmd *cobra.Command, name string) (string, error) {
	var r = cmd.InOrStdin()
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		if err == nil {
			err = errors.New("empty offer")
		}
		return "", errors.Wrap(err, "read offer")
	}
	return line, nil
}
