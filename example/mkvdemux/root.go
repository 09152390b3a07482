package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/vdkmedia/mkvdemux/format/mkv"
)

// commandContext carries what every subcommand shares.
type commandContext struct {
	configFlag  string
	debug       bool
	noOrdered   bool
	noCodec     bool
	seekPercent bool
	localDir    bool
	opts        mkv.Options
	log         *slog.Logger
}

func newRootCommand() *cobra.Command {
	return newCommand(&commandContext{})
}

func newCommand(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "mkvdemux",
		Short:         "Matroska demuxer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.configFlag, "config", "c", "", "TOML file with demux options")
	flags.BoolVar(&ctx.debug, "debug", false, "Log debug messages")
	flags.BoolVar(&ctx.noOrdered, "no-ordered-chapters", false, "Play ordered editions in file order")
	flags.BoolVar(&ctx.noCodec, "no-chapter-codec", false, "Ignore chapter navigation commands")
	flags.BoolVar(&ctx.seekPercent, "seek-by-percent", false, "Seek by byte estimate even when cues exist")
	flags.BoolVar(&ctx.localDir, "preload-local-dir", false, "Look for linked segments next to the input")

	rootCmd.AddCommand(newInfoCommand(ctx))
	rootCmd.AddCommand(newChaptersCommand(ctx))
	rootCmd.AddCommand(newPacketsCommand(ctx))
	rootCmd.AddCommand(newExtractCommand(ctx))
	rootCmd.AddCommand(newRemuxCommand(ctx))
	rootCmd.AddCommand(newWebRTCCommand(ctx))

	return rootCmd
}

// load reads the options file and applies the flags given explicitly.
func (ctx *commandContext) load(cmd *cobra.Command) error {
	opts, err := mkv.LoadOptions(ctx.configFlag)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("debug") {
		opts.Debug = ctx.debug
	}
	if flags.Changed("no-ordered-chapters") {
		opts.OrderedChapters = !ctx.noOrdered
	}
	if flags.Changed("no-chapter-codec") {
		opts.ChapterCodec = !ctx.noCodec
	}
	if flags.Changed("seek-by-percent") {
		opts.SeekByPercent = ctx.seekPercent
	}
	if flags.Changed("preload-local-dir") {
		opts.PreloadLocalDir = ctx.localDir
	}
	ctx.log = newLogger(cmd.ErrOrStderr(), opts.Debug)
	opts.Logger = ctx.log
	ctx.opts = opts
	return nil
}

// newLogger writes text to terminals and JSON everywhere else.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	ho := &slog.HandlerOptions{Level: level}
	if isTerminal(w) {
		return slog.New(slog.NewTextHandler(w, ho))
	}
	return slog.New(slog.NewJSONHandler(w, ho))
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
