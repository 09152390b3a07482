package mkv

import (
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
)

// Options configures a demux session.
type Options struct {
	// OrderedChapters honours ordered editions; off lays every edition out
	// on its authored times.
	OrderedChapters bool `toml:"use-ordered-chapters"`
	// ChapterCodec runs chapter DVD and Matroska Script commands.
	ChapterCodec bool `toml:"use-chapter-codec"`
	// SeekByPercent estimates seek positions from the byte size even when
	// cues exist.
	SeekByPercent bool `toml:"seek-by-percent"`
	// DummyElements passes void and unknown elements to the parsers.
	DummyElements bool `toml:"use-dummy-elements"`
	// PreloadLocalDir opens the Matroska files next to the opened one so
	// hard-linked segments can be found.
	PreloadLocalDir bool `toml:"preload-local-dir"`
	Debug           bool `toml:"debug"`

	Logger *slog.Logger `toml:"-"`
}

func DefaultOptions() Options {
	return Options{
		OrderedChapters: true,
		ChapterCodec:    true,
	}
}

// LoadOptions decodes a TOML file over the defaults. A missing file yields
// the defaults.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	if path == "" {
		return opts, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return opts, nil
		}
		return opts, errors.Wrap(err, "open options")
	}
	defer file.Close()

	if err := toml.NewDecoder(file).Decode(&opts); err != nil {
		return opts, errors.Wrap(err, "parse options")
	}
	return opts, nil
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
