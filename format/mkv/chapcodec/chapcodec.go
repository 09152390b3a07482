// Package chapcodec runs the command programs attached to Matroska chapters:
// the DVD navigation VM and Matroska Script. Both resolve their targets
// through a Navigator that sees every chapter of the session.
package chapcodec

import (
	"log/slog"

	"github.com/vdkmedia/mkvdemux/format/mkv/chapter"
)

// Target locates a chapter anywhere in the session.
type Target struct {
	Segment int // virtual segment index
	Edition int
	Chapter chapter.ID
}

type Navigator interface {
	// FindPrivate returns the first chapter owning a command set of codec
	// whose private data satisfies match.
	FindPrivate(codec uint64, match func(private []byte) bool) (Target, bool)
	// FindPrivateIn restricts FindPrivate to the subtree of scope.
	FindPrivateIn(scope Target, codec uint64, match func(private []byte) bool) (Target, bool)
	FindUID(uid uint64) (Target, bool)
	Current() (Target, bool)
	// JumpTo makes t current: it switches virtual segment and edition when
	// needed, seeks to the chapter start and enters it.
	JumpTo(t Target)
}

// Interpreter dispatches chapter command sets to the codec they belong to.
type Interpreter struct {
	nav    Navigator
	dvd    *DVD
	script *Script
	log    *slog.Logger
}

func New(nav Navigator, log *slog.Logger) *Interpreter {
	if log == nil {
		log = slog.Default()
	}
	return &Interpreter{
		nav:    nav,
		dvd:    NewDVD(nav, log),
		script: NewScript(nav, log),
		log:    log,
	}
}

func (in *Interpreter) DVD() *DVD {
	return in.dvd
}

// Enter runs the enter commands of ch and reports whether they navigated.
func (in *Interpreter) Enter(ch *chapter.Chapter) bool {
	return in.run(ch, func(cs *chapter.CommandSet) [][]byte { return cs.Enter })
}

func (in *Interpreter) Leave(ch *chapter.Chapter) bool {
	return in.run(ch, func(cs *chapter.CommandSet) [][]byte { return cs.Leave })
}

func (in *Interpreter) During(ch *chapter.Chapter) bool {
	return in.run(ch, func(cs *chapter.CommandSet) [][]byte { return cs.During })
}

func (in *Interpreter) run(ch *chapter.Chapter, pick func(*chapter.CommandSet) [][]byte) bool {
	for i := range ch.Codecs {
		cs := &ch.Codecs[i]
		for _, data := range pick(cs) {
			var jumped bool
			switch cs.Codec {
			case chapter.CodecDVD:
				jumped = in.dvd.Run(data)
			case chapter.CodecScript:
				jumped = in.script.Run(data)
			default:
				in.log.Info("unsupported chapter codec", "codec", cs.Codec, "chapter", ch.UID)
			}
			if jumped {
				return true
			}
		}
	}
	return false
}

// CodecName returns a name chapter codecs can give an unnamed chapter, such
// as a DVD title or menu.
func CodecName(ch *chapter.Chapter) string {
	for _, cs := range ch.Codecs {
		if cs.Codec == chapter.CodecDVD {
			if name := dvdName(cs.Private); name != "" {
				return name
			}
		}
	}
	return ""
}
