// Package chapter models Matroska editions and their chapter trees. Chapters
// live in an Arena and refer to each other by ID, so editions merged across
// hard-linked segments can share and clone nodes freely.
package chapter

import (
	"strconv"
	"time"
)

type ID int

const None ID = -1

// NoTime marks an absent ChapterTimeEnd.
const NoTime time.Duration = -1

// Chapter process codecs.
const (
	CodecScript = 0
	CodecDVD    = 1
)

type Display struct {
	String   string
	Language string
	Country  string
}

// CommandSet is one ChapProcess block: the codec, its private data used to
// match navigation targets and the commands run on enter, during and leave.
type CommandSet struct {
	Codec   uint64
	Private []byte
	Enter   [][]byte
	During  [][]byte
	Leave   [][]byte
}

type Chapter struct {
	UID   uint64
	Start time.Duration
	End   time.Duration // NoTime when not authored

	// UserStart and UserEnd place the chapter on the playback timeline; set by Refresh.
	UserStart time.Duration
	UserEnd   time.Duration

	Hidden  bool
	Enabled bool

	Displays          []Display
	SegmentUID        []byte
	SegmentEditionUID uint64
	Codecs            []CommandSet

	// Owner is the session index of the segment the chapter was read from.
	Owner int

	Parent   ID
	Children []ID

	// Seekpoint is the index published for this chapter, -1 if not published.
	Seekpoint int
}

// Name returns the first display string.
func (c *Chapter) Name() string {
	for _, d := range c.Displays {
		if d.String != "" {
			return d.String
		}
	}
	return ""
}

// Contains reports whether t falls in [UserStart, UserEnd); a zero-length
// chapter contains exactly its boundary.
func (c *Chapter) Contains(t time.Duration) bool {
	if c.UserStart == c.UserEnd {
		return t == c.UserStart
	}
	return t >= c.UserStart && t < c.UserEnd
}

// Arena owns every chapter node of a session.
type Arena struct {
	nodes []Chapter
}

func NewArena() *Arena {
	return &Arena{}
}

// New stores c and returns its id. Top-level chapters must carry Parent None.
func (a *Arena) New(c Chapter) ID {
	c.Seekpoint = -1
	a.nodes = append(a.nodes, c)
	return ID(len(a.nodes) - 1)
}

func (a *Arena) Get(id ID) *Chapter {
	if id < 0 || int(id) >= len(a.nodes) {
		return nil
	}
	return &a.nodes[id]
}

func (a *Arena) Len() int {
	return len(a.nodes)
}

// Path returns the chain of ids from the top-level chapter down to id.
func (a *Arena) Path(id ID) []ID {
	var path []ID
	for id != None {
		path = append(path, id)
		id = a.nodes[id].Parent
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// IsAncestor reports whether anc is id or one of its parents.
func (a *Arena) IsAncestor(anc, id ID) bool {
	for id != None {
		if id == anc {
			return true
		}
		id = a.nodes[id].Parent
	}
	return false
}

// DisplayName returns the chapter name, or a numbered placeholder.
func (a *Arena) DisplayName(id ID, n int) string {
	if name := a.nodes[id].Name(); name != "" {
		return name
	}
	return "Chapter " + strconv.Itoa(n+1)
}
