package chapter

import (
	"sort"
	"time"
)

type Edition struct {
	UID      uint64
	Ordered  bool
	Default  bool
	Hidden   bool
	Chapters []ID

	arena *Arena
}

func NewEdition(a *Arena) *Edition {
	return &Edition{arena: a}
}

func (e *Edition) Arena() *Arena {
	return e.arena
}

func (e *Edition) Chapter(id ID) *Chapter {
	return e.arena.Get(id)
}

// Refresh recomputes UserStart and UserEnd of every chapter, post-order.
// Ordered editions are laid out back to back from zero; unordered ones keep
// their authored times with siblings sorted by start.
func (e *Edition) Refresh() {
	if e.Ordered {
		user := NoTime
		for _, id := range e.Chapters {
			user = e.refreshOrdered(id, user)
		}
		return
	}
	e.refreshUnordered(e.Chapters)
}

func (e *Edition) refreshOrdered(id ID, prev time.Duration) time.Duration {
	user := prev
	for _, child := range e.arena.nodes[id].Children {
		user = e.refreshOrdered(child, user)
	}

	c := &e.arena.nodes[id]
	if prev == NoTime {
		if user == NoTime {
			user = 0
		}
		prev = 0
	}
	c.UserStart = prev
	if c.End != NoTime && user == prev {
		c.UserEnd = c.UserStart - c.Start + c.End
	} else {
		c.UserEnd = user
	}
	if c.UserEnd < c.UserStart {
		c.UserEnd = c.UserStart
	}
	return c.UserEnd
}

// refreshUnordered sorts ids in place by authored start and fills user times.
func (e *Edition) refreshUnordered(ids []ID) time.Duration {
	nodes := e.arena.nodes
	sort.SliceStable(ids, func(i, j int) bool {
		return nodes[ids[i]].Start < nodes[ids[j]].Start
	})

	last := NoTime
	for i, id := range ids {
		childEnd := NoTime
		if len(e.arena.nodes[id].Children) > 0 {
			childEnd = e.refreshUnordered(e.arena.nodes[id].Children)
		}

		c := &e.arena.nodes[id]
		c.UserStart = c.Start
		switch {
		case c.End != NoTime:
			c.UserEnd = c.End
		case childEnd != NoTime:
			c.UserEnd = childEnd
		case i+1 < len(ids):
			c.UserEnd = e.arena.nodes[ids[i+1]].Start
		default:
			c.UserEnd = c.UserStart
		}
		if c.UserEnd < c.UserStart {
			c.UserEnd = c.UserStart
		}
		if c.UserEnd > last {
			last = c.UserEnd
		}
	}
	return last
}

// Duration is the end of the edition on the playback timeline.
func (e *Edition) Duration() time.Duration {
	var d time.Duration
	for _, id := range e.Chapters {
		if end := e.arena.nodes[id].UserEnd; end > d {
			d = end
		}
	}
	return d
}

// FindTimecode returns the deepest chapter containing t. When t falls in a
// gap between chapters but inside the edition, the last top-level chapter
// starting before t is returned.
func (e *Edition) FindTimecode(t time.Duration) ID {
	if id := e.find(e.Chapters, t); id != None {
		return id
	}
	if len(e.Chapters) == 0 || t < e.arena.nodes[e.Chapters[0]].UserStart || t >= e.Duration() {
		return None
	}
	found := None
	for _, id := range e.Chapters {
		if e.arena.nodes[id].UserStart <= t {
			found = id
		}
	}
	return found
}

func (e *Edition) find(ids []ID, t time.Duration) ID {
	for _, id := range ids {
		c := &e.arena.nodes[id]
		if !c.Contains(t) {
			continue
		}
		if deeper := e.find(c.Children, t); deeper != None {
			return deeper
		}
		return id
	}
	return None
}

// Find returns the first chapter, depth first, for which match is true.
func (e *Edition) Find(match func(*Chapter) bool) ID {
	found := None
	e.Walk(func(id ID, _ int) bool {
		if match(&e.arena.nodes[id]) {
			found = id
			return false
		}
		return true
	})
	return found
}

// FindUID returns the chapter with uid.
func (e *Edition) FindUID(uid uint64) ID {
	return e.Find(func(c *Chapter) bool { return c.UID == uid })
}

// Walk visits chapters depth first with their nesting level until fn returns false.
func (e *Edition) Walk(fn func(id ID, level int) bool) {
	e.walk(e.Chapters, 0, fn)
}

func (e *Edition) walk(ids []ID, level int, fn func(ID, int) bool) bool {
	for _, id := range ids {
		if !fn(id, level) {
			return false
		}
		if !e.walk(e.arena.nodes[id].Children, level+1, fn) {
			return false
		}
	}
	return true
}

// Append merges other into e by chapter UID: matching chapters merge their
// children, the others are cloned in.
func (e *Edition) Append(other *Edition) {
	e.Chapters = e.appendChildren(e.Chapters, None, other, other.Chapters)
}

func (e *Edition) appendChildren(dst []ID, parent ID, other *Edition, src []ID) []ID {
	for _, sid := range src {
		s := other.arena.nodes[sid]
		match := None
		for _, did := range dst {
			if e.arena.nodes[did].UID == s.UID {
				match = did
				break
			}
		}
		if match != None {
			children := e.appendChildren(e.arena.nodes[match].Children, match, other, s.Children)
			e.arena.nodes[match].Children = children
			continue
		}
		dst = append(dst, e.clone(other.arena, sid, parent))
	}
	return dst
}

// Clone deep-copies the edition into a.
func (e *Edition) Clone(a *Arena) *Edition {
	out := &Edition{
		UID:     e.UID,
		Ordered: e.Ordered,
		Default: e.Default,
		Hidden:  e.Hidden,
		arena:   a,
	}
	for _, id := range e.Chapters {
		out.Chapters = append(out.Chapters, out.clone(e.arena, id, None))
	}
	return out
}

func (e *Edition) clone(src *Arena, id ID, parent ID) ID {
	c := src.nodes[id]
	children := c.Children
	c.Parent = parent
	c.Children = nil
	nid := e.arena.New(c)
	for _, child := range children {
		cid := e.clone(src, child, nid)
		e.arena.nodes[nid].Children = append(e.arena.nodes[nid].Children, cid)
	}
	return nid
}

// MainName is the name shown for the edition as a title.
func (e *Edition) MainName() string {
	if len(e.Chapters) == 0 {
		return ""
	}
	return e.arena.nodes[e.Chapters[0]].Name()
}

type Seekpoint struct {
	Chapter ID
	Name    string
	Time    time.Duration
	Level   int
}

// Publish numbers the displayed chapters depth first and returns them as
// seekpoints. Hidden and disabled chapters are skipped but their children
// are still published.
func (e *Edition) Publish() []Seekpoint {
	var points []Seekpoint
	e.Walk(func(id ID, level int) bool {
		c := &e.arena.nodes[id]
		c.Seekpoint = -1
		if c.Hidden || !c.Enabled {
			return true
		}
		c.Seekpoint = len(points)
		points = append(points, Seekpoint{
			Chapter: id,
			Name:    e.arena.DisplayName(id, len(points)),
			Time:    c.UserStart,
			Level:   level,
		})
		return true
	})
	return points
}
