package mkvio

// ElementRegister contains the ID, type, name and minimum nesting depth of the
// standard WebM/Matroska elements. Depth 0 is EBML and Segment, 1 the direct
// children of Segment.
type ElementRegister struct {
	ID    uint32
	Type  uint8
	Name  string
	Level int
}

// Element is a Matroska/WebM/EBML element header located in a Stream.
type Element struct {
	ElementRegister

	Pos     int64 // offset of the first id byte
	DataPos int64 // offset of the first payload byte
	Size    int64 // payload size, SizeUnknown for live masters
}

// SizeUnknown is the payload size of an element whose size vint is all ones.
const SizeUnknown int64 = -1

func (el Element) Unknown() bool {
	return el.Size == SizeUnknown
}

// End returns the offset just past the payload, or SizeUnknown.
func (el Element) End() int64 {
	if el.Unknown() {
		return SizeUnknown
	}
	return el.DataPos + el.Size
}

func (el Element) IsMaster() bool {
	return el.Type == ElementTypeMaster
}

// Is reports whether el carries the id of reg.
func (el Element) Is(reg ElementRegister) bool {
	return el.ID == reg.ID
}

// closes reports whether el cannot be a descendant of parent and therefore
// terminates an unknown-size parent.
func closes(parent, el Element) bool {
	if el.Level == LevelGlobal || el.Type == ElementTypeUnknown {
		return false
	}
	return el.Level <= parent.Level
}
