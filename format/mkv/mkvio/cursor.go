package mkvio

import (
	"encoding/binary"
	"io"
	"math"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	ErrTopLevel  = errors.New("mkvio: Up called at the top level")
	ErrNoElement = errors.New("mkvio: no current element")
)

// Epoch is the origin of Matroska dates.
var Epoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

type frame struct {
	el   Element
	next int64 // offset of the next sibling header
}

func (f *frame) end() int64 {
	return f.el.End()
}

// Cursor walks an EBML tree one level at a time. Get returns the next element
// at the current level and skips whatever was left unread of the previous
// one, Down enters the element returned last and Up leaves the current level.
// Get returning nil means "no more elements here": the caller goes Up.
type Cursor struct {
	s     *Stream
	stack []frame
	cur   *Element
	// header already read that belongs to an outer level; it ended an unknown-size frame
	pending *Element

	// Dummy surfaces Void, CRC-32 and unknown elements instead of skipping them.
	Dummy bool

	buf   []byte
	downs int
	ups   int
	err   error
}

// NewCursor returns a cursor positioned before the first child of root.
func NewCursor(s *Stream, root Element) *Cursor {
	return &Cursor{
		s:     s,
		stack: []frame{{el: root, next: root.DataPos}},
	}
}

func (c *Cursor) Stream() *Stream {
	return c.s
}

// Root is the element the cursor was created on.
func (c *Cursor) Root() Element {
	return c.stack[0].el
}

// Level is the number of Down calls not matched by Up.
func (c *Cursor) Level() int {
	return len(c.stack) - 1
}

// Balance returns Down calls minus Up calls since the last Reset.
func (c *Cursor) Balance() int {
	return c.downs - c.ups
}

// Err returns the first read error that ended an iteration early.
func (c *Cursor) Err() error {
	return c.err
}

// Parent returns the master element of the current level.
func (c *Cursor) Parent() Element {
	return c.stack[len(c.stack)-1].el
}

func (c *Cursor) Get() *Element {
	f := &c.stack[len(c.stack)-1]

	if c.cur != nil {
		if c.cur.Unknown() {
			c.skipUnknown(*c.cur, c.cur.DataPos)
		} else {
			f.next = c.cur.End()
		}
		c.cur = nil
	}

	for {
		if c.pending != nil {
			p := *c.pending
			if f.el.Unknown() && closes(f.el, p) {
				return nil
			}
			if !f.el.Unknown() && p.Pos >= f.end() {
				return nil
			}
			c.pending = nil
			if c.skippable(p) {
				f.next = p.End()
				continue
			}
			c.cur = &p
			return c.current()
		}

		if !f.el.Unknown() && f.next >= f.end() {
			return nil
		}
		if c.s.Size() >= 0 && f.next >= c.s.Size() {
			return nil
		}
		if _, err := c.s.Seek(f.next, io.SeekStart); err != nil {
			c.fail(err)
			return nil
		}
		el, err := ReadElementHeader(c.s)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.fail(err)
			}
			return nil
		}

		if f.el.Unknown() && closes(f.el, el) {
			c.pending = &el
			return nil
		}
		if c.skippable(el) {
			if el.Unknown() {
				c.fail(errors.Wrapf(ErrParse, "unknown-size %s at %d", el.Name, el.Pos))
				return nil
			}
			f.next = el.End()
			continue
		}
		c.cur = &el
		if !el.Unknown() {
			f.next = el.End()
		}
		return c.current()
	}
}

func (c *Cursor) current() *Element {
	el := *c.cur
	return &el
}

func (c *Cursor) skippable(el Element) bool {
	if c.Dummy {
		return false
	}
	return el.Type == ElementTypeUnknown || el.Is(ElementVoid) || el.Is(ElementCRC32)
}

// skipUnknown steps over an unknown-size master that was returned by Get but
// never entered, by scanning its children until an element closes it.
func (c *Cursor) skipUnknown(el Element, pos int64) {
	f := &c.stack[len(c.stack)-1]
	for {
		if _, err := c.s.Seek(pos, io.SeekStart); err != nil {
			c.fail(err)
			f.next = pos
			return
		}
		child, err := ReadElementHeader(c.s)
		if err != nil {
			f.next = pos
			if !errors.Is(err, io.EOF) {
				c.fail(err)
			}
			return
		}
		if closes(el, child) {
			c.pending = &child
			f.next = child.Pos
			return
		}
		if child.Unknown() {
			pos = child.DataPos
		} else {
			pos = child.End()
		}
	}
}

func (c *Cursor) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

// Down enters the element returned by the last Get.
func (c *Cursor) Down() error {
	if c.cur == nil {
		return ErrNoElement
	}
	c.stack = append(c.stack, frame{el: *c.cur, next: c.cur.DataPos})
	c.cur = nil
	c.downs++
	return nil
}

// Up leaves the current level; the element that was entered counts as read.
func (c *Cursor) Up() error {
	if len(c.stack) == 1 {
		return ErrTopLevel
	}
	f := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	c.cur = nil
	c.ups++

	parent := &c.stack[len(c.stack)-1]
	switch {
	case !f.el.Unknown():
		parent.next = f.end()
	case c.pending != nil:
		parent.next = c.pending.Pos
	default:
		c.skipUnknown(f.el, f.next)
	}
	return nil
}

// Keep detaches the payload returned by the last ReadData so that later reads
// do not overwrite it.
func (c *Cursor) Keep() []byte {
	b := c.buf
	c.buf = nil
	return b
}

// Reset rewinds to the first child of the root.
func (c *Cursor) Reset() {
	c.Rehome(c.stack[0].el.DataPos)
}

// Rehome drops all level state and resumes reading root children at pos.
func (c *Cursor) Rehome(pos int64) {
	c.stack = c.stack[:1]
	c.stack[0].next = pos
	c.cur = nil
	c.pending = nil
	c.err = nil
	c.downs, c.ups = 0, 0
}

// SyncTo scans the stream from pos for the next occurrence of id and rehomes
// the cursor on it. It gives up after limit bytes.
func (c *Cursor) SyncTo(pos int64, id uint32, limit int64) bool {
	if _, err := c.s.Seek(pos, io.SeekStart); err != nil {
		c.fail(err)
		return false
	}
	width := len(EncodeID(id))
	mask := uint64(1)<<(8*uint(width)) - 1

	var window uint64
	for n := int64(0); limit < 0 || n < limit; n++ {
		b, err := c.s.ReadByte()
		if err != nil {
			return false
		}
		window = (window<<8 | uint64(b)) & mask
		if n+1 >= int64(width) && window == uint64(id) {
			c.Rehome(c.s.Tell() - int64(width))
			return true
		}
	}
	return false
}

// ReadData reads the payload of the current element into a scratch buffer
// that stays valid until the next ReadData unless Keep is called.
func (c *Cursor) ReadData() ([]byte, error) {
	if c.cur == nil {
		return nil, ErrNoElement
	}
	el := *c.cur
	if el.Unknown() || el.Size > MaxDataSize {
		return nil, errors.Wrapf(ErrTooLarge, "%s at %d", el.Name, el.Pos)
	}
	if _, err := c.s.Seek(el.DataPos, io.SeekStart); err != nil {
		return nil, err
	}
	if cap(c.buf) < int(el.Size) {
		c.buf = make([]byte, el.Size)
	}
	c.buf = c.buf[:el.Size]
	if _, err := io.ReadFull(c.s, c.buf); err != nil {
		return nil, unexpected(err)
	}
	return c.buf, nil
}

func (c *Cursor) ReadUint() (uint64, error) {
	b, err := c.ReadData()
	if err != nil {
		return 0, err
	}
	if len(b) > 8 {
		return 0, errors.Wrapf(ErrParse, "uint of %d bytes", len(b))
	}
	return pack(len(b), b), nil
}

func (c *Cursor) ReadInt() (int64, error) {
	b, err := c.ReadData()
	if err != nil {
		return 0, err
	}
	if len(b) > 8 {
		return 0, errors.Wrapf(ErrParse, "int of %d bytes", len(b))
	}
	if len(b) == 0 {
		return 0, nil
	}
	v := int64(pack(len(b), b))
	shift := uint(64 - 8*len(b))
	return v << shift >> shift, nil
}

func (c *Cursor) ReadFloat() (float64, error) {
	b, err := c.ReadData()
	if err != nil {
		return 0, err
	}
	switch len(b) {
	case 0:
		return 0, nil
	case 4:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(b))), nil
	case 8:
		return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
	}
	return 0, errors.Wrapf(ErrParse, "float of %d bytes", len(b))
}

func (c *Cursor) ReadString() (string, error) {
	b, err := c.ReadData()
	if err != nil {
		return "", err
	}
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return string(b), nil
}

func (c *Cursor) ReadDate() (time.Time, error) {
	v, err := c.ReadInt()
	if err != nil {
		return time.Time{}, err
	}
	return Epoch.Add(time.Duration(v)), nil
}

// ReadBytes returns a copy of the current payload.
func (c *Cursor) ReadBytes() ([]byte, error) {
	b, err := c.ReadData()
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}
