package chapter

import (
	"time"

	"github.com/vdkmedia/mkvdemux/format/mkv/mkvio"
)

// ChapProcessTime values.
const (
	processDuring = 0
	processEnter  = 1
	processLeave  = 2
)

// Parse reads the Chapters element c returned last into editions whose
// chapters are stored in a with the given owner.
func Parse(c *mkvio.Cursor, a *Arena, owner int) ([]*Edition, error) {
	if err := c.Down(); err != nil {
		return nil, err
	}
	defer c.Up()

	var editions []*Edition
	for el := c.Get(); el != nil; el = c.Get() {
		if !el.Is(mkvio.ElementEditionEntry) {
			continue
		}
		ed, err := parseEdition(c, a, owner)
		if err != nil {
			return editions, err
		}
		editions = append(editions, ed)
	}
	return editions, c.Err()
}

func parseEdition(c *mkvio.Cursor, a *Arena, owner int) (ed *Edition, err error) {
	ed = NewEdition(a)
	if err = c.Down(); err != nil {
		return nil, err
	}
	defer c.Up()

	for el := c.Get(); el != nil && err == nil; el = c.Get() {
		switch el.ID {
		case mkvio.ElementEditionUID.ID:
			ed.UID, err = c.ReadUint()
		case mkvio.ElementEditionFlagHidden.ID:
			ed.Hidden, err = readFlag(c)
		case mkvio.ElementEditionFlagDefault.ID:
			ed.Default, err = readFlag(c)
		case mkvio.ElementEditionFlagOrdered.ID:
			ed.Ordered, err = readFlag(c)
		case mkvio.ElementChapterAtom.ID:
			var id ID
			id, err = parseAtom(c, a, owner, None)
			if err == nil {
				ed.Chapters = append(ed.Chapters, id)
			}
		}
	}
	return ed, err
}

func readFlag(c *mkvio.Cursor) (bool, error) {
	v, err := c.ReadUint()
	return v != 0, err
}

func parseAtom(c *mkvio.Cursor, a *Arena, owner int, parent ID) (id ID, err error) {
	id = a.New(Chapter{End: NoTime, Enabled: true, Owner: owner, Parent: parent})
	if err = c.Down(); err != nil {
		return None, err
	}
	defer c.Up()

	for el := c.Get(); el != nil && err == nil; el = c.Get() {
		ch := a.Get(id)
		switch el.ID {
		case mkvio.ElementChapterUID.ID:
			ch.UID, err = c.ReadUint()
		case mkvio.ElementChapterTimeStart.ID:
			var v uint64
			v, err = c.ReadUint()
			ch.Start = time.Duration(v)
		case mkvio.ElementChapterTimeEnd.ID:
			var v uint64
			v, err = c.ReadUint()
			ch.End = time.Duration(v)
		case mkvio.ElementChapterFlagHidden.ID:
			ch.Hidden, err = readFlag(c)
		case mkvio.ElementChapterFlagEnabled.ID:
			ch.Enabled, err = readFlag(c)
		case mkvio.ElementChapterSegmentUID.ID:
			ch.SegmentUID, err = c.ReadBytes()
		case mkvio.ElementChapterSegmentEditionUID.ID:
			ch.SegmentEditionUID, err = c.ReadUint()
		case mkvio.ElementChapterDisplay.ID:
			var d Display
			d, err = parseDisplay(c)
			a.Get(id).Displays = append(a.Get(id).Displays, d)
		case mkvio.ElementChapProcess.ID:
			var cs CommandSet
			cs, err = parseProcess(c)
			a.Get(id).Codecs = append(a.Get(id).Codecs, cs)
		case mkvio.ElementChapterAtom.ID:
			var child ID
			child, err = parseAtom(c, a, owner, id)
			if err == nil {
				a.Get(id).Children = append(a.Get(id).Children, child)
			}
		}
	}
	return id, err
}

func parseDisplay(c *mkvio.Cursor) (d Display, err error) {
	if err = c.Down(); err != nil {
		return d, err
	}
	defer c.Up()
	for el := c.Get(); el != nil && err == nil; el = c.Get() {
		switch el.ID {
		case mkvio.ElementChapString.ID:
			d.String, err = c.ReadString()
		case mkvio.ElementChapLanguage.ID:
			d.Language, err = c.ReadString()
		case mkvio.ElementChapCountry.ID:
			d.Country, err = c.ReadString()
		}
	}
	return d, err
}

func parseProcess(c *mkvio.Cursor) (cs CommandSet, err error) {
	if err = c.Down(); err != nil {
		return cs, err
	}
	defer c.Up()
	for el := c.Get(); el != nil && err == nil; el = c.Get() {
		switch el.ID {
		case mkvio.ElementChapProcessCodecID.ID:
			cs.Codec, err = c.ReadUint()
		case mkvio.ElementChapProcessPrivate.ID:
			cs.Private, err = c.ReadBytes()
		case mkvio.ElementChapProcessCommand.ID:
			err = parseCommand(c, &cs)
		}
	}
	return cs, err
}

func parseCommand(c *mkvio.Cursor, cs *CommandSet) (err error) {
	if err = c.Down(); err != nil {
		return err
	}
	defer c.Up()

	when := uint64(processDuring)
	var data [][]byte
	for el := c.Get(); el != nil && err == nil; el = c.Get() {
		switch el.ID {
		case mkvio.ElementChapProcessTime.ID:
			when, err = c.ReadUint()
		case mkvio.ElementChapProcessData.ID:
			var b []byte
			b, err = c.ReadBytes()
			data = append(data, b)
		}
	}
	switch when {
	case processEnter:
		cs.Enter = append(cs.Enter, data...)
	case processLeave:
		cs.Leave = append(cs.Leave, data...)
	default:
		cs.During = append(cs.During, data...)
	}
	return err
}
