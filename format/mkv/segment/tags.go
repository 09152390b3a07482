package segment

import (
	"bytes"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/remko/go-mkvparse"

	"github.com/vdkmedia/mkvdemux/format/mkv/mkvio"
)

// parseTags hands the raw Tags element to go-mkvparse and keeps the
// SimpleTags that apply to the whole segment or to one track.
func (s *Segment) parseTags(c *mkvio.Cursor, el mkvio.Element) error {
	if s.tagsRead {
		return nil
	}
	s.tagsRead = true

	if el.Unknown() || el.Size > mkvio.MaxDataSize {
		return errors.Wrapf(mkvio.ErrTooLarge, "tags at %d", el.Pos)
	}
	raw := make([]byte, el.End()-el.Pos)
	if _, err := s.st.Seek(el.Pos, io.SeekStart); err != nil {
		return err
	}
	if _, err := io.ReadFull(s.st, raw); err != nil {
		return errors.Wrap(err, "read tags")
	}

	h := &tagsHandler{seg: s}
	if err := mkvparse.Parse(bytes.NewReader(raw), h); err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrap(err, "parse tags")
	}
	return nil
}

type simpleTag struct {
	name, value string
}

type tagsHandler struct {
	seg *Segment

	trackUIDs []uint64
	scoped    bool
	stack     []*simpleTag
	pending   []simpleTag
}

func (h *tagsHandler) HandleMasterBegin(id mkvparse.ElementID, info mkvparse.ElementInfo) (bool, error) {
	switch id {
	case mkvparse.TagElement:
		h.trackUIDs, h.scoped, h.pending = nil, false, nil
	case mkvparse.SimpleTagElement:
		h.stack = append(h.stack, &simpleTag{})
	}
	return true, nil
}

func (h *tagsHandler) HandleMasterEnd(id mkvparse.ElementID, info mkvparse.ElementInfo) error {
	switch id {
	case mkvparse.SimpleTagElement:
		if len(h.stack) == 0 {
			return nil
		}
		t := h.stack[len(h.stack)-1]
		h.stack = h.stack[:len(h.stack)-1]
		if t.name != "" {
			h.pending = append(h.pending, *t)
		}
	case mkvparse.TagElement:
		h.commit()
	}
	return nil
}

func (h *tagsHandler) commit() {
	s := h.seg
	for _, t := range h.pending {
		switch {
		case len(h.trackUIDs) > 0:
			for _, uid := range h.trackUIDs {
				m := s.TrackTags[uid]
				if m == nil {
					m = map[string]string{}
					s.TrackTags[uid] = m
				}
				m[t.name] = t.value
			}
		case !h.scoped:
			s.Tags[t.name] = t.value
		}
	}
	h.pending = nil
}

func (h *tagsHandler) HandleString(id mkvparse.ElementID, value string, info mkvparse.ElementInfo) error {
	if len(h.stack) == 0 {
		return nil
	}
	switch id {
	case mkvparse.TagNameElement:
		h.stack[len(h.stack)-1].name = value
	case mkvparse.TagStringElement:
		h.stack[len(h.stack)-1].value = value
	}
	return nil
}

func (h *tagsHandler) HandleInteger(id mkvparse.ElementID, value int64, info mkvparse.ElementInfo) error {
	if value == 0 {
		return nil
	}
	switch id {
	case mkvparse.TagTrackUIDElement:
		h.trackUIDs = append(h.trackUIDs, uint64(value))
	case mkvparse.TagEditionUIDElement, mkvparse.TagChapterUIDElement:
		h.scoped = true
	}
	return nil
}

func (h *tagsHandler) HandleFloat(id mkvparse.ElementID, value float64, info mkvparse.ElementInfo) error {
	return nil
}

func (h *tagsHandler) HandleDate(id mkvparse.ElementID, value time.Time, info mkvparse.ElementInfo) error {
	return nil
}

func (h *tagsHandler) HandleBinary(id mkvparse.ElementID, value []byte, info mkvparse.ElementInfo) error {
	return nil
}
