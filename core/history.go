package core

import "pkt.systems/termfolio/schema"

// historyBuffer is the append-only command history of a session with a
// recall cursor. The cursor stays in [0, len(entries)]; len means "not
// browsing" and recalls an empty input.
type historyBuffer struct {
	entries []string
	cursor  int
	max     int
}

func newHistory(max int) *historyBuffer {
	if max <= 0 {
		max = schema.DefaultHistoryMax
	}
	return &historyBuffer{max: max}
}

// Append records a submitted command and parks the cursor past the end.
func (h *historyBuffer) Append(entry string) {
	h.entries = append(h.entries, entry)
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
	h.cursor = len(h.entries)
}

// Move shifts the cursor by delta, clamped, and returns the recalled input.
// ok is false when there is no history to browse.
func (h *historyBuffer) Move(delta int) (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	h.cursor += delta
	if h.cursor < 0 {
		h.cursor = 0
	}
	if h.cursor > len(h.entries) {
		h.cursor = len(h.entries)
	}
	if h.cursor < len(h.entries) {
		return h.entries[h.cursor], true
	}
	return "", true
}

func (h *historyBuffer) Cursor() int {
	return h.cursor
}

func (h *historyBuffer) Len() int {
	return len(h.entries)
}

func (h *historyBuffer) Entries() []string {
	if h == nil {
		return nil
	}
	return append([]string(nil), h.entries...)
}
