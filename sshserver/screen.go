package sshserver

import (
	"io"
	"strconv"
	"strings"
)

// screen paints frames on the client's alternate screen. Only rows that
// differ from the previous frame are rewritten.
type screen struct {
	out  io.Writer
	prev []string
}

func newScreen(out io.Writer) *screen {
	return &screen{out: out}
}

func (s *screen) EnterAltScreen() {
	s.prev = nil
	_, _ = io.WriteString(s.out, "\x1b[?1049h\x1b[H\x1b[2J")
}

func (s *screen) ExitAltScreen() {
	s.prev = nil
	_, _ = io.WriteString(s.out, "\x1b[?25h\x1b[?1049l")
}

// Invalidate forces the next frame to repaint every row.
func (s *screen) Invalidate() {
	s.prev = nil
}

// Render draws frame and parks the cursor at the 1-based row and col, hiding
// it when showCursor is false.
func (s *screen) Render(frame []string, row, col int, showCursor bool) error {
	var b strings.Builder
	b.WriteString("\x1b[?25l")
	full := len(frame) != len(s.prev)
	if full {
		b.WriteString("\x1b[2J")
	}
	for i, line := range frame {
		if !full && s.prev[i] == line {
			continue
		}
		moveTo(&b, i+1, 1)
		b.WriteString(line)
		b.WriteString("\x1b[K")
	}
	moveTo(&b, max(row, 1), max(col, 1))
	if showCursor {
		b.WriteString("\x1b[?25h")
	}
	s.prev = append(s.prev[:0], frame...)
	_, err := io.WriteString(s.out, b.String())
	return err
}

func moveTo(b *strings.Builder, row, col int) {
	b.WriteString("\x1b[")
	b.WriteString(strconv.Itoa(row))
	b.WriteByte(';')
	b.WriteString(strconv.Itoa(col))
	b.WriteByte('H')
}
