package termview

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// cells measures terminal columns. Ambiguous runes such as the block glyphs
// of the headings and skill bars count as one column regardless of locale.
var cells = func() *runewidth.Condition {
	c := runewidth.NewCondition()
	c.EastAsianWidth = false
	return c
}()

// StringWidth reports how many terminal columns text occupies.
func StringWidth(text string) int {
	return cells.StringWidth(text)
}

// RuneWidth reports how many terminal columns r occupies.
func RuneWidth(r rune) int {
	return cells.RuneWidth(r)
}

type textToken struct {
	text  string
	space bool
}

// splitRuns cuts sanitized text into alternating runs of spaces and
// non-spaces.
func splitRuns(text string) []textToken {
	var tokens []textToken
	for start := 0; start < len(text); {
		space := text[start] == ' '
		end := start
		for end < len(text) && (text[end] == ' ') == space {
			end++
		}
		tokens = append(tokens, textToken{text: text[start:end], space: space})
		start = end
	}
	return tokens
}

// Wrap word-wraps one line of text to width columns. Runs of spaces are kept
// except at the start of a continuation line; words wider than width are
// split.
func Wrap(text string, width int) []string {
	if width <= 0 {
		return []string{""}
	}
	sanitized := Sanitize(text)
	if sanitized == "" {
		return []string{""}
	}
	lines := make([]string, 0, 4)
	var b strings.Builder
	visible := 0
	suppressLeadingSpace := false
	flush := func(wrapped bool) {
		if b.Len() == 0 {
			return
		}
		lines = append(lines, Truncate(b.String(), width))
		b.Reset()
		visible = 0
		suppressLeadingSpace = wrapped
	}
	for _, token := range splitRuns(sanitized) {
		if token.space {
			if visible == 0 && suppressLeadingSpace {
				continue
			}
			spaceLen := len(token.text)
			if visible+spaceLen > width {
				flush(true)
				continue
			}
			b.WriteString(token.text)
			visible += spaceLen
			continue
		}
		wordLen := StringWidth(token.text)
		if wordLen > width {
			if visible > 0 {
				flush(true)
			}
			for _, r := range token.text {
				rw := RuneWidth(r)
				if visible > 0 && visible+rw > width {
					flush(true)
				}
				b.WriteRune(r)
				visible += rw
			}
			suppressLeadingSpace = false
			continue
		}
		if visible+wordLen > width && visible > 0 {
			flush(true)
		}
		b.WriteString(token.text)
		visible += wordLen
		suppressLeadingSpace = false
	}
	flush(false)
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

// escapeSeq matches CSI and OSC sequences, complete or cut off, and any
// other two-byte escape.
var escapeSeq = regexp.MustCompile(`\x1b(?:\[[0-?]*[ -/]*[@-~]?|\][^\x07\x1b]*(?:\x07|\x1b\\)?|.?)`)

// Sanitize strips escape sequences and control characters. Tabs become four
// spaces and any other whitespace a single space.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToValidUTF8(escapeSeq.ReplaceAllString(text, ""), "")
	text = strings.ReplaceAll(text, "\t", "    ")
	return strings.Map(func(r rune) rune {
		switch {
		case r < 0x20 || r == 0x7f:
			return -1
		case unicode.IsSpace(r):
			return ' '
		}
		return r
	}, text)
}

// Truncate cuts text to at most width columns.
func Truncate(text string, width int) string {
	if width <= 0 {
		return ""
	}
	if StringWidth(text) <= width {
		return text
	}
	return cells.Truncate(text, width, "")
}

// Pad right-pads text with spaces to width columns, truncating wider text.
func Pad(text string, width int) string {
	if width <= 0 {
		return ""
	}
	return cells.FillRight(Truncate(text, width), width)
}
