// Package termview lays out a session snapshot as styled text lines for
// character-cell transports. It knows nothing about escape codes or screens;
// each line carries a Role that the transport maps to colors.
package termview

import (
	"fmt"
	"strings"

	"pkt.systems/termfolio/schema"
)

// Role classifies a rendered line for styling.
type Role int

const (
	RolePlain Role = iota
	RoleBanner
	RoleCommand
	RoleError
	RoleInfo
	RoleArt
	RolePrompt
	RoleMuted
	RoleTitle
	RoleSelected
)

// Line is one rendered row.
type Line struct {
	Text string
	Role Role
}

// SelectorOption is one entry of the view selector.
type SelectorOption struct {
	Key   string
	Label string
	Hint  string
	View  schema.ViewMode
}

// SelectorOptions lists the views a visitor can pick from the selector.
var SelectorOptions = []SelectorOption{
	{Key: "1", Label: "Terminal", Hint: "interactive shell experience", View: schema.ViewTerminal},
	{Key: "2", Label: "GUI", Hint: "classic portfolio page", View: schema.ViewGUI},
}

func roleForBlock(block schema.Block) Role {
	switch block.Kind {
	case schema.BlockBanner:
		return RoleBanner
	case schema.BlockCommand:
		return RoleCommand
	case schema.BlockError:
		return RoleError
	case schema.BlockInfo:
		return RoleInfo
	}
	if block.ASCIIArt {
		return RoleArt
	}
	return RolePlain
}

// BlockLines renders one block. ASCII-art blocks keep their columns and are
// truncated at width; everything else is word-wrapped.
func BlockLines(block schema.Block, width int) []Line {
	role := roleForBlock(block)
	var out []Line
	for _, raw := range strings.Split(block.Text, "\n") {
		if role == RoleArt {
			out = append(out, Line{Text: Truncate(Sanitize(raw), width), Role: role})
			continue
		}
		for _, wrapped := range Wrap(raw, width) {
			out = append(out, Line{Text: wrapped, Role: role})
		}
	}
	return out
}

// Transcript renders the output log, separating blocks with a blank line
// the way the page spaces its output entries.
func Transcript(blocks []schema.Block, width int) []Line {
	var out []Line
	for i, block := range blocks {
		if i > 0 && block.Kind != schema.BlockCommand {
			out = append(out, Line{})
		}
		out = append(out, BlockLines(block, width)...)
	}
	return out
}

// Viewport returns height lines of lines, scrolled up from the bottom by
// offset lines. Short content is padded at the bottom. The clamped offset is
// returned so callers can store it.
func Viewport(lines []Line, height, offset int) ([]Line, int) {
	if height <= 0 {
		return nil, 0
	}
	maxOffset := len(lines) - height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if offset > maxOffset {
		offset = maxOffset
	}
	if offset < 0 {
		offset = 0
	}
	end := len(lines) - offset
	start := end - height
	if start < 0 {
		start = 0
	}
	out := append([]Line(nil), lines[start:end]...)
	for len(out) < height {
		out = append(out, Line{})
	}
	return out, offset
}

// InputLine renders the prompt and the current input.
func InputLine(prompt, input string) Line {
	return Line{Text: prompt + " " + Sanitize(input), Role: RolePrompt}
}

// Selector renders the view selector with the option at selected highlighted.
func Selector(profile schema.Profile, selected int, width int) []Line {
	out := []Line{
		{Text: Truncate(profile.Handle+" - "+profile.Title, width), Role: RoleTitle},
		{},
		{Text: "Choose your experience:", Role: RolePlain},
		{},
	}
	for i, option := range SelectorOptions {
		marker := "  "
		role := RolePlain
		if i == selected {
			marker = "> "
			role = RoleSelected
		}
		text := fmt.Sprintf("%s[%s] %-9s %s", marker, option.Key, option.Label, option.Hint)
		out = append(out, Line{Text: Truncate(text, width), Role: role})
	}
	out = append(out, Line{}, Line{Text: Truncate("up/down select, enter confirm, q quit", width), Role: RoleMuted})
	return out
}

// GUI renders the text rendition of the GUI page followed by the key hints.
func GUI(page []string, width int) []Line {
	var out []Line
	for _, raw := range page {
		role := RolePlain
		switch {
		case strings.HasPrefix(raw, "== "):
			role = RoleTitle
		case strings.HasPrefix(raw, "> "):
			role = RoleInfo
		case schema.IsASCIIArt(raw) || strings.Contains(raw, "█"):
			role = RoleArt
		}
		if role == RoleArt {
			out = append(out, Line{Text: Truncate(raw, width), Role: role})
			continue
		}
		for _, wrapped := range Wrap(raw, width) {
			out = append(out, Line{Text: wrapped, Role: role})
		}
	}
	return out
}

// GUIHint is the key hint shown under the GUI view.
const GUIHint = "t/enter terminal, up/down/pgup/pgdn scroll, q quit"

// LoaderBar renders the loader as "[████    ]  60%" in width columns.
func LoaderBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	inner := width - 7
	if inner < 1 {
		return fmt.Sprintf("%3d%%", percent)
	}
	filled := percent * inner / 100
	return "[" + strings.Repeat("█", filled) + strings.Repeat(" ", inner-filled) + "]" + fmt.Sprintf(" %3d%%", percent)
}
