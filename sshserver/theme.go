package sshserver

import (
	"fmt"

	"pkt.systems/termfolio/internal/termview"
	"pkt.systems/termfolio/schema"
)

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
	ansiDim   = "\x1b[2m"
)

// tuiTheme renders styled rows with a schema palette as 24-bit ANSI colors.
type tuiTheme struct {
	Name    schema.ThemeName
	palette schema.Palette
}

func themeForName(name schema.ThemeName) tuiTheme {
	if normalized, ok := schema.NormalizeThemeName(string(name)); ok {
		name = normalized
	} else {
		name = schema.DefaultTheme
	}
	return tuiTheme{Name: name, palette: schema.ThemePalette(name)}
}

// styleLine pads the line to width and wraps it in the role's colors.
func (t tuiTheme) styleLine(line termview.Line, width int) string {
	text := termview.Pad(line.Text, width)
	p := t.palette
	switch line.Role {
	case termview.RoleSelected:
		return ansiBg(p.Selected) + ansiFg(p.SelectedText) + ansiBold + text + ansiReset
	case termview.RoleTitle:
		return ansiFg(p.Title) + ansiBold + text + ansiReset
	case termview.RoleMuted:
		return ansiFg(p.Muted) + ansiDim + text + ansiReset
	}
	return ansiFg(t.roleColor(line.Role)) + text + ansiReset
}

func (t tuiTheme) roleColor(role termview.Role) uint32 {
	p := t.palette
	switch role {
	case termview.RoleBanner:
		return p.Banner
	case termview.RoleCommand:
		return p.Command
	case termview.RoleError:
		return p.Error
	case termview.RoleInfo:
		return p.Info
	case termview.RoleArt:
		return p.Art
	case termview.RolePrompt:
		return p.Prompt
	}
	return p.Text
}

func (t tuiTheme) titleBar(text string, width int) string {
	return ansiBg(t.palette.Bar) + ansiFg(t.palette.BarText) + ansiBold + termview.Pad(text, width) + ansiReset
}

func (t tuiTheme) loaderLine(bar string, width int) string {
	return ansiFg(t.palette.Loader) + termview.Pad(bar, width) + ansiReset
}

func ansiFg(c uint32) string {
	return fmt.Sprintf("\x1b[38;2;%d;%d;%dm", c>>16&0xff, c>>8&0xff, c&0xff)
}

func ansiBg(c uint32) string {
	return fmt.Sprintf("\x1b[48;2;%d;%d;%dm", c>>16&0xff, c>>8&0xff, c&0xff)
}
