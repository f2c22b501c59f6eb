package localtui

import (
	"github.com/gdamore/tcell/v2"

	"pkt.systems/termfolio/internal/termview"
	"pkt.systems/termfolio/schema"
)

// styles maps line roles to tcell styles for one theme.
type styles struct {
	roles  map[termview.Role]tcell.Style
	bar    tcell.Style
	loader tcell.Style
}

func stylesFor(name schema.ThemeName) styles {
	if normalized, ok := schema.NormalizeThemeName(string(name)); ok {
		name = normalized
	}
	p := schema.ThemePalette(name)
	color := func(c uint32) tcell.Color { return tcell.NewHexColor(int32(c)) }
	base := tcell.StyleDefault.Background(color(p.Background))
	fg := func(c uint32) tcell.Style { return base.Foreground(color(c)) }
	return styles{
		roles: map[termview.Role]tcell.Style{
			termview.RolePlain:    fg(p.Text),
			termview.RoleBanner:   fg(p.Banner),
			termview.RoleCommand:  fg(p.Command),
			termview.RoleError:    fg(p.Error),
			termview.RoleInfo:     fg(p.Info),
			termview.RoleArt:      fg(p.Art),
			termview.RolePrompt:   fg(p.Prompt),
			termview.RoleMuted:    fg(p.Muted).Dim(true),
			termview.RoleTitle:    fg(p.Title).Bold(true),
			termview.RoleSelected: fg(p.SelectedText).Background(color(p.Selected)).Bold(true),
		},
		bar:    fg(p.BarText).Background(color(p.Bar)).Bold(true),
		loader: fg(p.Loader),
	}
}

func (s styles) role(role termview.Role) tcell.Style {
	if style, ok := s.roles[role]; ok {
		return style
	}
	return s.roles[termview.RolePlain]
}
