package schema

import "strings"

// Palette holds the colors of one theme as 0xRRGGBB values. Every front end
// paints from the same palette.
type Palette struct {
	Background   uint32
	Bar          uint32
	BarText      uint32
	Text         uint32
	Banner       uint32
	Command      uint32
	Error        uint32
	Info         uint32
	Art          uint32
	Prompt       uint32
	Muted        uint32
	Title        uint32
	Selected     uint32
	SelectedText uint32
	Loader       uint32
}

type themeSpec struct {
	name    ThemeName
	aliases []string
	palette Palette
}

// DefaultTheme is the phosphor green of the portfolio's matrix page.
const DefaultTheme ThemeName = "matrix"

var themes = []themeSpec{
	{
		name:    "matrix",
		aliases: []string{"green", "phosphor"},
		palette: Palette{
			Background: 0x0a0a0a, Bar: 0x0d2b12, BarText: 0xb8ffc9, Text: 0xb8ffc9,
			Banner: 0x00ff41, Command: 0xffffff, Error: 0xff5555, Info: 0x7dffa0,
			Art: 0x00ff41, Prompt: 0x00ff41, Muted: 0x4f7a58, Title: 0x00ff41,
			Selected: 0x00ff41, SelectedText: 0x0a0a0a, Loader: 0x00ff41,
		},
	},
	{
		name:    "amber",
		aliases: []string{"crt", "retro"},
		palette: Palette{
			Background: 0x1a1200, Bar: 0x3a2600, BarText: 0xffd58a, Text: 0xffc46b,
			Banner: 0xffb000, Command: 0xfff2d6, Error: 0xff6a3d, Info: 0xffd58a,
			Art: 0xffb000, Prompt: 0xffb000, Muted: 0x8a6a2e, Title: 0xffcc33,
			Selected: 0xffb000, SelectedText: 0x1a1200, Loader: 0xffb000,
		},
	},
	{
		name:    "midnight",
		aliases: []string{"night", "dark"},
		palette: Palette{
			Background: 0x0b1020, Bar: 0x16213e, BarText: 0xdbe4ff, Text: 0xdbe4ff,
			Banner: 0x5ccfe6, Command: 0xffffff, Error: 0xff6b81, Info: 0xc3a6ff,
			Art: 0x5ccfe6, Prompt: 0x5ccfe6, Muted: 0x6b7794, Title: 0xc3a6ff,
			Selected: 0x5ccfe6, SelectedText: 0x0b1020, Loader: 0x5ccfe6,
		},
	},
}

// AvailableThemes lists the theme names in display order.
func AvailableThemes() []ThemeName {
	out := make([]ThemeName, 0, len(themes))
	for _, theme := range themes {
		out = append(out, theme.name)
	}
	return out
}

// NormalizeThemeName resolves a theme name or alias, ignoring case and
// treating spaces and underscores as dashes.
func NormalizeThemeName(name string) (ThemeName, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("_", "-", " ", "-").Replace(key)
	if key == "" {
		return "", false
	}
	for _, theme := range themes {
		if key == string(theme.name) {
			return theme.name, true
		}
		for _, alias := range theme.aliases {
			if key == alias {
				return theme.name, true
			}
		}
	}
	return "", false
}

// ThemePalette returns the palette of name, or of DefaultTheme when name is
// unknown.
func ThemePalette(name ThemeName) Palette {
	for _, theme := range themes {
		if theme.name == name {
			return theme.palette
		}
	}
	return themes[0].palette
}
