package httpapi

import (
	"fmt"
	"html/template"
	"strings"

	"pkt.systems/termfolio/schema"
)

// themeCSS renders one body.theme-<name> rule per theme, setting the custom
// properties app.css paints with.
func themeCSS() template.CSS {
	var b strings.Builder
	for _, name := range schema.AvailableThemes() {
		p := schema.ThemePalette(name)
		fmt.Fprintf(&b, "body.theme-%s{", name)
		for _, v := range []struct {
			prop  string
			color uint32
		}{
			{"bg", p.Background},
			{"fg", p.Text},
			{"accent", p.Title},
			{"accent-2", p.Banner},
			{"muted", p.Muted},
			{"error", p.Error},
			{"info", p.Info},
			{"panel", p.Bar},
		} {
			fmt.Fprintf(&b, "--%s:#%06x;", v.prop, v.color)
		}
		b.WriteString("}\n")
	}
	return template.CSS(b.String())
}
