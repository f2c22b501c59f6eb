package content

import (
	"fmt"
	"strings"

	"pkt.systems/termfolio/schema"
)

// GUIPage is the section model of the conventional graphical page.
type GUIPage struct {
	Handle      string              `json:"handle"`
	Title       string              `json:"title"`
	Summary     string              `json:"summary"`
	TypingTexts []string            `json:"typing_texts"`
	Bio         []string            `json:"bio"`
	Stats       []schema.Stat       `json:"stats"`
	SkillGroups []schema.SkillGroup `json:"skill_groups"`
	Projects    []schema.Project    `json:"projects"`
	Contact     schema.Contact      `json:"contact"`
	EmailJS     schema.EmailJS      `json:"emailjs"`
}

// GUI returns the page model for the graphical view.
func (c *Catalog) GUI() GUIPage {
	p := c.profile.Clone()
	return GUIPage{
		Handle:      p.Handle,
		Title:       p.Title,
		Summary:     p.Summary,
		TypingTexts: p.TypingTexts,
		Bio:         p.Bio,
		Stats:       p.Stats,
		SkillGroups: p.SkillGroups,
		Projects:    p.Projects,
		Contact:     p.Contact,
		EmailJS:     p.EmailJS,
	}
}

// GUIText renders the graphical page as plain text sections for character
// terminals. Each returned string is one paragraph; callers wrap them.
func (c *Catalog) GUIText() []string {
	page := c.GUI()
	out := []string{
		strings.ToUpper(page.Handle),
		page.Title,
	}
	if len(page.TypingTexts) > 0 {
		out = append(out, "> "+strings.Join(page.TypingTexts, " | "))
	}
	out = append(out, "", "== About ==")
	if page.Summary != "" {
		out = append(out, page.Summary)
	}
	out = append(out, page.Bio...)
	if len(page.Stats) > 0 {
		stats := make([]string, 0, len(page.Stats))
		for _, stat := range page.Stats {
			stats = append(stats, stat.Value+" "+stat.Label)
		}
		out = append(out, strings.Join(stats, "  ·  "))
	}
	out = append(out, "", "== Skills ==")
	for _, group := range page.SkillGroups {
		out = append(out, group.Name)
		for _, skill := range group.Skills {
			out = append(out, "  "+SkillBar(skill))
		}
	}
	out = append(out, "", "== Projects ==")
	for _, project := range page.Projects {
		title := project.Name
		if project.Tagline != "" {
			title += " - " + project.Tagline
		}
		out = append(out, title)
		for _, line := range project.Highlights {
			out = append(out, "  - "+line)
		}
		if len(project.Technologies) > 0 {
			out = append(out, "  ["+strings.Join(project.Technologies, "] [")+"]")
		}
		for _, link := range project.Links {
			out = append(out, fmt.Sprintf("  %s: %s", link.Label, link.URL))
		}
	}
	out = append(out, "", "== Contact ==")
	contact := page.Contact
	for _, field := range []struct{ label, value string }{
		{"Email", contact.Email},
		{"Phone", contact.Phone},
		{"Address", contact.Address},
		{"Availability", contact.Availability},
	} {
		if field.value != "" {
			out = append(out, field.label+": "+field.value)
		}
	}
	for _, link := range contact.Social {
		out = append(out, link.Label+": "+link.URL)
	}
	return out
}
