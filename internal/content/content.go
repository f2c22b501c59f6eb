// Package content renders the canned portfolio blocks from a profile.
package content

import (
	"fmt"
	"math"
	"strings"

	"pkt.systems/termfolio/schema"
)

const (
	// SkillBarWidth is the column width of a skill bar before its percentage.
	SkillBarWidth = 26
	skillBarRune  = "█"
	errorHint     = "Type '%s -help' for available commands."
)

// Catalog renders blocks for one resolved profile.
type Catalog struct {
	profile schema.Profile
}

// New returns a catalog for the profile.
func New(profile schema.Profile) *Catalog {
	return &Catalog{profile: profile.Clone()}
}

// Profile returns a copy of the catalog's profile.
func (c *Catalog) Profile() schema.Profile {
	return c.profile.Clone()
}

// Prompt returns the shell prompt.
func (c *Catalog) Prompt() string {
	return c.profile.Prompt()
}

// Banner returns the first block of every session.
func (c *Catalog) Banner() string {
	if text := strings.TrimSpace(c.profile.Banner); text != "" {
		return text
	}
	return fmt.Sprintf("Welcome to %s's terminal portfolio.\n"+errorHint, c.profile.Handle, c.profile.ShortCmd)
}

// CommandEcho returns the echoed prompt line for a submitted command.
func (c *Catalog) CommandEcho(command string) string {
	return c.Prompt() + " " + command
}

// NotFound returns the command not found message.
func (c *Catalog) NotFound(command string) string {
	return fmt.Sprintf("bash: %s: command not found\n"+errorHint, command, c.profile.ShortCmd)
}

// PermissionDenied returns the cd message.
func (c *Catalog) PermissionDenied(command string) string {
	return fmt.Sprintf("bash: %s: Permission denied\n"+errorHint, command, c.profile.ShortCmd)
}

// HelpEntry is one line of the help menu.
type HelpEntry struct {
	Command     string
	Description string
}

// HelpEntries returns the documented commands in display order.
func (c *Catalog) HelpEntries() []HelpEntry {
	pf := c.profile.ShortCmd
	return []HelpEntry{
		{pf + " -help", "Show this help menu"},
		{pf + " -about", "Learn about me"},
		{pf + " -skills", "View my technical skills"},
		{pf + " -projects", "See my projects"},
		{pf + " -contact", "Get my contact information"},
		{pf + " -gui", "Switch to GUI mode"},
		{"ls", "List directory contents"},
		{"cd", "Change directory"},
		{"clear", "Clear terminal"},
		{"exit", "Return to mode selection"},
	}
}

// Help returns the help menu.
func (c *Catalog) Help() string {
	entries := c.HelpEntries()
	width := 0
	for _, entry := range entries {
		if len(entry.Command) > width {
			width = len(entry.Command)
		}
	}
	var b strings.Builder
	b.WriteString("Available Commands:\n\n")
	fmt.Fprintf(&b, "You can use %s as a shorthand for the %s command\n", c.profile.ShortCmd, c.profile.Command)
	b.WriteString("Examples:\n")
	for _, entry := range entries {
		fmt.Fprintf(&b, "\n%-*s - %s", width, entry.Command, entry.Description)
	}
	return b.String()
}

// About returns the biography block.
func (c *Catalog) About() string {
	p := c.profile
	var b strings.Builder
	b.WriteString(aboutHeading)
	fmt.Fprintf(&b, "\n\n%s - %s", p.Handle, p.Title)
	if p.Summary != "" {
		b.WriteString("\n\n" + p.Summary)
	}
	for _, paragraph := range p.Bio {
		b.WriteString("\n\n" + paragraph)
	}
	if len(p.Stats) > 0 {
		b.WriteString("\n\nStats:")
		for _, stat := range p.Stats {
			fmt.Fprintf(&b, "\n- %s %s", stat.Value, stat.Label)
		}
	}
	return b.String()
}

// SkillBar renders one skill line: a bar scaled to SkillBarWidth columns,
// padded, then the zero-padded percentage and the label.
func SkillBar(skill schema.Skill) string {
	percent := skill.Percent
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(math.Round(float64(percent) * SkillBarWidth / 100))
	if percent > 0 && filled == 0 {
		filled = 1
	}
	bar := strings.Repeat(skillBarRune, filled) + strings.Repeat(" ", SkillBarWidth-filled)
	return fmt.Sprintf("%s%02d%% %s", bar, percent, skill.Name)
}

// Skills returns the skills bar chart.
func (c *Catalog) Skills() string {
	var b strings.Builder
	b.WriteString(skillsHeading)
	b.WriteString("\n\nTechnical Skills:")
	for _, group := range c.profile.SkillGroups {
		fmt.Fprintf(&b, "\n\n%s:", group.Name)
		for _, skill := range group.Skills {
			b.WriteString("\n" + SkillBar(skill))
		}
	}
	return b.String()
}

// Projects returns the project listing.
func (c *Catalog) Projects() string {
	var b strings.Builder
	b.WriteString(projectsHeading)
	b.WriteString("\n\nRecent Projects:")
	for i, project := range c.profile.Projects {
		fmt.Fprintf(&b, "\n\n%d. %s", i+1, project.Name)
		if project.Tagline != "" {
			fmt.Fprintf(&b, " - %s", project.Tagline)
		}
		for _, line := range project.Highlights {
			b.WriteString("\n- " + line)
		}
		if len(project.Technologies) > 0 {
			b.WriteString("\n➤ Technologies: " + strings.Join(project.Technologies, ", "))
		}
		for _, link := range project.Links {
			fmt.Fprintf(&b, "\n➤ %s: %s", link.Label, link.URL)
		}
	}
	return b.String()
}

// Contact returns the contact block.
func (c *Catalog) Contact() string {
	contact := c.profile.Contact
	var b strings.Builder
	b.WriteString(contactHeading)
	b.WriteString("\n\nContact Information:\n")
	writeField := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "\n%-14s%s", label+":", value)
	}
	writeField("Email", contact.Email)
	writeField("Phone", contact.Phone)
	writeField("Address", contact.Address)
	writeField("Availability", contact.Availability)
	if len(contact.Social) > 0 {
		b.WriteString("\n\nSocial:")
		for _, link := range contact.Social {
			fmt.Fprintf(&b, "\n- %-12s%s", link.Label+":", link.URL)
		}
	}
	if contact.Closing != "" {
		b.WriteString("\n\n\n" + contact.Closing)
	}
	return b.String()
}

// Listing returns the ls output.
func (c *Catalog) Listing() string {
	return strings.Join(c.profile.Directory, "  ")
}

// Switch info lines.
const (
	InfoSwitchGUI       = "[INFO] Switching to GUI mode..."
	InfoReturnSelection = "[INFO] Returning to mode selection..."
	InfoMinimized       = `[INFO] Terminal minimized. Type "exit" to return to selection screen.`
	InfoMaximized       = "[INFO] Terminal maximized."
)
