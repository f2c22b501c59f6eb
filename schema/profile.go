package schema

import "strings"

// DefaultVariant is the variant used when none is requested.
const DefaultVariant VariantName = "default"

// Profile is the portfolio content the interpreter and the GUI render.
type Profile struct {
	Handle      string       `mapstructure:"handle" yaml:"handle" json:"handle"`
	Host        string       `mapstructure:"host" yaml:"host" json:"host"`
	Command     string       `mapstructure:"command" yaml:"command" json:"command"`
	ShortCmd    string       `mapstructure:"short_command" yaml:"short_command" json:"short_command"`
	Banner      string       `mapstructure:"banner" yaml:"banner,omitempty" json:"banner,omitempty"`
	Title       string       `mapstructure:"title" yaml:"title" json:"title"`
	Summary     string       `mapstructure:"summary" yaml:"summary" json:"summary"`
	Bio         []string     `mapstructure:"bio" yaml:"bio" json:"bio"`
	Stats       []Stat       `mapstructure:"stats" yaml:"stats" json:"stats"`
	SkillGroups []SkillGroup `mapstructure:"skill_groups" yaml:"skill_groups" json:"skill_groups"`
	Projects    []Project    `mapstructure:"projects" yaml:"projects" json:"projects"`
	Contact     Contact      `mapstructure:"contact" yaml:"contact" json:"contact"`
	Directory   []string     `mapstructure:"directory" yaml:"directory" json:"directory"`
	TypingTexts []string     `mapstructure:"typing_texts" yaml:"typing_texts" json:"typing_texts"`
	EmailJS     EmailJS      `mapstructure:"emailjs" yaml:"emailjs" json:"emailjs"`
}

// Stat is one headline number in the about section.
type Stat struct {
	Value string `mapstructure:"value" yaml:"value" json:"value"`
	Label string `mapstructure:"label" yaml:"label" json:"label"`
}

// SkillGroup is a titled set of skill bars.
type SkillGroup struct {
	Name   string  `mapstructure:"name" yaml:"name" json:"name"`
	Skills []Skill `mapstructure:"skills" yaml:"skills" json:"skills"`
}

// Skill is one bar of the skills chart.
type Skill struct {
	Name    string `mapstructure:"name" yaml:"name" json:"name"`
	Percent int    `mapstructure:"percent" yaml:"percent" json:"percent"`
}

// Project is one entry of the project listing.
type Project struct {
	Name         string   `mapstructure:"name" yaml:"name" json:"name"`
	Tagline      string   `mapstructure:"tagline" yaml:"tagline" json:"tagline"`
	Highlights   []string `mapstructure:"highlights" yaml:"highlights" json:"highlights"`
	Technologies []string `mapstructure:"technologies" yaml:"technologies" json:"technologies"`
	Links        []Link   `mapstructure:"links" yaml:"links" json:"links"`
}

// Link is a labelled URL.
type Link struct {
	Label string `mapstructure:"label" yaml:"label" json:"label"`
	URL   string `mapstructure:"url" yaml:"url" json:"url"`
}

// Contact holds the contact section.
type Contact struct {
	Email        string `mapstructure:"email" yaml:"email" json:"email"`
	Phone        string `mapstructure:"phone" yaml:"phone" json:"phone"`
	Address      string `mapstructure:"address" yaml:"address" json:"address"`
	Availability string `mapstructure:"availability" yaml:"availability" json:"availability"`
	Social       []Link `mapstructure:"social" yaml:"social" json:"social"`
	Closing      string `mapstructure:"closing" yaml:"closing" json:"closing"`
}

// EmailJS carries the public identifiers a page variant uses for its contact form.
type EmailJS struct {
	PublicKey            string `mapstructure:"public_key" yaml:"public_key" json:"public_key"`
	ServiceID            string `mapstructure:"service_id" yaml:"service_id" json:"service_id"`
	NotificationTemplate string `mapstructure:"notification_template" yaml:"notification_template" json:"notification_template"`
	AutoReplyTemplate    string `mapstructure:"auto_reply_template" yaml:"auto_reply_template" json:"auto_reply_template"`
}

// Variant overrides the parts of a profile that differ between page variants.
type Variant struct {
	EmailJS *EmailJS       `mapstructure:"emailjs" yaml:"emailjs,omitempty"`
	Skills  map[string]int `mapstructure:"skills" yaml:"skills,omitempty"`
}

// Prompt returns the shell prompt, e.g. "b1swa@portfolio:~$".
func (p Profile) Prompt() string {
	return p.Handle + "@" + p.Host + ":~$"
}

// WithVariant returns a copy of p with the variant overrides applied.
// Skill overrides are keyed by skill name, case-insensitively.
func (p Profile) WithVariant(v Variant) Profile {
	out := p.Clone()
	if v.EmailJS != nil {
		out.EmailJS = *v.EmailJS
	}
	if len(v.Skills) == 0 {
		return out
	}
	overrides := make(map[string]int, len(v.Skills))
	for name, percent := range v.Skills {
		overrides[strings.ToLower(strings.TrimSpace(name))] = percent
	}
	for gi := range out.SkillGroups {
		for si := range out.SkillGroups[gi].Skills {
			skill := &out.SkillGroups[gi].Skills[si]
			if percent, ok := overrides[strings.ToLower(skill.Name)]; ok {
				skill.Percent = clampPercent(percent)
			}
		}
	}
	return out
}

// Clone returns a deep copy of the profile.
func (p Profile) Clone() Profile {
	out := p
	out.Bio = append([]string(nil), p.Bio...)
	out.Stats = append([]Stat(nil), p.Stats...)
	out.Directory = append([]string(nil), p.Directory...)
	out.TypingTexts = append([]string(nil), p.TypingTexts...)
	out.SkillGroups = make([]SkillGroup, len(p.SkillGroups))
	for i, group := range p.SkillGroups {
		out.SkillGroups[i] = SkillGroup{Name: group.Name, Skills: append([]Skill(nil), group.Skills...)}
	}
	out.Projects = make([]Project, len(p.Projects))
	for i, project := range p.Projects {
		project.Highlights = append([]string(nil), project.Highlights...)
		project.Technologies = append([]string(nil), project.Technologies...)
		project.Links = append([]Link(nil), project.Links...)
		out.Projects[i] = project
	}
	out.Contact.Social = append([]Link(nil), p.Contact.Social...)
	return out
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// DefaultProfile returns the built-in portfolio content.
func DefaultProfile() Profile {
	return Profile{
		Handle:   "b1swa",
		Host:     "portfolio",
		Command:  "portfolio",
		ShortCmd: "pf",
		Title:    "Full-Stack Developer | Web Security & Penetration Tester",
		Summary:  "I'm building secure applications using my full stack development, web security, and penetration testing skills.",
		Bio: []string{
			"I am a Full Stack Developer and Ethical Hacker with specialized expertise in Web Security & Penetration Testing. My unique combination of development skills and security knowledge allows me to build robust web applications with security integrated at every layer of the technology stack.",
			"With experience in both creating software and ethically breaking it, I implement security best practices during development while proactively identifying vulnerabilities through comprehensive penetration testing. This dual perspective enables me to deliver solutions that are not just functional, but fundamentally secure by design.",
			"My technical approach combines modern web development frameworks with offensive security methodologies to create applications that withstand real-world threats while maintaining optimal performance and user experience.",
		},
		Stats: []Stat{
			{Value: "03+", Label: "Projects Completed"},
			{Value: "01+", Label: "Satisfied Clients"},
			{Value: "02+", Label: "Professional Certifications"},
		},
		SkillGroups: []SkillGroup{
			{Name: "Security", Skills: []Skill{
				{Name: "VAPT", Percent: 63},
				{Name: "Web Security", Percent: 54},
				{Name: "Network Sec", Percent: 36},
				{Name: "Cryptography", Percent: 2},
			}},
			{Name: "Development", Skills: []Skill{
				{Name: "Python", Percent: 69},
				{Name: "JS/Node.js", Percent: 63},
				{Name: "React", Percent: 59},
				{Name: "Databases", Percent: 39},
			}},
			{Name: "Tools & Technologies", Skills: []Skill{
				{Name: "Kali Linux", Percent: 93},
				{Name: "Burp Suite", Percent: 86},
				{Name: "Metasploit", Percent: 54},
				{Name: "Wireshark", Percent: 53},
			}},
		},
		Projects: []Project{
			{
				Name:    "GitMan",
				Tagline: "GitHub Dorking URL Generator",
				Highlights: []string{
					"Identify potentially sensitive or exposed data within public GitHub repositories",
					"Designed for security researchers, penetration testers, and bug bounty hunters",
					"CLI-based tool with flexible GitHub dorking techniques",
					"Supports Python-based automation for security research",
				},
				Technologies: []string{"Python", "GitHub Dorking", "CLI", "Security Research"},
				Links:        []Link{{Label: "GitHub Link", URL: "https://github.com/sun272000"}},
			},
			{
				Name:    "WA-Spam",
				Tagline: "WhatsApp, Snapchat, etc Spammer",
				Highlights: []string{
					"Send user-typed or auto-generated messages on WhatsApp, Snapchat, and more",
					"Random message generation and counting features",
					"Flexible spamming options for educational purposes",
					"Terminal-based Python tool for automation",
				},
				Technologies: []string{"Python", "CLI", "Automation", "Terminal Tool"},
				Links:        []Link{{Label: "GitHub Link", URL: "https://github.com/sun272000"}},
			},
			{
				Name:    "Tabsye",
				Tagline: "QR-Based Ordering System",
				Highlights: []string{
					"Modern restaurant ordering platform using QR codes",
					"Live menu updates, order tracking, and inventory management",
					"Seamless table orders and optimized restaurant service",
					"Web-based interface with Next.js and Tailwind CSS",
				},
				Technologies: []string{"Next.js", "Tailwind CSS", "PostgreSQL", "Web Security"},
				Links:        []Link{{Label: "Live Demo", URL: "https://tabsye.com"}},
			},
		},
		Contact: Contact{
			Email:        "sandipbiswa2000@gmail.com",
			Phone:        "+975 17*******",
			Address:      "192.168.119.12",
			Availability: "Currently available for freelance projects",
			Social: []Link{
				{Label: "GitHub", URL: "github.com/sun272000"},
				{Label: "LinkedIn", URL: "linkedin.com/in/sandip-biswa-636b85142/"},
			},
			Closing: "Let's work together to secure your digital assets and\nbuild innovative technology solutions.",
		},
		Directory: []string{"Desktop", "Documents", "Downloads", "Music", "Pictures", "Public", "Templates", "Videos"},
		TypingTexts: []string{
			"Passionate Cyber Defender",
			"Specializing in Digital Forensics & Cybersecurity",
			"Devoted to Building Secure Digital Futures",
		},
		EmailJS: EmailJS{
			PublicKey:            "vKxbPXfw618L4ocmy",
			ServiceID:            "service_va4luii",
			NotificationTemplate: "template_6c967hv",
			AutoReplyTemplate:    "template_08nbffa",
		},
	}
}
