package sshserver

import "pkt.systems/termfolio/schema"

// Config defines SSH server settings.
type Config struct {
	Addr        string
	HostKeyPath string
	// WebURL is shown as a QR code in the GUI view when set.
	WebURL  string
	Theme   schema.ThemeName
	Variant schema.VariantName
}
