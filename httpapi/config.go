package httpapi

import "pkt.systems/termfolio/schema"

// Config defines HTTP API and UI settings.
type Config struct {
	Addr            string
	SessionCookie   string
	SessionTTLHours int
	BaseURL         string
	BasePath        string
	// InitialBlocks caps the blocks sent with the first snapshot of a stream.
	InitialBlocks  int
	Theme          schema.ThemeName
	Variant        schema.VariantName
	TrustedProxies []string
	// RecordVisits stores hashed page views when a visit recorder is set.
	RecordVisits bool
}
