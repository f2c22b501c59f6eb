package core

import (
	"crypto/rand"
	"strings"

	"pkt.systems/termfolio/schema"
)

// newSessionID returns a random id tagged with the transport that opened the
// session, such as "ssh-4zq7...". rand.Text is base32, lowered here so the
// id passes schema.ValidateSessionID.
func newSessionID(transport schema.Transport) schema.SessionID {
	tag := string(transport)
	if tag == "" {
		tag = "session"
	}
	return schema.SessionID(tag + "-" + strings.ToLower(rand.Text()))
}
