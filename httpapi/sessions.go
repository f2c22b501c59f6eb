package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"pkt.systems/termfolio/internal/logx"
	"pkt.systems/termfolio/schema"
)

// session binds a browser cookie to an interpreter session.
type session struct {
	id        string
	sessionID schema.SessionID
	variant   schema.VariantName
	expiresAt time.Time
}

type sessionStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]session
	now   func() time.Time
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{
		ttl:   ttl,
		items: make(map[string]session),
		now:   time.Now,
	}
}

func (s *sessionStore) create(sessionID schema.SessionID, variant schema.VariantName) (string, session) {
	token := randomToken(32)
	entry := session{
		id:        randomToken(12),
		sessionID: sessionID,
		variant:   variant,
		expiresAt: s.now().Add(s.ttl),
	}
	s.mu.Lock()
	s.items[token] = entry
	s.mu.Unlock()
	logx.WithSession(context.Background(), sessionID).With("http_session", entry.id).Debug("session created", "expires", entry.expiresAt.Format(time.RFC3339))
	return token, entry
}

// get returns the session for token and extends its lifetime.
func (s *sessionStore) get(token string) (session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[token]
	if !ok {
		return session{}, false
	}
	now := s.now()
	if now.After(entry.expiresAt) {
		delete(s.items, token)
		logx.WithSession(context.Background(), entry.sessionID).With("http_session", entry.id).Debug("session expired")
		return session{}, false
	}
	entry.expiresAt = now.Add(s.ttl)
	s.items[token] = entry
	return entry, true
}

func (s *sessionStore) update(token string, entry session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[token]; ok {
		s.items[token] = entry
	}
}

func (s *sessionStore) delete(token string) {
	s.mu.Lock()
	entry, ok := s.items[token]
	if ok {
		delete(s.items, token)
	}
	s.mu.Unlock()
	if ok {
		logx.WithSession(context.Background(), entry.sessionID).With("http_session", entry.id).Debug("session deleted")
	}
}

// sweep removes expired sessions and returns their interpreter session ids.
func (s *sessionStore) sweep() []schema.SessionID {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []schema.SessionID
	for token, entry := range s.items {
		if now.After(entry.expiresAt) {
			delete(s.items, token)
			expired = append(expired, entry.sessionID)
		}
	}
	return expired
}

func (s *sessionStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func randomToken(size int) string {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
