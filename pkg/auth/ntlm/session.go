package ntlm

import (
	"sync"
	"time"
)

// DefaultSessionTTL is how long an authenticated NTLM session stays valid
// without traffic. Every reuse refreshes the window.
const DefaultSessionTTL = 30 * time.Minute

// sweepInterval bounds how often the store scans for expired entries.
const sweepInterval = 5 * time.Minute

// Session is one authenticated client identity, keyed by the client's
// address and user agent.
type Session struct {
	Username  string
	Domain    string
	ExpiresAt time.Time
}

// pending is a handshake that has received a challenge but not yet the
// authenticate message. Pending handshakes expire quickly: a client that
// got a challenge answers within one round-trip or starts over.
type pending struct {
	challenge []byte
	domain    string
	expiresAt time.Time
}

const pendingTTL = 2 * time.Minute

// SessionStore tracks authenticated sessions and in-flight handshakes.
// All methods are safe for concurrent use. Expired entries are dropped
// lazily on access and swept periodically so abandoned clients do not
// accumulate.
type SessionStore struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	handshake map[string]*pending
	ttl       time.Duration
	lastSweep time.Time

	now func() time.Time
}

// NewSessionStore creates a store with the given session TTL
// (DefaultSessionTTL when zero).
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		sessions:  make(map[string]*Session),
		handshake: make(map[string]*pending),
		ttl:       ttl,
		now:       time.Now,
	}
}

// Get returns the live session for a client and refreshes its expiry.
func (s *SessionStore) Get(clientKey string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	sess, ok := s.sessions[clientKey]
	if !ok {
		return nil, false
	}
	if !sess.ExpiresAt.After(s.now()) {
		delete(s.sessions, clientKey)
		return nil, false
	}
	sess.ExpiresAt = s.now().Add(s.ttl)
	return sess, true
}

// Put records an authenticated session, replacing any previous one for the
// same client.
func (s *SessionStore) Put(clientKey, username, domain string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	sess := &Session{
		Username:  username,
		Domain:    domain,
		ExpiresAt: s.now().Add(s.ttl),
	}
	s.sessions[clientKey] = sess
	delete(s.handshake, clientKey)
	return sess
}

// Delete drops a client's session and any in-flight handshake.
func (s *SessionStore) Delete(clientKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, clientKey)
	delete(s.handshake, clientKey)
}

// Len reports the number of live sessions, for metrics.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	return len(s.sessions)
}

// beginHandshake stores the challenge issued to a client. A repeated
// Type 1 from the same client replaces the previous handshake.
func (s *SessionStore) beginHandshake(clientKey string, challenge []byte, domain string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.handshake[clientKey] = &pending{
		challenge: challenge,
		domain:    domain,
		expiresAt: s.now().Add(pendingTTL),
	}
}

// takeHandshake consumes the pending handshake for a client. Each
// challenge is single-use.
func (s *SessionStore) takeHandshake(clientKey string) (*pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.handshake[clientKey]
	if !ok {
		return nil, false
	}
	delete(s.handshake, clientKey)
	if !p.expiresAt.After(s.now()) {
		return nil, false
	}
	return p, true
}

// sweepLocked drops expired sessions and handshakes. Caller holds mu.
func (s *SessionStore) sweepLocked() {
	now := s.now()
	if now.Sub(s.lastSweep) < sweepInterval {
		return
	}
	s.lastSweep = now
	for k, sess := range s.sessions {
		if !sess.ExpiresAt.After(now) {
			delete(s.sessions, k)
		}
	}
	for k, p := range s.handshake {
		if !p.expiresAt.After(now) {
			delete(s.handshake, k)
		}
	}
}
