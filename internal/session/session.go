package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
)

// Session is an opaque key/value bag tied to a browser-supplied cookie
// token. It is safe for concurrent use within a request's lifetime.
type Session struct {
	token string

	mu        sync.Mutex
	values    map[string]string
	loaded    bool
	dirty     bool
	destroyed bool
}

func newSession(token string, values map[string]string, loaded bool) *Session {
	if values == nil {
		values = make(map[string]string)
	}
	return &Session{token: token, values: values, loaded: loaded}
}

// Token returns the opaque cookie token identifying this session.
func (s *Session) Token() string {
	return s.token
}

// Get returns the value stored under key, or the empty string.
func (s *Session) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

// Set stores a value and marks the session for persistence.
func (s *Session) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.dirty = true
}

// Delete removes a key and marks the session for persistence.
func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.dirty = true
	}
}

// snapshot copies the values for persistence.
func (s *Session) snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

func (s *Session) needsSave() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.destroyed && (s.dirty || s.loaded)
}

func (s *Session) markDestroyed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = true
	s.values = make(map[string]string)
}

// newToken mints a cryptographically random session token.
func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
