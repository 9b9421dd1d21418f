// Package session holds the client's session and token state. The store is
// safe for many concurrent readers against the rare writer; readers always
// observe a whole session, never a torn one.
package session

import (
	"sync"

	"github.com/gofrs/uuid"

	"github.com/enclavekit/enclavekit/pkg/envelope"
)

// SessionError is a typed error for session store failures.
type SessionError string

func (e SessionError) Error() string { return string(e) }

// ErrNoTokens is returned when updating an access token with no token pair set.
const ErrNoTokens = SessionError("no tokens to update")

// State is a snapshot of an established session.
type State struct {
	ID  uuid.UUID
	Key [envelope.KeySize]byte
}

// TokenPair holds bearer tokens. Tokens have a lifecycle independent of the
// session key: a session can exist with no tokens and tokens survive a
// re-established session.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Store is a concurrency-safe holder for the current session and tokens.
// The zero value is ready to use.
type Store struct {
	mu      sync.RWMutex
	session *State
	tokens  *TokenPair
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// SetSession atomically replaces the current session. A handshake calls this
// exactly once, after every other step has succeeded.
func (s *Store) SetSession(id uuid.UUID, key [envelope.KeySize]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = &State{ID: id, Key: key}
}

// Session returns a snapshot of the current session, or ok=false if no
// handshake has completed.
func (s *Store) Session() (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return State{}, false
	}
	return *s.session, true
}

// ClearSession drops the current session.
func (s *Store) ClearSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
}

// SetTokens replaces the stored token pair. refreshToken may be empty.
func (s *Store) SetTokens(accessToken, refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}
}

// Tokens returns a snapshot of the stored token pair.
func (s *Store) Tokens() (TokenPair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tokens == nil {
		return TokenPair{}, false
	}
	return *s.tokens, true
}

// AccessToken returns the current access token, or "" when none is held.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tokens == nil {
		return ""
	}
	return s.tokens.AccessToken
}

// RefreshToken returns the current refresh token, or "" when none is held.
func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tokens == nil {
		return ""
	}
	return s.tokens.RefreshToken
}

// UpdateAccessToken replaces the access token while keeping the refresh
// token. It fails when no token pair is held.
func (s *Store) UpdateAccessToken(accessToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		return ErrNoTokens
	}
	s.tokens = &TokenPair{AccessToken: accessToken, RefreshToken: s.tokens.RefreshToken}
	return nil
}

// ClearTokens drops the stored token pair.
func (s *Store) ClearTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = nil
}

// ClearAll drops the session and tokens together, e.g. on logout.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	s.tokens = nil
}
