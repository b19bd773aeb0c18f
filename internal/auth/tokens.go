package auth

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

type tokenEntry struct {
	principal Principal
	expiresAt time.Time
}

// TokenStore holds issued bearer tokens in memory. Expired tokens are
// dropped lazily on resolve.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]tokenEntry
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenStore(ttl time.Duration) *TokenStore {
	return &TokenStore{
		tokens: make(map[string]tokenEntry),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue mints a random token bound to the principal.
func (ts *TokenStore) Issue(p Principal) string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// rand.Read only fails when the OS entropy source is broken
		panic(err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	ts.mu.Lock()
	ts.tokens[token] = tokenEntry{
		principal: p,
		expiresAt: ts.now().Add(ts.ttl),
	}
	ts.mu.Unlock()

	return token
}

// Resolve returns the principal for a live token.
func (ts *TokenStore) Resolve(token string) (*Principal, bool) {
	ts.mu.RLock()
	entry, ok := ts.tokens[token]
	ts.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if ts.now().After(entry.expiresAt) {
		ts.mu.Lock()
		delete(ts.tokens, token)
		ts.mu.Unlock()
		return nil, false
	}

	p := entry.principal
	return &p, true
}

// Revoke invalidates a token, if it exists.
func (ts *TokenStore) Revoke(token string) {
	ts.mu.Lock()
	delete(ts.tokens, token)
	ts.mu.Unlock()
}
