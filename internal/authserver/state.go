package authserver

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// stateEntry holds the CSRF state for an in-flight authorization.
type stateEntry struct {
	CallbackURL string
	CreatedAt   time.Time
}

// stateStore is an in-memory CSRF state store. Entries are single-use and
// expire after the TTL; expired entries are swept on each create.
type stateStore struct {
	mu      sync.Mutex
	entries map[string]stateEntry
	ttl     time.Duration
}

func newStateStore() *stateStore {
	return &stateStore{
		entries: make(map[string]stateEntry),
		ttl:     10 * time.Minute,
	}
}

// create generates a state token for a pending flow.
func (s *stateStore) create(callbackURL string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanup()

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto/rand: %w", err)
	}
	token := hex.EncodeToString(b)
	s.entries[token] = stateEntry{CallbackURL: callbackURL, CreatedAt: time.Now()}
	return token, nil
}

// consume validates a state token and deletes it. A token validates at most
// once.
func (s *stateStore) consume(state string) (stateEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[state]
	if !ok {
		return stateEntry{}, false
	}
	delete(s.entries, state)

	if time.Since(entry.CreatedAt) > s.ttl {
		return stateEntry{}, false
	}
	return entry, true
}

// cleanup removes expired entries. Must be called with mu held.
func (s *stateStore) cleanup() {
	now := time.Now()
	for k, v := range s.entries {
		if now.Sub(v.CreatedAt) > s.ttl {
			delete(s.entries, k)
		}
	}
}
