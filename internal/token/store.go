// Package token holds the process-wide OAuth credential slot and its file
// persistence.
package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrNoRefreshToken reports a refresh attempt without a refresh token.
var ErrNoRefreshToken = errors.New("no refresh token available")

// Credential is the token bundle persisted to the token file.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry"`
	Scopes       []string  `json:"scopes,omitempty"`
}

// Valid reports whether the credential can be used right now. A zero expiry
// means the provider issued a non-expiring token.
func (c *Credential) Valid() bool {
	if c == nil || c.AccessToken == "" {
		return false
	}
	return c.Expiry.IsZero() || time.Now().Before(c.Expiry)
}

// Refresher exchanges a refresh token for a fresh credential.
type Refresher interface {
	Refresh(ctx context.Context, cred *Credential) (*Credential, error)
}

// Store serializes all credential access for the process. The file write is
// atomic with respect to concurrent readers (temp file + rename).
type Store struct {
	path      string
	refresher Refresher

	mu          sync.Mutex
	cred        *Credential
	loaded      bool
	lastRefresh time.Time
}

// NewStore creates a store persisting to path. refresher may be nil, in
// which case expired credentials are discarded instead of refreshed.
func NewStore(path string, refresher Refresher) *Store {
	return &Store{path: path, refresher: refresher}
}

// Path returns the token file path.
func (s *Store) Path() string { return s.path }

// Credential returns a currently-valid credential, refreshing transparently
// when the stored one is expired and carries a refresh token. It returns nil
// when no credential exists or the refresh fails; the stale credential is
// discarded in the failure case.
func (s *Store) Credential(ctx context.Context) *Credential {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadLocked()
	if s.cred == nil {
		return nil
	}
	if s.cred.Valid() {
		c := *s.cred
		return &c
	}

	if s.cred.RefreshToken == "" || s.refresher == nil {
		slog.Warn("credential expired with no refresh token; discarding")
		s.cred = nil
		return nil
	}

	if err := s.refreshLocked(ctx); err != nil {
		slog.Warn("credential refresh failed; discarding", "error", err)
		s.cred = nil
		return nil
	}
	c := *s.cred
	return &c
}

// Peek returns the stored credential without refreshing, for status
// introspection. The returned copy may be expired.
func (s *Store) Peek() *Credential {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadLocked()
	if s.cred == nil {
		return nil
	}
	c := *s.cred
	return &c
}

// Save atomically writes the credential to the token file, then updates the
// in-memory slot.
func (s *Store) Save(cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(cred)
}

// Refresh forces a refresh regardless of expiry. It fails with
// ErrNoRefreshToken when the stored credential cannot be refreshed.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadLocked()
	if s.cred == nil || s.cred.RefreshToken == "" {
		return ErrNoRefreshToken
	}
	if s.refresher == nil {
		return fmt.Errorf("no refresher configured")
	}
	return s.refreshLocked(ctx)
}

// LastRefresh returns the time of the last successful save or refresh.
func (s *Store) LastRefresh() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRefresh
}

func (s *Store) refreshLocked(ctx context.Context) error {
	fresh, err := s.refresher.Refresh(ctx, s.cred)
	if err != nil {
		return err
	}
	// Providers often omit the refresh token on refresh responses.
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = s.cred.RefreshToken
	}
	return s.saveLocked(fresh)
}

func (s *Store) loadLocked() {
	if s.loaded || s.cred != nil {
		return
	}
	s.loaded = true

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("read token file", "path", s.path, "error", err)
		}
		return
	}
	var c Credential
	if err := json.Unmarshal(data, &c); err != nil {
		slog.Warn("parse token file", "path", s.path, "error", err)
		return
	}
	s.cred = &c
}

func (s *Store) saveLocked(cred *Credential) error {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write token file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close token file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename token file: %w", err)
	}

	s.cred = cred
	s.loaded = true
	s.lastRefresh = time.Now()
	return nil
}
