// Package config loads and memoizes the provider configuration document.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound reports a provider name absent from the document.
	ErrNotFound = errors.New("provider not found")
	// ErrKeyMissing reports an unset key on an otherwise valid provider.
	ErrKeyMissing = errors.New("config key missing")
)

// File represents the top-level providers.yaml structure.
type File struct {
	Providers map[string]*Provider `yaml:"providers"`
}

// Provider is a single provider record. Relative paths are resolved against
// the directory containing the config file at first read; the resolved
// absolute paths are what callers observe.
type Provider struct {
	Name             string   `yaml:"name"`
	Description      string   `yaml:"description"`
	TokenPath        string   `yaml:"token_path"`
	CallbackURL      string   `yaml:"callback_url"`
	Port             int      `yaml:"port"`
	Scopes           []string `yaml:"scopes"`
	SearchConfigPath string   `yaml:"search_config_path"`
	ClientID         string   `yaml:"client_id"`
	ClientSecret     string   `yaml:"client_secret"`
	ClientSecretEnv  string   `yaml:"client_secret_env"`
}

// Secret returns the OAuth client secret, preferring the environment
// variable named by client_secret_env over the inline value.
func (p *Provider) Secret() string {
	if p.ClientSecretEnv != "" {
		if v := os.Getenv(p.ClientSecretEnv); v != "" {
			return v
		}
	}
	return p.ClientSecret
}

// Store memoizes the parsed document and per-provider records.
type Store struct {
	path string

	mu        sync.Mutex
	file      *File
	raw       map[string]map[string]any
	providers map[string]*Provider
}

// NewStore creates a store reading from the given config file path. The file
// is not touched until the first access.
func NewStore(path string) *Store {
	return &Store{
		path:      path,
		providers: make(map[string]*Provider),
	}
}

// Load forces a parse of the document. Startup calls this eagerly so a
// malformed document fails fast instead of on the first tool call.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.loadLocked()
	return err
}

func (s *Store) loadLocked() (*File, error) {
	if s.file != nil {
		return s.file, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	var rawDoc struct {
		Providers map[string]map[string]any `yaml:"providers"`
	}
	if err := yaml.Unmarshal(data, &rawDoc); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	s.file = &f
	s.raw = rawDoc.Providers
	return s.file, nil
}

// ProviderNames returns the configured provider names.
func (s *Store) ProviderNames() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(f.Providers))
	for name := range f.Providers {
		names = append(names, name)
	}
	return names, nil
}

// Provider returns the memoized record for a provider name.
func (s *Store) Provider(name string) (*Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.providers[name]; ok {
		return p, nil
	}

	f, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	p, ok := f.Providers[name]
	if !ok || p == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	if p.Name == "" {
		p.Name = name
	}
	base := filepath.Dir(s.path)
	p.TokenPath = resolvePath(base, p.TokenPath)
	p.SearchConfigPath = resolvePath(base, p.SearchConfigPath)

	s.providers[name] = p
	return p, nil
}

// Value returns an arbitrary key from a provider record. It fails with
// ErrKeyMissing when the key is unset or empty.
func (s *Store) Value(name, key string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.loadLocked(); err != nil {
		return nil, err
	}
	rec, ok := s.raw[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	v, ok := rec[key]
	if !ok || v == nil || v == "" {
		return nil, fmt.Errorf("%w: %s.%s", ErrKeyMissing, name, key)
	}
	return v, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	abs, err := filepath.Abs(filepath.Join(base, p))
	if err != nil {
		return filepath.Join(base, p)
	}
	return abs
}
