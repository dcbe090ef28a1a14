package config

import "sync"

// Store holds the active configuration snapshot. Writers replace the
// snapshot as a whole; readers get their own copy.
type Store struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewStore creates a store holding cfg.
func NewStore(cfg *Config) *Store {
	return &Store{cfg: cfg}
}

// Current returns a copy of the active snapshot.
func (s *Store) Current() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cfg.Clone()
}

// Swap installs cfg and returns the snapshot it replaced.
func (s *Store) Swap(cfg *Config) *Config {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.cfg
	s.cfg = cfg
	return prev
}

// Reload loads path and swaps it in. On failure the active snapshot is left
// untouched and the load error is returned.
func (s *Store) Reload(path string) (next, prev *Config, err error) {
	next, err = Load(path)
	if err != nil {
		return nil, nil, err
	}
	prev = s.Swap(next)
	return next.Clone(), prev, nil
}
