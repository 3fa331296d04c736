package credstore

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is a process-local Store for tests and throwaway sessions.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
	opts   *options
}

// NewMemoryStore returns an empty store.
func NewMemoryStore(opts ...Option) (*MemoryStore, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{values: make(map[string]string), opts: o}, nil
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, err := s.opts.openToken(s.values[s.opts.key(KeyToken)])
	if err != nil {
		return Record{}, err
	}
	rec := Record{Token: token, Role: s.values[s.opts.key(KeyRole)]}
	if u := s.values[s.opts.key(KeyUser)]; u != "" {
		rec.User = json.RawMessage(u)
	}
	return rec, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	sealed, err := s.opts.sealToken(rec.Token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[s.opts.key(KeyToken)] = sealed
	s.values[s.opts.key(KeyRole)] = rec.Role
	s.values[s.opts.key(KeyUser)] = string(rec.User)
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range Keys {
		delete(s.values, s.opts.key(k))
	}
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// Raw returns a copy of the stored key/value pairs, as written.
func (s *MemoryStore) Raw() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
