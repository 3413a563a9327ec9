// Package profile defines the profile store contract and an in-memory implementation.
package profile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/metalagman/gauntlet/internal/model"
)

// ErrNotFound is returned by Get for unknown agents.
var ErrNotFound = errors.New("profile not found")

// Mutator edits a profile inside an atomic read-modify-write. A missing profile is
// passed as a fresh level 1 profile. Returning an error discards the change.
type Mutator func(p *model.AgentProfile) error

// Store persists agent profiles. Upsert calls for the same agent are serialized.
type Store interface {
	Get(ctx context.Context, agentID string) (model.AgentProfile, error)
	Upsert(ctx context.Context, agentID string, fn Mutator) (model.AgentProfile, error)
	List(ctx context.Context) ([]model.AgentProfile, error)
}

// MemoryStore keeps profiles in process memory.
type MemoryStore struct {
	locks KeyedMutex

	mu       sync.RWMutex
	profiles map[string]model.AgentProfile
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]model.AgentProfile)}
}

// Get returns a copy of the stored profile.
func (s *MemoryStore) Get(_ context.Context, agentID string) (model.AgentProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[agentID]
	if !ok {
		return model.AgentProfile{}, fmt.Errorf("%w: %s", ErrNotFound, agentID)
	}
	return p.Clone(), nil
}

// Upsert applies fn to a copy of the profile and stores the result if fn succeeds.
func (s *MemoryStore) Upsert(ctx context.Context, agentID string, fn Mutator) (model.AgentProfile, error) {
	unlock := s.locks.Lock(agentID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return model.AgentProfile{}, err
	}

	s.mu.RLock()
	current, ok := s.profiles[agentID]
	s.mu.RUnlock()
	if ok {
		current = current.Clone()
	} else {
		current = model.NewAgentProfile(agentID)
	}

	if err := fn(&current); err != nil {
		return model.AgentProfile{}, err
	}
	current.ID = agentID

	s.mu.Lock()
	s.profiles[agentID] = current.Clone()
	s.mu.Unlock()
	return current, nil
}

// List returns all profiles ordered by id.
func (s *MemoryStore) List(_ context.Context) ([]model.AgentProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.AgentProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// KeyedMutex serializes work per key. The zero value is ready to use.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// Lock blocks until key is free and returns the matching unlock function.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedEntry)
	}
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
