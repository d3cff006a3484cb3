package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store used for tests and single-node
// development runs. It keeps flat leaf paths and fans each change out to
// overlapping subscriptions.
type MemoryStore struct {
	mu     sync.RWMutex
	leaves map[string]json.RawMessage
	subs   map[int]*memorySub
	nextID int
}

type memorySub struct {
	path string
	ch   chan json.RawMessage
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		leaves: make(map[string]json.RawMessage),
		subs:   make(map[int]*memorySub),
	}
}

// Read returns the subtree value at path, or nil when absent.
func (s *MemoryStore) Read(_ context.Context, path string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return assemble(path, s.leaves), nil
}

// Write replaces the value at path. Writing null is a delete.
func (s *MemoryStore) Write(ctx context.Context, path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if isNull(raw) {
		return s.Delete(ctx, path)
	}

	s.mu.Lock()
	// A leaf write shadows any children previously written below it.
	for p := range s.leaves {
		if strings.HasPrefix(p, path+"/") {
			delete(s.leaves, p)
		}
	}
	s.leaves[path] = raw
	s.notifyLocked(path)
	s.mu.Unlock()
	return nil
}

// Delete removes path and everything under it.
func (s *MemoryStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	delete(s.leaves, path)
	for p := range s.leaves {
		if strings.HasPrefix(p, path+"/") {
			delete(s.leaves, p)
		}
	}
	s.notifyLocked(path)
	s.mu.Unlock()
	return nil
}

// Subscribe streams subtree snapshots for path, starting with the current
// state.
func (s *MemoryStore) Subscribe(_ context.Context, path string) (<-chan json.RawMessage, func(), error) {
	sub := &memorySub{path: path, ch: make(chan json.RawMessage, 16)}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = sub
	sub.ch <- assemble(path, s.leaves)
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub.ch)
		}
		s.mu.Unlock()
	}
	return sub.ch, cancel, nil
}

// notifyLocked pushes fresh snapshots to subscriptions overlapping the
// changed path. Caller must hold s.mu.
func (s *MemoryStore) notifyLocked(changed string) {
	for _, sub := range s.subs {
		if !related(sub.path, changed) {
			continue
		}
		snap := assemble(sub.path, s.leaves)
		select {
		case sub.ch <- snap:
		default:
			// Drop the oldest queued snapshot so the latest wins.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- snap:
			default:
				slog.Warn("memory store: subscriber not keeping up", "path", sub.path)
			}
		}
	}
}
