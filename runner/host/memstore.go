package host

import (
	"sync"

	"github.com/wippyai/firmlet/board"
)

// MemStore is a volatile board.Store.
type MemStore struct {
	mu      sync.Mutex
	regions map[string]*memRegion
}

func NewMemStore() *MemStore {
	return &MemStore{regions: make(map[string]*memRegion)}
}

func (s *MemStore) Open(name string) (board.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.regions[name]
	if !ok {
		r = &memRegion{values: make(map[uint16][]byte)}
		s.regions[name] = r
	}
	return r, nil
}

type memRegion struct {
	mu     sync.Mutex
	values map[uint16][]byte
}

func (r *memRegion) Insert(key uint16, value []byte) error {
	r.mu.Lock()
	r.values[key] = append([]byte(nil), value...)
	r.mu.Unlock()
	return nil
}

func (r *memRegion) Find(key uint16) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (r *memRegion) Remove(key uint16) error {
	r.mu.Lock()
	delete(r.values, key)
	r.mu.Unlock()
	return nil
}
