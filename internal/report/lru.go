package report

import (
	"container/list"
	"sync"
)

// LRUStore keeps the most recently used records in memory and delegates
// to a backing Store on a miss.
type LRUStore struct {
	mu    sync.Mutex
	cap   int
	back  Store
	order *list.List // of *RunRecord, most recent at the front
	items map[string]*list.Element
}

// NewLRUStore creates an LRU cache holding up to cap records in front
// of back. Capacity is at least 1.
func NewLRUStore(cap int, back Store) *LRUStore {
	if cap < 1 {
		cap = 1
	}
	return &LRUStore{
		cap:   cap,
		back:  back,
		order: list.New(),
		items: make(map[string]*list.Element, cap),
	}
}

// Save caches rec and writes it through to the backing store.
func (s *LRUStore) Save(rec *RunRecord) error {
	s.put(rec.ID, rec)
	return s.back.Save(rec)
}

// Load serves rec from memory, falling back to the backing store and
// caching what it returns.
func (s *LRUStore) Load(runID string) (*RunRecord, error) {
	s.mu.Lock()
	if e, ok := s.items[runID]; ok {
		s.order.MoveToFront(e)
		rec := e.Value.(*RunRecord)
		s.mu.Unlock()
		return rec, nil
	}
	s.mu.Unlock()

	rec, err := s.back.Load(runID)
	if err != nil {
		return nil, err
	}
	// Cache under the full ID; runID may have been a prefix.
	s.put(rec.ID, rec)
	return rec, nil
}

// Len returns the number of cached records.
func (s *LRUStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

func (s *LRUStore) put(id string, rec *RunRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.items[id]; ok {
		e.Value = rec
		s.order.MoveToFront(e)
		return
	}
	s.items[id] = s.order.PushFront(rec)
	if s.order.Len() > s.cap {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(*RunRecord).ID)
	}
}
