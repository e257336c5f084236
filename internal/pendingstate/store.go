// Package pendingstate keeps per-user thinking-process text between the
// result push and a later 「詳細を見る」 request. Entries are best-effort: the
// memory monitor may shed them under pressure and the bot degrades to a
// "no pending detail" reply.
package pendingstate

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"k8s.io/klog/v2"

	"github.com/masapokki/line-night-idea-enhancer/internal/model"
)

// shedFloor is the population below which Shed is a no-op.
const shedFloor = 10

// Store holds the latest thinking process per user.
type Store interface {
	Put(userID string, tp model.ThinkingProcess)
	Get(userID string) (model.ThinkingProcess, bool)
	Delete(userID string)
	Len() int
	// Shed drops roughly half the entries when the store is over the
	// floor. Called by the memory monitor under RSS pressure.
	Shed()
}

// MapStore is an insertion-ordered store. Shed evicts the oldest half by
// insertion order, regardless of how recently an entry was read.
type MapStore struct {
	mu      sync.Mutex
	entries map[string]model.ThinkingProcess
	order   []string
}

func NewMapStore() *MapStore {
	return &MapStore{entries: make(map[string]model.ThinkingProcess)}
}

func (s *MapStore) Put(userID string, tp model.ThinkingProcess) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[userID]; !ok {
		s.order = append(s.order, userID)
	}
	s.entries[userID] = tp
}

func (s *MapStore) Get(userID string) (model.ThinkingProcess, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tp, ok := s.entries[userID]
	return tp, ok
}

func (s *MapStore) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[userID]; !ok {
		return
	}
	delete(s.entries, userID)
	for i, id := range s.order {
		if id == userID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *MapStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MapStore) Shed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) <= shedFloor {
		return
	}
	drop := len(s.order) / 2
	for _, id := range s.order[:drop] {
		delete(s.entries, id)
	}
	s.order = append([]string(nil), s.order[drop:]...)
	klog.V(6).Infof("pending state shed %d entries, %d remain", drop, len(s.entries))
}

// LRUStore bounds the store with a recency-based cache so a burst of users
// cannot grow it without limit. Shed halves the population by evicting the
// least recently used entries.
type LRUStore struct {
	mu    sync.Mutex
	cache *lru.Cache[string, model.ThinkingProcess]
}

// DefaultLRUCapacity bounds the pending store even before the memory
// monitor intervenes.
const DefaultLRUCapacity = 512

func NewLRUStore(capacity int) (*LRUStore, error) {
	if capacity <= 0 {
		capacity = DefaultLRUCapacity
	}
	cache, err := lru.New[string, model.ThinkingProcess](capacity)
	if err != nil {
		return nil, err
	}
	return &LRUStore{cache: cache}, nil
}

func (s *LRUStore) Put(userID string, tp model.ThinkingProcess) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(userID, tp)
}

func (s *LRUStore) Get(userID string) (model.ThinkingProcess, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Get(userID)
}

func (s *LRUStore) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(userID)
}

func (s *LRUStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}

func (s *LRUStore) Shed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.cache.Len()
	if n <= shedFloor {
		return
	}
	for i := 0; i < n/2; i++ {
		s.cache.RemoveOldest()
	}
	klog.V(6).Infof("pending state shed %d entries, %d remain", n/2, s.cache.Len())
}
