// Package cooldown gates how often a signal category may fire for a pair.
//
// The store keeps an in-memory map of (pair, category) → last-fired time with
// write-through persistence to a durable backend, so a process restart does
// not immediately re-fire every signal. If the backend becomes unwritable the
// store degrades to memory-only for the affected writes — a duplicate
// notification after a crash is accepted over halting the evaluator.
package cooldown

import (
	"log"
	"sync"
	"time"
)

// Key identifies one independent cooldown: a pair plus a category such as
// "strength_alert", a trading-session name, or a breakout group.
type Key struct {
	Pair     string
	Category string
}

// Backend is the durable side of the store.
type Backend interface {
	LoadCooldowns() (map[string]map[string]time.Time, error)
	PutCooldown(pair, category string, firedAt time.Time) error
	DeleteCooldownCategory(category string) error
}

// Store is a mutex-guarded cooldown map with write-through persistence.
// Safe for concurrent use; the check-then-record sequence across the
// cooldown gate must go through Acquire for atomicity.
type Store struct {
	mu      sync.Mutex
	last    map[Key]time.Time
	backend Backend // nil → memory-only
}

// NewStore builds a store over backend and loads persisted state. A load
// failure is non-fatal: the evaluator continues with empty in-memory state.
func NewStore(backend Backend) *Store {
	s := &Store{
		last:    make(map[Key]time.Time),
		backend: backend,
	}
	if backend == nil {
		return s
	}

	persisted, err := backend.LoadCooldowns()
	if err != nil {
		log.Printf("[cooldown] load failed, starting with empty state: %v", err)
		return s
	}
	for pair, cats := range persisted {
		for cat, ts := range cats {
			s.last[Key{Pair: pair, Category: cat}] = ts
		}
	}
	log.Printf("[cooldown] restored %d cooldown keys", len(s.last))
	return s
}

// NewMemoryStore builds a store with no durable backend (tests, degraded mode).
func NewMemoryStore() *Store {
	return NewStore(nil)
}

// Allowed reports whether key may fire at now given the cooldown window.
func (s *Store) Allowed(key Key, now time.Time, window time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allowedLocked(key, now, window)
}

func (s *Store) allowedLocked(key Key, now time.Time, window time.Duration) bool {
	last, ok := s.last[key]
	if !ok {
		return true
	}
	return now.Sub(last) >= window
}

// Record stores now as the last-fired time for key and writes it through to
// the backend. Persistence failure is logged and the in-memory state kept.
func (s *Store) Record(key Key, now time.Time) {
	s.mu.Lock()
	s.last[key] = now
	s.mu.Unlock()
	s.persist(key, now)
}

// Acquire atomically checks the window and, if allowed, records now. This is
// the form concurrent evaluations must use so two passes cannot both clear
// the gate for the same key.
func (s *Store) Acquire(key Key, now time.Time, window time.Duration) bool {
	s.mu.Lock()
	if !s.allowedLocked(key, now, window) {
		s.mu.Unlock()
		return false
	}
	s.last[key] = now
	s.mu.Unlock()
	s.persist(key, now)
	return true
}

// Remaining returns how much of the window is left for key; zero if the key
// may fire.
func (s *Store) Remaining(key Key, now time.Time, window time.Duration) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.last[key]
	if !ok {
		return 0
	}
	left := window - now.Sub(last)
	if left < 0 {
		return 0
	}
	return left
}

// PruneCategory drops every key in a stale category (e.g. an ended trading
// session) from memory and the backend.
func (s *Store) PruneCategory(category string) {
	s.mu.Lock()
	for k := range s.last {
		if k.Category == category {
			delete(s.last, k)
		}
	}
	s.mu.Unlock()

	if s.backend != nil {
		if err := s.backend.DeleteCooldownCategory(category); err != nil {
			log.Printf("[cooldown] prune category %q: %v", category, err)
		}
	}
}

// Len returns the number of tracked keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.last)
}

func (s *Store) persist(key Key, ts time.Time) {
	if s.backend == nil {
		return
	}
	if err := s.backend.PutCooldown(key.Pair, key.Category, ts); err != nil {
		log.Printf("[cooldown] persist %s/%s failed, continuing in-memory: %v",
			key.Pair, key.Category, err)
	}
}
