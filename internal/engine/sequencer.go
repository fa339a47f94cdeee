package engine

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Sequencer remembers the highest request sequence seen per session so a
// slow overlap check cannot overwrite the answer to a newer one.
type Sequencer struct {
	mu  sync.Mutex
	lru *lru.Cache[string, uint64]
}

func NewSequencer(size int) *Sequencer {
	if size <= 0 {
		size = 10000
	}
	c, _ := lru.New[string, uint64](size)
	return &Sequencer{lru: c}
}

// Admit records seq for session and reports whether it is not older than
// the latest one seen. Retries of the latest sequence are admitted.
func (s *Sequencer) Admit(session string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.lru.Get(session); ok && seq < last {
		return false
	}
	s.lru.Add(session, seq)
	return true
}

// Superseded reports whether a request newer than seq arrived for session.
func (s *Sequencer) Superseded(session string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.lru.Peek(session)
	return ok && last > seq
}
