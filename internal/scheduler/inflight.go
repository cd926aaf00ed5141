package scheduler

import "sync"

// inflightSet tracks which URLs currently have a probe running, so that a
// second probe for the same URL is skipped rather than queued.
type inflightSet struct {
	mu  sync.Mutex
	ids map[int]struct{}
}

func newInflightSet() *inflightSet {
	return &inflightSet{ids: make(map[int]struct{})}
}

// Acquire marks urlID as probing. It returns false when a probe for that
// URL is already in flight.
func (s *inflightSet) Acquire(urlID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[urlID]; exists {
		return false
	}
	s.ids[urlID] = struct{}{}
	return true
}

// Release clears the probing mark for urlID.
func (s *inflightSet) Release(urlID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, urlID)
}
