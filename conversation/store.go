package conversation

import "sync"

// Store maps conversation ids to their memories. It lives in-process only;
// conversations do not survive a restart and are not shared across
// processes.
type Store struct {
	mu          sync.RWMutex
	memories    map[string]*Memory
	maxMessages int
}

// NewStore creates an empty store whose memories hold at most maxMessages
// messages each.
func NewStore(maxMessages int) *Store {
	return &Store{
		memories:    make(map[string]*Memory),
		maxMessages: maxMessages,
	}
}

// Get returns the memory for id, or nil when the conversation is unknown.
func (s *Store) Get(id string) *Memory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.memories[id]
}

// GetOrCreate returns the memory for id, creating it on first use.
func (s *Store) GetOrCreate(id string) *Memory {
	s.mu.RLock()
	m := s.memories[id]
	s.mu.RUnlock()
	if m != nil {
		return m
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if m = s.memories[id]; m == nil {
		m = NewMemory(s.maxMessages)
		s.memories[id] = m
	}
	return m
}

// Delete removes the conversation and reports whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.memories[id]; !ok {
		return false
	}
	delete(s.memories, id)
	return true
}

// Len returns the number of live conversations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.memories)
}
