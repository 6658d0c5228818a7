// Package conversation holds per-conversation chat history and the cached
// result set that follow-up filtering operates on.
package conversation

import (
	"sync"
	"time"

	"github.com/mkrishnan/resumatch/search"
)

// Message is a single chat turn.
type Message struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Memory is the bounded history and result cache for one conversation.
// All methods are safe for concurrent use; requests on the same
// conversation serialize on the internal lock.
type Memory struct {
	mu          sync.Mutex
	messages    []Message
	lastResults []search.Result
	maxMessages int
}

// NewMemory creates a memory holding at most maxMessages messages.
// Non-positive values fall back to 10.
func NewMemory(maxMessages int) *Memory {
	if maxMessages <= 0 {
		maxMessages = 10
	}
	return &Memory{maxMessages: maxMessages}
}

// AddExchange appends a user message and the assistant's reply, then drops
// the oldest messages until the history fits the bound.
func (m *Memory) AddExchange(user, assistant string) {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages,
		Message{Role: "user", Content: user, Timestamp: now},
		Message{Role: "assistant", Content: assistant, Timestamp: now},
	)
	if over := len(m.messages) - m.maxMessages; over > 0 {
		m.messages = append(m.messages[:0:0], m.messages[over:]...)
	}
}

// Messages returns the history oldest first. The slice is a copy.
func (m *Memory) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Len returns the current message count.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// Clear drops both the history and the cached results.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
	m.lastResults = nil
}

// SetLastResults replaces the cached result set. Callers store only
// non-filter retrievals here; a filter run reads the cache but must not
// overwrite it.
func (m *Memory) SetLastResults(results []search.Result) {
	out := make([]search.Result, len(results))
	copy(out, results)
	m.mu.Lock()
	m.lastResults = out
	m.mu.Unlock()
}

// LastResults returns a copy of the cached result set.
func (m *Memory) LastResults() []search.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]search.Result, len(m.lastResults))
	copy(out, m.lastResults)
	return out
}

// HasResults reports whether a cached result set exists.
func (m *Memory) HasResults() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lastResults) > 0
}

// ClearResults drops the cached results but keeps the history.
func (m *Memory) ClearResults() {
	m.mu.Lock()
	m.lastResults = nil
	m.mu.Unlock()
}
