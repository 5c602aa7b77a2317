package history

import (
	"strings"
	"sync"

	"SplitBot/internal/model"
)

// DefaultCapacity is how many entries each user keeps.
const DefaultCapacity = 50

// Store keeps a bounded, insertion-ordered log of calculations per user.
type Store struct {
	mu       sync.Mutex
	capacity int
	logs     map[int64]*ring
}

// ring is a fixed-size FIFO; head is the oldest entry.
type ring struct {
	buf  []model.HistoryEntry
	head int
	size int
}

// NewStore creates a Store holding up to capacity entries per user.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity, logs: make(map[int64]*ring)}
}

// Append adds an entry, evicting the user's oldest one when the log is full.
func (s *Store) Append(userID int64, entry model.HistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.logs[userID]
	if !ok {
		r = &ring{buf: make([]model.HistoryEntry, s.capacity)}
		s.logs[userID] = r
	}
	if r.size == len(r.buf) {
		r.buf[r.head] = entry
		r.head = (r.head + 1) % len(r.buf)
		return
	}
	r.buf[(r.head+r.size)%len(r.buf)] = entry
	r.size++
}

// List returns up to limit of the most recent entries, oldest first.
// A non-positive limit returns the whole log.
func (s *Store) List(userID int64, limit int) []model.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.logs[userID]
	if !ok || r.size == 0 {
		return nil
	}
	n := r.size
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.HistoryEntry, n)
	start := r.size - n
	for i := 0; i < n; i++ {
		out[i] = r.buf[(r.head+start+i)%len(r.buf)]
	}
	return out
}

// Clear empties the user's log.
func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, userID)
}

// Len returns the number of entries kept for the user.
func (s *Store) Len(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.logs[userID]; ok {
		return r.size
	}
	return 0
}

// Render joins entries with blank lines. Output longer than maxChars runes is
// trimmed from the start so the newest entries survive.
func Render(entries []model.HistoryEntry, maxChars int) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.At.Format("02.01.2006 15:04") + "\n" + e.Text
	}
	text := strings.Join(parts, "\n\n")
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[len(runes)-maxChars:])
}
