// Package history is the ordered command history store and the
// reverse-incremental-search scan over it (spec.md §4.9). Load/append
// persistence is delegated to an external collaborator at session
// boundaries; this package never touches disk itself.
package history

import "strings"

// Entry is one recorded command line.
type Entry struct {
	Command  string
	UseCount int
}

// Store is an ordered, append-mostly sequence of history entries.
// The zero value is an empty, ready-to-use store.
type Store struct {
	entries []Entry
}

// Loader/Appender is the external persistence collaborator's contract;
// Store itself never implements either.
type Loader interface {
	Load() ([]string, error)
}

type Appender interface {
	Append(command string) error
}

// New builds a Store preloaded with commands, oldest first.
func New(commands []string) *Store {
	s := &Store{entries: make([]Entry, 0, len(commands))}
	for _, c := range commands {
		s.Add(c)
	}
	return s
}

// Add appends command unless it equals the most recent entry.
func (s *Store) Add(command string) {
	if n := len(s.entries); n > 0 && s.entries[n-1].Command == command {
		s.entries[n-1].UseCount++
		return
	}
	s.entries = append(s.entries, Entry{Command: command, UseCount: 1})
}

// Len returns the number of stored entries.
func (s *Store) Len() int { return len(s.entries) }

// At returns the entry at index i (0 = oldest).
func (s *Store) At(i int) Entry { return s.entries[i] }

// Entries returns the full entry list, oldest first. Callers must not
// mutate the returned slice.
func (s *Store) Entries() []Entry { return s.entries }

// SearchDirection is the reverse-search scan direction.
type SearchDirection int

const (
	Backward SearchDirection = iota
	Forward
)

// Search scans for the first entry (starting at fromIndex and moving
// in dir) whose command contains query as a substring, and returns its
// index. Returns -1 if no match or fromIndex is already out of range;
// wraps are never performed (spec.md §4.9).
func (s *Store) Search(query string, fromIndex int, dir SearchDirection) int {
	if query == "" {
		return -1
	}
	switch dir {
	case Backward:
		for i := fromIndex; i >= 0 && i < len(s.entries); i-- {
			if strings.Contains(s.entries[i].Command, query) {
				return i
			}
		}
	case Forward:
		for i := fromIndex; i >= 0 && i < len(s.entries); i++ {
			if strings.Contains(s.entries[i].Command, query) {
				return i
			}
		}
	}
	return -1
}

// Session is the reverse-incremental-search overlay state machine
// described in spec.md §4.9.
type Session struct {
	store        *Store
	OriginalByte []byte
	Query        string
	MatchIndex   int
	Direction    SearchDirection
	Failed       bool
}

// NewSession begins a reverse-search overlay, capturing the buffer
// bytes to restore on cancel.
func NewSession(s *Store, originalBuffer []byte) *Session {
	orig := append([]byte(nil), originalBuffer...)
	return &Session{store: s, OriginalByte: orig, MatchIndex: -1, Direction: Backward}
}

// TypeChar appends ch to the query and re-searches from the most
// recent end, as far back as count-1 per spec.md §4.9.
func (sess *Session) TypeChar(ch rune) (matched string, ok bool) {
	sess.Query += string(ch)
	idx := sess.store.Search(sess.Query, sess.store.Len()-1, Backward)
	if idx < 0 {
		sess.Failed = true
		return "", false
	}
	sess.Failed = false
	sess.MatchIndex = idx
	return sess.store.At(idx).Command, true
}

// Backspace drops the last rune of the query and reports whether the
// query is now empty.
func (sess *Session) Backspace() (empty bool) {
	if sess.Query == "" {
		return true
	}
	runes := []rune(sess.Query)
	sess.Query = string(runes[:len(runes)-1])
	sess.Failed = false
	return sess.Query == ""
}

// Next advances the match in dir from the current MatchIndex.
func (sess *Session) Next(dir SearchDirection) (matched string, ok bool) {
	if sess.Query == "" {
		return "", false
	}
	start := sess.MatchIndex - 1
	if dir == Forward {
		start = sess.MatchIndex + 1
	}
	idx := sess.store.Search(sess.Query, start, dir)
	if idx < 0 {
		sess.Failed = true
		return "", false
	}
	sess.Failed = false
	sess.MatchIndex = idx
	sess.Direction = dir
	return sess.store.At(idx).Command, true
}

// PromptIndicator returns the overlay prompt text per spec.md §4.9:
// "(reverse-i-search)`':" when the query is empty, "(failed-i-search)"
// suffixed with the query otherwise on a miss, or the normal indicator
// on a live match.
func (sess *Session) PromptIndicator() string {
	if sess.Query == "" {
		return "(reverse-i-search)`':"
	}
	label := "reverse-i-search"
	if sess.Failed {
		label = "failed-i-search"
	}
	return "(" + label + ")`" + sess.Query + "':"
}
