// Package undolog is the bounded, optionally-coalescing undo/redo
// stack described in spec.md §4.11. Every buffer mutation the editor
// controller performs is paired with an Action appended here.
package undolog

import "time"

// Kind discriminates the inverse operation an Action requires.
type Kind int

const (
	Insert Kind = iota
	Delete
	CursorMove
	Replace
)

// Action is one undoable buffer mutation.
type Action struct {
	Kind      Kind
	Offset    int
	Text      []byte // inserted/deleted/new text, per Kind
	OldText   []byte // previous text, for Replace
	Cursor    int    // cursor before the action (for CursorMove / restore)
	Timestamp time.Time
}

// DefaultMaxActions bounds memory use; oldest entries evict once
// exceeded.
const DefaultMaxActions = 1000

// DefaultMergeTimeout is the window within which two consecutive
// character inserts may be coalesced into one Action.
const DefaultMergeTimeout = 1000 * time.Millisecond

// Log is the undo/redo stack. current is the index one past the most
// recently applied action (i.e., len(actions) when nothing has been
// undone).
type Log struct {
	actions      []Action
	current      int
	MaxActions   int
	MergeTimeout time.Duration
}

// New returns a ready-to-use Log with default bounds.
func New() *Log {
	return &Log{MaxActions: DefaultMaxActions, MergeTimeout: DefaultMergeTimeout}
}

// Push records a new action at current, dropping any redo tail, and
// attempts merge-coalescing with the immediately preceding action.
func (l *Log) Push(a Action) {
	l.actions = l.actions[:l.current]

	if a.Kind == Insert && l.current > 0 {
		prev := &l.actions[l.current-1]
		if prev.Kind == Insert &&
			prev.Offset+len(prev.Text) == a.Offset &&
			a.Timestamp.Sub(prev.Timestamp) < l.mergeTimeout() {
			prev.Text = append(prev.Text, a.Text...)
			prev.Timestamp = a.Timestamp
			return
		}
	}

	l.actions = append(l.actions, a)
	l.current = len(l.actions)
	l.evict()
}

func (l *Log) mergeTimeout() time.Duration {
	if l.MergeTimeout == 0 {
		return DefaultMergeTimeout
	}
	return l.MergeTimeout
}

func (l *Log) maxActions() int {
	if l.MaxActions == 0 {
		return DefaultMaxActions
	}
	return l.MaxActions
}

func (l *Log) evict() {
	max := l.maxActions()
	if len(l.actions) <= max {
		return
	}
	drop := len(l.actions) - max
	l.actions = append([]Action(nil), l.actions[drop:]...)
	l.current -= drop
}

// CanUndo reports whether Undo has an action to apply.
func (l *Log) CanUndo() bool { return l.current > 0 }

// CanRedo reports whether Redo has an action to apply.
func (l *Log) CanRedo() bool { return l.current < len(l.actions) }

// Undo returns the action to invert and decrements current. Callers
// apply the inverse themselves (Insert↔Delete, CursorMove restores
// Cursor, Replace swaps Text/OldText) since only the controller owns
// the live buffer.
func (l *Log) Undo() (Action, bool) {
	if !l.CanUndo() {
		return Action{}, false
	}
	l.current--
	return l.actions[l.current], true
}

// Redo returns the next action to re-apply and increments current.
func (l *Log) Redo() (Action, bool) {
	if !l.CanRedo() {
		return Action{}, false
	}
	a := l.actions[l.current]
	l.current++
	return a, true
}

// MemoryUsage estimates bytes retained by the log, including allocated
// action text, per spec.md §4.11's reporting requirement.
func (l *Log) MemoryUsage() int {
	const actionOverhead = 64
	total := 0
	for _, a := range l.actions {
		total += actionOverhead + len(a.Text) + len(a.OldText)
	}
	return total
}

// Len returns the number of actions currently retained (including the
// redo tail, if any).
func (l *Log) Len() int { return len(l.actions) }
