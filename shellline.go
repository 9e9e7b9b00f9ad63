// Package shellline is the public surface: a single blocking read_line
// call the embedding shell drives once per prompt. Everything else
// (history persistence, prompt templating, job control) is the
// caller's responsibility, mirroring spec.md §1's scoping of the core
// to "the editor state machine and its rendering pipeline."
package shellline

import (
	"github.com/kungfusheep/shellline/internal/capability"
	"github.com/kungfusheep/shellline/internal/editor"
	"github.com/kungfusheep/shellline/internal/history"
	"github.com/kungfusheep/shellline/internal/term"
)

// Outcome classifies how a read-line call ended.
type Outcome = editor.Outcome

const (
	Submitted   = editor.Submitted
	Interrupted = editor.Interrupted
	EOF         = editor.EOF
)

// Result is what ReadLine returns to its caller.
type Result = editor.Result

// Capabilities re-exports internal/capability's probe result so callers
// never need to import the internal package directly.
type Capabilities = capability.Capabilities

// Store re-exports the history store type.
type Store = history.Store

// Probe runs the one-time terminal capability probe described in
// spec.md §4.4, consulting the real process environment and isatty
// state.
func Probe(active capability.CursorQueryProbe) Capabilities {
	return capability.Probe(capability.EnvFromProcess(), active)
}

// NewHistory builds a history store pre-seeded with previously
// persisted commands (oldest first), as read by the shell from
// whatever file format it chooses to keep history in.
func NewHistory(commands []string) *Store {
	return history.New(commands)
}

// ReadLine runs one interactive edit session on the given terminal and
// returns the submitted line, an interrupt, or EOF.
//
// lastExitStatus is accepted for callers that want to key off it (e.g.
// deciding whether to warn on a large undo history) but is not baked
// into rendering here: prompt content, including any exit-status
// decoration, is the caller's to assemble into prompt before calling,
// per spec.md §1's "the shell wraps this" framing — the core does not
// grow its own prompt templating language.
func ReadLine(t *term.Terminal, prompt string, caps Capabilities, hist *Store, lastExitStatus int) (Result, error) {
	_ = lastExitStatus
	return editor.ReadLine(t, caps, hist, prompt)
}
