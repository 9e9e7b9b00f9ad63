// Package capability probes the surrounding terminal once per process
// and caches the result as an immutable Capabilities record consumed by
// internal/term, internal/keys, and internal/display.
package capability

import (
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

// ColorLevel is the color depth the terminal supports.
type ColorLevel int

const (
	ColorNone ColorLevel = iota
	Color16
	Color256
	ColorTrueColor
)

// InteractiveMode selects how aggressively the editor renders.
type InteractiveMode int

const (
	ModeNone InteractiveMode = iota
	ModeNative
	ModeEnhanced
	ModeMultiplexed
)

// Capabilities is the immutable result of a single capability probe.
type Capabilities struct {
	Color                 ColorLevel
	SupportsCursorQuery    bool
	SupportsBracketedPaste bool
	SupportsMouse          bool
	SupportsFocus          bool
	SupportsAltScreen      bool
	IsMultiplexer          bool
	PreferredMode          InteractiveMode
}

// Env is the subset of the process environment the probe consults.
// Exposed as a struct (rather than reading os.Getenv directly
// everywhere) so tests can inject a synthetic environment.
type Env struct {
	Term             string
	TermProgram      string
	ColorTerm        string
	ITermSessionID   string
	Tmux             string
	STY              string
	StdinIsTTY       bool
	StdoutIsTTY      bool
	StderrIsTTY      bool
}

// EnvFromProcess reads the real process environment and isatty state.
func EnvFromProcess() Env {
	return Env{
		Term:           os.Getenv("TERM"),
		TermProgram:    os.Getenv("TERM_PROGRAM"),
		ColorTerm:      os.Getenv("COLORTERM"),
		ITermSessionID: os.Getenv("ITERM_SESSION_ID"),
		Tmux:           os.Getenv("TMUX"),
		STY:            os.Getenv("STY"),
		StdinIsTTY:     term.IsTerminal(int(os.Stdin.Fd())),
		StdoutIsTTY:    term.IsTerminal(int(os.Stdout.Fd())),
		StderrIsTTY:    term.IsTerminal(int(os.Stderr.Fd())),
	}
}

// enhancedSignatures are TERM_PROGRAM values for editor-embedded
// terminals that should get enhanced rendering even when stdin is not
// a TTY (e.g. the integrated terminal piping through a PTY proxy).
var enhancedSignatures = map[string]bool{
	"vscode":        true,
	"zed":           true,
	"Hyper":         true,
	"WarpTerminal":  true,
}

// CursorQueryProbe actively issues a DSR query with a strict timeout to
// confirm the terminal answers; it is optional and only consulted when
// non-nil.
type CursorQueryProbe func(timeout time.Duration) bool

// Probe runs single-shot capability discovery. active may be nil to
// skip the DSR confirmation probe.
func Probe(e Env, active CursorQueryProbe) Capabilities {
	c := Capabilities{}

	c.IsMultiplexer = e.Tmux != "" || e.STY != ""

	switch {
	case strings.Contains(e.ColorTerm, "truecolor") || strings.Contains(e.ColorTerm, "24bit"):
		c.Color = ColorTrueColor
	case strings.Contains(e.Term, "256color"):
		c.Color = Color256
	case e.Term == "" || e.Term == "dumb":
		c.Color = ColorNone
	default:
		c.Color = Color16
	}

	c.SupportsBracketedPaste = e.StdinIsTTY && e.Term != "dumb"
	c.SupportsAltScreen = e.StdinIsTTY && e.StdoutIsTTY
	c.SupportsMouse = e.StdoutIsTTY
	c.SupportsFocus = e.StdoutIsTTY && !c.IsMultiplexer

	c.SupportsCursorQuery = e.StdinIsTTY && e.StdoutIsTTY && e.Term != "dumb"
	if c.SupportsCursorQuery && active != nil {
		timeout := 100 * time.Millisecond
		if c.IsMultiplexer {
			timeout = 200 * time.Millisecond
		}
		c.SupportsCursorQuery = active(timeout)
	}

	switch {
	case e.StdinIsTTY && e.StdoutIsTTY:
		if c.IsMultiplexer {
			c.PreferredMode = ModeMultiplexed
		} else {
			c.PreferredMode = ModeNative
		}
	case enhancedSignatures[e.TermProgram]:
		c.PreferredMode = ModeEnhanced
	default:
		c.PreferredMode = ModeNone
	}

	return c
}
