// Package editor is the top-level controller (C12): it owns the mode
// state machine (Normal/Completion/ReverseSearch), dispatches decoded
// key events to buffer/kill-ring/history/completion operations, and
// drives the display model each tick. Grounded on the read-eval-render
// main loop shape of kungfusheep/glyph's App.Run, narrowed from a
// full-screen program loop to the single-line read_line call spec.md
// §4.12/§6 describes.
package editor

import (
	"bytes"
	"errors"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/kungfusheep/shellline/internal/capability"
	"github.com/kungfusheep/shellline/internal/completion"
	"github.com/kungfusheep/shellline/internal/cursormath"
	"github.com/kungfusheep/shellline/internal/display"
	"github.com/kungfusheep/shellline/internal/history"
	"github.com/kungfusheep/shellline/internal/keys"
	"github.com/kungfusheep/shellline/internal/syntax"
	"github.com/kungfusheep/shellline/internal/term"
	"github.com/kungfusheep/shellline/internal/textbuf"
	"github.com/kungfusheep/shellline/internal/trace"
	"github.com/kungfusheep/shellline/internal/undolog"
)

// Mode is the editor controller's current overlay state.
type Mode int

const (
	Normal Mode = iota
	Completion
	ReverseSearch
)

// Outcome classifies how a read-line session ended.
type Outcome int

const (
	Submitted Outcome = iota
	Interrupted
	EOF
)

// Result is what ReadLine returns to its caller (the shell).
type Result struct {
	Bytes   []byte
	Outcome Outcome
}

// Controller holds everything one edit session needs. It is built
// fresh by ReadLine and discarded at session end; capability probing
// is the only process-lifetime state (passed in, probed once upstream).
type Controller struct {
	term *term.Terminal
	caps capability.Capabilities
	buf  *textbuf.Buffer
	hist *history.Store
	undo *undolog.Log
	disp display.Model

	mode Mode

	prompt     string
	highlight  bool
	theme      display.Theme
	killRing   [][]byte
	killIndex  int

	completionSess *completion.Session
	providers      []completion.Provider

	searchSess *history.Session

	pendingChord rune // non-zero while waiting for the second key of a chord (e.g. Ctrl-X Ctrl-U)

	tap *trace.Tap

	menu         display.CompletionMenu
	lastMenuRows int

	needsFullRender bool
}

// New builds a Controller for one read-line call.
func New(t *term.Terminal, caps capability.Capabilities, hist *history.Store, prompt string) *Controller {
	theme := display.ThemeDark
	if caps.Color == capability.ColorNone {
		theme = display.ThemeMonochrome
	}
	return &Controller{
		term:      t,
		caps:      caps,
		buf:       textbuf.New(),
		hist:      hist,
		undo:      undolog.New(),
		mode:      Normal,
		prompt:    prompt,
		highlight: caps.Color != capability.ColorNone,
		theme:     theme,
		providers: []completion.Provider{
			completion.CommandProvider{},
			completion.VariableProvider{},
			completion.FileProvider{},
		},
		menu:            display.NewCompletionMenu(),
		needsFullRender: true,
	}
}

// geometry resolves the current wrap width and prompt's last-line
// width for cursor math.
func (c *Controller) geometry() cursormath.Geometry {
	size, _ := c.term.Size()
	return cursormath.Geometry{Width: size.Width, PromptLastWidth: runewidth.StringWidth(c.activePrompt())}
}

func (c *Controller) activePrompt() string {
	switch c.mode {
	case ReverseSearch:
		return c.searchSess.PromptIndicator()
	default:
		return c.prompt
	}
}

func (c *Controller) render() error {
	geo := c.geometry()
	size, _ := c.term.Size()
	var regions []syntax.Region
	if c.highlight {
		regions = syntax.Classify(c.buf.AsBytes())
	}
	f := display.Frame{
		Prompt:     c.activePrompt(),
		Buffer:     c.buf.AsBytes(),
		CursorByte: c.buf.Cursor(),
		Regions:    regions,
		Theme:      c.theme,
		Highlight:  c.highlight,
		Geometry:   geo,
		ScreenRows: size.Height,
	}
	if c.needsFullRender {
		c.disp.Invalidate()
		c.needsFullRender = false
	}
	if err := c.disp.Render(c.term, f); err != nil {
		return err
	}
	return c.renderCompletionMenu()
}

// renderCompletionMenu draws (or clears) the multi-column completion
// overlay below the edit line, for the ≥2-candidate case spec.md
// §4.10 describes. It never disturbs the editor's own incremental
// render state: it moves the cursor down past the edit line, redraws
// from there, then returns the cursor to its pre-call position.
func (c *Controller) renderCompletionMenu() error {
	if c.mode != Completion || c.completionSess == nil || len(c.completionSess.Items) < 2 {
		if c.lastMenuRows == 0 {
			return nil
		}
		return c.clearCompletionMenu()
	}

	size, _ := c.term.Size()
	labels := make([]string, len(c.completionSess.Items))
	for i, it := range c.completionSess.Items {
		labels[i] = it.Text
	}
	menu := c.menu.Render(labels, c.completionSess.CurrentIndex, size.Width)
	rows := bytes.Count(menu, []byte("\r\n")) + 1

	var buf bytes.Buffer
	buf.Write(term.CursorDown(1))
	buf.WriteByte('\r')
	buf.Write(term.SeqEraseToEOS)
	buf.Write(menu)
	buf.Write(term.CursorUp(rows))
	buf.Write(term.CursorColumn(c.editCursorColumn()))
	c.term.WriteBytes(buf.Bytes())
	c.lastMenuRows = rows
	return c.term.Flush()
}

func (c *Controller) clearCompletionMenu() error {
	var buf bytes.Buffer
	buf.Write(term.CursorDown(1))
	buf.WriteByte('\r')
	buf.Write(term.SeqEraseToEOS)
	buf.Write(term.CursorUp(1))
	buf.Write(term.CursorColumn(c.editCursorColumn()))
	c.term.WriteBytes(buf.Bytes())
	c.lastMenuRows = 0
	return c.term.Flush()
}

func (c *Controller) editCursorColumn() int {
	pos := cursormath.Resolve(c.buf.AsBytes(), c.buf.Cursor(), c.geometry())
	return pos.RelativeCol
}

// ReadLine runs one interactive edit session to completion.
func ReadLine(t *term.Terminal, caps capability.Capabilities, hist *history.Store, prompt string) (Result, error) {
	c := New(t, caps, hist, prompt)

	tap, err := trace.FromEnv()
	if err != nil {
		return Result{}, err
	}
	c.tap = tap
	defer tap.Close()

	if err := t.EnterRawMode(); err != nil {
		return Result{}, err
	}
	defer t.Restore()

	if err := c.render(); err != nil {
		return Result{}, err
	}

	decoder := keys.New(t, nil)
	for {
		select {
		case <-t.ResizeChan():
			t.InvalidateSize()
			c.needsFullRender = true
			if err := c.render(); err != nil {
				return Result{}, err
			}
			continue
		default:
		}

		ev, err := decoder.ReadKey()
		if err != nil {
			if errors.Is(err, term.ErrFatal) {
				return Result{}, err
			}
			return Result{Outcome: EOF}, nil
		}

		res, done, rerr := c.dispatch(ev)
		if rerr != nil {
			return Result{}, rerr
		}
		c.tap.Observe(trace.Snapshot{
			Op:        describeEvent(ev),
			BufferLen: c.buf.ByteLen(),
			Cursor:    c.buf.Cursor(),
			CharCount: c.buf.CharCount(),
			Timestamp: time.Now(),
		}, c.buf.AsBytes())
		if done {
			if c.mode == Normal && res.Outcome == Submitted && len(res.Bytes) > 0 {
				c.hist.Add(string(res.Bytes))
			}
			return res, nil
		}
		if err := c.render(); err != nil {
			return Result{}, err
		}
	}
}

// dispatch routes one decoded key event per the current mode, mirroring
// spec.md §4.12's mode table. Returns done=true once the session should
// return res to the caller.
func (c *Controller) dispatch(ev keys.Event) (Result, bool, error) {
	switch c.mode {
	case Completion:
		return c.dispatchCompletion(ev)
	case ReverseSearch:
		return c.dispatchReverseSearch(ev)
	default:
		return c.dispatchNormal(ev)
	}
}

func (c *Controller) dispatchNormal(ev keys.Event) (Result, bool, error) {
	now := time.Now()

	if c.pendingChord == 'x' {
		c.pendingChord = 0
		if ev.Kind == keys.KindNamed && ev.Named == keys.CtrlLetter && ev.Codepoint == 'u' {
			c.performRedo()
			return Result{}, false, nil
		}
		// Any other second key cancels the chord and is dispatched normally.
	}

	switch ev.Kind {
	case keys.KindChar:
		c.insertChar(ev.Codepoint, now)
		return Result{}, false, nil
	case keys.KindNamed:
		switch ev.Named {
		case keys.Backspace:
			c.backspace(now)
		case keys.Delete:
			c.deleteForward(now)
		case keys.Enter:
			bytes := append([]byte(nil), c.buf.AsBytes()...)
			return Result{Bytes: bytes, Outcome: Submitted}, true, nil
		case keys.ArrowLeft:
			c.moveCursor(c.buf.PrevCharBoundary(c.buf.Cursor()))
		case keys.ArrowRight:
			c.moveCursor(c.buf.NextCharBoundary(c.buf.Cursor()))
		case keys.Home:
			c.moveCursor(0)
		case keys.End:
			c.moveCursor(c.buf.ByteLen())
		case keys.CtrlLetter:
			return c.dispatchCtrlLetter(ev)
		case keys.AltB:
			c.moveCursor(c.wordLeft())
		case keys.AltF:
			c.moveCursor(c.wordRight())
		case keys.AltD:
			c.deleteWordForward(now)
		case keys.AltBackspace, keys.AltUnderscore:
			c.deleteWordBackward(now)
		case keys.AltT:
			c.transposeWord()
		case keys.AltU:
			c.transformWord(caseUpper)
		case keys.AltL:
			c.transformWord(caseLower)
		case keys.AltC:
			c.transformWord(caseCapitalize)
		case keys.Tab:
			c.enterCompletion()
		case keys.CtrlArrowLeft:
			c.moveCursor(c.wordLeft())
		case keys.CtrlArrowRight:
			c.moveCursor(c.wordRight())
		case keys.CtrlUnderscore:
			c.performUndo()
		}
	}
	return Result{}, false, nil
}

func (c *Controller) dispatchCtrlLetter(ev keys.Event) (Result, bool, error) {
	switch ev.Codepoint {
	case 'a':
		c.moveCursor(0)
	case 'e':
		c.moveCursor(c.buf.ByteLen())
	case 'b':
		c.moveCursor(c.buf.PrevCharBoundary(c.buf.Cursor()))
	case 'f':
		c.moveCursor(c.buf.NextCharBoundary(c.buf.Cursor()))
	case 'k':
		c.killToEnd(time.Now())
	case 'u':
		c.killToStart(time.Now())
	case 'w':
		c.deleteWordBackward(time.Now())
	case 'y':
		c.yank()
	case 't':
		c.transposeChars()
	case 'l':
		c.needsFullRender = true
	case 'r':
		c.enterReverseSearch()
	case 'x':
		c.pendingChord = 'x'
	case 'c':
		return Result{Outcome: Interrupted}, true, nil
	case 'd':
		if c.buf.ByteLen() == 0 {
			return Result{Outcome: EOF}, true, nil
		}
		c.deleteForward(time.Now())
	}
	return Result{}, false, nil
}

func (c *Controller) insertChar(r rune, now time.Time) {
	text := []byte(string(r))
	offset := c.buf.Cursor()
	if _, err := c.buf.Insert(offset, text); err == nil {
		c.undo.Push(undologAction(offset, text, now))
	}
}

func (c *Controller) backspace(now time.Time) {
	offset := c.buf.PrevCharBoundary(c.buf.Cursor())
	removed, err := c.buf.Backspace()
	if err == nil && removed != nil {
		c.undo.Push(undologDelete(offset, removed, now))
	}
}

func (c *Controller) deleteForward(now time.Time) {
	offset := c.buf.Cursor()
	end := c.buf.NextCharBoundary(offset)
	if end == offset {
		return
	}
	removed := append([]byte(nil), c.buf.AsBytes()[offset:end]...)
	if c.buf.Delete(offset, end-offset) == nil {
		c.undo.Push(undologDelete(offset, removed, now))
	}
}

func (c *Controller) moveCursor(offset int) {
	_ = c.buf.SetCursor(offset)
}

func (c *Controller) killToEnd(now time.Time) {
	offset := c.buf.Cursor()
	end := c.buf.ByteLen()
	if offset == end {
		return
	}
	killed := append([]byte(nil), c.buf.AsBytes()[offset:end]...)
	if c.buf.Delete(offset, end-offset) == nil {
		c.pushKill(killed)
		c.undo.Push(undologDelete(offset, killed, now))
	}
}

func (c *Controller) killToStart(now time.Time) {
	offset := c.buf.Cursor()
	if offset == 0 {
		return
	}
	killed := append([]byte(nil), c.buf.AsBytes()[:offset]...)
	if c.buf.Delete(0, offset) == nil {
		c.pushKill(killed)
		c.undo.Push(undologDelete(0, killed, now))
	}
}

func (c *Controller) pushKill(text []byte) {
	c.killRing = append(c.killRing, text)
	c.killIndex = len(c.killRing) - 1
}

func (c *Controller) yank() {
	if len(c.killRing) == 0 {
		return
	}
	text := c.killRing[c.killIndex]
	offset := c.buf.Cursor()
	if _, err := c.buf.Insert(offset, text); err == nil {
		c.undo.Push(undologAction(offset, text, time.Now()))
	}
}

// describeEvent names a dispatched key event for the trace tap.
func describeEvent(ev keys.Event) string {
	switch ev.Kind {
	case keys.KindChar:
		return "char"
	case keys.KindNamed:
		return "named"
	default:
		return "unknown"
	}
}

// performUndo pops the most recent action off the undo log and applies
// its inverse to the buffer; the log itself does not touch the buffer
// since only the controller owns it.
func (c *Controller) performUndo() {
	a, ok := c.undo.Undo()
	if !ok {
		return
	}
	b := c.buf.AsBytes()
	switch a.Kind {
	case undolog.Insert:
		newBytes := joinParts(b[:a.Offset], b[a.Offset+len(a.Text):])
		c.buf.Replace(newBytes)
		_ = c.buf.SetCursor(a.Offset)
	case undolog.Delete:
		newBytes := joinParts(b[:a.Offset], a.Text, b[a.Offset:])
		c.buf.Replace(newBytes)
		_ = c.buf.SetCursor(a.Offset + len(a.Text))
	case undolog.Replace:
		newBytes := joinParts(b[:a.Offset], a.OldText, b[a.Offset+len(a.Text):])
		c.buf.Replace(newBytes)
		_ = c.buf.SetCursor(a.Offset + len(a.OldText))
	case undolog.CursorMove:
		_ = c.buf.SetCursor(a.Cursor)
	}
}

// performRedo re-applies the action performUndo most recently undid.
func (c *Controller) performRedo() {
	a, ok := c.undo.Redo()
	if !ok {
		return
	}
	b := c.buf.AsBytes()
	switch a.Kind {
	case undolog.Insert:
		newBytes := joinParts(b[:a.Offset], a.Text, b[a.Offset:])
		c.buf.Replace(newBytes)
		_ = c.buf.SetCursor(a.Offset + len(a.Text))
	case undolog.Delete:
		newBytes := joinParts(b[:a.Offset], b[a.Offset+len(a.Text):])
		c.buf.Replace(newBytes)
		_ = c.buf.SetCursor(a.Offset)
	case undolog.Replace:
		newBytes := joinParts(b[:a.Offset], a.Text, b[a.Offset+len(a.OldText):])
		c.buf.Replace(newBytes)
		_ = c.buf.SetCursor(a.Offset + len(a.Text))
	case undolog.CursorMove:
		_ = c.buf.SetCursor(a.Cursor)
	}
}

func undologAction(offset int, text []byte, now time.Time) undolog.Action {
	return undolog.Action{Kind: undolog.Insert, Offset: offset, Text: append([]byte(nil), text...), Timestamp: now}
}

func undologDelete(offset int, text []byte, now time.Time) undolog.Action {
	return undolog.Action{Kind: undolog.Delete, Offset: offset, Text: append([]byte(nil), text...), Timestamp: now}
}
