package editor

import (
	"github.com/kungfusheep/shellline/internal/completion"
	"github.com/kungfusheep/shellline/internal/history"
	"github.com/kungfusheep/shellline/internal/keys"
)

// enterCompletion implements the first-Tab entry described in
// spec.md §4.10.
func (c *Controller) enterCompletion() {
	word, start, end, atCmdStart := completion.ExtractWord(c.buf.AsBytes(), c.buf.Cursor())
	var all []completion.Item
	for _, p := range c.providers {
		all = append(all, p.Complete(word, atCmdStart)...)
	}
	ranked := completion.Rank(all, "")
	switch len(ranked) {
	case 0:
		return // beep/no-op; no bell sequence emitted from this layer
	case 1:
		c.applyCompletionWord(start, end, ranked[0].Text)
	default:
		c.applyCompletionWord(start, end, ranked[0].Text)
		c.completionSess = completion.NewSession(word, start, end, ranked)
		c.mode = Completion
	}
}

func (c *Controller) applyCompletionWord(start, end int, text string) {
	b := c.buf.AsBytes()
	newBytes := joinParts(b[:start], []byte(text), b[end:])
	c.buf.Replace(newBytes)
	_ = c.buf.SetCursor(start + len(text))
}

// dispatchCompletion implements spec.md §4.10's Completion-mode table.
func (c *Controller) dispatchCompletion(ev keys.Event) (Result, bool, error) {
	sess := c.completionSess

	if ev.Kind == keys.KindNamed {
		switch ev.Named {
		case keys.Tab:
			text := sess.Advance()
			c.replaceCompletionPreview(text)
			return Result{}, false, nil
		case keys.ShiftTab, keys.ArrowUp, keys.ArrowLeft:
			text := sess.Retreat()
			c.replaceCompletionPreview(text)
			return Result{}, false, nil
		case keys.ArrowDown, keys.ArrowRight:
			text := sess.Advance()
			c.replaceCompletionPreview(text)
			return Result{}, false, nil
		case keys.Escape:
			c.exitCompletion(sess.OriginalWord)
			return Result{}, false, nil
		case keys.CtrlLetter:
			if ev.Codepoint == 'g' {
				c.exitCompletion(sess.OriginalWord)
				return Result{}, false, nil
			}
		}
	}

	// Enter, or any key that would modify text: accept then re-dispatch.
	c.acceptCompletion()
	return c.dispatchNormal(ev)
}

func (c *Controller) replaceCompletionPreview(text string) {
	sess := c.completionSess
	b := c.buf.AsBytes()
	newBytes := joinParts(b[:sess.WordStart], []byte(text), b[sess.WordEnd:])
	sess.WordEnd = sess.WordStart + len(text)
	c.buf.Replace(newBytes)
	_ = c.buf.SetCursor(sess.WordEnd)
}

func (c *Controller) exitCompletion(restoreWord string) {
	sess := c.completionSess
	b := c.buf.AsBytes()
	newBytes := joinParts(b[:sess.WordStart], []byte(restoreWord), b[sess.WordEnd:])
	c.buf.Replace(newBytes)
	_ = c.buf.SetCursor(sess.WordStart + len(restoreWord))
	c.completionSess = nil
	c.mode = Normal
}

func (c *Controller) acceptCompletion() {
	c.completionSess = nil
	c.mode = Normal
}

// enterReverseSearch implements the Ctrl-R entry from spec.md §4.9.
func (c *Controller) enterReverseSearch() {
	if err := c.disp.ClearForOverlay(c.term); err != nil {
		return
	}
	c.searchSess = history.NewSession(c.hist, c.buf.AsBytes())
	c.buf.Replace(nil)
	c.mode = ReverseSearch
	c.needsFullRender = true
}

// dispatchReverseSearch implements spec.md §4.9's per-keystroke table.
func (c *Controller) dispatchReverseSearch(ev keys.Event) (Result, bool, error) {
	sess := c.searchSess

	switch ev.Kind {
	case keys.KindChar:
		if matched, ok := sess.TypeChar(ev.Codepoint); ok {
			c.buf.Replace([]byte(matched))
		}
		return Result{}, false, nil
	case keys.KindNamed:
		switch ev.Named {
		case keys.Backspace:
			if sess.Backspace() {
				c.buf.Replace(nil)
			}
			return Result{}, false, nil
		case keys.CtrlLetter:
			switch ev.Codepoint {
			case 'r':
				if matched, ok := sess.Next(history.Backward); ok {
					c.buf.Replace([]byte(matched))
				}
				return Result{}, false, nil
			case 's':
				if matched, ok := sess.Next(history.Forward); ok {
					c.buf.Replace([]byte(matched))
				}
				return Result{}, false, nil
			case 'g':
				c.exitReverseSearch(sess.OriginalByte)
				return Result{}, false, nil
			}
		case keys.Escape:
			c.exitReverseSearch(sess.OriginalByte)
			return Result{}, false, nil
		case keys.Enter:
			c.mode = Normal
			c.searchSess = nil
			bytes := append([]byte(nil), c.buf.AsBytes()...)
			return Result{Bytes: bytes, Outcome: Submitted}, true, nil
		case keys.ArrowLeft, keys.ArrowRight, keys.Home, keys.End:
			c.mode = Normal
			c.searchSess = nil
			c.needsFullRender = true
			return c.dispatchNormal(ev)
		}
	}
	return Result{}, false, nil
}

func (c *Controller) exitReverseSearch(restore []byte) {
	c.buf.Replace(restore)
	c.mode = Normal
	c.searchSess = nil
	c.needsFullRender = true
}
