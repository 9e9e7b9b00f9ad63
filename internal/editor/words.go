package editor

import (
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/kungfusheep/shellline/internal/undolog"
)

// isWordRune reports whether r is part of a "word" for the
// Alt-b/Alt-f/Alt-d word-motion family (alnum + underscore, the common
// readline definition).
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func (c *Controller) wordLeft() int {
	b := c.buf.AsBytes()
	i := c.buf.Cursor()
	i = skipBackWhile(b, i, func(r rune) bool { return !isWordRune(r) })
	i = skipBackWhile(b, i, isWordRune)
	return i
}

func (c *Controller) wordRight() int {
	b := c.buf.AsBytes()
	i := c.buf.Cursor()
	i = skipForwardWhile(b, i, func(r rune) bool { return !isWordRune(r) })
	i = skipForwardWhile(b, i, isWordRune)
	return i
}

func skipBackWhile(b []byte, i int, pred func(rune) bool) int {
	for i > 0 {
		r, size := utf8.DecodeLastRune(b[:i])
		if !pred(r) {
			break
		}
		i -= size
	}
	return i
}

func skipForwardWhile(b []byte, i int, pred func(rune) bool) int {
	for i < len(b) {
		r, size := utf8.DecodeRune(b[i:])
		if !pred(r) {
			break
		}
		i += size
	}
	return i
}

func (c *Controller) deleteWordForward(now time.Time) {
	start := c.buf.Cursor()
	end := c.wordRight()
	if end <= start {
		return
	}
	killed := append([]byte(nil), c.buf.AsBytes()[start:end]...)
	if c.buf.Delete(start, end-start) == nil {
		c.pushKill(killed)
		c.undo.Push(undologDelete(start, killed, now))
	}
}

func (c *Controller) deleteWordBackward(now time.Time) {
	end := c.buf.Cursor()
	start := c.wordLeft()
	if start >= end {
		return
	}
	killed := append([]byte(nil), c.buf.AsBytes()[start:end]...)
	if c.buf.Delete(start, end-start) == nil {
		c.pushKill(killed)
		c.undo.Push(undologDelete(start, killed, now))
	}
}

// transposeChars implements Ctrl-T: swap the two characters around the
// cursor and advance it, the standard readline transpose-chars.
func (c *Controller) transposeChars() {
	b := c.buf.AsBytes()
	cur := c.buf.Cursor()
	if cur == 0 || cur > len(b) {
		return
	}
	prevStart := c.buf.PrevCharBoundary(cur)
	afterStart := cur
	afterEnd := c.buf.NextCharBoundary(cur)
	if afterEnd == cur {
		// Cursor at end of buffer: swap the two preceding characters.
		midStart := c.buf.PrevCharBoundary(prevStart)
		if midStart == prevStart {
			return
		}
		swapped := append([]byte(nil), b[prevStart:cur]...)
		swapped = append(swapped, b[midStart:prevStart]...)
		old := append([]byte(nil), b[midStart:cur]...)
		c.buf.Replace(joinParts(b[:midStart], swapped, b[cur:]))
		_ = c.buf.SetCursor(midStart + len(swapped))
		c.undo.Push(undolog.Action{Kind: undolog.Replace, Offset: midStart, Text: swapped, OldText: old, Timestamp: time.Now()})
		return
	}
	swapped := append([]byte(nil), b[afterStart:afterEnd]...)
	swapped = append(swapped, b[prevStart:afterStart]...)
	old := append([]byte(nil), b[prevStart:afterEnd]...)
	newBytes := joinParts(b[:prevStart], swapped, b[afterEnd:])
	c.buf.Replace(newBytes)
	_ = c.buf.SetCursor(prevStart + len(swapped))
	c.undo.Push(undolog.Action{Kind: undolog.Replace, Offset: prevStart, Text: swapped, OldText: old, Timestamp: time.Now()})
}

// transposeWord implements Alt-T: swap the word before the cursor with
// the word before that one.
func (c *Controller) transposeWord() {
	b := c.buf.AsBytes()
	cur := c.buf.Cursor()
	end2 := skipBackWhile(b, cur, func(r rune) bool { return !isWordRune(r) })
	start2 := skipBackWhile(b, end2, isWordRune)
	if start2 == end2 {
		return
	}
	end1 := skipBackWhile(b, start2, func(r rune) bool { return !isWordRune(r) })
	start1 := skipBackWhile(b, end1, isWordRune)
	if start1 == end1 {
		return
	}
	gap := append([]byte(nil), b[end1:start2]...)
	w1 := append([]byte(nil), b[start1:end1]...)
	w2 := append([]byte(nil), b[start2:end2]...)
	old := append([]byte(nil), b[start1:end2]...)
	newText := joinParts(w2, gap, w1)
	newBytes := joinParts(b[:start1], newText, b[end2:])
	c.buf.Replace(newBytes)
	_ = c.buf.SetCursor(start1 + len(newText))
	c.undo.Push(undolog.Action{Kind: undolog.Replace, Offset: start1, Text: newText, OldText: old, Timestamp: time.Now()})
}

func joinParts(parts ...[]byte) []byte {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]byte, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

type caseOp int

const (
	caseUpper caseOp = iota
	caseLower
	caseCapitalize
)

// transformWord implements Alt-U/Alt-L/Alt-C: upcase/downcase/capitalize
// the word starting at (or after) the cursor, then advance past it.
func (c *Controller) transformWord(op caseOp) {
	b := c.buf.AsBytes()
	start := skipForwardWhile(b, c.buf.Cursor(), func(r rune) bool { return !isWordRune(r) })
	end := skipForwardWhile(b, start, isWordRune)
	if start == end {
		return
	}
	word := []rune(string(b[start:end]))
	for i, r := range word {
		switch op {
		case caseUpper:
			word[i] = unicode.ToUpper(r)
		case caseLower:
			word[i] = unicode.ToLower(r)
		case caseCapitalize:
			if i == 0 {
				word[i] = unicode.ToUpper(r)
			} else {
				word[i] = unicode.ToLower(r)
			}
		}
	}
	newWord := []byte(string(word))
	old := append([]byte(nil), b[start:end]...)
	newBytes := joinParts(b[:start], newWord, b[end:])
	c.buf.Replace(newBytes)
	_ = c.buf.SetCursor(start + len(newWord))
	c.undo.Push(undolog.Action{Kind: undolog.Replace, Offset: start, Text: newWord, OldText: old, Timestamp: time.Now()})
}
