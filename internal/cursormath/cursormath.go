// Package cursormath maps a byte offset into a buffer, together with
// prompt geometry, to a terminal (row, col) position — tracking soft
// wrap boundaries the same way the display model must when it renders
// the buffer, so the two always agree (spec.md §4.7/§8).
package cursormath

import (
	"github.com/mattn/go-runewidth"

	"github.com/kungfusheep/shellline/internal/utf8scan"
)

// Geometry is the subset of terminal/prompt dimensions cursor math
// needs.
type Geometry struct {
	Width           int
	PromptLastWidth int
}

// Position is the resolved cursor location, both relative to the
// prompt's first character and absolute within the wrapped render.
type Position struct {
	RelativeRow int
	RelativeCol int
	AtBoundary  bool
	Valid       bool
}

// Resolve walks bytes up to cursorByte, tracking soft wraps exactly as
// the display model's full render does, and returns the resulting
// cursor position.
func Resolve(bytes []byte, cursorByte int, geo Geometry) Position {
	row, col := 0, geo.PromptLastWidth
	i := 0
	atBoundary := false

	for i < cursorByte && i < len(bytes) {
		n := utf8scan.ExpectedLength(bytes[i])
		if n == 0 || i+n > len(bytes) {
			return Position{Valid: false}
		}
		for k := 1; k < n; k++ {
			if !utf8scan.IsContinuation(bytes[i+k]) {
				return Position{Valid: false}
			}
		}
		if bytes[i] == '\n' {
			row++
			col = 0
			atBoundary = true
			i++
			continue
		}
		if geo.Width > 0 && col >= geo.Width {
			row++
			col = 0
			atBoundary = true
		} else {
			atBoundary = false
		}
		col += runeWidthAt(bytes, i, n)
		i += n
	}

	return Position{
		RelativeRow: row,
		RelativeCol: col,
		AtBoundary:  atBoundary && col == 0,
		Valid:       true,
	}
}

func runeWidthAt(b []byte, i, n int) int {
	r := decodeRuneAt(b, i, n)
	w := runewidth.RuneWidth(r)
	if w <= 0 {
		w = 1
	}
	return w
}

func decodeRuneAt(b []byte, i, n int) rune {
	switch n {
	case 1:
		return rune(b[i])
	case 2:
		return rune(b[i]&0x1F)<<6 | rune(b[i+1]&0x3F)
	case 3:
		return rune(b[i]&0x0F)<<12 | rune(b[i+1]&0x3F)<<6 | rune(b[i+2]&0x3F)
	case 4:
		return rune(b[i]&0x07)<<18 | rune(b[i+1]&0x3F)<<12 | rune(b[i+2]&0x3F)<<6 | rune(b[i+3]&0x3F)
	default:
		return ' '
	}
}
