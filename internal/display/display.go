// Package display computes the smallest correct terminal write sequence
// to move the visible line-editor display from its last known state to
// a target state, adapted from kungfusheep/glyph's screen.go diff/flush
// model (there built for a full alternate-screen TUI; here narrowed to
// a single soft-wrapped inline prompt line, spec.md §4.8).
package display

import (
	"bytes"
	"strconv"

	"github.com/mattn/go-runewidth"

	"github.com/kungfusheep/shellline/internal/cursormath"
	"github.com/kungfusheep/shellline/internal/syntax"
	"github.com/kungfusheep/shellline/internal/term"
)

// Footprint describes how much terminal space a render occupied.
type Footprint struct {
	RowsUsed int
	EndCol   int
	Wrapped  bool
}

// Model holds the "last known state" the renderer diffs new frames
// against. Zero value is ready to use for a fresh render session.
type Model struct {
	lastFootprint Footprint
	lastContent   string // last rendered prompt+buffer bytes, as string
	lastStyle     Style
	scrolledOnce  bool
	needsFull     bool
}

// Frame is everything the renderer needs to know about to produce one
// display update.
type Frame struct {
	Prompt      string
	Buffer      []byte
	CursorByte  int
	Regions     []syntax.Region
	Theme       Theme
	Highlight   bool
	Geometry    cursormath.Geometry
	ScreenRows  int // total terminal rows, for bottom-line protection
}

// Invalidate forces the next Render call to perform a full render,
// used after SIGWINCH or any suspected terminal/model divergence.
func (m *Model) Invalidate() { m.needsFull = true }

// Render emits the minimal correct write sequence for f to w and
// updates m's recorded state. On write failure, m is marked as needing
// a full render on the next call and the error is returned.
func (m *Model) Render(w *term.Terminal, f Frame) error {
	content := f.Prompt + string(f.Buffer)
	pos := cursormath.Resolve(f.Buffer, f.CursorByte, f.Geometry)
	if !pos.Valid {
		m.needsFull = true
		return m.fullRender(w, f, content, pos)
	}

	if m.needsFull {
		return m.fullRender(w, f, content, pos)
	}

	if m.tryIncremental(f, content, pos) {
		return m.incrementalRender(w, f, content, pos)
	}

	if content == m.lastContent {
		return m.cursorOnlyRender(w, pos)
	}

	return m.fullRender(w, f, content, pos)
}

// tryIncremental implements the "exact prefix match plus identical
// footprint" gate from spec.md §4.8 mode 3.
func (m *Model) tryIncremental(f Frame, content string, pos cursormath.Position) bool {
	if len(content) != len(m.lastContent)+1 {
		return false
	}
	if content[:len(m.lastContent)] != m.lastContent {
		return false
	}
	if pos.AtBoundary {
		return false
	}
	if measureFootprint(content, f.Geometry).RowsUsed != m.lastFootprint.RowsUsed {
		return false
	}
	if f.Highlight && reclassifiesPrefix(f.Regions, len(m.lastContent)) {
		return false
	}
	return true
}

// reclassifiesPrefix reports whether appending a character could have
// changed the classification of any byte before boundary — e.g. typing
// a closing quote retroactively colors the whole string. Conservative:
// any region whose span crosses boundary forces a full render.
func reclassifiesPrefix(regions []syntax.Region, boundary int) bool {
	for _, r := range regions {
		if r.ByteStart < boundary && r.ByteStart+r.ByteLen > boundary {
			return true
		}
	}
	return false
}

func (m *Model) fullRender(w *term.Terminal, f Frame, content string, pos cursormath.Position) error {
	var buf bytes.Buffer
	buf.WriteByte('\r')
	if m.lastFootprint.RowsUsed > 1 {
		buf.Write(term.CursorUp(m.lastFootprint.RowsUsed - 1))
	}
	buf.Write(term.SeqEraseToEOS)

	buf.WriteString(f.Prompt)
	styled := m.writeBuffer(&buf, f)

	footprint := measureFootprint(content, f.Geometry)
	m.maybeScrollForBottomLine(&buf, f, footprint)

	buf.WriteByte('\r')
	if pos.RelativeRow > 0 {
		buf.Write(term.CursorDown(pos.RelativeRow))
	}
	if pos.RelativeCol > 0 {
		buf.Write(term.CursorRight(pos.RelativeCol))
	}

	w.WriteBytes(buf.Bytes())
	if err := w.Flush(); err != nil {
		m.needsFull = true
		return err
	}

	m.lastContent = content
	m.lastFootprint = footprint
	if styled {
		m.lastStyle = Style{}
	}
	m.needsFull = false
	return nil
}

func (m *Model) incrementalRender(w *term.Terminal, f Frame, content string, pos cursormath.Position) error {
	added := content[len(m.lastContent):]
	var buf bytes.Buffer
	if f.Highlight {
		st := styleForByte(f.Regions, f.Theme, len(m.lastContent))
		writeStyleDiff(&buf, m.lastStyle, st)
		m.lastStyle = st
	}
	buf.WriteString(added)

	w.WriteBytes(buf.Bytes())
	if err := w.Flush(); err != nil {
		m.needsFull = true
		return err
	}

	m.lastContent = content
	m.lastFootprint.EndCol += runewidth.StringWidth(added)
	return nil
}

func (m *Model) cursorOnlyRender(w *term.Terminal, pos cursormath.Position) error {
	var buf bytes.Buffer
	buf.WriteByte('\r')
	if pos.RelativeRow > 0 {
		buf.Write(term.CursorDown(pos.RelativeRow))
	}
	if pos.RelativeCol > 0 {
		buf.Write(term.CursorRight(pos.RelativeCol))
	}
	w.WriteBytes(buf.Bytes())
	if err := w.Flush(); err != nil {
		m.needsFull = true
		return err
	}
	return nil
}

// ClearForOverlay implements spec.md §4.8 mode 4, used when entering
// reverse-search or tearing down a completion menu: erase exactly the
// rows the last footprint used above the prompt row, plus a final
// erase-line of the prompt row, leaving the cursor at its start.
func (m *Model) ClearForOverlay(w *term.Terminal) error {
	var buf bytes.Buffer
	buf.WriteByte('\r')
	for i := 0; i < m.lastFootprint.RowsUsed-1; i++ {
		buf.Write(term.SeqEraseLine)
		buf.Write(term.CursorUp(1))
	}
	buf.Write(term.SeqEraseLine)
	w.WriteBytes(buf.Bytes())
	if err := w.Flush(); err != nil {
		return err
	}
	m.lastContent = ""
	m.lastFootprint = Footprint{}
	m.needsFull = true
	return nil
}

func (m *Model) writeBuffer(buf *bytes.Buffer, f Frame) bool {
	if !f.Highlight || len(f.Regions) == 0 {
		buf.Write(f.Buffer)
		return false
	}
	pos := 0
	styled := false
	for _, r := range f.Regions {
		if r.ByteStart > pos {
			writeStyleDiff(buf, m.lastStyle, f.Theme.Normal)
			m.lastStyle = f.Theme.Normal
			buf.Write(f.Buffer[pos:r.ByteStart])
			styled = true
		}
		st := f.Theme.StyleFor(r.Kind)
		writeStyleDiff(buf, m.lastStyle, st)
		m.lastStyle = st
		buf.Write(f.Buffer[r.ByteStart : r.ByteStart+r.ByteLen])
		pos = r.ByteStart + r.ByteLen
		styled = true
	}
	if pos < len(f.Buffer) {
		writeStyleDiff(buf, m.lastStyle, f.Theme.Normal)
		m.lastStyle = f.Theme.Normal
		buf.Write(f.Buffer[pos:])
		styled = true
	}
	if styled {
		buf.Write(term.SeqReset)
		m.lastStyle = Style{}
	}
	return styled
}

func styleForByte(regions []syntax.Region, th Theme, offset int) Style {
	for _, r := range regions {
		if offset >= r.ByteStart && offset < r.ByteStart+r.ByteLen {
			return th.StyleFor(r.Kind)
		}
	}
	return th.Normal
}

// maybeScrollForBottomLine implements the bottom-line protection policy:
// if this render would place content on the terminal's last row, scroll
// once (newline) so future redraws never push the prompt off-screen.
func (m *Model) maybeScrollForBottomLine(buf *bytes.Buffer, f Frame, fp Footprint) {
	if m.scrolledOnce || f.ScreenRows <= 0 {
		return
	}
	if fp.RowsUsed >= f.ScreenRows {
		buf.WriteByte('\n')
		m.scrolledOnce = true
	}
}

func measureFootprint(content string, geo cursormath.Geometry) Footprint {
	if geo.Width <= 0 {
		return Footprint{RowsUsed: 1, EndCol: runewidth.StringWidth(content)}
	}
	row, col := 0, 0
	wrapped := false
	for _, r := range content {
		if r == '\n' {
			row++
			col = 0
			continue
		}
		w := runewidth.RuneWidth(r)
		if w <= 0 {
			w = 1
		}
		if col+w > geo.Width {
			row++
			col = 0
			wrapped = true
		}
		col += w
	}
	return Footprint{RowsUsed: row + 1, EndCol: col, Wrapped: wrapped}
}

func writeStyleDiff(buf *bytes.Buffer, from, to Style) {
	if from.Equal(to) {
		return
	}
	buf.WriteString("\x1b[0")
	if to.Attr.Has(AttrBold) {
		buf.WriteString(";1")
	}
	if to.Attr.Has(AttrDim) {
		buf.WriteString(";2")
	}
	if to.Attr.Has(AttrItalic) {
		buf.WriteString(";3")
	}
	if to.Attr.Has(AttrUnderline) {
		buf.WriteString(";4")
	}
	if to.Attr.Has(AttrInverse) {
		buf.WriteString(";7")
	}
	writeColor(buf, to.FG, true)
	writeColor(buf, to.BG, false)
	buf.WriteString("m")
}

func writeColor(buf *bytes.Buffer, c Color, fg bool) {
	switch c.Mode {
	case ColorDefault:
		if fg {
			buf.WriteString(";39")
		} else {
			buf.WriteString(";49")
		}
	case Color16:
		base := 30
		if !fg {
			base = 40
		}
		if c.Index >= 8 {
			base += 60
			buf.WriteByte(';')
			buf.WriteString(strconv.Itoa(base + int(c.Index) - 8))
		} else {
			buf.WriteByte(';')
			buf.WriteString(strconv.Itoa(base + int(c.Index)))
		}
	case Color256:
		if fg {
			buf.WriteString(";38;5;")
		} else {
			buf.WriteString(";48;5;")
		}
		buf.WriteString(strconv.Itoa(int(c.Index)))
	case ColorRGB:
		if fg {
			buf.WriteString(";38;2;")
		} else {
			buf.WriteString(";48;2;")
		}
		buf.WriteString(strconv.Itoa(int(c.R)))
		buf.WriteByte(';')
		buf.WriteString(strconv.Itoa(int(c.G)))
		buf.WriteByte(';')
		buf.WriteString(strconv.Itoa(int(c.B)))
	}
}

