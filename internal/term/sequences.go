package term

import "fmt"

// Pre-compiled escape sequence vocabulary. spec.md §4.3/§6 requires the
// editor to emit only byte-exact sequences from this whitelist — no
// sequence is built ad hoc elsewhere in the display pipeline.
var (
	SeqReset        = []byte("\x1b[0m")
	SeqEraseToEOL   = []byte("\x1b[K")
	SeqEraseLine    = []byte("\x1b[2K")
	SeqEraseToBOL   = []byte("\x1b[1K")
	SeqEraseToEOS   = []byte("\x1b[J")
	SeqCursorHome   = []byte("\x1b[H")
	SeqHideCursor   = []byte("\x1b[?25l")
	SeqShowCursor   = []byte("\x1b[?25h")
	SeqDSR          = []byte("\x1b[6n")
	SeqBPasteOn     = []byte("\x1b[?2004h")
	SeqBPasteOff    = []byte("\x1b[?2004l")
	SeqAltScreenOn  = []byte("\x1b[?1049h")
	SeqAltScreenOff = []byte("\x1b[?1049l")
)

// CursorUp/Down/Forward/Back return the ESC[N<dir> motion sequence.
// n<=0 returns nil (no-op).
func CursorUp(n int) []byte    { return cursorMove(n, 'A') }
func CursorDown(n int) []byte  { return cursorMove(n, 'B') }
func CursorRight(n int) []byte { return cursorMove(n, 'C') }
func CursorLeft(n int) []byte  { return cursorMove(n, 'D') }

func cursorMove(n int, dir byte) []byte {
	if n <= 0 {
		return nil
	}
	return []byte(fmt.Sprintf("\x1b[%d%c", n, dir))
}

// CursorColumn returns ESC[N G, absolute column positioning (1-indexed).
func CursorColumn(col int) []byte {
	return []byte(fmt.Sprintf("\x1b[%dG", col+1))
}

// CursorTo returns ESC[row;colH, absolute positioning (1-indexed).
func CursorTo(row, col int) []byte {
	return []byte(fmt.Sprintf("\x1b[%d;%dH", row+1, col+1))
}

// Color16 returns the SGR sequence for one of the 16 basic colors.
// fg selects foreground (30-37/90-97) vs background (40-47/100-107).
func Color16(index uint8, fg bool) []byte {
	base := 30
	if !fg {
		base = 40
	}
	if index >= 8 {
		base += 60
		index -= 8
	}
	return []byte(fmt.Sprintf("\x1b[%dm", base+int(index)))
}

// Color256 returns the ESC[38;5;Nm / ESC[48;5;Nm sequence.
func Color256(index uint8, fg bool) []byte {
	kind := 38
	if !fg {
		kind = 48
	}
	return []byte(fmt.Sprintf("\x1b[%d;5;%dm", kind, index))
}

// ColorRGB returns the ESC[38;2;R;G;Bm / ESC[48;2;R;G;Bm truecolor sequence.
func ColorRGB(r, g, b uint8, fg bool) []byte {
	kind := 38
	if !fg {
		kind = 48
	}
	return []byte(fmt.Sprintf("\x1b[%d;2;%d;%d;%dm", kind, r, g, b))
}
