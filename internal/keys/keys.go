// Package keys decodes raw terminal bytes into key events: UTF-8
// characters, control bytes, and multi-byte CSI/SS3 escape sequences.
// It is the one place in the editor allowed to know about escape
// sequence timing and byte layout.
package keys

import (
	"time"

	"github.com/kungfusheep/shellline/internal/utf8scan"
)

// Kind classifies a decoded key event.
type Kind int

const (
	KindChar Kind = iota
	KindNamed
	KindUnknown
)

// NamedKey enumerates non-character keys the decoder recognizes.
type NamedKey int

const (
	NamedNone NamedKey = iota
	Backspace
	Enter
	Tab
	Escape
	ArrowLeft
	ArrowRight
	ArrowUp
	ArrowDown
	Home
	End
	PageUp
	PageDown
	Insert
	Delete
	F1
	F2
	F3
	F4
	F5
	F6
	F7
	F8
	F9
	F10
	F11
	F12
	CtrlLetter // modifiers.Ctrl + codepoint holds which letter
	AltB
	AltF
	AltD
	AltDot
	AltUnderscore
	AltBackspace
	AltT
	AltU
	AltL
	AltC
	AltP
	AltN
	AltY
	ShiftTab
	CtrlArrowLeft
	CtrlArrowRight
	CtrlUnderscore // Ctrl-_ (0x1F), the readline undo binding
)

// Modifiers is a bitset of held modifier keys as inferred from the byte
// sequence (terminals rarely report shift/super on plain keys; these
// are best-effort).
type Modifiers struct {
	Ctrl  bool
	Alt   bool
	Shift bool
	Super bool
}

// Event is a single decoded key event.
type Event struct {
	Kind      Kind
	Codepoint rune // valid when Kind == KindChar
	Named     NamedKey
	Mods      Modifiers
	Raw       [16]byte
	RawLen    int
	Timestamp time.Time
}

func (e Event) rawBytes() []byte { return e.Raw[:e.RawLen] }

// ByteSource is the minimal blocking/timeout read contract the decoder
// needs; internal/term.Terminal satisfies it.
type ByteSource interface {
	ReadByte() (byte, error)
	ReadByteTimeout(d time.Duration) (b byte, ok bool, err error)
}

// EscapeTimeout is the short window given to complete an escape
// sequence or a UTF-8 continuation run once the lead byte has arrived.
const EscapeTimeout = 50 * time.Millisecond

// Decoder reads one logical key event per call to ReadKey.
type Decoder struct {
	src ByteSource
	now func() time.Time
}

// New returns a decoder reading from src. nowFn defaults to time.Now
// if nil; tests may inject a deterministic clock.
func New(src ByteSource, nowFn func() time.Time) *Decoder {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Decoder{src: src, now: nowFn}
}

// ReadKey blocks on the byte source until one logical key event can be
// produced.
func (d *Decoder) ReadKey() (Event, error) {
	b, err := d.src.ReadByte()
	if err != nil {
		return Event{}, err
	}
	return d.decode(b)
}

func (d *Decoder) decode(first byte) (Event, error) {
	ev := Event{Timestamp: d.now()}
	ev.Raw[0] = first
	ev.RawLen = 1

	switch {
	case first == 0x1B:
		return d.decodeEscape(ev)
	case first < 0x20:
		return d.decodeControl(ev, first), nil
	case first == 0x7F:
		ev.Kind = KindNamed
		ev.Named = Backspace
		return ev, nil
	case first >= 0x20 && first <= 0x7E:
		ev.Kind = KindChar
		ev.Codepoint = rune(first)
		return ev, nil
	case first >= 0xC0 && first <= 0xF4:
		return d.decodeUTF8(ev, first)
	default:
		ev.Kind = KindUnknown
		return ev, nil
	}
}

func (d *Decoder) decodeControl(ev Event, b byte) Event {
	switch b {
	case 0x08:
		ev.Kind = KindNamed
		ev.Named = Backspace
	case 0x09:
		ev.Kind = KindNamed
		ev.Named = Tab
	case 0x0A, 0x0D:
		ev.Kind = KindNamed
		ev.Named = Enter
	case 0x1F:
		ev.Kind = KindNamed
		ev.Named = CtrlUnderscore
	default:
		ev.Kind = KindNamed
		ev.Named = CtrlLetter
		ev.Mods.Ctrl = true
		ev.Codepoint = rune(b + 'a' - 1) // Ctrl-A=1 -> 'a'
	}
	return ev
}

func (d *Decoder) decodeUTF8(ev Event, first byte) (Event, error) {
	n := utf8scan.ExpectedLength(first)
	if n == 0 || n == 1 {
		ev.Kind = KindUnknown
		return ev, nil
	}
	buf := make([]byte, 0, n)
	buf = append(buf, first)
	for i := 1; i < n; i++ {
		b, ok, err := d.src.ReadByteTimeout(EscapeTimeout)
		if err != nil {
			return Event{}, err
		}
		if !ok || !utf8scan.IsContinuation(b) {
			ev.Kind = KindUnknown
			return ev, nil
		}
		buf = append(buf, b)
		if ev.RawLen < len(ev.Raw) {
			ev.Raw[ev.RawLen] = b
			ev.RawLen++
		}
	}
	r := decodeRune(buf)
	if r < 0 {
		ev.Kind = KindUnknown
		return ev, nil
	}
	ev.Kind = KindChar
	ev.Codepoint = r
	return ev, nil
}

// decodeRune manually decodes a validated multi-byte UTF-8 sequence
// (length already confirmed by the caller) without depending on the
// unicode/utf8 package's own boundary re-validation.
func decodeRune(b []byte) rune {
	switch len(b) {
	case 2:
		return rune(b[0]&0x1F)<<6 | rune(b[1]&0x3F)
	case 3:
		return rune(b[0]&0x0F)<<12 | rune(b[1]&0x3F)<<6 | rune(b[2]&0x3F)
	case 4:
		return rune(b[0]&0x07)<<18 | rune(b[1]&0x3F)<<12 | rune(b[2]&0x3F)<<6 | rune(b[3]&0x3F)
	default:
		return -1
	}
}

func (d *Decoder) appendRaw(ev *Event, b byte) {
	if ev.RawLen < len(ev.Raw) {
		ev.Raw[ev.RawLen] = b
		ev.RawLen++
	}
}

func (d *Decoder) readTimeout(ev *Event) (byte, bool) {
	b, ok, err := d.src.ReadByteTimeout(EscapeTimeout)
	if err != nil || !ok {
		return 0, false
	}
	d.appendRaw(ev, b)
	return b, true
}

func (d *Decoder) decodeEscape(ev Event) (Event, error) {
	second, ok := d.readTimeout(&ev)
	if !ok {
		// Lone ESC.
		ev.Kind = KindNamed
		ev.Named = Escape
		return ev, nil
	}

	switch second {
	case '[':
		return d.decodeCSI(ev)
	case 'O':
		return d.decodeSS3(ev)
	case 'b':
		ev.Kind, ev.Named, ev.Mods.Alt = KindNamed, AltB, true
		return ev, nil
	case 'f':
		ev.Kind, ev.Named, ev.Mods.Alt = KindNamed, AltF, true
		return ev, nil
	case 'd':
		ev.Kind, ev.Named, ev.Mods.Alt = KindNamed, AltD, true
		return ev, nil
	case '.':
		ev.Kind, ev.Named, ev.Mods.Alt = KindNamed, AltDot, true
		return ev, nil
	case '_':
		ev.Kind, ev.Named, ev.Mods.Alt = KindNamed, AltUnderscore, true
		return ev, nil
	case 't':
		ev.Kind, ev.Named, ev.Mods.Alt = KindNamed, AltT, true
		return ev, nil
	case 'u':
		ev.Kind, ev.Named, ev.Mods.Alt = KindNamed, AltU, true
		return ev, nil
	case 'l':
		ev.Kind, ev.Named, ev.Mods.Alt = KindNamed, AltL, true
		return ev, nil
	case 'c':
		ev.Kind, ev.Named, ev.Mods.Alt = KindNamed, AltC, true
		return ev, nil
	case 'p':
		ev.Kind, ev.Named, ev.Mods.Alt = KindNamed, AltP, true
		return ev, nil
	case 'n':
		ev.Kind, ev.Named, ev.Mods.Alt = KindNamed, AltN, true
		return ev, nil
	case 'y':
		ev.Kind, ev.Named, ev.Mods.Alt = KindNamed, AltY, true
		return ev, nil
	case 0x7F:
		ev.Kind, ev.Named, ev.Mods.Alt = KindNamed, AltBackspace, true
		return ev, nil
	default:
		ev.Kind = KindUnknown
		return ev, nil
	}
}

func (d *Decoder) decodeSS3(ev Event) (Event, error) {
	b, ok := d.readTimeout(&ev)
	if !ok {
		ev.Kind = KindUnknown
		return ev, nil
	}
	switch b {
	case 'P':
		ev.Kind, ev.Named = KindNamed, F1
	case 'Q':
		ev.Kind, ev.Named = KindNamed, F2
	case 'R':
		ev.Kind, ev.Named = KindNamed, F3
	case 'S':
		ev.Kind, ev.Named = KindNamed, F4
	default:
		ev.Kind = KindUnknown
	}
	return ev, nil
}

func (d *Decoder) decodeCSI(ev Event) (Event, error) {
	var params []byte
	for {
		b, ok := d.readTimeout(&ev)
		if !ok {
			ev.Kind = KindUnknown
			return ev, nil
		}
		if b >= '0' && b <= '9' || b == ';' {
			params = append(params, b)
			continue
		}
		return d.finishCSI(ev, params, b)
	}
}

func (d *Decoder) finishCSI(ev Event, params []byte, final byte) (Event, error) {
	p := string(params)
	switch final {
	case 'A':
		ev.Kind, ev.Named = KindNamed, ArrowUp
	case 'B':
		ev.Kind, ev.Named = KindNamed, ArrowDown
	case 'C':
		ev.Named = pickArrow(p, ArrowRight, CtrlArrowRight)
		ev.Kind = KindNamed
	case 'D':
		ev.Named = pickArrow(p, ArrowLeft, CtrlArrowLeft)
		ev.Kind = KindNamed
	case 'H':
		ev.Kind, ev.Named = KindNamed, Home
	case 'F':
		ev.Kind, ev.Named = KindNamed, End
	case 'Z':
		ev.Kind, ev.Named = KindNamed, ShiftTab
	case '~':
		ev.Kind = KindNamed
		ev.Named = tildeNamed(p)
	default:
		ev.Kind = KindUnknown
	}
	return ev, nil
}

func pickArrow(p string, plain, ctrl NamedKey) NamedKey {
	if ctrl != 0 && p == "1;5" {
		return ctrl
	}
	return plain
}

func tildeNamed(p string) NamedKey {
	switch p {
	case "1", "7":
		return Home
	case "4", "8":
		return End
	case "2":
		return Insert
	case "3":
		return Delete
	case "5":
		return PageUp
	case "6":
		return PageDown
	case "15":
		return F5
	case "17":
		return F6
	case "18":
		return F7
	case "19":
		return F8
	case "20":
		return F9
	case "21":
		return F10
	case "23":
		return F11
	case "24":
		return F12
	default:
		return NamedNone
	}
}
