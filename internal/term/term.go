// Package term owns the terminal's raw-mode lifecycle, write batching,
// and the byte-exact escape sequence vocabulary the rest of the editor
// is allowed to emit. Grounded on the raw-mode ioctl dance in
// kungfusheep/glyph's screen.go, adapted for inline (non alt-screen)
// line editing instead of full-screen TUI takeover.
package term

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// ErrFatal wraps a write/read failure that should terminate the edit
// session (FD closed, EIO) rather than be retried.
var ErrFatal = errors.New("term: fatal I/O error")

// ErrCursorQueryTimeout is returned by QueryCursorPosition when no DSR
// response arrives within the timeout.
var ErrCursorQueryTimeout = errors.New("term: cursor position query timed out")

// Size is the terminal's column/row dimensions.
type Size struct {
	Width  int
	Height int
}

// Terminal owns the raw-mode lifecycle of a single POSIX tty and
// batches writes for the display model to flush each tick.
type Terminal struct {
	in  *os.File
	out *os.File
	fd  int

	mu          sync.Mutex
	origTermios *unix.Termios
	inRawMode   bool

	out_buf bytes.Buffer

	reader *bufio.Reader

	size      Size
	sizeValid bool

	sigWinch chan os.Signal
	resized  chan struct{}
}

// New wraps the given in/out files (normally os.Stdin/os.Stdout) as a
// raw-mode-capable terminal.
func New(in, out *os.File) *Terminal {
	return &Terminal{
		in:       in,
		out:      out,
		fd:       int(out.Fd()),
		reader:   bufio.NewReaderSize(in, 64),
		sigWinch: make(chan os.Signal, 1),
		resized:  make(chan struct{}, 1),
	}
}

// EnterRawMode acquires the terminal: ICANON/ECHO/ISIG off, VMIN=1,
// VTIME=0. It installs a SIGWINCH watcher. Callers MUST pair this with
// a deferred Restore on every exit path, including panics.
func (t *Terminal) EnterRawMode() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inRawMode {
		return nil
	}

	fd := int(t.in.Fd())
	termios, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return fmt.Errorf("term: get termios: %w", err)
	}
	t.origTermios = termios

	raw := *termios
	raw.Iflag &^= unix.BRKINT | unix.ICRNL | unix.INPCK | unix.ISTRIP | unix.IXON
	raw.Oflag &^= unix.OPOST
	raw.Cflag |= unix.CS8
	raw.Lflag &^= unix.ECHO | unix.ICANON | unix.ISIG | unix.IEXTEN
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, &raw); err != nil {
		return fmt.Errorf("term: set raw mode: %w", err)
	}

	t.inRawMode = true
	signal.Notify(t.sigWinch, syscall.SIGWINCH)
	go t.watchResize()

	t.invalidateSizeLocked()
	return nil
}

// Restore returns the terminal to its original (cooked) mode. Safe to
// call multiple times and from a signal handler.
func (t *Terminal) Restore() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.inRawMode {
		return nil
	}
	signal.Stop(t.sigWinch)

	var err error
	if t.origTermios != nil {
		fd := int(t.in.Fd())
		if e := unix.IoctlSetTermios(fd, ioctlSetTermios, t.origTermios); e != nil {
			err = fmt.Errorf("term: restore termios: %w", e)
		}
	}
	t.inRawMode = false
	return err
}

func (t *Terminal) watchResize() {
	for range t.sigWinch {
		select {
		case t.resized <- struct{}{}:
		default:
		}
	}
}

// ResizeChan signals once per SIGWINCH batch; the controller drains it
// at the top of its tick and forces a full render.
func (t *Terminal) ResizeChan() <-chan struct{} { return t.resized }

// WriteBytes appends buf to the pending output batch. Call Flush (or
// let the editor tick auto-flush) to send it.
func (t *Terminal) WriteBytes(buf []byte) {
	t.mu.Lock()
	t.out_buf.Write(buf)
	t.mu.Unlock()
}

// Flush writes the pending batch to the terminal, retrying on EINTR
// and short writes. A write returning EIO is reported as ErrFatal.
func (t *Terminal) Flush() error {
	t.mu.Lock()
	data := t.out_buf.Bytes()
	pending := append([]byte(nil), data...)
	t.out_buf.Reset()
	t.mu.Unlock()

	for len(pending) > 0 {
		n, err := t.out.Write(pending)
		if n > 0 {
			pending = pending[n:]
		}
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			if errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed) {
				return fmt.Errorf("%w: %v", ErrFatal, err)
			}
			return err
		}
	}
	return nil
}

// Size returns the cached terminal geometry, refreshed on SIGWINCH and
// on InvalidateSize.
func (t *Terminal) Size() (Size, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sizeValid {
		return t.size, nil
	}
	return t.refreshSizeLocked()
}

// InvalidateSize forces the next Size() call to re-query the kernel.
func (t *Terminal) InvalidateSize() {
	t.mu.Lock()
	t.sizeValid = false
	t.mu.Unlock()
}

func (t *Terminal) invalidateSizeLocked() {
	t.sizeValid = false
}

func (t *Terminal) refreshSizeLocked() (Size, error) {
	ws, err := unix.IoctlGetWinsize(t.fd, unix.TIOCGWINSZ)
	if err != nil {
		return Size{Width: 80, Height: 24}, fmt.Errorf("term: get winsize: %w", err)
	}
	t.size = Size{Width: int(ws.Col), Height: int(ws.Row)}
	t.sizeValid = true
	return t.size, nil
}

// ReadByte reads a single raw byte from stdin, blocking until one
// arrives. EINTR is retried transparently.
func (t *Terminal) ReadByte() (byte, error) {
	for {
		b, err := t.reader.ReadByte()
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return 0, err
		}
		return b, nil
	}
}

// ReadByteTimeout reads one byte with a bounded wait, used to complete
// escape sequences and UTF-8 continuation runs. It returns
// (0, false, nil) on timeout with no error.
func (t *Terminal) ReadByteTimeout(d time.Duration) (b byte, ok bool, err error) {
	if t.reader.Buffered() > 0 {
		b, err = t.reader.ReadByte()
		return b, err == nil, err
	}

	fd := int(t.in.Fd())
	fdSet := &unix.FdSet{}
	fdSet.Set(fd)
	tv := unix.NsecToTimeval(d.Nanoseconds())
	n, serr := unix.Select(fd+1, fdSet, nil, nil, &tv)
	if serr != nil {
		if errors.Is(serr, syscall.EINTR) {
			return 0, false, nil
		}
		return 0, false, serr
	}
	if n == 0 {
		return 0, false, nil
	}
	b, err = t.reader.ReadByte()
	return b, err == nil, err
}

// QueryCursorPosition emits DSR (ESC [ 6 n) and parses the
// ESC [ row ; col R response with a bounded timeout. Callers MUST have
// a fallback path for ErrCursorQueryTimeout.
func (t *Terminal) QueryCursorPosition(timeout time.Duration) (row, col int, err error) {
	t.WriteBytes(SeqDSR)
	if ferr := t.Flush(); ferr != nil {
		return 0, 0, ferr
	}

	deadline := time.Now().Add(timeout)
	var buf []byte
	state := 0 // 0=want ESC, 1=want [, 2=reading row, 3=reading col
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, 0, ErrCursorQueryTimeout
		}
		b, ok, rerr := t.ReadByteTimeout(remaining)
		if rerr != nil {
			return 0, 0, rerr
		}
		if !ok {
			return 0, 0, ErrCursorQueryTimeout
		}
		buf = append(buf, b)
		switch state {
		case 0:
			if b == 0x1B {
				state = 1
			}
		case 1:
			if b == '[' {
				state = 2
			} else {
				state = 0
			}
		case 2:
			if b == ';' {
				state = 3
			} else if b < '0' || b > '9' {
				return 0, 0, errors.New("term: malformed DSR response")
			}
		case 3:
			if b == 'R' {
				return parseDSR(buf)
			} else if b < '0' || b > '9' {
				return 0, 0, errors.New("term: malformed DSR response")
			}
		}
	}
}

func parseDSR(buf []byte) (row, col int, err error) {
	// buf looks like ESC '[' digits ';' digits 'R'
	body := buf[2 : len(buf)-1]
	semi := bytes.IndexByte(body, ';')
	if semi < 0 {
		return 0, 0, errors.New("term: malformed DSR response")
	}
	row, err = strconv.Atoi(string(body[:semi]))
	if err != nil {
		return 0, 0, err
	}
	col, err = strconv.Atoi(string(body[semi+1:]))
	if err != nil {
		return 0, 0, err
	}
	return row, col, nil
}

var _ io.Reader = (*os.File)(nil)
