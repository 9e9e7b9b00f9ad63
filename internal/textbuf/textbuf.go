// Package textbuf implements the line editor's text buffer: a growable
// UTF-8 byte sequence with a byte cursor that is always kept on a
// character boundary.
package textbuf

import (
	"errors"
	"unicode/utf8"

	"github.com/kungfusheep/shellline/internal/utf8scan"
)

// ErrInvalidBoundary is returned when an operation is given an offset
// that does not land on a UTF-8 character boundary.
var ErrInvalidBoundary = errors.New("textbuf: offset not on a character boundary")

// ErrInvalidRange is returned when a delete range extends past the
// buffer or has a boundary-inconsistent length.
var ErrInvalidRange = errors.New("textbuf: invalid delete range")

// Buffer owns a single line's editable text. It is created per edit
// session and mutated only by the editor controller and the undo log.
type Buffer struct {
	bytes      []byte
	cursorByte int
}

// New returns an empty buffer.
func New() *Buffer {
	return &Buffer{bytes: make([]byte, 0, 64)}
}

// NewFromString seeds a buffer with initial content; the cursor starts
// at the end.
func NewFromString(s string) *Buffer {
	b := &Buffer{bytes: []byte(s)}
	b.cursorByte = len(b.bytes)
	return b
}

// isBoundary reports whether offset is on a character boundary of b,
// including the two ends of the buffer.
func isBoundary(buf []byte, offset int) bool {
	if offset < 0 || offset > len(buf) {
		return false
	}
	if offset == 0 || offset == len(buf) {
		return true
	}
	return !utf8scan.IsContinuation(buf[offset])
}

// Insert inserts text at offset, which must be a character boundary.
// It returns the new cursor position (offset+len(text)).
func (b *Buffer) Insert(offset int, text []byte) (int, error) {
	if !isBoundary(b.bytes, offset) {
		return b.cursorByte, ErrInvalidBoundary
	}
	grown := make([]byte, 0, len(b.bytes)+len(text))
	grown = append(grown, b.bytes[:offset]...)
	grown = append(grown, text...)
	grown = append(grown, b.bytes[offset:]...)
	b.bytes = grown
	newCursor := offset + len(text)
	if b.cursorByte >= offset {
		b.cursorByte += len(text)
	}
	b.assertInvariants()
	return newCursor, nil
}

// Delete removes byteLen bytes starting at offset. offset+byteLen must
// land on a character boundary. If the cursor was inside the deleted
// range, it clamps to offset.
func (b *Buffer) Delete(offset, byteLen int) error {
	if offset < 0 || byteLen < 0 || offset+byteLen > len(b.bytes) {
		return ErrInvalidRange
	}
	if !isBoundary(b.bytes, offset) || !isBoundary(b.bytes, offset+byteLen) {
		return ErrInvalidRange
	}
	b.bytes = append(b.bytes[:offset], b.bytes[offset+byteLen:]...)
	switch {
	case b.cursorByte >= offset+byteLen:
		b.cursorByte -= byteLen
	case b.cursorByte > offset:
		b.cursorByte = offset
	}
	b.assertInvariants()
	return nil
}

// Backspace deletes the character preceding the cursor. No-op if the
// cursor is at offset 0.
func (b *Buffer) Backspace() ([]byte, error) {
	if b.cursorByte == 0 {
		return nil, nil
	}
	start := utf8scan.PrevBoundary(b.bytes, b.cursorByte)
	removed := append([]byte{}, b.bytes[start:b.cursorByte]...)
	if err := b.Delete(start, b.cursorByte-start); err != nil {
		return nil, err
	}
	return removed, nil
}

// SetCursor moves the cursor to offset, which must be a character
// boundary.
func (b *Buffer) SetCursor(offset int) error {
	if !isBoundary(b.bytes, offset) {
		return ErrInvalidBoundary
	}
	b.cursorByte = offset
	return nil
}

// Cursor returns the current byte cursor.
func (b *Buffer) Cursor() int { return b.cursorByte }

// ByteLen returns the buffer's length in bytes.
func (b *Buffer) ByteLen() int { return len(b.bytes) }

// CharCount returns the number of UTF-8 characters currently held.
func (b *Buffer) CharCount() int { return utf8scan.CountChars(b.bytes, len(b.bytes)) }

// AsBytes returns the buffer's current contents. Callers must not
// mutate the returned slice.
func (b *Buffer) AsBytes() []byte { return b.bytes }

// String returns the buffer contents as a string.
func (b *Buffer) String() string { return string(b.bytes) }

// Replace replaces the buffer's entire contents, moving the cursor to
// the end. Used by history recall and reverse-search match application.
func (b *Buffer) Replace(text []byte) {
	b.bytes = append(b.bytes[:0:0], text...)
	b.cursorByte = len(b.bytes)
	b.assertInvariants()
}

// NextCharBoundary returns the boundary after offset, clamped to the
// buffer length.
func (b *Buffer) NextCharBoundary(offset int) int {
	return utf8scan.NextBoundary(b.bytes, offset)
}

// PrevCharBoundary returns the boundary before offset.
func (b *Buffer) PrevCharBoundary(offset int) int {
	return utf8scan.PrevBoundary(b.bytes, offset)
}

// assertInvariants panics in debug builds (guarded by the tag-free
// always-on check here; cost is negligible at line-editor buffer sizes)
// if char_count and cursor boundary invariants are violated. This is
// the guard spec.md calls out against the double-deletion regression.
func (b *Buffer) assertInvariants() {
	if !utf8.Valid(b.bytes) {
		panic("textbuf: buffer holds invalid UTF-8")
	}
	if b.cursorByte < 0 || b.cursorByte > len(b.bytes) {
		panic("textbuf: cursor out of bounds")
	}
	if !isBoundary(b.bytes, b.cursorByte) {
		panic("textbuf: cursor not on a character boundary")
	}
}
