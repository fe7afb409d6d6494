// Package source implements SourceText (spec §4.1): UTF-8 decoding with
// cursor/line/column tracking and sub-range views for re-entrant lexing of
// interpolation fragments.
package source

import (
	"unicode/utf8"

	"github.com/buildc-lang/buildc/internal/token"
)

// Sentinel rune values returned by Peek/Advance in place of a decoded code
// point (spec §4.1). EOF doubles as the conventional "no more input" rune;
// the other two are otherwise-unused negative values so callers can
// distinguish "end of input" from "bad input".
const (
	EOF             rune = -1
	InvalidEncoding rune = -2
	InvalidCharacter rune = -3
)

// DefaultTabSize is the column width of a tab stop absent configuration.
const DefaultTabSize = 4

// Text is a decoded source buffer with a forward cursor. Re-entrant scans
// (string-interpolation re-lexing) construct a Text over a sub-range of a
// parent's buffer without copying.
type Text struct {
	buf     string // shares the parent's backing array when sliced
	base    int    // cursor offset of buf[0] within the original file
	pos     int    // current byte offset into buf
	line    uint32
	column  uint32
	tabSize int
}

// New creates a Text over the whole of buf.
func New(buf string) *Text {
	return &Text{buf: buf, line: 1, column: 1, tabSize: DefaultTabSize}
}

// NewWithTabSize creates a Text with an explicit tab stop width.
func NewWithTabSize(buf string, tabSize int) *Text {
	t := New(buf)
	t.tabSize = tabSize
	return t
}

// SubRange constructs a Text scanning only [begin, end) of the receiver's
// buffer, preserving absolute cursor/line/column numbering for diagnostics.
// Used to re-enter lexing of a `${...}` interpolation expression (spec
// §4.2, scan_interpolations).
func (t *Text) SubRange(begin, end token.Position) *Text {
	lo := int(begin.Cursor) - t.base
	hi := int(end.Cursor) - t.base
	if lo < 0 {
		lo = 0
	}
	if hi > len(t.buf) {
		hi = len(t.buf)
	}
	return &Text{
		buf:     t.buf[lo:hi],
		base:    t.base + lo,
		line:    begin.Line,
		column:  begin.Column,
		tabSize: t.tabSize,
	}
}

// Position returns the current cursor position.
func (t *Text) Position() token.Position {
	return token.Position{Cursor: uint32(t.base + t.pos), Line: t.line, Column: t.column}
}

// Peek returns the rune at the cursor without advancing.
func (t *Text) Peek() rune {
	r, _ := t.decodeAt(t.pos)
	return r
}

// PeekAt returns the rune n bytes-decoded-runes ahead without advancing
// (n=0 is equivalent to Peek).
func (t *Text) PeekAt(n int) rune {
	pos := t.pos
	var r rune
	for i := 0; i <= n; i++ {
		var size int
		r, size = t.decodeAt(pos)
		if r == EOF {
			return EOF
		}
		pos += size
	}
	return r
}

func (t *Text) decodeAt(pos int) (rune, int) {
	if pos >= len(t.buf) {
		return EOF, 0
	}
	b := t.buf[pos]
	if b < utf8.RuneSelf {
		return rune(b), 1
	}
	r, size := utf8.DecodeRuneInString(t.buf[pos:])
	if r == utf8.RuneError && size <= 1 {
		return InvalidEncoding, 1
	}
	return r, size
}

// Advance consumes and returns the rune at the cursor, updating
// line/column bookkeeping. \r, \n and \r\n each count as exactly one
// newline; tab advances to the next tabSize-aligned column.
func (t *Text) Advance() rune {
	r, size := t.decodeAt(t.pos)
	if r == EOF {
		return EOF
	}
	t.pos += size

	switch r {
	case '\r':
		if t.Peek() == '\n' {
			t.pos++
		}
		t.line++
		t.column = 1
	case '\n':
		t.line++
		t.column = 1
	case '\t':
		width := t.tabSize
		if width <= 0 {
			width = DefaultTabSize
		}
		t.column = ((t.column-1)/uint32(width)+1)*uint32(width) + 1
	default:
		t.column++
	}
	return r
}

// ConsumeIf advances and returns true iff the current rune equals expected.
func (t *Text) ConsumeIf(expected rune) bool {
	if t.Peek() != expected {
		return false
	}
	t.Advance()
	return true
}

// ConsumeWhile advances while pred holds (and input remains), returning the
// resulting end position.
func (t *Text) ConsumeWhile(pred func(rune) bool) token.Position {
	for {
		r := t.Peek()
		if r == EOF || !pred(r) {
			break
		}
		t.Advance()
	}
	return t.Position()
}

// ConsumeUntil advances until pred holds (or input ends), returning the
// resulting end position.
func (t *Text) ConsumeUntil(pred func(rune) bool) token.Position {
	return t.ConsumeWhile(func(r rune) bool { return !pred(r) })
}

// AtEOF reports whether the cursor has reached the end of the buffer.
func (t *Text) AtEOF() bool { return t.pos >= len(t.buf) }

// String extracts the UTF-8 slice of the original text spanned by r, for
// diagnostics and literal images.
func (t *Text) String(r token.Range) string {
	lo := int(r.Begin.Cursor) - t.base
	hi := int(r.End.Cursor) - t.base
	if lo < 0 {
		lo = 0
	}
	if hi > len(t.buf) {
		hi = len(t.buf)
	}
	if lo > hi {
		return ""
	}
	return t.buf[lo:hi]
}
