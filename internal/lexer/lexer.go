// Package lexer implements the Unicode-aware lexer described in spec §4.2:
// token production, perfect-hash-style keyword lookup, string body scanning
// with interpolation placeholder discovery, and re-entrant scanning of
// interpolation expression ranges.
package lexer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/buildc-lang/buildc/internal/diag"
	"github.com/buildc-lang/buildc/internal/source"
	"github.com/buildc-lang/buildc/internal/token"
)

// ASCII classification tables, following the teacher's fast-path lookup
// pattern (runtime/lexer/lexer.go): index by byte for identifier-start,
// identifier-continuation, digit and whitespace checks before falling back
// to the general Unicode path.
var (
	isASCIIIdentStart [128]bool
	isASCIIIdentPart  [128]bool
	isASCIIDigit      [128]bool
	isASCIIWhitespace [128]bool
)

func init() {
	for i := 0; i < 128; i++ {
		ch := byte(i)
		isASCIIWhitespace[i] = ch == ' ' || ch == '\t'
		isASCIIDigit[i] = ch >= '0' && ch <= '9'
		isASCIIIdentStart[i] = ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
		isASCIIIdentPart[i] = isASCIIIdentStart[i] || isASCIIDigit[i]
	}
}

// isIdentStart reports whether r may begin an identifier: ASCII letter/'_',
// or a Unicode letter outside the C11 Annex D.1 "not initially allowed"
// subset (spec §4.2). We approximate that exclusion with unicode.IsLetter
// combined with a rejection of combining marks, which covers the intent
// (no identifier may start with a combining diacritic) without reproducing
// the full Annex D.1 table.
func isIdentStart(r rune) bool {
	if r < 128 {
		return isASCIIIdentStart[r]
	}
	return unicode.IsLetter(r) && !unicode.Is(unicode.Mn, r) && !unicode.Is(unicode.Mc, r)
}

// isIdentPart reports whether r may continue an identifier.
func isIdentPart(r rune) bool {
	if r < 128 {
		return isASCIIIdentPart[r]
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r)
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isOctDigit(r rune) bool { return r >= '0' && r <= '7' }
func isBinDigit(r rune) bool { return r == '0' || r == '1' }

// Lexer produces a token stream from a source.Text (spec §4.2).
type Lexer struct {
	text *source.Text
	diag *diag.Reporter

	// placeholders maps a STRING token's begin cursor to the source ranges
	// of its `$id`/`${...}` interpolation placeholders, discovered during
	// the body scan and handed out by Placeholders; the parser re-parses
	// each range on demand.
	placeholders map[uint32][]token.Range
}

// New creates a Lexer scanning text, reporting lexical errors to reporter.
func New(text *source.Text, reporter *diag.Reporter) *Lexer {
	return &Lexer{text: text, diag: reporter, placeholders: map[uint32][]token.Range{}}
}

// Next returns the next token, or a token.EOF-kind token at end of input.
// All lexical errors are recoverable: Next reports the error and resumes
// scanning past the offending character (spec §4.2).
func (l *Lexer) Next() token.Token {
	for {
		l.skipInsignificantWhitespace()

		start := l.text.Position()
		r := l.text.Peek()
		if r == source.EOF {
			return token.Token{Kind: token.EOF, Range: token.Range{Begin: start, End: start}}
		}

		switch {
		case r == '\n':
			l.text.Advance()
			return l.finish(token.Newline, start)
		case r == '#':
			l.skipLineComment()
			continue
		case r == '\'' || r == '"':
			return l.scanString(r)
		case isIdentStart(r):
			return l.scanIdentifierOrKeyword(start)
		case isDigit(r):
			return l.scanNumber(start)
		case r == source.InvalidEncoding, r == source.InvalidCharacter:
			l.text.Advance()
			l.diag.Report(diag.KindInvalidEncoding, start, "invalid encoding in source text")
			continue
		default:
			if tok, ok := l.scanPunctuator(start); ok {
				return tok
			}
			l.text.Advance()
			l.diag.Report(diag.KindInvalidCharacter, start, "unexpected character %q", r)
			continue
		}
	}
}

func (l *Lexer) finish(kind token.Kind, start token.Position) token.Token {
	return token.Token{Kind: kind, Range: token.Range{Begin: start, End: l.text.Position()}}
}

func (l *Lexer) skipInsignificantWhitespace() {
	l.text.ConsumeWhile(func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\r'
	})
}

func (l *Lexer) skipLineComment() {
	l.text.ConsumeUntil(func(r rune) bool { return r == '\n' || r == source.EOF })
}

func (l *Lexer) scanIdentifierOrKeyword(start token.Position) token.Token {
	l.text.Advance()
	l.text.ConsumeWhile(isIdentPart)
	image := l.text.String(token.Range{Begin: start, End: l.text.Position()})
	if image == "true" || image == "false" {
		return token.Token{Kind: token.BooleanLiteral, Range: token.Range{Begin: start, End: l.text.Position()}, Image: image}
	}
	if image == "none" {
		return token.Token{Kind: token.NoneLiteral, Range: token.Range{Begin: start, End: l.text.Position()}, Image: image}
	}
	if kw, ok := token.LookupKeyword(image); ok {
		return token.Token{Kind: kw, Range: token.Range{Begin: start, End: l.text.Position()}, Image: image}
	}
	return token.Token{Kind: token.Identifier, Range: token.Range{Begin: start, End: l.text.Position()}, Image: image}
}

// scanNumber handles both integer and float literals, including the
// 0b/0o/0x prefixed integer forms and the e/E exponent float form (spec
// §4.2). A prefix with no following digits, or an exponent with no
// following digits, is reported but the token is still returned with
// whatever was scanned so the parser can continue.
func (l *Lexer) scanNumber(start token.Position) token.Token {
	if l.text.Peek() == '0' {
		switch l.text.PeekAt(1) {
		case 'b', 'B':
			return l.scanPrefixedInt(start, isBinDigit, "binary")
		case 'o', 'O':
			return l.scanPrefixedInt(start, isOctDigit, "octal")
		case 'x', 'X':
			return l.scanPrefixedInt(start, isHexDigit, "hexadecimal")
		}
	}

	l.text.ConsumeWhile(isDigit)
	kind := token.Integer

	if l.text.Peek() == '.' && isDigit(l.text.PeekAt(1)) {
		kind = token.Float
		l.text.Advance()
		l.text.ConsumeWhile(isDigit)
	}

	if l.text.Peek() == 'e' || l.text.Peek() == 'E' {
		save := l.text.Position()
		l.text.Advance()
		if l.text.Peek() == '+' || l.text.Peek() == '-' {
			l.text.Advance()
		}
		if !isDigit(l.text.Peek()) {
			l.diag.Report(diag.KindIncompleteNumber, save, "missing digits after exponent")
		} else {
			kind = token.Float
			l.text.ConsumeWhile(isDigit)
		}
	}

	image := l.text.String(token.Range{Begin: start, End: l.text.Position()})
	return token.Token{Kind: kind, Range: token.Range{Begin: start, End: l.text.Position()}, Image: image}
}

func (l *Lexer) scanPrefixedInt(start token.Position, pred func(rune) bool, name string) token.Token {
	l.text.Advance() // '0'
	l.text.Advance() // b/o/x
	digitsStart := l.text.Position()
	l.text.ConsumeWhile(pred)
	if l.text.Position().Cursor == digitsStart.Cursor {
		l.diag.Report(diag.KindIncompleteNumber, start, "%s literal has no digits", name)
	}
	image := l.text.String(token.Range{Begin: start, End: l.text.Position()})
	return token.Token{Kind: token.Integer, Range: token.Range{Begin: start, End: l.text.Position()}, Image: image}
}

// scanString scans a quoted string body (spec §4.2). Escapes are resolved
// into the image; `$id`/`${...}` interpolation placeholders are recorded
// (not parsed) and substituted with sequential "{N}" markers so the
// resulting image is a Rust-style format string. Placeholder source ranges
// are retrievable afterwards via Placeholders.
func (l *Lexer) scanString(quote rune) token.Token {
	start := l.text.Position()
	l.text.Advance() // opening quote

	var image strings.Builder
	var placeholders []token.Range
	placeholderIndex := 0

	for {
		r := l.text.Peek()
		switch {
		case r == source.EOF || r == '\n':
			l.diag.Report(diag.KindIncompleteString, start, "unterminated string literal")
			goto done
		case r == quote:
			l.text.Advance()
			goto done
		case r == '\\':
			l.scanEscape(&image)
		case r == '$':
			rng := l.scanPlaceholder()
			placeholders = append(placeholders, rng)
			fmt.Fprintf(&image, "{%d}", placeholderIndex)
			placeholderIndex++
		default:
			image.WriteRune(r)
			l.text.Advance()
		}
	}
done:
	end := l.text.Position()
	if len(placeholders) > 0 {
		l.placeholders[start.Cursor] = placeholders
	}
	return token.Token{Kind: token.StringLiteral, Range: token.Range{Begin: start, End: end}, Image: image.String()}
}

func (l *Lexer) scanEscape(out *strings.Builder) {
	escStart := l.text.Position()
	l.text.Advance() // backslash
	r := l.text.Peek()
	switch r {
	case 'a':
		out.WriteByte('\a')
		l.text.Advance()
	case 'b':
		out.WriteByte('\b')
		l.text.Advance()
	case 'f':
		out.WriteByte('\f')
		l.text.Advance()
	case 'n':
		out.WriteByte('\n')
		l.text.Advance()
	case 'r':
		out.WriteByte('\r')
		l.text.Advance()
	case 't':
		out.WriteByte('\t')
		l.text.Advance()
	case 'v':
		out.WriteByte('\v')
		l.text.Advance()
	case '\'', '"', '$', '\\':
		out.WriteRune(r)
		l.text.Advance()
	case 'x':
		l.text.Advance()
		l.scanFixedHexEscape(out, 2, escStart)
	case 'u':
		l.text.Advance()
		l.scanFixedHexEscape(out, 4, escStart)
	case 'U':
		l.text.Advance()
		l.scanFixedHexEscape(out, 8, escStart)
	default:
		l.diag.Report(diag.KindIncompleteString, escStart, "unknown escape sequence")
		if r != source.EOF {
			l.text.Advance()
		}
	}
}

func (l *Lexer) scanFixedHexEscape(out *strings.Builder, digits int, escStart token.Position) {
	var v rune
	for i := 0; i < digits; i++ {
		r := l.text.Peek()
		if !isHexDigit(r) {
			l.diag.Report(diag.KindIncompleteString, escStart, "expected %d hex digits in escape", digits)
			return
		}
		v = v*16 + rune(hexVal(r))
		l.text.Advance()
	}
	out.WriteRune(v)
}

func hexVal(r rune) int {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0')
	case r >= 'a' && r <= 'f':
		return int(r-'a') + 10
	default:
		return int(r-'A') + 10
	}
}

// scanPlaceholder scans a `$identifier` or `${ expr }` interpolation
// placeholder, tracking nested `${...}` (and nested strings within) via an
// explicit delimiter-depth stack, and returns the placeholder's source
// range (spec §4.2). It does not parse the expression; the parser does that
// later over the ranges returned by Placeholders.
func (l *Lexer) scanPlaceholder() token.Range {
	start := l.text.Position()
	l.text.Advance() // '$'

	if l.text.Peek() != '{' {
		l.text.ConsumeWhile(isIdentPart)
		return token.Range{Begin: start, End: l.text.Position()}
	}

	l.text.Advance() // '{'
	depth := 1
	var quoteStack []rune
	for depth > 0 {
		r := l.text.Peek()
		switch {
		case r == source.EOF:
			l.diag.Report(diag.KindIncompleteString, start, "unterminated interpolation expression")
			return token.Range{Begin: start, End: l.text.Position()}
		case r == '\n' && len(quoteStack) == 0:
			l.diag.Report(diag.KindIncompleteString, start, "newline inside interpolation expression")
			l.text.Advance()
		case r == '#' && len(quoteStack) == 0:
			l.diag.Report(diag.KindCommentInInterpolation, l.text.Position(), "comment not allowed inside interpolation expression")
			l.text.ConsumeUntil(func(r rune) bool { return r == '\n' || r == '}' || r == source.EOF })
		case (r == '\'' || r == '"') && len(quoteStack) > 0 && quoteStack[len(quoteStack)-1] == r:
			quoteStack = quoteStack[:len(quoteStack)-1]
			l.text.Advance()
		case (r == '\'' || r == '"') && len(quoteStack) == 0:
			quoteStack = append(quoteStack, r)
			l.text.Advance()
		case r == '\\' && len(quoteStack) > 0:
			l.text.Advance()
			if l.text.Peek() != source.EOF {
				l.text.Advance()
			}
		case r == '{' && len(quoteStack) == 0:
			depth++
			l.text.Advance()
		case r == '}' && len(quoteStack) == 0:
			depth--
			l.text.Advance()
		default:
			l.text.Advance()
		}
	}
	return token.Range{Begin: start, End: l.text.Position()}
}

// scanPunctuator matches the longest punctuator starting at the cursor.
func (l *Lexer) scanPunctuator(start token.Position) (token.Token, bool) {
	three, ok3 := punct3[l.text.PeekAt(0)][l.text.PeekAt(1)][l.text.PeekAt(2)]
	if ok3 {
		l.text.Advance()
		l.text.Advance()
		l.text.Advance()
		return l.punctToken(three, start), true
	}
	two, ok2 := twoCharPunct(l.text.PeekAt(0), l.text.PeekAt(1))
	if ok2 {
		l.text.Advance()
		l.text.Advance()
		return l.punctToken(two, start), true
	}
	one, ok1 := oneCharPunct(l.text.Peek())
	if ok1 {
		l.text.Advance()
		return l.punctToken(one, start), true
	}
	return token.Token{}, false
}

func (l *Lexer) punctToken(kind token.Kind, start token.Position) token.Token {
	return token.Token{Kind: kind, Range: token.Range{Begin: start, End: l.text.Position()}}
}

// Placeholders returns the interpolation-placeholder ranges discovered
// while scanning the STRING token tok (empty if tok has none). The ranges
// are in the same absolute-cursor coordinate system as tok.Range.
func (l *Lexer) Placeholders(tok token.Token) []token.Range {
	return l.placeholders[tok.Range.Begin.Cursor]
}
