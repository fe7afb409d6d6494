// Package parser implements the hand-written recursive-descent Pratt-style
// parser described in spec §4.3: single-token lookahead (plus a small
// peek(k) ring buffer), "previous range" bookkeeping for diagnostics, and
// explicit panic-mode recovery.
package parser

import (
	"github.com/buildc-lang/buildc/internal/ast"
	"github.com/buildc-lang/buildc/internal/diag"
	"github.com/buildc-lang/buildc/internal/lexer"
	"github.com/buildc-lang/buildc/internal/source"
	"github.com/buildc-lang/buildc/internal/token"
)

const lookahead = 4

// Parser consumes a Lexer's token stream and produces an AST (spec §4.3).
type Parser struct {
	text *source.Text
	lx   *lexer.Lexer
	rep  *diag.Reporter

	ring  [lookahead]token.Token
	count int // number of valid entries in ring, filled from index 0

	prevRange token.Range // range of the most recently consumed token
}

// New creates a Parser over text, pulling tokens from lx and reporting
// diagnostics to rep.
func New(text *source.Text, lx *lexer.Lexer, rep *diag.Reporter) *Parser {
	p := &Parser{text: text, lx: lx, rep: rep}
	p.fill()
	return p
}

func (p *Parser) fill() {
	for p.count < lookahead {
		p.ring[p.count] = p.lx.Next()
		p.count++
	}
}

// peek returns the k-th lookahead token (0 = current).
func (p *Parser) peek(k int) token.Token {
	if k >= p.count {
		k = p.count - 1
	}
	return p.ring[k]
}

func (p *Parser) cur() token.Token { return p.peek(0) }

func (p *Parser) at(kind token.Kind) bool { return p.cur().Kind == kind }

func (p *Parser) atAny(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.at(k) {
			return true
		}
	}
	return false
}

// advance consumes and returns the current token, refilling the ring.
func (p *Parser) advance() token.Token {
	t := p.ring[0]
	copy(p.ring[:], p.ring[1:])
	p.count--
	if p.count < 0 {
		p.count = 0
	}
	p.ring[lookahead-1] = token.Token{}
	p.fill()
	p.prevRange = t.Range
	return t
}

// skipNewlines consumes any run of Newline tokens; many grammar points
// (e.g. before a closing brace) tolerate blank lines.
func (p *Parser) skipNewlines() {
	for p.at(token.Newline) {
		p.advance()
	}
}

// expect consumes the current token if it matches kind, else reports a
// missing-token diagnostic and returns the zero Token (the parser does not
// advance past the unexpected token so the caller's recovery can inspect
// it).
func (p *Parser) expect(kind token.Kind) token.Token {
	if p.at(kind) {
		return p.advance()
	}
	p.rep.Report(diag.KindMissingToken, p.cur().Range.Begin, "expected %s, got %s", kind, p.cur().Kind)
	return token.Token{}
}

// accept consumes the current token if it matches kind, reporting ok.
func (p *Parser) accept(kind token.Kind) (token.Token, bool) {
	if p.at(kind) {
		return p.advance(), true
	}
	return token.Token{}, false
}

// rangeFrom merges the given begin position with the range of the most
// recently consumed token, yielding the full span of a just-parsed node.
func (p *Parser) rangeFrom(begin token.Position) token.Range {
	return token.Range{Begin: begin, End: p.prevRange.End}
}

// ---- recovery primitives (spec §4.3) ----

// skipToEOL consumes until a newline token appears (inclusive of it), used
// to resynchronize after a statement-level error.
func (p *Parser) skipToEOL() {
	for !p.atAny(token.Newline, token.EOF) {
		p.advance()
	}
	if p.at(token.Newline) {
		p.advance()
	}
}

// skipBraces balances `{ }` starting at the current `{`, stopping either
// before or after the matching `}`; an optional stop predicate lets the
// caller break out early on a caller-supplied token (spec §4.3).
func (p *Parser) skipBraces(stopAfter bool, stop func(token.Kind) bool) {
	if !p.at(token.LBrace) {
		return
	}
	depth := 0
	for {
		if p.at(token.EOF) {
			return
		}
		if stop != nil && stop(p.cur().Kind) {
			return
		}
		k := p.cur().Kind
		if k == token.LBrace {
			depth++
		}
		if k == token.RBrace {
			depth--
			if depth == 0 {
				if stopAfter {
					p.advance()
				}
				return
			}
		}
		p.advance()
	}
}

// ParseScript is the top-level entry point (spec §4.3: parse_script).
func (p *Parser) ParseScript() *ast.Script {
	begin := p.cur().Range.Begin
	script := &ast.Script{}
	p.skipNewlines()
	for !p.at(token.EOF) {
		p.parseTopLevel(script)
		p.skipNewlines()
	}
	script.SetRange(p.rangeFrom(begin))
	return script
}

// parseTopLevel parses one top-level item into script: import/export
// declarations go to their dedicated slices (spec §3.3 Script), everything
// else — def/class/task/var/const and bare statements — goes to Body.
func (p *Parser) parseTopLevel(script *ast.Script) {
	switch p.cur().Kind {
	case token.KwImport:
		script.Imports = append(script.Imports, p.parseImportDecl())
	case token.KwExport:
		script.Exports = append(script.Exports, p.parseExportDecl())
	default:
		if d := p.parseDeclarationOrStatement(); d != nil {
			script.Body = append(script.Body, d)
		}
	}
}

// ParseExpression parses a single expression and is the entry point used
// for re-entrant interpolation parsing (see parseInterpolatedPlaceholder).
func (p *Parser) ParseExpression() ast.Expr {
	return p.parseExpr(0)
}
