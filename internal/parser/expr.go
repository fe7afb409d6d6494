package parser

import (
	"strings"

	"github.com/buildc-lang/buildc/internal/ast"
	"github.com/buildc-lang/buildc/internal/diag"
	"github.com/buildc-lang/buildc/internal/lexer"
	"github.com/buildc-lang/buildc/internal/token"
)

// ranged is satisfied by every *ast.<Node> type, since each embeds ast's
// base struct (by value) which promotes a pointer-receiver SetRange.
type ranged interface{ SetRange(token.Range) }

// mk stamps a freshly built node literal with its source range and returns
// it, letting every parse* function build a node as a single expression:
// mk(&ast.BinaryExpr{...}, p.rangeFrom(begin)).
func mk[T ranged](n T, r token.Range) T {
	n.SetRange(r)
	return n
}

// precedence table (spec §4.3), lowest-binds-loosest first. Level 13 (the
// ternary) and the `and`/`or`/`is`/`in` forms are handled outside this table
// since they aren't plain left-assoc binary operators.
var binaryPrec = map[token.Kind]int{
	token.Star: 11, token.Slash: 11, token.Percent: 11,
	token.Plus: 10, token.Minus: 10,
	token.ShiftLeft: 9, token.ShiftRight: 9,
	token.Amp:  8,
	token.Caret: 7,
	token.Pipe:  6,
	token.Less: 5, token.LessEqual: 5, token.Greater: 5, token.GreaterEqual: 5,
	token.EqualEqual: 4, token.NotEqual: 4,
}

var binaryOpOf = map[token.Kind]ast.BinaryOp{
	token.Star: ast.OpMul, token.Slash: ast.OpDiv, token.Percent: ast.OpMod,
	token.Plus: ast.OpAdd, token.Minus: ast.OpSub,
	token.ShiftLeft: ast.OpShl, token.ShiftRight: ast.OpShr,
	token.Amp: ast.OpBitAnd, token.Caret: ast.OpBitXor, token.Pipe: ast.OpBitOr,
	token.Less: ast.OpLess, token.LessEqual: ast.OpLessEqual,
	token.Greater: ast.OpGreater, token.GreaterEqual: ast.OpGreaterEqual,
	token.EqualEqual: ast.OpEqual, token.NotEqual: ast.OpNotEqual,
}

// parseExpr is the entry point used by every statement-level caller; minPrec
// is accepted for callers that want to re-enter at a specific binary
// precedence (currently always 0 — full expression).
func (p *Parser) parseExpr(minPrec int) ast.Expr {
	return p.parseTernary()
}

// parseTernary is the top of the grammar: `thenExpr if cond else elseExpr`,
// right associative (spec §4.3 level 13).
func (p *Parser) parseTernary() ast.Expr {
	begin := p.cur().Range.Begin
	then := p.parseOr()
	if p.at(token.KwIf) {
		p.advance()
		cond := p.parseOr()
		p.expect(token.KwElse)
		elseExpr := p.parseTernary()
		return mk(&ast.TernaryExpr{Then: then, Cond: cond, Else: elseExpr}, p.rangeFrom(begin))
	}
	return then
}

func (p *Parser) parseOr() ast.Expr {
	begin := p.cur().Range.Begin
	lhs := p.parseAnd()
	for p.at(token.KwOr) {
		p.advance()
		rhs := p.parseAnd()
		lhs = mk(&ast.LogicalExpr{Op: ast.LogicalOr, LHS: lhs, RHS: rhs}, p.rangeFrom(begin))
	}
	return lhs
}

func (p *Parser) parseAnd() ast.Expr {
	begin := p.cur().Range.Begin
	lhs := p.parseTestLevel()
	for p.at(token.KwAnd) {
		p.advance()
		rhs := p.parseTestLevel()
		lhs = mk(&ast.LogicalExpr{Op: ast.LogicalAnd, LHS: lhs, RHS: rhs}, p.rangeFrom(begin))
	}
	return lhs
}

// parseTestLevel handles `is`/`is not`/`in`/`not in`, binding tighter than
// and/or but looser than the arithmetic/comparison chain (spec §4.3).
func (p *Parser) parseTestLevel() ast.Expr {
	begin := p.cur().Range.Begin
	lhs := p.parseBinary(0)
	for {
		switch {
		case p.at(token.KwIs):
			p.advance()
			negate := false
			if p.at(token.KwNot) {
				p.advance()
				negate = true
			}
			typeName := p.parseIdentifier()
			lhs = mk(&ast.TypeTestExpr{Target: lhs, Negate: negate, Type: typeName}, p.rangeFrom(begin))
		case p.at(token.KwIn):
			p.advance()
			rhs := p.parseBinary(0)
			lhs = mk(&ast.ContainmentTestExpr{Value: lhs, Negate: false, Target: rhs}, p.rangeFrom(begin))
		case p.at(token.KwNot) && p.peek(1).Kind == token.KwIn:
			p.advance()
			p.advance()
			rhs := p.parseBinary(0)
			lhs = mk(&ast.ContainmentTestExpr{Value: lhs, Negate: true, Target: rhs}, p.rangeFrom(begin))
		default:
			return lhs
		}
	}
}

// parseBinary is precedence-climbing over the left-associative arithmetic,
// bitwise, relational and equality operators (spec §4.3 levels 4-11).
func (p *Parser) parseBinary(minPrec int) ast.Expr {
	begin := p.cur().Range.Begin
	lhs := p.parseUnary()
	for {
		prec, ok := binaryPrec[p.cur().Kind]
		if !ok || prec < minPrec {
			return lhs
		}
		op := binaryOpOf[p.cur().Kind]
		p.advance()
		rhs := p.parseBinary(prec + 1)
		lhs = mk(&ast.BinaryExpr{Op: op, LHS: lhs, RHS: rhs}, p.rangeFrom(begin))
	}
}

// parseUnary handles the prefix operators plus the `defined`/`raise` unary
// forms (spec §4.3 level 12).
func (p *Parser) parseUnary() ast.Expr {
	begin := p.cur().Range.Begin
	switch p.cur().Kind {
	case token.Plus:
		p.advance()
		return mk(&ast.UnaryExpr{Op: ast.UnaryPlus, Operand: p.parseUnary()}, p.rangeFrom(begin))
	case token.Minus:
		p.advance()
		return mk(&ast.UnaryExpr{Op: ast.UnaryMinus, Operand: p.parseUnary()}, p.rangeFrom(begin))
	case token.Tilde:
		p.advance()
		return mk(&ast.UnaryExpr{Op: ast.UnaryBitNot, Operand: p.parseUnary()}, p.rangeFrom(begin))
	case token.KwNot:
		p.advance()
		return mk(&ast.UnaryExpr{Op: ast.UnaryNot, Operand: p.parseUnary()}, p.rangeFrom(begin))
	case token.KwDefined:
		p.advance()
		name := p.parseIdentifier()
		var in ast.Expr
		if p.at(token.KwIn) {
			p.advance()
			in = p.parsePostfix()
		}
		return mk(&ast.DefinedExpr{Name: name, In: in}, p.rangeFrom(begin))
	case token.KwRaise:
		p.advance()
		return mk(&ast.RaiseExpr{Value: p.parsePostfix()}, p.rangeFrom(begin))
	default:
		return p.parsePostfix()
	}
}

// parsePostfix handles call/member/subscript chains (spec §4.3 postfix
// level), binding tighter than every prefix/infix operator.
func (p *Parser) parsePostfix() ast.Expr {
	begin := p.cur().Range.Begin
	e := p.parsePrimary()
	for {
		switch p.cur().Kind {
		case token.Dot:
			p.advance()
			name := p.parseIdentifier()
			e = mk(&ast.MemberAccessExpr{Target: e, Name: name}, p.rangeFrom(begin))
		case token.LParen:
			e = p.parseInvocation(e, begin)
		case token.LBracket:
			p.advance()
			idx := p.parseExpr(0)
			p.expect(token.RBracket)
			e = mk(&ast.SubscriptExpr{Target: e, Index: idx}, p.rangeFrom(begin))
		default:
			return e
		}
	}
}

func (p *Parser) parseInvocation(callee ast.Expr, begin token.Position) ast.Expr {
	p.expect(token.LParen)
	var args []ast.CallArg
	for !p.at(token.RParen) && !p.at(token.EOF) {
		var name string
		if p.at(token.Identifier) && p.peek(1).Kind == token.Colon {
			name = p.cur().Image
			p.advance()
			p.advance()
		}
		args = append(args, ast.CallArg{Name: name, Value: p.parseExpr(0)})
		if !p.at(token.RParen) {
			p.expect(token.Comma)
		}
	}
	p.expect(token.RParen)
	return mk(&ast.InvocationExpr{Callee: callee, Args: args}, p.rangeFrom(begin))
}

func (p *Parser) parseIdentifier() ast.Identifier {
	t := p.expect(token.Identifier)
	return ast.Identifier{Range: t.Range, Name: t.Image}
}

// parsePrimary parses literals, identifiers, self/super, grouping,
// list/map literals, and the closure form `(params) => body` (spec §4.3
// "Closure disambiguation": a `(` only begins a closure if the balanced
// parameter list is followed by `=>`).
func (p *Parser) parsePrimary() ast.Expr {
	begin := p.cur().Range.Begin
	switch p.cur().Kind {
	case token.Integer:
		t := p.advance()
		return mk(&ast.LiteralExpr{Kind: ast.LiteralInteger, Image: t.Image}, t.Range)
	case token.Float:
		t := p.advance()
		return mk(&ast.LiteralExpr{Kind: ast.LiteralFloat, Image: t.Image}, t.Range)
	case token.BooleanLiteral:
		t := p.advance()
		return mk(&ast.LiteralExpr{Kind: ast.LiteralBoolean, Image: t.Image}, t.Range)
	case token.NoneLiteral:
		t := p.advance()
		return mk(&ast.LiteralExpr{Kind: ast.LiteralNone, Image: t.Image}, t.Range)
	case token.StringLiteral:
		return p.parseStringLiteral()
	case token.KwSelf:
		t := p.advance()
		return mk(&ast.SelfExpr{}, t.Range)
	case token.KwSuper:
		t := p.advance()
		return mk(&ast.SuperExpr{}, t.Range)
	case token.Identifier:
		t := p.advance()
		return mk(&ast.VariableExpr{Name: ast.Identifier{Range: t.Range, Name: t.Image}}, t.Range)
	case token.LBracket:
		return p.parseListLiteral()
	case token.LBrace:
		return p.parseMapLiteral()
	case token.LParen:
		if closure, ok := p.tryParseClosure(); ok {
			return closure
		}
		p.advance()
		inner := p.parseExpr(0)
		p.expect(token.RParen)
		if p.at(token.Ellipsis) {
			p.advance()
			end := p.parseExpr(0)
			return mk(&ast.RangeExpr{Begin: inner, End: end}, p.rangeFrom(begin))
		}
		return inner
	default:
		p.rep.Report(diag.KindExpectedExpression, p.cur().Range.Begin, "expected expression, got %s", p.cur().Kind)
		return mk(&ast.InvalidExpr{}, p.cur().Range)
	}
}

// tryParseClosure speculatively checks whether the current `(` begins a
// closure parameter list before committing to parse it as one (spec §4.3
// "Closure disambiguation"). Parameter lists here are bare identifiers
// (spec §3.3 Parameters), so the fixed-depth lookahead ring is always deep
// enough to decide without a snapshot/rewind mechanism.
func (p *Parser) tryParseClosure() (ast.Expr, bool) {
	if !p.looksLikeClosureHeader() {
		return nil, false
	}
	begin := p.cur().Range.Begin
	params := p.parseParameters()
	p.expect(token.FatArrow)
	body := p.parseArrowOrBlockBody()
	return mk(&ast.ClosureExpr{Params: params, Body: body}, p.rangeFrom(begin)), true
}

func (p *Parser) looksLikeClosureHeader() bool {
	if !p.at(token.LParen) {
		return false
	}
	if p.peek(1).Kind == token.RParen {
		return p.peek(2).Kind == token.FatArrow
	}
	if p.peek(1).Kind == token.Ellipsis && p.peek(2).Kind == token.Identifier {
		return p.peek(3).Kind == token.RParen
	}
	if p.peek(1).Kind == token.Identifier {
		switch p.peek(2).Kind {
		case token.Comma:
			return true
		case token.RParen:
			return p.peek(3).Kind == token.FatArrow
		}
	}
	return false
}

func (p *Parser) parseParameters() *ast.Parameters {
	begin := p.cur().Range.Begin
	p.expect(token.LParen)
	params := &ast.Parameters{}
	for !p.at(token.RParen) && !p.at(token.EOF) {
		if p.at(token.Ellipsis) {
			p.advance()
			params.Vararg = true
		}
		id := p.parseIdentifier()
		params.Params = append(params.Params, mk(&ast.Param{Name: id}, id.Range))
		if !p.at(token.RParen) {
			p.expect(token.Comma)
		}
	}
	p.expect(token.RParen)
	params.SetRange(p.rangeFrom(begin))
	return params
}

// parseArrowOrBlockBody parses either `=> expr` or a `{ ... }` block,
// normalizing both to a []ast.Stmt (spec §4.3/§9).
func (p *Parser) parseArrowOrBlockBody() []ast.Stmt {
	if p.at(token.LBrace) {
		return p.parseBlock().Body
	}
	begin := p.cur().Range.Begin
	val := p.parseExpr(0)
	return []ast.Stmt{mk(&ast.ArrowStmt{Value: val}, p.rangeFrom(begin))}
}

func (p *Parser) parseListLiteral() ast.Expr {
	begin := p.cur().Range.Begin
	p.advance()
	var elems []ast.Expr
	for !p.at(token.RBracket) && !p.at(token.EOF) {
		elems = append(elems, p.parseExpr(0))
		if !p.at(token.RBracket) {
			p.expect(token.Comma)
		}
	}
	p.expect(token.RBracket)
	return mk(&ast.ListExpr{Elements: elems}, p.rangeFrom(begin))
}

func (p *Parser) parseMapLiteral() ast.Expr {
	begin := p.cur().Range.Begin
	p.advance()
	var entries []ast.MapEntry
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		key := p.parseExpr(0)
		p.expect(token.Colon)
		val := p.parseExpr(0)
		entries = append(entries, ast.MapEntry{Key: key, Value: val})
		if !p.at(token.RBrace) {
			p.expect(token.Comma)
		}
	}
	p.expect(token.RBrace)
	return mk(&ast.MapExpr{Entries: entries}, p.rangeFrom(begin))
}

// parseStringLiteral consumes a string token and, if the lexer recorded
// interpolation placeholder ranges for it, re-lexes each placeholder's
// source text as an independent expression (spec §4.2/§4.5.2).
func (p *Parser) parseStringLiteral() ast.Expr {
	t := p.advance()
	lit := mk(&ast.LiteralExpr{Kind: ast.LiteralString, Image: t.Image}, t.Range)
	if !strings.Contains(t.Image, "{") {
		return lit
	}
	for _, rng := range p.lx.Placeholders(t) {
		lit.Interpolations = append(lit.Interpolations, p.parseInterpolatedPlaceholder(rng))
	}
	return lit
}

// parseInterpolatedPlaceholder re-enters the lexer/parser over the
// sub-range of source text covered by one `$name` or `${expr}` placeholder,
// stripping the delimiters so only the inner expression text is scanned
// (spec §4.2 re-entrant lexing via source.Text.SubRange).
func (p *Parser) parseInterpolatedPlaceholder(rng token.Range) ast.Expr {
	raw := p.text.String(rng)
	begin, end := rng.Begin, rng.End
	switch {
	case strings.HasPrefix(raw, "${"):
		begin.Cursor += 2
		begin.Column += 2
		end.Cursor -= 1
	case strings.HasPrefix(raw, "$"):
		begin.Cursor += 1
		begin.Column += 1
	}
	sub := p.text.SubRange(begin, end)
	subLexer := lexer.New(sub, p.rep)
	subParser := New(sub, subLexer, p.rep)
	return subParser.ParseExpression()
}
