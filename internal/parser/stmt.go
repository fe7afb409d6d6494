package parser

import (
	"github.com/buildc-lang/buildc/internal/ast"
	"github.com/buildc-lang/buildc/internal/diag"
	"github.com/buildc-lang/buildc/internal/token"
)

// assignOps maps a compound-assignment punctuator to its AssignOp (spec
// §6.2 grammar for assignment statements).
var assignOps = map[token.Kind]ast.AssignOp{
	token.Equal:          ast.AssignPlain,
	token.PlusEqual:      ast.AssignAdd,
	token.MinusEqual:     ast.AssignSub,
	token.StarEqual:      ast.AssignMul,
	token.SlashEqual:     ast.AssignDiv,
	token.PercentEqual:   ast.AssignMod,
	token.AmpEqual:       ast.AssignAnd,
	token.PipeEqual:      ast.AssignOr,
	token.CaretEqual:     ast.AssignXor,
	token.ShiftLeftEqual: ast.AssignShl,
	token.ShiftRightEqual: ast.AssignShr,
}

func (p *Parser) parseBlock() *ast.BlockStmt {
	begin := p.cur().Range.Begin
	p.expect(token.LBrace)
	p.skipNewlines()
	var body []ast.Stmt
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		body = append(body, p.parseBlockItem())
		p.skipNewlines()
	}
	p.expect(token.RBrace)
	return mk(&ast.BlockStmt{Body: body}, p.rangeFrom(begin))
}

// parseBlockItem parses one item of a block body: a local var/const/def/
// class declaration wrapped as a DeclStmt, or an ordinary statement (spec
// §4.3 parse_statement).
func (p *Parser) parseBlockItem() ast.Stmt {
	begin := p.cur().Range.Begin
	switch p.cur().Kind {
	case token.KwVar, token.KwConst:
		d := p.parseVarDecl()
		return mk(&ast.DeclStmt{Decl: d}, p.rangeFrom(begin))
	case token.KwDef:
		d := p.parseFunctionDecl()
		return mk(&ast.DeclStmt{Decl: d}, p.rangeFrom(begin))
	case token.KwClass:
		d := p.parseClassDecl()
		return mk(&ast.DeclStmt{Decl: d}, p.rangeFrom(begin))
	default:
		return p.parseStatement()
	}
}

// parseStatement dispatches every statement form (spec §6.2 grammar).
func (p *Parser) parseStatement() ast.Stmt {
	begin := p.cur().Range.Begin
	switch p.cur().Kind {
	case token.LBrace:
		return p.parseBlock()
	case token.KwIf:
		return p.parseIfStmt()
	case token.KwMatch:
		return p.parseMatchStmt()
	case token.KwFor:
		return p.parseForStmt()
	case token.KwWhile:
		return p.parseWhileStmt()
	case token.KwWith:
		return p.parseWithStmt()
	case token.KwTry:
		return p.parseTryStmt()
	case token.KwBreak:
		return p.parseBreakStmt()
	case token.KwContinue:
		return p.parseContinueStmt()
	case token.KwReturn:
		return p.parseReturnStmt()
	case token.KwAssert:
		return p.parseAssertStmt()
	case token.KwPass:
		p.advance()
		return mk(&ast.PassStmt{}, p.rangeFrom(begin))
	default:
		return p.parseSimpleStmt()
	}
}

func (p *Parser) parseIfStmt() ast.Stmt {
	begin := p.cur().Range.Begin
	p.expect(token.KwIf)
	cond := p.parseExpr(0)
	then := p.parseBlock()
	var elseClause ast.Stmt
	if _, ok := p.accept(token.KwElse); ok {
		if p.at(token.KwIf) {
			elseClause = p.parseIfStmt()
		} else {
			elseClause = p.parseBlock()
		}
	}
	return mk(&ast.IfStmt{Cond: cond, Then: then, Else: elseClause}, p.rangeFrom(begin))
}

func (p *Parser) parseMatchStmt() ast.Stmt {
	begin := p.cur().Range.Begin
	p.expect(token.KwMatch)
	value := p.parseExpr(0)
	p.expect(token.LBrace)
	p.skipNewlines()
	var arms []*ast.MatchArm
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		arms = append(arms, p.parseMatchArm())
		p.skipNewlines()
	}
	p.expect(token.RBrace)
	return mk(&ast.MatchStmt{Value: value, Arms: arms}, p.rangeFrom(begin))
}

// parseMatchArm parses one or more comma-separated `case`/`default` labels
// sharing a single statement body (spec §4.3).
func (p *Parser) parseMatchArm() *ast.MatchArm {
	begin := p.cur().Range.Begin
	var labels []*ast.Label
	for {
		labels = append(labels, p.parseLabel())
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	p.expect(token.Colon)
	p.skipNewlines()
	var body []ast.Stmt
	for !p.atAny(token.KwCase, token.KwDefault, token.RBrace, token.EOF) {
		body = append(body, p.parseBlockItem())
		p.skipNewlines()
	}
	return mk(&ast.MatchArm{Labels: labels, Body: body}, p.rangeFrom(begin))
}

func (p *Parser) parseLabel() *ast.Label {
	begin := p.cur().Range.Begin
	if _, ok := p.accept(token.KwDefault); ok {
		return mk(&ast.Label{Kind: ast.LabelDefault}, p.rangeFrom(begin))
	}
	p.expect(token.KwCase)
	value := p.parseExpr(0)
	return mk(&ast.Label{Kind: ast.LabelCase, Value: value}, p.rangeFrom(begin))
}

func (p *Parser) parseForStmt() ast.Stmt {
	begin := p.cur().Range.Begin
	p.expect(token.KwFor)
	name := p.parseIdentifier()
	p.expect(token.KwIn)
	iterable := p.parseExpr(0)
	body := p.parseBlock()
	return mk(&ast.ForStmt{Var: name, Iterable: iterable, Body: body}, p.rangeFrom(begin))
}

func (p *Parser) parseWhileStmt() ast.Stmt {
	begin := p.cur().Range.Begin
	p.expect(token.KwWhile)
	cond := p.parseExpr(0)
	body := p.parseBlock()
	return mk(&ast.WhileStmt{Cond: cond, Body: body}, p.rangeFrom(begin))
}

func (p *Parser) parseWithStmt() ast.Stmt {
	begin := p.cur().Range.Begin
	p.expect(token.KwWith)
	resource := p.parseExpr(0)
	p.expect(token.KwAs)
	name := p.parseIdentifier()
	body := p.parseBlock()
	return mk(&ast.WithStmt{Resource: resource, Var: name, Body: body}, p.rangeFrom(begin))
}

func (p *Parser) parseTryStmt() ast.Stmt {
	begin := p.cur().Range.Begin
	p.expect(token.KwTry)
	body := p.parseBlock()
	var excepts []*ast.ExceptClause
	for p.at(token.KwExcept) {
		excepts = append(excepts, p.parseExceptClause())
	}
	var finally *ast.BlockStmt
	if _, ok := p.accept(token.KwFinally); ok {
		finally = p.parseBlock()
	}
	if len(excepts) == 0 && finally == nil {
		p.rep.Report(diag.KindExpectedStatement, p.cur().Range.Begin, "'try' requires at least one 'except' or a 'finally'")
	}
	return mk(&ast.TryStmt{Body: body, Excepts: excepts, Finally: finally}, p.rangeFrom(begin))
}

func (p *Parser) parseExceptClause() *ast.ExceptClause {
	begin := p.cur().Range.Begin
	p.expect(token.KwExcept)
	var typ *ast.Identifier
	var varName *ast.Identifier
	if !p.at(token.LBrace) {
		id := p.parseIdentifier()
		typ = &id
		if _, ok := p.accept(token.KwAs); ok {
			v := p.parseIdentifier()
			varName = &v
		}
	}
	body := p.parseBlock()
	return mk(&ast.ExceptClause{Type: typ, Var: varName, Body: body}, p.rangeFrom(begin))
}

func (p *Parser) parseBreakStmt() ast.Stmt {
	begin := p.cur().Range.Begin
	p.expect(token.KwBreak)
	var value, guard ast.Expr
	if !p.atAny(token.Newline, token.EOF, token.RBrace) && !p.at(token.KwIf) {
		value = p.parseExpr(0)
	}
	if _, ok := p.accept(token.KwIf); ok {
		guard = p.parseExpr(0)
	}
	return mk(&ast.BreakStmt{Value: value, Guard: guard}, p.rangeFrom(begin))
}

func (p *Parser) parseContinueStmt() ast.Stmt {
	begin := p.cur().Range.Begin
	p.expect(token.KwContinue)
	var guard ast.Expr
	if _, ok := p.accept(token.KwIf); ok {
		guard = p.parseExpr(0)
	}
	return mk(&ast.ContinueStmt{Guard: guard}, p.rangeFrom(begin))
}

func (p *Parser) parseReturnStmt() ast.Stmt {
	begin := p.cur().Range.Begin
	p.expect(token.KwReturn)
	var value, guard ast.Expr
	if !p.atAny(token.Newline, token.EOF, token.RBrace) && !p.at(token.KwIf) {
		value = p.parseExpr(0)
	}
	if _, ok := p.accept(token.KwIf); ok {
		guard = p.parseExpr(0)
	}
	return mk(&ast.ReturnStmt{Value: value, Guard: guard}, p.rangeFrom(begin))
}

func (p *Parser) parseAssertStmt() ast.Stmt {
	begin := p.cur().Range.Begin
	p.expect(token.KwAssert)
	cond := p.parseExpr(0)
	var msg ast.Expr
	if _, ok := p.accept(token.Colon); ok {
		msg = p.parseExpr(0)
	}
	return mk(&ast.AssertStmt{Cond: cond, Message: msg}, p.rangeFrom(begin))
}

// parseSimpleStmt parses a bare expression, which is either an assignment
// target followed by an assignment operator, or an expression statement
// (spec §6.2).
func (p *Parser) parseSimpleStmt() ast.Stmt {
	begin := p.cur().Range.Begin
	e := p.parseExpr(0)
	if op, ok := assignOps[p.cur().Kind]; ok {
		p.advance()
		value := p.parseExpr(0)
		return mk(&ast.AssignStmt{Target: e, Op: op, Value: value}, p.rangeFrom(begin))
	}
	return mk(&ast.ExprStmt{Value: e}, p.rangeFrom(begin))
}
