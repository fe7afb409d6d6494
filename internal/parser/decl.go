package parser

import (
	"github.com/buildc-lang/buildc/internal/ast"
	"github.com/buildc-lang/buildc/internal/diag"
	"github.com/buildc-lang/buildc/internal/token"
)

func (p *Parser) parseImportDecl() *ast.ImportDecl {
	begin := p.cur().Range.Begin
	p.expect(token.KwImport)
	name := p.parseIdentifier()
	return mk(&ast.ImportDecl{Name: name}, p.rangeFrom(begin))
}

func (p *Parser) parseExportDecl() *ast.ExportDecl {
	begin := p.cur().Range.Begin
	p.expect(token.KwExport)
	inner := p.parseDeclarationOrStatement()
	return mk(&ast.ExportDecl{Inner: inner}, p.rangeFrom(begin))
}

// parseDeclarationOrStatement dispatches a script/class/task body item:
// var/const declarations and def/class/task definitions are declarations;
// everything else is a statement, wrapped in a StmtDecl when used at a
// position that requires a Decl (spec §4.3 parse_declaration).
func (p *Parser) parseDeclarationOrStatement() ast.Decl {
	switch p.cur().Kind {
	case token.KwVar, token.KwConst:
		return p.parseVarDecl()
	case token.KwDef:
		return p.parseFunctionDecl()
	case token.KwClass:
		return p.parseClassDecl()
	case token.KwTask:
		return p.parseTaskDecl()
	default:
		begin := p.cur().Range.Begin
		s := p.parseStatement()
		return mk(&ast.StmtDecl{Stmt: s}, p.rangeFrom(begin))
	}
}

func (p *Parser) parseAccessFlags() ast.AccessFlags {
	var flags ast.AccessFlags
	for {
		switch p.cur().Kind {
		case token.KwConst:
			if flags.Const {
				p.rep.Report(diag.KindRedundantKeyword, p.cur().Range.Begin, "duplicate 'const'")
			}
			if flags.First.Begin.IsSynthetic() {
				flags.First = p.cur().Range
			}
			flags.Const = true
			p.advance()
		case token.KwStatic:
			if flags.Static {
				p.rep.Report(diag.KindRedundantKeyword, p.cur().Range.Begin, "duplicate 'static'")
			}
			if flags.First.Begin.IsSynthetic() {
				flags.First = p.cur().Range
			}
			flags.Static = true
			p.advance()
		case token.KwVar:
			if flags.Var {
				p.rep.Report(diag.KindRedundantKeyword, p.cur().Range.Begin, "duplicate 'var'")
			}
			if flags.First.Begin.IsSynthetic() {
				flags.First = p.cur().Range
			}
			flags.Var = true
			p.advance()
		default:
			return flags
		}
	}
}

func (p *Parser) parseVarDecl() *ast.VarDecl {
	begin := p.cur().Range.Begin
	access := p.parseAccessFlags()
	if !access.Const && !access.Var {
		// callers dispatch here on `var`/`const` without consuming it;
		// parseAccessFlags only sets flags for keywords it actually
		// consumes, so reaching here with neither set means no `var` or
		// `const` modifier was found, which is invalid at this position.
		p.rep.Report(diag.KindExpectedModifier, p.cur().Range.Begin, "expected 'var' or 'const'")
	}
	name := p.parseIdentifier()
	var value ast.Expr
	if _, ok := p.accept(token.Equal); ok {
		value = p.parseExpr(0)
	}
	return mk(&ast.VarDecl{Access: access, Name: name, Value: value}, p.rangeFrom(begin))
}

func (p *Parser) parseFunctionDecl() *ast.FunctionDecl {
	begin := p.cur().Range.Begin
	p.expect(token.KwDef)
	name := p.parseIdentifier()
	params := p.parseParameters()
	body := p.parseFunctionBody()
	return mk(&ast.FunctionDecl{Name: name, Params: params, Body: body}, p.rangeFrom(begin))
}

// parseFunctionBody parses either a `{ ... }` block or a `=> expr`
// shorthand, normalizing the latter into a one-statement BlockStmt (spec
// §4.3).
func (p *Parser) parseFunctionBody() *ast.BlockStmt {
	begin := p.cur().Range.Begin
	if _, ok := p.accept(token.FatArrow); ok {
		val := p.parseExpr(0)
		arrow := mk(&ast.ArrowStmt{Value: val}, p.rangeFrom(begin))
		return mk(&ast.BlockStmt{Body: []ast.Stmt{arrow}}, p.rangeFrom(begin))
	}
	return p.parseBlock()
}

func (p *Parser) parseClassDecl() *ast.ClassDecl {
	begin := p.cur().Range.Begin
	p.expect(token.KwClass)
	name := p.parseIdentifier()
	var extends *ast.Identifier
	if _, ok := p.accept(token.KwExtends); ok {
		id := p.parseIdentifier()
		extends = &id
	}
	p.expect(token.LBrace)
	p.skipNewlines()
	var members []ast.ClassMember
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		members = append(members, p.parseClassMember())
		p.skipNewlines()
	}
	p.expect(token.RBrace)
	return mk(&ast.ClassDecl{Name: name, Extends: extends, Members: members}, p.rangeFrom(begin))
}

// parseClassMember dispatches the class member forms (spec §4.3 "Class
// members"): init/deinit, [static] def [operator], get/set properties, and
// const/static fields.
func (p *Parser) parseClassMember() ast.ClassMember {
	begin := p.cur().Range.Begin
	switch p.cur().Kind {
	case token.KwInit:
		p.advance()
		params := p.parseParameters()
		body := p.parseBlock()
		return mk(&ast.ClassInitDecl{Params: params, Body: body}, p.rangeFrom(begin))
	case token.KwDeinit:
		p.advance()
		p.expect(token.LParen)
		p.expect(token.RParen)
		body := p.parseBlock()
		return mk(&ast.ClassDeinitDecl{Body: body}, p.rangeFrom(begin))
	case token.KwGet:
		p.advance()
		name := p.parseIdentifier()
		p.expect(token.LParen)
		p.expect(token.RParen)
		body := p.parseBlock()
		return mk(&ast.ClassPropertyDecl{Accessor: ast.AccessorGet, Name: name, Body: body}, p.rangeFrom(begin))
	case token.KwSet:
		p.advance()
		name := p.parseIdentifier()
		p.expect(token.LParen)
		valID := p.parseIdentifier()
		param := mk(&ast.Param{Name: valID}, valID.Range)
		p.expect(token.RParen)
		body := p.parseBlock()
		return mk(&ast.ClassPropertyDecl{Accessor: ast.AccessorSet, Name: name, Param: param, Body: body}, p.rangeFrom(begin))
	case token.KwStatic:
		if p.peek(1).Kind == token.KwDef {
			p.advance()
			return p.parseClassMethod(begin, ast.MethodStatic)
		}
		return p.parseClassField(begin)
	case token.KwConst:
		return p.parseClassField(begin)
	case token.KwDef:
		return p.parseClassMethod(begin, ast.MethodPlain)
	default:
		p.rep.Report(diag.KindExpectedStatement, p.cur().Range.Begin, "expected class member, got %s", p.cur().Kind)
		p.skipToEOL()
		return mk(&invalidClassMember{}, p.rangeFrom(begin))
	}
}

// invalidClassMember is the parser-recovery placeholder for a malformed
// class member (spec §7).
type invalidClassMember struct{ ast.InvalidDecl }

func (p *Parser) parseClassField(begin token.Position) ast.ClassMember {
	access := p.parseAccessFlags()
	name := p.parseIdentifier()
	var value ast.Expr
	if _, ok := p.accept(token.Equal); ok {
		value = p.parseExpr(0)
	}
	return mk(&ast.ClassFieldDecl{Access: access, Name: name, Value: value}, p.rangeFrom(begin))
}

func (p *Parser) parseClassMethod(begin token.Position, decoration ast.MethodDecorationKind) ast.ClassMember {
	p.expect(token.KwDef)
	if decoration == ast.MethodPlain && p.at(token.KwOperator) {
		p.advance()
		decoration = ast.MethodOperator
		opName := p.parseOperatorSpelling()
		params := p.parseParameters()
		body := p.parseBlock()
		return mk(&ast.ClassMethodDecl{Decoration: decoration, Name: opName, Params: params, Body: body}, p.rangeFrom(begin))
	}
	name := p.parseIdentifier()
	params := p.parseParameters()
	body := p.parseBlock()
	return mk(&ast.ClassMethodDecl{Decoration: decoration, Name: name, Params: params, Body: body}, p.rangeFrom(begin))
}

// parseOperatorSpelling consumes the punctuator or `[]`/`[]=` spelling of an
// operator overload's name and synthesizes an Identifier for it (spec
// §4.4: operator overloads are looked up by their symbolic name).
func (p *Parser) parseOperatorSpelling() ast.Identifier {
	t := p.cur()
	begin := t.Range.Begin
	if t.Kind == token.LBracket {
		p.advance()
		p.expect(token.RBracket)
		name := "[]"
		if _, ok := p.accept(token.Equal); ok {
			name = "[]="
		}
		return ast.Identifier{Range: p.rangeFrom(begin), Name: name}
	}
	p.advance()
	return ast.Identifier{Range: t.Range, Name: t.Kind.String()}
}

func (p *Parser) parseTaskDecl() *ast.TaskDecl {
	begin := p.cur().Range.Begin
	p.expect(token.KwTask)
	name := p.parseIdentifier()
	var extends *ast.Identifier
	if _, ok := p.accept(token.KwExtends); ok {
		id := p.parseIdentifier()
		extends = &id
	}
	var dependsOn []ast.Identifier
	if _, ok := p.accept(token.KwDependsOn); ok {
		dependsOn = append(dependsOn, p.parseIdentifier())
		for {
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
			dependsOn = append(dependsOn, p.parseIdentifier())
		}
	}
	p.expect(token.LBrace)
	p.skipNewlines()
	var members []ast.TaskMember
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		members = append(members, p.parseTaskMember())
		p.skipNewlines()
	}
	p.expect(token.RBrace)
	return mk(&ast.TaskDecl{Name: name, Extends: extends, DependsOn: dependsOn, Members: members}, p.rangeFrom(begin))
}

// parseTaskMember dispatches the task member forms (spec §4.4: do/doFirst/
// doLast action blocks, inputs/outputs, and bare property assignments).
func (p *Parser) parseTaskMember() ast.TaskMember {
	begin := p.cur().Range.Begin
	switch p.cur().Kind {
	case token.KwDo:
		p.advance()
		body := p.parseBlock()
		return mk(&ast.TaskActionDecl{Action: ast.ActionDo, Body: body}, p.rangeFrom(begin))
	case token.KwDoFirst:
		p.advance()
		body := p.parseBlock()
		return mk(&ast.TaskActionDecl{Action: ast.ActionDoFirst, Body: body}, p.rangeFrom(begin))
	case token.KwDoLast:
		p.advance()
		body := p.parseBlock()
		return mk(&ast.TaskActionDecl{Action: ast.ActionDoLast, Body: body}, p.rangeFrom(begin))
	case token.KwInputs:
		p.advance()
		pattern := p.parseExpr(0)
		var resolver ast.Expr
		if _, ok := p.accept(token.KwWith); ok {
			resolver = p.parseExpr(0)
		}
		return mk(&ast.TaskInputsDecl{Pattern: pattern, Resolver: resolver}, p.rangeFrom(begin))
	case token.KwOutputs:
		p.advance()
		pattern := p.parseExpr(0)
		var from ast.Expr
		if _, ok := p.accept(token.KwFrom); ok {
			from = p.parseExpr(0)
		}
		return mk(&ast.TaskOutputsDecl{Pattern: pattern, From: from}, p.rangeFrom(begin))
	default:
		name := p.parseIdentifier()
		p.expect(token.Equal)
		value := p.parseExpr(0)
		return mk(&ast.TaskPropertyDecl{Name: name, Value: value}, p.rangeFrom(begin))
	}
}
