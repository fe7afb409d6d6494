// Package sema implements the SemanticAnalyzer described in spec §4.4: a
// single AST walk that resolves names against the LocalScope/DeclScope
// hierarchy in internal/symbols, builds every Symbol the IR generator
// consumes, and reports the semantic diagnostic kinds from internal/diag
// (redefinition, unreachable break/continue/return, invalid assignment
// targets, malformed initializer calls, and so on).
//
// The walk never aborts on error: like the reporter it drives, an invalid
// construct is diagnosed and then treated as best it can be so that later,
// independent errors in the same file are still found (spec §5, §7).
package sema

import (
	"strconv"

	"github.com/buildc-lang/buildc/internal/ast"
	"github.com/buildc-lang/buildc/internal/diag"
	"github.com/buildc-lang/buildc/internal/symbols"
)

// frame records one enclosing function/method/closure context so that
// closure capture discovery can walk outward from the current scope (spec
// §4.4 "closure capture discovery"). The script itself is frame 0.
type frame struct {
	decl  *symbols.DeclScope
	local *symbols.LocalScope
}

// SemanticAnalyzer walks a Script and its declarations, populating symbols
// and scopes in place on the AST nodes that carry one-write Symbol fields.
type SemanticAnalyzer struct {
	rep   *diag.Reporter
	decl  *symbols.DeclScope
	local *symbols.LocalScope

	stack []frame // enclosing function/method/closure contexts, outermost first

	// boundedCache remembers the BoundedLocalSymbol already synthesized for
	// a given (closure DeclScope, captured VariableSymbol) pair so repeated
	// references inside one closure share the same wrapper instance.
	boundedCache map[*symbols.DeclScope]map[*symbols.VariableSymbol]*symbols.BoundedLocalSymbol

	// hoisted maps a top-level def/class/task Decl to the symbol created
	// for it in the hoisting pre-pass (see hoistTopLevel), so the second,
	// body-analyzing pass reuses it instead of redeclaring (which would
	// otherwise report a spurious self-redefinition).
	hoisted map[ast.Decl]symbols.Symbol

	closureCount int
}

// Analyze walks script, returning the root DeclScope it built. Diagnostics
// are reported to rep as they are found; rep.HasErrors() tells the caller
// whether IR generation may proceed (spec §7).
func Analyze(script *ast.Script, rep *diag.Reporter) *symbols.DeclScope {
	a := &SemanticAnalyzer{
		rep:          rep,
		boundedCache: map[*symbols.DeclScope]map[*symbols.VariableSymbol]*symbols.BoundedLocalSymbol{},
		hoisted:      map[ast.Decl]symbols.Symbol{},
	}
	a.decl = symbols.NewScriptScope()
	a.local = a.decl.Root
	a.analyzeScript(script)
	return a.decl
}

func (a *SemanticAnalyzer) pushFrame() {
	a.stack = append(a.stack, frame{decl: a.decl, local: a.local})
}

func (a *SemanticAnalyzer) popFrame() {
	a.stack = a.stack[:len(a.stack)-1]
}

// withLocalScope pushes a block-structured child scope (spec §3.5 LocalScope
// nesting) for the duration of f.
func (a *SemanticAnalyzer) withLocalScope(kind symbols.LocalScopeKind, f func()) {
	saved := a.local
	a.local = a.local.NewChild(kind)
	f()
	a.local = saved
}

// withDeclScope pushes a new declaration scope (function/method/class/
// closure) for the duration of f. The outer (pre-swap) context is what gets
// recorded on the enclosing-scope stack: closure capture discovery walks
// that stack outward from the *current* scope, so each entry must describe
// an ancestor, never the scope being entered.
func (a *SemanticAnalyzer) withDeclScope(child *symbols.DeclScope, f func()) {
	savedDecl, savedLocal := a.decl, a.local
	a.pushFrame()
	a.decl, a.local = child, child.Root
	f()
	a.decl, a.local = savedDecl, savedLocal
	a.popFrame()
}

// declare registers sym under id in the current LocalScope, reporting a
// redefinition diagnostic if the scope already holds an entry with the same
// name, whether with the same signature (FoundInScope) or with another
// signature or kind (FoundRedefinition) (spec §4.4 "redefinition/overload
// resolution"). The
// symbol is declared regardless, so later references still resolve to
// something and the walk can keep finding independent errors.
func (a *SemanticAnalyzer) declare(id ast.Identifier, sym symbols.Symbol, argc int, vararg bool) {
	if existing, res := a.local.LookupLocal(id.Name, argc, vararg); res == symbols.FoundInScope || res == symbols.FoundRedefinition {
		a.rep.Report(diag.KindRedefinition, id.Range.Begin, "%s is already declared in this scope", symbols.Describe(sym)).
			Reference(existing.Position(), "first declared here")
	}
	a.local.Declare(id.Name, sym)
}

// createGlobalSymbol declares a variable at script (global) scope.
func (a *SemanticAnalyzer) createGlobalSymbol(id ast.Identifier, kind symbols.VariableKindAttr, readonly bool) *symbols.VariableSymbol {
	sym := symbols.NewVariable(id.Name, id.Range.Begin, kind, readonly)
	a.declare(id, sym, 0, false)
	return sym
}

// createLocalSymbol declares a variable/parameter/except binding local to
// the current (non-global) scope.
func (a *SemanticAnalyzer) createLocalSymbol(id ast.Identifier, kind symbols.VariableKindAttr, readonly bool) *symbols.VariableSymbol {
	sym := symbols.NewVariable(id.Name, id.Range.Begin, kind, readonly)
	a.declare(id, sym, 0, false)
	return sym
}

// declareVariable picks VarGlobal/VarLocal based on the current scope,
// matching spec §3.4's VariableKindAttr classification, unless exported is
// set (an `export var`/`export const` at script scope).
func (a *SemanticAnalyzer) declareVariable(id ast.Identifier, readonly, exported bool) *symbols.VariableSymbol {
	switch {
	case exported:
		return a.createGlobalSymbol(id, symbols.VarExported, readonly)
	case a.local.IsGlobal():
		return a.createGlobalSymbol(id, symbols.VarGlobal, readonly)
	default:
		return a.createLocalSymbol(id, symbols.VarLocal, readonly)
	}
}

// analyzeScript walks the top-level imports/exports/body (spec §3.3: a
// script's body executes top to bottom like a function body, so it shares
// the script-level DeclScope created by Analyze).
func (a *SemanticAnalyzer) analyzeScript(script *ast.Script) {
	for _, imp := range script.Imports {
		if !a.decl.CanImport {
			a.rep.Report(diag.KindCannotImport, imp.Range().Begin, "import is only valid at script scope")
			continue
		}
		a.createGlobalSymbol(imp.Name, symbols.VarImplicit, true)
	}
	for _, d := range script.Body {
		a.hoistTopLevel(d)
	}
	for _, exp := range script.Exports {
		a.hoistTopLevel(exp.Inner)
		a.analyzeExportDecl(exp)
	}
	for _, d := range script.Body {
		a.analyzeTopLevelDecl(d)
	}
}

// hoistTopLevel pre-declares a top-level def/class/task's symbol (but not
// its body) so that one such declaration may forward-reference another
// declared later in the same script, matching the teacher's own top-down
// single-pass scripts running as declared-then-executed units (spec §3.3).
// Bare statements and var/const declarations are never hoisted: only named,
// callable/instantiable declarations are.
func (a *SemanticAnalyzer) hoistTopLevel(d ast.Decl) {
	switch v := d.(type) {
	case *ast.ExportDecl:
		a.hoistTopLevel(v.Inner)
	case *ast.FunctionDecl:
		argc, vararg := paramSignature(v.Params)
		sym := symbols.NewFunction(v.Name.Name, v.Name.Range.Begin, argc, vararg)
		a.declare(v.Name, sym, argc, vararg)
		a.hoisted[v] = sym
	case *ast.ClassDecl:
		sym := symbols.NewClass(v.Name.Name, v.Name.Range.Begin, false)
		a.declare(v.Name, sym, 0, false)
		a.hoisted[v] = sym
	case *ast.TaskDecl:
		sym := symbols.NewClass(v.Name.Name, v.Name.Range.Begin, true)
		a.declare(v.Name, sym, 0, false)
		a.hoisted[v] = sym
	}
}

func (a *SemanticAnalyzer) analyzeExportDecl(exp *ast.ExportDecl) {
	if !a.decl.CanExport {
		a.rep.Report(diag.KindCannotExport, exp.Range().Begin, "export is only valid at script scope")
	}
	switch inner := exp.Inner.(type) {
	case *ast.VarDecl:
		a.analyzeVarDecl(inner, true)
	default:
		a.analyzeTopLevelDecl(exp.Inner)
	}
}

// analyzeTopLevelDecl dispatches a script-body declaration (spec §4.3
// parse_declaration's semantic counterpart).
func (a *SemanticAnalyzer) analyzeTopLevelDecl(d ast.Decl) {
	switch v := d.(type) {
	case *ast.VarDecl:
		a.analyzeVarDecl(v, false)
	case *ast.FunctionDecl:
		a.analyzeFunctionDecl(v)
	case *ast.ClassDecl:
		a.analyzeClassDecl(v)
	case *ast.TaskDecl:
		a.analyzeTaskDecl(v)
	case *ast.StmtDecl:
		a.analyzeStmt(v.Stmt)
	case *ast.InvalidDecl:
		// parser-recovery placeholder; nothing to analyze.
	case *ast.ExportDecl:
		a.analyzeExportDecl(v)
	default:
		a.rep.Report(diag.KindExpectedStatement, d.Range().Begin, "unsupported declaration %T", v)
	}
}

func (a *SemanticAnalyzer) analyzeVarDecl(d *ast.VarDecl, exported bool) {
	if d.Value != nil {
		a.analyzeExpr(d.Value)
	}
	sym := a.declareVariable(d.Name, d.Access.Const, exported)
	d.SetSymbol(sym)
	if d.Value != nil {
		sym.MarkInitialized()
	}
}

func (a *SemanticAnalyzer) analyzeFunctionDecl(d *ast.FunctionDecl) {
	sym, ok := a.hoisted[d].(*symbols.FunctionSymbol)
	if !ok {
		argc, vararg := paramSignature(d.Params)
		sym = symbols.NewFunction(d.Name.Name, d.Name.Range.Begin, argc, vararg)
		a.declare(d.Name, sym, argc, vararg)
	}
	d.SetSymbol(sym)

	child := a.decl.NewFunctionScope()
	a.withDeclScope(child, func() {
		a.declareParameters(d.Params)
		a.analyzeBlockBody(d.Body)
	})
}

// declareParameters declares every parameter of params as a read-write
// local of kind VarParameter in the current (freshly entered) DeclScope's
// root LocalScope (spec §4.4).
func (a *SemanticAnalyzer) declareParameters(params *ast.Parameters) {
	if params == nil {
		return
	}
	for _, p := range params.Params {
		sym := a.createLocalSymbol(p.Name, symbols.VarParameter, false)
		sym.MarkInitialized()
		p.Symbol = sym
	}
}

// analyzeBlockBody walks a function/method/closure's top-level statement
// list directly in the DeclScope's root LocalScope, without an extra
// nested Block scope layer (parameters and the body's own locals share one
// scope, matching the original's single FunctionScope).
func (a *SemanticAnalyzer) analyzeBlockBody(b *ast.BlockStmt) {
	for _, s := range b.Body {
		a.analyzeStmt(s)
	}
}

// evalConstant evaluates a case-label expression to a CaseValue if it is one
// of the literal forms spec §4.4 allows (Integer/Float/Boolean/String
// without interpolation); anything else yields ok=false and the caller
// reports KindInvalidCaseValue.
func evalConstant(e ast.Expr) (ast.CaseValue, bool) {
	lit, ok := e.(*ast.LiteralExpr)
	if !ok {
		return ast.CaseValue{}, false
	}
	switch lit.Kind {
	case ast.LiteralInteger:
		// Image is the raw lexeme; the lexer already validated it, so a
		// parse failure here can only mean overflow, which a case label
		// simply treats as an invalid constant.
		v, err := strconv.ParseInt(lit.Image, 10, 64)
		if err != nil {
			return ast.CaseValue{}, false
		}
		return ast.CaseValue{Kind: ast.LiteralInteger, I: v}, true
	case ast.LiteralFloat:
		v, err := strconv.ParseFloat(lit.Image, 64)
		if err != nil {
			return ast.CaseValue{}, false
		}
		return ast.CaseValue{Kind: ast.LiteralFloat, F: v}, true
	case ast.LiteralBoolean:
		return ast.CaseValue{Kind: ast.LiteralBoolean, B: lit.Image == "true"}, true
	case ast.LiteralString:
		if len(lit.Interpolations) > 0 {
			return ast.CaseValue{}, false
		}
		return ast.CaseValue{Kind: ast.LiteralString, S: lit.Image}, true
	default:
		return ast.CaseValue{}, false
	}
}
