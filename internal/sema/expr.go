package sema

import (
	"github.com/buildc-lang/buildc/internal/ast"
	"github.com/buildc-lang/buildc/internal/diag"
	"github.com/buildc-lang/buildc/internal/symbols"
	"github.com/buildc-lang/buildc/internal/token"
)

// resolveNamed searches the current scope chain, then each enclosing
// function/method/closure frame outward, for name (spec §4.4 "symbol
// resolution"). A hit in an outer frame is rewritten through
// captureAcrossClosures so every intervening closure boundary records the
// capture (spec §4.4 "closure capture discovery").
func (a *SemanticAnalyzer) resolveNamed(name string) (symbols.Symbol, bool) {
	if sym, _ := a.local.Lookup(name); sym != nil {
		return sym, true
	}
	for i := len(a.stack) - 1; i >= 0; i-- {
		if sym, _ := a.stack[i].local.Lookup(name); sym != nil {
			return a.captureAcrossClosures(sym, i), true
		}
	}
	return nil, false
}

// captureAcrossClosures rewrites owner (found in the frame at stackIdx)
// into a BoundedLocalSymbol for the current DeclScope and every Closure-kind
// DeclScope strictly between stackIdx and the current scope, so each
// intervening closure layer carries the capture through to the next (spec
// glossary "closure capture / bounded local"). Symbols that aren't local
// storage (globals, functions, types) never need a bounded wrapper, since
// they're reachable without capturing a register.
func (a *SemanticAnalyzer) captureAcrossClosures(owner symbols.Symbol, stackIdx int) symbols.Symbol {
	vs, ok := owner.(*symbols.VariableSymbol)
	if !ok || !vs.VarKind.IsLocalStorage() {
		return owner
	}
	var result symbols.Symbol = vs
	for i := stackIdx + 1; i < len(a.stack); i++ {
		if a.stack[i].decl.Kind == symbols.DeclClosure {
			result = a.boundLocalFor(a.stack[i].decl, vs)
		}
	}
	if a.decl.Kind == symbols.DeclClosure {
		result = a.boundLocalFor(a.decl, vs)
	}
	return result
}

// boundLocalFor returns the (cached) BoundedLocalSymbol wrapping vs for
// scope, registering it in scope's ordered captured-locals set the first
// time it's requested.
func (a *SemanticAnalyzer) boundLocalFor(scope *symbols.DeclScope, vs *symbols.VariableSymbol) *symbols.BoundedLocalSymbol {
	m, ok := a.boundedCache[scope]
	if !ok {
		m = map[*symbols.VariableSymbol]*symbols.BoundedLocalSymbol{}
		a.boundedCache[scope] = m
	}
	if b, ok := m[vs]; ok {
		return b
	}
	b := symbols.NewBoundedLocal(vs)
	m[vs] = b
	scope.AddBoundedLocal(b)
	return b
}

// resolveVariable resolves a bare identifier reference, reporting
// used-before-declare for a name with no visible binding (spec §4.4).
func (a *SemanticAnalyzer) resolveVariable(id ast.Identifier) symbols.Symbol {
	if sym, ok := a.resolveNamed(id.Name); ok {
		if vs, ok := sym.(*symbols.VariableSymbol); ok && !vs.Initialized() {
			a.rep.Report(diag.KindUsedBeforeInit, id.Range.Begin, "%s used before it is initialized", symbols.Describe(vs))
		}
		return sym
	}
	a.rep.Report(diag.KindUsedBeforeDeclare, id.Range.Begin, "undeclared identifier '%s'", id.Name)
	return symbols.NewUndeclared(id.Name, id.Range.Begin)
}

// analyzeExpr dispatches every expression kind (spec §4.4).
func (a *SemanticAnalyzer) analyzeExpr(e ast.Expr) {
	switch v := e.(type) {
	case *ast.LiteralExpr:
		for _, part := range v.Interpolations {
			a.analyzeExpr(part)
		}
	case *ast.VariableExpr:
		v.SetSymbol(a.resolveVariable(v.Name))
	case *ast.SelfExpr:
		v.Symbol = a.resolveSelfLike(v.Range().Begin)
	case *ast.SuperExpr:
		v.Symbol = a.resolveSelfLike(v.Range().Begin)
	case *ast.BinaryExpr:
		a.analyzeExpr(v.LHS)
		a.analyzeExpr(v.RHS)
	case *ast.LogicalExpr:
		a.analyzeExpr(v.LHS)
		a.analyzeExpr(v.RHS)
	case *ast.UnaryExpr:
		a.analyzeExpr(v.Operand)
	case *ast.DefinedExpr:
		// `defined` never reports undeclared: that's exactly the condition
		// it's testing for (spec §4.3 unary level).
		if sym, ok := a.resolveNamed(v.Name.Name); ok {
			v.SetSymbol(sym)
		} else {
			v.SetSymbol(symbols.NewUndeclared(v.Name.Name, v.Name.Range.Begin))
		}
		if v.In != nil {
			a.analyzeExpr(v.In)
		}
	case *ast.RaiseExpr:
		a.analyzeExpr(v.Value)
	case *ast.TernaryExpr:
		a.analyzeExpr(v.Cond)
		a.analyzeExpr(v.Then)
		a.analyzeExpr(v.Else)
	case *ast.TypeTestExpr:
		a.analyzeExpr(v.Target)
		if sym, ok := a.resolveNamed(v.Type.Name); ok {
			v.SetSymbol(sym)
		} else {
			a.rep.Report(diag.KindUsedBeforeDeclare, v.Type.Range.Begin, "undeclared type %s", v.Type.Name)
			v.SetSymbol(symbols.NewUndeclared(v.Type.Name, v.Type.Range.Begin))
		}
	case *ast.ContainmentTestExpr:
		a.analyzeExpr(v.Value)
		a.analyzeExpr(v.Target)
	case *ast.InvocationExpr:
		a.analyzeExpr(v.Callee)
		for _, arg := range v.Args {
			a.analyzeExpr(arg.Value)
		}
	case *ast.MemberAccessExpr:
		a.analyzeExpr(v.Target)
	case *ast.SubscriptExpr:
		a.analyzeExpr(v.Target)
		a.analyzeExpr(v.Index)
	case *ast.ListExpr:
		for _, elem := range v.Elements {
			a.analyzeExpr(elem)
		}
	case *ast.MapExpr:
		for _, entry := range v.Entries {
			a.analyzeExpr(entry.Key)
			a.analyzeExpr(entry.Value)
		}
	case *ast.RangeExpr:
		a.analyzeExpr(v.Begin)
		a.analyzeExpr(v.End)
	case *ast.ClosureExpr:
		a.analyzeClosureExpr(v)
	case *ast.InvalidExpr:
		// parser-recovery placeholder.
	default:
		a.rep.Report(diag.KindExpectedExpression, e.Range().Begin, "unsupported expression %T", v)
	}
}

// resolveSelfLike resolves the implicit "self" binding shared by `self` and
// `super` (spec §4.4 "implicit self binding"); which keyword was written
// only affects how later stages dispatch calls through the same binding.
func (a *SemanticAnalyzer) resolveSelfLike(pos token.Position) symbols.Symbol {
	if sym, ok := a.resolveNamed("self"); ok {
		return sym
	}
	a.rep.Report(diag.KindReservedIdentifier, pos, "'self'/'super' is only valid inside an instance method")
	return symbols.NewUndeclared("self", pos)
}

func (a *SemanticAnalyzer) analyzeClosureExpr(v *ast.ClosureExpr) {
	a.closureCount++
	sym := symbols.NewClosure(a.closureCount, v.Range().Begin)
	v.SetSymbol(sym)

	child := a.decl.NewClosureScope()
	a.withDeclScope(child, func() {
		a.declareParameters(v.Params)
		for _, s := range v.Body {
			a.analyzeStmt(s)
		}
	})
	v.SetBoundedLocals(child.BoundedLocals())
}
