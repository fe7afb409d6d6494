package sema

import (
	"github.com/buildc-lang/buildc/internal/ast"
	"github.com/buildc-lang/buildc/internal/diag"
	"github.com/buildc-lang/buildc/internal/symbols"
)

// analyzeStmt dispatches every statement kind (spec §4.4's per-statement
// scope-entry rules and reachability checks).
func (a *SemanticAnalyzer) analyzeStmt(s ast.Stmt) {
	switch v := s.(type) {
	case *ast.DeclStmt:
		a.analyzeLocalDecl(v.Decl)
	case *ast.BlockStmt:
		a.withLocalScope(symbols.ScopeBlock, func() { a.analyzeBlockBody(v) })
	case *ast.IfStmt:
		a.analyzeExpr(v.Cond)
		a.withLocalScope(symbols.ScopeBlock, func() { a.analyzeBlockBody(v.Then) })
		if v.Else != nil {
			a.analyzeStmt(v.Else)
		}
	case *ast.MatchStmt:
		a.analyzeMatchStmt(v)
	case *ast.ForStmt:
		a.analyzeForStmt(v)
	case *ast.WhileStmt:
		a.analyzeExpr(v.Cond)
		a.withLocalScope(symbols.ScopeLoop, func() { a.analyzeBlockBody(v.Body) })
	case *ast.WithStmt:
		a.analyzeWithStmt(v)
	case *ast.TryStmt:
		a.analyzeTryStmt(v)
	case *ast.BreakStmt:
		a.analyzeBreakStmt(v)
	case *ast.ContinueStmt:
		a.analyzeContinueStmt(v)
	case *ast.ReturnStmt:
		a.analyzeReturnStmt(v)
	case *ast.AssertStmt:
		a.analyzeExpr(v.Cond)
		if v.Message != nil {
			a.analyzeExpr(v.Message)
		}
	case *ast.PassStmt:
		// no-op; inside a match arm this is fall-through, handled entirely
		// by IR generation's loop-stack continue-target (spec §9).
	case *ast.AssignStmt:
		a.analyzeAssignStmt(v)
	case *ast.ExprStmt:
		a.analyzeExpr(v.Value)
	case *ast.InvalidStmt:
		// parser-recovery placeholder.
	default:
		a.rep.Report(diag.KindExpectedStatement, s.Range().Begin, "unsupported statement %T", v)
	}
}

// analyzeLocalDecl handles a var/const/def/class declaration nested inside
// a block (spec §4.3: the grammar allows these wherever a statement can
// appear).
func (a *SemanticAnalyzer) analyzeLocalDecl(d ast.Decl) {
	switch v := d.(type) {
	case *ast.VarDecl:
		a.analyzeVarDecl(v, false)
	case *ast.FunctionDecl:
		a.analyzeFunctionDecl(v)
	case *ast.ClassDecl:
		a.analyzeClassDecl(v)
	default:
		a.rep.Report(diag.KindExpectedStatement, d.Range().Begin, "unsupported local declaration %T", v)
	}
}

func (a *SemanticAnalyzer) analyzeMatchStmt(v *ast.MatchStmt) {
	a.analyzeExpr(v.Value)
	seen := map[ast.CaseValue]bool{}
	sawDefault := new(bool)
	for _, arm := range v.Arms {
		for _, label := range arm.Labels {
			a.analyzeLabel(label, seen, sawDefault)
		}
		// Each arm's continue-target is the next arm (spec §9's resolved
		// open question), modeled here as a Match-kind scope so CanBreak/
		// CanContinue both succeed for `break`/`pass` inside an arm.
		a.withLocalScope(symbols.ScopeMatch, func() {
			for _, s := range arm.Body {
				a.analyzeStmt(s)
			}
		})
	}
}

func (a *SemanticAnalyzer) analyzeLabel(label *ast.Label, seen map[ast.CaseValue]bool, sawDefault *bool) {
	if label.Kind == ast.LabelDefault {
		if *sawDefault {
			a.rep.Report(diag.KindDuplicateCase, label.Range().Begin, "duplicate 'default' label")
		}
		*sawDefault = true
		label.SetEvaluatedCaseValue(nil)
		return
	}
	a.analyzeExpr(label.Value)
	cv, ok := evalConstant(label.Value)
	if !ok {
		a.rep.Report(diag.KindInvalidCaseValue, label.Value.Range().Begin, "case label must be a constant integer, float, boolean, or non-interpolated string")
		label.SetEvaluatedCaseValue(nil)
		return
	}
	if seen[cv] {
		a.rep.Report(diag.KindDuplicateCase, label.Range().Begin, "duplicate case label")
	}
	seen[cv] = true
	label.SetEvaluatedCaseValue(&cv)
}

func (a *SemanticAnalyzer) analyzeForStmt(v *ast.ForStmt) {
	a.analyzeExpr(v.Iterable)
	a.withLocalScope(symbols.ScopeLoop, func() {
		sym := a.createLocalSymbol(v.Var, symbols.VarLocal, true)
		sym.MarkInitialized()
		v.VarSymbol = sym
		a.analyzeBlockBody(v.Body)
	})
}

func (a *SemanticAnalyzer) analyzeWithStmt(v *ast.WithStmt) {
	a.analyzeExpr(v.Resource)
	a.withLocalScope(symbols.ScopeBlock, func() {
		sym := a.createLocalSymbol(v.Var, symbols.VarLocal, false)
		sym.MarkInitialized()
		v.VarSymbol = sym
		a.analyzeBlockBody(v.Body)
	})
}

func (a *SemanticAnalyzer) analyzeTryStmt(v *ast.TryStmt) {
	a.withLocalScope(symbols.ScopeBlock, func() { a.analyzeBlockBody(v.Body) })
	for _, ex := range v.Excepts {
		a.withLocalScope(symbols.ScopeExcept, func() {
			if ex.Var != nil {
				sym := a.createLocalSymbol(*ex.Var, symbols.VarExcept, true)
				sym.MarkInitialized()
				ex.SetSymbol(sym)
			}
			a.analyzeBlockBody(ex.Body)
		})
	}
	if v.Finally != nil {
		a.withLocalScope(symbols.ScopeFinally, func() { a.analyzeBlockBody(v.Finally) })
	}
}

func (a *SemanticAnalyzer) analyzeBreakStmt(v *ast.BreakStmt) {
	if !a.local.CanBreak() {
		if a.local.InFinally() {
			a.rep.Report(diag.KindCannotBreakInFinally, v.Range().Begin, "cannot break out of a finally block")
		} else {
			a.rep.Report(diag.KindCannotBreak, v.Range().Begin, "break is only valid inside a loop or match")
		}
	}
	if v.Value != nil {
		a.analyzeExpr(v.Value)
	}
	if v.Guard != nil {
		a.analyzeExpr(v.Guard)
	}
}

func (a *SemanticAnalyzer) analyzeContinueStmt(v *ast.ContinueStmt) {
	if !a.local.CanContinue() {
		if a.local.InFinally() {
			a.rep.Report(diag.KindCannotContinueInFinally, v.Range().Begin, "cannot continue out of a finally block")
		} else {
			a.rep.Report(diag.KindCannotContinue, v.Range().Begin, "continue is only valid inside a loop")
		}
	}
	if v.Guard != nil {
		a.analyzeExpr(v.Guard)
	}
}

func (a *SemanticAnalyzer) analyzeReturnStmt(v *ast.ReturnStmt) {
	if !a.local.CanReturn() {
		a.rep.Report(diag.KindCannotReturn, v.Range().Begin, "return is not valid here")
	}
	if v.Value != nil {
		a.analyzeExpr(v.Value)
	}
	if v.Guard != nil {
		a.analyzeExpr(v.Guard)
	}
}

// analyzeAssignStmt validates the assignment target per spec §4.4: a
// MemberAccess or Subscript target is always structurally valid; a bare
// Variable target must resolve to a writable, non-bounded-local symbol.
func (a *SemanticAnalyzer) analyzeAssignStmt(v *ast.AssignStmt) {
	a.analyzeExpr(v.Value)
	switch target := v.Target.(type) {
	case *ast.MemberAccessExpr:
		a.analyzeExpr(target)
	case *ast.SubscriptExpr:
		a.analyzeExpr(target)
	case *ast.VariableExpr:
		a.analyzeAssignToVariable(target)
	default:
		a.rep.Report(diag.KindCannotAssign, v.Target.Range().Begin, "invalid assignment target")
		a.analyzeExpr(v.Target)
	}
}

func (a *SemanticAnalyzer) analyzeAssignToVariable(target *ast.VariableExpr) {
	sym := a.resolveVariable(target.Name)
	target.SetSymbol(sym)
	switch s := sym.(type) {
	case *symbols.BoundedLocalSymbol:
		a.rep.Report(diag.KindAssignToBoundedLocal, target.Range().Begin, "cannot assign to %s captured by a closure", symbols.Describe(s.Inner))
	case *symbols.VariableSymbol:
		if s.Readonly {
			a.rep.Report(diag.KindCannotAssign, target.Range().Begin, "cannot assign to %s", symbols.Describe(s))
		} else {
			markInitializedIfLocal(s)
		}
	case *symbols.UndeclaredSymbol:
		// already diagnosed by resolveVariable.
	default:
		a.rep.Report(diag.KindCannotAssign, target.Range().Begin, "cannot assign to %s", symbols.Describe(sym))
	}
}

func markInitializedIfLocal(s *symbols.VariableSymbol) {
	if !s.Initialized() {
		s.MarkInitialized()
	}
}
